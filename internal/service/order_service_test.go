package service

import (
	"context"
	"errors"
	"testing"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/config"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/gateway"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCustomerID = "cust-001"

func testConfig() *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{
			KeyID:    "key_test_abc",
			Currency: "INR",
		},
		Checkout: config.CheckoutConfig{
			FreeShippingThreshold: 1999,
			FlatShippingFee:       50,
			DiscountPercent:       10,
			PendingOrderTTL:       60,
		},
	}
}

// orderFixture bundles the order service with its mocked collaborators.
type orderFixture struct {
	orderRepo   *MockOrderRepository
	productRepo *MockProductRepository
	cartRepo    *MockCartRepository
	userRepo    *MockUserRepository
	gw          *MockGateway
	validator   *MockCouponValidator
	svc         OrderService
}

func newOrderFixture(cfg *config.Config) *orderFixture {
	f := &orderFixture{
		orderRepo:   new(MockOrderRepository),
		productRepo: new(MockProductRepository),
		cartRepo:    new(MockCartRepository),
		userRepo:    new(MockUserRepository),
		gw:          new(MockGateway),
		validator:   new(MockCouponValidator),
	}
	if cfg == nil {
		cfg = testConfig()
	}
	f.svc = NewOrderService(f.orderRepo, f.productRepo, f.cartRepo, f.userRepo, f.gw, f.validator, cfg, zerolog.Nop())
	return f
}

func validShipping() model.ShippingAddress {
	return model.ShippingAddress{
		FirstName: "Asha",
		LastName:  "Verma",
		Email:     "asha@example.com",
		Phone:     "9876543210",
		Address:   "12 MG Road",
		City:      "Pune",
		State:     "MH",
		Zip:       "411001",
		Country:   "IN",
	}
}

func TestPlaceOrder_CODHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	cartItems := []model.CartItem{
		{ProductID: "P001", Quantity: 2},
		{ProductID: "P002", Quantity: 1},
	}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 1000, Stock: 5, IsActive: true},
		"P002": {ID: "P002", Name: "Silver Chain", Price: 500, Stock: 3, IsActive: true},
	}

	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001", "P002"}).Return(products, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P001", 2).Return(true, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P002", 1).Return(true, nil)
	f.orderRepo.On("Create", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	f.cartRepo.On("ClearTx", ctx, tx, testCustomerID).Return(nil)
	tx.On("Commit", ctx).Return(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.False(t, resp.RequiresPayment)
	assert.Nil(t, resp.Payment)

	order := resp.Order
	require.NotNil(t, order)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, 2500.0, order.Subtotal)
	assert.Equal(t, 0.0, order.Discount)
	assert.Equal(t, 0.0, order.ShippingFee) // 2500 > free-shipping threshold
	assert.Equal(t, 0.0, order.Tax)
	assert.Equal(t, 2500.0, order.Total)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "Gold Ring", order.Items[0].Name)
	assert.Equal(t, 1000.0, order.Items[0].UnitPrice)
	assert.Regexp(t, `^ORD-\d{14}-[0-9A-F]{6}$`, order.OrderNumber)

	assert.True(t, tx.committed)
	f.orderRepo.AssertExpectations(t)
	f.productRepo.AssertExpectations(t)
	f.cartRepo.AssertExpectations(t)
	f.gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_GatewayHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	cartItems := []model.CartItem{{ProductID: "P001", Quantity: 1}}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 1500, Stock: 5, IsActive: true},
	}

	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001"}).Return(products, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P001", 1).Return(true, nil)
	f.orderRepo.On("Create", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	f.cartRepo.On("ClearTx", ctx, tx, testCustomerID).Return(nil)
	tx.On("Commit", ctx).Return(nil)

	// 1500 <= threshold, so the flat fee applies: total 1550.
	f.gw.On("CreateIntent", ctx, 1550.0, "INR", mock.AnythingOfType("string")).
		Return(&gateway.Intent{GatewayOrderID: "gw_order_123", Amount: 155000, Currency: "INR"}, nil)
	f.orderRepo.On("SetGatewayOrderID", ctx, mock.AnythingOfType("uuid.UUID"), "gw_order_123").Return(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodGateway,
	})
	require.NoError(t, err)

	assert.True(t, resp.RequiresPayment)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "gw_order_123", resp.Payment.GatewayOrderID)
	assert.Equal(t, int64(155000), resp.Payment.Amount)
	assert.Equal(t, "INR", resp.Payment.Currency)
	assert.Equal(t, "key_test_abc", resp.Payment.PublicKey)
	assert.Equal(t, 1550.0, resp.Payment.Total)

	assert.Equal(t, model.OrderStatusPending, resp.Order.Status)
	assert.Equal(t, "gw_order_123", resp.Order.Payment.GatewayOrderID)
	f.orderRepo.AssertExpectations(t)
	f.gw.AssertExpectations(t)
}

func TestPlaceOrder_CouponDiscount(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	code := "FESTIVE20"
	cartItems := []model.CartItem{{ProductID: "P001", Quantity: 2}}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 2000, Stock: 5, IsActive: true},
	}

	f.validator.On("Validate", ctx, code).Return(nil)
	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001"}).Return(products, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P001", 2).Return(true, nil)
	f.orderRepo.On("Create", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	f.cartRepo.On("ClearTx", ctx, tx, testCustomerID).Return(nil)
	tx.On("Commit", ctx).Return(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
		CouponCode:    &code,
	})
	require.NoError(t, err)

	order := resp.Order
	assert.Equal(t, 4000.0, order.Subtotal)
	assert.Equal(t, 400.0, order.Discount) // 10 percent
	assert.Equal(t, 0.0, order.ShippingFee)
	assert.Equal(t, 3600.0, order.Total)
	f.validator.AssertExpectations(t)
}

func TestPlaceOrder_CouponDropsSubtotalBelowFreeShipping(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	code := "FESTIVE20"
	cartItems := []model.CartItem{{ProductID: "P001", Quantity: 1}}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 2100, Stock: 5, IsActive: true},
	}

	f.validator.On("Validate", ctx, code).Return(nil)
	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001"}).Return(products, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P001", 1).Return(true, nil)
	f.orderRepo.On("Create", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	f.cartRepo.On("ClearTx", ctx, tx, testCustomerID).Return(nil)
	tx.On("Commit", ctx).Return(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
		CouponCode:    &code,
	})
	require.NoError(t, err)

	// 2100 discounts to 1890, under the 1999 threshold, so the flat fee
	// applies even though the raw subtotal is above it.
	order := resp.Order
	assert.Equal(t, 2100.0, order.Subtotal)
	assert.Equal(t, 210.0, order.Discount)
	assert.Equal(t, 50.0, order.ShippingFee)
	assert.Equal(t, 1940.0, order.Total)
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	code := "BOGUSCODE"
	f.validator.On("Validate", ctx, code).Return(model.ErrInvalidCouponCode)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
		CouponCode:    &code,
	})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrInvalidCouponCode)
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestPlaceOrder_MissingShippingFields(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	shipping := validShipping()
	shipping.Email = ""
	shipping.Zip = ""

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      shipping,
		PaymentMethod: model.PaymentMethodCOD,
	})
	assert.Nil(t, resp)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Message, "email")
	assert.Contains(t, domainErr.Message, "zip")
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestPlaceOrder_InvalidPaymentMethod(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: "bitcoin",
	})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrInvalidPaymentMethod)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return([]model.CartItem{}, nil)
	tx.On("Rollback", ctx).Return(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
	})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, model.ErrEmptyCart)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestPlaceOrder_CollectsAllInventoryViolations(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	cartItems := []model.CartItem{
		{ProductID: "P001", Quantity: 10},
		{ProductID: "P002", Quantity: 1},
		{ProductID: "P003", Quantity: 1},
	}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 1000, Stock: 2, IsActive: true},
		"P002": {ID: "P002", Name: "Silver Chain", Price: 500, Stock: 3, IsActive: false},
		// P003 missing entirely
	}

	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001", "P002", "P003"}).Return(products, nil)
	tx.On("Rollback", ctx).Return(nil)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
	})
	assert.Nil(t, resp)

	var invErr *model.InventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Len(t, invErr.Violations, 3)

	// Nothing was written: no decrement, no order, cart untouched.
	f.productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.cartRepo.AssertNotCalled(t, "ClearTx", mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, tx.rolledBack)
}

func TestPlaceOrder_IntentFailureLeavesOrderCommitted(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	cartItems := []model.CartItem{{ProductID: "P001", Quantity: 1}}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 2500, Stock: 5, IsActive: true},
	}

	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001"}).Return(products, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P001", 1).Return(true, nil)
	f.orderRepo.On("Create", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	f.cartRepo.On("ClearTx", ctx, tx, testCustomerID).Return(nil)
	tx.On("Commit", ctx).Return(nil)
	tx.On("Rollback", ctx).Return(nil)

	gwErr := &model.GatewayError{Op: "create intent", Err: errors.New("provider down")}
	f.gw.On("CreateIntent", ctx, 2500.0, "INR", mock.AnythingOfType("string")).Return(nil, gwErr)

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodGateway,
	})
	assert.Nil(t, resp)

	var gatewayErr *model.GatewayError
	assert.ErrorAs(t, err, &gatewayErr)

	// The transaction committed before the gateway call; the reconciler
	// picks the order up later. No rollback may be attempted against the
	// closed transaction.
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	f.orderRepo.AssertNotCalled(t, "SetGatewayOrderID", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_SaveAddressFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)
	tx := new(MockTx)

	cartItems := []model.CartItem{{ProductID: "P001", Quantity: 1}}
	products := map[string]model.Product{
		"P001": {ID: "P001", Name: "Gold Ring", Price: 2500, Stock: 5, IsActive: true},
	}

	f.orderRepo.On("BeginTx", ctx).Return(tx, nil)
	f.cartRepo.On("GetItems", ctx, tx, testCustomerID).Return(cartItems, nil)
	f.productRepo.On("GetForUpdate", ctx, tx, []string{"P001"}).Return(products, nil)
	f.productRepo.On("DecrementStock", ctx, tx, "P001", 1).Return(true, nil)
	f.orderRepo.On("Create", ctx, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateItems", ctx, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	f.cartRepo.On("ClearTx", ctx, tx, testCustomerID).Return(nil)
	tx.On("Commit", ctx).Return(nil)
	f.userRepo.On("SaveAddress", ctx, testCustomerID, mock.AnythingOfType("model.ShippingAddress")).
		Return(errors.New("address book unavailable"))

	resp, err := f.svc.PlaceOrder(ctx, testCustomerID, &model.PlaceOrderRequest{
		Shipping:      validShipping(),
		PaymentMethod: model.PaymentMethodCOD,
		SaveAddress:   true,
	})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	f.userRepo.AssertExpectations(t)
}

func TestVerifyPayment_Success(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusPending,
		Payment: model.Payment{
			Method:         model.PaymentMethodGateway,
			Status:         model.PaymentStatusPending,
			GatewayOrderID: "gw_order_123",
		},
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)
	f.gw.On("VerifySignature", "gw_order_123", "gw_pay_456", "sig").Return(true, nil)
	f.orderRepo.On("SetPaymentResult", ctx, orderID, model.PaymentStatusPaid, "gw_pay_456", "sig", model.OrderStatusConfirmed).Return(nil)

	result, err := f.svc.VerifyPayment(ctx, testCustomerID, orderID, &model.VerifyPaymentRequest{
		GatewayOrderID:   "gw_order_123",
		GatewayPaymentID: "gw_pay_456",
		Signature:        "sig",
	})
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, model.OrderStatusConfirmed, result.Order.Status)
	assert.Equal(t, model.PaymentStatusPaid, result.Order.Payment.Status)
	f.orderRepo.AssertExpectations(t)
}

func TestVerifyPayment_BadSignatureRecordedNotRaised(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusPending,
		Payment: model.Payment{
			Method:         model.PaymentMethodGateway,
			Status:         model.PaymentStatusPending,
			GatewayOrderID: "gw_order_123",
		},
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)
	f.gw.On("VerifySignature", "gw_order_123", "gw_pay_456", "bad").Return(false, nil)
	f.orderRepo.On("SetPaymentResult", ctx, orderID, model.PaymentStatusFailed, "gw_pay_456", "bad", model.OrderStatusPending).Return(nil)

	result, err := f.svc.VerifyPayment(ctx, testCustomerID, orderID, &model.VerifyPaymentRequest{
		GatewayOrderID:   "gw_order_123",
		GatewayPaymentID: "gw_pay_456",
		Signature:        "bad",
	})
	require.NoError(t, err)

	assert.False(t, result.Verified)
	// Order status untouched so the customer can retry.
	assert.Equal(t, model.OrderStatusPending, result.Order.Status)
	assert.Equal(t, model.PaymentStatusFailed, result.Order.Payment.Status)
}

func TestVerifyPayment_GatewayOrderIDMismatch(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusPending,
		Payment: model.Payment{
			Method:         model.PaymentMethodGateway,
			GatewayOrderID: "gw_order_123",
		},
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)

	_, err := f.svc.VerifyPayment(ctx, testCustomerID, orderID, &model.VerifyPaymentRequest{
		GatewayOrderID:   "gw_order_stale",
		GatewayPaymentID: "gw_pay_456",
		Signature:        "sig",
	})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	f.gw.AssertNotCalled(t, "VerifySignature", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPayment_WrongOwner(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, "cust-other").Return(nil, nil)

	_, err := f.svc.VerifyPayment(ctx, "cust-other", orderID, &model.VerifyPaymentRequest{
		GatewayOrderID:   "gw_order_123",
		GatewayPaymentID: "gw_pay_456",
		Signature:        "sig",
	})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestVerifyPayment_AlreadyPaidIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusConfirmed,
		Payment: model.Payment{
			Method:           model.PaymentMethodGateway,
			Status:           model.PaymentStatusPaid,
			GatewayOrderID:   "gw_order_123",
			GatewayPaymentID: "gw_pay_456",
		},
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)

	result, err := f.svc.VerifyPayment(ctx, testCustomerID, orderID, &model.VerifyPaymentRequest{
		GatewayOrderID:   "gw_order_123",
		GatewayPaymentID: "gw_pay_456",
		Signature:        "sig",
	})
	require.NoError(t, err)

	assert.True(t, result.Verified)
	f.orderRepo.AssertNotCalled(t, "SetPaymentResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.gw.AssertNotCalled(t, "VerifySignature", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPayment_CancelledOrderRejected(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusCancelled,
		Payment: model.Payment{
			Method:         model.PaymentMethodGateway,
			GatewayOrderID: "gw_order_123",
		},
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)

	_, err := f.svc.VerifyPayment(ctx, testCustomerID, orderID, &model.VerifyPaymentRequest{
		GatewayOrderID:   "gw_order_123",
		GatewayPaymentID: "gw_pay_456",
		Signature:        "sig",
	})
	assert.ErrorIs(t, err, model.ErrOrderCancelled)
}

func TestCancelOrder_UnpaidRestocksWithoutRefund(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusPending,
		Payment: model.Payment{
			Method: model.PaymentMethodGateway,
			Status: model.PaymentStatusPending,
		},
		Items: []model.OrderItem{
			{ProductID: "P001", Quantity: 2},
			{ProductID: "P002", Quantity: 1},
		},
	}
	cancelled := &model.Order{ID: orderID, Status: model.OrderStatusCancelled}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)
	f.orderRepo.On("MarkCancelled", ctx, orderID, "changed my mind", model.PaymentStatusFailed).Return(nil)
	f.orderRepo.On("MarkStockRestored", ctx, orderID).Return(true, nil)
	f.productRepo.On("IncrementStock", ctx, "P001", 2).Return(true, nil)
	f.productRepo.On("IncrementStock", ctx, "P002", 1).Return(true, nil)
	f.orderRepo.On("GetByID", ctx, orderID).Return(cancelled, nil)

	result, err := f.svc.CancelOrder(ctx, testCustomerID, orderID, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancelled, result.Status)
	f.gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
	f.productRepo.AssertExpectations(t)
}

func TestCancelOrder_PaidOrderRefundsFirst(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusConfirmed,
		Total:      2500,
		Payment: model.Payment{
			Method:           model.PaymentMethodGateway,
			Status:           model.PaymentStatusPaid,
			GatewayPaymentID: "gw_pay_456",
		},
		Items: []model.OrderItem{{ProductID: "P001", Quantity: 1}},
	}
	cancelled := &model.Order{ID: orderID, Status: model.OrderStatusCancelled}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)
	f.gw.On("Refund", ctx, "gw_pay_456", 2500.0).Return(&gateway.Refund{RefundID: "rf_1", Amount: 250000}, nil)
	f.orderRepo.On("MarkCancelled", ctx, orderID, mock.AnythingOfType("string"), model.PaymentStatusRefunded).Return(nil)
	f.orderRepo.On("MarkStockRestored", ctx, orderID).Return(true, nil)
	f.productRepo.On("IncrementStock", ctx, "P001", 1).Return(true, nil)
	f.orderRepo.On("GetByID", ctx, orderID).Return(cancelled, nil)

	result, err := f.svc.CancelOrder(ctx, testCustomerID, orderID, "")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, result.Status)
	f.gw.AssertExpectations(t)
}

func TestCancelOrder_RefundFailureAbortsCancellation(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusConfirmed,
		Total:      2500,
		Payment: model.Payment{
			Method:           model.PaymentMethodGateway,
			Status:           model.PaymentStatusPaid,
			GatewayPaymentID: "gw_pay_456",
		},
		Items: []model.OrderItem{{ProductID: "P001", Quantity: 1}},
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)
	f.gw.On("Refund", ctx, "gw_pay_456", 2500.0).
		Return(nil, &model.GatewayError{Op: "refund", Err: errors.New("provider rejected")})

	result, err := f.svc.CancelOrder(ctx, testCustomerID, orderID, "")
	assert.Nil(t, result)

	var gwErr *model.GatewayError
	assert.ErrorAs(t, err, &gwErr)

	// No local state changed while the refund is outstanding.
	f.orderRepo.AssertNotCalled(t, "MarkCancelled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.productRepo.AssertNotCalled(t, "IncrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_ShippedOrderRejected(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusShipped,
	}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)

	_, err := f.svc.CancelOrder(ctx, testCustomerID, orderID, "")
	assert.ErrorIs(t, err, model.ErrCannotCancel)
}

func TestCancelOrder_RestockSkippedWhenAlreadyRestored(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:         orderID,
		CustomerID: testCustomerID,
		Status:     model.OrderStatusPending,
		Payment:    model.Payment{Method: model.PaymentMethodCOD, Status: model.PaymentStatusPending},
		Items:      []model.OrderItem{{ProductID: "P001", Quantity: 2}},
	}
	cancelled := &model.Order{ID: orderID, Status: model.OrderStatusCancelled}

	f.orderRepo.On("GetByIDForCustomer", ctx, orderID, testCustomerID).Return(order, nil)
	f.orderRepo.On("MarkCancelled", ctx, orderID, mock.AnythingOfType("string"), model.PaymentStatusFailed).Return(nil)
	f.orderRepo.On("MarkStockRestored", ctx, orderID).Return(false, nil)
	f.orderRepo.On("GetByID", ctx, orderID).Return(cancelled, nil)

	_, err := f.svc.CancelOrder(ctx, testCustomerID, orderID, "")
	require.NoError(t, err)
	f.productRepo.AssertNotCalled(t, "IncrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_ForwardTransition(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:      orderID,
		Status:  model.OrderStatusConfirmed,
		Payment: model.Payment{Method: model.PaymentMethodGateway, Status: model.PaymentStatusPaid},
	}
	tracking := "TRK-991"
	updated := &model.Order{ID: orderID, Status: model.OrderStatusShipped, TrackingNumber: &tracking}

	f.orderRepo.On("GetByID", ctx, orderID).Return(order, nil).Once()
	f.orderRepo.On("UpdateStatus", ctx, orderID, model.OrderStatusShipped, &tracking, (*model.PaymentStatus)(nil)).Return(nil)
	f.orderRepo.On("GetByID", ctx, orderID).Return(updated, nil).Once()

	result, err := f.svc.UpdateStatus(ctx, orderID, &model.UpdateOrderStatusRequest{
		Status:         model.OrderStatusShipped,
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, result.Status)
}

func TestUpdateStatus_BackwardTransitionRejected(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{ID: orderID, Status: model.OrderStatusShipped}

	f.orderRepo.On("GetByID", ctx, orderID).Return(order, nil)

	_, err := f.svc.UpdateStatus(ctx, orderID, &model.UpdateOrderStatusRequest{Status: model.OrderStatusConfirmed})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestUpdateStatus_DeliveredSettlesCOD(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:      orderID,
		Status:  model.OrderStatusShipped,
		Payment: model.Payment{Method: model.PaymentMethodCOD, Status: model.PaymentStatusPending},
	}
	updated := &model.Order{
		ID:      orderID,
		Status:  model.OrderStatusDelivered,
		Payment: model.Payment{Method: model.PaymentMethodCOD, Status: model.PaymentStatusPaid},
	}

	paid := model.PaymentStatusPaid
	f.orderRepo.On("GetByID", ctx, orderID).Return(order, nil).Once()
	f.orderRepo.On("UpdateStatus", ctx, orderID, model.OrderStatusDelivered, (*string)(nil), &paid).Return(nil)
	f.orderRepo.On("GetByID", ctx, orderID).Return(updated, nil).Once()

	result, err := f.svc.UpdateStatus(ctx, orderID, &model.UpdateOrderStatusRequest{Status: model.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, result.Payment.Status)
}

func TestUpdateStatus_CancelledRestocksWithoutRefund(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:      orderID,
		Status:  model.OrderStatusConfirmed,
		Payment: model.Payment{Method: model.PaymentMethodGateway, Status: model.PaymentStatusPaid},
		Items:   []model.OrderItem{{ProductID: "P001", Quantity: 3}},
	}
	cancelled := &model.Order{ID: orderID, Status: model.OrderStatusCancelled}

	f.orderRepo.On("GetByID", ctx, orderID).Return(order, nil).Once()
	f.orderRepo.On("MarkCancelled", ctx, orderID, "fraud review", model.PaymentStatusPaid).Return(nil)
	f.orderRepo.On("MarkStockRestored", ctx, orderID).Return(true, nil)
	f.productRepo.On("IncrementStock", ctx, "P001", 3).Return(true, nil)
	f.orderRepo.On("GetByID", ctx, orderID).Return(cancelled, nil).Once()

	result, err := f.svc.UpdateStatus(ctx, orderID, &model.UpdateOrderStatusRequest{
		Status:          model.OrderStatusCancelled,
		CancelledReason: "fraud review",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, result.Status)
	f.gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
	f.productRepo.AssertExpectations(t)
}

func TestDelete_RestocksBeforeRemoval(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	orderID := uuid.New()
	order := &model.Order{
		ID:     orderID,
		Status: model.OrderStatusPending,
		Items:  []model.OrderItem{{ProductID: "P001", Quantity: 2}},
	}

	f.orderRepo.On("GetByID", ctx, orderID).Return(order, nil)
	f.orderRepo.On("MarkStockRestored", ctx, orderID).Return(true, nil)
	f.productRepo.On("IncrementStock", ctx, "P001", 2).Return(true, nil)
	f.orderRepo.On("Delete", ctx, orderID).Return(nil)

	err := f.svc.Delete(ctx, orderID)
	require.NoError(t, err)
	f.productRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestReconcileMissingIntents(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	stranded := []model.Order{
		{ID: uuid.New(), OrderNumber: "ORD-A", Total: 1000},
		{ID: uuid.New(), OrderNumber: "ORD-B", Total: 2000},
	}

	f.orderRepo.On("ListMissingIntent", ctx, reconcileBatchSize).Return(stranded, nil)
	f.gw.On("CreateIntent", ctx, 1000.0, "INR", "ORD-A").
		Return(&gateway.Intent{GatewayOrderID: "gw_a", Amount: 100000, Currency: "INR"}, nil)
	// Second order still failing; it stays for the next sweep.
	f.gw.On("CreateIntent", ctx, 2000.0, "INR", "ORD-B").
		Return(nil, &model.GatewayError{Op: "create intent", Err: errors.New("timeout")})
	f.orderRepo.On("SetGatewayOrderID", ctx, stranded[0].ID, "gw_a").Return(nil)

	repaired, err := f.svc.ReconcileMissingIntents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	f.orderRepo.AssertExpectations(t)
}

func TestExpireStalePendingOrders(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(nil)

	staleID := uuid.New()
	stale := []model.Order{{ID: staleID, Total: 1500}}
	full := &model.Order{
		ID:     staleID,
		Status: model.OrderStatusPending,
		Items:  []model.OrderItem{{ProductID: "P001", Quantity: 1}},
	}

	f.orderRepo.On("ListExpiredPending", ctx, mock.AnythingOfType("time.Time"), reconcileBatchSize).Return(stale, nil)
	f.orderRepo.On("GetByID", ctx, staleID).Return(full, nil)
	f.orderRepo.On("MarkCancelled", ctx, staleID, "Payment window expired", model.PaymentStatusFailed).Return(nil)
	f.orderRepo.On("MarkStockRestored", ctx, staleID).Return(true, nil)
	f.productRepo.On("IncrementStock", ctx, "P001", 1).Return(true, nil)

	expired, err := f.svc.ExpireStalePendingOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	f.orderRepo.AssertExpectations(t)
	f.productRepo.AssertExpectations(t)
}
