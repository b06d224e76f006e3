package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/config"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/coupon"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/gateway"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reconcileBatchSize bounds how many stranded orders one sweep repairs.
const reconcileBatchSize = 50

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	userRepo    repository.UserRepository
	gateway     gateway.Gateway
	validator   coupon.Validator
	checkout    config.CheckoutConfig
	currency    string
	publicKey   string
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	gw gateway.Gateway,
	validator coupon.Validator,
	cfg *config.Config,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		userRepo:    userRepo,
		gateway:     gw,
		validator:   validator,
		checkout:    cfg.Checkout,
		currency:    cfg.Gateway.Currency,
		publicKey:   cfg.Gateway.KeyID,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// PlaceOrder turns the customer's cart into a durable order. Cart read,
// stock checks, stock decrements, order insert and cart clear run as one
// transaction; the gateway intent is created after commit.
func (s *orderService) PlaceOrder(ctx context.Context, customerID string, req *model.PlaceOrderRequest) (*model.PlaceOrderResponse, error) {
	if err := s.validatePlaceOrderRequest(req); err != nil {
		return nil, err
	}

	discountPercent := 0.0
	if req.CouponCode != nil && *req.CouponCode != "" {
		if err := s.validator.Validate(ctx, *req.CouponCode); err != nil {
			s.logger.Warn().
				Str("coupon_code", *req.CouponCode).
				Err(err).
				Msg("invalid coupon code")
			return nil, err
		}
		discountPercent = s.checkout.DiscountPercent
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// Post-commit failures (gateway intent, address save) must not roll
	// back an already-committed transaction.
	committed := false
	defer func() {
		if err != nil && !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	cartItems, err := s.cartRepo.GetItems(ctx, tx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to read cart")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	if len(cartItems) == 0 {
		err = model.ErrEmptyCart
		return nil, err
	}

	productIDs := make([]string, len(cartItems))
	for i, item := range cartItems {
		productIDs[i] = item.ProductID
	}

	// Row locks so concurrent checkouts against the same products
	// serialise here instead of racing the stock check.
	products, err := s.productRepo.GetForUpdate(ctx, tx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to lock products")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// Collect every violation rather than failing on the first, so the
	// customer can fix the whole cart in one round trip.
	var violations []string
	for _, item := range cartItems {
		product, ok := products[item.ProductID]
		switch {
		case !ok:
			violations = append(violations, fmt.Sprintf("%s: product no longer exists", item.ProductID))
		case !product.IsActive:
			violations = append(violations, fmt.Sprintf("%s: no longer available", product.Name))
		case product.Stock < item.Quantity:
			violations = append(violations, fmt.Sprintf("%s: only %d left in stock (requested %d)", product.Name, product.Stock, item.Quantity))
		}
	}
	if len(violations) > 0 {
		err = &model.InventoryError{Violations: violations}
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		ID:          uuid.New(),
		OrderNumber: newOrderNumber(now),
		CustomerID:  customerID,
		Shipping:    req.Shipping,
		Payment: model.Payment{
			Method: req.PaymentMethod,
			Status: model.PaymentStatusPending,
		},
		CouponCode: req.CouponCode,
		Status:     model.OrderStatusPending,
		OrderNotes: req.OrderNotes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// COD is confirmed at creation; its payment is reconciled on delivery.
	if !req.PaymentMethod.RequiresGateway() {
		order.Status = model.OrderStatusConfirmed
	}

	orderItems := make([]model.OrderItem, len(cartItems))
	for i, item := range cartItems {
		product := products[item.ProductID]

		var ok bool
		ok, err = s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error().Err(err).Str("product_id", item.ProductID).Msg("failed to decrement stock")
			return nil, fmt.Errorf("failed to place order: %w", err)
		}
		if !ok {
			err = &model.InventoryError{
				Violations: []string{fmt.Sprintf("%s: insufficient stock", product.Name)},
			}
			return nil, err
		}

		orderItems[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			ImageURL:  product.ImageURL,
		}
		order.Subtotal += product.Price * float64(item.Quantity)
	}

	// Free shipping is judged on what the customer actually pays for the
	// goods, so the coupon applies before the threshold check.
	order.Discount = order.Subtotal * discountPercent / 100
	if order.Subtotal-order.Discount <= s.checkout.FreeShippingThreshold {
		order.ShippingFee = s.checkout.FlatShippingFee
	}
	order.Tax = 0
	order.Total = order.Subtotal - order.Discount + order.ShippingFee + order.Tax
	order.Items = orderItems

	if err = s.orderRepo.Create(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err = s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order items")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err = s.cartRepo.ClearTx(ctx, tx, customerID); err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to clear cart")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	committed = true

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("payment_method", string(order.Payment.Method)).
		Float64("total", order.Total).
		Msg("order placed")

	// Address saving is its own consistency domain; a failure here must
	// not disturb the committed order.
	if req.SaveAddress {
		if saveErr := s.userRepo.SaveAddress(ctx, customerID, req.Shipping); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("customer_id", customerID).Msg("failed to save address")
		}
	}

	resp := &model.PlaceOrderResponse{
		Order:           order,
		RequiresPayment: order.Payment.Method.RequiresGateway(),
	}
	if !resp.RequiresPayment {
		return resp, nil
	}

	// The order and its stock decrement stay committed if intent creation
	// fails; the reconciler retries stranded orders.
	intent, err := s.gateway.CreateIntent(ctx, order.Total, s.currency, order.OrderNumber)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create payment intent")
		return nil, err
	}

	if err = s.orderRepo.SetGatewayOrderID(ctx, order.ID, intent.GatewayOrderID); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to store gateway order id")
		return nil, fmt.Errorf("failed to store gateway order id: %w", err)
	}
	order.Payment.GatewayOrderID = intent.GatewayOrderID

	resp.Payment = &model.PaymentIntentInfo{
		GatewayOrderID: intent.GatewayOrderID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		PublicKey:      s.publicKey,
		Total:          order.Total,
	}

	return resp, nil
}

// VerifyPayment reconciles a gateway callback against the order. A bad
// signature is recorded as a failed payment, not raised as an error, so
// the customer can retry.
func (s *orderService) VerifyPayment(ctx context.Context, customerID string, orderID uuid.UUID, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResult, error) {
	if req == nil || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return nil, model.NewValidationError("gatewayOrderId, gatewayPaymentId and signature are required")
	}

	order, err := s.orderRepo.GetByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	// Ownership and gateway order id mismatches are indistinguishable from
	// a missing order, so existence of other customers' orders never leaks.
	if order == nil || order.Payment.GatewayOrderID != req.GatewayOrderID {
		return nil, model.ErrOrderNotFound
	}

	if order.Status == model.OrderStatusCancelled {
		return nil, model.ErrOrderCancelled
	}

	// A repeat callback for an already captured payment is a no-op.
	if order.Payment.Status == model.PaymentStatusPaid {
		return &model.VerifyPaymentResult{Verified: true, Order: order}, nil
	}

	valid, err := s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("malformed verification payload")
		return nil, model.NewValidationError("malformed payment verification payload")
	}

	if !valid {
		if err := s.orderRepo.SetPaymentResult(ctx, order.ID, model.PaymentStatusFailed, req.GatewayPaymentID, req.Signature, order.Status); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to record failed payment")
			return nil, fmt.Errorf("failed to verify payment: %w", err)
		}
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("gateway_payment_id", req.GatewayPaymentID).
			Msg("payment signature rejected")

		order.Payment.Status = model.PaymentStatusFailed
		return &model.VerifyPaymentResult{Verified: false, Order: order}, nil
	}

	if err := s.orderRepo.SetPaymentResult(ctx, order.ID, model.PaymentStatusPaid, req.GatewayPaymentID, req.Signature, model.OrderStatusConfirmed); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to record payment")
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("gateway_payment_id", req.GatewayPaymentID).
		Msg("payment verified")

	order.Payment.Status = model.PaymentStatusPaid
	order.Payment.GatewayPaymentID = req.GatewayPaymentID
	order.Status = model.OrderStatusConfirmed
	return &model.VerifyPaymentResult{Verified: true, Order: order}, nil
}

// CancelOrder cancels a pending or confirmed order. A captured gateway
// payment must refund successfully before any local state changes.
func (s *orderService) CancelOrder(ctx context.Context, customerID string, orderID uuid.UUID, reason string) (*model.Order, error) {
	order, err := s.orderRepo.GetByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(model.OrderStatusCancelled) {
		return nil, model.ErrCannotCancel
	}

	paymentStatus := model.PaymentStatusFailed
	if order.Payment.Method.RequiresGateway() && order.Payment.Status == model.PaymentStatusPaid {
		refund, err := s.gateway.Refund(ctx, order.Payment.GatewayPaymentID, order.Total)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("order_id", orderID.String()).
				Str("gateway_payment_id", order.Payment.GatewayPaymentID).
				Msg("refund failed, cancellation aborted")
			return nil, err
		}
		s.logger.Info().
			Str("order_id", orderID.String()).
			Str("refund_id", refund.RefundID).
			Msg("payment refunded")
		paymentStatus = model.PaymentStatusRefunded
	}

	if reason == "" {
		reason = "Cancelled by customer"
	}
	if err := s.orderRepo.MarkCancelled(ctx, order.ID, reason, paymentStatus); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to mark order cancelled")
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.restoreStock(ctx, order)

	cancelled, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil || cancelled == nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to reload cancelled order")
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("reason", reason).
		Msg("order cancelled")

	return cancelled, nil
}

// GetByID retrieves an order scoped to its owner.
func (s *orderService) GetByID(ctx context.Context, customerID string, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *orderService) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetAnyByID retrieves an order without an ownership check.
func (s *orderService) GetAnyByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// ListAll returns all orders with pagination.
func (s *orderService) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.orderRepo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus performs an administrative status transition. Moving to
// cancelled through this path restores stock but never refunds; refunds
// stay on the customer-facing cancellation path.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req *model.UpdateOrderStatusRequest) (*model.Order, error) {
	if req == nil || !req.Status.Valid() {
		return nil, model.ErrInvalidOrderStatus
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(req.Status) {
		return nil, model.ErrInvalidTransition
	}

	if req.Status == model.OrderStatusCancelled {
		reason := req.CancelledReason
		if reason == "" {
			reason = "Cancelled by store"
		}
		if err := s.orderRepo.MarkCancelled(ctx, order.ID, reason, order.Payment.Status); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to mark order cancelled")
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
		s.restoreStock(ctx, order)
	} else {
		var paymentStatus *model.PaymentStatus
		// COD settles at the door, so delivery is its payment event.
		if req.Status == model.OrderStatusDelivered && !order.Payment.Method.RequiresGateway() {
			paid := model.PaymentStatusPaid
			paymentStatus = &paid
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, req.Status, req.TrackingNumber, paymentStatus); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update order status")
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
	}

	updated, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil || updated == nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to reload order")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", string(order.Status)).
		Str("to", string(req.Status)).
		Msg("order status updated")

	return updated, nil
}

// Delete removes an order and its items, restoring stock first.
func (s *orderService) Delete(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	s.restoreStock(ctx, order)

	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.Info().Str("order_id", orderID.String()).Msg("order deleted")
	return nil
}

// ReconcileMissingIntents retries gateway intent creation for committed
// orders stranded without one by a crash or gateway outage.
func (s *orderService) ReconcileMissingIntents(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.ListMissingIntent(ctx, reconcileBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list orders missing intent: %w", err)
	}

	repaired := 0
	for _, order := range orders {
		intent, err := s.gateway.CreateIntent(ctx, order.Total, s.currency, order.OrderNumber)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("intent retry failed, will try next sweep")
			continue
		}
		if err := s.orderRepo.SetGatewayOrderID(ctx, order.ID, intent.GatewayOrderID); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to store gateway order id")
			continue
		}
		repaired++
	}

	if repaired > 0 {
		s.logger.Info().Int("repaired", repaired).Msg("stranded orders repaired")
	}
	return repaired, nil
}

// ExpireStalePendingOrders cancels gateway orders whose payment never
// arrived within the configured TTL and restores their stock.
func (s *orderService) ExpireStalePendingOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-time.Duration(s.checkout.PendingOrderTTL) * time.Minute)
	orders, err := s.orderRepo.ListExpiredPending(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired pending orders: %w", err)
	}

	expired := 0
	for _, stale := range orders {
		// The listing omits items; reload for the restock snapshot.
		order, err := s.orderRepo.GetByID(ctx, stale.ID)
		if err != nil || order == nil {
			s.logger.Error().Err(err).Str("order_id", stale.ID.String()).Msg("failed to reload stale order")
			continue
		}
		if err := s.orderRepo.MarkCancelled(ctx, order.ID, "Payment window expired", model.PaymentStatusFailed); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to expire order")
			continue
		}
		s.restoreStock(ctx, order)
		expired++
	}

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("stale pending orders expired")
	}
	return expired, nil
}

// restoreStock puts an order's quantities back on the shelf. The restored
// guard makes it idempotent across the cancellation, expiry and deletion
// paths; each item is best-effort so one missing product cannot strand
// the rest.
func (s *orderService) restoreStock(ctx context.Context, order *model.Order) {
	claimed, err := s.orderRepo.MarkStockRestored(ctx, order.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to claim restock")
		return
	}
	if !claimed {
		s.logger.Debug().Str("order_id", order.ID.String()).Msg("stock already restored")
		return
	}

	for _, item := range order.Items {
		found, err := s.productRepo.IncrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("product_id", item.ProductID).
				Msg("failed to restore stock")
			continue
		}
		if !found {
			s.logger.Warn().
				Str("order_id", order.ID.String()).
				Str("product_id", item.ProductID).
				Msg("product gone, restock skipped")
		}
	}
}

// validatePlaceOrderRequest checks the shipping address and payment method.
func (s *orderService) validatePlaceOrderRequest(req *model.PlaceOrderRequest) error {
	if req == nil {
		return model.NewValidationError("order request is required")
	}

	if missing := req.Shipping.MissingFields(); len(missing) > 0 {
		return model.NewValidationError("missing required shipping fields: " + strings.Join(missing, ", "))
	}

	if !req.PaymentMethod.Valid() {
		return model.ErrInvalidPaymentMethod
	}

	return nil
}

// newOrderNumber builds a human-readable order number from the placement
// time and a random suffix.
func newOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:6])
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102150405"), suffix)
}
