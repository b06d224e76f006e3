package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order. Transitions are
// one-directional; cancelled is terminal and only reachable from
// pending or confirmed.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderStatusRank orders the forward progression of an order.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionTo reports whether an order may move from s to next.
// Forward moves only; cancelled is reachable from pending or confirmed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == OrderStatusCancelled {
		return false
	}
	if next == OrderStatusCancelled {
		return s == OrderStatusPending || s == OrderStatusConfirmed
	}
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodUPI     PaymentMethod = "upi"
)

// Valid reports whether m is one of the allowed payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodCOD, PaymentMethodUPI:
		return true
	}
	return false
}

// RequiresGateway reports whether the method is settled through the
// external payment gateway. COD is reconciled on delivery instead.
func (m PaymentMethod) RequiresGateway() bool {
	return m != PaymentMethodCOD
}

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment is the payment sub-record embedded in an order.
type Payment struct {
	Method           PaymentMethod `json:"method" db:"payment_method"`
	Status           PaymentStatus `json:"status" db:"payment_status"`
	GatewayOrderID   string        `json:"gatewayOrderId,omitempty" db:"gateway_order_id"`
	GatewayPaymentID string        `json:"gatewayPaymentId,omitempty" db:"gateway_payment_id"`
	GatewaySignature string        `json:"-" db:"gateway_signature"`
}

// ShippingAddress is the destination for an order. All fields are
// required at order placement.
type ShippingAddress struct {
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`
	Address   string `json:"address" db:"address"`
	City      string `json:"city" db:"city"`
	State     string `json:"state" db:"state"`
	Zip       string `json:"zip" db:"zip"`
	Country   string `json:"country" db:"country"`
}

// MissingFields returns the names of required address fields that are empty.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"country", a.Country},
	}
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Order is the durable record of a placed purchase. Totals are computed
// once at creation; items are an immutable snapshot of product data.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	CustomerID      string          `json:"customerId" db:"customer_id"`
	Shipping        ShippingAddress `json:"shipping"`
	Payment         Payment         `json:"payment"`
	CouponCode      *string         `json:"couponCode,omitempty" db:"coupon_code"`
	Subtotal        float64         `json:"subtotal" db:"subtotal"`
	Discount        float64         `json:"discount" db:"discount"`
	ShippingFee     float64         `json:"shippingFee" db:"shipping_fee"`
	Tax             float64         `json:"tax" db:"tax"`
	Total           float64         `json:"total" db:"total"`
	Status          OrderStatus     `json:"orderStatus" db:"order_status"`
	OrderNotes      string          `json:"orderNotes,omitempty" db:"order_notes"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty" db:"tracking_number"`
	StockRestored   bool            `json:"-" db:"stock_restored"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CancelledReason *string         `json:"cancelledReason,omitempty" db:"cancelled_reason"`
}

// OrderItem is a snapshot of a product taken at order time, immune to
// later catalogue edits.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unitPrice" db:"unit_price"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
}

// PlaceOrderRequest is the payload for creating an order from the
// customer's cart.
type PlaceOrderRequest struct {
	Shipping      ShippingAddress `json:"shipping"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	CouponCode    *string         `json:"couponCode,omitempty"`
	OrderNotes    string          `json:"orderNotes,omitempty"`
	SaveAddress   bool            `json:"saveAddress,omitempty"`
}

// PaymentIntentInfo is the gateway checkout data returned to the client
// when the order still requires payment.
type PaymentIntentInfo struct {
	GatewayOrderID string  `json:"gatewayOrderId"`
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	PublicKey      string  `json:"publicKey"`
	Total          float64 `json:"total"`
}

// PlaceOrderResponse is returned from a successful order placement.
type PlaceOrderResponse struct {
	Order           *Order             `json:"order"`
	RequiresPayment bool               `json:"requiresPayment"`
	Payment         *PaymentIntentInfo `json:"payment,omitempty"`
}

// VerifyPaymentRequest carries the gateway callback values from the
// client-side checkout flow.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// VerifyPaymentResult is the outcome of a payment verification attempt.
// A signature mismatch is a normal outcome, not an error.
type VerifyPaymentResult struct {
	Verified bool   `json:"verified"`
	Order    *Order `json:"order"`
}

// CancelOrderRequest is the payload for a customer-initiated cancellation.
type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// UpdateOrderStatusRequest is the admin payload for a status transition.
type UpdateOrderStatusRequest struct {
	Status          OrderStatus `json:"status"`
	TrackingNumber  *string     `json:"trackingNumber,omitempty"`
	CancelledReason string      `json:"cancelledReason,omitempty"`
}
