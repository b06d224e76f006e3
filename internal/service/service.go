package service

import (
	"context"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/google/uuid"
)

// ProductService defines catalogue read access.
type ProductService interface {
	// List retrieves active products with pagination.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CartService defines operations on a customer's cart.
type CartService interface {
	// Get returns the customer's cart with product details joined in.
	Get(ctx context.Context, customerID string) (*model.CartResponse, error)

	// AddItem adds a product to the cart, merging quantities on repeat adds.
	AddItem(ctx context.Context, customerID string, req *model.AddCartItemRequest) error

	// UpdateItem sets the absolute quantity of a line item. Zero removes it.
	UpdateItem(ctx context.Context, customerID, productID string, quantity int) error

	// RemoveItem removes a product from the cart.
	RemoveItem(ctx context.Context, customerID, productID string) error

	// Clear empties the cart.
	Clear(ctx context.Context, customerID string) error
}

// OrderService defines the order pipeline: placement, payment
// reconciliation, cancellation and administrative transitions.
type OrderService interface {
	// PlaceOrder turns the customer's cart into a durable order, reserving
	// stock and creating a gateway payment intent when the method needs one.
	PlaceOrder(ctx context.Context, customerID string, req *model.PlaceOrderRequest) (*model.PlaceOrderResponse, error)

	// VerifyPayment reconciles a gateway callback against the order.
	VerifyPayment(ctx context.Context, customerID string, orderID uuid.UUID, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResult, error)

	// CancelOrder cancels a pending or confirmed order, refunding captured
	// payments and restoring stock.
	CancelOrder(ctx context.Context, customerID string, orderID uuid.UUID, reason string) (*model.Order, error)

	// GetByID retrieves an order scoped to its owner.
	GetByID(ctx context.Context, customerID string, orderID uuid.UUID) (*model.Order, error)

	// ListByCustomer returns the customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error)

	// GetAnyByID retrieves an order without an ownership check (admin).
	GetAnyByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)

	// ListAll returns all orders with pagination (admin).
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// UpdateStatus performs an administrative status transition (admin).
	UpdateStatus(ctx context.Context, orderID uuid.UUID, req *model.UpdateOrderStatusRequest) (*model.Order, error)

	// Delete removes an order, restoring stock first (admin).
	Delete(ctx context.Context, orderID uuid.UUID) error

	// ReconcileMissingIntents retries gateway intent creation for committed
	// orders that never got one. Returns the number repaired.
	ReconcileMissingIntents(ctx context.Context) (int, error)

	// ExpireStalePendingOrders cancels gateway orders whose payment never
	// arrived within the TTL, restoring stock. Returns the number expired.
	ExpireStalePendingOrders(ctx context.Context) (int, error)
}
