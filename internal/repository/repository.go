package repository

import (
	"context"
	"time"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the inventory ledger and catalogue read access.
type ProductRepository interface {
	// List retrieves active products with pagination support.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetForUpdate retrieves products by ID within the transaction, locking
	// the rows so concurrent checkouts serialise on the same stock.
	GetForUpdate(ctx context.Context, tx pgx.Tx, ids []string) (map[string]model.Product, error)

	// DecrementStock reduces a product's stock within the transaction. The
	// update is conditioned on sufficient stock; false means the guard failed.
	DecrementStock(ctx context.Context, tx pgx.Tx, id string, quantity int) (bool, error)

	// IncrementStock restores stock outside any transaction. False means the
	// product no longer exists.
	IncrementStock(ctx context.Context, id string, quantity int) (bool, error)
}

// CartRepository defines cart aggregate persistence. One cart per customer,
// created lazily.
type CartRepository interface {
	// GetByCustomer returns the customer's cart and its items. A customer
	// without a cart gets (nil, nil, nil).
	GetByCustomer(ctx context.Context, customerID string) (*model.Cart, []model.CartItem, error)

	// GetItems returns the cart's line items within the transaction.
	GetItems(ctx context.Context, tx pgx.Tx, customerID string) ([]model.CartItem, error)

	// AddItem upserts a line item, merging quantity when the product is
	// already in the cart. Creates the cart if needed.
	AddItem(ctx context.Context, customerID, productID string, quantity int) error

	// UpdateItemQuantity sets the absolute quantity of a line item. False
	// means the item was not in the cart.
	UpdateItemQuantity(ctx context.Context, customerID, productID string, quantity int) (bool, error)

	// RemoveItem deletes a line item. False means the item was not in the cart.
	RemoveItem(ctx context.Context, customerID, productID string) (bool, error)

	// Clear empties the cart outside a transaction.
	Clear(ctx context.Context, customerID string) error

	// ClearTx empties the cart within the order transaction.
	ClearTx(ctx context.Context, tx pgx.Tx, customerID string) error
}

// OrderRepository defines order aggregate persistence.
type OrderRepository interface {
	// BeginTx starts the order placement transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateItems inserts the order's snapshot items within the transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIDForCustomer retrieves an order scoped to its owner. Returns nil
	// when the order does not exist or belongs to someone else.
	GetByIDForCustomer(ctx context.Context, id uuid.UUID, customerID string) (*model.Order, error)

	// ListByCustomer returns the customer's orders, newest first, without items.
	ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error)

	// List returns all orders, newest first, without items.
	List(ctx context.Context, limit, offset int) ([]model.Order, error)

	// SetGatewayOrderID stores the gateway intent reference post-commit.
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error

	// SetPaymentResult records the outcome of a payment verification.
	SetPaymentResult(ctx context.Context, id uuid.UUID, status model.PaymentStatus, paymentID, signature string, orderStatus model.OrderStatus) error

	// MarkCancelled moves the order into the cancelled state.
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string, paymentStatus model.PaymentStatus) error

	// UpdateStatus performs an administrative status transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, trackingNumber *string, paymentStatus *model.PaymentStatus) error

	// MarkStockRestored flips the restock guard. False means another caller
	// already restocked this order.
	MarkStockRestored(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete removes the order and its items.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListMissingIntent returns gateway-method pending orders that have no
	// gateway order id yet, oldest first.
	ListMissingIntent(ctx context.Context, limit int) ([]model.Order, error)

	// ListExpiredPending returns gateway-method orders still pending payment
	// that were created before the cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
}

// UserRepository defines the saved-address collaborator surface.
type UserRepository interface {
	// SaveAddress appends a shipping address to the customer's address book.
	SaveAddress(ctx context.Context, customerID string, addr model.ShippingAddress) error
}
