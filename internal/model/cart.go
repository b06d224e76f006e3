package model

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single active cart for a customer. It is created lazily on
// the first add and emptied (never deleted) when an order is placed from it.
type Cart struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID string    `json:"customerId" db:"customer_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is a line item in a cart. A cart holds at most one item per
// product; adding the same product again merges quantities.
type CartItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	CartID    uuid.UUID `json:"-" db:"cart_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
}

// AddCartItemRequest is the payload for adding a product to the cart.
type AddCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// UpdateCartItemRequest sets the absolute quantity of a cart line item.
// A quantity of zero removes the item.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the cart view returned to the client, with product
// details joined in for display.
type CartResponse struct {
	Items    []CartItem `json:"items"`
	Products []Product  `json:"products"`
}
