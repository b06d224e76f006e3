package model

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeEmptyCart        = "EMPTY_CART"
	ErrCodeInventory        = "INVENTORY_ERROR"
	ErrCodeOrderNotFound    = "ORDER_NOT_FOUND"
	ErrCodeProductNotFound  = "PRODUCT_NOT_FOUND"
	ErrCodeCartItemNotFound = "CART_ITEM_NOT_FOUND"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeInvalidQuantity  = "INVALID_QUANTITY"
	ErrCodeInvalidCoupon    = "INVALID_COUPON"
	ErrCodeUnauthorised     = "UNAUTHORIZED"
	ErrCodeGateway          = "GATEWAY_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// DomainError is a business rule violation recovered locally.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a domain error for malformed input.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Common domain errors
var (
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrProductUnavailable   = NewDomainError(ErrCodeProductNotFound, "Product is not available")
	ErrCartItemNotFound     = NewDomainError(ErrCodeCartItemNotFound, "Item is not in the cart")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeValidation, "Payment method must be one of gateway, cod or upi")
	ErrInvalidOrderStatus   = NewDomainError(ErrCodeValidation, "Unknown order status")
	ErrCannotCancel         = NewDomainError(ErrCodeInvalidState, "Order cannot be cancelled at this stage")
	ErrOrderCancelled       = NewDomainError(ErrCodeInvalidState, "Order is cancelled")
	ErrInvalidTransition    = NewDomainError(ErrCodeInvalidState, "Illegal order status transition")
	ErrInvalidCouponCode    = NewDomainError(ErrCodeInvalidCoupon, "Coupon code is not valid")
	ErrInvalidCouponLength  = NewDomainError(ErrCodeInvalidCoupon, "Coupon code must be between 6 and 12 characters")
)

// InventoryError aborts an order placement and carries the full list of
// violating items so the caller gets a complete picture in one round trip.
type InventoryError struct {
	Violations []string
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("inventory check failed: %s", strings.Join(e.Violations, "; "))
}

// GatewayError wraps a payment gateway transport or provider failure.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
