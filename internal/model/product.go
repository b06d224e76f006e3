package model

import "time"

// Product represents a jewelry item in the catalogue. Stock and IsActive
// form the inventory ledger view consumed by the order pipeline.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Price       float64   `json:"price" db:"price"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Stock       int       `json:"stock" db:"stock"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
