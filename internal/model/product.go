package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents an item in the catalogue.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductRequest represents the request payload for creating a product.
// Pointer fields distinguish "missing" from the zero value.
type ProductRequest struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

// ProductUpdate represents a partial product update. Nil fields are left
// unchanged.
type ProductUpdate struct {
	Name  *string          `json:"name,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Price == nil && u.Stock == nil
}
