package service

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for catalogue management.
type ProductService interface {
	// Create validates and inserts a new product.
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)

	// List retrieves every product.
	List(ctx context.Context) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products keyed by ID.
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Product, error)

	// Update applies a partial update to a product.
	Update(ctx context.Context, id string, upd *model.ProductUpdate) (*model.Product, error)

	// Delete removes a product and returns it.
	Delete(ctx context.Context, id string) (*model.Product, error)
}

// OrderService defines operations for order placement and lifecycle.
type OrderService interface {
	// PlaceOrder validates stock for every line, decrements it and records
	// a pending order, all in one transaction.
	PlaceOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List retrieves every order, newest first.
	List(ctx context.Context) ([]model.Order, error)

	// ListByCustomer retrieves a customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerName string) ([]model.Order, error)

	// UpdateStatus transitions an order, restoring stock on cancellation,
	// in one transaction.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
}
