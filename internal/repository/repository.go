package repository

import (
	"context"
	"time"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for catalogue data access operations.
type ProductRepository interface {
	// Create inserts a new product. Returns a DUPLICATE_NAME domain error
	// when the name is already taken.
	Create(ctx context.Context, product *model.Product) error

	// List retrieves every product ordered by creation time.
	List(ctx context.Context) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products keyed by ID. Missing IDs are
	// simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Product, error)

	// Update applies the non-nil fields of upd. Returns nil when absent.
	Update(ctx context.Context, id string, upd model.ProductUpdate, at time.Time) (*model.Product, error)

	// Delete removes a product and returns it. Returns nil when absent.
	Delete(ctx context.Context, id string) (*model.Product, error)

	// LockByIDs reads and row-locks the given products inside tx, in
	// ascending ID order.
	LockByIDs(ctx context.Context, tx pgx.Tx, ids []string) (map[string]model.Product, error)

	// AdjustStock adds each delta to the matching product's stock inside tx.
	AdjustStock(ctx context.Context, tx pgx.Tx, deltas map[string]int, at time.Time) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction with bounded lock and
	// statement timeouts.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts an order and its item snapshots within tx.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByID retrieves an order with its items. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIDForUpdate retrieves and row-locks an order within tx.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// List retrieves every order, newest first.
	List(ctx context.Context) ([]model.Order, error)

	// ListByCustomer retrieves a customer's orders, newest first. Returns an
	// empty slice when none match.
	ListByCustomer(ctx context.Context, customerName string) ([]model.Order, error)

	// UpdateStatus sets the order's status within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, at time.Time) error
}
