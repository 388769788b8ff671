package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, customer_name, total_price, status, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	txOpts TxOptions
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, txOpts TxOptions, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		txOpts: txOpts,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := beginTx(ctx, r.pool, r.txOpts)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, err
	}
	return tx, nil
}

// CreateOrder inserts an order and its item snapshots within tx.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	orderQuery := `
		INSERT INTO orders (id, customer_name, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, orderQuery,
		order.ID, order.CustomerName, order.TotalPrice, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if len(order.Items) == 0 {
		return nil
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, position, product_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(itemQuery, item.ID, order.ID, item.Position, item.ProductID, item.Name, item.Price, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for _, item := range order.Items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("product_id", item.ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orders := []model.Order{*order}
	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// GetByIDForUpdate retrieves and row-locks an order within tx.
func (r *orderRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	orders := []model.Order{*order}
	if err := r.attachItems(ctx, tx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// List retrieves every order, newest first.
func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	return r.listOrders(ctx, query)
}

// ListByCustomer retrieves a customer's orders, newest first.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerName string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_name = $1 ORDER BY created_at DESC, id`
	return r.listOrders(ctx, query, customerName)
}

// UpdateStatus sets the order's status within tx.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, at time.Time) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, status, at)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() != 1 {
		return model.NewOrderNotFoundError(id.String())
	}

	return nil
}

// querier is the read surface shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the item snapshots for every order in one query.
func (r *orderRepository) attachItems(ctx context.Context, q querier, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID.String()
		index[orders[i].ID] = i
		orders[i].Items = make([]model.OrderItem, 0)
	}

	query := `
		SELECT id, order_id, position, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(orders)).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.Position, &item.ProductID, &item.Name, &item.Price, &item.Quantity)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	if err := row.Scan(&o.ID, &o.CustomerName, &o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
