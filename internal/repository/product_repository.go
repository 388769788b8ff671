package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, name, price, stock, created_at, updated_at`

const productNameConstraint = "products_name_key"

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Create inserts a new product.
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	query := `
		INSERT INTO products (id, name, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		product.ID, product.Name, product.Price, product.Stock, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, productNameConstraint) {
			r.logger.Debug().Str("name", product.Name).Msg("duplicate product name")
			return model.NewDuplicateNameError(product.Name)
		}
		r.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Str("product_id", product.ID).Msg("product created successfully")

	return nil
}

// List retrieves every product ordered by creation time.
func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read product rows")
		return nil, err
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// GetByIDs retrieves multiple products keyed by ID.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	if len(ids) == 0 {
		return map[string]model.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read product rows")
		return nil, err
	}

	return indexProducts(products), nil
}

// Update applies the non-nil fields of upd.
func (r *productRepository) Update(ctx context.Context, id string, upd model.ProductUpdate, at time.Time) (*model.Product, error) {
	query := `
		UPDATE products SET
			name = COALESCE($2, name),
			price = COALESCE($3, price),
			stock = COALESCE($4, stock),
			updated_at = $5
		WHERE id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id, upd.Name, upd.Price, upd.Stock, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found for update")
			return nil, nil
		}
		if isUniqueViolation(err, productNameConstraint) {
			return nil, model.NewDuplicateNameError(*upd.Name)
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return p, nil
}

// Delete removes a product and returns it.
func (r *productRepository) Delete(ctx context.Context, id string) (*model.Product, error) {
	query := `DELETE FROM products WHERE id = $1 RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found for delete")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	return p, nil
}

// LockByIDs reads and row-locks the given products inside tx. Rows are
// locked in ascending ID order so concurrent orders touching overlapping
// products cannot deadlock.
func (r *productRepository) LockByIDs(ctx context.Context, tx pgx.Tx, ids []string) (map[string]model.Product, error) {
	if len(ids) == 0 {
		return map[string]model.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, sortedUnique(ids))
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to lock products")
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read locked product rows")
		return nil, err
	}

	return indexProducts(products), nil
}

// AdjustStock adds each delta to the matching product's stock inside tx.
func (r *productRepository) AdjustStock(ctx context.Context, tx pgx.Tx, deltas map[string]int, at time.Time) error {
	if len(deltas) == 0 {
		return nil
	}

	query := `UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1`

	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(query, id, deltas[id], at)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for _, id := range ids {
		tag, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("product_id", id).
				Int("delta", deltas[id]).
				Msg("failed to adjust stock")
			return fmt.Errorf("failed to adjust stock for product %s: %w", id, err)
		}
		if tag.RowsAffected() != 1 {
			return model.NewProductNotFoundError(id)
		}
	}

	r.logger.Debug().Int("count", len(ids)).Msg("stock adjusted")

	return nil
}

func indexProducts(products []model.Product) map[string]model.Product {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
