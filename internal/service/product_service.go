package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockroom/internal/model"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// Create validates and inserts a new product. Stock defaults to zero.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	if err := validateProductRequest(req); err != nil {
		s.logger.Debug().Err(err).Msg("invalid product request")
		return nil, err
	}

	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}

	now := s.now()
	product := &model.Product{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     *req.Price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, model.ErrDuplicateName) {
			s.logger.Warn().Str("name", product.Name).Msg("product name already exists")
			return nil, err
		}
		s.logger.Error().Err(err).Str("name", product.Name).Msg("failed to create product")
		return nil, model.NewStorageError("create product", err)
	}

	s.logger.Info().
		Str("product_id", product.ID).
		Str("name", product.Name).
		Int("stock", product.Stock).
		Msg("product created")

	return product, nil
}

// List retrieves every product.
func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, model.NewStorageError("list products", err)
	}

	s.logger.Debug().Int("count", len(products)).Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, model.NewStorageError("get product", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.NewProductNotFoundError(id)
	}

	return product, nil
}

// GetByIDs retrieves multiple products keyed by ID.
func (s *productService) GetByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	if len(ids) == 0 {
		return map[string]model.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to get products by IDs")
		return nil, model.NewStorageError("get products", err)
	}

	s.logger.Debug().
		Int("requested", len(ids)).
		Int("found", len(products)).
		Msg("retrieved products by IDs")

	return products, nil
}

// Update applies a partial update to a product.
func (s *productService) Update(ctx context.Context, id string, upd *model.ProductUpdate) (*model.Product, error) {
	if err := validateProductUpdate(upd); err != nil {
		s.logger.Debug().Err(err).Str("product_id", id).Msg("invalid product update")
		return nil, err
	}

	product, err := s.productRepo.Update(ctx, id, *upd, s.now())
	if err != nil {
		if errors.Is(err, model.ErrDuplicateName) {
			s.logger.Warn().Str("product_id", id).Msg("product name already exists")
			return nil, err
		}
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		return nil, model.NewStorageError("update product", err)
	}

	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}

	s.logger.Info().Str("product_id", id).Msg("product updated")

	return product, nil
}

// Delete removes a product and returns it. Orders that reference it keep
// their snapshot.
func (s *productService) Delete(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return nil, model.NewStorageError("delete product", err)
	}

	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}

	s.logger.Info().Str("product_id", id).Msg("product deleted")

	return product, nil
}

func validateProductRequest(req *model.ProductRequest) error {
	if req == nil {
		return model.NewValidationError("product request is required")
	}

	if strings.TrimSpace(req.Name) == "" {
		return model.NewValidationError("name is required")
	}

	if req.Price == nil {
		return model.NewValidationError("price is required")
	}

	if req.Price.IsNegative() {
		return model.NewValidationError("price must be greater than or equal to zero")
	}

	if req.Stock != nil && *req.Stock < 0 {
		return model.NewValidationError("stock must be greater than or equal to zero")
	}

	return nil
}

func validateProductUpdate(upd *model.ProductUpdate) error {
	if upd == nil || upd.IsEmpty() {
		return model.NewValidationError("at least one of name, price or stock is required")
	}

	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return model.NewValidationError("name must not be empty")
	}

	if upd.Price != nil && upd.Price.IsNegative() {
		return model.NewValidationError("price must be greater than or equal to zero")
	}

	if upd.Stock != nil && *upd.Stock < 0 {
		return model.NewValidationError(fmt.Sprintf("stock must be greater than or equal to zero, got %d", *upd.Stock))
	}

	return nil
}
