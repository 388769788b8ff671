package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockroom/internal/cache"
	"stockroom/internal/events"
	"stockroom/internal/model"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DefaultTxTimeout bounds a single placement or status change end to end.
const DefaultTxTimeout = 30 * time.Second

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cache       cache.OrderCache
	publisher   events.Publisher
	txTimeout   time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderService creates a new order service. A non-positive txTimeout
// falls back to DefaultTxTimeout.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	orderCache cache.OrderCache,
	publisher events.Publisher,
	txTimeout time.Duration,
	logger zerolog.Logger,
) OrderService {
	if orderCache == nil {
		orderCache = cache.NewNopOrderCache()
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}

	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cache:       orderCache,
		publisher:   publisher,
		txTimeout:   txTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// PlaceOrder validates stock for every line, decrements it and records a
// pending order in one transaction. Either every line is applied or none is.
func (s *orderService) PlaceOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	// A client disconnect must not abort a transaction half way; only the
	// engine's own deadline does.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
	defer cancel()

	tx, err := s.orderRepo.BeginTx(txCtx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, storageFailure("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			s.rollback(txCtx, tx)
		}
	}()

	products, err := s.productRepo.LockByIDs(txCtx, tx, requestedIDs(req.Items))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to lock products")
		return nil, asStorageError("lock products", err)
	}

	now := s.now()
	order, err := buildOrder(req, products, now)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("customer_name", order.CustomerName).
			Msg("order rejected")
		return nil, err
	}

	deltas := make(map[string]int, len(products))
	for _, item := range order.Items {
		deltas[item.ProductID] -= item.Quantity
	}

	if err := s.productRepo.AdjustStock(txCtx, tx, deltas, now); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to decrement stock")
		return nil, asStorageError("decrement stock", err)
	}

	if err := s.orderRepo.CreateOrder(txCtx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, asStorageError("create order", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, storageFailure("commit order", err)
	}
	committed = true

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("customer_name", order.CustomerName).
		Int("item_count", len(order.Items)).
		Str("total_price", order.TotalPrice.String()).
		Msg("order placed")

	s.publisher.Publish(ctx, events.NewOrderPlaced(order))

	return order, nil
}

// GetByID retrieves an order by its ID, reading through the cache for
// orders in a terminal status.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if order, ok := s.cache.Get(ctx, id); ok {
		s.logger.Debug().Str("order_id", id.String()).Msg("order served from cache")
		return order, nil
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, storageFailure("get order", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.NewOrderNotFoundError(id.String())
	}

	// Pending orders can still change; only terminal ones are safe to cache.
	if order.Status.Terminal() {
		s.cache.Set(ctx, order)
	}

	return order, nil
}

// List retrieves every order, newest first.
func (s *orderService) List(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, storageFailure("list orders", err)
	}

	return orders, nil
}

// ListByCustomer retrieves a customer's orders, newest first.
func (s *orderService) ListByCustomer(ctx context.Context, customerName string) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByCustomer(ctx, customerName)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_name", customerName).Msg("failed to list customer orders")
		return nil, storageFailure("list customer orders", err)
	}

	return orders, nil
}

// UpdateStatus transitions an order. Cancelling a pending order restores
// the stock of every line in the same transaction. Setting the current
// status again is a no-op.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, model.NewInvalidStatusError(status)
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
	defer cancel()

	tx, err := s.orderRepo.BeginTx(txCtx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, storageFailure("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			s.rollback(txCtx, tx)
		}
	}()

	order, err := s.orderRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, storageFailure("lock order", err)
	}
	if order == nil {
		return nil, model.NewOrderNotFoundError(id.String())
	}

	from := order.Status
	if from == status {
		s.logger.Debug().
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("status unchanged")
		return order, nil
	}

	if from.Terminal() {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(from)).
			Str("to", string(status)).
			Msg("rejected status transition")
		return nil, model.NewInvalidTransitionError(from, status)
	}

	now := s.now()
	restored := false
	if status == model.OrderStatusCancelled {
		if err := s.restoreStock(txCtx, tx, order, now); err != nil {
			return nil, err
		}
		restored = true
	}

	if err := s.orderRepo.UpdateStatus(txCtx, tx, id, status, now); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, asStorageError("update order status", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit transaction")
		return nil, storageFailure("commit status change", err)
	}
	committed = true

	order.Status = status
	order.UpdatedAt = now
	s.cache.Invalidate(ctx, id)

	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", string(from)).
		Str("to", string(status)).
		Bool("stock_restored", restored).
		Msg("order status changed")

	s.publisher.Publish(ctx, events.NewStatusChanged(order, from, restored))

	return order, nil
}

// restoreStock adds every line's quantity back to its product. A product
// deleted since placement aborts the cancellation.
func (s *orderService) restoreStock(ctx context.Context, tx pgx.Tx, order *model.Order, at time.Time) error {
	deltas := make(map[string]int)
	ids := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if _, seen := deltas[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		deltas[item.ProductID] += item.Quantity
	}

	products, err := s.productRepo.LockByIDs(ctx, tx, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to lock products")
		return asStorageError("lock products", err)
	}

	for _, id := range ids {
		if _, ok := products[id]; !ok {
			s.logger.Warn().
				Str("order_id", order.ID.String()).
				Str("product_id", id).
				Msg("cannot restore stock for deleted product")
			return model.NewProductNotFoundError(id)
		}
	}

	if err := s.productRepo.AdjustStock(ctx, tx, deltas, at); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to restore stock")
		return asStorageError("restore stock", err)
	}

	return nil
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Error().Err(err).Msg("failed to rollback transaction")
	}
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.NewValidationError("order request is required")
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		return model.NewValidationError("customer_name is required")
	}

	if len(req.Items) == 0 {
		return model.NewValidationError("order must contain at least one item")
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return model.NewValidationError(fmt.Sprintf("item %d: product_id is required", i))
		}

		if item.Quantity < 1 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.NewValidationError(fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
	}

	return nil
}

// buildOrder snapshots each requested line against the locked products.
// Lines for the same product are checked against their combined quantity.
// The returned order is non-nil even on error.
func buildOrder(req *model.OrderRequest, products map[string]model.Product, at time.Time) (*model.Order, error) {
	order := &model.Order{
		ID:           uuid.New(),
		CustomerName: strings.TrimSpace(req.CustomerName),
		Status:       model.OrderStatusPending,
		Items:        make([]model.OrderItem, 0, len(req.Items)),
		CreatedAt:    at,
		UpdatedAt:    at,
	}

	requested := make(map[string]int, len(req.Items))
	for i, line := range req.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return order, model.NewProductNotFoundError(line.ProductID)
		}

		requested[line.ProductID] += line.Quantity
		if requested[line.ProductID] > product.Stock {
			return order, &model.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   requested[line.ProductID],
			}
		}

		order.Items = append(order.Items, model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Position:  i,
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
	}

	order.TotalPrice = model.ComputeTotal(order.Items)

	return order, nil
}

// requestedIDs returns the distinct product IDs of items in request order.
func requestedIDs(items []model.OrderItemRequest) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// asStorageError passes domain errors through and wraps everything else.
func asStorageError(op string, err error) error {
	var domainErr *model.DomainError
	var stockErr *model.InsufficientStockError
	if errors.As(err, &domainErr) || errors.As(err, &stockErr) {
		return err
	}
	return storageFailure(op, err)
}

// storageFailure wraps err and flags lock and statement timeouts, deadlocks
// and serialization conflicts as contention.
func storageFailure(op string, err error) error {
	storageErr := model.NewStorageError(op, err)
	storageErr.Contention = repository.IsContention(err)
	return storageErr
}
