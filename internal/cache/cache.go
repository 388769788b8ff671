// Package cache keeps a read-through copy of single orders in Redis.
// The database stays the source of truth; cache failures are logged and
// treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyOrder maps stockroom:order:{id} to the JSON encoded order.
const keyOrder = "stockroom:order:%s"

// OrderCache stores orders by ID.
type OrderCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Order, bool)
	Set(ctx context.Context, order *model.Order)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type redisOrderCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisClient creates a Redis client with short dial and I/O timeouts.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewRedisOrderCache creates an OrderCache backed by client.
func NewRedisOrderCache(client redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) OrderCache {
	return &redisOrderCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "order-cache").Logger(),
	}
}

func orderKey(id uuid.UUID) string {
	return fmt.Sprintf(keyOrder, id.String())
}

func (c *redisOrderCache) Get(ctx context.Context, id uuid.UUID) (*model.Order, bool) {
	raw, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("order_id", id.String()).Msg("failed to read cached order")
		}
		return nil, false
	}

	var order model.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		c.logger.Warn().Err(err).Str("order_id", id.String()).Msg("discarding undecodable cached order")
		c.Invalidate(ctx, id)
		return nil, false
	}

	return &order, true
}

func (c *redisOrderCache) Set(ctx context.Context, order *model.Order) {
	raw, err := json.Marshal(order)
	if err != nil {
		c.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to encode order for cache")
		return
	}

	if err := c.client.Set(ctx, orderKey(order.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to cache order")
	}
}

func (c *redisOrderCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, orderKey(id)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("order_id", id.String()).Msg("failed to invalidate cached order")
	}
}

type nopOrderCache struct{}

// NewNopOrderCache returns an OrderCache that never stores anything.
func NewNopOrderCache() OrderCache {
	return nopOrderCache{}
}

func (nopOrderCache) Get(context.Context, uuid.UUID) (*model.Order, bool) { return nil, false }

func (nopOrderCache) Set(context.Context, *model.Order) {}

func (nopOrderCache) Invalidate(context.Context, uuid.UUID) {}
