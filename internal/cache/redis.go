// Package cache keeps the polled order status and the webhook dedup markers in Redis.
// Redis is never the source of truth: every miss or failure falls back to the store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

// NewClient accepts either a redis:// URL or a bare host:port.
func NewClient(addr string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}), nil
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) GetOrderStatus(ctx context.Context, orderID string) (*models.OrderStatusView, bool) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			telemetry.Logger.Warn("Order status cache read failed", zap.String("order_id", orderID), zap.Error(err))
		}
		return nil, false
	}
	var view models.OrderStatusView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (c *RedisCache) SetOrderStatus(ctx context.Context, view *models.OrderStatusView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyOrderStatus, view.OrderID), raw, TTLStatusCache).Err()
}

func (c *RedisCache) InvalidateOrderStatus(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// Seen treats an unreachable Redis as "not seen"; the conditional updates still
// keep a replay harmless.
func (c *RedisCache) Seen(ctx context.Context, key string) bool {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf(KeyDedup, dedupScopeWebhook, key)).Result()
	if err != nil {
		telemetry.Logger.Warn("Dedup lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return n > 0
}

func (c *RedisCache) MarkSeen(ctx context.Context, key string) error {
	return c.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, dedupScopeWebhook, key), "1", TTLDedup).Err()
}
