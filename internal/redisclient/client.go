package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client is a read cache for catalog and stock lookups. It is never the
// source of truth: a miss or a Redis failure falls through to the store.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis cache client
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ProductKey returns the cache key for a product
func ProductKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// WarehouseKey returns the cache key for a warehouse
func WarehouseKey(warehouseID int64) string {
	return fmt.Sprintf("warehouse:%d", warehouseID)
}

// StockKey returns the cache key for a (product, warehouse) counter
func StockKey(productID, warehouseID int64) string {
	return fmt.Sprintf("stock:%d:%d", productID, warehouseID)
}

// Get loads a cached value into dest. Returns false on a miss.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	return true, nil
}

// Set caches a value under key with the configured TTL.
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops one or more cached keys.
func (c *Client) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
