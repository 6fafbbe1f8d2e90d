package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"foodies-telegram/logger"
	"foodies-telegram/models"

	"github.com/go-redis/redis/v8"
)

const catalogKey = "foodies:catalog:foods"

// CatalogSource lists the purchasable foods in display order.
type CatalogSource interface {
	Foods(ctx context.Context) ([]models.FoodItem, error)
}

// NewRedisClient connects to REDIS_URL and pings it.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// CatalogCache serves the catalog from Redis and falls back to the backend on a miss.
// Redis errors are logged and never fail a lookup.
type CatalogCache struct {
	source CatalogSource
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewCatalogCache(source CatalogSource, client *redis.Client, ttl time.Duration, log *slog.Logger) *CatalogCache {
	return &CatalogCache{source: source, client: client, ttl: ttl, log: logger.OrDefault(log)}
}

func (c *CatalogCache) Foods(ctx context.Context) ([]models.FoodItem, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	switch {
	case err == nil:
		var foods []models.FoodItem
		if err := json.Unmarshal(data, &foods); err == nil {
			return foods, nil
		}
		c.log.Warn("dropping unreadable cached catalog")
	case err != redis.Nil:
		c.log.Warn("catalog cache read failed", "error", err)
	}

	foods, err := c.source.Foods(ctx)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(foods)
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		c.log.Warn("catalog cache write failed", "error", err)
	}
	return foods, nil
}

// Invalidate drops the cached catalog so the next lookup hits the backend.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}
