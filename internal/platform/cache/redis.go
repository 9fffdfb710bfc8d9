// Package cache evicts dashboard read-models kept in Redis when the sales behind
// them change.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/todaysales-settlement/internal/config"
)

const dashboardKeyPrefix = "dashboard"

// DashboardKey is the cache key of a store's dashboard for one day.
func DashboardKey(storeID string, day time.Time) string {
	return dashboardKeyPrefix + "::" + storeID + "::" + day.Format("2006-01-02")
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(cfg.Addr, "redis://") {
		opt, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

type keyDeleter interface {
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DashboardCache evicts per-store daily dashboards. A cache without a client is
// disabled and evicts nothing.
type DashboardCache struct {
	client keyDeleter
	logger *slog.Logger
}

func NewDashboardCache(logger *slog.Logger, client *redis.Client) *DashboardCache {
	c := &DashboardCache{logger: logger}
	if client != nil {
		c.client = client
	}
	return c
}

// Invalidate removes the dashboards of storeID for the given days.
func (c *DashboardCache) Invalidate(ctx context.Context, storeID string, days ...time.Time) error {
	if c.client == nil || len(days) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(days))
	keys := make([]string, 0, len(days))
	for _, d := range days {
		k := DashboardKey(storeID, d)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache for store %s: %w", storeID, err)
	}
	c.logger.Debug("Invalidated dashboard cache", "store_id", storeID, "keys", keys, "removed", removed)
	return nil
}
