package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merchkit/merchsync/internal/domain/model"
)

// EstimateCache caches upstream order-count estimates in Redis so repeated
// strategy decisions for the same window do not hammer the rate-limited API.
type EstimateCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

const defaultEstimateTTL = 10 * time.Minute

// NewEstimateCache creates an EstimateCache with the given Redis client.
// A non-positive TTL falls back to the default.
func NewEstimateCache(client redis.UniversalClient, ttl time.Duration) *EstimateCache {
	if ttl <= 0 {
		ttl = defaultEstimateTTL
	}
	return &EstimateCache{client: client, ttl: ttl}
}

func estimateKey(shop string, start, end time.Time) string {
	return "merchsync:estimate:" + shop + ":" +
		start.UTC().Format(model.DateLayout) + ":" +
		end.UTC().Format(model.DateLayout)
}

// Get returns the cached estimate for a shop window. The second return value
// is false on a cache miss.
func (c *EstimateCache) Get(ctx context.Context, shop string, start, end time.Time) (int, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}
	if shop == "" {
		return 0, false, errors.New("shop cannot be empty")
	}

	raw, err := c.client.Get(ctx, estimateKey(shop, start, end)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get estimate: %w", err)
	}

	n, convErr := strconv.Atoi(raw)
	if convErr != nil {
		// Stale or corrupt entry. Treat as a miss so it gets rewritten.
		return 0, false, nil
	}
	return n, true, nil
}

// Set stores an estimate for a shop window.
func (c *EstimateCache) Set(ctx context.Context, shop string, start, end time.Time, estimate int) error {
	if c == nil || c.client == nil {
		return nil
	}
	if shop == "" {
		return errors.New("shop cannot be empty")
	}

	if err := c.client.Set(ctx, estimateKey(shop, start, end), strconv.Itoa(estimate), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set estimate: %w", err)
	}
	return nil
}

// Invalidate drops the cached estimate for a shop window.
func (c *EstimateCache) Invalidate(ctx context.Context, shop string, start, end time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, estimateKey(shop, start, end)).Err(); err != nil {
		return fmt.Errorf("redis del estimate: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (c *EstimateCache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("estimate cache not configured")
	}
	return c.client.Ping(ctx).Err()
}
