// Package cache keeps computed diet metrics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-diet-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	metricsKeyPrefix    = "metrics:"
	generationKeyPrefix = "metrics:gen:"
)

// MetricsCache caches per-user metrics. A nil *MetricsCache is a valid,
// always-missing cache.
type MetricsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMetricsCache wraps an existing client
func NewMetricsCache(client *redis.Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{client: client, ttl: ttl}
}

// Connect dials Redis at addr (host:port or redis:// URL) and pings it
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func metricsKey(userID string) string {
	return metricsKeyPrefix + userID
}

func generationKey(userID string) string {
	return generationKeyPrefix + userID
}

// Get returns the cached metrics; ok is false on a miss.
func (c *MetricsCache) Get(ctx context.Context, userID string) (*models.Metrics, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, metricsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached metrics: %w", err)
	}

	var m models.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached metrics: %w", err)
	}
	return &m, true, nil
}

// Generation returns the user's write generation. Every Invalidate bumps it;
// a missing counter reads as zero.
func (c *MetricsCache) Generation(ctx context.Context, userID string) (int64, error) {
	if c == nil {
		return 0, nil
	}

	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read metrics generation: %w", err)
	}
	return gen, nil
}

// SetIfGeneration stores metrics for the configured TTL unless the user's
// generation moved past gen. stored is false when the entry was skipped.
func (c *MetricsCache) SetIfGeneration(ctx context.Context, userID string, gen int64, m *models.Metrics) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("failed to encode metrics: %w", err)
	}

	genKey := generationKey(userID)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, metricsKey(userID), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to cache metrics: %w", err)
	}
	return stored, nil
}

// Invalidate bumps the user's generation and drops the cached metrics
func (c *MetricsCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Del(ctx, metricsKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate metrics: %w", err)
	}
	return nil
}
