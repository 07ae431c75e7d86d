package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache provides caching operations using Redis
// This implements the CACHE-ASIDE PATTERN:
// 1. Check cache first
// 2. If miss, get from database
// 3. Store in cache for next time
//
// Two namespaces live here: resolved URLs ("u:{key}") and rendered QR
// images ("qr:{key}"). The counter namespaces (rate-limit tokens,
// pending click deltas) are owned by internal/counter, never by the cache.
type Cache struct {
	client *redis.Client
	urlTTL time.Duration
	qrTTL  time.Duration
}

// NewCache creates a new Redis cache
func NewCache(client *redis.Client, urlTTL, qrTTL time.Duration) *Cache {
	return &Cache{
		client: client,
		urlTTL: urlTTL,
		qrTTL:  qrTTL,
	}
}

// GetURL retrieves a URL from cache
// Returns nil if not found (cache miss)
func (c *Cache) GetURL(ctx context.Context, shortKey string) (*domain.URL, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	key := fmt.Sprintf("u:%s", shortKey)

	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Cache miss - not an error, just not found
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	metrics.RecordCacheHit()

	var url domain.URL
	if err := json.Unmarshal([]byte(data), &url); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached URL: %w", err)
	}

	return &url, nil
}

// SetURL stores a URL in cache
func (c *Cache) SetURL(ctx context.Context, shortKey string, url *domain.URL) error {
	key := fmt.Sprintf("u:%s", shortKey)

	data, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("failed to marshal URL: %w", err)
	}

	// TTL ensures cache doesn't grow indefinitely and stale data is removed
	if err := c.client.Set(ctx, key, data, c.urlTTL).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// DeleteURL removes a URL (and its QR image) from cache
// Used when a URL is deleted
func (c *Cache) DeleteURL(ctx context.Context, shortKey string) error {
	keys := []string{
		fmt.Sprintf("u:%s", shortKey),
		fmt.Sprintf("qr:%s", shortKey),
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

// GetQR retrieves a cached QR code PNG
// Returns nil on cache miss
func (c *Cache) GetQR(ctx context.Context, shortKey string) ([]byte, error) {
	key := fmt.Sprintf("qr:%s", shortKey)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	metrics.RecordCacheHit()
	return data, nil
}

// SetQR caches a rendered QR code PNG
func (c *Cache) SetQR(ctx context.Context, shortKey string, png []byte) error {
	key := fmt.Sprintf("qr:%s", shortKey)

	if err := c.client.Set(ctx, key, png, c.qrTTL).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}
