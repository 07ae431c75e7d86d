package counter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implements Store on top of Redis.
//
// WHY REDIS?
// - Atomic single-operation primitives (INCRBY, HINCRBY, Lua scripts)
// - Per-key expiry gives us rate-limit windows for free
// - Shared across all server instances (distributed counters)
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed counter store
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

// initDecrScript initializes the key to capacity with a TTL when absent,
// then decrements. Running as a single Lua script makes the
// check-and-decrement atomic: two concurrent callers can never both
// observe the same token.
var initDecrScript = redis.NewScript(`
	local exists = redis.call('EXISTS', KEYS[1])
	if exists == 0 then
		redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
	end
	return redis.call('DECR', KEYS[1])
`)

// decrOrRemoveScript decrements a hash field by the flushed amount and
// deletes the field only when nothing is left pending.
var decrOrRemoveScript = redis.NewScript(`
	local left = redis.call('HINCRBY', KEYS[1], ARGV[1], -ARGV[2])
	if left <= 0 then
		redis.call('HDEL', KEYS[1], ARGV[1])
	end
	return left
`)

func (s *redisStore) InitDecr(ctx context.Context, key string, capacity int64, ttl time.Duration) (int64, error) {
	result, err := initDecrScript.Run(ctx, s.client, []string{key}, capacity, int(ttl.Seconds())).Int64()
	if err != nil {
		return 0, fmt.Errorf("init-decr failed for %q: %w", key, err)
	}
	return result, nil
}

func (s *redisStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	value, err := s.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("hincrby failed for %q/%q: %w", key, field, err)
	}
	return value, nil
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire failed for %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) HScan(ctx context.Context, key string, cursor uint64, count int64) ([]Pending, uint64, error) {
	// HSCAN returns fields and values interleaved
	pairs, next, err := s.client.HScan(ctx, key, cursor, "", count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("hscan failed for %q: %w", key, err)
	}

	pending := make([]Pending, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		delta, err := strconv.ParseInt(pairs[i+1], 10, 64)
		if err != nil {
			// A non-numeric field means someone wrote garbage into the
			// counter hash; skip it rather than abort the whole scan
			continue
		}
		pending = append(pending, Pending{Key: pairs[i], Delta: delta})
	}

	return pending, next, nil
}

func (s *redisStore) HDecrOrRemove(ctx context.Context, key, field string, delta int64) error {
	if err := decrOrRemoveScript.Run(ctx, s.client, []string{key}, field, delta).Err(); err != nil {
		return fmt.Errorf("decr-or-remove failed for %q/%q: %w", key, field, err)
	}
	return nil
}

// InitRedis creates a new Redis client and verifies connectivity
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
