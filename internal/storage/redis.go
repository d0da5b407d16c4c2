package storage

import (
	"context"
	"fmt"
	"time"

	"lights-api/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements domain.RateLimitStore on Redis. Counters carry a
// TTL equal to the window, so Redis expires them on its own and Sweep is
// a no-op. One instance per process; this is still a single-instance
// limiter, not distributed coordination.
type RedisStore struct {
	client redis.Cmdable
	logger domain.Logger
}

// checkScript performs the fixed-window check atomically: a counter at
// its limit is read but never incremented; a fresh counter gets the
// window as TTL.
var checkScript = redis.NewScript(`
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	if current >= limit then
		return {current, redis.call('PTTL', KEYS[1]), 0}
	end

	current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], window)
	end
	return {current, redis.call('PTTL', KEYS[1]), 1}
`)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(host, port, password string, db int, logger domain.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger != nil {
		logger.Info("Redis connection established", map[string]interface{}{
			"host": host,
			"port": port,
			"db":   db,
		})
	}

	return &RedisStore{
		client: rdb,
		logger: logger,
	}, nil
}

// Check runs the fixed-window script for key.
func (r *RedisStore) Check(ctx context.Context, key string, limit int, window time.Duration) (*domain.RateLimitResult, error) {
	storageKey := "lights:rate_limit:" + key

	raw, err := checkScript.Run(ctx, r.client, []string{storageKey},
		limit, window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script for key %s: %w", key, err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script result for key %s: %v", key, raw)
	}

	count := int(values[0].(int64))
	ttlMillis := values[1].(int64)
	allowed := values[2].(int64) == 1

	resetTime := time.Now().Add(window)
	if ttlMillis > 0 {
		resetTime = time.Now().Add(time.Duration(ttlMillis) * time.Millisecond)
	}

	remaining := limit - count
	if remaining < 0 || !allowed {
		remaining = 0
	}

	return &domain.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}, nil
}

// Sweep is a no-op: Redis expires counters via their TTL.
func (r *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Health pings Redis.
func (r *RedisStore) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close shuts the client down when it owns a real connection.
func (r *RedisStore) Close() error {
	if closer, ok := r.client.(*redis.Client); ok {
		return closer.Close()
	}
	return nil
}
