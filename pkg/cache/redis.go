package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/logging"
	"github.com/Combine-Capital/tsqi/pkg/retry"
	"github.com/Combine-Capital/tsqi/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// RedisPlugin implements Plugin using Redis as the backend.
type RedisPlugin struct {
	client *redis.Client
	cfg    config.CacheConfig
	log    *logging.Logger
}

// NewRedis creates a new Redis cache plugin with the given configuration.
// It accepts context for cancellation during connection establishment.
func NewRedis(ctx context.Context, cfg config.CacheConfig) (*RedisPlugin, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}

	client := redis.NewClient(opts)

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewTemporary("failed to connect to Redis", err)
	}

	return &RedisPlugin{
		client: client,
		cfg:    cfg,
		log:    pluginLogger("redis"),
	}, nil
}

// Name returns the backend's registry name.
func (r *RedisPlugin) Name() string {
	return "redis"
}

// Fetch starts an asynchronous GET for key and returns its handle.
func (r *RedisPlugin) Fetch(ctx context.Context, key []byte, span trace.Span) *Fetch {
	fctx, cancel := context.WithCancel(ctx)
	fetch := NewFetch(cancel)
	redisKey := EncodeKey(r.cfg.KeyPrefix, key)

	go func() {
		sctx, fetchSpan := tracing.StartSpanWithParent(fctx, span, "cache.fetch")
		defer fetchSpan.End()

		data, err := r.client.Get(sctx, redisKey).Bytes()
		switch {
		case err == redis.Nil:
			tracing.SetSpanAttributes(sctx, tracing.CacheAttributes("redis", "fetch", redisKey, false)...)
			fetch.Callback(nil)
		case err != nil:
			tracing.SetSpanError(sctx, err)
			fetch.Errback(errors.NewTemporary("redis fetch failed", err))
		default:
			tracing.SetSpanAttributes(sctx, tracing.CacheAttributes("redis", "fetch", redisKey, true)...)
			fetch.Callback(data)
		}
	}()

	return fetch
}

// Cache stores value under key with the given TTL. The write happens in the
// background with retries on temporary failures; terminal failures are
// logged and absorbed.
func (r *RedisPlugin) Cache(key, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	redisKey := EncodeKey(r.cfg.KeyPrefix, key)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout+time.Second)
		defer cancel()

		err := retry.Do(ctx, retry.Config{MaxAttempts: 3}, func() error {
			if err := r.client.Set(ctx, redisKey, value, ttl).Err(); err != nil {
				return errors.NewTemporary("redis set failed", err)
			}
			return nil
		})
		if err != nil {
			r.log.Warn().Str(logging.CacheKey, redisKey).Err(err).Msg("cache populate dropped")
		}
	}()
}

// CheckHealth verifies cache connectivity using Redis PING command.
func (r *RedisPlugin) CheckHealth(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewTemporary("Redis health check failed", err)
	}
	return nil
}

// Check implements the health.Checker interface for the Redis plugin.
func (r *RedisPlugin) Check(ctx context.Context) error {
	return r.CheckHealth(ctx)
}

// Close releases all resources associated with the plugin.
func (r *RedisPlugin) Close() error {
	return r.client.Close()
}
