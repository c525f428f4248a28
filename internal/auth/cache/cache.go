// Package cache holds short-lived state the authorization server must share
// between replicas: WebAuthn challenges, MFA codes, idempotent responses and
// reference access tokens. Redis is the only backend; an in-process
// miniredis stands in when no address is configured.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache: miss")

const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	connectAttempts = 5
)

// Cache is the subset of key/value operations the services need.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteIfEqual removes key only while it still holds value. Exactly one
	// of several concurrent callers sees true.
	DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis implements Cache on a go-redis client.
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	embedded *miniredis.Miniredis
}

// New connects to cfg.Addr, retrying the initial ping with exponential
// backoff. An empty address starts an embedded miniredis instead, which is
// only suitable for a single process.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		logger.Warn("REDIS_ADDR not set, using embedded in-memory redis", "addr", mr.Addr())
		c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg.Prefix)
		c.embedded = mr
		return c, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(connectAttempts),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warn("redis not ready, retrying", "addr", cfg.Addr, "in", d, "error", err)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client. Tests use it with miniredis.
func NewWithClient(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Client exposes the underlying connection so the event bus can share it.
func (r *Redis) Client() redis.UniversalClient { return r.client }

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

var deleteIfEqual = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *Redis) DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := deleteIfEqual.Run(ctx, r.client, []string{r.key(key)}, value).Int()
	if err != nil {
		return false, fmt.Errorf("cache delete-if-equal %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	err := r.client.Close()
	if r.embedded != nil {
		r.embedded.Close()
	}
	return err
}

// GetResponse and PutResponse let the idempotency middleware store replies.
func (r *Redis) GetResponse(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) PutResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.Set(ctx, key, data, ttl)
}
