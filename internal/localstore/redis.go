package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	redisKeyPrefix  = "oneroot:local:"
	redisListPrefix = "oneroot:list:"
)

// RedisStore keeps the key/value surface in Redis so several API instances
// share session state.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisStore returns nil when no client is configured.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("oneroot.internal.localstore.redis"),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.redis == nil {
		return "", false, ErrClosed
	}
	ctx, span := s.tracer.Start(ctx, "localstore.redis.get", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	val, err := s.redis.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("localstore: redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if s == nil || s.redis == nil {
		return ErrClosed
	}
	ctx, span := s.tracer.Start(ctx, "localstore.redis.set", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if err := s.redis.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("localstore: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, key, value string) error {
	if s == nil || s.redis == nil {
		return ErrClosed
	}
	ctx, span := s.tracer.Start(ctx, "localstore.redis.append", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if err := s.redis.RPush(ctx, redisListPrefix+key, value).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("localstore: redis append %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, key string) ([]string, error) {
	if s == nil || s.redis == nil {
		return nil, ErrClosed
	}
	ctx, span := s.tracer.Start(ctx, "localstore.redis.list", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	vals, err := s.redis.LRange(ctx, redisListPrefix+key, 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("localstore: redis list %s: %w", key, err)
	}
	return vals, nil
}
