package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

const (
	cacheKeyList   = "oneroot:catalog:regions"
	cacheKeyRegion = "oneroot:catalog:region:"
)

// CachedRepository is a read-through Redis cache in front of another
// repository. Cache errors are logged and the backing repository answers.
type CachedRepository struct {
	next   Repository
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps next. A nil client disables caching.
func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if next == nil {
		panic("catalog: backing repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedRepository) List(ctx context.Context) ([]Region, error) {
	var regions []Region
	if c.get(ctx, cacheKeyList, &regions) {
		return regions, nil
	}
	regions, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKeyList, regions)
	return regions, nil
}

func (c *CachedRepository) GetByID(ctx context.Context, id string) (*Region, error) {
	key := cacheKeyRegion + id
	var region Region
	if c.get(ctx, key, &region) {
		return &region, nil
	}
	found, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, found)
	return found, nil
}

func (c *CachedRepository) get(ctx context.Context, key string, dest any) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("region cache read failed", "error", err, "key", key)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("region cache entry corrupt", "error", err, "key", key)
		return false
	}
	return true
}

func (c *CachedRepository) set(ctx context.Context, key string, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("region cache encode failed", "error", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("region cache write failed", "error", err, "key", key)
	}
}
