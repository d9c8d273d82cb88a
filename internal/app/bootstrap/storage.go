package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/oneroot-leads/internal/catalog"
	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// ConnectPostgresPool opens and pings a pool. It returns nil when url is
// empty or the database is unreachable.
func ConnectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildLeadRemote returns the hosted lead table. Without a database every
// remote call fails and leads go to the local fallback.
func BuildLeadRemote(pool *pgxpool.Pool, logger *logging.Logger) leads.RemoteStore {
	if pool == nil {
		if logger != nil {
			logger.Warn("no database configured; leads will be kept in the local fallback store")
		}
		return leads.UnavailableRemote{}
	}
	return leads.NewPostgresRepository(pool)
}

// BuildRegionRepository returns the region catalog, read through Redis when
// a client is available.
func BuildRegionRepository(pool *pgxpool.Pool, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) catalog.Repository {
	var repo catalog.Repository
	if pool != nil {
		repo = catalog.NewPostgresRepository(pool)
	} else {
		repo = catalog.NewInMemoryRepository()
	}
	if redisClient == nil {
		return repo
	}
	return catalog.NewCachedRepository(repo, redisClient, ttl, logger)
}
