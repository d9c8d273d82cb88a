package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/oneroot-leads/internal/config"
	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// LocalStore is the selected key-value store for session state and
// fallback leads. File is set only for the file driver, which is the one
// that can be watched for writes from other processes.
type LocalStore struct {
	Store  localstore.Store
	File   *localstore.FileStore
	Driver string
}

// BuildLocalStore selects the local store from LOCAL_STORE_DRIVER. The redis
// driver falls back to memory when no client is available.
func BuildLocalStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (LocalStore, error) {
	if cfg == nil {
		return LocalStore{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.LocalStoreDriver {
	case "", "file":
		fs, err := localstore.NewFileStore(cfg.LocalStorePath, logger)
		if err != nil {
			return LocalStore{}, fmt.Errorf("bootstrap: open local store: %w", err)
		}
		logger.Info("local store ready", "driver", "file", "path", cfg.LocalStorePath)
		return LocalStore{Store: fs, File: fs, Driver: "file"}, nil
	case "redis":
		if redisClient == nil {
			logger.Warn("redis local store requested but redis unavailable; using memory")
			return LocalStore{Store: localstore.NewMemoryStore(), Driver: "memory"}, nil
		}
		logger.Info("local store ready", "driver", "redis")
		return LocalStore{Store: localstore.NewRedisStore(redisClient), Driver: "redis"}, nil
	case "memory":
		logger.Warn("local store is in-memory; fallback leads will not survive a restart")
		return LocalStore{Store: localstore.NewMemoryStore(), Driver: "memory"}, nil
	default:
		return LocalStore{}, fmt.Errorf("bootstrap: unknown local store driver %q", cfg.LocalStoreDriver)
	}
}
