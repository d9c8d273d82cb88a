package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/oneroot-leads/internal/catalog"
	appconfig "github.com/wolfman30/oneroot-leads/internal/config"
	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/internal/notify"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifiesPing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client once redis is down")
	}
}

func TestBuildLocalStoreDrivers(t *testing.T) {
	logger := logging.New("error")

	t.Run("file", func(t *testing.T) {
		cfg := &appconfig.Config{LocalStoreDriver: "file", LocalStorePath: filepath.Join(t.TempDir(), "nested", "store.json")}
		ls, err := BuildLocalStore(cfg, nil, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ls.File == nil || ls.Driver != "file" {
			t.Fatalf("expected file store, got %#v", ls)
		}
		if err := ls.Store.Set(context.Background(), "k", "v"); err != nil {
			t.Fatalf("set: %v", err)
		}
	})

	t.Run("redis falls back to memory", func(t *testing.T) {
		ls, err := BuildLocalStore(&appconfig.Config{LocalStoreDriver: "redis"}, nil, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ls.Driver != "memory" || ls.File != nil {
			t.Fatalf("expected memory fallback, got %#v", ls)
		}
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, false)
		t.Cleanup(func() { _ = client.Close() })

		ls, err := BuildLocalStore(&appconfig.Config{LocalStoreDriver: "redis"}, client, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ls.Driver != "redis" {
			t.Fatalf("expected redis driver, got %q", ls.Driver)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := BuildLocalStore(&appconfig.Config{LocalStoreDriver: "etcd"}, nil, logger); err == nil {
			t.Fatalf("expected error for unknown driver")
		}
	})
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := ConnectPostgresPool(context.Background(), "", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestBuildLeadRemoteWithoutPoolFallsBackLocally(t *testing.T) {
	ctx := context.Background()
	logger := logging.New("error")
	remote := BuildLeadRemote(nil, logger)

	if err := remote.Insert(ctx, &leads.Lead{PhoneNumber: "+919876543210"}); !errors.Is(err, leads.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if _, err := remote.ExistsByPhone(ctx, "+919876543210"); !errors.Is(err, leads.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}

	fallback := leads.NewFallbackStore(localstore.NewMemoryStore(), logger, nil)
	coord := leads.NewCoordinator(leads.CoordinatorConfig{
		Remote:   remote,
		Fallback: fallback,
		Logger:   logger,
	})
	receipt, err := coord.Submit(ctx, leads.SubmitRequest{Phone: "9876543210"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Durability != leads.DurabilityLocal {
		t.Fatalf("expected local durability, got %s", receipt.Durability)
	}
	all, err := fallback.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(all) != 1 || all[0].PhoneNumber != "+919876543210" {
		t.Fatalf("expected the lead in the fallback store, got %+v", all)
	}
	if !coord.Exists(ctx, "9876543210") {
		t.Fatalf("expected exists to find the local lead")
	}
}

func TestBuildRegionRepository(t *testing.T) {
	if _, ok := BuildRegionRepository(nil, nil, time.Minute, nil).(*catalog.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory catalog without pool or redis")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	t.Cleanup(func() { _ = client.Close() })
	if _, ok := BuildRegionRepository(nil, client, time.Minute, nil).(*catalog.CachedRepository); !ok {
		t.Fatalf("expected cached catalog with redis")
	}
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	if s := BuildEmailSender(&appconfig.Config{EmailProvider: "none"}, nil, logger); s != nil {
		t.Fatalf("expected nil sender when disabled")
	}
	if s := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid"}, nil, logger); s != nil {
		t.Fatalf("expected nil sender without api key")
	}
	if s := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.test"}, nil, logger); s == nil {
		t.Fatalf("expected sendgrid sender")
	}
	if s := BuildEmailSender(&appconfig.Config{EmailProvider: "ses", SESFromEmail: "leads@example.com"}, nil, logger); s != nil {
		t.Fatalf("expected nil sender without an SES client")
	}
	if _, ok := BuildEmailSender(&appconfig.Config{EmailProvider: "stub"}, nil, logger).(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub sender")
	}
}
