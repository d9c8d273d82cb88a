package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/oneroot-leads/cmd/mainconfig"
	"github.com/wolfman30/oneroot-leads/internal/api/router"
	"github.com/wolfman30/oneroot-leads/internal/app/bootstrap"
	"github.com/wolfman30/oneroot-leads/internal/archive"
	"github.com/wolfman30/oneroot-leads/internal/catalog"
	appconfig "github.com/wolfman30/oneroot-leads/internal/config"
	"github.com/wolfman30/oneroot-leads/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/oneroot-leads/internal/http/middleware"
	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/internal/notify"
	"github.com/wolfman30/oneroot-leads/internal/observability/metrics"
	"github.com/wolfman30/oneroot-leads/internal/prompt"
	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting oneroot-leads API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

// app is everything the HTTP server needs, plus what must be torn down.
type app struct {
	handler     http.Handler
	registry    *session.Registry
	local       bootstrap.LocalStore
	coordinator *leads.Coordinator
	limiter     *httpmiddleware.RateLimiter
	pool        *pgxpool.Pool
	redis       *redis.Client
}

func (a *app) Close() {
	a.limiter.Stop()
	a.coordinator.Close()
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the prompt stream holds its connection open.
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	if a.local.File != nil {
		changes, err := a.local.File.Watch(gctx)
		if err != nil {
			logger.Warn("local store watch disabled", "error", err)
		} else {
			g.Go(func() error {
				a.registry.Sync(gctx, changes)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	metricsHandler, leadMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	local, err := bootstrap.BuildLocalStore(cfg, redisClient, logger)
	if err != nil {
		return nil, err
	}
	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)

	var (
		s3Client  archive.S3API
		sesClient notify.SESAPI
	)
	if cfg.ExportBucket != "" || cfg.EmailProvider == "ses" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
		} else {
			if cfg.ExportBucket != "" {
				s3Client = mainconfig.NewS3Client(awsCfg, cfg)
			}
			if cfg.EmailProvider == "ses" {
				sesClient = mainconfig.NewSESClient(awsCfg, cfg)
			}
		}
	}

	registry := session.NewRegistry(local.Store, logger)
	fallback := leads.NewFallbackStore(local.Store, logger, leadMetrics)
	coordCfg := leads.CoordinatorConfig{
		Remote:        bootstrap.BuildLeadRemote(pool, logger),
		Fallback:      fallback,
		Tracker:       registry,
		Metrics:       leadMetrics,
		Logger:        logger,
		RemoteTimeout: cfg.LeadRemoteTimeout,
	}
	if alerter := notify.NewLeadAlerter(bootstrap.BuildEmailSender(cfg, sesClient, logger), cfg.LeadAlertEmail, logger); alerter != nil {
		coordCfg.Notifier = alerter
	}
	coordinator := leads.NewCoordinator(coordCfg)

	regions := bootstrap.BuildRegionRepository(pool, redisClient, cfg.RegionCacheTTL, logger)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	routerCfg := &router.Config{
		Logger:       logger,
		LeadsHandler: leads.NewHandler(coordinator, logger),
		CallButton:   handlers.NewCallButtonHandler(registry, cfg.CompanyPhone, logger),
		PromptStream: prompt.NewStream(registry, coordinator, prompt.Config{
			InitialDelay: cfg.PromptInitialDelay,
			RepromptMin:  cfg.PromptRepromptMin,
			RepromptMax:  cfg.PromptRepromptMax,
		}, logger, leadMetrics),
		RegionHandler: catalog.NewHandler(regions, logger),
		AdminLeads: handlers.NewAdminLeadsHandler(
			fallback,
			archive.NewExportStore(s3Client, cfg.ExportBucket, logger),
			handlers.AdminLeadsConfig{
				Password:  cfg.AdminPassword,
				JWTSecret: cfg.AdminJWTSecret,
				TokenTTL:  cfg.AdminTokenTTL,
			},
			logger,
		),
		LeadLimiter:        limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		SecureCookies:      cfg.Env == "production",
	}

	return &app{
		handler:     router.New(routerCfg),
		registry:    registry,
		local:       local,
		coordinator: coordinator,
		limiter:     limiter,
		pool:        pool,
		redis:       redisClient,
	}, nil
}

func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	leadMetrics := metrics.NewLeadMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), leadMetrics
}
