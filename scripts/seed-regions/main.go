// Command seed-regions loads region rows from a JSON file into Postgres.
//
// Usage:
//
//	go run ./scripts/seed-regions --file=testdata/regions.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/wolfman30/oneroot-leads/internal/app/bootstrap"
	"github.com/wolfman30/oneroot-leads/internal/catalog"
	appconfig "github.com/wolfman30/oneroot-leads/internal/config"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

func main() {
	file := flag.String("file", "testdata/regions.json", "JSON array of regions")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("failed to read regions file", "error", err, "file", *file)
		os.Exit(1)
	}
	var regions []catalog.Region
	if err := json.Unmarshal(data, &regions); err != nil {
		logger.Error("failed to parse regions file", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		logger.Error("DATABASE_URL is required and must be reachable")
		os.Exit(1)
	}
	defer pool.Close()

	repo := catalog.NewPostgresRepository(pool)
	for i := range regions {
		if err := repo.Upsert(ctx, &regions[i]); err != nil {
			logger.Error("seed failed", "error", err, "region", regions[i].Name)
			os.Exit(1)
		}
		logger.Info("region seeded", "id", regions[i].ID, "name", regions[i].Name, "media", len(regions[i].Media))
	}
	logger.Info("seed complete", "regions", len(regions))
}
