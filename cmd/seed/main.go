package main

import (
	"context"
	"os"

	"github.com/momentworks/consultbook/internal/app/bootstrap"
	appconfig "github.com/momentworks/consultbook/internal/config"
	"github.com/momentworks/consultbook/internal/consultants"
	"github.com/momentworks/consultbook/pkg/logging"
)

// seed inserts the demo consultant roster into an empty database.
func main() {
	logger := logging.New("info")
	if err := appconfig.LoadDotEnv(); err != nil {
		logger.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg := appconfig.Load()
	ctx := context.Background()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := consultants.NewPostgresRepository(pool)
	existing, err := repo.List(ctx)
	if err != nil {
		logger.Error("list consultants", "error", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		logger.Info("consultants already present; skipping seed", "count", len(existing))
		return
	}

	for _, c := range consultants.DemoConsultants() {
		if err := repo.Insert(ctx, c); err != nil {
			logger.Error("insert consultant", "name", c.Name, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("seeded consultants", "count", len(consultants.DemoConsultants()))
}
