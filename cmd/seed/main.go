package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/catalog"
	"github.com/joao-fontenele/dormdeals/internal/config"
	"github.com/joao-fontenele/dormdeals/internal/seed"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
	"github.com/joao-fontenele/dormdeals/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Log)

	path := flag.String("file", cfg.SeedFile, "seed file to load")
	flag.Parse()

	file, err := seed.LoadFile(*path)
	if err != nil {
		logger.Error("failed to load seed file", "error", err, "path", *path)
		os.Exit(1)
	}

	db, err := telemetry.OpenPostgres(cfg.Postgres)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	seeder := seed.NewSeeder(
		catalog.NewProductRepository(db),
		users.NewUserRepository(db),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		logger,
	)
	if err := seeder.Apply(context.Background(), file); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "path", *path)
}
