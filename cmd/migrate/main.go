package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joao-fontenele/dormdeals/internal/config"
)

const usage = "usage: migrate [-path file://migrations] <up [n] | down [n] | goto <version> | force <version> | version>"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Log)

	path := flag.String("path", cfg.MigrationsPath, "migration source url")
	flag.Parse()

	if err := run(logger, *path, cfg.Postgres.URL, flag.Args()); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, source, databaseURL string, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	command, rest := args[0], args[1:]
	switch command {
	case "up":
		n, err := optionalCount(rest)
		if err != nil {
			return err
		}
		if n == 0 {
			err = m.Up()
		} else {
			err = m.Steps(n)
		}
		return report(logger, err, "migrations applied")

	case "down":
		n, err := optionalCount(rest)
		if err != nil {
			return err
		}
		if n == 0 {
			n = 1
		}
		return report(logger, m.Steps(-n), "migrations rolled back", "steps", n)

	case "goto":
		v, err := requiredVersion(rest)
		if err != nil {
			return err
		}
		return report(logger, m.Migrate(uint(v)), "migrated to version", "version", v)

	case "force":
		v, err := requiredVersion(rest)
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("force version %d: %w", v, err)
		}
		logger.Info("version forced", "version", v)
		return nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

// report treats ErrNoChange as success.
func report(logger *slog.Logger, err error, msg string, attrs ...any) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(msg, attrs...)
	return nil
}

func optionalCount(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("step count must be a positive integer, got %q", args[0])
	}
	return n, nil
}

func requiredVersion(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New(usage)
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("version must be a non-negative integer, got %q", args[0])
	}
	return v, nil
}
