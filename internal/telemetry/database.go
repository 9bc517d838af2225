package telemetry

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/joao-fontenele/dormdeals/internal/config"
)

// OpenPostgres opens a traced connection pool sized from cfg and exports the
// pool statistics as metrics. The caller still has to ping.
func OpenPostgres(cfg config.Postgres) (*sql.DB, error) {
	db, err := otelsql.Open("postgres", cfg.URL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemPostgreSQL)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register db stats metrics: %w", err)
	}
	return db, nil
}
