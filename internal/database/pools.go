package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
)

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Schema statements, run in order by EnsureSchema.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS quote_prices (
		time   TIMESTAMPTZ      NOT NULL,
		symbol TEXT             NOT NULL,
		bid    DOUBLE PRECISION NOT NULL,
		ask    DOUBLE PRECISION NOT NULL,
		mid    DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS quote_prices_symbol_time_idx ON quote_prices (symbol, time DESC)`,
}

const hypertable = `SELECT create_hypertable('quote_prices', 'time', if_not_exists => TRUE)`

// EnsureSchema creates quote_prices if needed. Converting it to a hypertable
// is best effort: plain PostgreSQL without the extension still works.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	if _, err := pool.Exec(ctx, hypertable); err != nil {
		logger.Warn("quote_prices left as a plain table", zap.Error(err))
	}
	return nil
}
