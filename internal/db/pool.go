package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a configured pgxpool connection pool.
func NewPool(ctx context.Context, connStr string, maxConns, minConns int32, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Database connection pool established",
		"max_conns", maxConns,
		"min_conns", minConns,
	)

	return pool, nil
}

// Schema creates the tables the repositories write to.
const Schema = `
CREATE TABLE IF NOT EXISTS strategy_events (
	id          BIGSERIAL PRIMARY KEY,
	event_name  TEXT        NOT NULL,
	group_name  TEXT        NOT NULL,
	amount      NUMERIC     NOT NULL,
	vault       TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_strategy_events_group ON strategy_events (group_name, id);

CREATE TABLE IF NOT EXISTS strategy_groups (
	group_name       TEXT PRIMARY KEY,
	farm_strategies  TEXT[]      NOT NULL,
	harvest_strategy TEXT        NOT NULL,
	collector        TEXT        NOT NULL,
	vault            TEXT        NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies Schema. It is safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
