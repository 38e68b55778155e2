package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgConnectTimeout    = 5 * time.Second
	pgHealthCheckPeriod = 30 * time.Second
	pgMaxConnIdleTime   = 5 * time.Minute
)

// NewPostgresPool connects the pool the ledger and identity stores share.
// Transfers hold a connection for the whole atomic unit, so the pool keeps a
// few idle connections warm instead of dialling per request.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MinConns == 0 {
		cfg.MinConns = 2
	}
	cfg.HealthCheckPeriod = pgHealthCheckPeriod
	cfg.MaxConnIdleTime = pgMaxConnIdleTime
	cfg.ConnConfig.RuntimeParams["application_name"] = "ledger"

	connectCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
