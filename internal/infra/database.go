package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DatabaseConfig holds the lineage store connection settings
type DatabaseConfig struct {
	URL             string        `yaml:"url" validate:"required"`
	MaxConns        int32         `yaml:"max_conns" default:"10" validate:"gte=1"`
	MinConns        int32         `yaml:"min_conns" default:"2" validate:"gte=0"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" default:"30m"`
}

// NewDatabase creates a new database connection pool
func NewDatabase(ctx context.Context, cfg DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	log.Info().Msg("connecting to PostgreSQL")

	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Keep the pool small; a cycle writes sequentially
	config.MaxConns = cfg.MaxConns
	config.MinConns = cfg.MinConns
	config.MaxConnLifetime = cfg.MaxConnLifetime
	config.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Int32("max_conns", cfg.MaxConns).Msg("database connected")
	return pool, nil
}
