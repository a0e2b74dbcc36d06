package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/durablex/durablex/internal/logger"
)

// PoolConfig configures the underlying Postgres connection pool. Field
// names mirror the engine specification's Configuration table
// (database_url, plus the pool-sizing keys this implementation adds).
type PoolConfig struct {
	DatabaseURL  string
	MaxConns     int32
	MinConns     int32
	DialTimeout  time.Duration
	AutoMigrate  bool
}

// Store is the durable home for Execution, WorkflowContext, Signal, and
// WorkerHeartbeat rows. All higher layers (Dispatcher, Worker, Engine)
// read and mutate only through its exported methods; see engine
// specification §4.1.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates the connection pool, verifies connectivity, and optionally
// runs migrations. Mirrors the teacher's NewRedisQueue: construct, ping,
// initialize schema, return ready-to-use handle.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pgCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pgCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.AutoMigrate {
		if err := RunMigrations(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: run migrations: %w", err)
		}
	}

	logger.Info().Msg("store: connected to postgres")
	return s, nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pgxpool for components that need raw access
// (the notify listener uses a dedicated connection, not the pool).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
