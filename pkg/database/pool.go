// Package database provides the PostgreSQL connection pool backing the
// Postgres cache plugin. It wraps pgxpool with configuration mapping,
// health checking, and an interface seam for mock-based tests.
package database

import (
	"context"
	"fmt"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolInterface defines the interface for a connection pool.
// This allows for easier testing with mock implementations (pgxmock).
type PoolInterface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// NewPool creates a new connection pool from the provided configuration.
// It establishes connections to PostgreSQL with the configured limits,
// timeouts, and SSL settings, and verifies connectivity with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, errors.NewInvalidInputWithCause("database", "failed to parse pool config", err)
	}

	// Configure connection pool limits
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewTemporary("failed to create connection pool", err)
	}

	// Ping to verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewTemporary("failed to ping database", err)
	}

	return pool, nil
}

// buildConnString constructs a PostgreSQL connection string from the config.
func buildConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.User,
		cfg.Password,
		cfg.SSLMode,
	)
}

// CheckHealth performs a health check on the database by executing a simple query.
// It returns nil if the database is healthy, or an error if the database is
// unreachable or the query times out.
func CheckHealth(ctx context.Context, pool PoolInterface) error {
	var result int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return errors.NewTemporary("database health check failed", err)
	}
	if result != 1 {
		return errors.NewTemporary(fmt.Sprintf("health check returned unexpected result: %d", result), nil)
	}
	return nil
}
