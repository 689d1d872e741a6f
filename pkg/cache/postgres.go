package cache

import (
	"context"
	"regexp"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/database"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/logging"
	"github.com/Combine-Capital/tsqi/pkg/retry"
	"github.com/Combine-Capital/tsqi/pkg/tracing"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// validTableName restricts the configured table to a plain SQL identifier,
// since identifiers cannot be bound as query parameters.
var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresPlugin implements Plugin on a PostgreSQL blob table. Entries carry
// an expires_at column and expire lazily on read; a durable shared cache for
// deployments that already run Postgres but not Redis.
//
// Expected schema:
//
//	CREATE TABLE query_cache (
//	    key        BYTEA PRIMARY KEY,
//	    value      BYTEA NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
type PostgresPlugin struct {
	pool         database.PoolInterface
	table        string
	queryTimeout time.Duration
	log          *logging.Logger
}

// NewPostgres creates a Postgres cache plugin, establishing its own
// connection pool from the configuration.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresPlugin, error) {
	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgresWithPool(pool, cfg)
}

// NewPostgresWithPool creates a Postgres cache plugin on an existing pool.
// Tests use this with a pgxmock pool.
func NewPostgresWithPool(pool database.PoolInterface, cfg config.DatabaseConfig) (*PostgresPlugin, error) {
	table := cfg.Table
	if table == "" {
		table = "query_cache"
	}
	if !validTableName.MatchString(table) {
		return nil, errors.NewInvalidInput("database.table", "table name must be a plain SQL identifier")
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &PostgresPlugin{
		pool:         pool,
		table:        table,
		queryTimeout: queryTimeout,
		log:          pluginLogger("postgres"),
	}, nil
}

// Name returns the backend's registry name.
func (p *PostgresPlugin) Name() string {
	return "postgres"
}

// Fetch starts an asynchronous SELECT for key and returns its handle.
// Expired rows read as misses.
func (p *PostgresPlugin) Fetch(ctx context.Context, key []byte, span trace.Span) *Fetch {
	fctx, cancel := context.WithCancel(ctx)
	fetch := NewFetch(cancel)

	go func() {
		sctx, fetchSpan := tracing.StartSpanWithParent(fctx, span, "cache.fetch")
		defer fetchSpan.End()

		qctx, qcancel := context.WithTimeout(sctx, p.queryTimeout)
		defer qcancel()

		var value []byte
		err := p.pool.QueryRow(qctx,
			"SELECT value FROM "+p.table+" WHERE key = $1 AND expires_at > now()",
			key,
		).Scan(&value)
		switch {
		case err == pgx.ErrNoRows:
			tracing.SetSpanAttributes(sctx, tracing.CacheAttributes("postgres", "fetch", "", false)...)
			fetch.Callback(nil)
		case err != nil:
			tracing.SetSpanError(sctx, err)
			fetch.Errback(errors.NewTemporary("postgres fetch failed", err))
		default:
			tracing.SetSpanAttributes(sctx, tracing.CacheAttributes("postgres", "fetch", "", true)...)
			fetch.Callback(value)
		}
	}()

	return fetch
}

// Cache upserts value under key with the given TTL. The write happens in the
// background with retries on temporary failures; terminal failures are
// logged and absorbed.
func (p *PostgresPlugin) Cache(key, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.queryTimeout)
		defer cancel()

		err := retry.Do(ctx, retry.Config{MaxAttempts: 3}, func() error {
			_, execErr := p.pool.Exec(ctx,
				"INSERT INTO "+p.table+" (key, value, expires_at)"+
					" VALUES ($1, $2, now() + $3 * interval '1 millisecond')"+
					" ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at",
				key, value, ttl.Milliseconds(),
			)
			if execErr != nil {
				return errors.NewTemporary("postgres upsert failed", execErr)
			}
			return nil
		})
		if err != nil {
			p.log.Warn().Err(err).Msg("cache populate dropped")
		}
	}()
}

// Evict removes expired rows. Deployments run this periodically; reads
// already ignore expired rows, so eviction is purely reclamation.
func (p *PostgresPlugin) Evict(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, "DELETE FROM "+p.table+" WHERE expires_at <= now()")
	if err != nil {
		return 0, errors.NewTemporary("postgres eviction failed", err)
	}
	return tag.RowsAffected(), nil
}

// CheckHealth verifies database connectivity.
func (p *PostgresPlugin) CheckHealth(ctx context.Context) error {
	return database.CheckHealth(ctx, p.pool)
}

// Check implements the health.Checker interface for the Postgres plugin.
func (p *PostgresPlugin) Check(ctx context.Context) error {
	return p.CheckHealth(ctx)
}

// Close releases the connection pool.
func (p *PostgresPlugin) Close() error {
	p.pool.Close()
	return nil
}
