// Package cache provides the pluggable cache backends consumed by the
// caching query executor. A Plugin stores opaque byte blobs keyed by opaque
// byte keys: Fetch is asynchronous and cancellable, Cache is fire-and-forget
// with a per-entry TTL. Backends: Redis (shared, production), Postgres
// (shared, durable), and an in-process memory plugin for development and
// testing.
//
// Example usage:
//
//	plugin, err := cache.NewRedis(ctx, cfg.Cache)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer plugin.Close()
//
//	fetch := plugin.Fetch(ctx, key, nil)
//	<-fetch.Done()
//	data, err := fetch.Result() // data == nil means miss
package cache

import (
	"context"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/config"
	"github.com/Combine-Capital/tsqi/pkg/logging"
	"go.opentelemetry.io/otel/trace"
)

// Plugin is implemented by cache backends. Fetch failures are reported on
// the returned handle and are never fatal to the query that triggered them;
// Cache write failures are logged and absorbed.
type Plugin interface {
	// Name returns the backend's registry name.
	Name() string

	// Fetch starts an asynchronous lookup for key and returns its handle.
	// The handle resolves with the stored bytes, nil on a miss, or an
	// error on backend failure.
	Fetch(ctx context.Context, key []byte, span trace.Span) *Fetch

	// Cache stores value under key with the given TTL. It returns
	// promptly; the write happens in the background. A non-positive TTL
	// drops the write.
	Cache(key, value []byte, ttl time.Duration)

	// CheckHealth verifies backend connectivity.
	CheckHealth(ctx context.Context) error

	// Close releases backend resources. In-flight fetches resolve with an
	// error.
	Close() error
}

// pluginLogger returns the logger plugins use for absorbed failures.
func pluginLogger(backend string) *logging.Logger {
	return logging.New(config.LogConfig{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}).WithComponent("cache." + backend)
}
