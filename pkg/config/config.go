// Package config provides configuration management for TSQI query
// infrastructure components. It supports loading configuration from YAML
// files, JSON files, and environment variables with automatic validation
// and default value application.
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml", "TSQI")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Or panic on error:
//	cfg := config.MustLoad("config.yaml", "TSQI")
package config

import (
	"time"
)

// Config represents the complete configuration for a TSQI-based service.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Downstream DownstreamConfig `mapstructure:"downstream"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// ServiceConfig contains general service information.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

// CacheConfig contains Redis cache plugin configuration.
type CacheConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// DatabaseConfig contains PostgreSQL cache plugin configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"` // disable, require, verify-ca, verify-full
	Table           string        `mapstructure:"table"`    // cache entry table name
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// ExecutorConfig contains the default policy for a caching query executor.
// These fields seed the per-executor Config built at graph construction.
type ExecutorConfig struct {
	// ID is the executor identifier within the execution graph.
	ID string `mapstructure:"id"`

	// Type is the executor type tag.
	Type string `mapstructure:"type"`

	// Expiration is the cache entry TTL in milliseconds. Zero disables
	// cache population while still allowing lookups.
	Expiration int64 `mapstructure:"expiration"`

	// MaxExpiration is the upper clamp in milliseconds for TTLs derived
	// from query timestamps.
	MaxExpiration int64 `mapstructure:"max_expiration"`

	// Simultaneous races the cache fetch against the downstream query
	// instead of consulting the cache first.
	Simultaneous bool `mapstructure:"simultaneous"`

	// UseTimestamps derives the TTL from the query's end time instead of
	// using Expiration verbatim.
	UseTimestamps bool `mapstructure:"use_timestamps"`

	// Plugin is the registered name of the cache plugin to resolve.
	Plugin string `mapstructure:"plugin"`

	// Serdes is the registered name of the result codec to resolve.
	Serdes string `mapstructure:"serdes"`
}

// DownstreamConfig contains HTTP downstream query executor configuration.
type DownstreamConfig struct {
	// Endpoint is the URL of the remote query API.
	Endpoint string `mapstructure:"endpoint"`

	// Timeout is the maximum duration for the entire request including retries.
	// Default: 30 seconds.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryCount is the maximum number of retry attempts.
	// Default: 3.
	RetryCount int `mapstructure:"retry_count"`

	// RetryWaitTime is the initial wait time between retries.
	// Default: 1 second.
	RetryWaitTime time.Duration `mapstructure:"retry_wait_time"`

	// RetryMaxWaitTime is the maximum wait time between retries.
	// Default: 10 seconds.
	RetryMaxWaitTime time.Duration `mapstructure:"retry_max_wait_time"`

	// RateLimitPerSecond is the maximum requests per second (0 = unlimited).
	// Default: 0 (disabled).
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`

	// RateLimitBurst is the maximum burst size for rate limiting.
	// Default: 1.
	RateLimitBurst int `mapstructure:"rate_limit_burst"`

	// MaxIdleConns is the maximum number of idle connections across all hosts.
	// Default: 100.
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10.
	MaxIdleConnsPerHost int `mapstructure:"max_idle_conns_per_host"`

	// IdleConnTimeout is the maximum time an idle connection stays open.
	// Default: 90 seconds.
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout"`
}

// LogConfig contains structured logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"` // Metric prefix
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Endpoint     string        `mapstructure:"endpoint"`      // OTLP endpoint (e.g., "localhost:4317")
	SampleRate   float64       `mapstructure:"sample_rate"`   // 0.0 to 1.0
	ServiceName  string        `mapstructure:"service_name"`  // Override service name for traces
	Environment  string        `mapstructure:"environment"`   // Environment tag
	ExportMode   string        `mapstructure:"export_mode"`   // "grpc" or "http"
	Insecure     bool          `mapstructure:"insecure"`      // Use insecure connection
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // Batch export timeout
}
