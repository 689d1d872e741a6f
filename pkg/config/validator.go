package config

import (
	"fmt"
	"time"
)

// Validate validates the configuration and returns an error if any required fields are missing
// or have invalid values.
func Validate(cfg *Config) error {
	// Validate Cache config (if used)
	if cfg.Cache.Host != "" {
		if cfg.Cache.Port == 0 {
			return fmt.Errorf("cache.port is required when cache.host is set")
		}
	}

	// Validate Database config (if used)
	if cfg.Database.Host != "" {
		if cfg.Database.Port == 0 {
			return fmt.Errorf("database.port is required when database.host is set")
		}
		if cfg.Database.User == "" {
			return fmt.Errorf("database.user is required when database.host is set")
		}
		if cfg.Database.Database == "" {
			return fmt.Errorf("database.database is required when database.host is set")
		}
	}

	// Validate Executor config
	if cfg.Executor.Expiration < 0 {
		return fmt.Errorf("executor.expiration must be non-negative")
	}
	if cfg.Executor.MaxExpiration < 0 {
		return fmt.Errorf("executor.max_expiration must be non-negative")
	}

	// Validate Tracing config (if enabled)
	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0")
		}
	}

	// Validate Metrics config (if enabled)
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == 0 {
			return fmt.Errorf("metrics.port is required when metrics are enabled")
		}
	}

	return nil
}

// applyDefaults applies default values to the configuration where values are not set.
func applyDefaults(cfg *Config) {
	// Service defaults
	if cfg.Service.Env == "" {
		cfg.Service.Env = "development"
	}

	// Cache defaults
	if cfg.Cache.Port == 0 && cfg.Cache.Host != "" {
		cfg.Cache.Port = 6379
	}
	if cfg.Cache.MaxRetries == 0 {
		cfg.Cache.MaxRetries = 3
	}
	if cfg.Cache.DialTimeout == 0 {
		cfg.Cache.DialTimeout = 5 * time.Second
	}
	if cfg.Cache.ReadTimeout == 0 {
		cfg.Cache.ReadTimeout = 3 * time.Second
	}
	if cfg.Cache.WriteTimeout == 0 {
		cfg.Cache.WriteTimeout = 3 * time.Second
	}
	if cfg.Cache.PoolSize == 0 {
		cfg.Cache.PoolSize = 10
	}
	if cfg.Cache.MinIdleConns == 0 {
		cfg.Cache.MinIdleConns = 2
	}

	// Database defaults
	if cfg.Database.Port == 0 && cfg.Database.Host != "" {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "query_cache"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 25
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.MaxConnLifetime == 0 {
		cfg.Database.MaxConnLifetime = time.Hour
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 30 * time.Second
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = 30 * time.Second
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "prefer"
	}

	// Executor defaults
	if cfg.Executor.Type == "" {
		cfg.Executor.Type = "CachingQueryExecutor"
	}
	if cfg.Executor.Plugin == "" {
		cfg.Executor.Plugin = "memory"
	}
	if cfg.Executor.Serdes == "" {
		cfg.Executor.Serdes = "msgpack"
	}

	// Downstream defaults
	if cfg.Downstream.Timeout == 0 {
		cfg.Downstream.Timeout = 30 * time.Second
	}
	if cfg.Downstream.RetryCount == 0 {
		cfg.Downstream.RetryCount = 3
	}
	if cfg.Downstream.RetryWaitTime == 0 {
		cfg.Downstream.RetryWaitTime = time.Second
	}
	if cfg.Downstream.RetryMaxWaitTime == 0 {
		cfg.Downstream.RetryMaxWaitTime = 10 * time.Second
	}
	if cfg.Downstream.RateLimitBurst == 0 {
		cfg.Downstream.RateLimitBurst = 1
	}
	if cfg.Downstream.MaxIdleConns == 0 {
		cfg.Downstream.MaxIdleConns = 100
	}
	if cfg.Downstream.MaxIdleConnsPerHost == 0 {
		cfg.Downstream.MaxIdleConnsPerHost = 10
	}
	if cfg.Downstream.IdleConnTimeout == 0 {
		cfg.Downstream.IdleConnTimeout = 90 * time.Second
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 && cfg.Metrics.Enabled {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "tsqi"
	}

	// Tracing defaults
	if cfg.Tracing.ExportMode == "" {
		cfg.Tracing.ExportMode = "grpc"
	}
	if cfg.Tracing.BatchTimeout == 0 {
		cfg.Tracing.BatchTimeout = 5 * time.Second
	}
}
