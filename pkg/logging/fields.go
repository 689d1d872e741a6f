// Package logging provides structured logging with zerolog for trace context propagation.
// It supports configurable log levels, output formats (JSON/console), and automatic
// extraction of trace/span IDs from context for distributed tracing correlation.
//
// Example usage:
//
//	cfg := config.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//	logger := logging.New(cfg)
//	logger.Info().Str("executor_id", "LocalCache").Msg("executor registered")
package logging

// Standard field names for structured logging.
// These constants ensure consistent field naming across the query infrastructure.
const (
	// TraceID is the field name for distributed trace ID (W3C trace context).
	TraceID = "trace_id"

	// SpanID is the field name for current span ID within a trace.
	SpanID = "span_id"

	// ServiceName is the field name for the service generating the log.
	ServiceName = "service_name"

	// Error is the field name for error information.
	Error = "error"

	// RequestID is the field name for the per-execution request ID.
	RequestID = "request_id"

	// ExecutorID is the field name for the query executor identifier.
	ExecutorID = "executor_id"

	// QueryID is the field name for the query being executed.
	QueryID = "query_id"

	// CacheKey is the field name for the hex form of a cache key.
	CacheKey = "cache_key"

	// CacheHit is the field name recording whether a fetch was a hit.
	CacheHit = "cache_hit"

	// Duration is the field name for operation duration.
	Duration = "duration_ms"

	// Component is the field name for the component/package generating the log.
	Component = "component"
)
