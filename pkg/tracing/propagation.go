package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HTTPCarrier adapts http.Header to TextMapCarrier interface.
type HTTPCarrier http.Header

// Get returns the value associated with the passed key.
func (c HTTPCarrier) Get(key string) string {
	return http.Header(c).Get(key)
}

// Set stores the key-value pair.
func (c HTTPCarrier) Set(key, value string) {
	http.Header(c).Set(key, value)
}

// Keys lists the keys stored in this carrier.
func (c HTTPCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// InjectHTTP injects trace context into HTTP request headers.
// It uses the W3C Trace Context propagation format (traceparent, tracestate).
// The HTTP downstream executor uses this to carry the query trace across
// the wire.
//
// Example:
//
//	req, _ := http.NewRequest("POST", "http://tsdb/api/query", body)
//	tracing.InjectHTTP(ctx, req.Header)
func InjectHTTP(ctx context.Context, header http.Header) {
	propagator := otel.GetTextMapPropagator()
	propagator.Inject(ctx, HTTPCarrier(header))
}

// ExtractHTTP extracts trace context from HTTP request headers.
// It returns a new context with the extracted trace information.
func ExtractHTTP(ctx context.Context, header http.Header) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(ctx, HTTPCarrier(header))
}

// GetPropagator returns the global text map propagator.
// This can be used for custom propagation scenarios.
func GetPropagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}
