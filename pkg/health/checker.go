// Package health provides the health check framework for query
// infrastructure components, with a readiness model matching the executor's
// failure semantics: the cache is an accelerator, not a dependency.
//
// Components register as either critical or degradable. A failing critical
// checker (a downstream query endpoint, say) makes the service unready. A
// failing degradable checker — a cache plugin — only degrades it: the
// caching executor absorbs cache failures and falls through to the
// downstream, so a node with a dead cache still answers queries, just
// slower. Readiness probes keep routing traffic to it.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterChecker("downstream", downstreamChecker)
//	h.RegisterDegradable("cache", redisPlugin)
//
//	// Set up HTTP endpoints
//	http.HandleFunc("/health/live", h.LivenessHandler())
//	http.HandleFunc("/health/ready", h.ReadinessHandler())
//
// Liveness checks verify the service is running (no dependency checks).
// Readiness checks fail only on critical components; degradable failures
// are reported in the result body but keep the probe passing.
package health

import (
	"context"
)

// Checker is implemented by components that can report their health.
// Cache plugins and downstream endpoints implement this interface.
type Checker interface {
	// Check performs a health check on the component.
	// It should verify connectivity and basic functionality with a reasonable timeout.
	// Returns nil if the component is healthy, or an error describing the problem.
	// The context may include a timeout, which the implementation must respect.
	Check(ctx context.Context) error
}

// CheckerFunc is a function adapter that implements the Checker interface.
// This allows simple functions to be used as health checkers.
type CheckerFunc func(ctx context.Context) error

// Check implements the Checker interface by calling the function.
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}
