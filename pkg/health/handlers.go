package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler returns an HTTP handler that responds to liveness probes.
// Liveness probes verify that the service process is running and responsive.
// This handler always returns 200 OK with no dependency checks.
//
// Kubernetes liveness probes should use this endpoint. If this fails,
// Kubernetes will restart the pod.
//
// Example usage:
//
//	h := health.New()
//	http.HandleFunc("/health/live", h.LivenessHandler())
func (h *Health) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler returns an HTTP handler that responds to readiness probes.
// Readiness follows the executor's failure model: only critical checkers
// gate it. A degraded result — a cache plugin down, queries still served
// from the downstream — keeps the probe passing with 200 OK; the degraded
// checks appear in the response body for operators. Only a critical failure
// returns 503 Service Unavailable.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterChecker("downstream", downstreamChecker)
//	h.RegisterDegradable("cache", redisPlugin)
//	http.HandleFunc("/health/ready", h.ReadinessHandler())
func (h *Health) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Execute health checks
		result := h.Check(r.Context())

		// Set content type
		w.Header().Set("Content-Type", "application/json")

		// Degraded still serves traffic; only critical failures drop
		// readiness
		if result.Status != StatusUnhealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		// Encode response (ignore error - if encoding fails, empty response is sent)
		_ = json.NewEncoder(w).Encode(result)
	}
}

// HealthHandler is a convenience handler that returns both liveness and readiness status.
// This is useful for simple services that don't need separate endpoints.
//
// Returns 200 OK while the service can serve queries (healthy or degraded),
// 503 Service Unavailable when a critical checker fails. The response
// includes both liveness (always "alive") and the full readiness result.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterDegradable("cache", redisPlugin)
//	http.HandleFunc("/health", h.HealthHandler())
func (h *Health) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Execute health checks
		result := h.Check(r.Context())

		// Set content type
		w.Header().Set("Content-Type", "application/json")

		// Set status code based on readiness
		if result.Status != StatusUnhealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		// Build combined response
		response := map[string]interface{}{
			"liveness":  "alive",
			"readiness": result,
		}

		// Encode response (ignore error - if encoding fails, empty response is sent)
		_ = json.NewEncoder(w).Encode(response)
	}
}
