package metrics

import (
	"sync"
)

// Outcome label values for executor query metrics.
const (
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

var (
	// Standard caching executor metrics
	queryDuration         *Histogram
	queryCount            *Counter
	cacheFetchCount       *Counter
	cachePopulateCount    *Counter
	outstandingExecutions *Gauge

	// Ensure standard metrics are initialized only once
	standardMetricsOnce sync.Once
)

// InitStandardMetrics initializes the standard caching executor metrics.
// Executors call this lazily before recording, but it can be called
// explicitly to ensure metrics are registered before use.
// It is safe to call multiple times - subsequent calls are no-ops.
func InitStandardMetrics(namespace string) error {
	var initErr error

	standardMetricsOnce.Do(func() {
		queryDuration, initErr = NewHistogram(HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "query_duration_seconds",
			Help:      "Query execution duration in seconds",
			Labels:    []string{"executor_id", "outcome"},
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		})
		if initErr != nil {
			return
		}

		queryCount, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "queries_total",
			Help:      "Total number of queries executed",
			Labels:    []string{"executor_id", "outcome"},
		})
		if initErr != nil {
			return
		}

		cacheFetchCount, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetches_total",
			Help:      "Total number of cache fetches by result",
			Labels:    []string{"executor_id", "result"},
		})
		if initErr != nil {
			return
		}

		cachePopulateCount, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "populates_total",
			Help:      "Total number of cache population writes",
			Labels:    []string{"executor_id"},
		})
		if initErr != nil {
			return
		}

		outstandingExecutions, initErr = NewGauge(GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "outstanding_executions",
			Help:      "Number of executions started but not yet completed",
			Labels:    []string{"executor_id"},
		})
	})

	return initErr
}

// RecordQuery records a completed query with its outcome and duration.
// Safe to call when standard metrics have not been initialized.
func RecordQuery(executorID, outcome string, seconds float64) {
	if queryCount != nil {
		queryCount.Inc(executorID, outcome)
	}
	if queryDuration != nil {
		queryDuration.Observe(seconds, executorID, outcome)
	}
}

// RecordCacheFetch records the result of a cache fetch (hit/miss/error).
// Safe to call when standard metrics have not been initialized.
func RecordCacheFetch(executorID, result string) {
	if cacheFetchCount != nil {
		cacheFetchCount.Inc(executorID, result)
	}
}

// RecordCachePopulate records a cache population write.
// Safe to call when standard metrics have not been initialized.
func RecordCachePopulate(executorID string) {
	if cachePopulateCount != nil {
		cachePopulateCount.Inc(executorID)
	}
}

// IncOutstanding increments the outstanding execution gauge.
// Safe to call when standard metrics have not been initialized.
func IncOutstanding(executorID string) {
	if outstandingExecutions != nil {
		outstandingExecutions.Inc(executorID)
	}
}

// DecOutstanding decrements the outstanding execution gauge.
// Safe to call when standard metrics have not been initialized.
func DecOutstanding(executorID string) {
	if outstandingExecutions != nil {
		outstandingExecutions.Dec(executorID)
	}
}

// GetQueryDuration returns the standard query duration histogram.
// Returns nil if standard metrics have not been initialized.
func GetQueryDuration() *Histogram {
	return queryDuration
}

// GetQueryCount returns the standard query count counter.
// Returns nil if standard metrics have not been initialized.
func GetQueryCount() *Counter {
	return queryCount
}

// GetCacheFetchCount returns the standard cache fetch counter.
// Returns nil if standard metrics have not been initialized.
func GetCacheFetchCount() *Counter {
	return cacheFetchCount
}

// GetCachePopulateCount returns the standard cache populate counter.
// Returns nil if standard metrics have not been initialized.
func GetCachePopulateCount() *Counter {
	return cachePopulateCount
}

// GetOutstandingExecutions returns the standard outstanding execution gauge.
// Returns nil if standard metrics have not been initialized.
func GetOutstandingExecutions() *Gauge {
	return outstandingExecutions
}
