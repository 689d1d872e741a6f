// Package executor implements the time series query execution graph: the
// QueryExecutor interface its nodes satisfy, the Execution future they
// return, and the two shipped executors — the caching query executor that
// fronts a downstream executor with a pluggable cache, and the HTTP executor
// that forwards queries to a remote data API.
//
// The caching executor coordinates two asynchronous subrequests per query: a
// cache fetch and (on a miss, or immediately in simultaneous mode) a
// downstream query. Whichever terminal outcome wins completes the caller's
// future; the losing subrequest is cancelled, and freshly computed results
// are written back to the cache when the executor's expiration policy allows.
//
// Example usage:
//
//	graph := executor.NewGraph(reg)
//	node := executor.NewGraphNode("LocalCache", cfg, "redis", "msgpack", graph)
//	graph.SetDownstream("LocalCache", httpExec)
//
//	cqe, err := executor.NewCachingQueryExecutor(node)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	exec := cqe.ExecuteQuery(ctx, q, nil)
//	result, err := exec.Wait(ctx)
package executor

import (
	"context"

	"github.com/Combine-Capital/tsqi/pkg/query"
	"go.opentelemetry.io/otel/trace"
)

// QueryExecutor is implemented by every node in the execution graph.
type QueryExecutor interface {
	// ID returns the executor's identifier within the graph.
	ID() string

	// ExecuteQuery starts the given query and returns its future
	// synchronously. span, when non-nil, parents the executor's own
	// spans; the executor never requires it.
	ExecuteQuery(ctx context.Context, q *query.TimeSeriesQuery, span trace.Span) *Execution

	// Close cancels all outstanding executions and returns a channel
	// closed once every one of them has completed. Idempotent.
	Close() <-chan struct{}
}
