package executor

import (
	"context"
	"sync"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/httpclient"
	"github.com/Combine-Capital/tsqi/pkg/query"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
	"github.com/Combine-Capital/tsqi/pkg/tracing"
	"go.opentelemetry.io/otel/trace"
)

// HTTPQueryExecutor forwards queries to a remote query API over HTTP. It is
// the usual downstream of a caching executor: the query is POSTed as JSON
// and the response decoded into a QueryResult. Cancelling an execution
// aborts the in-flight request.
type HTTPQueryExecutor struct {
	id       string
	client   *httpclient.Client
	endpoint string

	mu          sync.Mutex
	outstanding map[*Execution]struct{}
	closed      bool
}

// NewHTTPQueryExecutor creates an HTTP executor posting to endpoint.
func NewHTTPQueryExecutor(id string, client *httpclient.Client, endpoint string) (*HTTPQueryExecutor, error) {
	if id == "" {
		return nil, errors.NewInvalidInput("id", "executor ID is required")
	}
	if client == nil {
		return nil, errors.NewInvalidInput("client", "HTTP client is required")
	}
	if endpoint == "" {
		return nil, errors.NewInvalidInput("endpoint", "endpoint is required")
	}
	return &HTTPQueryExecutor{
		id:          id,
		client:      client,
		endpoint:    endpoint,
		outstanding: make(map[*Execution]struct{}),
	}, nil
}

// ID returns the executor's identifier within the graph.
func (h *HTTPQueryExecutor) ID() string {
	return h.id
}

// OutstandingRequests returns the executions started but not yet completed.
// Observational.
func (h *HTTPQueryExecutor) OutstandingRequests() []*Execution {
	h.mu.Lock()
	defer h.mu.Unlock()
	execs := make([]*Execution, 0, len(h.outstanding))
	for e := range h.outstanding {
		execs = append(execs, e)
	}
	return execs
}

// ExecuteQuery POSTs the query to the remote endpoint and returns its
// future synchronously.
func (h *HTTPQueryExecutor) ExecuteQuery(ctx context.Context, q *query.TimeSeriesQuery, span trace.Span) *Execution {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return completedExecution(q, errors.NewCancelled(h.id, "executor is closed"))
	}

	reqCtx, cancelReq := context.WithCancel(ctx)
	exec := NewExecution(q, nil)
	exec.onCancel = func() {
		cancelReq()
		exec.Fail(errors.NewCancelled(h.id, "query execution cancelled"))
	}
	h.outstanding[exec] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer cancelReq()
		defer h.remove(exec)

		sctx, reqSpan := tracing.StartSpanWithParent(reqCtx, span, "executor.http_query")
		defer reqSpan.End()

		var result timeseries.QueryResult
		status, err := h.client.PostJSON(sctx, h.endpoint, q, &result)
		if err != nil {
			tracing.SetSpanError(sctx, err)
			exec.Fail(err)
			return
		}
		tracing.SetSpanAttributes(sctx, tracing.HTTPAttributes("POST", "", h.endpoint, status)...)
		exec.Complete(&result)
	}()

	return exec
}

// Close cancels all outstanding executions and returns a channel closed
// once every one of them has completed. Idempotent.
func (h *HTTPQueryExecutor) Close() <-chan struct{} {
	h.mu.Lock()
	h.closed = true
	snapshot := make([]*Execution, 0, len(h.outstanding))
	for e := range h.outstanding {
		snapshot = append(snapshot, e)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, e := range snapshot {
			e.Cancel()
			<-e.Done()
		}
		close(done)
	}()
	return done
}

// remove drops a terminal execution from the outstanding set.
func (h *HTTPQueryExecutor) remove(exec *Execution) {
	h.mu.Lock()
	delete(h.outstanding, exec)
	h.mu.Unlock()
}
