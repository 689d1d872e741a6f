package executor

import (
	"context"
	"sync"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/query"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
	"github.com/google/uuid"
)

// Execution is the single-completion future for one in-flight query. It
// resolves exactly once — with a result, an error, or a cancellation error —
// and late resolution attempts are discarded. Executors returning an
// Execution own its cancel behavior via the onCancel hook.
type Execution struct {
	id    uuid.UUID
	query *query.TimeSeriesQuery

	mu        sync.Mutex
	done      chan struct{}
	completed bool
	result    *timeseries.QueryResult
	err       error
	cancelled bool

	// onCancel runs once on the first Cancel. When nil, Cancel fails the
	// future with a CancelledError directly.
	onCancel func()
}

// NewExecution creates an unresolved execution for q. onCancel, if non-nil,
// replaces the default cancel behavior; executors use it to tear down their
// subrequests before failing the future.
func NewExecution(q *query.TimeSeriesQuery, onCancel func()) *Execution {
	return &Execution{
		id:       uuid.New(),
		query:    q,
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// ID returns the execution's request ID, used for log and trace correlation.
func (e *Execution) ID() uuid.UUID {
	return e.id
}

// Query returns the query this execution answers.
func (e *Execution) Query() *query.TimeSeriesQuery {
	return e.query
}

// Complete resolves the future with a result. It reports whether this call
// won the resolution; late completions are discarded.
func (e *Execution) Complete(result *timeseries.QueryResult) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed {
		return false
	}
	e.completed = true
	e.result = result
	close(e.done)
	return true
}

// Fail resolves the future with an error. It reports whether this call won
// the resolution; late failures are discarded.
func (e *Execution) Fail(err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed {
		return false
	}
	e.completed = true
	e.err = err
	close(e.done)
	return true
}

// Cancel aborts the execution. The first call marks the execution cancelled
// and runs the owner's cancel hook (or, without one, fails the future with a
// CancelledError). Cancelling a completed execution only sets the observable
// cancelled flag.
func (e *Execution) Cancel() {
	e.mu.Lock()
	if e.cancelled {
		e.mu.Unlock()
		return
	}
	e.cancelled = true
	onCancel := e.onCancel
	alreadyDone := e.completed
	if onCancel == nil && !alreadyDone {
		e.completed = true
		e.err = errors.NewCancelled("execution", "query execution cancelled")
		close(e.done)
	}
	e.mu.Unlock()

	if onCancel != nil && !alreadyDone {
		onCancel()
	}
}

// Done returns a channel closed when the future resolves.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Result returns the resolved value and error. Valid only after Done is
// closed.
func (e *Execution) Result() (*timeseries.QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.err
}

// Wait blocks until the future resolves or ctx expires.
func (e *Execution) Wait(ctx context.Context) (*timeseries.QueryResult, error) {
	select {
	case <-e.done:
		return e.Result()
	case <-ctx.Done():
		return nil, errors.NewCancelledWithCause("execution", "wait aborted", ctx.Err())
	}
}

// Completed reports whether the future has resolved.
func (e *Execution) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// Cancelled reports whether Cancel was called.
func (e *Execution) Cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// newRequestID mints the per-execution request ID.
func newRequestID() uuid.UUID {
	return uuid.New()
}

// completedExecution returns an execution already failed with err; executors
// use it to reject queries synchronously.
func completedExecution(q *query.TimeSeriesQuery, err error) *Execution {
	e := NewExecution(q, nil)
	e.Fail(err)
	return e
}
