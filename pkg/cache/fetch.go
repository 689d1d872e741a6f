package cache

import (
	"sync"

	"github.com/Combine-Capital/tsqi/pkg/errors"
)

// Fetch is the handle for one asynchronous cache lookup. It resolves exactly
// once — with bytes, a nil miss, or an error — and can be cancelled. Late
// resolution attempts after cancel are discarded.
type Fetch struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	data      []byte
	err       error
	cancelled bool
	onCancel  func()
}

// NewFetch creates an unresolved fetch handle. onCancel, if non-nil, is
// invoked once when the handle is cancelled; backends use it to abort the
// underlying lookup.
func NewFetch(onCancel func()) *Fetch {
	return &Fetch{
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// Callback resolves the fetch with data. nil data signals a miss. It reports
// whether this call won the resolution.
func (f *Fetch) Callback(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed {
		return false
	}
	f.completed = true
	f.data = data
	close(f.done)
	return true
}

// Errback resolves the fetch with an error. It reports whether this call won
// the resolution.
func (f *Fetch) Errback(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed {
		return false
	}
	f.completed = true
	f.err = err
	close(f.done)
	return true
}

// Cancel aborts the fetch. If the fetch has not resolved yet it resolves
// with a CancelledError. Idempotent; the cancelled flag is observable even
// when the fetch had already resolved.
func (f *Fetch) Cancel() {
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		return
	}
	f.cancelled = true
	onCancel := f.onCancel
	if !f.completed {
		f.completed = true
		f.err = errors.NewCancelled("cache", "fetch cancelled")
		close(f.done)
	}
	f.mu.Unlock()

	if onCancel != nil {
		onCancel()
	}
}

// Done returns a channel closed when the fetch resolves.
func (f *Fetch) Done() <-chan struct{} {
	return f.done
}

// Result returns the resolved bytes and error. Valid only after Done is
// closed; nil bytes with a nil error is a miss.
func (f *Fetch) Result() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.err
}

// Cancelled reports whether Cancel was called.
func (f *Fetch) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Completed reports whether the fetch has resolved.
func (f *Fetch) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}
