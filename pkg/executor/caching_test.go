package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/executor"
	"github.com/Combine-Capital/tsqi/pkg/query"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
)

func TestConstructor(t *testing.T) {
	h := newHarness(t, defaultConfig())

	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}
	if cqe.Plugin() != h.plugin {
		t.Error("Plugin() did not return the registered plugin")
	}
	if cqe.Serdes() != h.codec {
		t.Error("Serdes() did not return the registered codec")
	}
	if _, ok := cqe.KeyGenerator().(*executor.DefaultKeyGenerator); !ok {
		t.Errorf("KeyGenerator() = %T, want *DefaultKeyGenerator", cqe.KeyGenerator())
	}
	ds := cqe.DownstreamExecutors()
	if len(ds) != 1 || ds[0] != h.downstream {
		t.Errorf("DownstreamExecutors() = %v, want the wired downstream", ds)
	}

	t.Run("nil node", func(t *testing.T) {
		if _, err := executor.NewCachingQueryExecutor(nil); !errors.IsInvalidInput(err) {
			t.Errorf("error = %v, want InvalidInputError", err)
		}
	})

	t.Run("missing default config", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := executor.NewCachingQueryExecutor(h.node); !errors.IsInvalidInput(err) {
			t.Errorf("error = %v, want InvalidInputError", err)
		}
	})

	t.Run("missing downstream", func(t *testing.T) {
		h := newHarness(t, defaultConfig())
		h.graph.SetDownstream("LocalCache", nil)
		if _, err := executor.NewCachingQueryExecutor(h.node); !errors.IsInvalidInput(err) {
			t.Errorf("error = %v, want InvalidInputError", err)
		}
	})

	t.Run("missing plugin", func(t *testing.T) {
		h := newHarness(t, defaultConfig())
		node := executor.NewGraphNode("LocalCache", defaultConfig(), "unregistered", "msgpack", h.graph)
		if _, err := executor.NewCachingQueryExecutor(node); !errors.IsInvalidInput(err) {
			t.Errorf("error = %v, want InvalidInputError", err)
		}
	})

	t.Run("missing serdes", func(t *testing.T) {
		h := newHarness(t, defaultConfig())
		node := executor.NewGraphNode("LocalCache", defaultConfig(), "mock", "unregistered", h.graph)
		if _, err := executor.NewCachingQueryExecutor(node); !errors.IsInvalidInput(err) {
			t.Errorf("error = %v, want InvalidInputError", err)
		}
	})
}

func TestExecuteCacheMiss(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)
	if h.plugin.fetchCount() != 1 {
		t.Errorf("fetch count = %d, want 1", h.plugin.fetchCount())
	}
	if h.downstream.callCount() != 0 {
		t.Errorf("downstream called %d times before cache outcome, want 0", h.downstream.callCount())
	}
	if !contains(cqe.OutstandingRequests(), exec) {
		t.Error("execution not in outstanding set")
	}

	// cache miss
	h.cacheExec.Callback(nil)

	waitFor(t, func() bool { return h.downstream.callCount() == 1 }, "downstream start")
	assertPending(t, exec)

	results := timeseries.NewQueryResult()
	h.dsExec.Complete(results)
	waitDone(t, exec)

	got, gotErr := exec.Result()
	if gotErr != nil {
		t.Fatalf("Result() error = %v", gotErr)
	}
	if got != results {
		t.Error("Result() did not return the downstream result")
	}
	waitFor(t, func() bool { return h.plugin.writeCount() == 1 }, "cache populate")
	if ttl := h.plugin.lastWrite().ttl; ttl != time.Minute {
		t.Errorf("populate TTL = %v, want 1m", ttl)
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("completed execution still in outstanding set")
	}
	if h.dsExec.Cancelled() {
		t.Error("downstream should not be cancelled")
	}
	if h.cacheExec.Cancelled() {
		t.Error("cache fetch should not be cancelled")
	}
}

func TestExecuteCacheHit(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)

	// cache hit
	h.cacheExec.Callback(serializedEmptyResult(t, h.codec))
	waitDone(t, exec)

	got, gotErr := exec.Result()
	if gotErr != nil {
		t.Fatalf("Result() error = %v", gotErr)
	}
	if !got.Empty() {
		t.Errorf("Result() = %+v, want empty result", got)
	}
	if h.downstream.callCount() != 0 {
		t.Errorf("downstream called %d times on a hit, want 0", h.downstream.callCount())
	}
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d on a hit, want 0", h.plugin.writeCount())
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("completed execution still in outstanding set")
	}
	if h.dsExec.Cancelled() || h.cacheExec.Cancelled() {
		t.Error("no subrequest should be cancelled on a sequential hit")
	}
}

func TestExecuteCacheMissNoCaching(t *testing.T) {
	cfg := executor.NewConfigBuilder().
		SetExpiration(0).
		SetMaxExpiration(120000).
		SetExecutorID("LocalCache").
		SetExecutorType("CachingQueryExecutor").
		Build()
	h := newHarness(t, cfg)
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	if h.plugin.fetchCount() != 1 {
		t.Errorf("fetch count = %d, want 1 (lookup still happens with expiration 0)", h.plugin.fetchCount())
	}

	h.cacheExec.Callback(nil)
	waitFor(t, func() bool { return h.downstream.callCount() == 1 }, "downstream start")

	results := timeseries.NewQueryResult()
	h.dsExec.Complete(results)
	waitDone(t, exec)

	if got, _ := exec.Result(); got != results {
		t.Error("Result() did not return the downstream result")
	}
	time.Sleep(20 * time.Millisecond)
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d with expiration 0, want 0", h.plugin.writeCount())
	}
}

func TestExecuteSimultaneousCacheFirst(t *testing.T) {
	h := newHarness(t, simultaneousConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)
	if h.plugin.fetchCount() != 1 {
		t.Errorf("fetch count = %d, want 1", h.plugin.fetchCount())
	}
	if h.downstream.callCount() != 1 {
		t.Errorf("downstream call count = %d, want 1 (started immediately)", h.downstream.callCount())
	}

	// cache hit wins
	h.cacheExec.Callback(serializedEmptyResult(t, h.codec))
	waitDone(t, exec)

	got, gotErr := exec.Result()
	if gotErr != nil {
		t.Fatalf("Result() error = %v", gotErr)
	}
	if !got.Empty() {
		t.Errorf("Result() = %+v, want empty result", got)
	}
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d on a hit, want 0", h.plugin.writeCount())
	}
	waitFor(t, h.dsExec.Cancelled, "downstream cancel")
	if h.cacheExec.Cancelled() {
		t.Error("winning cache fetch should not be cancelled")
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("completed execution still in outstanding set")
	}
}

func TestExecuteSimultaneousDownstreamFirst(t *testing.T) {
	h := newHarness(t, simultaneousConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)

	// downstream wins
	results := timeseries.NewQueryResult()
	h.dsExec.Complete(results)
	waitDone(t, exec)

	if got, _ := exec.Result(); got != results {
		t.Error("Result() did not return the downstream result")
	}
	waitFor(t, func() bool { return h.plugin.writeCount() == 1 }, "cache populate")
	waitFor(t, h.cacheExec.Cancelled, "cache fetch cancel")
	if h.dsExec.Cancelled() {
		t.Error("winning downstream should not be cancelled")
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("completed execution still in outstanding set")
	}
}

func TestExecuteCacheError(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)

	// cache failure is absorbed; the downstream is consulted
	h.cacheExec.Errback(errors.NewTemporary("cache backend down", nil))
	waitFor(t, func() bool { return h.downstream.callCount() == 1 }, "downstream start")
	assertPending(t, exec)

	results := timeseries.NewQueryResult()
	h.dsExec.Complete(results)
	waitDone(t, exec)

	got, gotErr := exec.Result()
	if gotErr != nil {
		t.Fatalf("cache error leaked to the future: %v", gotErr)
	}
	if got != results {
		t.Error("Result() did not return the downstream result")
	}
	waitFor(t, func() bool { return h.plugin.writeCount() == 1 }, "cache populate")
}

func TestExecuteCacheMissDownstreamError(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	h.cacheExec.Callback(nil)
	waitFor(t, func() bool { return h.downstream.callCount() == 1 }, "downstream start")

	dsErr := errors.NewTemporary("downstream exploded", nil)
	h.dsExec.Fail(dsErr)
	waitDone(t, exec)

	if _, gotErr := exec.Result(); gotErr != dsErr {
		t.Errorf("Result() error = %v, want the downstream error verbatim", gotErr)
	}
	time.Sleep(20 * time.Millisecond)
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d after downstream error, want 0", h.plugin.writeCount())
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("completed execution still in outstanding set")
	}
}

func TestExecuteSimultaneousCacheError(t *testing.T) {
	h := newHarness(t, simultaneousConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)

	// cache loses with an error; the already-running downstream decides
	h.cacheExec.Errback(errors.NewTemporary("cache backend down", nil))
	assertPending(t, exec)
	if h.downstream.callCount() != 1 {
		t.Errorf("downstream call count = %d, want 1 (no second start)", h.downstream.callCount())
	}

	results := timeseries.NewQueryResult()
	h.dsExec.Complete(results)
	waitDone(t, exec)

	if got, _ := exec.Result(); got != results {
		t.Error("Result() did not return the downstream result")
	}
	waitFor(t, func() bool { return h.plugin.writeCount() == 1 }, "cache populate")
	if h.dsExec.Cancelled() || h.cacheExec.Cancelled() {
		t.Error("no cancel expected: both subrequests resolved on their own")
	}
}

func TestExecuteSimultaneousDownstreamError(t *testing.T) {
	h := newHarness(t, simultaneousConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)

	dsErr := errors.NewTemporary("downstream exploded", nil)
	h.dsExec.Fail(dsErr)
	waitDone(t, exec)

	if _, gotErr := exec.Result(); gotErr != dsErr {
		t.Errorf("Result() error = %v, want the downstream error verbatim", gotErr)
	}
	waitFor(t, h.cacheExec.Cancelled, "cache fetch cancel")
	if h.dsExec.Cancelled() {
		t.Error("downstream should not be cancelled")
	}
	time.Sleep(20 * time.Millisecond)
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d after downstream error, want 0", h.plugin.writeCount())
	}
}

func TestCacheDecodeFailureFallsThrough(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)

	// Undecodable entry reads as a miss
	h.cacheExec.Callback([]byte("\x00\x01 definitely not msgpack"))
	waitFor(t, func() bool { return h.downstream.callCount() == 1 }, "downstream start")

	results := timeseries.NewQueryResult()
	h.dsExec.Complete(results)
	waitDone(t, exec)

	if got, gotErr := exec.Result(); gotErr != nil || got != results {
		t.Errorf("Result() = (%v, %v), want the downstream result", got, gotErr)
	}
	waitFor(t, func() bool { return h.plugin.writeCount() == 1 }, "cache populate")
}

func TestExecuteCacheWaitCancel(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)

	exec.Cancel()
	waitDone(t, exec)

	if _, gotErr := exec.Result(); !errors.IsCancelled(gotErr) {
		t.Errorf("Result() error = %v, want CancelledError", gotErr)
	}
	if !h.cacheExec.Cancelled() {
		t.Error("live cache fetch should be cancelled")
	}
	if h.downstream.callCount() != 0 {
		t.Errorf("downstream called %d times after cancel, want 0", h.downstream.callCount())
	}
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d after cancel, want 0", h.plugin.writeCount())
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("cancelled execution still in outstanding set")
	}

	// Late cache callback after cancel is discarded
	h.cacheExec.Callback(serializedEmptyResult(t, h.codec))
	time.Sleep(20 * time.Millisecond)
	if _, gotErr := exec.Result(); !errors.IsCancelled(gotErr) {
		t.Errorf("late callback overwrote the cancellation: %v", gotErr)
	}
	if h.downstream.callCount() != 0 {
		t.Error("late callback started the downstream")
	}
}

func TestExecuteDownstreamWaitCancel(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	h.cacheExec.Callback(nil)
	waitFor(t, func() bool { return h.downstream.callCount() == 1 }, "downstream start")

	exec.Cancel()
	waitDone(t, exec)

	if _, gotErr := exec.Result(); !errors.IsCancelled(gotErr) {
		t.Errorf("Result() error = %v, want CancelledError", gotErr)
	}
	if !h.dsExec.Cancelled() {
		t.Error("live downstream should be cancelled")
	}
	if h.cacheExec.Cancelled() {
		t.Error("already-resolved cache fetch should not be cancelled")
	}
	if h.plugin.writeCount() != 0 {
		t.Errorf("populate count = %d after cancel, want 0", h.plugin.writeCount())
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("cancelled execution still in outstanding set")
	}
}

func TestIdempotentCancel(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	exec.Cancel()
	exec.Cancel()
	exec.Cancel()
	waitDone(t, exec)

	if _, gotErr := exec.Result(); !errors.IsCancelled(gotErr) {
		t.Errorf("Result() error = %v, want a single CancelledError", gotErr)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	exec := cqe.ExecuteQuery(context.Background(), h.query, nil)
	assertPending(t, exec)

	select {
	case <-cqe.Close():
	case <-time.After(2 * time.Second):
		t.Fatal("Close() never resolved")
	}

	if _, gotErr := exec.Result(); !errors.IsCancelled(gotErr) {
		t.Errorf("Result() error = %v, want CancelledError", gotErr)
	}
	if !h.cacheExec.Cancelled() {
		t.Error("live cache fetch should be cancelled on close")
	}
	if h.dsExec.Cancelled() {
		t.Error("never-started downstream should not be cancelled")
	}
	if h.downstream.callCount() != 0 {
		t.Errorf("downstream called %d times, want 0", h.downstream.callCount())
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("cancelled execution still in outstanding set")
	}

	// A closed executor rejects new queries synchronously
	rejected := cqe.ExecuteQuery(context.Background(), h.query, nil)
	waitDone(t, rejected)
	if _, gotErr := rejected.Result(); !errors.IsCancelled(gotErr) {
		t.Errorf("post-close ExecuteQuery() error = %v, want CancelledError", gotErr)
	}

	// Idempotent
	select {
	case <-cqe.Close():
	case <-time.After(2 * time.Second):
		t.Fatal("second Close() never resolved")
	}
}

func TestExecuteQueryRejectsInvalidQuery(t *testing.T) {
	h := newHarness(t, defaultConfig())
	cqe, err := executor.NewCachingQueryExecutor(h.node)
	if err != nil {
		t.Fatalf("NewCachingQueryExecutor() failed: %v", err)
	}

	bad := &query.TimeSeriesQuery{Time: &query.Timespan{Start: "gibberish"}}
	exec := cqe.ExecuteQuery(context.Background(), bad, nil)
	waitDone(t, exec)

	if _, gotErr := exec.Result(); !errors.IsInvalidInput(gotErr) {
		t.Errorf("Result() error = %v, want InvalidInputError", gotErr)
	}
	if contains(cqe.OutstandingRequests(), exec) {
		t.Error("rejected execution must not be outstanding")
	}
	if h.plugin.fetchCount() != 0 {
		t.Errorf("fetch count = %d for rejected query, want 0", h.plugin.fetchCount())
	}
}
