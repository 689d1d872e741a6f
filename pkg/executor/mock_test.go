package executor_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/cache"
	"github.com/Combine-Capital/tsqi/pkg/executor"
	"github.com/Combine-Capital/tsqi/pkg/query"
	"github.com/Combine-Capital/tsqi/pkg/registry"
	"github.com/Combine-Capital/tsqi/pkg/serdes"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
	"go.opentelemetry.io/otel/trace"
)

// mockPlugin hands out a prepared fetch handle and records Cache writes,
// letting tests drive the cache subrequest by hand.
type mockPlugin struct {
	mu       sync.Mutex
	prepared *cache.Fetch
	fetches  int
	writes   []cacheWrite
}

type cacheWrite struct {
	key   []byte
	value []byte
	ttl   time.Duration
}

func (p *mockPlugin) Name() string { return "mock" }

func (p *mockPlugin) Fetch(ctx context.Context, key []byte, span trace.Span) *cache.Fetch {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
	return p.prepared
}

func (p *mockPlugin) Cache(key, value []byte, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, cacheWrite{key: key, value: value, ttl: ttl})
}

func (p *mockPlugin) CheckHealth(ctx context.Context) error { return nil }
func (p *mockPlugin) Close() error                          { return nil }

func (p *mockPlugin) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

func (p *mockPlugin) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *mockPlugin) lastWrite() cacheWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes[len(p.writes)-1]
}

// mockDownstream hands out a prepared execution and counts calls, letting
// tests drive the downstream subrequest by hand.
type mockDownstream struct {
	mu       sync.Mutex
	prepared *executor.Execution
	calls    int
}

func (d *mockDownstream) ID() string { return "MockDownstream" }

func (d *mockDownstream) ExecuteQuery(ctx context.Context, q *query.TimeSeriesQuery, span trace.Span) *executor.Execution {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.prepared
}

func (d *mockDownstream) Close() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func (d *mockDownstream) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// harness mirrors the fixture every caching executor test starts from: a
// registry with one mock plugin and the msgpack codec, a graph with one
// mock downstream, and a node named LocalCache.
type harness struct {
	reg        *registry.Registry
	graph      *executor.Graph
	node       *executor.GraphNode
	plugin     *mockPlugin
	codec      serdes.Serdes
	downstream *mockDownstream
	cacheExec  *cache.Fetch
	dsExec     *executor.Execution
	query      *query.TimeSeriesQuery
}

func newHarness(t *testing.T, cfg *executor.Config) *harness {
	t.Helper()

	q := &query.TimeSeriesQuery{
		Time:    &query.Timespan{Start: "1h-ago"},
		Metrics: []*query.Metric{{Metric: "system.cpu.user"}},
	}

	h := &harness{
		reg:       registry.New(),
		codec:     serdes.NewMsgpack(),
		cacheExec: cache.NewFetch(nil),
		dsExec:    executor.NewExecution(q, nil),
		query:     q,
	}
	h.plugin = &mockPlugin{prepared: h.cacheExec}
	h.downstream = &mockDownstream{prepared: h.dsExec}

	if err := h.reg.RegisterPlugin(h.plugin); err != nil {
		t.Fatalf("failed to register plugin: %v", err)
	}
	if err := h.reg.RegisterSerdes(h.codec); err != nil {
		t.Fatalf("failed to register serdes: %v", err)
	}

	h.graph = executor.NewGraph(h.reg)
	h.graph.SetDownstream("LocalCache", h.downstream)
	h.node = executor.NewGraphNode("LocalCache", cfg, "mock", "msgpack", h.graph)
	return h
}

// defaultConfig mirrors the sequential-mode config the fixture uses.
func defaultConfig() *executor.Config {
	return executor.NewConfigBuilder().
		SetExpiration(60000).
		SetMaxExpiration(120000).
		SetExecutorID("LocalCache").
		SetExecutorType("CachingQueryExecutor").
		Build()
}

// simultaneousConfig mirrors the racing-mode config.
func simultaneousConfig() *executor.Config {
	return executor.NewConfigBuilder().
		SetExpiration(60000).
		SetMaxExpiration(120000).
		SetSimultaneous(true).
		SetExecutorID("LocalCache").
		SetExecutorType("CachingQueryExecutor").
		Build()
}

// serializedEmptyResult returns codec bytes for an empty result.
func serializedEmptyResult(t *testing.T, codec serdes.Serdes) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := codec.Serialize(&buf, timeseries.NewQueryResult()); err != nil {
		t.Fatalf("failed to serialize empty result: %v", err)
	}
	return buf.Bytes()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// waitDone fails the test unless the execution resolves promptly.
func waitDone(t *testing.T, exec *executor.Execution) {
	t.Helper()
	select {
	case <-exec.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("execution never resolved")
	}
}

// assertPending verifies the execution has not resolved after a settle delay.
func assertPending(t *testing.T, exec *executor.Execution) {
	t.Helper()
	time.Sleep(20 * time.Millisecond)
	if exec.Completed() {
		t.Fatal("execution resolved prematurely")
	}
}

// contains reports whether execs includes exec.
func contains(execs []*executor.Execution, exec *executor.Execution) bool {
	for _, e := range execs {
		if e == exec {
			return true
		}
	}
	return false
}
