package executor

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/cache"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/logging"
	"github.com/Combine-Capital/tsqi/pkg/metrics"
	"github.com/Combine-Capital/tsqi/pkg/query"
	"github.com/Combine-Capital/tsqi/pkg/serdes"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
	"go.opentelemetry.io/otel/trace"
)

// CachingQueryExecutor fronts a single downstream executor with a pluggable
// cache. In sequential mode (the default) the cache is consulted first and
// the downstream only runs on a miss; in simultaneous mode both run at once
// and the first terminal outcome wins. Freshly computed results are written
// back when the config's expiration allows.
//
// Cache failures are never fatal: a fetch error or an undecodable entry is
// treated as a miss and the downstream outcome decides the query.
type CachingQueryExecutor struct {
	id         string
	config     *Config
	plugin     cache.Plugin
	serdes     serdes.Serdes
	keyGen     KeyGenerator
	downstream QueryExecutor

	mu          sync.Mutex
	outstanding map[*cachingExecution]struct{}
	closed      bool
}

// NewCachingQueryExecutor constructs the executor from a graph node. It
// fails with an InvalidInput error when the node, its default config, the
// downstream wiring, or either registry lookup is missing.
func NewCachingQueryExecutor(node *GraphNode) (*CachingQueryExecutor, error) {
	if node == nil {
		return nil, errors.NewInvalidInput("node", "execution graph node is required")
	}
	cfg := node.DefaultConfig()
	if cfg == nil {
		return nil, errors.NewInvalidInput("config", "default config is required")
	}
	if cfg.Expiration() < 0 || cfg.MaxExpiration() < 0 {
		return nil, errors.NewInvalidInput("config", "expiration must be non-negative")
	}
	graph := node.Graph()
	if graph == nil {
		return nil, errors.NewInvalidInput("graph", "execution graph is required")
	}
	downstream := graph.DownstreamExecutor(node.ID())
	if downstream == nil {
		return nil, errors.NewInvalidInput("downstream", "no downstream executor for node "+node.ID())
	}
	reg := graph.Registry()
	if reg == nil {
		return nil, errors.NewInvalidInput("registry", "component registry is required")
	}
	plugin := reg.Plugin(node.PluginName())
	if plugin == nil {
		return nil, errors.NewInvalidInput("plugin", "no cache plugin registered as "+node.PluginName())
	}
	codec := reg.Serdes(node.SerdesName())
	if codec == nil {
		return nil, errors.NewInvalidInput("serdes", "no serdes registered as "+node.SerdesName())
	}

	if metrics.IsInitialized() {
		_ = metrics.InitStandardMetrics("tsqi")
	}

	return &CachingQueryExecutor{
		id:          node.ID(),
		config:      cfg,
		plugin:      plugin,
		serdes:      codec,
		keyGen:      NewDefaultKeyGenerator(),
		downstream:  downstream,
		outstanding: make(map[*cachingExecution]struct{}),
	}, nil
}

// ID returns the executor's identifier within the graph.
func (x *CachingQueryExecutor) ID() string {
	return x.id
}

// Config returns the executor's bound config.
func (x *CachingQueryExecutor) Config() *Config {
	return x.config
}

// Plugin returns the resolved cache plugin. Observational.
func (x *CachingQueryExecutor) Plugin() cache.Plugin {
	return x.plugin
}

// Serdes returns the resolved result codec. Observational.
func (x *CachingQueryExecutor) Serdes() serdes.Serdes {
	return x.serdes
}

// KeyGenerator returns the executor's key generator. Observational.
func (x *CachingQueryExecutor) KeyGenerator() KeyGenerator {
	return x.keyGen
}

// DownstreamExecutors returns the wired downstream executors. Observational.
func (x *CachingQueryExecutor) DownstreamExecutors() []QueryExecutor {
	return []QueryExecutor{x.downstream}
}

// OutstandingRequests returns the executions started but not yet completed.
// Observational.
func (x *CachingQueryExecutor) OutstandingRequests() []*Execution {
	x.mu.Lock()
	defer x.mu.Unlock()
	execs := make([]*Execution, 0, len(x.outstanding))
	for ce := range x.outstanding {
		execs = append(execs, &ce.Execution)
	}
	return execs
}

// ExecuteQuery starts the query and returns its future synchronously. The
// future is rejected immediately when the executor is closed or the cache
// key cannot be generated.
func (x *CachingQueryExecutor) ExecuteQuery(ctx context.Context, q *query.TimeSeriesQuery, span trace.Span) *Execution {
	x.mu.Lock()
	closed := x.closed
	x.mu.Unlock()
	if closed {
		return completedExecution(q, errors.NewCancelled(x.id, "executor is closed"))
	}

	key, err := x.keyGen.Generate(ctx, q)
	if err != nil {
		return completedExecution(q, err)
	}

	ce := &cachingExecution{
		owner:   x,
		key:     key,
		log:     logging.FromContext(ctx).WithComponent("executor").WithExecutor(x.id),
		started: nowFn(),
	}
	ce.Execution.id = newRequestID()
	ce.Execution.query = q
	ce.Execution.done = make(chan struct{})
	ce.Execution.onCancel = ce.cancel

	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return completedExecution(q, errors.NewCancelled(x.id, "executor is closed"))
	}
	x.outstanding[ce] = struct{}{}
	x.mu.Unlock()
	metrics.IncOutstanding(x.id)

	ce.start(ctx, span)
	return &ce.Execution
}

// Close marks the executor closed, cancels every outstanding execution, and
// returns a channel closed once all of them have completed. Idempotent.
func (x *CachingQueryExecutor) Close() <-chan struct{} {
	x.mu.Lock()
	x.closed = true
	snapshot := make([]*cachingExecution, 0, len(x.outstanding))
	for ce := range x.outstanding {
		snapshot = append(snapshot, ce)
	}
	x.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, ce := range snapshot {
			ce.Cancel()
			<-ce.Done()
		}
		close(done)
	}()
	return done
}

// remove drops a terminal execution from the outstanding set.
func (x *CachingQueryExecutor) remove(ce *cachingExecution) {
	x.mu.Lock()
	_, ok := x.outstanding[ce]
	if ok {
		delete(x.outstanding, ce)
	}
	x.mu.Unlock()
	if ok {
		metrics.DecOutstanding(x.id)
	}
}

// cachingExecution is the per-request state machine. All transitions run
// under smu; the embedded Execution's completion guard makes late callbacks
// from the losing subrequest no-ops.
type cachingExecution struct {
	Execution

	owner   *CachingQueryExecutor
	key     []byte
	log     *logging.Logger
	started time.Time

	smu        sync.Mutex
	cacheFetch *cache.Fetch
	downstream *Execution
}

// start launches the cache fetch and, in simultaneous mode, the downstream
// query as well.
func (ce *cachingExecution) start(ctx context.Context, span trace.Span) {
	x := ce.owner

	ce.smu.Lock()
	fetch := x.plugin.Fetch(ctx, ce.key, span)
	ce.cacheFetch = fetch
	var ds *Execution
	if x.config.Simultaneous() {
		ds = x.downstream.ExecuteQuery(ctx, ce.query, nil)
		ce.downstream = ds
	}
	ce.smu.Unlock()

	go ce.watchCache(ctx, fetch)
	if ds != nil {
		go ce.watchDownstream(ds)
	}
}

// watchCache delivers the fetch outcome into the state machine.
func (ce *cachingExecution) watchCache(ctx context.Context, fetch *cache.Fetch) {
	<-fetch.Done()
	data, err := fetch.Result()
	ce.onCacheComplete(ctx, data, err)
}

// watchDownstream delivers the downstream outcome into the state machine.
func (ce *cachingExecution) watchDownstream(ds *Execution) {
	<-ds.Done()
	result, err := ds.Result()
	ce.onDownstreamComplete(result, err)
}

// onCacheComplete handles the cache subrequest's terminal outcome: complete
// on a decodable hit, otherwise fall through to the downstream.
func (ce *cachingExecution) onCacheComplete(ctx context.Context, data []byte, err error) {
	x := ce.owner

	ce.smu.Lock()
	defer ce.smu.Unlock()
	if ce.Completed() {
		return
	}
	ce.cacheFetch = nil

	var result *timeseries.QueryResult
	if err == nil && data != nil {
		result, err = x.serdes.Deserialize(bytes.NewReader(data))
		if err != nil {
			// Undecodable entries read as misses
			ce.log.Warn().Err(err).Msg("discarding undecodable cache entry")
		}
	}

	if result != nil {
		// Hit: cancel the racing downstream and finish.
		if ds := ce.downstream; ds != nil {
			ce.downstream = nil
			ds.Cancel()
		}
		ce.Complete(result)
		metrics.RecordCacheFetch(x.id, metrics.OutcomeHit)
		metrics.RecordQuery(x.id, metrics.OutcomeHit, time.Since(ce.started).Seconds())
		x.remove(ce)
		return
	}

	if err != nil {
		// Cache failures are absorbed; the downstream decides the query.
		ce.log.Warn().Err(err).Msg("cache fetch failed")
		metrics.RecordCacheFetch(x.id, metrics.OutcomeError)
	} else {
		metrics.RecordCacheFetch(x.id, metrics.OutcomeMiss)
	}

	if !x.config.Simultaneous() {
		ds := x.downstream.ExecuteQuery(ctx, ce.query, nil)
		ce.downstream = ds
		go ce.watchDownstream(ds)
	}
	// Simultaneous mode: the downstream is already in flight; keep waiting.
}

// onDownstreamComplete handles the downstream subrequest's terminal outcome.
func (ce *cachingExecution) onDownstreamComplete(result *timeseries.QueryResult, err error) {
	x := ce.owner

	ce.smu.Lock()
	defer ce.smu.Unlock()
	if ce.Completed() {
		return
	}
	ce.downstream = nil

	// Cancel a still-racing cache fetch before completion is observable.
	if fetch := ce.cacheFetch; fetch != nil {
		ce.cacheFetch = nil
		fetch.Cancel()
	}

	if err != nil {
		ce.Fail(err)
		metrics.RecordQuery(x.id, metrics.OutcomeError, time.Since(ce.started).Seconds())
		x.remove(ce)
		return
	}

	ce.Complete(result)
	metrics.RecordQuery(x.id, metrics.OutcomeMiss, time.Since(ce.started).Seconds())
	x.remove(ce)
	ce.populate(result)
}

// populate writes a freshly computed result back to the cache. Emitted at
// most once per execution, only for downstream-origin results, and only when
// the config's expiration and the computed TTL allow. Serialization failures
// suppress the write without affecting the already-completed future.
func (ce *cachingExecution) populate(result *timeseries.QueryResult) {
	x := ce.owner
	if x.config.Expiration() <= 0 {
		return
	}
	ttl := x.config.ttlFor(ce.query, nowFn())
	if ttl <= 0 {
		return
	}

	var buf bytes.Buffer
	if err := x.serdes.Serialize(&buf, result); err != nil {
		ce.log.Warn().Err(err).Msg("populate suppressed: result serialization failed")
		return
	}
	x.plugin.Cache(ce.key, buf.Bytes(), ttl)
	metrics.RecordCachePopulate(x.id)
}

// cancel is the execution's cancel hook: abort live subrequests, fail the
// future with a cancellation error, and drop out of the outstanding set.
func (ce *cachingExecution) cancel() {
	x := ce.owner

	ce.smu.Lock()
	defer ce.smu.Unlock()
	if ce.Completed() {
		return
	}

	if fetch := ce.cacheFetch; fetch != nil {
		ce.cacheFetch = nil
		fetch.Cancel()
	}
	if ds := ce.downstream; ds != nil {
		ce.downstream = nil
		ds.Cancel()
	}

	ce.Fail(errors.NewCancelled(x.id, "query execution cancelled"))
	metrics.RecordQuery(x.id, metrics.OutcomeCancelled, time.Since(ce.started).Seconds())
	x.remove(ce)
}

// ttlFor computes the TTL for a populate. With useTimestamps unset the
// expiration applies verbatim; otherwise the TTL shrinks by the age of the
// query's end bound and is clamped to [0, maxExpiration].
func (c *Config) ttlFor(q *query.TimeSeriesQuery, now time.Time) time.Duration {
	ttl := c.expirationDuration()
	if !c.useTimestamps {
		return ttl
	}

	if end, err := q.EndTime(now); err == nil {
		ttl -= now.Sub(end)
	}
	if ttl < 0 {
		ttl = 0
	}
	if max := c.maxExpirationDuration(); max > 0 && ttl > max {
		ttl = max
	}
	return ttl
}
