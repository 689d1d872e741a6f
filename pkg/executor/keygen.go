package executor

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/query"
	"github.com/cespare/xxhash/v2"
)

// KeyGenerator produces the cache key bytes for a query. Generation must be
// deterministic for a given query so lookups and populates agree.
type KeyGenerator interface {
	Generate(ctx context.Context, q *query.TimeSeriesQuery) ([]byte, error)
}

// keyMagic prefixes every generated key, versioning the key layout so a
// format change can't read entries written under the old one.
var keyMagic = []byte("TSQ1")

// keyTimeBucket quantizes resolved time bounds so queries with relative
// expressions ("1h-ago") map to the same key for the bucket's duration.
const keyTimeBucket = time.Minute

// nowFn is the clock; tests substitute it.
var nowFn = time.Now

// DefaultKeyGenerator hashes the time-stripped query with xxhash and appends
// the resolved time bounds, so the same query shape over different windows
// shares a common key prefix.
type DefaultKeyGenerator struct{}

// NewDefaultKeyGenerator returns the default key generator.
func NewDefaultKeyGenerator() *DefaultKeyGenerator {
	return &DefaultKeyGenerator{}
}

// Generate returns the cache key for q: magic, query-shape hash, start and
// end unix seconds.
func (g *DefaultKeyGenerator) Generate(ctx context.Context, q *query.TimeSeriesQuery) ([]byte, error) {
	if q == nil {
		return nil, errors.NewInvalidInput("query", "query is required")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// Hash the query with its timespan bounds blanked so only the shape
	// (metrics, filters, aggregation) contributes.
	stripped := *q
	ts := *q.Time
	ts.Start = ""
	ts.End = ""
	stripped.Time = &ts

	shape, err := json.Marshal(&stripped)
	if err != nil {
		return nil, errors.NewPermanent("failed to serialize query for key generation", err)
	}

	now := nowFn()
	start, err := q.StartTime(now)
	if err != nil {
		return nil, err
	}
	end, err := q.EndTime(now)
	if err != nil {
		return nil, err
	}

	key := make([]byte, 0, len(keyMagic)+24)
	key = append(key, keyMagic...)
	key = binary.BigEndian.AppendUint64(key, xxhash.Sum64(shape))
	key = binary.BigEndian.AppendUint64(key, uint64(start.Truncate(keyTimeBucket).Unix()))
	key = binary.BigEndian.AppendUint64(key, uint64(end.Truncate(keyTimeBucket).Unix()))
	return key, nil
}
