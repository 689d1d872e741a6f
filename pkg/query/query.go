// Package query defines the time series query model accepted by the
// execution graph. A query names one or more metrics and a timespan whose
// start and end accept absolute timestamps or relative expressions such as
// "1h-ago".
//
// Example usage:
//
//	q := &query.TimeSeriesQuery{
//	    Time: &query.Timespan{Start: "1h-ago", Aggregator: "sum"},
//	    Metrics: []*query.Metric{
//	        {Metric: "system.cpu.user"},
//	    },
//	}
//	if err := q.Validate(); err != nil {
//	    return err
//	}
package query

import (
	"encoding/json"

	"github.com/Combine-Capital/tsqi/pkg/errors"
)

// Timespan bounds a query in time. Start is required; End defaults to "now".
type Timespan struct {
	// Start is an absolute timestamp (unix seconds or milliseconds,
	// RFC3339) or a relative expression such as "1h-ago".
	Start string `json:"start"`

	// End bounds the query on the right; empty means now.
	End string `json:"end,omitempty"`

	// Aggregator is the default aggregation function applied to all
	// metrics that don't override it.
	Aggregator string `json:"aggregator,omitempty"`

	// Downsample is an optional downsampling specification, e.g. "1m-avg".
	Downsample string `json:"downsample,omitempty"`
}

// Metric selects a single metric with optional tag filters.
type Metric struct {
	// Metric is the metric name, e.g. "system.cpu.user".
	Metric string `json:"metric"`

	// Aggregator overrides the timespan default for this metric.
	Aggregator string `json:"aggregator,omitempty"`

	// Downsample overrides the timespan default for this metric.
	Downsample string `json:"downsample,omitempty"`

	// Tags filters series by exact tag values.
	Tags map[string]string `json:"tags,omitempty"`
}

// TimeSeriesQuery is one query against the execution graph.
type TimeSeriesQuery struct {
	Time    *Timespan `json:"time"`
	Metrics []*Metric `json:"metrics"`
}

// Validate checks the query for structural problems. It returns an
// InvalidInputError naming the offending field.
func (q *TimeSeriesQuery) Validate() error {
	if q.Time == nil {
		return errors.NewInvalidInput("time", "timespan is required")
	}
	if q.Time.Start == "" {
		return errors.NewInvalidInput("time.start", "start time is required")
	}
	if _, err := ParseTime(q.Time.Start); err != nil {
		return errors.NewInvalidInputWithCause("time.start", "unparseable start time", err)
	}
	if q.Time.End != "" {
		if _, err := ParseTime(q.Time.End); err != nil {
			return errors.NewInvalidInputWithCause("time.end", "unparseable end time", err)
		}
	}
	if len(q.Metrics) == 0 {
		return errors.NewInvalidInput("metrics", "at least one metric is required")
	}
	for _, m := range q.Metrics {
		if m == nil || m.Metric == "" {
			return errors.NewInvalidInput("metrics", "metric name is required")
		}
	}
	return nil
}

// MarshalJSON uses the default struct encoding; defined explicitly so the
// wire shape stays stable if internal fields are added later.
func (q *TimeSeriesQuery) MarshalJSON() ([]byte, error) {
	type alias TimeSeriesQuery
	return json.Marshal((*alias)(q))
}

// String returns the canonical JSON form of the query.
func (q *TimeSeriesQuery) String() string {
	data, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(data)
}
