package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/errors"
)

// relative time units accepted in "<n><unit>-ago" expressions.
var relativeUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
	"n":  30 * 24 * time.Hour,  // month
	"y":  365 * 24 * time.Hour, // year
}

// ParseTime parses an absolute or relative time expression against the
// current clock. Supported forms:
//
//   - "now" — the current time
//   - "<n><unit>-ago" — relative offsets, units ms/s/m/h/d/w/n/y
//   - unix epoch seconds (10 digits) or milliseconds (13 digits)
//   - RFC3339, e.g. "2026-01-02T15:04:05Z"
func ParseTime(expr string) (time.Time, error) {
	return ParseTimeAt(expr, time.Now())
}

// ParseTimeAt parses expr relative to the supplied clock. Relative
// expressions and "now" resolve against now; absolute forms ignore it.
func ParseTimeAt(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, errors.NewInvalidInput("time", "empty time expression")
	}

	if strings.EqualFold(expr, "now") {
		return now, nil
	}

	if rel, ok := strings.CutSuffix(expr, "-ago"); ok {
		d, err := parseRelative(rel)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d), nil
	}

	// Unix epoch seconds or milliseconds
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		if len(expr) > 10 {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}

	if t, err := time.Parse(time.RFC3339, expr); err == nil {
		return t, nil
	}

	return time.Time{}, errors.NewInvalidInput("time", "unrecognized time expression: "+expr)
}

// parseRelative parses the "<n><unit>" half of a relative expression.
func parseRelative(rel string) (time.Duration, error) {
	// Longest unit suffix wins so "1ms" is not read as "1m" + "s".
	var unit string
	var scale time.Duration
	for u, s := range relativeUnits {
		if strings.HasSuffix(rel, u) && len(u) > len(unit) {
			unit = u
			scale = s
		}
	}
	if unit == "" {
		return 0, errors.NewInvalidInput("time", "unrecognized relative unit in: "+rel)
	}

	n, err := strconv.ParseInt(strings.TrimSuffix(rel, unit), 10, 64)
	if err != nil || n < 0 {
		return 0, errors.NewInvalidInput("time", "invalid relative amount in: "+rel)
	}
	return time.Duration(n) * scale, nil
}

// StartTime resolves the query's start bound against now.
func (q *TimeSeriesQuery) StartTime(now time.Time) (time.Time, error) {
	if q.Time == nil {
		return time.Time{}, errors.NewInvalidInput("time", "timespan is required")
	}
	return ParseTimeAt(q.Time.Start, now)
}

// EndTime resolves the query's end bound against now. An empty end means now.
func (q *TimeSeriesQuery) EndTime(now time.Time) (time.Time, error) {
	if q.Time == nil {
		return time.Time{}, errors.NewInvalidInput("time", "timespan is required")
	}
	if q.Time.End == "" {
		return now, nil
	}
	return ParseTimeAt(q.Time.End, now)
}
