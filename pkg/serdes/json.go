package serdes

import (
	"encoding/json"
	"io"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
)

// JSONSerdes encodes results as JSON. Larger on the wire than msgpack but
// human-readable; useful when cache contents are inspected by hand.
type JSONSerdes struct{}

// NewJSON returns the JSON codec.
func NewJSON() *JSONSerdes {
	return &JSONSerdes{}
}

// Name returns the codec's registry name.
func (s *JSONSerdes) Name() string {
	return "json"
}

// Serialize writes the JSON form of result to w.
func (s *JSONSerdes) Serialize(w io.Writer, result *timeseries.QueryResult) error {
	if result == nil {
		return errors.NewInvalidInput("result", "cannot serialize a nil result")
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		return errors.NewPermanent("failed to json-encode result", err)
	}
	return nil
}

// Deserialize reads one JSON-encoded result from r.
func (s *JSONSerdes) Deserialize(r io.Reader) (*timeseries.QueryResult, error) {
	var result timeseries.QueryResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, errors.NewPermanent("failed to json-decode result", err)
	}
	return &result, nil
}
