// Package serdes provides result codecs for the caching query executor.
// A Serdes turns a QueryResult into the byte stream stored by cache plugins
// and back. Round trips preserve semantic equality; the same codec must be
// used for population and lookup of a given cache namespace.
package serdes

import (
	"io"

	"github.com/Combine-Capital/tsqi/pkg/timeseries"
)

// Serdes serializes and deserializes query results.
type Serdes interface {
	// Serialize writes the wire form of result to w.
	Serialize(w io.Writer, result *timeseries.QueryResult) error

	// Deserialize reads one result from r. A corrupt or truncated stream
	// yields a PermanentError.
	Deserialize(r io.Reader) (*timeseries.QueryResult, error)

	// Name returns the codec's registry name.
	Name() string
}
