package serdes

import (
	"io"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/timeseries"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackSerdes encodes results with msgpack. It is the default codec:
// compact, fast, and schema-tolerant across field additions.
type MsgpackSerdes struct{}

// NewMsgpack returns the msgpack codec.
func NewMsgpack() *MsgpackSerdes {
	return &MsgpackSerdes{}
}

// Name returns the codec's registry name.
func (s *MsgpackSerdes) Name() string {
	return "msgpack"
}

// Serialize writes the msgpack form of result to w.
func (s *MsgpackSerdes) Serialize(w io.Writer, result *timeseries.QueryResult) error {
	if result == nil {
		return errors.NewInvalidInput("result", "cannot serialize a nil result")
	}
	if err := msgpack.NewEncoder(w).Encode(result); err != nil {
		return errors.NewPermanent("failed to msgpack-encode result", err)
	}
	return nil
}

// Deserialize reads one msgpack-encoded result from r.
func (s *MsgpackSerdes) Deserialize(r io.Reader) (*timeseries.QueryResult, error) {
	var result timeseries.QueryResult
	if err := msgpack.NewDecoder(r).Decode(&result); err != nil {
		return nil, errors.NewPermanent("failed to msgpack-decode result", err)
	}
	return &result, nil
}
