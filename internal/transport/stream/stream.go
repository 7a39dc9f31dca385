// Package stream adapts internal/framing.Framer to the
// github.com/sourcegraph/jsonrpc2 ObjectStream shape, so the length-prefixed
// codec used elsewhere in this module can be swapped for sourcegraph's own
// stream implementation (or vice versa) in tests without touching dispatch
// or client code. Grounded on the teacher's stdioObjectStream
// (internal/jsonrpc/stdio_transport.go), which implements the same
// interface directly over bufio.Reader/Writer.
// file: internal/transport/stream/stream.go
package stream

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/dkoosis/jsonrpc2go/internal/framing"
)

// ObjectStream wraps a framing.Framer to satisfy jsonrpc2.ObjectStream,
// letting the sourcegraph/jsonrpc2 client/server machinery read and write
// frames through our length-prefixed or line-delimited codec.
type ObjectStream struct {
	framer framing.Framer
	ctx    context.Context
}

var _ jsonrpc2.ObjectStream = (*ObjectStream)(nil)

// New builds an ObjectStream over framer. ctx bounds every ReadObject and
// WriteObject call; sourcegraph/jsonrpc2's own Conn does not thread a
// context through ObjectStream, so one is captured at construction time.
func New(ctx context.Context, framer framing.Framer) *ObjectStream {
	return &ObjectStream{framer: framer, ctx: ctx}
}

// WriteObject marshals obj and writes it as one frame.
func (s *ObjectStream) WriteObject(obj interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return s.framer.WriteFrame(s.ctx, data)
}

// ReadObject reads one frame and unmarshals it into v.
func (s *ObjectStream) ReadObject(v interface{}) error {
	data, err := s.framer.ReadFrame(s.ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Close closes the underlying framer.
func (s *ObjectStream) Close() error {
	return s.framer.Close()
}
