// Package framing implements the two wire framings described by spec.md
// S4.2: line-delimited and length-prefixed. It is grounded on the teacher's
// internal/transport package (NDJSONTransport's goroutine+channel+ctx.Done()
// cancellation pattern) and internal/jsonrpc/stdio_transport.go (the
// Content-Length header framing and its sourcegraph/jsonrpc2 ObjectStream
// wiring).
// file: internal/framing/framing.go
package framing

import (
	"context"
	"io"
)

// MaxFrameSize bounds a single decoded frame to guard against memory
// exhaustion from a misbehaving peer (spec.md S4.2).
const MaxFrameSize = 4 * 1024 * 1024 // 4MiB

// Framer reads and writes whole JSON-RPC frames over an underlying stream,
// hiding the differences between the line-delimited and length-prefixed
// wire formats from the rest of the library. Implementations must be safe
// for one concurrent reader and one concurrent writer (not necessarily
// safe for concurrent writers among themselves; callers serialize writes).
type Framer interface {
	// ReadFrame blocks until a complete frame is available, ctx is done, or
	// the underlying stream is exhausted/closed (io.EOF).
	ReadFrame(ctx context.Context) ([]byte, error)

	// WriteFrame writes one complete, already-encoded JSON-RPC message.
	WriteFrame(ctx context.Context, payload []byte) error

	// Close releases the underlying stream. Outstanding ReadFrame/WriteFrame
	// calls unblock and return an error.
	Close() error
}

// Kind identifies which wire framing a Framer implements (spec.md S4.2).
type Kind uint8

// Supported framing kinds.
const (
	KindLineDelimited Kind = iota
	KindLengthPrefixed
)

// readResult is the shared shape used by both framer implementations to
// ferry a blocking read result back to a select over ctx.Done(), mirroring
// the teacher's NDJSONTransport.ReadMessage pattern.
type readResult struct {
	data []byte
	err  error
}

// writeCloser bundles an io.Writer with an io.Closer so framers built over
// net.Conn or os.Stdin/os.Stdout can close the same handle that they read
// or write through.
type writeCloser interface {
	io.Writer
	io.Closer
}
