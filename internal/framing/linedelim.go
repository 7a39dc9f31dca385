// file: internal/framing/linedelim.go
package framing

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"context"

	"github.com/dkoosis/jsonrpc2go/internal/logging"
)

// LineDelimited frames messages one-or-more-lines-per-frame, terminated by
// a configurable delimiter line callers can use to resynchronize a stream
// (spec.md S4.2): the writer emits the message, then (if configured) the
// delimiter line; the reader accumulates lines until it sees a delimiter
// line and treats everything accumulated since the prior frame as the
// message. With no delimiter configured, each newline-terminated line is
// its own frame. Grounded on the teacher's NDJSONTransport
// (internal/transport/transport.go): a buffered reader, a background
// goroutine performing the blocking read, and a select against ctx.Done()
// so reads are cancellable.
type LineDelimited struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	logger logging.Logger

	// delimiter, if non-empty, is written as its own line after every frame
	// and marks a frame's end on read (spec.md S4.2). An empty delimiter
	// disables the behavior entirely: each line is its own frame.
	delimiter string

	writeMu sync.Mutex
	closeMu sync.RWMutex
	closed  bool
}

// NewLineDelimited builds a Framer over reader/writer/closer. delimiter may
// be empty to disable the resync-line feature.
func NewLineDelimited(reader io.Reader, writer io.Writer, closer io.Closer, delimiter string, logger logging.Logger) *LineDelimited {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &LineDelimited{
		reader:    bufio.NewReader(reader),
		writer:    writer,
		closer:    closer,
		delimiter: delimiter,
		logger:    logger.WithField("component", "line_delimited_framer"),
	}
}

func (f *LineDelimited) isClosed() bool {
	f.closeMu.RLock()
	defer f.closeMu.RUnlock()
	return f.closed
}

// ReadFrame reads the next frame: a single line when no delimiter is
// configured, or every line up to (and not including) the next delimiter
// line otherwise.
func (f *LineDelimited) ReadFrame(ctx context.Context) ([]byte, error) {
	if f.isClosed() {
		return nil, NewClosedError("read")
	}

	resultCh := make(chan readResult, 1)
	go func() {
		line, err := f.readLine()
		resultCh <- readResult{data: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, newError(ErrReadTimeout, "read cancelled", ctx.Err())
	case result := <-resultCh:
		return result.data, result.err
	}
}

func (f *LineDelimited) readLine() ([]byte, error) {
	if f.delimiter == "" {
		return f.readSingleLine()
	}
	return f.readUntilDelimiter()
}

// readSingleLine is the no-delimiter case: each non-empty line is its own
// frame.
func (f *LineDelimited) readSingleLine() ([]byte, error) {
	for {
		raw, err := f.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(raw) == 0 {
				return nil, io.EOF
			}
			if err == io.EOF {
				// Final line without trailing newline: treat as the last frame.
				return bytes.TrimRight(raw, "\r\n"), nil
			}
			return nil, newError(ErrGeneric, "failed to read frame line", err)
		}

		trimmed := bytes.TrimRight(raw, "\r\n")
		if len(trimmed) == 0 {
			continue
		}
		if len(trimmed) > MaxFrameSize {
			return nil, NewFrameTooLargeError(len(trimmed))
		}
		return trimmed, nil
	}
}

// readUntilDelimiter accumulates lines until it sees a line equal to
// f.delimiter, joining the accumulated lines with '\n' into a single frame
// (spec.md S4.2: "messages consist of all lines up to the next delimiter
// line"). A delimiter line seen before any content was accumulated is a
// resync marker and is skipped rather than yielding an empty frame.
func (f *LineDelimited) readUntilDelimiter() ([]byte, error) {
	var frame bytes.Buffer
	for {
		raw, err := f.reader.ReadBytes('\n')
		atEOF := err == io.EOF
		if err != nil && !atEOF {
			return nil, newError(ErrGeneric, "failed to read frame line", err)
		}

		trimmed := bytes.TrimRight(raw, "\r\n")
		isDelimiter := string(trimmed) == f.delimiter

		if !isDelimiter && len(trimmed) > 0 {
			if frame.Len() > 0 {
				frame.WriteByte('\n')
			}
			frame.Write(trimmed)
			if frame.Len() > MaxFrameSize {
				return nil, NewFrameTooLargeError(frame.Len())
			}
		}

		if isDelimiter {
			if frame.Len() == 0 {
				continue // Leading/resync delimiter; keep accumulating.
			}
			return frame.Bytes(), nil
		}

		if atEOF {
			if frame.Len() == 0 {
				return nil, io.EOF
			}
			return frame.Bytes(), nil
		}
	}
}

// WriteFrame writes payload as its own line, followed by the delimiter
// line when one is configured (spec.md S4.2). The write (including the
// optional delimiter) is atomic with respect to other WriteFrame callers.
func (f *LineDelimited) WriteFrame(ctx context.Context, payload []byte) error {
	if f.isClosed() {
		return NewClosedError("write")
	}
	if len(payload) > MaxFrameSize {
		return NewFrameTooLargeError(len(payload))
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	resultCh := make(chan error, 1)
	go func() {
		var buf bytes.Buffer
		buf.Write(payload)
		buf.WriteByte('\n')
		if f.delimiter != "" {
			buf.WriteString(f.delimiter)
			buf.WriteByte('\n')
		}

		n, err := f.writer.Write(buf.Bytes())
		if err == nil && n < buf.Len() {
			err = io.ErrShortWrite
		}
		resultCh <- err
	}()

	select {
	case <-ctx.Done():
		return newError(ErrWriteTimeout, "write cancelled", ctx.Err())
	case err := <-resultCh:
		if err != nil {
			return newError(ErrGeneric, "failed to write frame", err)
		}
		return nil
	}
}

// Close marks the framer closed and closes the underlying stream.
func (f *LineDelimited) Close() error {
	f.closeMu.Lock()
	defer f.closeMu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
