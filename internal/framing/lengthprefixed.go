// file: internal/framing/lengthprefixed.go
package framing

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dkoosis/jsonrpc2go/internal/logging"
)

const (
	headerContentLength = "Content-Length"
	headerContentType   = "Content-Type"
	defaultContentType  = "application/vscode-jsonrpc; charset=utf-8"
)

// LengthPrefixed frames messages with an HTTP-style header block terminated
// by a blank CRLF line, the same framing sourcegraph/jsonrpc2 and the LSP
// family use (spec.md S4.2). It is grounded on the teacher's
// stdioObjectStream (internal/jsonrpc/stdio_transport.go), generalized to
// accept either "utf8" or "utf-8" as the charset token.
type LengthPrefixed struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	logger logging.Logger

	writeMu sync.Mutex
	closeMu sync.RWMutex
	closed  bool
}

// NewLengthPrefixed builds a Framer over reader/writer/closer.
func NewLengthPrefixed(reader io.Reader, writer io.Writer, closer io.Closer, logger logging.Logger) *LengthPrefixed {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &LengthPrefixed{
		reader: bufio.NewReader(reader),
		writer: writer,
		closer: closer,
		logger: logger.WithField("component", "length_prefixed_framer"),
	}
}

func (f *LengthPrefixed) isClosed() bool {
	f.closeMu.RLock()
	defer f.closeMu.RUnlock()
	return f.closed
}

// ReadFrame reads the header block, validates Content-Length and any
// Content-Type charset, then reads exactly that many body bytes.
func (f *LengthPrefixed) ReadFrame(ctx context.Context) ([]byte, error) {
	if f.isClosed() {
		return nil, NewClosedError("read")
	}

	resultCh := make(chan readResult, 1)
	go func() {
		data, err := f.readFrameBlocking()
		resultCh <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, newError(ErrReadTimeout, "read cancelled", ctx.Err())
	case result := <-resultCh:
		return result.data, result.err
	}
}

func (f *LengthPrefixed) readFrameBlocking() ([]byte, error) {
	contentLength := -1
	sawHeader := false

	for {
		line, err := f.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && !sawHeader {
				return nil, io.EOF
			}
			return nil, newError(ErrGeneric, "failed to read frame header", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // Blank line terminates the header block.
		}
		sawHeader = true

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, NewMalformedHeaderError(fmt.Sprintf("unparseable header line %q", line))
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(name, headerContentLength):
			n, convErr := strconv.Atoi(value)
			if convErr != nil || n < 0 {
				return nil, NewMalformedHeaderError(fmt.Sprintf("invalid Content-Length %q", value))
			}
			contentLength = n
		case strings.EqualFold(name, headerContentType):
			if err := validateContentType(value); err != nil {
				return nil, err
			}
		}
	}

	if contentLength < 0 {
		return nil, NewMalformedHeaderError("missing Content-Length header")
	}
	if contentLength > MaxFrameSize {
		return nil, NewFrameTooLargeError(contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(f.reader, body); err != nil {
		return nil, newError(ErrGeneric, "failed to read frame body", err)
	}
	return body, nil
}

// validateContentType rejects a Content-Type whose charset parameter is
// anything other than "utf8" or "utf-8" (spec.md S4.2). The media type
// itself is not checked, and a value with no charset parameter is accepted.
func validateContentType(value string) error {
	parts := strings.Split(value, ";")
	for _, part := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 || !strings.EqualFold(strings.TrimSpace(kv[0]), "charset") {
			continue
		}
		charset := strings.ToLower(strings.TrimSpace(kv[1]))
		if charset != "utf8" && charset != "utf-8" {
			return NewMalformedHeaderError(fmt.Sprintf("unsupported charset %q", charset))
		}
	}
	return nil
}

// WriteFrame writes the Content-Length and Content-Type headers, a blank
// line, and the payload, matching the header format sourcegraph/jsonrpc2
// peers expect.
func (f *LengthPrefixed) WriteFrame(ctx context.Context, payload []byte) error {
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
		fmt.Fprintf(&buf, "%s: %d\r\n", headerContentLength, len(payload))
		fmt.Fprintf(&buf, "%s: %s\r\n", headerContentType, defaultContentType)
		buf.WriteString("\r\n")
		buf.Write(payload)

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
func (f *LengthPrefixed) Close() error {
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
