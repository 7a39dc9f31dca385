// file: internal/framing/errors.go
package framing

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// ErrorCode categorizes framing-layer failures distinctly from JSON-RPC
// protocol error codes (spec.md S4.2), mirroring the teacher's
// transport.ErrorCode convention.
type ErrorCode int

// Framing error codes.
const (
	ErrGeneric ErrorCode = iota + 1000
	ErrFrameTooLarge
	ErrMalformedHeader
	ErrClosed
	ErrReadTimeout
	ErrWriteTimeout
)

// Error is a framing-layer error carrying a code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("framing error [%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("framing error [%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by Code so callers can use errors.Is(err, &Error{Code: ErrClosed}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, message string, cause error) *Error {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &Error{Code: code, Message: message, Cause: wrapped}
}

// NewClosedError reports an operation attempted on a closed Framer.
func NewClosedError(operation string) *Error {
	return newError(ErrClosed, fmt.Sprintf("cannot %s on closed framer", operation), nil)
}

// NewFrameTooLargeError reports a frame exceeding MaxFrameSize.
func NewFrameTooLargeError(size int) *Error {
	return newError(ErrFrameTooLarge, fmt.Sprintf("frame size %d exceeds maximum %d", size, MaxFrameSize), nil)
}

// NewMalformedHeaderError reports a length-prefixed header that could not
// be parsed (missing Content-Length, bad charset, etc).
func NewMalformedHeaderError(detail string) *Error {
	return newError(ErrMalformedHeader, "malformed frame header: "+detail, nil)
}

// IsClosed reports whether err signals a closed framer, including the
// standard io.EOF a peer's orderly shutdown produces.
func IsClosed(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == ErrClosed
	}
	return errors.Is(err, io.EOF)
}
