// Package rpcerr defines the JSON-RPC 2.0 error codes, categories, and
// conversion helpers shared by the binder, invoker, dispatch, and client
// correlation packages. It mirrors the category/code-as-detail-string
// convention the teacher codebase used for its own error package, built on
// github.com/cockroachdb/errors so every internal error carries a stack
// trace and can be inspected with errors.Is/As.
// file: internal/rpcerr/rpcerr.go
package rpcerr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Standard JSON-RPC 2.0 error codes (spec.md S3).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeUnhandledHostException is reserved for exceptions/panics raised by
	// handler bodies (spec.md S3, S7).
	CodeUnhandledHostException = -32010
)

// Category groups related error kinds for GetCategory-based dispatch, e.g.
// deciding whether an error is fatal to the reader loop (spec.md S4.5).
type Category string

// Error categories.
const (
	CategoryParse     Category = "parse"
	CategoryRequest   Category = "request"
	CategoryMethod    Category = "method"
	CategoryParams    Category = "params"
	CategoryInternal  Category = "internal"
	CategoryHost      Category = "host"
	CategoryTransport Category = "transport"
	CategoryCancelled Category = "cancelled"
)

const (
	categoryDetailPrefix = "category:"
	codeDetailPrefix     = "code:"
)

// New wraps msg as an internal error tagged with category and code.
func New(category Category, code int, msg string) error {
	return tag(errors.New(msg), category, code)
}

// Newf is New with fmt-style formatting.
func Newf(category Category, code int, format string, args ...interface{}) error {
	return tag(errors.Newf(format, args...), category, code)
}

// Wrap wraps cause with msg, tagging the result with category and code.
func Wrap(cause error, category Category, code int, msg string) error {
	return tag(errors.Wrap(cause, msg), category, code)
}

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(cause error, category Category, code int, format string, args ...interface{}) error {
	return tag(errors.Wrapf(cause, format, args...), category, code)
}

func tag(err error, category Category, code int) error {
	err = errors.WithDetail(err, categoryDetailPrefix+string(category))
	err = errors.WithDetail(err, codeDetailPrefix+strconv.Itoa(code))
	return err
}

// GetCategory extracts the Category attached via New/Wrap, or "" if none.
func GetCategory(err error) Category {
	for _, detail := range errors.GetAllDetails(err) {
		if rest, ok := strings.CutPrefix(detail, categoryDetailPrefix); ok {
			return Category(rest)
		}
	}
	return ""
}

// GetCode extracts the JSON-RPC error code attached via New/Wrap, defaulting
// to CodeInternalError if none was attached.
func GetCode(err error) int {
	for _, detail := range errors.GetAllDetails(err) {
		if rest, ok := strings.CutPrefix(detail, codeDetailPrefix); ok {
			if code, parseErr := strconv.Atoi(rest); parseErr == nil {
				return code
			}
		}
	}
	return CodeInternalError
}

// WireError is the JSON-RPC 2.0 error object (spec.md S3).
type WireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	// cause is the original Go error/panic value, if any. Not encoded.
	cause error
}

// Error implements the error interface so WireError can flow through
// ordinary Go error handling (e.g. a client unwrapping a RemoteError).
func (e *WireError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ToWireError converts any internal error into the wire Error object. If err
// already carries a rpcerr category/code, those are used; otherwise it is
// treated as CodeInternalError. Panics recovered by the invoker should be
// wrapped with NewHostException before reaching here so they surface as
// CodeUnhandledHostException with structured data.
func ToWireError(err error) *WireError {
	if err == nil {
		return nil
	}

	var existing *WireError
	if errors.As(err, &existing) {
		return existing
	}

	return &WireError{
		Code:    GetCode(err),
		Message: err.Error(),
	}
}

// HostExceptionData is the structured `data` payload attached to a
// CodeUnhandledHostException error (spec.md S3, S9).
type HostExceptionData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// Unwrap lets errors.Is/As walk past the wire representation to the
// original cause, when one is recorded.
func (e *WireError) Unwrap() error { return e.cause }

// NewHostException wraps a panic value (or returned error) from a handler
// body into the "unhandled host exception" error described in spec.md S3.
// The returned error wraps the WireError, so ToWireError finds it directly
// via errors.As, and is tagged with CategoryHost/CodeUnhandledHostException
// so GetCategory/GetCode report it too; Unwrap on the WireError exposes the
// original panic value for logging.
func NewHostException(typeName string, recovered interface{}) error {
	msg := fmt.Sprintf("%v", recovered)
	data := HostExceptionData{Type: typeName, Message: msg}

	var cause error
	if err, ok := recovered.(error); ok {
		cause = err
		data.Cause = err.Error()
	}

	payload, marshalErr := json.Marshal(data)
	wire := &WireError{Code: CodeUnhandledHostException, Message: "unhandled host exception", cause: cause}
	if marshalErr == nil {
		wire.Data = payload
	}
	return tag(errors.WithStack(wire), CategoryHost, CodeUnhandledHostException)
}
