// file: internal/envelope/message.go
package envelope

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// Version is the constant JSON-RPC version tag carried by every envelope
// (spec.md S3).
const Version = "2.0"

// Error is the JSON-RPC 2.0 error object (spec.md S3). It is a thin alias
// over rpcerr.WireError so the envelope and rpcerr packages share one wire
// representation.
type Error = rpcerr.WireError

// Message is the closed variant spec.md S3 describes: Request,
// Notification, or Response. The three types below are the only
// implementations; they are mutually exclusive by type rather than by a
// discriminant field.
type Message interface {
	// envelopeMarker does nothing; it only seals the interface to this
	// package's three implementations.
	envelopeMarker()
}

// Request represents a JSON-RPC request message: it has both a method and
// an id, and the server MUST send back exactly one Response for it.
type Request struct {
	ID     MessageId
	Method string
	Params json.RawMessage
}

func (*Request) envelopeMarker() {}

// Notification is a Request without an id; spec.md S3 requires the server
// MUST NOT return a response for it.
type Notification struct {
	Method string
	Params json.RawMessage
}

func (*Notification) envelopeMarker() {}

// Response carries exactly one of Result or Err. ID may be Null if the
// request could not even be parsed far enough to recover an id (spec.md
// S4.1).
type Response struct {
	ID     MessageId
	Result json.RawMessage
	Err    *Error
}

func (*Response) envelopeMarker() {}

// HasParams reports whether the request/notification included a non-null
// params value. It reports false both for "params omitted" and for
// "params: null", which spec.md S4.3 treats identically for parameterless
// methods even though the wire form records them separately.
func (r *Request) HasParams() bool { return len(r.Params) > 0 && string(r.Params) != "null" }

// HasParams mirrors Request.HasParams for notifications.
func (n *Notification) HasParams() bool { return len(n.Params) > 0 && string(n.Params) != "null" }

// wireMessage is the JSON-level shape used for both encode and decode; the
// presence (not merely non-nullness) of each json.RawMessage field is what
// lets Decode classify the envelope variant per spec.md S4.1.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Encode serializes m to its compact JSON wire form, omitting fields the
// variant or null-handling rules say to omit (spec.md S4.1).
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case *Request:
		idJSON, err := json.Marshal(v.ID)
		if err != nil {
			return nil, errors.Wrap(err, "envelope: failed to marshal request id")
		}
		return json.Marshal(wireMessage{JSONRPC: Version, ID: idJSON, Method: v.Method, Params: v.Params})
	case *Notification:
		return json.Marshal(wireMessage{JSONRPC: Version, Method: v.Method, Params: v.Params})
	case *Response:
		idJSON, err := json.Marshal(v.ID)
		if err != nil {
			return nil, errors.Wrap(err, "envelope: failed to marshal response id")
		}
		return json.Marshal(wireMessage{JSONRPC: Version, ID: idJSON, Result: v.Result, Error: v.Err})
	default:
		return nil, errors.Newf("envelope: unknown message type %T", m)
	}
}

// Decode classifies and parses data into a Request, Notification, or
// Response by field presence (spec.md S4.1): id absent -> Notification;
// method absent -> Response; otherwise Request. Input that is not a single
// JSON object (e.g. a batch array) or carries an id of the wrong token kind
// is a ParseError; a missing or wrong jsonrpc version, or a response without
// exactly one of result/error, is an InvalidRequest.
func Decode(data []byte) (Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return nil, rpcerr.Wrap(err, rpcerr.CategoryParse, rpcerr.CodeParseError, "envelope: invalid JSON")
	}

	if wm.JSONRPC != Version {
		return nil, rpcerr.Newf(rpcerr.CategoryRequest, rpcerr.CodeInvalidRequest,
			"envelope: unsupported jsonrpc version %q", wm.JSONRPC)
	}

	if wm.Method == "" {
		// Response: id may legitimately be null (spec.md S4.1); an absent id
		// is treated as null. Exactly one of result/error must be set.
		var id MessageId
		if wm.ID != nil {
			if err := json.Unmarshal(wm.ID, &id); err != nil {
				return nil, rpcerr.Wrap(err, rpcerr.CategoryParse, rpcerr.CodeParseError, "envelope: invalid response id")
			}
		} else {
			id = NullID()
		}
		if (wm.Result == nil) == (wm.Error == nil) {
			return nil, rpcerr.New(rpcerr.CategoryRequest, rpcerr.CodeInvalidRequest,
				"envelope: response must carry exactly one of result or error")
		}
		return &Response{ID: id, Result: wm.Result, Err: wm.Error}, nil
	}

	if wm.ID == nil {
		return &Notification{Method: wm.Method, Params: wm.Params}, nil
	}

	var id MessageId
	if err := json.Unmarshal(wm.ID, &id); err != nil {
		return nil, rpcerr.Wrap(err, rpcerr.CategoryParse, rpcerr.CodeParseError, "envelope: invalid request id")
	}
	return &Request{ID: id, Method: wm.Method, Params: wm.Params}, nil
}

// NewErrorResponse builds an error Response, the shape every fatal parse or
// dispatch failure on a single frame resolves to (spec.md S4.5, S7).
func NewErrorResponse(id MessageId, err error) *Response {
	return &Response{ID: id, Err: rpcerr.ToWireError(err)}
}

// NewResultResponse builds a success Response by marshaling result.
func NewResultResponse(id MessageId, result interface{}) (*Response, error) {
	if result == nil {
		return &Response{ID: id, Result: json.RawMessage("null")}, nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "envelope: failed to marshal result")
	}
	return &Response{ID: id, Result: payload}, nil
}
