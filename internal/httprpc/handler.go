// Package httprpc implements spec.md S4.7's HTTP binding: a single JSON-RPC
// envelope travels in the request body and one envelope (or no body, for a
// notification) travels back, with a status code mapping the JSON-RPC
// result onto the HTTP status line. Grounded on the teacher's
// jsonrpc.Adapter (method lookup -> handler invocation -> reply), adapted
// from a persistent-connection adapter to a one-shot HTTP request cycle.
// file: internal/httprpc/handler.go
package httprpc

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dkoosis/jsonrpc2go/internal/binder"
	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/dispatch"
	"github.com/dkoosis/jsonrpc2go/internal/envelope"
	"github.com/dkoosis/jsonrpc2go/internal/invoker"
	"github.com/dkoosis/jsonrpc2go/internal/logging"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// minRequestBodyLength is the shortest a well-formed request body can be:
// `{"method":""}` shaped down to the spec's approximate 12-byte floor.
const minRequestBodyLength = 12

// featureKey is the FeatureBag key under which the Handler stashes the
// originating *http.Request, so handlers can read headers or the remote
// address without the contract model knowing anything about HTTP.
type featureKey struct{}

// RequestFromContext returns the *http.Request a method handler is serving,
// if invoked through a Handler.
func RequestFromContext(features *dispatch.FeatureBag) (*http.Request, bool) {
	v, ok := features.Get(featureKey{})
	if !ok {
		return nil, false
	}
	r, ok := v.(*http.Request)
	return r, ok
}

// StatusMapper overrides the default JSON-RPC error code -> HTTP status
// mapping (spec.md S4.7).
type StatusMapper func(wireErr *envelope.Error) int

// Handler adapts a ServerContract to net/http, running the bind-invoke
// pipeline once per HTTP request (spec.md S4.7).
type Handler struct {
	contract     *contract.ServerContract
	logger       logging.Logger
	statusMapper StatusMapper
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithStatusMapper overrides the default status code mapping.
func WithStatusMapper(m StatusMapper) Option {
	return func(h *Handler) { h.statusMapper = m }
}

// WithHandlerLogger overrides the Handler's logger.
func WithHandlerLogger(logger logging.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler builds a Handler dispatching against c.
func NewHandler(c *contract.ServerContract, opts ...Option) *Handler {
	h := &Handler{
		contract:     c,
		logger:       logging.GetLogger("httprpc"),
		statusMapper: defaultStatusMapper,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(envelopeMaxBody())))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) < minRequestBodyLength {
		http.Error(w, "request body too short to be a well-formed envelope", http.StatusBadRequest)
		return
	}

	if err := checkContentType(r.Header.Get("Content-Type")); err != nil {
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	msg, decodeErr := envelope.Decode(body)
	if decodeErr != nil {
		h.writeResponse(w, envelope.NewErrorResponse(envelope.NullID(), decodeErr))
		return
	}

	features := dispatch.NewFeatureBag()
	features.Set(featureKey{}, r)

	switch m := msg.(type) {
	case *envelope.Request:
		h.handleRequest(w, r.Context(), features, m)
	case *envelope.Notification:
		h.handleNotification(r.Context(), features, m)
		w.WriteHeader(http.StatusNoContent)
	case *envelope.Response:
		http.Error(w, "a Response envelope is not a valid HTTP request body", http.StatusBadRequest)
	}
}

func (h *Handler) handleRequest(w http.ResponseWriter, ctx context.Context, features *dispatch.FeatureBag, req *envelope.Request) {
	bound, bindErr := binder.Bind(h.contract, req.Method, req.Params, dispatch.NewRequestContext(ctx, req.ID, features))
	if bindErr != nil {
		h.writeResponse(w, envelope.NewErrorResponse(req.ID, bindErr))
		return
	}

	result, invokeErr := invoker.Invoke(bound)
	if invokeErr != nil {
		h.writeResponse(w, envelope.NewErrorResponse(req.ID, invokeErr))
		return
	}

	resp, marshalErr := envelope.NewResultResponse(req.ID, result)
	if marshalErr != nil {
		h.writeResponse(w, envelope.NewErrorResponse(req.ID, marshalErr))
		return
	}
	h.writeResponse(w, resp)
}

func (h *Handler) handleNotification(ctx context.Context, features *dispatch.FeatureBag, note *envelope.Notification) {
	bound, bindErr := binder.Bind(h.contract, note.Method, note.Params, dispatch.NewRequestContext(ctx, envelope.NullID(), features))
	if bindErr != nil {
		h.logger.Debug("notification bind failed", "method", note.Method, "error", bindErr)
		return
	}
	if _, invokeErr := invoker.Invoke(bound); invokeErr != nil {
		h.logger.Warn("notification handler failed", "method", note.Method, "error", invokeErr)
	}
}

func (h *Handler) writeResponse(w http.ResponseWriter, resp *envelope.Response) {
	status := http.StatusOK
	if resp.Err != nil {
		status = h.statusMapper(resp.Err)
	}

	payload, err := envelope.Encode(resp)
	if err != nil {
		h.logger.Error("failed to encode HTTP response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func defaultStatusMapper(wireErr *envelope.Error) int {
	switch wireErr.Code {
	case rpcerr.CodeMethodNotFound:
		return http.StatusNotFound
	case rpcerr.CodeInvalidRequest, rpcerr.CodeParseError, rpcerr.CodeInvalidParams:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func checkContentType(header string) error {
	if header == "" {
		return nil
	}
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return rpcerr.New(rpcerr.CategoryTransport, rpcerr.CodeInvalidRequest, "malformed Content-Type header")
	}
	if !strings.HasPrefix(mediaType, "application/json") {
		return rpcerr.Newf(rpcerr.CategoryTransport, rpcerr.CodeInvalidRequest, "unsupported media type %q", mediaType)
	}
	if charset, ok := params["charset"]; ok {
		normalized := strings.ToLower(charset)
		if normalized != "utf-8" && normalized != "utf8" {
			return rpcerr.Newf(rpcerr.CategoryTransport, rpcerr.CodeInvalidRequest, "unsupported charset %q", charset)
		}
	}
	return nil
}

func envelopeMaxBody() int { return 4 * 1024 * 1024 }
