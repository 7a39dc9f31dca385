// Package dispatch implements the server-side request pipeline of spec.md
// S4.5: the Detached->Attached->Detached lifecycle, the reader loop, the
// active-request table backing cancellation, and ordered-vs-unordered
// response writing. Grounded on the teacher's jsonrpc.Adapter.Handle (the
// bind -> invoke -> reply pipeline and notification-vs-request branching)
// and internal/transport's NDJSONTransport (goroutine + channel + select
// on ctx.Done() for cancellable blocking reads/writes), with the
// lifecycle state machine adapted from internal/mcp/state.MCPStateMachine.
// file: internal/dispatch/server.go
package dispatch

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dkoosis/jsonrpc2go/internal/binder"
	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/envelope"
	"github.com/dkoosis/jsonrpc2go/internal/framing"
	"github.com/dkoosis/jsonrpc2go/internal/invoker"
	"github.com/dkoosis/jsonrpc2go/internal/logging"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// defaultMaxInFlight bounds how many requests a Server handles
// concurrently before the reader loop stops reading further frames,
// preventing a burst of requests from spawning unbounded goroutines.
const defaultMaxInFlight = 256

// Server dispatches incoming Requests and Notifications against a
// ServerContract, writing one Response per Request over an attached
// Framer (spec.md S4.5).
type Server struct {
	contract            *contract.ServerContract
	logger              logging.Logger
	ordered             bool
	cancellationEnabled bool
	cancellation        *CancellationRegistry
	features            *FeatureBag
	maxInFlight         int64

	lifecycle *lifecycle
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithOrdered makes the Server write responses in the same order their
// requests arrived, chaining each response write behind its predecessor's
// (spec.md S4.5). Default is unordered: responses are written as soon as
// their handler completes.
func WithOrdered(ordered bool) Option {
	return func(s *Server) { s.ordered = ordered }
}

// WithCancellationRegistry enables per-request cancellation tracking using
// registry, the same registry passed to WithCancellationHandler when
// building the ServerContract (spec.md S6).
func WithCancellationRegistry(registry *CancellationRegistry) Option {
	return func(s *Server) {
		s.cancellationEnabled = true
		s.cancellation = registry
	}
}

// WithLogger overrides the Server's logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMaxInFlight bounds the number of requests handled concurrently.
// Once the bound is reached, the reader loop waits for a handler to
// complete before it calls ReadFrame again.
func WithMaxInFlight(n int64) Option {
	return func(s *Server) { s.maxInFlight = n }
}

// NewServer builds a Server dispatching against c.
func NewServer(c *contract.ServerContract, opts ...Option) (*Server, error) {
	s := &Server{
		contract:    c,
		logger:      logging.GetLogger("dispatch"),
		features:    NewFeatureBag(),
		maxInFlight: defaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.lifecycle = newLifecycle()

	return s, nil
}

// Features returns the connection-scoped feature bag handlers can read
// ambient state from via RequestContext.Features().
func (s *Server) Features() *FeatureBag { return s.features }

// Attach runs the reader loop over framer until ctx is done, the peer
// closes the stream, or a fatal framing error occurs, then returns. It
// blocks for the lifetime of the connection, mirroring the teacher's
// StdioTransport.Start() blocking on conn.DisconnectNotify(). Attach must
// not be called concurrently for the same Server; construct one Server per
// connection.
func (s *Server) Attach(ctx context.Context, framer framing.Framer) error {
	if !s.lifecycle.canAttach() {
		return errors.Newf("dispatch: server is already attached")
	}
	if err := s.lifecycle.fireAttach(ctx); err != nil {
		return errors.Wrap(err, "dispatch: attaching server")
	}
	defer func() {
		if err := s.lifecycle.fireDetach(context.Background()); err != nil {
			s.logger.Warn("failed to transition lifecycle to detached", "error", err)
		}
	}()

	writeSem := semaphore.NewWeighted(1)
	group, groupCtx := errgroup.WithContext(ctx)
	inFlight := semaphore.NewWeighted(s.maxInFlight)
	var prevDone chan struct{}

	defer func() {
		_ = group.Wait()
	}()

	for {
		frame, err := framer.ReadFrame(ctx)
		if err != nil {
			if framing.IsClosed(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		msg, decodeErr := envelope.Decode(frame)
		if decodeErr != nil {
			resp := envelope.NewErrorResponse(envelope.NullID(), decodeErr)
			s.writeResponse(ctx, framer, writeSem, resp)
			continue
		}

		switch m := msg.(type) {
		case *envelope.Request:
			myDone := make(chan struct{})
			waitFor := prevDone
			prevDone = myDone
			if err := inFlight.Acquire(groupCtx, 1); err != nil {
				close(myDone)
				continue
			}
			req := m
			group.Go(func() error {
				defer inFlight.Release(1)
				s.handleRequest(groupCtx, framer, writeSem, req, waitFor, myDone)
				return nil
			})
		case *envelope.Notification:
			note := m
			group.Go(func() error {
				s.handleNotification(groupCtx, note)
				return nil
			})
		case *envelope.Response:
			s.logger.Warn("server received unexpected response message", "id", m.ID.String())
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, framer framing.Framer, writeSem *semaphore.Weighted, req *envelope.Request, waitFor, myDone chan struct{}) {
	defer close(myDone)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.cancellationEnabled {
		if s.cancellation.register(req.ID, cancel) {
			defer s.cancellation.remove(req.ID)
		} else {
			s.logger.Warn("duplicate request id, treating as untracked for cancellation", "id", req.ID.String())
		}
	}

	rc := &RequestContext{Context: reqCtx, ID: req.ID, features: s.features}

	var resp *envelope.Response
	bound, bindErr := binder.Bind(s.contract, req.Method, req.Params, rc)
	if bindErr != nil {
		resp = envelope.NewErrorResponse(req.ID, bindErr)
	} else if bound.Method.IsNotificationOnly {
		resp = envelope.NewErrorResponse(req.ID, rpcerr.Newf(rpcerr.CategoryRequest, rpcerr.CodeInvalidRequest,
			"method %q must be invoked as a notification", req.Method))
	} else {
		result, invokeErr := invoker.Invoke(bound)
		if invokeErr != nil {
			resp = envelope.NewErrorResponse(req.ID, invokeErr)
		} else {
			built, marshalErr := envelope.NewResultResponse(req.ID, result)
			if marshalErr != nil {
				resp = envelope.NewErrorResponse(req.ID, marshalErr)
			} else {
				resp = built
			}
		}
	}

	if s.ordered && waitFor != nil {
		select {
		case <-waitFor:
		case <-ctx.Done():
		}
	}

	s.writeResponse(ctx, framer, writeSem, resp)
}

func (s *Server) handleNotification(ctx context.Context, note *envelope.Notification) {
	rc := &RequestContext{Context: ctx, ID: envelope.NullID(), features: s.features}
	bound, bindErr := binder.Bind(s.contract, note.Method, note.Params, rc)
	if bindErr != nil {
		s.logger.Debug("notification bind failed", "method", note.Method, "error", bindErr)
		return
	}
	if _, invokeErr := invoker.Invoke(bound); invokeErr != nil {
		s.logger.Warn("notification handler failed", "method", note.Method, "error", invokeErr)
	}
}

// writeResponse serializes response writes across concurrent handlers.
// A weighted semaphore of capacity 1 plays the role of a mutex here so the
// same primitive backs both this and the in-flight handler bound,
// pairing the writer-serialization token with the per-request ordering
// tokens (waitFor/myDone) that handleRequest chains through.
func (s *Server) writeResponse(ctx context.Context, framer framing.Framer, writeSem *semaphore.Weighted, resp *envelope.Response) {
	payload, err := envelope.Encode(resp)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		return
	}

	if err := writeSem.Acquire(ctx, 1); err != nil {
		s.logger.Warn("failed to acquire write slot", "error", err)
		return
	}
	defer writeSem.Release(1)

	if err := framer.WriteFrame(ctx, payload); err != nil {
		s.logger.Warn("failed to write response frame", "error", err)
	}
}
