// Package rpcclient implements spec.md S4.6's client correlation model:
// monotonic, prefixed id generation, an outstanding-request table, response
// routing, and cancellation propagation via a cancelRequest notification.
// Grounded on the teacher's connection.Manager (uuid-derived per-connection
// identity, qmuntal/stateless lifecycle) and internal/transport's
// goroutine+channel reader loop, generalized from a single MCP connection
// to a general-purpose correlating JSON-RPC client.
// file: internal/rpcclient/client.go
package rpcclient

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/envelope"
	"github.com/dkoosis/jsonrpc2go/internal/framing"
	"github.com/dkoosis/jsonrpc2go/internal/logging"
)

// defaultForeignCacheSize bounds the preserveForeignResponses side-table
// (spec.md S4.6) when the caller enables it without specifying a size.
const defaultForeignCacheSize = 256

// Client correlates outgoing calls with incoming responses over one
// attached Framer (spec.md S4.6). One Client serves one connection; share
// a ClientContract across many Clients if several connections expose the
// same remote methods.
type Client struct {
	contract *contract.ClientContract
	logger   logging.Logger
	framer   framing.Framer
	writeSem *semaphore.Weighted

	idPrefix string
	counter  uint64

	mu          sync.Mutex
	outstanding map[envelope.MessageId]*pendingCall

	preserveForeign bool
	foreignCap      int
	foreignOrder    []envelope.MessageId
	foreign         map[envelope.MessageId]*envelope.Response
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithPreserveForeignResponses enables the bounded side-table that retains
// responses whose id no longer has an outstanding caller, e.g. because the
// caller's context was cancelled just before the response arrived (spec.md
// S4.6). capacity <= 0 uses defaultForeignCacheSize.
func WithPreserveForeignResponses(capacity int) ClientOption {
	return func(c *Client) {
		c.preserveForeign = true
		if capacity <= 0 {
			capacity = defaultForeignCacheSize
		}
		c.foreignCap = capacity
	}
}

// WithClientLogger overrides the Client's logger.
func WithClientLogger(logger logging.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client that validates outgoing calls against c.
func NewClient(c *contract.ClientContract, opts ...ClientOption) *Client {
	client := &Client{
		contract:    c,
		logger:      logging.GetLogger("rpcclient"),
		writeSem:    semaphore.NewWeighted(1),
		idPrefix:    uuid.NewString()[:8],
		outstanding: make(map[envelope.MessageId]*pendingCall),
		foreign:     make(map[envelope.MessageId]*envelope.Response),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Attach runs the response-reading loop over framer until ctx is done or
// the stream closes. Like dispatch.Server.Attach, it blocks for the
// connection's lifetime; run it in its own goroutine and call Call/Notify
// from others.
func (c *Client) Attach(ctx context.Context, framer framing.Framer) error {
	c.framer = framer

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
			c.logger.Warn("failed to decode incoming frame", "error", decodeErr)
			continue
		}

		resp, ok := msg.(*envelope.Response)
		if !ok {
			c.logger.Warn("client received non-response message", "type", msg)
			continue
		}
		c.route(resp)
	}
}

func (c *Client) route(resp *envelope.Response) {
	c.mu.Lock()
	pc, ok := c.outstanding[resp.ID]
	if ok {
		delete(c.outstanding, resp.ID)
	}
	c.mu.Unlock()

	if ok {
		if !pc.complete(resp) && c.preserveForeign {
			c.storeForeign(resp)
		}
		return
	}

	if c.preserveForeign {
		c.storeForeign(resp)
		return
	}

	c.logger.Debug("discarded response with no outstanding caller", "id", resp.ID.String())
}

func (c *Client) storeForeign(resp *envelope.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.foreign[resp.ID]; !exists {
		if len(c.foreignOrder) >= c.foreignCap {
			oldest := c.foreignOrder[0]
			c.foreignOrder = c.foreignOrder[1:]
			delete(c.foreign, oldest)
		}
		c.foreignOrder = append(c.foreignOrder, resp.ID)
	}
	c.foreign[resp.ID] = resp
}

func (c *Client) nextID() envelope.MessageId {
	n := atomic.AddUint64(&c.counter, 1)
	return envelope.NewStringID(c.idPrefix + "-" + strconv.FormatUint(n, 10))
}

// Call sends a request for method with args encoded positionally, blocking
// until a matching response arrives or ctx is done (spec.md S4.6).
func (c *Client) Call(ctx context.Context, method string, args ...interface{}) (json.RawMessage, error) {
	entry, ok := c.contract.Lookup(method)
	if !ok {
		return nil, &ContractViolation{Method: method, Reason: "method not registered in client contract"}
	}
	if err := checkArity(entry, len(args)); err != nil {
		return nil, &ContractViolation{Method: method, Reason: err.Error()}
	}

	params, err := encodeArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "rpcclient: failed to encode call params")
	}

	id := c.nextID()
	pc := newPendingCall(id)

	c.mu.Lock()
	c.outstanding[id] = pc
	c.mu.Unlock()

	req := &envelope.Request{ID: id, Method: entry.RPCName, Params: params}
	payload, err := envelope.Encode(req)
	if err != nil {
		c.forget(id)
		return nil, errors.Wrap(err, "rpcclient: failed to encode request")
	}

	if err := c.write(ctx, payload); err != nil {
		c.forget(id)
		return nil, errors.Wrap(err, "rpcclient: failed to write request")
	}

	select {
	case <-pc.done:
		if pc.resp.Err != nil {
			return nil, newRemoteError(pc.resp.Err)
		}
		return pc.resp.Result, nil
	case <-ctx.Done():
		c.cancelOutstanding(ctx, id, pc)
		return nil, ctx.Err()
	}
}

// Notify sends a fire-and-forget notification for method; no response is
// ever expected and none is waited for (spec.md S4.6).
func (c *Client) Notify(ctx context.Context, method string, args ...interface{}) error {
	entry, ok := c.contract.Lookup(method)
	rpcName := method
	if ok {
		if err := checkArity(entry, len(args)); err != nil {
			return &ContractViolation{Method: method, Reason: err.Error()}
		}
		rpcName = entry.RPCName
	}

	params, err := encodeArgs(args)
	if err != nil {
		return errors.Wrap(err, "rpcclient: failed to encode notification params")
	}

	payload, err := envelope.Encode(&envelope.Notification{Method: rpcName, Params: params})
	if err != nil {
		return errors.Wrap(err, "rpcclient: failed to encode notification")
	}

	return c.write(ctx, payload)
}

// cancelOutstanding implements spec.md S4.6's cancellation propagation:
// complete the handle with cancellation, remove (or retain, under
// preserveForeignResponses) the outstanding entry, and emit a best-effort
// cancelRequest notification. The server-side effect is not awaited.
func (c *Client) cancelOutstanding(ctx context.Context, id envelope.MessageId, pc *pendingCall) {
	pc.cancel(ctx)

	if !c.preserveForeign {
		c.forget(id)
	}

	notifyCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	idParams, err := json.Marshal([]envelope.MessageId{id})
	if err != nil {
		c.logger.Warn("failed to encode cancelRequest params", "error", err)
		return
	}
	payload, err := envelope.Encode(&envelope.Notification{Method: "cancelRequest", Params: idParams})
	if err != nil {
		c.logger.Warn("failed to encode cancelRequest notification", "error", err)
		return
	}
	if err := c.write(notifyCtx, payload); err != nil {
		c.logger.Warn("failed to send cancelRequest notification", "error", err)
	}
}

func (c *Client) forget(id envelope.MessageId) {
	c.mu.Lock()
	delete(c.outstanding, id)
	c.mu.Unlock()
}

func (c *Client) write(ctx context.Context, payload []byte) error {
	if err := c.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.writeSem.Release(1)
	return c.framer.WriteFrame(ctx, payload)
}

func checkArity(entry contract.MethodEntry, n int) error {
	required := 0
	allowed := 0
	for _, p := range entry.Parameters {
		if p.IsCancellationHandle {
			continue
		}
		allowed++
		if !p.Optional {
			required++
		}
	}
	if n < required || n > allowed {
		return errors.Newf("expected between %d and %d arguments, got %d", required, allowed, n)
	}
	return nil
}

func encodeArgs(args []interface{}) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return json.Marshal(args)
}
