// file: internal/dispatch/cancellation.go
package dispatch

import (
	"context"
	"sync"

	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/envelope"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// CancellationRegistry tracks the context.CancelFunc for every in-flight
// request id so a cancelRequest notification (spec.md S6) can cancel the
// matching in-flight handler. It is shared between a Server and the
// cancelRequest MethodEntry WithCancellationHandler builds, since the
// MethodEntry must exist inside the built ServerContract before the Server
// itself can be constructed from that contract.
type CancellationRegistry struct {
	mu     sync.Mutex
	active map[envelope.MessageId]context.CancelFunc
}

// NewCancellationRegistry returns an empty, ready-to-use registry.
func NewCancellationRegistry() *CancellationRegistry {
	return &CancellationRegistry{active: make(map[envelope.MessageId]context.CancelFunc)}
}

// register installs cancel under id and reports whether it did. A
// duplicate id (spec.md S4.5's pinned Open Question decision: "duplicate
// ids are logged and treated as untracked — no entry replacement") is
// refused rather than overwriting the original request's entry; the
// caller is responsible for logging and must not later call remove for a
// registration that was refused, since that would evict the original
// request's still-active entry instead.
func (r *CancellationRegistry) register(id envelope.MessageId, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.active[id]; exists {
		return false
	}
	r.active[id] = cancel
	return true
}

func (r *CancellationRegistry) remove(id envelope.MessageId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// TryCancel cancels the in-flight request identified by id, if any is
// still active. A duplicate or already-completed id is not an error: it
// simply reports false, matching spec.md §9's decision that unknown
// cancellation ids are silently ignored.
func (r *CancellationRegistry) TryCancel(id envelope.MessageId) bool {
	r.mu.Lock()
	cancel, ok := r.active[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// WithCancellationHandler builds the cancelRequest MethodEntry described
// in spec.md S6: a notification-only method taking the target request id
// and triggering TryCancel on registry. Register this entry into a
// ServerBuilder alongside the server's own methods before calling Build,
// then pass the same registry to NewServer via WithCancellationRegistry so
// the dispatcher's active-request table and this handler share state.
func WithCancellationHandler(registry *CancellationRegistry) contract.MethodEntry {
	return contract.MethodEntry{
		RPCName:            "cancelRequest",
		IsNotificationOnly: true,
		Parameters: []contract.ParameterEntry{
			{Name: "id", Position: 0, Family: contract.FamilyAny},
		},
		Body: func(args []interface{}) (interface{}, error) {
			id, err := parseMessageIDArg(args[0])
			if err != nil {
				return nil, err
			}
			registry.TryCancel(id)
			return nil, nil
		},
	}
}

func parseMessageIDArg(raw interface{}) (envelope.MessageId, error) {
	switch v := raw.(type) {
	case float64:
		return envelope.NewIntegerID(int64(v)), nil
	case string:
		return envelope.NewStringID(v), nil
	case nil:
		return envelope.NullID(), nil
	default:
		return envelope.MessageId{}, rpcerr.New(rpcerr.CategoryParams, rpcerr.CodeInvalidParams, "cancelRequest: id must be a string, number, or null")
	}
}
