// file: internal/dispatch/requestcontext.go
package dispatch

import (
	"context"
	"sync"

	"github.com/dkoosis/jsonrpc2go/internal/envelope"
)

// RequestContext is the ambient cancellation handle a contract.ParameterEntry
// marked IsCancellationHandle receives (spec.md S4.3, S4.5). It bundles the
// per-request context.Context with the capability-typed feature bag a
// handler can use to stash or retrieve per-connection state.
type RequestContext struct {
	context.Context

	// ID is the request's MessageId, NullID for a Notification.
	ID envelope.MessageId

	features *FeatureBag
}

// Features returns the connection-scoped feature bag shared by every
// request on this connection.
func (r *RequestContext) Features() *FeatureBag { return r.features }

// NewRequestContext builds a RequestContext, for adapters (e.g. httprpc)
// that construct one outside a Server's own reader loop.
func NewRequestContext(ctx context.Context, id envelope.MessageId, features *FeatureBag) *RequestContext {
	return &RequestContext{Context: ctx, ID: id, features: features}
}

// FeatureBag is a capability-typed, concurrency-safe map attached to a
// connection for the lifetime of its Attach (spec.md S4.5): middleware or
// handlers can stash arbitrary per-connection state (e.g. an
// authentication principal, a negotiated protocol version) keyed by a
// private type to avoid collisions, the same convention
// context.WithValue encourages.
type FeatureBag struct {
	mu     sync.RWMutex
	values map[interface{}]interface{}
}

// NewFeatureBag returns an empty, ready-to-use FeatureBag.
func NewFeatureBag() *FeatureBag {
	return &FeatureBag{values: make(map[interface{}]interface{})}
}

// Set stores value under key.
func (b *FeatureBag) Set(key, value interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

// Get retrieves the value stored under key, if any.
func (b *FeatureBag) Get(key interface{}) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}
