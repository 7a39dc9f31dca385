// Package contract implements the method-binder model of spec.md S4.3: a
// builder API (not reflection) that assembles ParameterEntry/MethodEntry
// descriptions into a ServerContract or ClientContract, with pluggable
// naming strategies applied once at build time. Grounded on the teacher's
// validator/compiler separation (internal/schema/validator.go builds once,
// validates many times) generalized from JSON Schema compilation to method
// binding.
// file: internal/contract/contract.go
package contract

import (
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/jsonrpc2go/internal/contract/paramshape"
)

// TypeFamily classifies a parameter's accepted shape for the binder's
// kind-compatibility table (spec.md S4.3). It deliberately groups related
// Go kinds (all signed/unsigned integer widths, float32/64) into one
// family so the compatibility table stays small and stable.
type TypeFamily uint8

// Parameter type families.
const (
	FamilyAny TypeFamily = iota
	FamilyString
	FamilyInteger
	FamilyFloat
	FamilyBool
	FamilyObject
	FamilySlice
	FamilyCancellationHandle
)

// Converter turns raw decoded JSON (already unmarshaled by encoding/json
// into interface{}: float64, string, bool, map, slice, or nil) into the concrete Go value a
// handler parameter expects. A Converter returning an error causes the
// binder to reject the call with InvalidParams (spec.md S4.3).
type Converter func(raw interface{}) (interface{}, error)

// ParameterEntry describes one method-body parameter (spec.md S4.3): its
// wire name, its accepted family, whether it is optional (and if so, its
// default), and whether the binder should inject the ambient cancellation
// handle instead of reading it from the wire at all.
type ParameterEntry struct {
	// Name is the parameter's wire name (by-name matching) and the
	// identifier used in diagnostics.
	Name string

	// Position is the zero-based index used for by-position matching.
	Position int

	// Family is the accepted TypeFamily; FamilyAny accepts anything.
	Family TypeFamily

	// GoType is the concrete reflect.Type the handler expects for this
	// parameter. It is descriptive only: the binder does not check bound
	// values against it.
	GoType reflect.Type

	// Optional marks the parameter as omittable; Default supplies the
	// value used when omitted both by-name and by-position.
	Optional bool
	Default  interface{}

	// Convert, when set, transforms the raw decoded value. When nil the
	// raw value is used as-is (after a family compatibility check).
	Convert Converter

	// IsCancellationHandle marks this parameter as the ambient
	// cancellation handle: the binder injects it directly and it is never
	// read from or matched against the wire params (spec.md S4.3).
	IsCancellationHandle bool
}

// MethodEntry describes one bindable method (spec.md S4.3): its RPC name,
// parameter list, and the invoker-facing body.
type MethodEntry struct {
	// RPCName is the wire method name exposed to the naming strategy.
	RPCName string

	// Parameters is the ordered parameter list (Position must match index
	// for by-position matching to be meaningful).
	Parameters []ParameterEntry

	// Body is the handler: receives the bound argument vector (already
	// converted, defaults applied, cancellation handle injected at its
	// declared position; that handle is the only way the call context
	// reaches Body) and returns a result or error. A nil error with a nil
	// result means "void" (spec.md S4.4).
	Body func(args []interface{}) (interface{}, error)

	// IsNotificationOnly marks a method that must only ever be invoked as
	// a Notification (no response expected); the dispatcher rejects a
	// Request carrying this method name with InvalidRequest if set.
	IsNotificationOnly bool

	// AllowExtraParams controls candidate selection's boundary behavior
	// (spec.md S4.3, S8): false rejects a by-name call carrying an object
	// key with no matching ParameterEntry, or a by-position call carrying
	// more array elements than declared parameters. true accepts the
	// extras and ignores them.
	AllowExtraParams bool

	// ParamSchema, when set, is a JSON Schema document the binder validates
	// a by-name call's params object against before binding (spec.md S4.3's
	// strict mode). Array-form calls and methods with no schema skip this
	// check entirely; it is opt-in per method, not a replacement for
	// ParameterEntry's own kind compatibility checks.
	ParamSchema []byte
}

// ServerContract is the compiled, lookup-ready set of methods a server
// exposes, keyed by wire RPC name after the naming strategy has been
// applied exactly once (spec.md S4.3's invariant that naming strategies
// never re-run per request).
type ServerContract struct {
	methods   map[string][]MethodEntry
	validator *paramshape.Validator
}

// Validator returns the contract's compiled param-schema validator. It is
// never nil, but HasSchema reports false for every method that registered
// no ParamSchema, so callers can check HasSchema before paying for
// Validate's schema lookup.
func (c *ServerContract) Validator() *paramshape.Validator { return c.validator }

// Lookup returns every MethodEntry registered under rpcName. Multiple
// entries with the same name are overloads; the binder picks among them by
// candidate matching (spec.md S4.3).
func (c *ServerContract) Lookup(rpcName string) ([]MethodEntry, bool) {
	entries, ok := c.methods[rpcName]
	return entries, ok
}

// Names returns every registered RPC name, for diagnostics and the
// cancelRequest convention handler's registration check.
func (c *ServerContract) Names() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	return names
}

// ClientContract is the compiled set of methods a client may call, used to
// validate outgoing calls before they are ever serialized (spec.md S4.3).
type ClientContract struct {
	methods map[string]MethodEntry
}

// Lookup returns the single MethodEntry registered under rpcName, if any.
func (c *ClientContract) Lookup(rpcName string) (MethodEntry, bool) {
	entry, ok := c.methods[rpcName]
	return entry, ok
}

// ServerBuilder assembles a ServerContract. It is not safe for concurrent
// use; build contracts once at startup and share the immutable result.
type ServerBuilder struct {
	naming  NamingStrategy
	methods map[string][]MethodEntry
}

// NewServerBuilder starts a ServerContract build using naming to transform
// every registered RPCName exactly once.
func NewServerBuilder(naming NamingStrategy) *ServerBuilder {
	if naming == nil {
		naming = IdentityNaming{}
	}
	return &ServerBuilder{naming: naming, methods: make(map[string][]MethodEntry)}
}

// Register adds entry as a candidate for its (naming-transformed) RPC name.
// Multiple Register calls for the same transformed name register
// overloads for the binder's candidate matching.
func (b *ServerBuilder) Register(entry MethodEntry) *ServerBuilder {
	wireName := b.naming.Transform(entry.RPCName)
	entry.RPCName = wireName
	b.methods[wireName] = append(b.methods[wireName], entry)
	return b
}

// Build finalizes the contract. It validates that ParameterEntry.Position
// values within each MethodEntry (cancellation handles excluded) are
// contiguous from zero, since the by-position matcher depends on that.
func (b *ServerBuilder) Build() (*ServerContract, error) {
	validator := paramshape.New()
	for name, entries := range b.methods {
		for _, entry := range entries {
			if err := validatePositions(entry.Parameters); err != nil {
				return nil, errors.Wrapf(err, "contract: method %q", name)
			}
			if len(entry.ParamSchema) > 0 {
				if err := validator.Register(entry.RPCName, entry.ParamSchema); err != nil {
					return nil, errors.Wrapf(err, "contract: method %q", name)
				}
			}
		}
	}
	return &ServerContract{methods: b.methods, validator: validator}, nil
}

// ClientBuilder assembles a ClientContract.
type ClientBuilder struct {
	naming  NamingStrategy
	methods map[string]MethodEntry
}

// NewClientBuilder starts a ClientContract build.
func NewClientBuilder(naming NamingStrategy) *ClientBuilder {
	if naming == nil {
		naming = IdentityNaming{}
	}
	return &ClientBuilder{naming: naming, methods: make(map[string]MethodEntry)}
}

// Register adds entry under its naming-transformed RPC name. Registering
// the same name twice overwrites the prior entry: a client has exactly one
// shape per remote method, unlike a server's overload set.
func (b *ClientBuilder) Register(entry MethodEntry) *ClientBuilder {
	wireName := b.naming.Transform(entry.RPCName)
	entry.RPCName = wireName
	b.methods[wireName] = entry
	return b
}

// Build finalizes the contract.
func (b *ClientBuilder) Build() (*ClientContract, error) {
	for name, entry := range b.methods {
		if err := validatePositions(entry.Parameters); err != nil {
			return nil, errors.Wrapf(err, "contract: method %q", name)
		}
	}
	return &ClientContract{methods: b.methods}, nil
}

func validatePositions(params []ParameterEntry) error {
	seen := make(map[int]bool, len(params))
	for _, p := range params {
		if p.IsCancellationHandle {
			continue
		}
		if seen[p.Position] {
			return errors.Newf("duplicate parameter position %d", p.Position)
		}
		seen[p.Position] = true
	}
	for i := 0; i < len(seen); i++ {
		if !seen[i] {
			return errors.Newf("parameter positions are not contiguous from zero: position %d is missing", i)
		}
	}
	return nil
}
