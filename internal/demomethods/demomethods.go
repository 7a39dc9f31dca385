// Package demomethods builds the small, fixed method set cmd/jsonrpcd
// exposes out of the box: ping, echo, and sleep. It exists so the CLI has
// something to dispatch against without forcing every library consumer
// through a CLI at all -- a real embedder builds their own
// contract.ServerContract and never imports this package.
// file: internal/demomethods/demomethods.go
package demomethods

import (
	"time"

	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/dispatch"
)

// BuildServerContract registers ping, echo, and sleep under naming,
// wiring sleep's cancellation handle through dispatch.RequestContext so
// cmd/jsonrpcd can demonstrate cancelRequest end-to-end. When registry is
// non-nil, the cancelRequest convention handler (spec.md S6) is registered
// alongside the demo methods.
func BuildServerContract(naming contract.NamingStrategy, registry *dispatch.CancellationRegistry) (*contract.ServerContract, error) {
	b := contract.NewServerBuilder(naming)

	b.Register(contract.MethodEntry{
		RPCName: "ping",
		Body: func(args []interface{}) (interface{}, error) {
			return "pong", nil
		},
	})

	b.Register(contract.MethodEntry{
		RPCName: "echo",
		Parameters: []contract.ParameterEntry{
			{Name: "value", Position: 0, Family: contract.FamilyAny},
		},
		Body: func(args []interface{}) (interface{}, error) {
			return args[0], nil
		},
	})

	b.Register(contract.MethodEntry{
		RPCName: "sleep",
		Parameters: []contract.ParameterEntry{
			{Name: "millis", Position: 0, Family: contract.FamilyInteger},
			{Name: "ctx", Position: 1, Family: contract.FamilyCancellationHandle, IsCancellationHandle: true},
		},
		Body: func(args []interface{}) (interface{}, error) {
			millis := args[0].(float64)
			rc := args[1].(*dispatch.RequestContext)
			select {
			case <-time.After(time.Duration(millis) * time.Millisecond):
				return "awake", nil
			case <-rc.Done():
				return nil, rc.Err()
			}
		},
	})

	if registry != nil {
		b.Register(dispatch.WithCancellationHandler(registry))
	}

	return b.Build()
}
