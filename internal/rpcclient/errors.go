// file: internal/rpcclient/errors.go
package rpcclient

import (
	"fmt"

	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// RemoteError wraps a JSON-RPC error object a server sent back (spec.md
// S4.6), kept distinct from ContractViolation so callers can tell "the
// server rejected this call" from "this call never should have been made".
type RemoteError struct {
	Code    int
	Message string
	Data    []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpcclient: remote error %d: %s", e.Code, e.Message)
}

func newRemoteError(wire *rpcerr.WireError) *RemoteError {
	return &RemoteError{Code: wire.Code, Message: wire.Message, Data: wire.Data}
}

// ContractViolation reports a locally-detected mismatch between a Call/Notify
// invocation and the ClientContract's registered MethodEntry, caught before
// anything is written to the wire.
type ContractViolation struct {
	Method string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("rpcclient: contract violation calling %q: %s", e.Method, e.Reason)
}
