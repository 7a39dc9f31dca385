// Package invoker executes a bound method body and normalizes its outcome
// (spec.md S4.4): synchronous return, awaited async return, or recovered
// panic all funnel through Invoke into a (result, error) pair where error,
// if any, is already rpcerr-tagged and ready for envelope.NewErrorResponse.
// Grounded on the teacher's Adapter.HandleMessage-style panic recovery
// (the pattern of wrapping a handler call in a deferred recover and
// converting it into a structured JSON-RPC error), generalized from a
// single MCP dispatch path to any bound MethodEntry.
// file: internal/invoker/invoker.go
package invoker

import (
	"fmt"

	"github.com/dkoosis/jsonrpc2go/internal/binder"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// AsyncResult lets a method Body opt into asynchronous completion: instead
// of returning its result directly, it returns an AsyncResult and Invoke
// waits on Done before producing the final outcome (spec.md S4.4's
// "awaits async returns").
type AsyncResult struct {
	Done  <-chan struct{}
	Value interface{}
	Err   error
}

// Invoke runs bound.Method.Body with bound.Args, recovering any panic into
// a CodeUnhandledHostException error and awaiting an AsyncResult if the
// body returns one. A nil result with a nil error is the "void" outcome
// (spec.md S4.4).
func Invoke(bound *binder.Bound) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rpcerr.NewHostException(fmt.Sprintf("%T", r), r)
			result = nil
		}
	}()

	result, err = bound.Method.Body(bound.Args)
	if err != nil {
		return nil, toInvokerError(err)
	}

	if async, ok := result.(AsyncResult); ok {
		<-async.Done
		if async.Err != nil {
			return nil, toInvokerError(async.Err)
		}
		return async.Value, nil
	}

	return result, nil
}

// toInvokerError ensures a handler-returned error (as opposed to a
// recovered panic) still carries an rpcerr category/code, defaulting to
// CodeInternalError so it still maps to a well-formed wire Error.
func toInvokerError(err error) error {
	if rpcerr.GetCategory(err) != "" {
		return err
	}
	return rpcerr.Wrap(err, rpcerr.CategoryInternal, rpcerr.CodeInternalError, "method body returned an error")
}
