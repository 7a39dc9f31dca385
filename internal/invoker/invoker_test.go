// file: internal/invoker/invoker_test.go
package invoker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/jsonrpc2go/internal/binder"
	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

func TestInvoke_SynchronousResult(t *testing.T) {
	bound := &binder.Bound{
		Method: contract.MethodEntry{Body: func(args []interface{}) (interface{}, error) {
			return 42, nil
		}},
	}

	result, err := Invoke(bound)
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestInvoke_VoidResult(t *testing.T) {
	bound := &binder.Bound{
		Method: contract.MethodEntry{Body: func(args []interface{}) (interface{}, error) {
			return nil, nil
		}},
	}

	result, err := Invoke(bound)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInvoke_HandlerError_TaggedWithCategory(t *testing.T) {
	bound := &binder.Bound{
		Method: contract.MethodEntry{Body: func(args []interface{}) (interface{}, error) {
			return nil, assertError{"boom"}
		}},
	}

	_, err := Invoke(bound)
	require.Error(t, err)
	assert.Equal(t, rpcerr.CodeInternalError, rpcerr.GetCode(err))
}

func TestInvoke_RecoversPanic_AsHostException(t *testing.T) {
	bound := &binder.Bound{
		Method: contract.MethodEntry{Body: func(args []interface{}) (interface{}, error) {
			panic("handler exploded")
		}},
	}

	_, err := Invoke(bound)
	require.Error(t, err)
	assert.Equal(t, rpcerr.CodeUnhandledHostException, rpcerr.GetCode(err))
}

func TestInvoke_AwaitsAsyncResult(t *testing.T) {
	done := make(chan struct{})
	bound := &binder.Bound{
		Method: contract.MethodEntry{Body: func(args []interface{}) (interface{}, error) {
			go func() {
				time.Sleep(5 * time.Millisecond)
				close(done)
			}()
			return AsyncResult{Done: done, Value: "finished"}, nil
		}},
	}

	result, err := Invoke(bound)
	require.NoError(t, err)
	assert.Equal(t, "finished", result)
}

func TestInvoke_AsyncResult_PropagatesError(t *testing.T) {
	done := make(chan struct{})
	close(done)
	bound := &binder.Bound{
		Method: contract.MethodEntry{Body: func(args []interface{}) (interface{}, error) {
			return AsyncResult{Done: done, Err: assertError{"async failure"}}, nil
		}},
	}

	_, err := Invoke(bound)
	require.Error(t, err)
	assert.Equal(t, rpcerr.CodeInternalError, rpcerr.GetCode(err))
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
