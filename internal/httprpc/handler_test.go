// file: internal/httprpc/handler_test.go
package httprpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/dispatch"
	"github.com/dkoosis/jsonrpc2go/internal/envelope"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

func buildEchoContract(t *testing.T) *contract.ServerContract {
	t.Helper()
	b := contract.NewServerBuilder(contract.IdentityNaming{})
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
		RPCName:            "ping",
		IsNotificationOnly: true,
		Body: func(args []interface{}) (interface{}, error) {
			return nil, nil
		},
	})
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func decodeResponse(t *testing.T, body []byte) *envelope.Response {
	t.Helper()
	msg, err := envelope.Decode(body)
	require.NoError(t, err)
	resp, ok := msg.(*envelope.Response)
	require.True(t, ok)
	return resp
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodDelete, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"echo","params":[1],"id":1}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_UnsupportedMediaType(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"echo","params":[1],"id":1}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandler_UnsupportedCharset(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"echo","params":[1],"id":1}`))
	req.Header.Set("Content-Type", "application/json; charset=iso-8859-1")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandler_BodyTooShort(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SuccessfulRequest_Returns200(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"echo","params":[42],"id":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec.Body.Bytes())
	assert.Nil(t, resp.Err)
	assert.JSONEq(t, "42", string(resp.Result))
}

func TestHandler_Notification_Returns204NoBody(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"ping"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestHandler_MethodNotFound_Returns404(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"nope","id":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, resp.Err)
	assert.Equal(t, rpcerr.CodeMethodNotFound, resp.Err.Code)
}

func TestHandler_MalformedEnvelope_Returns400(t *testing.T) {
	h := NewHandler(buildEchoContract(t))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`not json at all, just text`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, resp.Err)
	assert.Equal(t, rpcerr.CodeParseError, resp.Err.Code)
}

func TestHandler_HandlerPanic_Returns500(t *testing.T) {
	b := contract.NewServerBuilder(contract.IdentityNaming{})
	b.Register(contract.MethodEntry{
		RPCName: "explode",
		Body: func(args []interface{}) (interface{}, error) {
			panic("kaboom")
		},
	})
	c, err := b.Build()
	require.NoError(t, err)
	h := NewHandler(c)

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"explode","id":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec.Body.Bytes())
	require.NotNil(t, resp.Err)
	assert.Equal(t, rpcerr.CodeUnhandledHostException, resp.Err.Code)
}

func TestHandler_WithStatusMapper_Override(t *testing.T) {
	h := NewHandler(buildEchoContract(t), WithStatusMapper(func(wireErr *envelope.Error) int {
		return http.StatusTeapot
	}))
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"nope","id":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequestFromContext_RetrievesOriginatingRequest(t *testing.T) {
	var capturedMarker string
	b := contract.NewServerBuilder(contract.IdentityNaming{})
	b.Register(contract.MethodEntry{
		RPCName: "whoami",
		Parameters: []contract.ParameterEntry{
			{Name: "ctx", Position: 0, Family: contract.FamilyCancellationHandle, IsCancellationHandle: true},
		},
		Body: func(args []interface{}) (interface{}, error) {
			rc := args[0].(*dispatch.RequestContext)
			if httpReq, ok := RequestFromContext(rc.Features()); ok {
				capturedMarker = httpReq.Header.Get("X-Test")
			}
			return "ok", nil
		},
	})
	c, err := b.Build()
	require.NoError(t, err)
	h := NewHandler(c)

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","method":"whoami","id":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "marker")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "marker", capturedMarker)
}
