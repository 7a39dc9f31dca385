// file: internal/transport/stream/compat_test.go
package stream

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/jsonrpc2go/internal/framing"
)

type echoParams struct {
	Text string `json:"text"`
}

// TestObjectStream_DrivesRealSourcegraphConn round-trips an actual call
// through jsonrpc2.NewConn on both ends, over our length-prefixed Framer
// wrapped as an ObjectStream — not just two of our own wrappers talking to
// each other, but the sourcegraph/jsonrpc2 Conn's own call, dispatch,
// and reply machinery driving the wire traffic over our framing.
func TestObjectStream_DrivesRealSourcegraphConn(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverStream := New(ctx, framing.NewLengthPrefixed(serverConn, serverConn, serverConn, nil))
	clientStream := New(ctx, framing.NewLengthPrefixed(clientConn, clientConn, clientConn, nil))

	serverHandler := jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if req.Method != "echo" {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
		}
		var params echoParams
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		return params, nil
	})
	clientHandler := jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
		return nil, nil
	})

	server := jsonrpc2.NewConn(ctx, serverStream, serverHandler)
	defer server.Close()
	client := jsonrpc2.NewConn(ctx, clientStream, clientHandler)
	defer client.Close()

	var result echoParams
	require.NoError(t, client.Call(ctx, "echo", echoParams{Text: "hello"}, &result))
	assert.Equal(t, "hello", result.Text)
}

func TestObjectStream_DrivesRealSourcegraphConn_MethodNotFound(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverStream := New(ctx, framing.NewLengthPrefixed(serverConn, serverConn, serverConn, nil))
	clientStream := New(ctx, framing.NewLengthPrefixed(clientConn, clientConn, clientConn, nil))

	serverHandler := jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "no such method"}
	})
	clientHandler := jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
		return nil, nil
	})

	server := jsonrpc2.NewConn(ctx, serverStream, serverHandler)
	defer server.Close()
	client := jsonrpc2.NewConn(ctx, clientStream, clientHandler)
	defer client.Close()

	var result interface{}
	err := client.Call(ctx, "doesNotExist", nil, &result)
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.CodeMethodNotFound, rpcErr.Code)
}
