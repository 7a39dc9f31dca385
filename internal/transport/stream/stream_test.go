// file: internal/transport/stream/stream_test.go
package stream

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/jsonrpc2go/internal/framing"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func TestObjectStream_WriteThenReadObject_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	writerFramer := framing.NewLengthPrefixed(&buf, &buf, nopCloser{}, nil)
	ctx := context.Background()
	writerStream := New(ctx, writerFramer)

	type payload struct {
		Method string `json:"method"`
	}
	require.NoError(t, writerStream.WriteObject(payload{Method: "ping"}))

	readerFramer := framing.NewLengthPrefixed(&buf, nil, nopCloser{}, nil)
	readerStream := New(ctx, readerFramer)

	var got payload
	require.NoError(t, readerStream.ReadObject(&got))
	assert.Equal(t, "ping", got.Method)
}

func TestObjectStream_Close_ClosesUnderlyingFramer(t *testing.T) {
	var buf bytes.Buffer
	f := framing.NewLengthPrefixed(&buf, &buf, nopCloser{}, nil)
	s := New(context.Background(), f)

	require.NoError(t, s.Close())
	assert.Error(t, s.WriteObject(struct{}{}))
}
