// file: internal/framing/linedelim_test.go
package framing

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func TestLineDelimited_WriteThenRead_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	writer := NewLineDelimited(&buf, &buf, nopCloser{}, "", nil)

	ctx := context.Background()
	require.NoError(t, writer.WriteFrame(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	require.NoError(t, writer.WriteFrame(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"pong"}`)))

	reader := NewLineDelimited(&buf, io.Discard, nopCloser{}, "", nil)
	first, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(first))

	second, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"method":"pong"}`, string(second))
}

func TestLineDelimited_WithDelimiter_TerminatesFrameAtDelimiterLine(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("{\"jsonrpc\":\"2.0\",\"method\":\"ping\"}\n---\n")

	reader := NewLineDelimited(&buf, io.Discard, nopCloser{}, "---", nil)
	frame, err := reader.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"ping"}`, string(frame))
}

func TestLineDelimited_WithDelimiter_SkipsLeadingResyncMarker(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("---\n{\"jsonrpc\":\"2.0\",\"method\":\"ping\"}\n---\n")

	reader := NewLineDelimited(&buf, io.Discard, nopCloser{}, "---", nil)
	frame, err := reader.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"ping"}`, string(frame))
}

func TestLineDelimited_WithDelimiter_AccumulatesMultipleLinesIntoOneFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("{\"jsonrpc\":\"2.0\"\n,\"method\":\"ping\"}\n---\n")

	reader := NewLineDelimited(&buf, io.Discard, nopCloser{}, "---", nil)
	frame, err := reader.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"ping"}`, string(frame))
}

func TestLineDelimited_WriteThenRead_RoundTripsWithDelimiter(t *testing.T) {
	var buf bytes.Buffer
	writer := NewLineDelimited(&buf, &buf, nopCloser{}, "---", nil)

	ctx := context.Background()
	require.NoError(t, writer.WriteFrame(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	require.NoError(t, writer.WriteFrame(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"pong"}`)))

	reader := NewLineDelimited(&buf, io.Discard, nopCloser{}, "---", nil)
	first, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(first))

	second, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"method":"pong"}`, string(second))
}

func TestLineDelimited_ReadFrame_EOFOnEmptyStream(t *testing.T) {
	reader := NewLineDelimited(&bytes.Buffer{}, io.Discard, nopCloser{}, "", nil)
	_, err := reader.ReadFrame(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineDelimited_WriteFrame_RejectsOversizeFrame(t *testing.T) {
	var buf bytes.Buffer
	writer := NewLineDelimited(&buf, &buf, nopCloser{}, "", nil)
	oversized := bytes.Repeat([]byte("a"), MaxFrameSize+1)

	err := writer.WriteFrame(context.Background(), oversized)
	require.Error(t, err)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrFrameTooLarge, fe.Code)
}

func TestLineDelimited_ClosedFramer_RejectsReadsAndWrites(t *testing.T) {
	var buf bytes.Buffer
	f := NewLineDelimited(&buf, &buf, nopCloser{}, "", nil)
	require.NoError(t, f.Close())

	_, err := f.ReadFrame(context.Background())
	assert.Error(t, err)
	assert.Error(t, f.WriteFrame(context.Background(), []byte("{}")))

	// Closing twice is a no-op.
	assert.NoError(t, f.Close())
}

func TestLineDelimited_ReadFrame_CancelledContext(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	f := NewLineDelimited(reader, io.Discard, nopCloser{}, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ReadFrame(ctx)
	assert.Error(t, err)
}
