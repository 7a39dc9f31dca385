// file: internal/framing/lengthprefixed_test.go
package framing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthPrefixed_WriteThenRead_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	writer := NewLengthPrefixed(&buf, &buf, nopCloser{}, nil)

	ctx := context.Background()
	payload := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.NoError(t, writer.WriteFrame(ctx, payload))

	reader := NewLengthPrefixed(&buf, io.Discard, nopCloser{}, nil)
	got, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
}

func TestLengthPrefixed_AcceptsUtf8AndUtf8DashCharsetAliases(t *testing.T) {
	for _, charset := range []string{"utf8", "utf-8", "UTF-8"} {
		t.Run(charset, func(t *testing.T) {
			payload := []byte(`{"jsonrpc":"2.0","method":"ping"}`)
			raw := fmt.Sprintf("Content-Length: %d\r\nContent-Type: application/vscode-jsonrpc; charset=%s\r\n\r\n%s",
				len(payload), charset, payload)

			reader := NewLengthPrefixed(bytes.NewBufferString(raw), io.Discard, nopCloser{}, nil)
			got, err := reader.ReadFrame(context.Background())
			require.NoError(t, err)
			assert.JSONEq(t, string(payload), string(got))
		})
	}
}

func TestLengthPrefixed_RejectsUnsupportedCharset(t *testing.T) {
	raw := "Content-Length: 2\r\nContent-Type: application/vscode-jsonrpc; charset=latin1\r\n\r\n{}"
	reader := NewLengthPrefixed(bytes.NewBufferString(raw), io.Discard, nopCloser{}, nil)

	_, err := reader.ReadFrame(context.Background())
	require.Error(t, err)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrMalformedHeader, fe.Code)
}

func TestLengthPrefixed_RejectsMissingContentLength(t *testing.T) {
	raw := "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n{}"
	reader := NewLengthPrefixed(bytes.NewBufferString(raw), io.Discard, nopCloser{}, nil)

	_, err := reader.ReadFrame(context.Background())
	require.Error(t, err)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrMalformedHeader, fe.Code)
}

func TestLengthPrefixed_RejectsOversizeContentLength(t *testing.T) {
	raw := fmt.Sprintf("Content-Length: %d\r\n\r\n", MaxFrameSize+1)
	reader := NewLengthPrefixed(bytes.NewBufferString(raw), io.Discard, nopCloser{}, nil)

	_, err := reader.ReadFrame(context.Background())
	require.Error(t, err)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrFrameTooLarge, fe.Code)
}

func TestLengthPrefixed_ReadFrame_EOFOnEmptyStream(t *testing.T) {
	reader := NewLengthPrefixed(&bytes.Buffer{}, io.Discard, nopCloser{}, nil)
	_, err := reader.ReadFrame(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
