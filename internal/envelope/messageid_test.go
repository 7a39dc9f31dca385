// file: internal/envelope/messageid_test.go
package envelope

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageId_MarshalUnmarshal_RoundTrip(t *testing.T) {
	ids := []MessageId{
		NullID(),
		NewIntegerID(0),
		NewIntegerID(-1),
		NewIntegerID(math.MaxInt32),
		NewIntegerID(math.MaxInt32 + 1),
		NewStringID(""),
		NewStringID("request-42"),
	}

	for _, id := range ids {
		data, err := json.Marshal(id)
		require.NoError(t, err)

		var decoded MessageId
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, id, decoded)
	}
}

func TestMessageId_IsInt32(t *testing.T) {
	assert.True(t, NewIntegerID(math.MaxInt32).IsInt32())
	assert.True(t, NewIntegerID(math.MinInt32).IsInt32())
	assert.False(t, NewIntegerID(math.MaxInt32+1).IsInt32())
	assert.False(t, NewIntegerID(math.MinInt32-1).IsInt32())
	assert.False(t, NullID().IsInt32())
	assert.False(t, NewStringID("1").IsInt32())
}

func TestMessageId_UnmarshalJSON_RejectsNonScalarTokens(t *testing.T) {
	for _, raw := range []string{`true`, `false`, `{}`, `[]`, ``} {
		var id MessageId
		err := json.Unmarshal([]byte(raw), &id)
		assert.Error(t, err, "expected error for token %q", raw)
	}
}

func TestMessageId_AsMapKey(t *testing.T) {
	table := map[MessageId]string{
		NewIntegerID(1): "one",
		NewStringID("a"): "alpha",
		NullID():         "null-entry",
	}
	assert.Equal(t, "one", table[NewIntegerID(1)])
	assert.Equal(t, "alpha", table[NewStringID("a")])
	assert.Equal(t, "null-entry", table[NullID()])
}
