// file: internal/contract/paramshape/paramshape_test.go
package paramshape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumSchema = `{
  "type": "object",
  "properties": {
    "a": {"type": "number"},
    "b": {"type": "number"}
  },
  "required": ["a", "b"]
}`

func TestValidator_RegisterAndValidate(t *testing.T) {
	v := New()
	require.NoError(t, v.Register("sum", []byte(sumSchema)))

	assert.True(t, v.HasSchema("sum"))
	assert.NoError(t, v.Validate("sum", map[string]interface{}{"a": 1.0, "b": 2.0}))
	assert.Error(t, v.Validate("sum", map[string]interface{}{"a": 1.0}))
}

func TestValidator_Validate_UnregisteredMethodAlwaysPasses(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate("unknown", map[string]interface{}{"anything": true}))
}

func TestValidator_Register_RejectsInvalidSchemaJSON(t *testing.T) {
	v := New()
	err := v.Register("bad", []byte("{not json"))
	assert.Error(t, err)
}
