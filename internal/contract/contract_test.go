// file: internal/contract/contract_test.go
package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerBuilder_RegisterAndLookup(t *testing.T) {
	b := NewServerBuilder(IdentityNaming{})
	b.Register(MethodEntry{
		RPCName: "add",
		Parameters: []ParameterEntry{
			{Name: "a", Position: 0, Family: FamilyInteger},
			{Name: "b", Position: 1, Family: FamilyInteger},
		},
	})

	contract, err := b.Build()
	require.NoError(t, err)

	entries, ok := contract.Lookup("add")
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Parameters, 2)
}

func TestServerBuilder_OverloadsShareRPCName(t *testing.T) {
	b := NewServerBuilder(IdentityNaming{})
	b.Register(MethodEntry{RPCName: "greet", Parameters: []ParameterEntry{{Name: "name", Position: 0, Family: FamilyString}}})
	b.Register(MethodEntry{RPCName: "greet", Parameters: nil})

	contract, err := b.Build()
	require.NoError(t, err)

	entries, ok := contract.Lookup("greet")
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestServerBuilder_Build_RejectsDuplicatePositions(t *testing.T) {
	b := NewServerBuilder(IdentityNaming{})
	b.Register(MethodEntry{
		RPCName: "broken",
		Parameters: []ParameterEntry{
			{Name: "a", Position: 0, Family: FamilyInteger},
			{Name: "b", Position: 0, Family: FamilyInteger},
		},
	})

	_, err := b.Build()
	assert.Error(t, err)
}

func TestServerBuilder_AppliesNamingOnce(t *testing.T) {
	b := NewServerBuilder(CamelCaseNaming{})
	b.Register(MethodEntry{RPCName: "Subtract"})

	contract, err := b.Build()
	require.NoError(t, err)

	_, ok := contract.Lookup("subtract")
	assert.True(t, ok)
	_, ok = contract.Lookup("Subtract")
	assert.False(t, ok)
}

func TestClientBuilder_RegisterAndLookup(t *testing.T) {
	b := NewClientBuilder(IdentityNaming{})
	b.Register(MethodEntry{RPCName: "ping"})

	contract, err := b.Build()
	require.NoError(t, err)

	entry, ok := contract.Lookup("ping")
	require.True(t, ok)
	assert.Equal(t, "ping", entry.RPCName)
}

func TestCamelCaseNaming_Transform(t *testing.T) {
	n := CamelCaseNaming{}
	assert.Equal(t, "subtract", n.Transform("Subtract"))
	assert.Equal(t, "subtract", n.Transform("subtract"))
	assert.Equal(t, "", n.Transform(""))
}
