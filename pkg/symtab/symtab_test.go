package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsStable(t *testing.T) {
	table := NewTable()
	a := table.InternFunction("foo")
	b := table.InternFunction("foo")
	c := table.InternFunction("bar")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "foo", table.FunctionName(a))
}

func TestLookupVariable(t *testing.T) {
	table := NewTable()
	_, ok := table.LookupVariable("%x")
	assert.False(t, ok)

	want := table.InternVariable("%x")
	got, ok := table.LookupVariable("%x")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestInvocations(t *testing.T) {
	table := NewTable()
	fn := table.InternFunction("f")
	assert.Equal(t, 0, table.Invocations(fn))

	assert.Equal(t, 1, table.IncrementInvocations(fn))
	assert.Equal(t, 2, table.IncrementInvocations(fn))
	assert.Equal(t, 2, table.Invocations(fn))
}

func TestNamesByKind(t *testing.T) {
	table := NewTable()
	table.InternFunction("f")
	table.InternVariable("%x")
	table.InternVariable("%y")

	assert.Equal(t, []string{"f"}, table.Names(KindFunction))
	assert.Equal(t, []string{"%x", "%y"}, table.Names(KindVariable))
}
