package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/dddg/pkg/microop"
	"github.com/archsim/dddg/pkg/symtab"
)

func TestInsertNodeAndLookup(t *testing.T) {
	p := NewProgram()
	p.InsertNode(0, microop.Alloca)
	p.InsertNode(1, microop.Store)

	assert.Equal(t, 2, p.NumNodes())

	node, ok := p.Node(1)
	require.True(t, ok)
	assert.Equal(t, microop.Store, node.Microop)

	_, ok = p.Node(5)
	assert.False(t, ok)
}

func TestAddEdgeAndEdges(t *testing.T) {
	p := NewProgram()
	p.AddEdge(0, 1, RegisterEdge, 1)
	p.AddEdge(1, 2, MemoryEdge, 0)

	edges := p.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, RegisterEdge, edges[0].Kind)
	assert.Equal(t, 1, edges[0].ParamIndex)
	assert.Equal(t, MemoryEdge, edges[1].Kind)
}

func TestArrayBaseAddress(t *testing.T) {
	p := NewProgram()
	p.AddArrayBaseAddress("A", 0x200)

	addr, ok := p.ArrayBaseAddress("A")
	require.True(t, ok)
	assert.Equal(t, uint64(0x200), addr)

	_, ok = p.ArrayBaseAddress("B")
	assert.False(t, ok)
}

func TestLabelmapInsertAndLookup(t *testing.T) {
	lm := NewLabelmap()
	lbl := UniqueLabel{Function: 1, Label: 2, Line: 42}
	lm.Insert(42, lbl)

	got := lm.Lookup(42)
	require.Len(t, got, 1)
	assert.Equal(t, lbl, got[0])

	assert.Empty(t, lm.Lookup(7))
}

func TestCallArgMapDirectLookup(t *testing.T) {
	m := NewCallArgMap()
	formal := DynamicVariable{Function: DynamicFunction{Function: 1, Invocation: 2}, Variable: symtab.VariableID(5)}
	actual := DynamicVariable{Function: DynamicFunction{Function: 0, Invocation: 1}, Variable: symtab.VariableID(9)}

	m.Add(formal, actual)
	assert.Equal(t, actual, m.Lookup(formal))
}

func TestCallArgMapTransitiveLookup(t *testing.T) {
	m := NewCallArgMap()
	a := DynamicVariable{Function: DynamicFunction{Function: 2, Invocation: 1}, Variable: symtab.VariableID(1)}
	b := DynamicVariable{Function: DynamicFunction{Function: 1, Invocation: 1}, Variable: symtab.VariableID(2)}
	c := DynamicVariable{Function: DynamicFunction{Function: 0, Invocation: 1}, Variable: symtab.VariableID(3)}

	m.Add(a, b)
	m.Add(b, c)

	assert.Equal(t, c, m.Lookup(a))
}

func TestCallArgMapUnaliasedLookup(t *testing.T) {
	m := NewCallArgMap()
	v := DynamicVariable{Function: DynamicFunction{Function: 0, Invocation: 1}, Variable: symtab.VariableID(1)}
	assert.Equal(t, v, m.Lookup(v))
}
