// Package program holds the in-memory representation the DDDG builder
// writes into: dynamic instruction nodes, the three edge kinds that
// connect them, the source-loop labelmap, and the caller-callee argument
// map used to resolve array aliases across call boundaries.
package program

import (
	"github.com/archsim/dddg/pkg/memaccess"
	"github.com/archsim/dddg/pkg/microop"
	"github.com/archsim/dddg/pkg/symtab"
)

// EdgeKind distinguishes the three dependence-edge families the builder
// produces.
type EdgeKind int

const (
	RegisterEdge EdgeKind = iota
	MemoryEdge
	ControlEdge
)

// Edge is one dependence edge, source → sink. ParamIndex is meaningful
// only for RegisterEdge, recording which 1-based operand of sink consumed
// the source's value.
type Edge struct {
	Source     uint64
	Sink       uint64
	Kind       EdgeKind
	ParamIndex int
}

// DMAAccess describes a DMA transfer's source region, destination offset,
// and size, attached to a DMALoad/DMAStore node once its result line has
// been parsed.
type DMAAccess struct {
	BaseAddr  uint64
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// Node is one dynamic instruction instance. Its id is the trace's own
// dynamic instruction counter; all other fields are populated as the
// instruction, parameter, result, and forward lines for it are parsed.
type Node struct {
	ID          uint64
	Microop     microop.Op
	Line        int
	Function    symtab.FunctionID
	Instruction symtab.InstructionID
	BasicBlock  symtab.BasicBlockID
	LoopDepth   int
	Invocation  int

	Variable    symtab.VariableID
	HasVariable bool
	ArrayLabel  string

	MemAccess *memaccess.MemAccess
	DMAAccess *DMAAccess

	// DoublePrecision is set for a floating-point op whose result is a
	// 64-bit value.
	DoublePrecision bool
}

// UniqueLabel is a canonical {function, label, line} tuple populated from
// a trace's labelmap block.
type UniqueLabel struct {
	Function symtab.FunctionID
	Label    symtab.LabelID
	Line     int
}

// DynamicFunction is one runtime invocation of a static function.
type DynamicFunction struct {
	Function   symtab.FunctionID
	Invocation int
}

// DynamicVariable scopes a variable to the dynamic function invocation
// that holds its current value, disambiguating a register name across
// recursive or parallel calls.
type DynamicVariable struct {
	Function DynamicFunction
	Variable symtab.VariableID
}

// Labelmap maps a source line number to every UniqueLabel registered at
// that line: the original plus one per inlining caller.
type Labelmap struct {
	byLine map[int][]UniqueLabel
}

// NewLabelmap creates an empty labelmap.
func NewLabelmap() *Labelmap {
	return &Labelmap{byLine: make(map[int][]UniqueLabel)}
}

// Insert records label at line.
func (l *Labelmap) Insert(line int, label UniqueLabel) {
	l.byLine[line] = append(l.byLine[line], label)
}

// Lookup returns every UniqueLabel registered at line.
func (l *Labelmap) Lookup(line int) []UniqueLabel {
	return l.byLine[line]
}

// maxArgResolutionDepth caps the caller↔callee chain walk in Lookup,
// guarding against a cycle a well-formed trace never produces (§9).
const maxArgResolutionDepth = 64

// CallArgMap records, per call boundary, which caller-side DynamicVariable
// a callee's formal parameter aliases. Lookup follows the chain
// transitively so a GEP several calls deep resolves to the array that was
// actually allocated.
type CallArgMap struct {
	aliasOf map[DynamicVariable]DynamicVariable
}

// NewCallArgMap creates an empty call-argument map.
func NewCallArgMap() *CallArgMap {
	return &CallArgMap{aliasOf: make(map[DynamicVariable]DynamicVariable)}
}

// Add records that from aliases to, i.e. from's value came from to.
func (m *CallArgMap) Add(from, to DynamicVariable) {
	m.aliasOf[from] = to
}

// Lookup resolves v to its representative DynamicVariable by following
// alias chains until one is not itself aliased, or until the depth cap is
// hit. A v with no alias resolves to itself.
func (m *CallArgMap) Lookup(v DynamicVariable) DynamicVariable {
	for depth := 0; depth < maxArgResolutionDepth; depth++ {
		next, ok := m.aliasOf[v]
		if !ok {
			return v
		}
		v = next
	}
	return v
}

// Program is the in-memory implementation of the Sink interface the
// builder writes nodes and edges into.
type Program struct {
	nodes              []*Node
	edges              []Edge
	labelmap           *Labelmap
	callArgMap         *CallArgMap
	arrayBaseAddresses map[string]uint64
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		labelmap:           NewLabelmap(),
		callArgMap:         NewCallArgMap(),
		arrayBaseAddresses: make(map[string]uint64),
	}
}

// InsertNode creates a Node with the given id and opcode and stores it at
// that id's position, growing the backing slice as needed. Node ids are
// expected to arrive dense and strictly increasing (invariant 1).
func (p *Program) InsertNode(id uint64, op microop.Op) *Node {
	node := &Node{ID: id, Microop: op}
	if idx := int(id); idx < len(p.nodes) {
		p.nodes[idx] = node
	} else {
		for int64(len(p.nodes)) < int64(idx) {
			p.nodes = append(p.nodes, nil)
		}
		p.nodes = append(p.nodes, node)
	}
	return node
}

// Node returns the node with the given id, if one has been inserted.
func (p *Program) Node(id uint64) (*Node, bool) {
	idx := int(id)
	if idx < 0 || idx >= len(p.nodes) || p.nodes[idx] == nil {
		return nil, false
	}
	return p.nodes[idx], true
}

// NumNodes returns the number of nodes inserted so far.
func (p *Program) NumNodes() int { return len(p.nodes) }

// AddEdge records one dependence edge. Edges are appended in call order;
// pkg/dddg is responsible for flushing its pending edge tables in the
// deterministic order §5 requires before calling this for the final time.
func (p *Program) AddEdge(source, sink uint64, kind EdgeKind, paramIndex int) {
	p.edges = append(p.edges, Edge{Source: source, Sink: sink, Kind: kind, ParamIndex: paramIndex})
}

// Edges returns every edge added so far, in insertion order.
func (p *Program) Edges() []Edge { return p.edges }

// AddArrayBaseAddress registers addr as the base address of the array
// known as name.
func (p *Program) AddArrayBaseAddress(name string, addr uint64) {
	p.arrayBaseAddresses[name] = addr
}

// ArrayBaseAddress returns the base address registered for name, if any.
func (p *Program) ArrayBaseAddress(name string) (uint64, bool) {
	addr, ok := p.arrayBaseAddresses[name]
	return addr, ok
}

// Labelmap returns the program's labelmap.
func (p *Program) Labelmap() *Labelmap { return p.labelmap }

// CallArgMap returns the program's caller↔callee argument map.
func (p *Program) CallArgMap() *CallArgMap { return p.callArgMap }

// Sink is the consumed interface the builder writes into. Production code
// always uses *Program; tests may substitute a fake.
type Sink interface {
	InsertNode(id uint64, op microop.Op) *Node
	AddEdge(source, sink uint64, kind EdgeKind, paramIndex int)
	AddArrayBaseAddress(name string, addr uint64)
	Labelmap() *Labelmap
	CallArgMap() *CallArgMap
}

var _ Sink = (*Program)(nil)
