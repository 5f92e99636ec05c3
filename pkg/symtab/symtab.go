// Package symtab interns the names a trace refers to — functions, basic
// blocks, instructions, variables, and labels — into small stable integer
// ids, and tracks how many times each function has been dynamically
// invoked so far during a build.
package symtab

// FunctionID identifies an interned static function name.
type FunctionID uint32

// BasicBlockID identifies an interned basic-block name.
type BasicBlockID uint32

// InstructionID identifies an interned static instruction name.
type InstructionID uint32

// VariableID identifies an interned variable (register/array) name.
type VariableID uint32

// LabelID identifies an interned label name.
type LabelID uint32

// Kind enumerates the entity kinds a Table interns, used to address one of
// its underlying tables generically (e.g. when snapshotting for the
// symbol-table cache).
type Kind int

const (
	KindFunction Kind = iota
	KindBasicBlock
	KindInstruction
	KindVariable
	KindLabel
)

// Interner is the symbol-interning surface the builder consumes. A trace's
// names flow through it exactly once each; repeated interning of the same
// name returns the same id.
type Interner interface {
	InternFunction(name string) FunctionID
	InternBasicBlock(name string) BasicBlockID
	InternInstruction(name string) InstructionID
	InternVariable(name string) VariableID
	InternLabel(name string) LabelID
	LookupVariable(name string) (VariableID, bool)
}

// internTable is a two-way name<->id table, one per entity kind.
type internTable struct {
	ids   map[string]uint32
	names []string
}

func newInternTable() *internTable {
	return &internTable{ids: make(map[string]uint32)}
}

func (t *internTable) intern(name string) uint32 {
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

func (t *internTable) lookup(name string) (uint32, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Table is the in-memory Interner implementation used during a single
// build. It is not safe for concurrent use: the builder is single-threaded
// (see internal/log.ProgressTracker callers in pkg/dddg).
type Table struct {
	functions    *internTable
	basicBlocks  *internTable
	instructions *internTable
	variables    *internTable
	labels       *internTable

	invocations map[FunctionID]int
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{
		functions:    newInternTable(),
		basicBlocks:  newInternTable(),
		instructions: newInternTable(),
		variables:    newInternTable(),
		labels:       newInternTable(),
		invocations:  make(map[FunctionID]int),
	}
}

func (t *Table) InternFunction(name string) FunctionID {
	return FunctionID(t.functions.intern(name))
}

func (t *Table) InternBasicBlock(name string) BasicBlockID {
	return BasicBlockID(t.basicBlocks.intern(name))
}

func (t *Table) InternInstruction(name string) InstructionID {
	return InstructionID(t.instructions.intern(name))
}

func (t *Table) InternVariable(name string) VariableID {
	return VariableID(t.variables.intern(name))
}

func (t *Table) InternLabel(name string) LabelID {
	return LabelID(t.labels.intern(name))
}

// LookupVariable returns the id of a variable already interned, without
// interning it if absent.
func (t *Table) LookupVariable(name string) (VariableID, bool) {
	id, ok := t.variables.lookup(name)
	return VariableID(id), ok
}

// FunctionName returns the name a FunctionID was interned from.
func (t *Table) FunctionName(id FunctionID) string { return t.functions.names[id] }

// VariableName returns the name a VariableID was interned from.
func (t *Table) VariableName(id VariableID) string { return t.variables.names[id] }

// IncrementInvocations records one more dynamic invocation of fn and
// returns the new count. Invocation counts start at 0 and are incremented
// to 1 on a function's first observed call.
func (t *Table) IncrementInvocations(fn FunctionID) int {
	t.invocations[fn]++
	return t.invocations[fn]
}

// Invocations returns how many times fn has been dynamically invoked so
// far, or 0 if it has never been entered.
func (t *Table) Invocations(fn FunctionID) int {
	return t.invocations[fn]
}

// Names returns every interned name of the given kind, in interning
// order (i.e. indexed by id). Used by internal/symcache to snapshot a
// table for persistence.
func (t *Table) Names(kind Kind) []string {
	switch kind {
	case KindFunction:
		return t.functions.names
	case KindBasicBlock:
		return t.basicBlocks.names
	case KindInstruction:
		return t.instructions.names
	case KindVariable:
		return t.variables.names
	case KindLabel:
		return t.labels.names
	default:
		return nil
	}
}

var _ Interner = (*Table)(nil)
