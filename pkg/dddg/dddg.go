// Package dddg builds a Dynamic Data Dependence Graph from a dynamic
// execution trace: one node per dynamic instruction, connected by
// register, memory, and control dependence edges. It is the core of the
// module; everything else exists to feed it a trace and consume its
// program sink afterward.
package dddg

import (
	"errors"
	"fmt"

	"github.com/archsim/dddg/pkg/microop"
	"github.com/archsim/dddg/pkg/program"
	"github.com/archsim/dddg/pkg/symtab"
)

// Sentinel errors the builder can return. All are fatal: the builder is a
// batch operation and never returns a partial graph.
var (
	// ErrMalformedLine is returned when a trace line's field count does
	// not match what its tag requires.
	ErrMalformedLine = errors.New("dddg: malformed trace line")
	// ErrMalformedDmaOp is returned when a DMA instruction's accumulated
	// parameter count is neither 4 (v1) nor 5 (v2).
	ErrMalformedDmaOp = errors.New("dddg: malformed DMA operation")
	// ErrCorruptTrace is returned when loop depth exceeds the sanity
	// bound or an instruction line references a non-positive operand
	// count.
	ErrCorruptTrace = errors.New("dddg: corrupt trace")
	// ErrUnexpectedState is returned when a result or forward line
	// arrives without the preceding context it requires.
	ErrUnexpectedState = errors.New("dddg: unexpected parser state")
	// ErrEndOfTrace is returned by BuildInitialDDDG when EOF is reached
	// without ever parsing an instruction line.
	ErrEndOfTrace = errors.New("dddg: end of trace")
)

// maxLoopDepth is the sanity bound past which a reported loop depth is
// treated as evidence of a corrupt trace rather than a real instruction.
const maxLoopDepth = 1000

// ParseError wraps a parse failure with the trace byte offset and raw
// line text that produced it, so a caller can report exactly where a
// trace went bad.
type ParseError struct {
	Offset int64
	Line   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dddg: at offset %d: %q: %v", e.Offset, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Datapath is the minimal surface the builder needs from the accelerator
// model: whether loads and stores issue as soon as their data is
// available, which determines whether a DMALoad seeds memory dependence
// edges for subsequent readers.
type Datapath interface {
	IsReadyMode() bool
}

// Interner is everything the builder needs from the symbol table: the
// consumed interning surface plus the invocation-count and reverse-lookup
// operations the dynamic-function stack and GEP array resolution depend
// on. *symtab.Table satisfies it.
type Interner interface {
	symtab.Interner

	IncrementInvocations(fn symtab.FunctionID) int
	Invocations(fn symtab.FunctionID) int
	VariableName(id symtab.VariableID) string
}

// ProgressTracker receives the current trace byte offset as the builder
// advances through the trace. internal/log.ProgressTracker implements
// this; tests may pass nil.
type ProgressTracker interface {
	Tick(offset int64)
}

type regEdge struct {
	sink       uint64
	paramIndex int
}

// Builder holds all of the live state BuildInitialDDDG accumulates while
// walking one dynamic function invocation. A caller drives a single
// Builder across repeated BuildInitialDDDG calls to consume an entire
// trace, one invocation per call; resetInvocationState clears the state
// scoped to an invocation between calls so edges and counters never
// double up. It is not safe for concurrent use and is not meant to be
// reused across unrelated traces — construct a fresh Builder per trace.
type Builder struct {
	datapath Datapath
	sink     program.Sink
	interner Interner
	progress ProgressTracker

	// Live maps, drained into sink at the end of a successful build.
	registerLastWritten map[program.DynamicVariable]uint64
	addressLastWritten  map[uint64]uint64
	registerEdgeTable   map[uint64][]regEdge
	memoryEdgeTable     map[uint64]map[uint64]struct{}
	controlEdgeTable    map[uint64]map[uint64]struct{}

	nodesSinceLastRet []uint64
	lastDmaNodes      []uint64
	lastDmaFence      int64
	activeMethod      []program.DynamicFunction
	isDmaLoadNode     map[uint64]bool

	inlineLabelmap map[program.UniqueLabel]program.UniqueLabel

	// Per-line cursor state.
	currNode                 *program.Node
	currNodeID               uint64
	currMicroop              microop.Op
	prevMicroop              microop.Op
	currDynamicFunction      program.DynamicFunction
	calleeFunction           symtab.FunctionID
	hasCalleeFunction        bool
	calleeDynamicFunction    program.DynamicFunction
	lastCallSource           int64
	uniqueRegInCallerFunc    program.DynamicVariable
	hasUniqueRegInCallerFunc bool
	lastRet                  *program.Node
	prevBblock               string
	currBblock               string

	lastParameter         bool
	parameterValuePerInst []uint64
	parameterSizePerInst  []int
	parameterLabelPerInst []string

	numInstructions int64
	numRegDep       int
	numMemDep       int
	numCtrlDep      int
}

// NewBuilder creates a Builder over sink, driven by datapath's ready-mode
// flag and interner's symbol tables. progress may be nil.
func NewBuilder(datapath Datapath, sink program.Sink, interner Interner, progress ProgressTracker) *Builder {
	return &Builder{
		datapath: datapath,
		sink:     sink,
		interner: interner,
		progress: progress,

		registerLastWritten: make(map[program.DynamicVariable]uint64),
		addressLastWritten:  make(map[uint64]uint64),
		registerEdgeTable:   make(map[uint64][]regEdge),
		memoryEdgeTable:     make(map[uint64]map[uint64]struct{}),
		controlEdgeTable:    make(map[uint64]map[uint64]struct{}),
		isDmaLoadNode:       make(map[uint64]bool),
		inlineLabelmap:      make(map[program.UniqueLabel]program.UniqueLabel),

		lastDmaFence:   -1,
		lastCallSource: -1,
		prevBblock:     "-1",
		currBblock:     "-1",

		numInstructions: -1,
	}
}

// resetInvocationState clears every piece of state scoped to a single
// dynamic function invocation once its edges have been flushed to the
// sink, so the same Builder can be handed the trace's next top-level
// invocation without its stale edge tables, live write-tracking maps, or
// call stack leaking across the boundary — matching the fresh-DDDG-per-
// invocation semantics BuildInitialDDDG's callers rely on. numInstructions
// and the edge counters are deliberately left untouched: they are
// cumulative over the whole trace, so NumNodes and the edge-count accessors
// report totals across every invocation.
func (b *Builder) resetInvocationState() {
	b.registerLastWritten = make(map[program.DynamicVariable]uint64)
	b.addressLastWritten = make(map[uint64]uint64)
	b.registerEdgeTable = make(map[uint64][]regEdge)
	b.memoryEdgeTable = make(map[uint64]map[uint64]struct{})
	b.controlEdgeTable = make(map[uint64]map[uint64]struct{})

	b.nodesSinceLastRet = nil
	b.lastDmaNodes = nil
	b.lastDmaFence = -1
	b.activeMethod = nil
	b.isDmaLoadNode = make(map[uint64]bool)

	b.inlineLabelmap = make(map[program.UniqueLabel]program.UniqueLabel)

	b.currNode = nil
	b.currNodeID = 0
	b.currMicroop = 0
	b.prevMicroop = 0
	b.currDynamicFunction = program.DynamicFunction{}
	b.calleeFunction = 0
	b.hasCalleeFunction = false
	b.calleeDynamicFunction = program.DynamicFunction{}
	b.lastCallSource = -1
	b.uniqueRegInCallerFunc = program.DynamicVariable{}
	b.hasUniqueRegInCallerFunc = false
	b.lastRet = nil
	b.prevBblock = "-1"
	b.currBblock = "-1"

	b.lastParameter = false
	b.parameterValuePerInst = nil
	b.parameterSizePerInst = nil
	b.parameterLabelPerInst = nil
}

// NumNodes returns the count of distinct instruction lines parsed so far,
// equal to the highest node id plus one once any instruction has been
// seen.
func (b *Builder) NumNodes() int {
	if b.numInstructions < 0 {
		return 0
	}
	return int(b.numInstructions) + 1
}

// NumEdges returns the total number of register, memory, and control
// edges recorded so far.
func (b *Builder) NumEdges() int { return b.numRegDep + b.numMemDep + b.numCtrlDep }

// RegisterEdges returns the number of register edges recorded so far.
func (b *Builder) RegisterEdges() int { return b.numRegDep }

// MemoryEdges returns the number of memory edges recorded so far.
func (b *Builder) MemoryEdges() int { return b.numMemDep }

// ControlEdges returns the number of control edges recorded so far.
func (b *Builder) ControlEdges() int { return b.numCtrlDep }
