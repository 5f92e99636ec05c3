package dddg

import (
	"strconv"
	"strings"

	"github.com/archsim/dddg/pkg/microop"
	"github.com/archsim/dddg/pkg/program"
)

// instructionFields is the parsed payload of an instruction line:
// line_num,static_function,bblock_id,inst_id,microop,node_id.
type instructionFields struct {
	lineNum         int
	staticFunction  string
	bblockID        string
	bblockName      string
	loopDepth       int
	instID          string
	microop         microop.Op
	nodeID          uint64
}

func splitInstructionFields(rest string) (instructionFields, error) {
	parts := strings.Split(rest, ",")
	if len(parts) < 5 {
		return instructionFields{}, ErrMalformedLine
	}

	lineNum, err := strconv.Atoi(parts[0])
	if err != nil {
		return instructionFields{}, ErrMalformedLine
	}
	opcode, err := strconv.Atoi(parts[4])
	if err != nil {
		return instructionFields{}, ErrMalformedLine
	}
	var nodeID uint64
	if len(parts) > 5 && strings.TrimSpace(parts[5]) != "" {
		id, err := strconv.ParseUint(strings.TrimSpace(parts[5]), 10, 64)
		if err != nil {
			return instructionFields{}, ErrMalformedLine
		}
		nodeID = id
	}

	bblockName, loopDepth, err := splitBblockID(parts[2])
	if err != nil {
		return instructionFields{}, err
	}

	return instructionFields{
		lineNum:        lineNum,
		staticFunction: parts[1],
		bblockID:       parts[2],
		bblockName:     bblockName,
		loopDepth:      loopDepth,
		instID:         parts[3],
		microop:        microop.Op(opcode),
		nodeID:         nodeID,
	}, nil
}

// splitBblockID splits a "name:loop_depth" basic-block id and validates
// the loop depth against the sanity bound (§9, CorruptTrace).
func splitBblockID(bblockID string) (name string, depth int, err error) {
	name, depthStr, ok := strings.Cut(bblockID, ":")
	if !ok {
		return bblockID, 0, nil
	}
	depth, err = strconv.Atoi(depthStr)
	if err != nil {
		return "", 0, ErrMalformedLine
	}
	if depth > maxLoopDepth {
		return "", 0, ErrCorruptTrace
	}
	return name, depth, nil
}

// isFunctionReturned reports whether rest (an instruction line's payload,
// tag already stripped) is a Ret from target.
func isFunctionReturned(rest, target string) bool {
	fields, err := splitInstructionFields(rest)
	if err != nil {
		return false
	}
	return fields.microop.IsRet() && fields.staticFunction == target
}

// parseInstructionLine implements §4.3's seven-step sequence for one
// instruction line.
func (b *Builder) parseInstructionLine(rest string) error {
	fields, err := splitInstructionFields(rest)
	if err != nil {
		return err
	}

	b.numInstructions++
	b.prevMicroop = b.currMicroop
	b.currMicroop = fields.microop
	b.currNodeID = fields.nodeID

	currFunction := b.interner.InternFunction(fields.staticFunction)
	instID := b.interner.InternInstruction(fields.instID)
	bblock := b.interner.InternBasicBlock(fields.bblockName)

	node := b.sink.InsertNode(fields.nodeID, fields.microop)
	node.Line = fields.lineNum
	node.Function = currFunction
	node.Instruction = instID
	node.BasicBlock = bblock
	node.LoopDepth = fields.loopDepth
	b.currNode = node

	// Call/return barrier (§4.3 step 3).
	if fields.microop.IsCall() || fields.microop.IsRet() {
		for _, id := range b.nodesSinceLastRet {
			b.insertControlDependence(id, fields.nodeID)
		}
		b.nodesSinceLastRet = b.nodesSinceLastRet[:0]
		if b.lastRet != nil && b.lastRet.ID != fields.nodeID {
			b.insertControlDependence(b.lastRet.ID, fields.nodeID)
		}
		b.lastRet = node
	} else if !fields.microop.IsDMA() {
		b.nodesSinceLastRet = append(b.nodesSinceLastRet, fields.nodeID)
	}

	// Dynamic function stack (§4.3 step 4).
	funcInvocationCount := 0
	currFuncFound := false
	if len(b.activeMethod) > 0 {
		top := b.activeMethod[len(b.activeMethod)-1]
		prevCount := b.interner.Invocations(top.Function)
		if currFunction == top.Function {
			if b.prevMicroop.IsCall() && b.hasCalleeFunction && b.calleeFunction == currFunction {
				funcInvocationCount = b.interner.IncrementInvocations(currFunction)
				b.activeMethod = append(b.activeMethod, program.DynamicFunction{Function: currFunction, Invocation: funcInvocationCount})
				b.currDynamicFunction = b.activeMethod[len(b.activeMethod)-1]
			} else {
				funcInvocationCount = prevCount
				b.currDynamicFunction = top
			}
			currFuncFound = true
		}
		if fields.microop.IsRet() {
			b.activeMethod = b.activeMethod[:len(b.activeMethod)-1]
		}
	}
	if !currFuncFound {
		funcInvocationCount = b.interner.IncrementInvocations(currFunction)
		b.activeMethod = append(b.activeMethod, program.DynamicFunction{Function: currFunction, Invocation: funcInvocationCount})
		b.currDynamicFunction = b.activeMethod[len(b.activeMethod)-1]
	}

	// PHI incoming-block latch (§4.3 step 5): read the OLD curr_bblock
	// before it is updated below.
	if fields.microop.IsPHI() && !b.prevMicroop.IsPHI() {
		b.prevBblock = b.currBblock
	}

	// DMA fences (§4.3 step 6).
	switch {
	case fields.microop == microop.DMAFence:
		for _, id := range b.lastDmaNodes {
			b.insertControlDependence(id, fields.nodeID)
		}
		b.lastDmaNodes = b.lastDmaNodes[:0]
		b.lastDmaFence = int64(fields.nodeID)
	case fields.microop == microop.DMALoad || fields.microop == microop.DMAStore:
		if b.lastDmaFence != -1 {
			b.insertControlDependence(uint64(b.lastDmaFence), fields.nodeID)
		}
		b.lastDmaNodes = append(b.lastDmaNodes, fields.nodeID)
	}

	b.currBblock = fields.bblockID
	node.Invocation = funcInvocationCount

	// Reset per-instruction parameter accumulators (§4.3 step 7).
	b.lastParameter = false
	b.parameterValuePerInst = nil
	b.parameterSizePerInst = nil
	b.parameterLabelPerInst = nil

	return nil
}
