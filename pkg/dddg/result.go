package dddg

import (
	"strconv"
	"strings"

	"github.com/archsim/dddg/pkg/memaccess"
	"github.com/archsim/dddg/pkg/microop"
	"github.com/archsim/dddg/pkg/program"
	"github.com/archsim/dddg/pkg/valuecodec"
)

// parseResult implements §4.5: finalize an instruction's register write
// and, for Alloca/Load/DMA, its memory-dependence semantics.
func (b *Builder) parseResult(rest string) error {
	if b.currNode == nil {
		return ErrUnexpectedState
	}

	parts := strings.Split(rest, ",")
	if len(parts) < 4 {
		return ErrMalformedLine
	}
	size, err := strconv.Atoi(parts[0])
	if err != nil {
		return ErrMalformedLine
	}
	valueText := parts[1]
	isReg := strings.TrimSpace(parts[2]) != "0"
	label := parts[3]
	if !isReg {
		return ErrUnexpectedState
	}

	kind := valuecodec.Classify(size, valueText)

	if b.currMicroop.IsFloat() && size == 64 {
		b.currNode.DoublePrecision = true
	}

	variable := b.interner.InternVariable(label)
	uniqueRegRef := program.DynamicVariable{Function: b.currDynamicFunction, Variable: variable}
	b.registerLastWritten[uniqueRegRef] = b.currNodeID

	switch {
	case b.currMicroop == microop.Alloca:
		b.currNode.Variable = variable
		b.currNode.HasVariable = true
		b.currNode.ArrayLabel = label

		addrBits, err := valuecodec.DecodeScalar(valueText, 8, false)
		if err != nil {
			return err
		}
		b.sink.AddArrayBaseAddress(label, memaccess.Mask(addrBits))

	case b.currMicroop == microop.Load:
		if len(b.parameterValuePerInst) == 0 {
			return ErrUnexpectedState
		}
		memAddress := b.parameterValuePerInst[len(b.parameterValuePerInst)-1]
		memSize := size / 8
		access, err := buildMemAccess(memAddress, memSize, valueText, kind)
		if err != nil {
			return err
		}
		b.handlePostWriteDependency(memAddress, uint64(memSize), b.currNodeID)
		b.currNode.MemAccess = access

	case b.currMicroop.IsDMA():
		return b.parseDmaResult()
	}

	return nil
}

// parseDmaResult dispatches DMALoad/DMAStore result semantics once all of
// the instruction's accumulated parameters are known.
func (b *Builder) parseDmaResult() error {
	var baseAddr, srcOff, dstOff, size uint64
	switch len(b.parameterValuePerInst) {
	case 4:
		baseAddr = b.parameterValuePerInst[1]
		srcOff = b.parameterValuePerInst[2]
		dstOff = srcOff
		size = b.parameterValuePerInst[3]
	case 5:
		baseAddr = b.parameterValuePerInst[1]
		srcOff = b.parameterValuePerInst[2]
		dstOff = b.parameterValuePerInst[3]
		size = b.parameterValuePerInst[4]
	default:
		return ErrMalformedDmaOp
	}

	b.currNode.DMAAccess = &program.DMAAccess{BaseAddr: baseAddr, SrcOffset: srcOff, DstOffset: dstOff, Size: size}

	if b.currMicroop == microop.DMALoad {
		b.isDmaLoadNode[b.currNodeID] = true
		if !b.datapath.IsReadyMode() {
			start := baseAddr + dstOff
			for addr := start; addr < start+size; addr++ {
				b.addressLastWritten[addr] = b.currNodeID
			}
		}
		return nil
	}

	// DMAStore reads from accelerator memory: enforce RAW on this node.
	start := baseAddr + srcOff
	b.handlePostWriteDependency(start, size, b.currNodeID)
	return nil
}
