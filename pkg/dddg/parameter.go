package dddg

import (
	"strconv"
	"strings"

	"github.com/archsim/dddg/pkg/memaccess"
	"github.com/archsim/dddg/pkg/microop"
	"github.com/archsim/dddg/pkg/program"
	"github.com/archsim/dddg/pkg/valuecodec"
)

type parameterFields struct {
	size          int
	valueText     string
	isReg         bool
	label         string
	prevBblockPhi string
	hasPhiFilter  bool
}

func splitParameterFields(rest string, isPHI bool) (parameterFields, error) {
	parts := strings.Split(rest, ",")
	minFields := 4
	if isPHI {
		minFields = 5
	}
	if len(parts) < minFields {
		return parameterFields{}, ErrMalformedLine
	}

	size, err := strconv.Atoi(parts[0])
	if err != nil {
		return parameterFields{}, ErrMalformedLine
	}
	isReg := strings.TrimSpace(parts[2]) != "0"

	fields := parameterFields{
		size:      size,
		valueText: parts[1],
		isReg:     isReg,
		label:     parts[3],
	}
	if isPHI {
		fields.hasPhiFilter = true
		fields.prevBblockPhi = parts[4]
	}
	return fields, nil
}

// parseParameter implements §4.4's operand processing for one parameter
// line of the current instruction.
func (b *Builder) parseParameter(rest string, paramTag int) error {
	if paramTag <= 0 {
		return ErrCorruptTrace
	}
	if b.currNode == nil {
		return ErrUnexpectedState
	}

	fields, err := splitParameterFields(rest, b.currMicroop.IsPHI())
	if err != nil {
		return err
	}
	if fields.hasPhiFilter && fields.prevBblockPhi != b.prevBblock {
		return nil
	}

	kind := valuecodec.Classify(fields.size, fields.valueText)

	if !b.lastParameter {
		if b.currMicroop.IsCall() {
			b.calleeFunction = b.interner.InternFunction(fields.label)
			b.hasCalleeFunction = true
		}
		if b.hasCalleeFunction {
			b.calleeDynamicFunction = program.DynamicFunction{
				Function:   b.calleeFunction,
				Invocation: b.interner.Invocations(b.calleeFunction) + 1,
			}
		}
	}
	b.lastParameter = true
	b.lastCallSource = -1

	if fields.isReg {
		variable := b.interner.InternVariable(fields.label)
		uniqueRegRef := program.DynamicVariable{Function: b.currDynamicFunction, Variable: variable}
		if b.currMicroop.IsCall() {
			b.uniqueRegInCallerFunc = uniqueRegRef
			b.hasUniqueRegInCallerFunc = true
		}

		if writer, ok := b.registerLastWritten[uniqueRegRef]; ok {
			b.registerEdgeTable[writer] = append(b.registerEdgeTable[writer], regEdge{sink: b.currNodeID, paramIndex: paramTag})
			b.numRegDep++
			if b.currMicroop.IsCall() {
				b.lastCallSource = int64(writer)
			}
		} else if (b.currMicroop == microop.Store && paramTag == 2) || (b.currMicroop == microop.Load && paramTag == 1) {
			b.registerLastWritten[uniqueRegRef] = b.currNodeID
		}
	}

	if !(b.currMicroop == microop.Load || b.currMicroop == microop.Store ||
		b.currMicroop == microop.GetElementPtr || b.currMicroop.IsDMA()) {
		return nil
	}

	addrBits, err := valuecodec.DecodeScalar(fields.valueText, 8, false)
	if err != nil {
		return err
	}
	maskedAddr := memaccess.Mask(addrBits)
	b.parameterValuePerInst = append(b.parameterValuePerInst, maskedAddr)
	b.parameterSizePerInst = append(b.parameterSizePerInst, fields.size)
	b.parameterLabelPerInst = append(b.parameterLabelPerInst, fields.label)

	switch {
	case paramTag == 1 && b.currMicroop == microop.Load:
		b.setNodeVariable(b.currNode, fields.label)
		b.currNode.ArrayLabel = fields.label

	case paramTag == 1 && b.currMicroop == microop.Store:
		memAddress := b.parameterValuePerInst[0]
		memSize := fields.size / 8
		access, err := buildMemAccess(memAddress, memSize, fields.valueText, kind)
		if err != nil {
			return err
		}
		b.currNode.MemAccess = access

	case paramTag == 2 && b.currMicroop == microop.Store:
		memAddress := b.parameterValuePerInst[0]
		memSize := uint64(fields.size / 8)

		if writer, ok := b.addressLastWritten[memAddress]; ok {
			if b.isDmaLoadNode[writer] {
				b.handlePostWriteDependency(memAddress, memSize, b.currNodeID)
			}
			b.addressLastWritten[memAddress] = b.currNodeID
		} else {
			b.addressLastWritten[memAddress] = b.currNodeID
		}

		regName := b.parameterLabelPerInst[0]
		b.setNodeVariable(b.currNode, regName)
		b.currNode.ArrayLabel = regName

	case paramTag == 1 && b.currMicroop == microop.GetElementPtr:
		baseAddr := b.parameterValuePerInst[len(b.parameterValuePerInst)-1]
		baseLabel := b.parameterLabelPerInst[len(b.parameterLabelPerInst)-1]
		b.setNodeVariable(b.currNode, baseLabel)

		realName := b.getArrayRealVar(baseLabel)
		b.currNode.ArrayLabel = realName
		b.sink.AddArrayBaseAddress(realName, baseAddr)

	case paramTag == 1 && b.currMicroop.IsDMA():
		// DMA data dependencies require all accumulated parameters and
		// are handled once the result line arrives (§4.5).
	}

	return nil
}

func (b *Builder) setNodeVariable(node *program.Node, label string) {
	id, ok := b.interner.LookupVariable(label)
	if !ok {
		id = b.interner.InternVariable(label)
	}
	node.Variable = id
	node.HasVariable = true
}

// getArrayRealVar resolves label to the array it was originally declared
// as, by following the caller↔callee argument map from the current
// dynamic function's binding of label.
func (b *Builder) getArrayRealVar(label string) string {
	varID, ok := b.interner.LookupVariable(label)
	if !ok {
		varID = b.interner.InternVariable(label)
	}
	dynVar := program.DynamicVariable{Function: b.currDynamicFunction, Variable: varID}
	real := b.sink.CallArgMap().Lookup(dynVar)
	return b.interner.VariableName(real.Variable)
}

func buildMemAccess(vaddr uint64, size int, valueText string, kind valuecodec.Kind) (*memaccess.MemAccess, error) {
	if kind == valuecodec.Vector {
		data, err := valuecodec.DecodeVector(valueText)
		if err != nil {
			return nil, err
		}
		return memaccess.NewVector(vaddr, data), nil
	}
	bits, err := valuecodec.DecodeScalar(valueText, size, kind == valuecodec.Float)
	if err != nil {
		return nil, err
	}
	return memaccess.NewScalar(vaddr, size, bits, kind == valuecodec.Float), nil
}
