package dddg

import (
	"strings"

	"github.com/archsim/dddg/pkg/program"
)

// parseForward implements §4.6: bind a callee's formal-parameter register
// to the caller's last-writer, recording the alias in the call-arg map.
func (b *Builder) parseForward(rest string) error {
	if b.currNode == nil {
		return ErrUnexpectedState
	}
	// DMA and trig operations are not treated as called functions, so
	// there is no caller/callee register mapping to record.
	if b.currMicroop.IsDMA() || b.currMicroop.IsTrig() {
		return nil
	}
	if !b.currMicroop.IsCall() {
		return ErrUnexpectedState
	}

	parts := strings.Split(rest, ",")
	if len(parts) < 4 {
		return ErrMalformedLine
	}
	isReg := strings.TrimSpace(parts[2]) != "0"
	label := parts[3]
	if !isReg {
		return ErrMalformedLine
	}

	variable := b.interner.InternVariable(label)
	uniqueRegRef := program.DynamicVariable{Function: b.calleeDynamicFunction, Variable: variable}

	if b.hasUniqueRegInCallerFunc {
		b.sink.CallArgMap().Add(uniqueRegRef, b.uniqueRegInCallerFunc)
		b.hasUniqueRegInCallerFunc = false
	}

	writtenInst := b.currNodeID
	if b.lastCallSource != -1 {
		writtenInst = uint64(b.lastCallSource)
	}
	b.registerLastWritten[uniqueRegRef] = writtenInst
	return nil
}
