package dddg

import (
	"bufio"
	"strconv"
	"strings"
)

// BuildInitialDDDG implements §4.7: it scans r line by line starting at
// traceOffset, parsing the optional labelmap block inline if present,
// then dispatching each subsequent line to the instruction, result,
// forward, or parameter parser by its leading tag. The scan stops once a
// Ret line for the first function seen is parsed and a blank or
// unparseable line follows, or at EOF.
//
// It returns the trace offset reached. If no instruction line was ever
// parsed, it returns ErrEndOfTrace.
func (b *Builder) BuildInitialDDDG(r *bufio.Reader, traceOffset int64) (int64, error) {
	offset := traceOffset
	var (
		seenFirstLine         bool
		firstFunction         string
		firstFunctionReturned bool
		inLabelmapSection     bool
		labelmapDone          bool
	)

	for {
		line, readErr := r.ReadString('\n')
		if len(line) == 0 && readErr != nil {
			break
		}
		offset += int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")

		if !labelmapDone {
			if !inLabelmapSection {
				if strings.Contains(trimmed, labelMapStart) {
					inLabelmapSection = true
					if readErr != nil {
						break
					}
					continue
				}
			} else {
				if strings.Contains(trimmed, labelMapEnd) {
					labelmapDone = true
					inLabelmapSection = false
					if readErr != nil {
						break
					}
					continue
				}
				if err := b.parseLabelmapLine(trimmed); err != nil {
					return offset, &ParseError{Offset: offset, Line: trimmed, Err: err}
				}
			}
		}

		idx := strings.IndexByte(trimmed, ',')
		if idx < 0 {
			if firstFunctionReturned {
				break
			}
			if readErr != nil {
				break
			}
			continue
		}
		labelmapDone = true
		tag := trimmed[:idx]
		lineRest := trimmed[idx+1:]

		if b.progress != nil {
			b.progress.Tick(offset)
		}

		switch tag {
		case "0":
			if !seenFirstLine {
				seenFirstLine = true
				fields, err := splitInstructionFields(lineRest)
				if err != nil {
					return offset, &ParseError{Offset: offset, Line: trimmed, Err: err}
				}
				firstFunction = fields.staticFunction
			}
			firstFunctionReturned = isFunctionReturned(lineRest, firstFunction)
			if err := b.parseInstructionLine(lineRest); err != nil {
				return offset, &ParseError{Offset: offset, Line: trimmed, Err: err}
			}
		case "r":
			if err := b.parseResult(lineRest); err != nil {
				return offset, &ParseError{Offset: offset, Line: trimmed, Err: err}
			}
		case "f":
			if err := b.parseForward(lineRest); err != nil {
				return offset, &ParseError{Offset: offset, Line: trimmed, Err: err}
			}
		default:
			paramTag, err := strconv.Atoi(tag)
			if err != nil {
				return offset, &ParseError{Offset: offset, Line: trimmed, Err: ErrMalformedLine}
			}
			if err := b.parseParameter(lineRest, paramTag); err != nil {
				return offset, &ParseError{Offset: offset, Line: trimmed, Err: err}
			}
		}

		if readErr != nil {
			break
		}
	}

	if !seenFirstLine {
		return offset, ErrEndOfTrace
	}
	b.flushEdges()
	b.resetInvocationState()
	return offset, nil
}
