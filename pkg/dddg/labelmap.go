package dddg

import (
	"strconv"
	"strings"

	"github.com/archsim/dddg/pkg/program"
)

// labelMapStart and labelMapEnd delimit the optional loop-labelmap block
// that precedes the instruction stream.
const (
	labelMapStart = "%%%% LABEL MAP START %%%%"
	labelMapEnd   = "%%%% LABEL MAP END %%%%"
)

// parseLabelmapLine parses one body line of the labelmap block:
// "function/label line_number [inline caller1 caller2 …]". One UniqueLabel
// entry is inserted per inlining caller in addition to the original.
func (b *Builder) parseLabelmapLine(line string) error {
	functionPart, rest, ok := strings.Cut(line, "/")
	if !ok {
		return ErrMalformedLine
	}
	labelPart, rest, ok := cutField(rest)
	if !ok {
		return ErrMalformedLine
	}
	lineNumPart, callersPart, _ := cutField(rest)

	lineNumber, err := strconv.Atoi(lineNumPart)
	if err != nil {
		return ErrMalformedLine
	}

	function := b.interner.InternFunction(functionPart)
	label := b.interner.InternLabel(labelPart)
	unique := program.UniqueLabel{Function: function, Label: label, Line: lineNumber}
	b.sink.Labelmap().Insert(lineNumber, unique)

	callersPart = strings.TrimSpace(callersPart)
	callersPart = strings.TrimPrefix(callersPart, "inline")
	callersPart = strings.TrimSpace(callersPart)
	if callersPart == "" {
		return nil
	}
	for _, caller := range strings.Fields(callersPart) {
		callerFunc := b.interner.InternFunction(caller)
		inlined := program.UniqueLabel{Function: callerFunc, Label: label, Line: lineNumber}
		b.sink.Labelmap().Insert(lineNumber, inlined)
		b.inlineLabelmap[inlined] = unique
	}
	return nil
}

// cutField splits s on the first run of whitespace, trimming leading
// whitespace from s first.
func cutField(s string) (field, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, "", true
	}
	return s[:idx], s[idx+1:], true
}
