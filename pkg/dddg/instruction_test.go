package dddg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/dddg/pkg/microop"
)

func TestSplitBblockID_NameAndDepth(t *testing.T) {
	name, depth, err := splitBblockID("for.body:3")
	require.NoError(t, err)
	assert.Equal(t, "for.body", name)
	assert.Equal(t, 3, depth)
}

func TestSplitBblockID_NoDepthSuffix(t *testing.T) {
	name, depth, err := splitBblockID("entry")
	require.NoError(t, err)
	assert.Equal(t, "entry", name)
	assert.Equal(t, 0, depth)
}

func TestSplitBblockID_ExceedsSanityBoundIsCorrupt(t *testing.T) {
	_, _, err := splitBblockID("loop:1001")
	assert.ErrorIs(t, err, ErrCorruptTrace)
}

func TestIsFunctionReturned_MatchesRetOfTargetFunction(t *testing.T) {
	line := "1,main,bb0:0,i0,7,0"
	assert.True(t, isFunctionReturned(line, "main"))
	assert.False(t, isFunctionReturned(line, "other"))
}

func TestIsFunctionReturned_NonRetIsFalse(t *testing.T) {
	line := "1,main,bb0:0,i0,3,0"
	assert.False(t, isFunctionReturned(line, "main"))
}

func TestSplitInstructionFields_RejectsShortLine(t *testing.T) {
	_, err := splitInstructionFields("1,main,bb0:0")
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestSplitInstructionFields_ParsesOpcode(t *testing.T) {
	fields, err := splitInstructionFields("1,main,bb0:0,i0,2,7")
	require.NoError(t, err)
	assert.Equal(t, microop.Load, fields.microop)
	assert.EqualValues(t, 7, fields.nodeID)
}
