package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMilestones(t *testing.T) {
	out := &bytes.Buffer{}
	progress := newMilestones(out, 25)

	progress.advance(2)
	assert.Empty(t, out.String())
	progress.advance(3)
	assert.Equal(t, ".", out.String())
	progress.advance(13)
	assert.Equal(t, ".....", out.String())

	// Going backwards never prints anything.
	progress.advance(4)
	assert.Equal(t, ".....", out.String())

	progress.advance(25)
	assert.Equal(t, "..........", out.String())
	progress.advance(100)
	assert.EqualValues(t, 10, progress.Reported())
}

func TestMilestones__Empty(t *testing.T) {
	out := &bytes.Buffer{}
	newMilestones(out, 0).advance(10)
	assert.Empty(t, out.String())
}

func TestBlockError(t *testing.T) {
	err := &BlockError{Op: "read", Position: 3, Block: 0x1f, Err: assert.AnError}
	assert.Equal(
		t,
		"error reading blk 0x1f (position 3): "+assert.AnError.Error(),
		err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
