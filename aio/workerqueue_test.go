package aio_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/dargueta/biotest/aio"
	"github.com/dargueta/biotest/errors"
	biotesttest "github.com/dargueta/biotest/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain polls until `count` completions have been collected or the test times out.
func drain(t *testing.T, q aio.Queue, count int) []aio.Completion {
	collected := []aio.Completion{}
	deadline := time.Now().Add(5 * time.Second)

	for len(collected) < count {
		require.True(t, time.Now().Before(deadline), "timed out waiting for completions")
		completions, err := q.Poll(count-len(collected), 50*time.Millisecond)
		require.NoError(t, err)
		collected = append(collected, completions...)
	}
	return collected
}

func writeOp(handle aio.Handle, fill byte, offset int64) *aio.Operation {
	return &aio.Operation{
		Handle: handle,
		Opcode: aio.OpWrite,
		Buffer: bytes.Repeat([]byte{fill}, 512),
		Offset: offset,
	}
}

func TestWorkerQueue__InvalidDepth(t *testing.T) {
	_, err := aio.NewWorkerQueue(biotesttest.NewMemoryTarget(512), 0)
	assert.ErrorIs(t, err, aio.ErrInvalidDepth)
}

func TestWorkerQueue__WriteAndRead(t *testing.T) {
	target := biotesttest.NewMemoryTarget(4 * 512)
	q, err := aio.NewWorkerQueue(target, 4)
	require.NoError(t, err)
	defer q.Close()

	ops := []*aio.Operation{
		writeOp(0, 0x11, 0),
		writeOp(1, 0x22, 512),
		writeOp(2, 0x33, 1024),
		writeOp(3, 0x44, 1536),
	}
	accepted, err := q.Submit(ops)
	require.NoError(t, err)
	require.Equal(t, 4, accepted)

	completions := drain(t, q, 4)
	seen := map[aio.Handle]bool{}
	for _, c := range completions {
		assert.False(t, c.Failed(), "operation %d failed: %d", c.Handle, c.Result)
		assert.EqualValues(t, 512, c.Result)
		assert.False(t, seen[c.Handle], "handle %d completed twice", c.Handle)
		seen[c.Handle] = true
	}
	assert.Equal(t, 0, q.InFlight())

	image := target.Bytes()
	assert.Equal(t, bytes.Repeat([]byte{0x33}, 512), image[1024:1536])

	readBack := &aio.Operation{Handle: 9, Opcode: aio.OpRead, Buffer: make([]byte, 512), Offset: 512}
	accepted, err = q.Submit([]*aio.Operation{readBack})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)
	drain(t, q, 1)
	assert.Equal(t, bytes.Repeat([]byte{0x22}, 512), readBack.Buffer)
}

// The queue never holds more than its depth, including unpolled completions.
func TestWorkerQueue__PartialSubmit(t *testing.T) {
	target := biotesttest.NewMemoryTarget(8 * 512)
	q, err := aio.NewWorkerQueue(target, 2)
	require.NoError(t, err)
	defer q.Close()

	ops := []*aio.Operation{writeOp(0, 1, 0), writeOp(1, 2, 512), writeOp(2, 3, 1024)}
	accepted, err := q.Submit(ops)
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	// Nothing has been polled yet, so even finished operations take up room.
	time.Sleep(20 * time.Millisecond)
	accepted, err = q.Submit(ops[2:])
	require.NoError(t, err)
	assert.Equal(t, 0, accepted)

	drain(t, q, 2)
	accepted, err = q.Submit(ops[2:])
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
	drain(t, q, 1)
}

func TestWorkerQueue__FailedOperationReportsErrno(t *testing.T) {
	target := biotesttest.NewMemoryTarget(512)
	q, err := aio.NewWorkerQueue(target, 1)
	require.NoError(t, err)
	defer q.Close()

	// Past the end of the target.
	accepted, err := q.Submit([]*aio.Operation{writeOp(5, 0xff, 512)})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	completions := drain(t, q, 1)
	require.Len(t, completions, 1)
	assert.EqualValues(t, 5, completions[0].Handle)
	assert.True(t, completions[0].Failed())
	assert.Equal(t, errors.EIO, completions[0].Errno())
}

func TestWorkerQueue__PollWithoutWork(t *testing.T) {
	q, err := aio.NewWorkerQueue(biotesttest.NewMemoryTarget(512), 1)
	require.NoError(t, err)
	defer q.Close()

	completions, err := q.Poll(4, 0)
	assert.NoError(t, err)
	assert.Empty(t, completions)

	start := time.Now()
	completions, err = q.Poll(4, 20*time.Millisecond)
	assert.NoError(t, err)
	assert.Empty(t, completions)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWorkerQueue__Closed(t *testing.T) {
	q, err := aio.NewWorkerQueue(biotesttest.NewMemoryTarget(512), 1)
	require.NoError(t, err)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "second close should be a no-op")

	_, err = q.Submit([]*aio.Operation{writeOp(0, 0, 0)})
	assert.ErrorIs(t, err, aio.ErrQueueClosed)
	_, err = q.Poll(1, 0)
	assert.ErrorIs(t, err, aio.ErrQueueClosed)
}

func TestCompletion__Errno(t *testing.T) {
	assert.Equal(t, errors.EOK, aio.Completion{Result: 512}.Errno())
	assert.Equal(t, errors.EIO, aio.Completion{Result: -int64(errors.EIO)}.Errno())
	assert.Equal(t, "write", aio.OpWrite.String())
}

func TestOperation__Reset(t *testing.T) {
	op := writeOp(3, 1, 1024)
	op.Reset()
	assert.Equal(t, aio.Operation{Handle: 3}, *op)
}
