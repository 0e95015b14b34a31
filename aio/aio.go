// Package aio defines the asynchronous I/O queue used by the asynchronous
// write engine, and a queue implementation backed by worker goroutines.
//
// A queue is an opaque capability with two calls: Submit hands it a batch of
// prepared operations, and Poll collects finished ones. Results are reported
// the way the kernel reports them in an io_event: the number of bytes
// transferred on success, or a negated errno on failure.
package aio

import (
	"fmt"
	"io"
	"time"

	"github.com/dargueta/biotest/errors"
)

// Handle identifies an operation for its whole lifetime, including any
// resubmissions. Completions are correlated to operations by handle, never by
// address.
type Handle uint32

type Opcode int

const (
	OpWrite Opcode = iota
	OpRead
)

func (op Opcode) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	default:
		return fmt.Sprintf("opcode(%d)", int(op))
	}
}

// Operation is the control block for a single transfer. Once submitted, the
// caller must not modify it or its buffer until the matching completion has
// been returned by Poll.
type Operation struct {
	Handle Handle
	Opcode Opcode
	Buffer []byte
	Offset int64
}

// Reset clears every field except the handle.
func (op *Operation) Reset() {
	*op = Operation{Handle: op.Handle}
}

// Completion reports the outcome of one operation.
type Completion struct {
	Handle Handle
	// Result is the number of bytes transferred, or a negated errno code if
	// the operation failed.
	Result int64
}

// Failed returns true if the operation reported an error code.
func (c Completion) Failed() bool {
	return c.Result < 0
}

// Errno gives the error code of a failed operation, or EOK.
func (c Completion) Errno() errors.Errno {
	if c.Result >= 0 {
		return errors.EOK
	}
	return errors.Errno(-c.Result)
}

// Queue is the asynchronous I/O capability.
type Queue interface {
	// Submit queues up operations for execution and returns how many were
	// accepted. Operations are accepted in order, so if n are accepted they're
	// ops[:n]. Accepting fewer than len(ops) without an error means the queue
	// is full.
	Submit(ops []*Operation) (int, error)
	// Poll returns up to `max` completions. If none are ready it waits up to
	// `timeout` for at least one; a timeout of 0 never waits.
	Poll(max int, timeout time.Duration) ([]Completion, error)
	// Close waits for all running operations to finish and releases the queue.
	// Completions not yet polled are discarded.
	io.Closer
}

// Device is what a worker-backed queue performs transfers against. Both calls
// are positional so that workers never share a file offset.
type Device interface {
	io.WriterAt
	io.ReaderAt
}

var ErrQueueClosed = errors.NewOfClass(
	errors.ClassTransport, errors.EBADF, "completion queue is closed")
var ErrInvalidDepth = errors.NewOfClass(
	errors.ClassResource, errors.EINVAL, "queue depth must be at least 1")
