package aio

import (
	"io"
	"sync"
	"time"

	"github.com/dargueta/biotest/errors"
	"github.com/eapache/queue"
)

// WorkerQueue implements Queue with a fixed set of goroutines performing
// positional transfers against a Device. It never holds more than `depth`
// operations, counting both ones still running and finished ones that haven't
// been polled yet, the same way a kernel AIO context sized with io_setup does.
//
// Submit, Poll and Close are meant to be called from a single goroutine.
type WorkerQueue struct {
	device   Device
	depth    int
	work     chan *Operation
	workers  sync.WaitGroup
	ready    chan struct{}
	lock     sync.Mutex
	finished *queue.Queue
	inFlight int
	closed   bool
}

// NewWorkerQueue creates a queue with room for `depth` operations and starts
// one worker per slot.
func NewWorkerQueue(device Device, depth int) (*WorkerQueue, error) {
	if depth < 1 {
		return nil, ErrInvalidDepth
	}

	q := &WorkerQueue{
		device:   device,
		depth:    depth,
		work:     make(chan *Operation, depth),
		ready:    make(chan struct{}, 1),
		finished: queue.New(),
	}

	q.workers.Add(depth)
	for i := 0; i < depth; i++ {
		go q.run()
	}
	return q, nil
}

// Depth gives the maximum number of operations the queue will hold.
func (q *WorkerQueue) Depth() int {
	return q.depth
}

// InFlight gives the number of operations submitted but not yet returned by Poll.
func (q *WorkerQueue) InFlight() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.inFlight
}

func (q *WorkerQueue) Submit(ops []*Operation) (int, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.closed {
		return 0, ErrQueueClosed
	}

	accepted := q.depth - q.inFlight
	if accepted > len(ops) {
		accepted = len(ops)
	}

	// The channel's capacity equals the depth and it never holds more than
	// inFlight entries, so none of these sends block.
	for _, op := range ops[:accepted] {
		q.work <- op
	}
	q.inFlight += accepted
	return accepted, nil
}

func (q *WorkerQueue) Poll(max int, timeout time.Duration) ([]Completion, error) {
	if max <= 0 {
		return nil, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		completions, err := q.reap(max)
		if err != nil || len(completions) > 0 || timeout <= 0 {
			return completions, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.ready:
			timer.Stop()
		case <-timer.C:
			return q.reap(max)
		}
	}
}

// reap removes up to `max` finished operations without waiting.
func (q *WorkerQueue) reap(max int) ([]Completion, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	count := q.finished.Length()
	if count > max {
		count = max
	}
	if count == 0 {
		return nil, nil
	}

	completions := make([]Completion, count)
	for i := range completions {
		completions[i] = q.finished.Remove().(Completion)
	}
	q.inFlight -= count
	return completions, nil
}

func (q *WorkerQueue) Close() error {
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return nil
	}
	q.closed = true
	close(q.work)
	q.lock.Unlock()

	q.workers.Wait()
	return nil
}

func (q *WorkerQueue) run() {
	defer q.workers.Done()

	for op := range q.work {
		completion := Completion{
			Handle: op.Handle,
			Result: q.execute(op),
		}

		q.lock.Lock()
		q.finished.Add(completion)
		q.lock.Unlock()

		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
}

// execute performs a single operation and returns its result in io_event form.
func (q *WorkerQueue) execute(op *Operation) int64 {
	var n int
	var err error

	switch op.Opcode {
	case OpWrite:
		n, err = q.device.WriteAt(op.Buffer, op.Offset)
	case OpRead:
		n, err = q.device.ReadAt(op.Buffer, op.Offset)
		if err == io.EOF && n == len(op.Buffer) {
			err = nil
		}
	default:
		return -int64(errors.EINVAL)
	}

	if err != nil {
		return -int64(errors.ErrnoOf(err))
	}
	return int64(n)
}
