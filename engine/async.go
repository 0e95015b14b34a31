package engine

import (
	"fmt"
	"syscall"

	"github.com/chzyer/logex"
	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/aio"
	"github.com/dargueta/biotest/buffers"
	"github.com/dargueta/biotest/errors"
	"github.com/dargueta/biotest/requests"
	"github.com/dargueta/biotest/verify"
	"github.com/hashicorp/go-multierror"
)

// asyncWriter holds the state of one asynchronous write pass. It moves through
// three phases:
//
//   - submitting: descriptors and buffers are available and blocks remain, so
//     new writes are prepared and submitted each round.
//   - draining: every block has been submitted (or a write failed for good), so
//     completions are only reaped.
//   - done: nothing is in flight and either every block completed or a failure
//     was recorded.
type asyncWriter struct {
	engine      *Engine
	queue       aio.Queue
	data        *buffers.Pool
	descriptors *requests.Pool
	progress    *milestones
	batch       []*aio.Operation
	total       uint64
	submitted   uint64
	completed   uint64
	failures    error
}

// WriteAsync writes every block through `queue`, keeping at most the window's
// worth of operations in flight. Each in-flight operation owns one descriptor
// and one buffer until its completion is reaped.
func (e *Engine) WriteAsync(queue aio.Queue) error {
	if queue == nil {
		return biotest.ErrResourceAllocation.WithMessage("no completion queue")
	}

	data, err := buffers.New(e.params.Window, e.params.BlockSize, e.alignment)
	if err != nil {
		return err
	}
	descriptors, err := requests.New(e.params.Window)
	if err != nil {
		return err
	}

	writer := asyncWriter{
		engine:      e,
		queue:       queue,
		data:        data,
		descriptors: descriptors,
		progress:    newMilestones(e.options.Progress, e.order.Len()),
		batch:       make([]*aio.Operation, 0, e.params.Window),
		total:       e.order.Len(),
	}
	err = writer.run()

	e.report.Submitted = writer.submitted
	e.report.Completed = writer.completed
	e.report.BlocksWritten = writer.completed
	return err
}

func (w *asyncWriter) run() error {
	for !w.done() {
		prepared, err := w.prepareBatch()
		if err != nil {
			return err
		}
		if prepared > 0 {
			if err := w.submit(); err != nil {
				return err
			}
		}

		// Don't wait if there may be room to submit more right away.
		timeout := w.engine.options.PollTimeout
		if prepared > 0 {
			timeout = 0
		}
		completions, err := w.queue.Poll(int(w.descriptors.Capacity()), timeout)
		if err != nil {
			return biotest.ErrIOFailed.WithMessage("error polling for completions").Wrap(err)
		}

		for _, completion := range completions {
			if err := w.complete(completion); err != nil {
				return err
			}
		}
		w.progress.advance(w.completed)
	}

	if w.failures != nil {
		return w.failures
	}
	if w.data.InUse() != 0 || w.descriptors.Acquired() != 0 {
		return biotest.ErrAlreadyInUse.WithMessage(fmt.Sprintf(
			"%d buffers and %d descriptors weren't returned",
			w.data.InUse(),
			w.descriptors.Acquired()))
	}
	return nil
}

func (w *asyncWriter) done() bool {
	if w.failures != nil {
		return w.descriptors.InFlight() == 0
	}
	return w.submitted == w.total && w.completed == w.submitted
}

// prepareBatch fills the batch with as many new writes as resources and
// remaining blocks allow. Nothing new is prepared once a write has failed.
func (w *asyncWriter) prepareBatch() (int, error) {
	w.batch = w.batch[:0]
	if w.failures != nil {
		return 0, nil
	}

	for w.submitted+uint64(len(w.batch)) < w.total {
		if w.descriptors.Available() == 0 || w.data.Available() == 0 {
			break
		}

		descriptor, _ := w.descriptors.Acquire()
		buffer, _ := w.data.Acquire()
		position := w.submitted + uint64(len(w.batch))

		offset, err := w.engine.stream.PositionToOffset(position)
		if err != nil {
			return 0, err
		}

		verify.Stamp(buffer.Bytes(), w.engine.order.At(position))
		descriptor.Buffer = buffer
		descriptor.Position = position
		descriptor.Op.Opcode = aio.OpWrite
		descriptor.Op.Buffer = buffer.Bytes()
		descriptor.Op.Offset = offset

		if err := w.descriptors.MarkInUse(descriptor); err != nil {
			return 0, err
		}
		w.batch = append(w.batch, &descriptor.Op)
	}
	return len(w.batch), nil
}

// submit hands the batch to the queue. Anything the queue doesn't accept is
// released again and the pass fails.
func (w *asyncWriter) submit() error {
	accepted, err := w.queue.Submit(w.batch)
	if accepted < 0 {
		accepted = 0
	}
	w.submitted += uint64(accepted)
	if err == nil && accepted == len(w.batch) {
		return nil
	}

	var result error
	for _, op := range w.batch[accepted:] {
		if releaseErr := w.release(op.Handle); releaseErr != nil {
			result = multierror.Append(result, releaseErr)
		}
	}

	var submitErr error
	if err != nil {
		submitErr = biotest.ErrIOFailed.WithMessage("error submitting writes").Wrap(err)
	} else {
		submitErr = biotest.ErrShortSubmit.WithMessage(
			fmt.Sprintf("%d of %d accepted", accepted, len(w.batch)))
	}
	if result != nil {
		return multierror.Append(submitErr, result)
	}
	return submitErr
}

// release takes the descriptor for `handle` out of the in-use set and returns
// it and its buffer to their pools.
func (w *asyncWriter) release(handle aio.Handle) error {
	descriptor, err := w.descriptors.FindAndRelease(handle)
	if err != nil {
		return err
	}

	var result error
	if descriptor.Buffer != nil {
		if err := w.data.Release(descriptor.Buffer); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := w.descriptors.Release(descriptor); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

func (w *asyncWriter) complete(completion aio.Completion) error {
	descriptor, ok := w.descriptors.Lookup(completion.Handle)
	if !ok {
		return biotest.ErrUnknownDescriptor.WithMessage(
			fmt.Sprintf("completion for handle %d", completion.Handle))
	}

	params := w.engine.params
	if completion.Result == int64(params.BlockSize) {
		w.completed++
		return w.release(completion.Handle)
	}

	block := w.engine.order.At(descriptor.Position)
	if completion.Errno() == errors.EIO && params.Mode.Has(biotest.ModeRetryOnError) {
		logex.Errorf("error writing blk %#x: %d (resubmitting)", block, int(errors.EIO))
		w.engine.options.Sleep(params.RetryDelay)

		descriptor.Resubmissions++
		w.engine.report.Resubmissions++
		accepted, err := w.queue.Submit([]*aio.Operation{&descriptor.Op})
		if err != nil {
			return biotest.ErrIOFailed.WithMessage(
				fmt.Sprintf("error resubmitting blk %#x", block)).Wrap(err)
		}
		if accepted != 1 {
			return biotest.ErrShortSubmit.WithMessage(
				fmt.Sprintf("resubmission of blk %#x wasn't accepted", block))
		}
		return nil
	}

	var cause error
	if completion.Failed() {
		cause = syscall.Errno(completion.Errno())
	} else {
		cause = errors.NewWithMessage(
			errors.EIO,
			fmt.Sprintf("transferred %d bytes, expected %d", completion.Result, params.BlockSize))
	}

	failure := &BlockError{
		Op:       "write",
		Position: descriptor.Position,
		Block:    block,
		Err:      biotest.ErrIOFailed.Wrap(cause),
	}
	logex.Error(failure)
	w.failures = multierror.Append(w.failures, failure)
	return w.release(completion.Handle)
}
