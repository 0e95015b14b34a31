package engine

import (
	"fmt"

	"github.com/chzyer/logex"
	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/verify"
)

// ReadBack reads every block synchronously and checks that it holds the value
// the block order assigns to its position.
//
// In a verify-only run every block is checked and mismatches are counted; the
// error returned at the end wraps the first one. Otherwise the first mismatch
// aborts the pass.
func (e *Engine) ReadBack() error {
	pool, buffer, err := e.singleBuffer()
	if err != nil {
		return err
	}
	defer pool.Release(buffer)

	if err := e.target.Seek(e.stream.StartOffset); err != nil {
		return biotest.ErrIOFailed.WithMessage("error seeking to beginning of target").Wrap(err)
	}

	data := buffer.Bytes()
	verifyOnly := e.params.Mode.Has(biotest.ModeVerifyOnly)
	progress := newMilestones(e.options.Progress, e.order.Len())
	var firstMismatch error

	for position := uint64(0); position < e.order.Len(); position++ {
		expected := e.order.At(position)
		offset, err := e.stream.PositionToOffset(position)
		if err != nil {
			return err
		}

		err = e.transfer("read", position, expected, func() error {
			return e.target.Read(data, offset)
		})
		if err != nil {
			return err
		}
		e.report.BlocksRead++

		if err := verify.Check(data, expected); err != nil {
			e.report.Mismatches++
			if mismatch, ok := err.(*verify.MismatchError); ok {
				mismatch.WriteDiagnostics(e.options.Diagnostics)
			}

			blockErr := &BlockError{Op: "read", Position: position, Block: expected, Err: err}
			if !verifyOnly {
				return blockErr
			}
			logex.Error(blockErr)
			if firstMismatch == nil {
				firstMismatch = blockErr
			}
		}
		progress.advance(position + 1)
	}

	if firstMismatch != nil {
		return biotest.ErrContentMismatch.WithMessage(
			fmt.Sprintf("%d of %d blocks didn't verify", e.report.Mismatches, e.order.Len()),
		).Wrap(firstMismatch)
	}
	return nil
}
