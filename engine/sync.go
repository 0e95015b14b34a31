package engine

import (
	"github.com/dargueta/biotest/verify"
)

// WriteSync writes every block in order, one transfer at a time.
func (e *Engine) WriteSync() error {
	pool, buffer, err := e.singleBuffer()
	if err != nil {
		return err
	}
	defer pool.Release(buffer)

	data := buffer.Bytes()
	progress := newMilestones(e.options.Progress, e.order.Len())

	for position := uint64(0); position < e.order.Len(); position++ {
		block := e.order.At(position)
		offset, err := e.stream.PositionToOffset(position)
		if err != nil {
			return err
		}

		verify.Stamp(data, block)
		err = e.transfer("write", position, block, func() error {
			return e.target.Write(data, offset)
		})
		if err != nil {
			return err
		}

		e.report.BlocksWritten++
		progress.advance(position + 1)
	}
	return nil
}
