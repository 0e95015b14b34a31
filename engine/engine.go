// Package engine drives a run: a write pass, either synchronous or through the
// completion queue, followed by a synchronous read-back pass that verifies
// every block.
//
// Block position i always lives at byte offset i * block size. What's written
// there is the identity the block order assigns to position i, so a randomized
// run writes sequentially but stamps permuted values.
package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/chzyer/logex"
	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/blockorder"
	"github.com/dargueta/biotest/buffers"
	"github.com/dargueta/biotest/common"
	"github.com/dargueta/biotest/errors"
)

// DefaultPollTimeout is how long the asynchronous engine waits for a
// completion when it has nothing new to submit.
const DefaultPollTimeout = 100 * time.Millisecond

// Options holds the parts of a run's environment that aren't run parameters.
// The zero value is usable.
type Options struct {
	// Progress receives pass headers and one dot per 10% of each pass.
	Progress io.Writer
	// Diagnostics receives the dump of any block that fails verification.
	Diagnostics io.Writer
	// Sleep is called for the retry backoff. Tests replace it to avoid waiting.
	Sleep func(time.Duration)
	// PollTimeout bounds how long a poll of the completion queue may wait when
	// no new operations could be submitted.
	PollTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Progress == nil {
		o.Progress = io.Discard
	}
	if o.Diagnostics == nil {
		o.Diagnostics = io.Discard
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	return o
}

// Report summarizes a run.
type Report struct {
	TotalBlocks   uint64
	BlocksWritten uint64
	BlocksRead    uint64
	// Retries counts synchronous transfers that were repeated after an error.
	Retries uint64
	// Submitted and Completed count asynchronous operations. Resubmissions of
	// a failed operation are counted separately and not included in Submitted.
	Submitted     uint64
	Completed     uint64
	Resubmissions uint64
	Mismatches    uint64
	WriteTime     time.Duration
	ReadTime      time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf(
		"blocks=%d written=%d read=%d retries=%d resubmitted=%d mismatches=%d write=%s read=%s",
		r.TotalBlocks,
		r.BlocksWritten,
		r.BlocksRead,
		r.Retries,
		r.Resubmissions,
		r.Mismatches,
		r.WriteTime.Round(time.Millisecond),
		r.ReadTime.Round(time.Millisecond))
}

type Engine struct {
	target    biotest.Target
	params    biotest.RunParameters
	order     *blockorder.Order
	stream    common.BlockStream
	alignment uint
	options   Options
	report    Report
}

// New creates an engine for one run over `target`. `alignment` is the boundary
// transfer buffers are aligned to, normally the device's sector size.
func New(
	target biotest.Target,
	params biotest.RunParameters,
	order *blockorder.Order,
	alignment uint,
	options Options,
) *Engine {
	return &Engine{
		target:    target,
		params:    params,
		order:     order,
		stream:    common.NewBlockStream(order.Len(), params.BlockSize, 0),
		alignment: alignment,
		options:   options.withDefaults(),
		report:    Report{TotalBlocks: order.Len()},
	}
}

// Report returns the statistics gathered so far.
func (e *Engine) Report() Report {
	return e.report
}

// sectorSizer is implemented by targets that know their transfer granularity.
type sectorSizer interface {
	SectorSize() uint
}

// Run validates the parameters, builds the block order and performs a full run
// against `target`.
func Run(target biotest.Target, params biotest.RunParameters, options Options) (Report, error) {
	if err := params.Validate(); err != nil {
		return Report{}, err
	}

	alignment := uint(biotest.MinBlockSize)
	if sized, ok := target.(sectorSizer); ok {
		alignment = sized.SectorSize()
		if err := params.ValidateForDevice(alignment); err != nil {
			return Report{}, err
		}
	}

	order := blockorder.New(
		params.TotalBlocks(), params.Mode.Has(biotest.ModeRandomize), params.Seed)
	engine := New(target, params, order, alignment, options)
	err := engine.Run()
	return engine.Report(), err
}

// Run performs the write pass (unless the run is verify-only) and then the
// read-back pass.
func (e *Engine) Run() error {
	if e.order.Len() == 0 {
		logex.Info("data set holds no whole blocks, nothing to do")
		return nil
	}

	if !e.params.Mode.Has(biotest.ModeVerifyOnly) {
		fmt.Fprint(e.options.Progress, "writing blocks: ")
		start := time.Now()
		err := e.writePass()
		e.report.WriteTime = time.Since(start)
		fmt.Fprintln(e.options.Progress)
		if err != nil {
			return err
		}

		if err := e.target.Sync(); err != nil {
			return biotest.ErrIOFailed.WithMessage("error syncing target").Wrap(err)
		}
	}

	fmt.Fprint(e.options.Progress, "reading blocks: ")
	start := time.Now()
	err := e.ReadBack()
	e.report.ReadTime = time.Since(start)
	fmt.Fprintln(e.options.Progress)
	return err
}

func (e *Engine) writePass() error {
	if !e.params.Mode.Has(biotest.ModeAsync) {
		return e.WriteSync()
	}

	asyncTarget, ok := e.target.(biotest.AsyncTarget)
	if !ok || asyncTarget.Queue() == nil {
		return biotest.ErrResourceAllocation.WithMessage("target has no completion queue")
	}
	return e.WriteAsync(asyncTarget.Queue())
}

// singleBuffer allocates the one aligned buffer the synchronous passes use.
func (e *Engine) singleBuffer() (*buffers.Pool, *buffers.Buffer, error) {
	pool, err := buffers.New(1, e.params.BlockSize, e.alignment)
	if err != nil {
		return nil, nil, err
	}
	buffer, ok := pool.Acquire()
	if !ok {
		return nil, nil, biotest.ErrPoolExhausted
	}
	return pool, buffer, nil
}

// transfer runs `attempt` until it succeeds. Without retry-on-error the first
// failure is returned as a *BlockError.
func (e *Engine) transfer(op string, position, block uint64, attempt func() error) error {
	for {
		err := attempt()
		if err == nil {
			return nil
		}

		if !e.params.Mode.Has(biotest.ModeRetryOnError) {
			return &BlockError{
				Op:       op,
				Position: position,
				Block:    block,
				Err:      biotest.ErrIOFailed.Wrap(err),
			}
		}

		logex.Errorf(
			"error %s blk %#x: %d (retrying)", gerund(op), block, int(errors.ErrnoOf(err)))
		e.report.Retries++
		e.options.Sleep(e.params.RetryDelay)
	}
}
