package faults

import (
	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/aio"
	"github.com/dargueta/biotest/common"
)

// Device is what a fault target wraps: a target the engines can use directly,
// which queue workers can also access by offset.
type Device interface {
	biotest.Target
	aio.Device
}

type sectorSizer interface {
	SectorSize() uint
}

// Target passes transfers through to another device, failing the ones its
// plan says should fail. It implements biotest.AsyncTarget once a queue is
// enabled.
type Target struct {
	inner  Device
	plan   *Plan
	layout common.BlockStream
	queue  aio.Queue
}

// Wrap creates a fault-injecting target around `inner`. `blockSize` converts
// byte offsets into the block positions the plan refers to.
func Wrap(inner Device, plan *Plan, blockSize uint) *Target {
	if blockSize == 0 {
		blockSize = biotest.MinBlockSize
	}
	return &Target{
		inner:  inner,
		plan:   plan,
		layout: common.NewBlockStream(0, blockSize, 0),
	}
}

// trip checks the plan for a transfer at `offset`. Transfers that don't start
// on a block boundary never match a fault.
func (t *Target) trip(op string, offset int64) error {
	if t.plan == nil {
		return nil
	}
	position, err := t.layout.OffsetToPosition(offset)
	if err != nil {
		return nil
	}
	return t.plan.Trip(op, position)
}

func (t *Target) Seek(offset int64) error {
	return t.inner.Seek(offset)
}

func (t *Target) Write(buffer []byte, offset int64) error {
	if err := t.trip(OpWrite, offset); err != nil {
		return err
	}
	return t.inner.Write(buffer, offset)
}

func (t *Target) Read(buffer []byte, offset int64) error {
	if err := t.trip(OpRead, offset); err != nil {
		return err
	}
	return t.inner.Read(buffer, offset)
}

func (t *Target) WriteAt(buffer []byte, offset int64) (int, error) {
	if err := t.trip(OpWrite, offset); err != nil {
		return 0, err
	}
	return t.inner.WriteAt(buffer, offset)
}

func (t *Target) ReadAt(buffer []byte, offset int64) (int, error) {
	if err := t.trip(OpRead, offset); err != nil {
		return 0, err
	}
	return t.inner.ReadAt(buffer, offset)
}

func (t *Target) Sync() error {
	return t.inner.Sync()
}

// SectorSize passes through the wrapped device's sector size, if it has one.
func (t *Target) SectorSize() uint {
	if sized, ok := t.inner.(sectorSizer); ok {
		return sized.SectorSize()
	}
	return biotest.MinBlockSize
}

// EnableQueue attaches a completion queue whose workers go through the fault
// plan.
func (t *Target) EnableQueue(depth int) error {
	queue, err := aio.NewWorkerQueue(t, depth)
	if err != nil {
		return biotest.ErrResourceAllocation.Wrap(err)
	}
	t.queue = queue
	return nil
}

func (t *Target) Queue() aio.Queue {
	return t.queue
}

// Close closes the queue. The wrapped device is left open.
func (t *Target) Close() error {
	if t.queue == nil {
		return nil
	}
	return t.queue.Close()
}
