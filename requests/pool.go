// Package requests provides the pool of reusable asynchronous request
// descriptors, and the set tracking which of them are currently submitted.
package requests

import (
	"fmt"

	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/aio"
	"github.com/dargueta/biotest/buffers"
	"github.com/dargueta/biotest/common"
)

// Descriptor pairs an operation control block with the resources it uses while
// it's in flight. A descriptor's handle never changes, so a completion can
// always be traced back to the descriptor that produced it.
type Descriptor struct {
	// Op is the control block handed to the queue.
	Op aio.Operation
	// Buffer is the data buffer attached to the operation, if any.
	Buffer *buffers.Buffer
	// Position is the block position in the data set this operation covers.
	Position uint64
	// Resubmissions counts how many times the operation was resubmitted after
	// a failure.
	Resubmissions int
	slot          common.SlotID
}

// Handle gives the descriptor's permanent handle.
func (d *Descriptor) Handle() aio.Handle {
	return d.Op.Handle
}

// reset clears all per-operation state.
func (d *Descriptor) reset() {
	d.Op.Reset()
	d.Buffer = nil
	d.Position = 0
	d.Resubmissions = 0
}

type Pool struct {
	alloc       *common.Allocator
	descriptors []*Descriptor
	inUse       map[aio.Handle]*Descriptor
}

// New creates a pool of `capacity` descriptors. Descriptor handles are the
// integers [0, capacity).
func New(capacity uint) (*Pool, error) {
	if capacity == 0 {
		return nil, biotest.ErrResourceAllocation.WithMessage(
			"descriptor pool needs at least one descriptor")
	}

	pool := &Pool{
		alloc:       common.NewAllocator(capacity),
		descriptors: make([]*Descriptor, capacity),
		inUse:       make(map[aio.Handle]*Descriptor, capacity),
	}
	for i := uint(0); i < capacity; i++ {
		pool.descriptors[i] = &Descriptor{
			Op:   aio.Operation{Handle: aio.Handle(i)},
			slot: common.SlotID(i),
		}
	}
	return pool, nil
}

// Acquire takes a descriptor out of the pool with all of its operation state
// cleared. The second return value is false if the pool is exhausted.
func (pool *Pool) Acquire() (*Descriptor, bool) {
	slot, ok := pool.alloc.Acquire()
	if !ok {
		return nil, false
	}

	descriptor := pool.descriptors[slot]
	descriptor.reset()
	return descriptor, true
}

// Release returns a descriptor to the pool. A descriptor still marked in use
// can't be released; remove it with FindAndRelease first.
func (pool *Pool) Release(descriptor *Descriptor) error {
	if !pool.owns(descriptor) {
		return biotest.ErrForeignObject.WithMessage(
			"descriptor was not allocated from this pool")
	}
	if _, submitted := pool.inUse[descriptor.Handle()]; submitted {
		return biotest.ErrAlreadyInUse.WithMessage(
			fmt.Sprintf("descriptor %d is still in flight", descriptor.Handle()))
	}

	err := pool.alloc.Release(descriptor.slot)
	if err != nil {
		return fmt.Errorf("releasing descriptor %d: %w", descriptor.Handle(), err)
	}
	descriptor.reset()
	return nil
}

// MarkInUse records that the descriptor has been submitted to the queue.
func (pool *Pool) MarkInUse(descriptor *Descriptor) error {
	if !pool.owns(descriptor) || !pool.alloc.IsHandedOut(descriptor.slot) {
		return biotest.ErrForeignObject.WithMessage(
			fmt.Sprintf("descriptor %d was not acquired from this pool", descriptor.Handle()))
	}
	if _, exists := pool.inUse[descriptor.Handle()]; exists {
		return biotest.ErrAlreadyInUse.WithMessage(
			fmt.Sprintf("descriptor %d", descriptor.Handle()))
	}

	pool.inUse[descriptor.Handle()] = descriptor
	return nil
}

// Lookup finds an in-use descriptor by handle without removing it from the
// in-use set.
func (pool *Pool) Lookup(handle aio.Handle) (*Descriptor, bool) {
	descriptor, ok := pool.inUse[handle]
	return descriptor, ok
}

// FindAndRelease removes the descriptor with the given handle from the in-use
// set and returns it. The descriptor stays acquired; return it to the pool
// with Release.
func (pool *Pool) FindAndRelease(handle aio.Handle) (*Descriptor, error) {
	descriptor, ok := pool.inUse[handle]
	if !ok {
		return nil, biotest.ErrUnknownDescriptor.WithMessage(
			fmt.Sprintf("handle %d", handle))
	}

	delete(pool.inUse, handle)
	return descriptor, nil
}

// Available gives the number of descriptors in the pool.
func (pool *Pool) Available() uint {
	return pool.alloc.Available()
}

// Acquired gives the number of descriptors taken out of the pool, whether or
// not they've been submitted.
func (pool *Pool) Acquired() uint {
	return pool.alloc.HandedOut()
}

// InFlight gives the number of descriptors marked in use.
func (pool *Pool) InFlight() uint {
	return uint(len(pool.inUse))
}

// Capacity gives the total number of descriptors.
func (pool *Pool) Capacity() uint {
	return pool.alloc.TotalSlots
}

func (pool *Pool) owns(descriptor *Descriptor) bool {
	return descriptor != nil &&
		uint(descriptor.slot) < uint(len(pool.descriptors)) &&
		pool.descriptors[descriptor.slot] == descriptor
}
