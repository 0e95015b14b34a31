// Package buffers provides a fixed-capacity pool of aligned, block-sized
// buffers suitable for direct I/O.
//
// All buffers are carved out of a single arena allocated up front. The pool
// tracks which ones are handed out, so releasing a buffer twice is reported
// instead of corrupting the free list.
package buffers

import (
	"fmt"

	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/common"
)

// Buffer is one block of the pool's arena. It's owned by whoever acquired it
// until it is released, and must not be touched afterwards.
type Buffer struct {
	slot common.SlotID
	pool *Pool
	data []byte
}

// Bytes returns the buffer's memory. Its length is always the pool's block size.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Slot gives the buffer's index in the pool.
func (b *Buffer) Slot() common.SlotID {
	return b.slot
}

type Pool struct {
	alloc         *common.Allocator
	arena         []byte
	buffers       []*Buffer
	bytesPerBlock uint
	alignment     uint
}

// New creates a pool of `count` buffers of `bytesPerBlock` bytes each, every one
// aligned to `alignment` bytes. `alignment` must be a power of two and the block
// size must be a multiple of it.
func New(count, bytesPerBlock, alignment uint) (*Pool, error) {
	if count == 0 {
		return nil, biotest.ErrResourceAllocation.WithMessage("buffer pool needs at least one buffer")
	}
	if !isPowerOfTwo(alignment) {
		return nil, biotest.ErrResourceAllocation.WithMessage(
			fmt.Sprintf("alignment must be a power of two, got %d", alignment))
	}
	if bytesPerBlock == 0 || bytesPerBlock%alignment != 0 {
		return nil, biotest.ErrResourceAllocation.WithMessage(
			fmt.Sprintf(
				"block size %d is not a multiple of the alignment %d",
				bytesPerBlock,
				alignment))
	}

	pool := &Pool{
		alloc:         common.NewAllocator(count),
		arena:         alignedArena(count*bytesPerBlock, alignment),
		buffers:       make([]*Buffer, count),
		bytesPerBlock: bytesPerBlock,
		alignment:     alignment,
	}

	for i := uint(0); i < count; i++ {
		start := i * bytesPerBlock
		pool.buffers[i] = &Buffer{
			slot: common.SlotID(i),
			pool: pool,
			data: pool.arena[start : start+bytesPerBlock : start+bytesPerBlock],
		}
	}
	return pool, nil
}

// Acquire removes a buffer from the pool and returns it zeroed. The second
// return value is false if the pool is exhausted.
func (pool *Pool) Acquire() (*Buffer, bool) {
	slot, ok := pool.alloc.Acquire()
	if !ok {
		return nil, false
	}

	buffer := pool.buffers[slot]
	clear(buffer.data)
	return buffer, true
}

// Release returns a buffer to the pool. Releasing a buffer that's already in
// the pool fails with [biotest.ErrDoubleRelease].
func (pool *Pool) Release(buffer *Buffer) error {
	if buffer == nil || buffer.pool != pool {
		return biotest.ErrForeignObject.WithMessage("buffer was not allocated from this pool")
	}

	err := pool.alloc.Release(buffer.slot)
	if err != nil {
		return fmt.Errorf("releasing buffer %d: %w", buffer.slot, err)
	}
	return nil
}

// Available gives the number of buffers in the pool.
func (pool *Pool) Available() uint {
	return pool.alloc.Available()
}

// InUse gives the number of buffers acquired and not released.
func (pool *Pool) InUse() uint {
	return pool.alloc.HandedOut()
}

// Capacity gives the total number of buffers the pool was created with.
func (pool *Pool) Capacity() uint {
	return pool.alloc.TotalSlots
}

// BytesPerBlock gives the size of each buffer.
func (pool *Pool) BytesPerBlock() uint {
	return pool.bytesPerBlock
}

// Alignment gives the boundary every buffer starts on.
func (pool *Pool) Alignment() uint {
	return pool.alignment
}
