// Bitmap slot allocator

package common

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/biotest"
)

type SlotID uint32

// Allocator hands out slot indexes from a fixed-size arena. Every slot is in
// exactly one of two states, free or handed out, and the bitmap records which.
// Releasing a slot that isn't handed out is detected instead of corrupting the
// free list.
type Allocator struct {
	handedOut  bitmap.Bitmap
	freeSlots  []SlotID
	TotalSlots uint
}

// NewAllocator creates a new allocator with all slots free. Slots are handed
// out lowest index first on a fresh allocator, and most-recently-released first
// after that.
func NewAllocator(totalSlots uint) *Allocator {
	alloc := &Allocator{
		handedOut:  bitmap.New(int(totalSlots)),
		freeSlots:  make([]SlotID, 0, totalSlots),
		TotalSlots: totalSlots,
	}

	for i := int(totalSlots) - 1; i >= 0; i-- {
		alloc.freeSlots = append(alloc.freeSlots, SlotID(i))
	}
	return alloc
}

// Acquire removes a slot from the free set and returns it. The second return
// value is false if no slots are available.
func (alloc *Allocator) Acquire() (SlotID, bool) {
	if len(alloc.freeSlots) == 0 {
		return 0, false
	}

	last := len(alloc.freeSlots) - 1
	slot := alloc.freeSlots[last]
	alloc.freeSlots = alloc.freeSlots[:last]
	alloc.handedOut.Set(int(slot), true)
	return slot, true
}

// Release returns a handed-out slot to the free set. Releasing a slot that's
// already free fails with [biotest.ErrDoubleRelease] and leaves the allocator
// unmodified.
func (alloc *Allocator) Release(slot SlotID) error {
	if uint(slot) >= alloc.TotalSlots {
		msg := fmt.Sprintf(
			"invalid slot id: %d not in range [0, %d)",
			slot,
			alloc.TotalSlots)
		return biotest.ErrForeignObject.WithMessage(msg)
	}
	if !alloc.handedOut.Get(int(slot)) {
		msg := fmt.Sprintf("slot %d is already free", slot)
		return biotest.ErrDoubleRelease.WithMessage(msg)
	}

	alloc.handedOut.Set(int(slot), false)
	alloc.freeSlots = append(alloc.freeSlots, slot)
	return nil
}

// IsHandedOut returns true if the slot has been acquired and not yet released.
func (alloc *Allocator) IsHandedOut(slot SlotID) bool {
	if uint(slot) >= alloc.TotalSlots {
		return false
	}
	return alloc.handedOut.Get(int(slot))
}

// Available gives the number of free slots.
func (alloc *Allocator) Available() uint {
	return uint(len(alloc.freeSlots))
}

// HandedOut gives the number of slots currently acquired.
func (alloc *Allocator) HandedOut() uint {
	return alloc.TotalSlots - alloc.Available()
}
