package biotest

import (
	"fmt"
	"time"
)

// MinBlockSize is the smallest transfer unit any device is assumed to support.
// Block sizes are always a multiple of this.
const MinBlockSize = 512

// DefaultWindow is the number of asynchronous operations kept in flight when
// the caller doesn't ask for something else.
const DefaultWindow = 2

// DefaultRetryDelay is the fixed backoff between attempts of a failed transfer.
const DefaultRetryDelay = time.Second

const bytesPerMegabyte = 1024 * 1024

// RunParameters is the immutable configuration of a single run.
type RunParameters struct {
	// Target is the path to the file or block device under test.
	Target string
	// Megabytes is the size of the data set. The number of blocks is rounded
	// down if this isn't a multiple of BlockSize.
	Megabytes uint64
	// BlockSize is the size of a single transfer, in bytes. Use
	// NormalizeBlockSize to turn user input into a valid value.
	BlockSize uint
	Mode      Mode
	// Seed determines the block permutation when ModeRandomize is set. A
	// verify-only run must use the same seed as the run that wrote the data.
	Seed int64
	// Window is the maximum number of asynchronous operations in flight.
	Window uint
	// RetryDelay is how long to wait before retrying a failed transfer when
	// ModeRetryOnError is set.
	RetryDelay time.Duration
}

// NormalizeBlockSize rounds a requested block size down to a multiple of
// MinBlockSize. Anything smaller than MinBlockSize becomes MinBlockSize.
func NormalizeBlockSize(requested uint) uint {
	if requested <= MinBlockSize {
		return MinBlockSize
	}
	return requested &^ (MinBlockSize - 1)
}

// TotalBlocks gives the number of blocks in the data set.
func (p RunParameters) TotalBlocks() uint64 {
	if p.BlockSize == 0 {
		return 0
	}
	return p.Megabytes * bytesPerMegabyte / uint64(p.BlockSize)
}

// TotalBytes gives the number of bytes that will actually be transferred in
// each pass.
func (p RunParameters) TotalBytes() int64 {
	return int64(p.TotalBlocks()) * int64(p.BlockSize)
}

// Validate checks the parameters for consistency. It must be called before any
// I/O is done.
func (p RunParameters) Validate() error {
	if p.Target == "" {
		return ErrInvalidParameters.WithMessage("a target is required")
	}
	if p.Megabytes == 0 {
		return ErrInvalidParameters.WithMessage("the data set size must be at least 1 MiB")
	}
	if p.Mode.Has(ModeDirect | ModeBuffered) {
		return ErrConflictingModes
	}
	if p.BlockSize < MinBlockSize || p.BlockSize%MinBlockSize != 0 {
		return ErrMisalignedBlockSize.WithMessage(
			fmt.Sprintf("got %d, need a multiple of %d", p.BlockSize, MinBlockSize))
	}
	if p.Mode.Has(ModeAsync) && p.Window == 0 {
		return ErrInvalidParameters.WithMessage("the asynchronous window must be at least 1")
	}
	if p.RetryDelay < 0 {
		return ErrInvalidParameters.WithMessage(
			fmt.Sprintf("retry delay can't be negative: %s", p.RetryDelay))
	}
	return nil
}

// ValidateForDevice checks that the block size is compatible with the minimum
// transfer size reported by the target device.
func (p RunParameters) ValidateForDevice(sectorSize uint) error {
	if sectorSize == 0 || p.BlockSize%sectorSize == 0 {
		return nil
	}
	return ErrMisalignedBlockSize.WithMessage(
		fmt.Sprintf("block size %d, device sector size %d", p.BlockSize, sectorSize))
}
