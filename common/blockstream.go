package common

import (
	"fmt"
)

// BlockStream describes the layout of the data set on the target: a run of
// equally-sized blocks starting at a fixed byte offset.
//
// The exposed fields are for informational purposes only and should never be
// changed.
type BlockStream struct {
	// BytesPerBlock gives the size of a block on this device, in bytes. All
	// reads and writes are done in whole blocks.
	BytesPerBlock uint
	// TotalBlocks is the total number of blocks in this stream.
	TotalBlocks uint64
	// StartOffset is an offset from the beginning of the target, in bytes, that
	// will be considered the beginning of block 0.
	StartOffset int64
}

func NewBlockStream(totalBlocks uint64, blockSize uint, startOffset int64) BlockStream {
	return BlockStream{
		StartOffset:   startOffset,
		BytesPerBlock: blockSize,
		TotalBlocks:   totalBlocks,
	}
}

// PositionToOffset converts a position in the stream into a byte offset into
// the target.
func (stream BlockStream) PositionToOffset(position uint64) (int64, error) {
	if position >= stream.TotalBlocks {
		return -1,
			fmt.Errorf(
				"invalid block position %d: not in range [0, %d)",
				position,
				stream.TotalBlocks)
	}
	return stream.StartOffset + (int64(position) * int64(stream.BytesPerBlock)), nil
}

// OffsetToPosition is the inverse of PositionToOffset. It fails if `offset`
// isn't on a block boundary.
func (stream BlockStream) OffsetToPosition(offset int64) (uint64, error) {
	relative := offset - stream.StartOffset
	if relative < 0 || relative%int64(stream.BytesPerBlock) != 0 {
		return 0, fmt.Errorf(
			"offset %d is not on a block boundary (block size %d, start %d)",
			offset,
			stream.BytesPerBlock,
			stream.StartOffset)
	}
	return uint64(relative / int64(stream.BytesPerBlock)), nil
}

// Size gives the total size of the stream, in bytes.
func (stream BlockStream) Size() int64 {
	return int64(stream.TotalBlocks) * int64(stream.BytesPerBlock)
}
