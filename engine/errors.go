package engine

import (
	"fmt"
)

// BlockError is a transfer failure tied to a particular block.
type BlockError struct {
	// Op is "write" or "read".
	Op string
	// Position is the block's position in the data set; its byte offset is
	// Position * block size.
	Position uint64
	// Block is the identity stamped at Position.
	Block uint64
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf(
		"error %s blk %#x (position %d): %s", gerund(e.Op), e.Block, e.Position, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

func gerund(op string) string {
	switch op {
	case "write":
		return "writing"
	case "read":
		return "reading"
	default:
		return op
	}
}
