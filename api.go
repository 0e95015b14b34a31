package biotest

import (
	"github.com/dargueta/biotest/aio"
)

// Target is the interface the engines transfer whole blocks through. Every
// transfer positions the target at `offset` before moving data, so callers never
// need to track the file position themselves.
//
// Implementations are not required to be safe for concurrent use.
type Target interface {
	// Seek moves the target's position to `offset` bytes from the start.
	Seek(offset int64) error
	// Write writes all of `buffer` starting at `offset`. A short write is an
	// error.
	Write(buffer []byte, offset int64) error
	// Read fills all of `buffer` with data starting at `offset`. A short read is
	// an error.
	Read(buffer []byte, offset int64) error
	// Sync flushes all written data to stable storage.
	Sync() error
}

// AsyncTarget is a Target that also has a completion queue attached to it.
type AsyncTarget interface {
	Target
	// Queue returns the queue for submitting asynchronous operations against
	// this target, or nil if asynchronous I/O wasn't enabled.
	Queue() aio.Queue
}
