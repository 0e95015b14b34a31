// Package filehandle unifies the three ways a target can be accessed: through
// the page cache, directly (O_DIRECT), or through a user-space buffered stream.
// A handle can additionally carry an asynchronous completion queue.
//
// Every transfer seeks first and then moves a whole buffer; the outcome is
// recorded on the handle as an errno code (0 on success) in addition to being
// returned. A handle is not safe for concurrent use, except that the queue's
// workers may call ReadAt and WriteAt.
package filehandle

import (
	"fmt"
	"io"
	"os"

	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/aio"
	"github.com/dargueta/biotest/errors"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// ReadFill is the byte a read buffer is filled with before every read, so
// stale data from an earlier block can never pass verification.
const ReadFill = 0xa5

// Options controls how a target is opened.
type Options struct {
	// Direct bypasses the page cache. Buffers must then be aligned to the
	// device's sector size.
	Direct bool
	// Buffered routes transfers through a user-space buffered stream. It can't
	// be combined with Direct.
	Buffered bool
	// AsyncCapable attaches a completion queue of depth Window to the handle.
	AsyncCapable bool
	// Window is the depth of the completion queue.
	Window uint
	// Overwrite truncates the target when it's opened. Leave it unset to keep
	// existing data, e.g. when verifying a target written by an earlier run.
	Overwrite bool
}

// OptionsFor derives the open options from a run's parameters.
func OptionsFor(params biotest.RunParameters) Options {
	return Options{
		Direct:       params.Mode.Has(biotest.ModeDirect),
		Buffered:     params.Mode.Has(biotest.ModeBuffered),
		AsyncCapable: params.Mode.Has(biotest.ModeAsync) && !params.Mode.Has(biotest.ModeVerifyOnly),
		Window:       params.Window,
		Overwrite:    !params.Mode.Has(biotest.ModeVerifyOnly),
	}
}

type Handle struct {
	path       string
	file       *os.File
	fd         int
	stream     *bufferedStream
	queue      aio.Queue
	sectorSize uint
	err        errors.Errno
}

// Open opens (creating if necessary) the target at `path`.
func Open(path string, options Options) (*Handle, error) {
	if options.Direct && options.Buffered {
		return nil, biotest.ErrConflictingModes
	}
	if options.Direct && !directIOSupported {
		return nil, errors.ErrNotSupported.WithMessage("direct I/O is not available on this platform")
	}

	flags := os.O_RDWR | os.O_CREATE
	if options.Overwrite {
		flags |= os.O_TRUNC
	}
	if options.Direct {
		flags |= directFlag()
	}

	file, err := os.OpenFile(path, flags, 0666)
	if err != nil {
		return nil, openError(path, err)
	}

	handle := &Handle{
		path:       path,
		file:       file,
		fd:         int(file.Fd()),
		sectorSize: biotest.MinBlockSize,
	}

	sectorSize, err := logicalSectorSize(file)
	if err != nil {
		file.Close()
		return nil, openError(path, err)
	}
	if sectorSize != 0 {
		handle.sectorSize = sectorSize
	}

	if options.Buffered {
		handle.stream = newBufferedStream(file)
	}

	if options.AsyncCapable {
		queue, err := aio.NewWorkerQueue(handle, int(options.Window))
		if err != nil {
			file.Close()
			return nil, biotest.ErrResourceAllocation.Wrap(err)
		}
		handle.queue = queue
	}

	return handle, nil
}

func openError(path string, err error) error {
	return errors.NewOfClass(
		errors.ClassResource,
		errors.ErrnoOf(err),
		fmt.Sprintf("error opening %s", path),
	).Wrap(err)
}

// Path gives the path the handle was opened with.
func (h *Handle) Path() string {
	return h.path
}

// SectorSize gives the minimum transfer granularity of the target: the logical
// sector size for block devices, and 512 for everything else.
func (h *Handle) SectorSize() uint {
	return h.sectorSize
}

// Err gives the errno code recorded by the most recent operation.
func (h *Handle) Err() errors.Errno {
	return h.err
}

// Queue returns the handle's completion queue, or nil if it wasn't opened with
// AsyncCapable.
func (h *Handle) Queue() aio.Queue {
	return h.queue
}

// record stores the outcome of an operation on the handle and passes the error
// through.
func (h *Handle) record(err error) error {
	h.err = errors.ErrnoOf(err)
	return err
}

func (h *Handle) Seek(offset int64) error {
	if h.stream != nil {
		return h.record(h.stream.seek(offset))
	}
	_, err := h.file.Seek(offset, io.SeekStart)
	return h.record(err)
}

func (h *Handle) Write(buffer []byte, offset int64) error {
	if err := h.Seek(offset); err != nil {
		return err
	}

	if h.stream != nil {
		h.stream.write(buffer)
		return h.record(h.stream.takeError())
	}

	n, err := h.file.Write(buffer)
	if err == nil && n != len(buffer) {
		err = io.ErrShortWrite
	}
	return h.record(err)
}

func (h *Handle) Read(buffer []byte, offset int64) error {
	if err := h.Seek(offset); err != nil {
		return err
	}

	for i := range buffer {
		buffer[i] = ReadFill
	}

	if h.stream != nil {
		h.stream.read(buffer)
		return h.record(h.stream.takeError())
	}

	_, err := io.ReadFull(h.file, buffer)
	return h.record(err)
}

// WriteAt writes `buffer` at `offset` without using or changing the file
// position. The queue's workers use this.
func (h *Handle) WriteAt(buffer []byte, offset int64) (int, error) {
	n, err := unix.Pwrite(h.fd, buffer, offset)
	if err != nil {
		return n, err
	}
	if n != len(buffer) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// ReadAt reads into `buffer` from `offset` without using or changing the file
// position.
func (h *Handle) ReadAt(buffer []byte, offset int64) (int, error) {
	total := 0
	for total < len(buffer) {
		n, err := unix.Pread(h.fd, buffer[total:], offset+int64(total))
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrUnexpectedEOF
		}
		total += n
	}
	return total, nil
}

// Sync flushes buffered data and commits it to stable storage.
func (h *Handle) Sync() error {
	if h.stream != nil {
		if err := h.stream.flush(); err != nil {
			return h.record(err)
		}
	}
	return h.record(syncData(h.fd))
}

// Close releases the queue, flushes buffered data and closes the file. All
// failures are reported, not just the first.
func (h *Handle) Close() error {
	var result error

	if h.queue != nil {
		if err := h.queue.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if h.stream != nil {
		if err := h.stream.flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := h.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
