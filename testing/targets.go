package testing

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dargueta/biotest/aio"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// MemoryTarget is an in-memory stand-in for a file or block device. It
// implements biotest.AsyncTarget and aio.Device, and is safe to use from queue
// workers.
//
//   - Its size is fixed. Transfers past the end fail.
//   - The transfer counters are exported so tests can check how much I/O a run
//     actually did.
type MemoryTarget struct {
	lock   sync.Mutex
	data   []byte
	stream io.ReadWriteSeeker
	queue  aio.Queue

	Writes int
	Reads  int
	Syncs  int
}

// NewMemoryTarget creates a target of `size` bytes, all zero.
func NewMemoryTarget(size int) *MemoryTarget {
	data := make([]byte, size)
	return &MemoryTarget{
		data:   data,
		stream: bytesextra.NewReadWriteSeeker(data),
	}
}

// NewMemoryTargetFromBytes creates a target backed by a copy of `data`.
func NewMemoryTargetFromBytes(data []byte) *MemoryTarget {
	target := NewMemoryTarget(len(data))
	copy(target.data, data)
	return target
}

func (m *MemoryTarget) Seek(offset int64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.seekUnlocked(offset)
}

func (m *MemoryTarget) seekUnlocked(offset int64) error {
	if offset < 0 || offset > int64(len(m.data)) {
		return fmt.Errorf("seek to %d outside of [0, %d]", offset, len(m.data))
	}
	_, err := m.stream.Seek(offset, io.SeekStart)
	return err
}

func (m *MemoryTarget) Write(buffer []byte, offset int64) error {
	_, err := m.WriteAt(buffer, offset)
	return err
}

func (m *MemoryTarget) Read(buffer []byte, offset int64) error {
	_, err := m.ReadAt(buffer, offset)
	return err
}

func (m *MemoryTarget) WriteAt(buffer []byte, offset int64) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if offset+int64(len(buffer)) > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	if err := m.seekUnlocked(offset); err != nil {
		return 0, err
	}
	m.Writes++
	return m.stream.Write(buffer)
}

func (m *MemoryTarget) ReadAt(buffer []byte, offset int64) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.seekUnlocked(offset); err != nil {
		return 0, err
	}
	m.Reads++
	return io.ReadFull(m.stream, buffer)
}

func (m *MemoryTarget) Sync() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Syncs++
	return nil
}

// EnableQueue attaches a worker-backed completion queue of the given depth.
func (m *MemoryTarget) EnableQueue(depth int) error {
	queue, err := aio.NewWorkerQueue(m, depth)
	if err != nil {
		return err
	}
	m.queue = queue
	return nil
}

func (m *MemoryTarget) Queue() aio.Queue {
	return m.queue
}

func (m *MemoryTarget) Close() error {
	if m.queue == nil {
		return nil
	}
	return m.queue.Close()
}

// Bytes returns a copy of the target's contents.
func (m *MemoryTarget) Bytes() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	snapshot := make([]byte, len(m.data))
	copy(snapshot, m.data)
	return snapshot
}

// Corrupt overwrites part of the target without counting it as a transfer.
func (m *MemoryTarget) Corrupt(offset int, data []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	copy(m.data[offset:], data)
}

// TempTargetPath returns the path to a not-yet-existing file inside a
// temporary directory that's removed when the test finishes.
func TempTargetPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "target.img")
}

// NewQueuedMemoryTarget is a convenience function that creates a memory target
// with a queue attached, and closes the queue when the test ends.
func NewQueuedMemoryTarget(t *testing.T, size int, depth int) *MemoryTarget {
	target := NewMemoryTarget(size)
	require.NoError(t, target.EnableQueue(depth), "failed to create completion queue")
	t.Cleanup(func() { target.Close() })
	return target
}
