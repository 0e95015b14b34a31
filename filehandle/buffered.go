package filehandle

import (
	"bufio"
	"io"
	"os"
)

// bufferedStream gives an *os.File the semantics of a stdio stream: transfers
// go through user-space buffers, and failures set an error flag that stays set
// until it's taken with takeError.
//
// Each write is flushed before it returns, so a failure always belongs to the
// block that caused it. After a failure the buffers are discarded, so a retry
// transfers the whole block again instead of tripping over bufio's own sticky
// error.
type bufferedStream struct {
	file   *os.File
	reader *bufio.Reader
	writer *bufio.Writer
	err    error
}

func newBufferedStream(file *os.File) *bufferedStream {
	return &bufferedStream{
		file:   file,
		reader: bufio.NewReader(file),
		writer: bufio.NewWriter(file),
	}
}

// seek flushes pending writes, discards read-ahead, and repositions the file.
func (s *bufferedStream) seek(offset int64) error {
	if err := s.flush(); err != nil {
		return err
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	s.reader.Reset(s.file)
	return nil
}

func (s *bufferedStream) write(buffer []byte) {
	if _, err := s.writer.Write(buffer); err != nil {
		s.fail(err)
		return
	}
	if err := s.flush(); err != nil {
		s.fail(err)
	}
}

func (s *bufferedStream) read(buffer []byte) {
	if _, err := io.ReadFull(s.reader, buffer); err != nil {
		s.fail(err)
	}
}

func (s *bufferedStream) flush() error {
	err := s.writer.Flush()
	if err != nil {
		s.writer.Reset(s.file)
	}
	return err
}

// fail sets the error flag, keeping the first error, and drops whatever is
// buffered in either direction.
func (s *bufferedStream) fail(err error) {
	if s.err == nil {
		s.err = err
	}
	s.writer.Reset(s.file)
	s.reader.Reset(s.file)
}

// takeError returns the error flag and clears it.
func (s *bufferedStream) takeError() error {
	err := s.err
	s.err = nil
	return err
}
