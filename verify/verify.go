// Package verify stamps blocks with an identifying value and checks them when
// they're read back.
//
// Every 8-byte word of a stamped block holds the block's identity, stored
// little-endian so images can be verified on a different host than the one
// that wrote them.
package verify

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dargueta/biotest"
)

// WordSize is the size of a single stamped value, in bytes.
const WordSize = 8

// wordsPerLine controls how many words are printed per line of a dump.
const wordsPerLine = 8

// Stamp fills every word of `buffer` with `value`. Trailing bytes that don't
// make up a whole word are left untouched.
func Stamp(buffer []byte, value uint64) {
	usable := len(buffer) - len(buffer)%WordSize
	if usable == 0 {
		return
	}

	binary.LittleEndian.PutUint64(buffer, value)
	for filled := WordSize; filled < usable; filled *= 2 {
		copy(buffer[filled:usable], buffer[:filled])
	}
}

// MismatchError describes a block whose contents didn't match the expected
// value. It matches [biotest.ErrContentMismatch] with errors.Is.
type MismatchError struct {
	// Expected is the value every word should have held.
	Expected uint64
	// WordIndex is the index of the first word that didn't match.
	WordIndex int
	// Actual is the value found at WordIndex.
	Actual uint64
	// Contents is a copy of the whole block as it was read.
	Contents []byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"%s: block %#x: word %d is %#x",
		biotest.ErrContentMismatch.Error(),
		e.Expected,
		e.WordIndex,
		e.Actual)
}

func (e *MismatchError) Unwrap() error {
	return biotest.ErrContentMismatch
}

// Check returns nil if every word of `buffer` holds `expected`, and a
// *MismatchError otherwise.
func Check(buffer []byte, expected uint64) error {
	words := len(buffer) / WordSize
	for i := 0; i < words; i++ {
		actual := binary.LittleEndian.Uint64(buffer[i*WordSize:])
		if actual != expected {
			contents := make([]byte, len(buffer))
			copy(contents, buffer)
			return &MismatchError{
				Expected:  expected,
				WordIndex: i,
				Actual:    actual,
				Contents:  contents,
			}
		}
	}
	return nil
}

// Dump writes the block as hex words, eight to a line.
func Dump(w io.Writer, buffer []byte) error {
	words := len(buffer) / WordSize
	for i := 0; i < words; i += wordsPerLine {
		for j := i; j < i+wordsPerLine && j < words; j++ {
			word := binary.LittleEndian.Uint64(buffer[j*WordSize:])
			if _, err := fmt.Fprintf(w, "0x%x ", word); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteDiagnostics writes the full report for a mismatch: the expected value
// followed by a dump of the block as it was read.
func (e *MismatchError) WriteDiagnostics(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Readback after write error\nBlock %#x contains:\n", e.Expected)
	if err != nil {
		return err
	}
	return Dump(w, e.Contents)
}
