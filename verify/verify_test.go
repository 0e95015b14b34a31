package verify_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/verify"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStamp__FillsEveryWord(t *testing.T) {
	for _, size := range []int{8, 512, 4096, 65536, 520} {
		buffer := bytes.Repeat([]byte{0xa5}, size)
		verify.Stamp(buffer, 0x1234)

		for i := 0; i < size/verify.WordSize; i++ {
			word := binary.LittleEndian.Uint64(buffer[i*verify.WordSize:])
			require.EqualValuesf(t, 0x1234, word, "size %d: word %d wasn't stamped", size, i)
		}
	}
}

func TestStamp__LeavesPartialWord(t *testing.T) {
	buffer := bytes.Repeat([]byte{0xa5}, 12)
	verify.Stamp(buffer, 7)
	assert.Equal(t, []byte{0xa5, 0xa5, 0xa5, 0xa5}, buffer[8:])
}

func TestCheck__RoundTrip(t *testing.T) {
	buffer := make([]byte, 512)
	verify.Stamp(buffer, 8191)
	assert.NoError(t, verify.Check(buffer, 8191))
}

func TestCheck__Mismatch(t *testing.T) {
	buffer := make([]byte, 512)
	verify.Stamp(buffer, 37)
	binary.LittleEndian.PutUint64(buffer[17*verify.WordSize:], 0xdead)

	err := verify.Check(buffer, 37)
	require.Error(t, err)
	assert.ErrorIs(t, err, biotest.ErrContentMismatch)

	var mismatch *verify.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.EqualValues(t, 37, mismatch.Expected)
	assert.Equal(t, 17, mismatch.WordIndex)
	assert.EqualValues(t, 0xdead, mismatch.Actual)

	// The report must not change if the caller reuses its buffer.
	verify.Stamp(buffer, 0)
	assert.EqualValues(t, 37, binary.LittleEndian.Uint64(mismatch.Contents))
}

func TestWriteDiagnostics(t *testing.T) {
	buffer := make([]byte, 128)
	verify.Stamp(buffer, 0x25)
	binary.LittleEndian.PutUint64(buffer[8:], 0xff)

	err := verify.Check(buffer, 0x25)
	require.Error(t, err)

	output := make([]byte, 1024)
	writer := bytewriter.New(output)
	var mismatch *verify.MismatchError
	require.True(t, errors.As(err, &mismatch))
	require.NoError(t, mismatch.WriteDiagnostics(writer))

	text := string(bytes.TrimRight(output, "\x00"))
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4, "expected header, block line and two rows of words")
	assert.Equal(t, "Readback after write error", lines[0])
	assert.Equal(t, "Block 0x25 contains:", lines[1])
	assert.Equal(t, "0x25 0xff 0x25 0x25 0x25 0x25 0x25 0x25", strings.TrimSpace(lines[2]))
	assert.Equal(t, "0x25 0x25 0x25 0x25 0x25 0x25 0x25 0x25", strings.TrimSpace(lines[3]))
}
