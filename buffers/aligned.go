package buffers

import (
	"unsafe"
)

// alignedArena allocates `size` bytes whose first byte sits on an `alignment`
// boundary. `alignment` must be a power of two.
func alignedArena(size, alignment uint) []byte {
	if size == 0 {
		return []byte{}
	}

	raw := make([]byte, size+alignment)
	address := uintptr(unsafe.Pointer(&raw[0]))
	offset := uintptr(alignment) - (address % uintptr(alignment))
	if offset == uintptr(alignment) {
		offset = 0
	}
	return raw[offset : offset+uintptr(size) : offset+uintptr(size)]
}

func isPowerOfTwo(n uint) bool {
	return n != 0 && n&(n-1) == 0
}
