package testing

import (
	"encoding/binary"
	"testing"

	"github.com/dargueta/biotest/blockorder"
	"github.com/dargueta/biotest/verify"
	"github.com/stretchr/testify/require"
)

// CreatePatternImage builds the image a successful write pass over `order`
// produces: block position i is stamped with order.At(i).
func CreatePatternImage(order *blockorder.Order, bytesPerBlock uint) []byte {
	image := make([]byte, order.Len()*uint64(bytesPerBlock))
	for i := uint64(0); i < order.Len(); i++ {
		start := i * uint64(bytesPerBlock)
		verify.Stamp(image[start:start+uint64(bytesPerBlock)], order.At(i))
	}
	return image
}

// RequirePattern fails the test immediately unless every word of block
// position i in `image` holds order.At(i).
func RequirePattern(
	t *testing.T, image []byte, bytesPerBlock uint, order *blockorder.Order,
) {
	require.GreaterOrEqual(
		t,
		uint64(len(image)),
		order.Len()*uint64(bytesPerBlock),
		"image is too small to hold %d blocks",
		order.Len(),
	)

	for i := uint64(0); i < order.Len(); i++ {
		start := i * uint64(bytesPerBlock)
		for w := uint64(0); w < uint64(bytesPerBlock)/verify.WordSize; w++ {
			word := binary.LittleEndian.Uint64(image[start+w*verify.WordSize:])
			if word != order.At(i) {
				require.Failf(
					t,
					"wrong block contents",
					"position %d word %d: expected %#x, got %#x",
					i,
					w,
					order.At(i),
					word,
				)
			}
		}
	}
}
