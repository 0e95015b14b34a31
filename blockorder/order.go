// Package blockorder generates the order in which blocks are stamped.
//
// An Order maps a position in the data set (which determines where a block is
// written) to a block identity (which determines what is written there). The
// identity order is 0, 1, 2, ...; a shuffled order is a uniform random
// permutation of the same values.
package blockorder

import (
	"math/rand"
)

// Order is an immutable mapping of positions to block identities.
type Order struct {
	// table is nil for the identity order.
	table []uint64
	total uint64
	seed  int64
}

// Identity creates an order where every position maps to itself.
func Identity(totalBlocks uint64) *Order {
	return &Order{total: totalBlocks}
}

// Shuffled creates a uniformly random permutation of [0, totalBlocks) using a
// Fisher-Yates shuffle. The same seed always produces the same permutation.
func Shuffled(totalBlocks uint64, seed int64) *Order {
	table := make([]uint64, totalBlocks)
	for i := range table {
		table[i] = uint64(i)
	}

	rng := rand.New(rand.NewSource(seed))
	for i := int64(totalBlocks) - 1; i > 0; i-- {
		j := rng.Int63n(i + 1)
		table[i], table[j] = table[j], table[i]
	}

	return &Order{
		table: table,
		total: totalBlocks,
		seed:  seed,
	}
}

// New returns Shuffled if `randomize` is true, Identity otherwise.
func New(totalBlocks uint64, randomize bool, seed int64) *Order {
	if randomize {
		return Shuffled(totalBlocks, seed)
	}
	return Identity(totalBlocks)
}

// Len gives the number of positions in the order.
func (o *Order) Len() uint64 {
	return o.total
}

// At gives the block identity for `position`. It panics if the position is out
// of range, same as a slice would.
func (o *Order) At(position uint64) uint64 {
	if o.table == nil {
		if position >= o.total {
			panic("blockorder: position out of range")
		}
		return position
	}
	return o.table[position]
}

// IsIdentity returns true if the order was created without shuffling.
func (o *Order) IsIdentity() bool {
	return o.table == nil
}

// Seed gives the seed a shuffled order was created with. It's meaningless for
// the identity order.
func (o *Order) Seed() int64 {
	return o.seed
}
