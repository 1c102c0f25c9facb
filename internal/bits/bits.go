// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

const wordBits = 32

// RankVector is an append-only bit vector with constant-time rank once
// Build has been called.
type RankVector struct {
	words   []uint32
	ranks   []uint32
	numOnes int
	size    int
}

// Append adds a zero bit at the end.
func (v *RankVector) Append() {
	if v.size%wordBits == 0 {
		v.words = append(v.words, 0)
	}
	v.size++
}

// Set sets bit i to b.
func (v *RankVector) Set(i int, b bool) {
	if b {
		v.words[i/wordBits] |= 1 << (i % wordBits)
	} else {
		v.words[i/wordBits] &^= 1 << (i % wordBits)
	}
}

// Get reports whether bit i is set.
func (v *RankVector) Get(i int) bool {
	return v.words[i/wordBits]>>(i%wordBits)&1 == 1
}

// Build computes the rank directory. Set must not be called afterwards.
func (v *RankVector) Build() {
	v.ranks = make([]uint32, len(v.words))
	v.numOnes = 0
	for i, w := range v.words {
		v.ranks[i] = uint32(v.numOnes)
		v.numOnes += bits.OnesCount32(w)
	}
}

// Rank returns the number of set bits in [0, i].
func (v *RankVector) Rank(i int) int {
	w := i / wordBits
	mask := ^uint32(0) >> (wordBits - 1 - i%wordBits)
	return int(v.ranks[w]) + bits.OnesCount32(v.words[w]&mask)
}

// NumOnes returns the number of set bits counted by Build.
func (v *RankVector) NumOnes() int {
	return v.numOnes
}

// Len returns the number of bits.
func (v *RankVector) Len() int {
	return v.size
}

// Reset drops all bits.
func (v *RankVector) Reset() {
	v.words = nil
	v.ranks = nil
	v.numOnes = 0
	v.size = 0
}
