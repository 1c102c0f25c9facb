// Package arrange packs an automaton into a double array.
//
// Every state is assigned an offset such that each child lives at
// state ^ offset ^ label. Offsets are searched first-fit along a circular
// list of unfixed slots. Bookkeeping for slots ("extras") covers only the
// most recent numExtraBlocks blocks; older blocks are fixed, which turns
// their remaining free slots into units whose label can never match.
package arrange

import (
	"fmt"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/dawg"
	"github.com/tamirms/darts/internal/unit"
)

const (
	blockSize      = 256
	numExtraBlocks = 16
	numExtras      = blockSize * numExtraBlocks

	upperMask = uint32(0xFF) << 21
	lowerMask = uint32(0xFF)
)

// Keyset is a strictly ascending list of keys with values. Keys must be
// non-empty and free of '\0'.
type Keyset interface {
	Len() int
	Key(i int) []byte
	Value(i int) uint32
}

// Progress is called once per key while arranging a Keyset. A non-nil
// error stops construction and is returned as is.
type Progress func(current, total int) error

type extra struct {
	prev    uint32
	next    uint32
	isFixed bool
	isUsed  bool
}

type builder struct {
	units      []unit.Unit
	extras     []extra
	extrasHead uint32
	labels     []byte
	table      []uint32
}

func newBuilder(sizeHint int) *builder {
	numUnits := 1
	for numUnits < sizeHint {
		numUnits <<= 1
	}
	b := &builder{
		units:  make([]unit.Unit, 0, numUnits),
		extras: make([]extra, numExtras),
	}
	b.reserveID(0)
	b.extra(0).isUsed = true
	// Offset 1 always fits, so the error is impossible.
	_ = b.units[0].SetOffset(1)
	b.units[0].SetLabel(0)
	return b
}

// FromGraph places a minimized automaton. Shared states are placed once and
// reused by every parent that can encode the relative offset.
func FromGraph(g *dawg.Graph) ([]unit.Unit, error) {
	b := newBuilder(g.Size())
	b.table = make([]uint32, g.NumShared())

	if g.Child(g.Root()) != 0 {
		if err := b.buildFromGraph(g, g.Root(), 0); err != nil {
			return nil, err
		}
	}
	b.fixAllBlocks()
	return b.units, nil
}

// FromKeyset places the plain trie of ks.
func FromKeyset(ks Keyset, progress Progress) ([]unit.Unit, error) {
	b := newBuilder(ks.Len())

	if ks.Len() > 0 {
		if err := b.buildFromKeyset(ks, progress, 0, ks.Len(), 0, 0); err != nil {
			return nil, err
		}
	}
	b.fixAllBlocks()
	return b.units, nil
}

func (b *builder) buildFromGraph(g *dawg.Graph, graphID, dicID uint32) error {
	graphChildID := g.Child(graphID)
	if g.IsShared(graphChildID) {
		offset := b.table[g.SharedID(graphChildID)]
		if offset != 0 {
			offset ^= dicID
			if offset&upperMask == 0 || offset&lowerMask == 0 {
				if g.IsLeaf(graphChildID) {
					b.units[dicID].SetHasLeaf(true)
				}
				return b.setOffset(dicID, offset)
			}
		}
	}

	offset, err := b.arrangeFromGraph(g, graphID, dicID)
	if err != nil {
		return err
	}
	if g.IsShared(graphChildID) {
		b.table[g.SharedID(graphChildID)] = offset
	}

	for ; graphChildID != 0; graphChildID = g.Sibling(graphChildID) {
		childLabel := g.Label(graphChildID)
		if childLabel == 0 {
			continue
		}
		if err := b.buildFromGraph(g, graphChildID, offset^uint32(childLabel)); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) arrangeFromGraph(g *dawg.Graph, graphID, dicID uint32) (uint32, error) {
	b.labels = b.labels[:0]
	for id := g.Child(graphID); id != 0; id = g.Sibling(id) {
		b.labels = append(b.labels, g.Label(id))
	}

	offset := b.findValidOffset(dicID)
	if err := b.setOffset(dicID, dicID^offset); err != nil {
		return 0, err
	}

	graphChildID := g.Child(graphID)
	for _, label := range b.labels {
		dicChildID := offset ^ uint32(label)
		b.reserveID(dicChildID)
		if g.IsLeaf(graphChildID) {
			b.units[dicID].SetHasLeaf(true)
			b.units[dicChildID].SetValue(g.Value(graphChildID))
		} else {
			b.units[dicChildID].SetLabel(label)
		}
		graphChildID = g.Sibling(graphChildID)
	}
	b.extra(offset).isUsed = true
	return offset, nil
}

func keyLabel(ks Keyset, i, depth int) byte {
	key := ks.Key(i)
	if depth < len(key) {
		return key[depth]
	}
	return 0
}

func (b *builder) buildFromKeyset(ks Keyset, progress Progress, begin, end, depth int, dicID uint32) error {
	offset, err := b.arrangeFromKeyset(ks, progress, begin, end, depth, dicID)
	if err != nil {
		return err
	}

	for begin < end && keyLabel(ks, begin, depth) == 0 {
		begin++
	}
	if begin == end {
		return nil
	}

	lastBegin := begin
	lastLabel := keyLabel(ks, begin, depth)
	for begin++; begin < end; begin++ {
		label := keyLabel(ks, begin, depth)
		if label != lastLabel {
			if err := b.buildFromKeyset(ks, progress, lastBegin, begin, depth+1, offset^uint32(lastLabel)); err != nil {
				return err
			}
			lastBegin = begin
			lastLabel = label
		}
	}
	return b.buildFromKeyset(ks, progress, lastBegin, end, depth+1, offset^uint32(lastLabel))
}

func (b *builder) arrangeFromKeyset(ks Keyset, progress Progress, begin, end, depth int, dicID uint32) (uint32, error) {
	b.labels = b.labels[:0]

	hasValue := false
	var value uint32
	for i := begin; i < end; i++ {
		label := keyLabel(ks, i, depth)
		if label == 0 {
			if !hasValue {
				hasValue = true
				value = ks.Value(i)
			}
			if progress != nil {
				if err := progress(i+1, ks.Len()+1); err != nil {
					return 0, err
				}
			}
		}

		if n := len(b.labels); n == 0 {
			b.labels = append(b.labels, label)
		} else if label != b.labels[n-1] {
			if label < b.labels[n-1] {
				return 0, fmt.Errorf("%w: key %d is out of order", darterrors.ErrBuildFailed, i)
			}
			b.labels = append(b.labels, label)
		}
	}

	offset := b.findValidOffset(dicID)
	if err := b.setOffset(dicID, dicID^offset); err != nil {
		return 0, err
	}

	for _, label := range b.labels {
		childID := offset ^ uint32(label)
		b.reserveID(childID)
		if label == 0 {
			b.units[dicID].SetHasLeaf(true)
			b.units[childID].SetValue(value)
		} else {
			b.units[childID].SetLabel(label)
		}
	}
	b.extra(offset).isUsed = true
	return offset, nil
}

func (b *builder) setOffset(id, offset uint32) error {
	if err := b.units[id].SetOffset(offset); err != nil {
		return fmt.Errorf("%w: unit %d: %w", darterrors.ErrBuildFailed, id, err)
	}
	return nil
}

func (b *builder) numUnits() uint32 {
	return uint32(len(b.units))
}

func (b *builder) numBlocks() uint32 {
	return b.numUnits() / blockSize
}

func (b *builder) extra(id uint32) *extra {
	return &b.extras[id%numExtras]
}

// findValidOffset returns the first offset along the free list that fits
// the current label set, or a fresh offset past the end of the array.
func (b *builder) findValidOffset(id uint32) uint32 {
	if b.extrasHead >= b.numUnits() {
		return b.numUnits() | (id & lowerMask)
	}

	unfixedID := b.extrasHead
	for {
		offset := unfixedID ^ uint32(b.labels[0])
		if b.isValidOffset(id, offset) {
			return offset
		}
		unfixedID = b.extra(unfixedID).next
		if unfixedID == b.extrasHead {
			break
		}
	}
	return b.numUnits() | (id & lowerMask)
}

func (b *builder) isValidOffset(id, offset uint32) bool {
	if b.extra(offset).isUsed {
		return false
	}

	relOffset := id ^ offset
	if relOffset&lowerMask != 0 && relOffset&upperMask != 0 {
		return false
	}

	for _, label := range b.labels[1:] {
		if b.extra(offset ^ uint32(label)).isFixed {
			return false
		}
	}
	return true
}

// reserveID unlinks id from the free list, growing the array if needed.
func (b *builder) reserveID(id uint32) {
	if id >= b.numUnits() {
		b.expandUnits()
	}

	if id == b.extrasHead {
		b.extrasHead = b.extra(id).next
		if b.extrasHead == id {
			b.extrasHead = b.numUnits()
		}
	}
	b.extra(b.extra(id).prev).next = b.extra(id).next
	b.extra(b.extra(id).next).prev = b.extra(id).prev
	b.extra(id).isFixed = true
}

// expandUnits appends one block and splices its slots into the free list.
func (b *builder) expandUnits() {
	srcNumUnits := b.numUnits()
	srcNumBlocks := b.numBlocks()

	destNumUnits := srcNumUnits + blockSize
	destNumBlocks := srcNumBlocks + 1

	if destNumBlocks > numExtraBlocks {
		b.fixBlock(srcNumBlocks - numExtraBlocks)
	}

	b.units = append(b.units, make([]unit.Unit, blockSize)...)

	if destNumBlocks > numExtraBlocks {
		for id := srcNumUnits; id < destNumUnits; id++ {
			b.extra(id).isUsed = false
			b.extra(id).isFixed = false
		}
	}

	for i := srcNumUnits + 1; i < destNumUnits; i++ {
		b.extra(i - 1).next = i
		b.extra(i).prev = i - 1
	}

	b.extra(srcNumUnits).prev = destNumUnits - 1
	b.extra(destNumUnits - 1).next = srcNumUnits

	b.extra(srcNumUnits).prev = b.extra(b.extrasHead).prev
	b.extra(destNumUnits - 1).next = b.extrasHead

	b.extra(b.extra(b.extrasHead).prev).next = srcNumUnits
	b.extra(b.extrasHead).prev = destNumUnits - 1
}

func (b *builder) fixAllBlocks() {
	begin := uint32(0)
	if b.numBlocks() > numExtraBlocks {
		begin = b.numBlocks() - numExtraBlocks
	}
	end := b.numBlocks()

	for blockID := begin; blockID != end; blockID++ {
		b.fixBlock(blockID)
	}
}

// fixBlock reserves every remaining slot of a block. Each gets a label
// derived from an unused offset, so no parent can ever reach it.
func (b *builder) fixBlock(blockID uint32) {
	begin := blockID * blockSize
	end := begin + blockSize

	unusedOffset := uint32(0)
	for offset := begin; offset != end; offset++ {
		if !b.extra(offset).isUsed {
			unusedOffset = offset
			break
		}
	}

	for id := begin; id != end; id++ {
		if !b.extra(id).isFixed {
			b.reserveID(id)
			b.units[id].SetLabel(byte(id ^ unusedOffset))
		}
	}
}
