// Package dawg builds a minimized automaton (directed acyclic word graph)
// from sorted keys.
//
// Keys are inserted into a trie whose sibling chains are ordered by label.
// Every key ends with a '\0' edge whose target carries the value. As soon as
// a key diverges from its predecessor the finished suffix is flushed: each
// sibling group is hash-consed against the groups already emitted, so
// structurally identical subtrees collapse into a single shared state.
//
// Emitted groups are stored as contiguous runs in a unit pool, ordered by
// ascending label. A run is addressed by the index of its first unit.
package dawg

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/xxh3"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/bits"
)

const initialTableSize = 1 << 10

// node is a trie node that has not been flushed yet. For a leaf ('\0'
// label) child holds the value.
type node struct {
	child      uint32
	sibling    uint32
	label      byte
	isState    bool
	hasSibling bool
}

// unit packs the node the way it will be stored in the unit pool.
func (n *node) unit() uint32 {
	var u uint32
	if n.hasSibling {
		u = 1
	}
	if n.label == 0 {
		return n.child<<1 | u
	}
	if n.isState {
		u |= 2
	}
	return n.child<<2 | u
}

// Builder accumulates sorted keys. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	nodes      []node
	units      []uint32
	labels     []byte
	shared     bits.RankVector
	table      []uint32
	nodeStack  []uint32
	recycleBin []uint32
	numStates  int
	numKeys    int

	scratch [4]byte
}

// NewBuilder returns a builder holding only the root.
func NewBuilder() *Builder {
	b := &Builder{
		table:     make([]uint32, initialTableSize),
		numStates: 1,
	}
	b.appendNode()
	b.appendUnit()
	b.nodes[0].label = 0xFF
	b.nodeStack = append(b.nodeStack, 0)
	return b
}

// Insert adds key with value. Keys must arrive in ascending order; a key
// that is not greater than the previous accepted key is ignored and
// Insert reports false. Empty keys and keys containing '\0' are rejected.
func (b *Builder) Insert(key []byte, value uint32) (bool, error) {
	if len(key) == 0 || bytes.IndexByte(key, 0) >= 0 {
		return false, darterrors.ErrInvalidKey
	}

	id := uint32(0)
	keyPos := 0
	for ; keyPos <= len(key); keyPos++ {
		childID := b.nodes[id].child
		if childID == 0 {
			break
		}

		var keyLabel byte
		if keyPos < len(key) {
			keyLabel = key[keyPos]
		}

		unitLabel := b.nodes[childID].label
		if keyLabel < unitLabel {
			return false, nil
		} else if keyLabel > unitLabel {
			b.nodes[childID].hasSibling = true
			b.flush(childID)
			break
		}
		id = childID
	}

	// The whole key, terminator included, matched an existing path.
	if keyPos > len(key) {
		return false, nil
	}

	for ; keyPos <= len(key); keyPos++ {
		var keyLabel byte
		if keyPos < len(key) {
			keyLabel = key[keyPos]
		}
		childID := b.appendNode()
		if b.nodes[id].child == 0 {
			b.nodes[childID].isState = true
		}
		b.nodes[childID].sibling = b.nodes[id].child
		b.nodes[childID].label = keyLabel
		b.nodes[id].child = childID
		b.nodeStack = append(b.nodeStack, childID)
		id = childID
	}
	b.nodes[id].child = value
	b.numKeys++
	return true, nil
}

// NumKeys returns the number of accepted keys.
func (b *Builder) NumKeys() int {
	return b.numKeys
}

// Finish flushes the remaining trie and returns the minimized graph.
// The builder must not be used afterwards.
func (b *Builder) Finish() *Graph {
	b.flush(0)
	b.units[0] = b.nodes[0].unit()
	b.labels[0] = b.nodes[0].label

	b.nodes = nil
	b.table = nil
	b.nodeStack = nil
	b.recycleBin = nil
	b.shared.Build()

	return &Graph{
		units:     b.units,
		labels:    b.labels,
		shared:    &b.shared,
		numStates: b.numStates,
	}
}

// flush emits every pending sibling group above id on the node stack,
// then pops id itself.
func (b *Builder) flush(id uint32) {
	for b.top() != id {
		nodeID := b.top()
		b.nodeStack = b.nodeStack[:len(b.nodeStack)-1]

		if b.numStates >= len(b.table)-len(b.table)>>2 {
			b.expandTable()
		}

		numSiblings := 0
		for i := nodeID; i != 0; i = b.nodes[i].sibling {
			numSiblings++
		}

		matchID, hashID := b.findNode(nodeID)
		if matchID != 0 {
			b.shared.Set(int(matchID), true)
		} else {
			unitID := uint32(0)
			for range numSiblings {
				unitID = b.appendUnit()
			}
			for i := nodeID; i != 0; i = b.nodes[i].sibling {
				b.units[unitID] = b.nodes[i].unit()
				b.labels[unitID] = b.nodes[i].label
				unitID--
			}
			matchID = unitID + 1
			b.table[hashID] = matchID
			b.numStates++
		}

		for i := nodeID; i != 0; {
			next := b.nodes[i].sibling
			b.freeNode(i)
			i = next
		}

		b.nodes[b.top()].child = matchID
	}
	b.nodeStack = b.nodeStack[:len(b.nodeStack)-1]
}

func (b *Builder) top() uint32 {
	return b.nodeStack[len(b.nodeStack)-1]
}

func (b *Builder) expandTable() {
	b.table = make([]uint32, len(b.table)<<1)
	for id := 1; id < len(b.units); id++ {
		if b.labels[id] == 0 || b.units[id]&2 == 2 {
			b.table[b.findFreeSlot(uint32(id))] = uint32(id)
		}
	}
}

// findFreeSlot returns the empty table slot for a group already in the
// unit pool. Groups in the pool are distinct, so no equality check is needed.
func (b *Builder) findFreeSlot(id uint32) uint32 {
	size := uint64(len(b.table))
	hashID := b.hashUnit(id) % size
	for b.table[hashID] != 0 {
		hashID = (hashID + 1) % size
	}
	return uint32(hashID)
}

// findNode looks up the sibling group headed by nodeID. It returns the
// matching group's first unit (0 when absent) and the slot where the group
// belongs.
func (b *Builder) findNode(nodeID uint32) (uint32, uint32) {
	size := uint64(len(b.table))
	hashID := b.hashNode(nodeID) % size
	for {
		unitID := b.table[hashID]
		if unitID == 0 {
			return 0, uint32(hashID)
		}
		if b.equal(nodeID, unitID) {
			return unitID, uint32(hashID)
		}
		hashID = (hashID + 1) % size
	}
}

func (b *Builder) equal(nodeID, unitID uint32) bool {
	for i := b.nodes[nodeID].sibling; i != 0; i = b.nodes[i].sibling {
		if b.units[unitID]&1 == 0 {
			return false
		}
		unitID++
	}
	if b.units[unitID]&1 == 1 {
		return false
	}
	for i := nodeID; i != 0; i = b.nodes[i].sibling {
		if b.nodes[i].unit() != b.units[unitID] || b.nodes[i].label != b.labels[unitID] {
			return false
		}
		unitID--
	}
	return true
}

// hashUnit and hashNode fold per-sibling digests with XOR so the result is
// independent of whether the group is walked in pool order or chain order.
func (b *Builder) hashUnit(id uint32) uint64 {
	var h uint64
	for ; id != 0; id++ {
		h ^= b.hashEntry(b.labels[id], b.units[id])
		if b.units[id]&1 == 0 {
			break
		}
	}
	return h
}

func (b *Builder) hashNode(id uint32) uint64 {
	var h uint64
	for ; id != 0; id = b.nodes[id].sibling {
		h ^= b.hashEntry(b.nodes[id].label, b.nodes[id].unit())
	}
	return h
}

func (b *Builder) hashEntry(label byte, u uint32) uint64 {
	binary.LittleEndian.PutUint32(b.scratch[:], uint32(label)<<24^u)
	return xxh3.Hash(b.scratch[:])
}

func (b *Builder) appendNode() uint32 {
	if n := len(b.recycleBin); n > 0 {
		id := b.recycleBin[n-1]
		b.recycleBin = b.recycleBin[:n-1]
		b.nodes[id] = node{}
		return id
	}
	b.nodes = append(b.nodes, node{})
	return uint32(len(b.nodes) - 1)
}

func (b *Builder) freeNode(id uint32) {
	b.recycleBin = append(b.recycleBin, id)
}

func (b *Builder) appendUnit() uint32 {
	b.shared.Append()
	b.units = append(b.units, 0)
	b.labels = append(b.labels, 0)
	return uint32(len(b.units) - 1)
}

// Graph is a finished, minimized automaton. Ids address units of the pool;
// id 0 is the root.
type Graph struct {
	units     []uint32
	labels    []byte
	shared    *bits.RankVector
	numStates int
}

// Root returns the id of the root.
func (g *Graph) Root() uint32 {
	return 0
}

// Child returns the first unit of id's child group.
func (g *Graph) Child(id uint32) uint32 {
	return g.units[id] >> 2
}

// Sibling returns the next unit in id's group, or 0 at the end of the group.
func (g *Graph) Sibling(id uint32) uint32 {
	if g.units[id]&1 == 1 {
		return id + 1
	}
	return 0
}

// Value returns the value of a leaf.
func (g *Graph) Value(id uint32) uint32 {
	return g.units[id] >> 1
}

// IsLeaf reports whether id is a '\0' edge carrying a value.
func (g *Graph) IsLeaf(id uint32) bool {
	return g.labels[id] == 0
}

// Label returns the edge label of id.
func (g *Graph) Label(id uint32) byte {
	return g.labels[id]
}

// IsShared reports whether the group starting at id is reachable from more
// than one parent.
func (g *Graph) IsShared(id uint32) bool {
	return g.shared.Get(int(id))
}

// SharedID numbers shared groups densely from 0.
func (g *Graph) SharedID(id uint32) int {
	return g.shared.Rank(int(id)) - 1
}

// NumShared returns the number of shared groups.
func (g *Graph) NumShared() int {
	return g.shared.NumOnes()
}

// Size returns the number of units in the pool.
func (g *Graph) Size() int {
	return len(g.units)
}

// NumStates returns the number of distinct states, root included.
func (g *Graph) NumStates() int {
	return g.numStates
}
