package darts

import "github.com/tamirms/darts/internal/unit"

const (
	// NoValue is reported when a key reaches a non-accepting state or
	// does not match at all.
	NoValue = -1

	// NoTransition is returned by Traverse when a label has no outgoing
	// transition.
	NoTransition = -2
)

// Result is a match: the value of the accepting state and the number of
// key bytes consumed from the search start state.
type Result struct {
	Value  int
	Length int
}

var noMatch = Result{Value: NoValue}

// unitAt returns unit id, or false when id is outside the array. Valid
// arrays never produce out-of-range ids; a truncated one must not panic.
func (da *DoubleArray) unitAt(id uint32) (unit.Unit, bool) {
	if uint64(id) >= uint64(len(da.data)/unit.Size) {
		return 0, false
	}
	return unit.Load(da.data, int(id)), true
}

// startUnit validates a caller-supplied node position.
func (da *DoubleArray) startUnit(nodePos int) (uint32, unit.Unit, bool) {
	if nodePos < 0 || nodePos >= da.Size() {
		return 0, 0, false
	}
	id := uint32(nodePos)
	return id, unit.Load(da.data, nodePos), true
}

// leafValue reads the value of accepting state id whose unit is u.
func (da *DoubleArray) leafValue(id uint32, u unit.Unit) (int, bool) {
	leaf, ok := da.unitAt(id ^ u.Offset())
	if !ok {
		return 0, false
	}
	return leaf.Value(), true
}

// ExactMatch looks up key from the root.
func (da *DoubleArray) ExactMatch(key []byte) Result {
	return da.ExactMatchAt(key, 0)
}

// ExactMatchAt looks up key starting from state nodePos. It returns
// {NoValue, 0} unless the whole key leads to an accepting state.
func (da *DoubleArray) ExactMatchAt(key []byte, nodePos int) Result {
	id, u, ok := da.startUnit(nodePos)
	if !ok {
		return noMatch
	}

	for _, c := range key {
		id ^= u.Offset() ^ uint32(c)
		if u, ok = da.unitAt(id); !ok || u.Label() != uint32(c) {
			return noMatch
		}
	}

	if !u.HasLeaf() {
		return noMatch
	}
	v, ok := da.leafValue(id, u)
	if !ok {
		return noMatch
	}
	return Result{Value: v, Length: len(key)}
}

// CommonPrefixSearch enumerates keys that are prefixes of key, starting
// from the root.
func (da *DoubleArray) CommonPrefixSearch(key []byte, results []Result) int {
	return da.CommonPrefixSearchAt(key, results, 0)
}

// CommonPrefixSearchAt writes every match along key, starting from state
// nodePos, into results in increasing length order. It returns the total
// number of matches, which may exceed len(results); only the first
// len(results) are written.
func (da *DoubleArray) CommonPrefixSearchAt(key []byte, results []Result, nodePos int) int {
	id, u, ok := da.startUnit(nodePos)
	if !ok {
		return 0
	}

	numResults := 0
	id ^= u.Offset()
	for i, c := range key {
		id ^= uint32(c)
		if u, ok = da.unitAt(id); !ok || u.Label() != uint32(c) {
			return numResults
		}

		id ^= u.Offset()
		if u.HasLeaf() {
			leaf, ok := da.unitAt(id)
			if !ok {
				return numResults
			}
			if numResults < len(results) {
				results[numResults] = Result{Value: leaf.Value(), Length: i + 1}
			}
			numResults++
		}
	}
	return numResults
}

// LongestPrefixMatch returns the longest key that is a prefix of key.
func (da *DoubleArray) LongestPrefixMatch(key []byte) Result {
	return da.LongestPrefixMatchAt(key, 0)
}

// LongestPrefixMatchAt returns the last match CommonPrefixSearchAt would
// report, or {NoValue, 0}.
func (da *DoubleArray) LongestPrefixMatchAt(key []byte, nodePos int) Result {
	id, u, ok := da.startUnit(nodePos)
	if !ok {
		return noMatch
	}

	best := noMatch
	id ^= u.Offset()
	for i, c := range key {
		id ^= uint32(c)
		if u, ok = da.unitAt(id); !ok || u.Label() != uint32(c) {
			return best
		}

		id ^= u.Offset()
		if u.HasLeaf() {
			leaf, ok := da.unitAt(id)
			if !ok {
				return best
			}
			best = Result{Value: leaf.Value(), Length: i + 1}
		}
	}
	return best
}

// Traverse follows key[keyPos:] from state nodePos one label at a time and
// returns the updated positions.
//
// The returned value is NoTransition if a label has no transition; nodePos
// and keyPos then point at the last state reached and the label that
// failed. Otherwise it is NoValue for a non-accepting state or the value of
// the accepting state reached. Passing key[:keyPos+1] moves exactly one
// label, which lets callers match incrementally without restarting at the
// root:
//
//	node := 0
//	for i := range key {
//	    v, n, _ := da.Traverse(key[:i+1], node, i)
//	    if v == darts.NoTransition {
//	        break
//	    }
//	    node = n
//	}
func (da *DoubleArray) Traverse(key []byte, nodePos, keyPos int) (value, node, pos int) {
	id, u, ok := da.startUnit(nodePos)
	if !ok || keyPos < 0 {
		return NoTransition, nodePos, keyPos
	}

	for ; keyPos < len(key); keyPos++ {
		c := key[keyPos]
		id ^= u.Offset() ^ uint32(c)
		if u, ok = da.unitAt(id); !ok || u.Label() != uint32(c) {
			return NoTransition, nodePos, keyPos
		}
		nodePos = int(id)
	}

	if !u.HasLeaf() {
		return NoValue, nodePos, keyPos
	}
	v, ok := da.leafValue(id, u)
	if !ok {
		return NoValue, nodePos, keyPos
	}
	return v, nodePos, keyPos
}
