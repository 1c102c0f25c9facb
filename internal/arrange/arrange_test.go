package arrange

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"testing"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/dawg"
	"github.com/tamirms/darts/internal/unit"
)

type keyset struct {
	keys   [][]byte
	values []uint32
}

func (ks *keyset) Len() int           { return len(ks.keys) }
func (ks *keyset) Key(i int) []byte   { return ks.keys[i] }
func (ks *keyset) Value(i int) uint32 { return ks.values[i] }

func newKeyset(words ...string) *keyset {
	slices.Sort(words)
	ks := &keyset{}
	for i, w := range words {
		ks.keys = append(ks.keys, []byte(w))
		ks.values = append(ks.values, uint32(i))
	}
	return ks
}

// lookup walks units along key the way an exact match does.
func lookup(units []unit.Unit, key []byte) (int, bool) {
	id := uint32(0)
	u := units[0]
	for _, c := range key {
		id ^= u.Offset() ^ uint32(c)
		if int(id) >= len(units) {
			return 0, false
		}
		u = units[id]
		if u.Label() != uint32(c) {
			return 0, false
		}
	}
	if !u.HasLeaf() {
		return 0, false
	}
	return units[id^u.Offset()].Value(), true
}

func TestFromKeyset(t *testing.T) {
	ks := newKeyset("a", "ab", "abc", "b", "bcd", "zz")
	units, err := FromKeyset(ks, nil)
	if err != nil {
		t.Fatalf("FromKeyset: %v", err)
	}
	if len(units)%blockSize != 0 {
		t.Errorf("len(units) = %d, not a multiple of %d", len(units), blockSize)
	}

	for i, k := range ks.keys {
		if v, ok := lookup(units, k); !ok || v != i {
			t.Errorf("lookup(%s) = %d, %v; want %d, true", k, v, ok, i)
		}
	}
	for _, k := range []string{"c", "abcd", "bc", "z"} {
		if _, ok := lookup(units, []byte(k)); ok {
			t.Errorf("lookup(%s) found a value", k)
		}
	}
}

func TestFromKeysetManyBlocks(t *testing.T) {
	ks := &keyset{}
	for i := range 30000 {
		ks.keys = append(ks.keys, fmt.Appendf(nil, "key%07d", i*7919%1000003))
	}
	slices.SortFunc(ks.keys, bytes.Compare)
	for i := range ks.keys {
		ks.values = append(ks.values, uint32(i))
	}

	units, err := FromKeyset(ks, nil)
	if err != nil {
		t.Fatalf("FromKeyset: %v", err)
	}
	if blocks := len(units) / blockSize; blocks <= numExtraBlocks {
		t.Fatalf("%d blocks, want more than %d", blocks, numExtraBlocks)
	}

	for i, k := range ks.keys {
		if v, ok := lookup(units, k); !ok || v != i {
			t.Fatalf("lookup(%s) = %d, %v; want %d, true", k, v, ok, i)
		}
	}
}

func TestFromKeysetProgress(t *testing.T) {
	ks := newKeyset("a", "b", "c")
	var seen []int
	_, err := FromKeyset(ks, func(current, total int) error {
		if total != 4 {
			t.Errorf("total = %d, want 4", total)
		}
		seen = append(seen, current)
		return nil
	})
	if err != nil {
		t.Fatalf("FromKeyset: %v", err)
	}
	if !slices.Equal(seen, []int{1, 2, 3}) {
		t.Errorf("progress = %v, want [1 2 3]", seen)
	}

	stop := errors.New("stop")
	_, err = FromKeyset(ks, func(current, _ int) error {
		if current == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("FromKeyset = %v, want the progress error", err)
	}
}

func TestFromKeysetRejectsUnsorted(t *testing.T) {
	ks := &keyset{
		keys:   [][]byte{[]byte("b"), []byte("a")},
		values: []uint32{0, 1},
	}
	if _, err := FromKeyset(ks, nil); !errors.Is(err, darterrors.ErrBuildFailed) {
		t.Errorf("FromKeyset = %v, want ErrBuildFailed", err)
	}
}

func TestFromGraph(t *testing.T) {
	words := []string{"jumped", "jumping", "talked", "talking", "walked", "walking"}
	values := []uint32{1, 2, 1, 2, 1, 2}

	b := dawg.NewBuilder()
	for i, w := range words {
		if _, err := b.Insert([]byte(w), values[i]); err != nil {
			t.Fatalf("Insert(%s): %v", w, err)
		}
	}
	units, err := FromGraph(b.Finish())
	if err != nil {
		t.Fatalf("FromGraph: %v", err)
	}

	for i, w := range words {
		if v, ok := lookup(units, []byte(w)); !ok || v != int(values[i]) {
			t.Errorf("lookup(%s) = %d, %v; want %d, true", w, v, ok, values[i])
		}
	}
	for _, w := range []string{"jump", "talk", "walkin", "jumpeded"} {
		if _, ok := lookup(units, []byte(w)); ok {
			t.Errorf("lookup(%s) found a value", w)
		}
	}
}

func TestFromGraphEmpty(t *testing.T) {
	units, err := FromGraph(dawg.NewBuilder().Finish())
	if err != nil {
		t.Fatalf("FromGraph: %v", err)
	}
	if len(units) == 0 {
		t.Fatal("no units")
	}
	if _, ok := lookup(units, []byte("a")); ok {
		t.Error("empty graph matched a")
	}
}
