package darts

import (
	"slices"
	"testing"
)

func TestCommonPrefixSearchMatchesOracle(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateWords(rng, 2000, 10, "abc")

	for _, mode := range buildModes {
		t.Run(mode.name, func(t *testing.T) {
			var values []int
			var opts []BuildOption
			if mode.useValues {
				values = randomValues(rng, len(keys), 1<<20)
				opts = append(opts, WithValues(values))
			}
			da := buildOrFail(t, keys, opts...)
			expected := expectedValues(keys, values)

			results := make([]Result, 16)
			for range 3000 {
				query := randomWord(rng, 14, "abcd")
				want := naivePrefixMatches(expected, query)

				n := da.CommonPrefixSearch(query, results)
				if n != len(want) {
					t.Fatalf("CommonPrefixSearch(%q) = %d matches, want %d", query, n, len(want))
				}
				if !slices.Equal(results[:min(n, len(results))], want[:min(n, len(results))]) {
					t.Fatalf("CommonPrefixSearch(%q) = %v, want %v", query, results[:n], want)
				}

				lpm := da.LongestPrefixMatch(query)
				if len(want) == 0 {
					if lpm != (Result{Value: NoValue}) {
						t.Fatalf("LongestPrefixMatch(%q) = %+v, want no match", query, lpm)
					}
				} else if lpm != want[len(want)-1] {
					t.Fatalf("LongestPrefixMatch(%q) = %+v, want %+v", query, lpm, want[len(want)-1])
				}
			}
		})
	}
}

func TestCommonPrefixSearchSmallBuffer(t *testing.T) {
	keys := stringKeys("a", "ab", "abc", "abcd")
	da := buildOrFail(t, keys)

	results := make([]Result, 2)
	n := da.CommonPrefixSearch([]byte("abcde"), results)
	if n != 4 {
		t.Fatalf("CommonPrefixSearch = %d, want total count 4", n)
	}
	if results[0] != (Result{0, 1}) || results[1] != (Result{1, 2}) {
		t.Errorf("results = %v", results)
	}

	if n := da.CommonPrefixSearch([]byte("abc"), nil); n != 3 {
		t.Errorf("CommonPrefixSearch with nil buffer = %d, want 3", n)
	}
}

func TestTraverseStepwise(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateWords(rng, 1000, 8, "xyz")
	da := buildOrFail(t, keys)
	expected := expectedValues(keys, nil)

	for range 1000 {
		query := randomWord(rng, 10, "xyzw")
		node := 0
		for i := range query {
			v, n, p := da.Traverse(query[:i+1], node, i)
			if v == NoTransition {
				if n != node || p != i {
					t.Fatalf("Traverse(%q) failure moved to node=%d pos=%d", query[:i+1], n, p)
				}
				if r := da.ExactMatch(query[:i+1]); r.Value != NoValue {
					t.Fatalf("Traverse reported no transition for member prefix %q", query[:i+1])
				}
				break
			}
			if p != i+1 {
				t.Fatalf("Traverse(%q) pos = %d, want %d", query[:i+1], p, i+1)
			}
			node = n

			want, ok := expected[string(query[:i+1])]
			if !ok {
				want = NoValue
			}
			if v != want {
				t.Fatalf("Traverse(%q) = %d, want %d", query[:i+1], v, want)
			}
		}
	}
}

func TestTraverseWholeKey(t *testing.T) {
	keys := stringKeys("car", "card", "care", "cat")
	da := buildOrFail(t, keys)

	v, node, pos := da.Traverse([]byte("card"), 0, 0)
	if v != 1 || pos != 4 {
		t.Fatalf("Traverse(card) = (%d, %d, %d)", v, node, pos)
	}

	v, _, pos = da.Traverse([]byte("cars"), 0, 0)
	if v != NoTransition || pos != 3 {
		t.Errorf("Traverse(cars) = (%d, pos %d), want NoTransition at 3", v, pos)
	}

	v, _, pos = da.Traverse([]byte("ca"), 0, 0)
	if v != NoValue || pos != 2 {
		t.Errorf("Traverse(ca) = (%d, pos %d), want NoValue at 2", v, pos)
	}
}

func TestSearchFromInnerState(t *testing.T) {
	keys := stringKeys("pre", "prefix", "prefixes", "press")
	values := []int{7, 8, 9, 10}
	da := buildOrFail(t, keys, WithValues(values))

	_, node, _ := da.Traverse([]byte("pre"), 0, 0)

	if r := da.ExactMatchAt([]byte("fix"), node); r.Value != 8 || r.Length != 3 {
		t.Errorf("ExactMatchAt(fix) = %+v, want {8 3}", r)
	}
	if r := da.ExactMatchAt([]byte("ss"), node); r.Value != 10 {
		t.Errorf("ExactMatchAt(ss) = %+v, want 10", r)
	}

	results := make([]Result, 4)
	n := da.CommonPrefixSearchAt([]byte("fixes!"), results, node)
	if n != 2 || results[0] != (Result{8, 3}) || results[1] != (Result{9, 5}) {
		t.Errorf("CommonPrefixSearchAt(fixes!) = %v", results[:n])
	}

	if r := da.LongestPrefixMatchAt([]byte("fixe"), node); r != (Result{8, 3}) {
		t.Errorf("LongestPrefixMatchAt(fixe) = %+v", r)
	}
}

func TestSearchEmptyArray(t *testing.T) {
	da := New()
	key := []byte("abc")

	if r := da.ExactMatch(key); r != (Result{Value: NoValue}) {
		t.Errorf("ExactMatch = %+v", r)
	}
	if n := da.CommonPrefixSearch(key, make([]Result, 2)); n != 0 {
		t.Errorf("CommonPrefixSearch = %d", n)
	}
	if r := da.LongestPrefixMatch(key); r != (Result{Value: NoValue}) {
		t.Errorf("LongestPrefixMatch = %+v", r)
	}
	if v, _, _ := da.Traverse(key, 0, 0); v != NoTransition {
		t.Errorf("Traverse = %d, want NoTransition", v)
	}
}

func TestSearchBadStartState(t *testing.T) {
	da := buildOrFail(t, stringKeys("a"))
	for _, node := range []int{-1, da.Size(), da.Size() + 100} {
		if r := da.ExactMatchAt([]byte("a"), node); r.Value != NoValue {
			t.Errorf("ExactMatchAt(node=%d) = %+v", node, r)
		}
		if v, _, _ := da.Traverse([]byte("a"), node, 0); v != NoTransition {
			t.Errorf("Traverse(node=%d) = %d", node, v)
		}
	}
}

func TestSearchTruncatedArrayDoesNotPanic(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateWords(rng, 500, 6, "abcdefgh")
	full := buildOrFail(t, keys)

	data := full.Array()
	da := New()
	if err := da.SetArray(data[:len(data)/2/4*4]); err != nil {
		t.Fatalf("SetArray: %v", err)
	}

	results := make([]Result, 8)
	for _, k := range keys {
		da.ExactMatch(k)
		da.CommonPrefixSearch(k, results)
		da.LongestPrefixMatch(k)
		da.Traverse(k, 0, 0)
	}
}
