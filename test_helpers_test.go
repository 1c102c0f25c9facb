package darts

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG generator seeded from the test name, so every
// test gets its own reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// generateWords returns n distinct sorted words over alphabet with lengths
// in [1, maxLen]. A small alphabet yields many keys that are prefixes of
// each other.
func generateWords(rng *rand.Rand, n, maxLen int, alphabet string) [][]byte {
	seen := make(map[string]struct{}, n)
	words := make([][]byte, 0, n)
	for len(words) < n {
		w := randomWord(rng, maxLen, alphabet)
		if _, ok := seen[string(w)]; ok {
			continue
		}
		seen[string(w)] = struct{}{}
		words = append(words, w)
	}
	slices.SortFunc(words, bytes.Compare)
	return words
}

func randomWord(rng *rand.Rand, maxLen int, alphabet string) []byte {
	w := make([]byte, 1+rng.IntN(maxLen))
	for i := range w {
		w[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return w
}

// randomValues returns n values in [0, limit).
func randomValues(rng *rand.Rand, n, limit int) []int {
	values := make([]int, n)
	for i := range values {
		values[i] = rng.IntN(limit)
	}
	return values
}

// stringKeys converts string literals to keys.
func stringKeys(words ...string) [][]byte {
	keys := make([][]byte, len(words))
	for i, w := range words {
		keys[i] = []byte(w)
	}
	return keys
}

// buildOrFail builds an array and fails the test on error.
func buildOrFail(t testing.TB, keys [][]byte, opts ...BuildOption) *DoubleArray {
	t.Helper()
	da, err := Build(t.Context(), keys, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return da
}

// expectedValues maps each key to the value the array must report,
// defaulting to the key index when values is nil.
func expectedValues(keys [][]byte, values []int) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, ok := m[string(k)]; ok {
			continue
		}
		if values == nil {
			m[string(k)] = i
		} else {
			m[string(k)] = values[i]
		}
	}
	return m
}

// naivePrefixMatches lists the matches CommonPrefixSearch must return.
func naivePrefixMatches(expected map[string]int, key []byte) []Result {
	var out []Result
	for l := 1; l <= len(key); l++ {
		if v, ok := expected[string(key[:l])]; ok {
			out = append(out, Result{Value: v, Length: l})
		}
	}
	return out
}

// buildModes runs fn for both construction paths.
var buildModes = []struct {
	name      string
	useValues bool
}{
	{"trie", false},
	{"dawg", true},
}
