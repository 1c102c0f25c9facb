package darts

import (
	"path/filepath"
	"testing"
)

const benchAlphabet = "abcdefghijklmnopqrstuvwxyz"

func benchmarkBuildN(b *testing.B, n int, useValues bool) {
	rng := newTestRNG(b)
	keys := generateWords(rng, n, 16, benchAlphabet)
	var opts []BuildOption
	if useValues {
		opts = append(opts, WithValues(randomValues(rng, n, 1000)))
	}

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		if _, err := Build(b.Context(), keys, opts...); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildTrie1K(b *testing.B)   { benchmarkBuildN(b, 1000, false) }
func BenchmarkBuildTrie100K(b *testing.B) { benchmarkBuildN(b, 100000, false) }
func BenchmarkBuildDAWG1K(b *testing.B)   { benchmarkBuildN(b, 1000, true) }
func BenchmarkBuildDAWG100K(b *testing.B) { benchmarkBuildN(b, 100000, true) }

func benchmarkExactMatchN(b *testing.B, n int, mapped bool) {
	rng := newTestRNG(b)
	keys := generateWords(rng, n, 16, benchAlphabet)
	da := buildOrFail(b, keys)

	if mapped {
		path := filepath.Join(b.TempDir(), "bench.da")
		if err := da.Save(path, 0, SaveTruncate); err != nil {
			b.Fatal(err)
		}
		var err error
		if da, err = OpenMapped(path, 0, 0); err != nil {
			b.Fatal(err)
		}
		defer da.Close()
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := range b.N {
		_ = da.ExactMatch(keys[i%n])
	}
}

func BenchmarkExactMatch10K(b *testing.B)      { benchmarkExactMatchN(b, 10000, false) }
func BenchmarkExactMatch1M(b *testing.B)       { benchmarkExactMatchN(b, 1000000, false) }
func BenchmarkExactMatchMapped1M(b *testing.B) { benchmarkExactMatchN(b, 1000000, true) }

func BenchmarkCommonPrefixSearch(b *testing.B) {
	rng := newTestRNG(b)
	keys := generateWords(rng, 50000, 10, "abcd")
	da := buildOrFail(b, keys)
	queries := make([][]byte, 1024)
	for i := range queries {
		queries[i] = randomWord(rng, 32, "abcd")
	}
	results := make([]Result, 32)

	b.ResetTimer()
	b.ReportAllocs()
	for i := range b.N {
		_ = da.CommonPrefixSearch(queries[i%len(queries)], results)
	}
}
