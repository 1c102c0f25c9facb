// Bench is a benchmarking tool for measuring darts build time, array size,
// query throughput and memory usage.
//
// Usage:
//
//	go run ./cmd/bench -keys 1000000 -values -mapped
//
// Flags:
//
//	-keys      Number of keys to build (default: 1,000,000)
//	-values    Attach values and minimize suffixes (default: false)
//	-mapped    Query through a memory-mapped copy of the saved array (default: false)
//	-queries   Number of exact-match queries per worker (default: 1,000,000)
//	-workers   Number of concurrent query goroutines (default: GOMAXPROCS)
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/darts"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// generateKeys derives n word-like keys from murmur3 digests. Keys share
// hex prefixes and, with a small suffix set, common endings, which gives the
// minimizer something to merge.
func generateKeys(n int) [][]byte {
	suffixes := []string{"", "s", "ed", "ing", "er"}
	keys := make([][]byte, n)
	for i := range keys {
		h1, h2 := murmur3.Sum128WithSeed(fmt.Appendf(nil, "%d", i), 0x1234)
		var raw [8]byte
		for j := range raw {
			raw[j] = byte(h1 >> (8 * j))
		}
		length := 3 + int(h2%6)
		key := hex.AppendEncode(nil, raw[:length])
		keys[i] = append(key, suffixes[h2%uint64(len(suffixes))]...)
	}
	slices.SortFunc(keys, bytes.Compare)
	return keys
}

// memSampler tracks peak heap and RSS at 10ms intervals. It uses
// runtime/metrics instead of ReadMemStats to avoid stop-the-world pauses.
type memSampler struct {
	peakAlloc atomic.Uint64
	peakRSS   atomic.Uint64
	done      chan struct{}
}

func startSampler(baselineAlloc, baselineRSS uint64) *memSampler {
	s := &memSampler{done: make(chan struct{})}
	s.peakAlloc.Store(baselineAlloc)
	s.peakRSS.Store(baselineRSS)
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.peakAlloc, samples[0].Value.Uint64())
				storeMax(&s.peakRSS, getMaxRSS())
			}
		}
	}()
	return s
}

func (s *memSampler) stop() {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.peakAlloc, final.Alloc)
	storeMax(&s.peakRSS, getMaxRSS())
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func main() {
	keysFlag := flag.Int("keys", 1_000_000, "number of keys")
	valuesFlag := flag.Bool("values", false, "attach values and minimize suffixes")
	mappedFlag := flag.Bool("mapped", false, "query a memory-mapped copy of the saved array")
	queriesFlag := flag.Int("queries", 1_000_000, "exact-match queries per worker")
	workersFlag := flag.Int("workers", runtime.GOMAXPROCS(0), "concurrent query goroutines")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	memprofile := flag.String("memprofile", "", "write memory profile to file (build phase only)")
	flag.Parse()
	if *workersFlag < 1 {
		*workersFlag = 1
	}

	fmt.Println("Generating keys...")
	genStart := time.Now()
	keys := generateKeys(*keysFlag)
	genDuration := time.Since(genStart)

	var opts []darts.BuildOption
	var values []int
	if *valuesFlag {
		values = make([]int, len(keys))
		for i := range values {
			values[i] = int(murmur3.Sum32(keys[i]) % 1024)
		}
		opts = append(opts, darts.WithValues(values))
	}

	tmpDir, err := os.MkdirTemp("", "darts-bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	arrayPath := filepath.Join(tmpDir, "bench.da")

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()
	sampler := startSampler(baseline.Alloc, baselineRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Building double array...")
	buildStart := time.Now()
	da, err := darts.Build(context.Background(), keys, opts...)
	buildDuration := time.Since(buildStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("could not write memory profile: %v\n", err)
			}
			_ = f.Close()
		}
	}
	sampler.stop()

	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}

	if err := da.Save(arrayPath, 0, darts.SaveTruncate); err != nil {
		fmt.Printf("Save failed: %v\n", err)
		return
	}
	if *mappedFlag {
		_ = da.Close()
		if da, err = darts.OpenMapped(arrayPath, 0, 0); err != nil {
			fmt.Printf("OpenMapped failed: %v\n", err)
			return
		}
	}
	defer func() { _ = da.Close() }()

	fmt.Println("Verifying keys...")
	verifyStart := time.Now()
	if err := da.VerifyKeys(context.Background(), keys, values, *workersFlag); err != nil {
		fmt.Printf("Verify failed: %v\n", err)
		return
	}
	verifyDuration := time.Since(verifyStart)

	// Randomize query order so lookups do not walk the array sequentially.
	queryOrder := mrand.Perm(len(keys))

	fmt.Println("Benchmarking queries...")
	var found atomic.Int64
	var g errgroup.Group
	queryStart := time.Now()
	for w := range *workersFlag {
		g.Go(func() error {
			var hits int64
			for i := range *queriesFlag {
				k := keys[queryOrder[(i*7+w)%len(queryOrder)]]
				if da.ExactMatch(k).Value != darts.NoValue {
					hits++
				}
			}
			found.Add(hits)
			return nil
		})
	}
	_ = g.Wait()
	queryDuration := time.Since(queryStart)
	totalQueries := *queriesFlag * *workersFlag
	avgLatency := float64(queryDuration.Nanoseconds()) * float64(*workersFlag) / float64(totalQueries) / 1000

	stats := da.Stats()
	bytesPerKey := float64(stats.TotalSize) / float64(len(keys))
	modeStr := "trie"
	if *valuesFlag {
		modeStr = "dawg"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╦══════════════════╗\n")
	fmt.Printf("║ Mode: %-14s║ Buffer: %-7s║                  ║\n", modeStr, stats.Buffer)
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Metric              ║ Value          ║ Notes            ║\n")
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Units               ║ %12d   ║ -                ║\n", stats.NumUnits)
	fmt.Printf("║ Array size          ║ %8.2f MB    ║ -                ║\n", float64(stats.TotalSize)/1_000_000)
	fmt.Printf("║ Bytes per key       ║ %8.2f       ║ -                ║\n", bytesPerKey)
	fmt.Printf("║ Query latency       ║ %6.3f μs      ║ %2d workers       ║\n", avgLatency, *workersFlag)
	fmt.Printf("║ Query hits          ║ %12d   ║ of %-13d ║\n", found.Load(), totalQueries)
	fmt.Printf("║ Key generation      ║ %6.2f sec     ║ -                ║\n", genDuration.Seconds())
	fmt.Printf("║ Build time          ║ %6.2f sec     ║ -                ║\n", buildDuration.Seconds())
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║ -                ║\n", float64(len(keys))/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Verify time         ║ %6.2f sec     ║ -                ║\n", verifyDuration.Seconds())
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║ -                ║\n", float64(sampler.peakAlloc.Load()-baseline.Alloc)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║ -                ║\n", float64(sampler.peakRSS.Load()-baselineRSS)/1_000_000)
	fmt.Printf("║ Checksum            ║ %016x ║ xxh64            ║\n", stats.Checksum)
	fmt.Printf("╚═════════════════════╩════════════════╩══════════════════╝\n")
}
