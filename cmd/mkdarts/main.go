// Mkdarts builds a double array from a lexicon file and saves it.
//
// Usage:
//
//	go run ./cmd/mkdarts [flags] LEXICON OUTPUT
//
// Each lexicon line is a key, optionally followed by a tab and a
// non-negative integer value. Lines are sorted before building; when any
// line carries a value, lines without one get 0. Keys without values are
// numbered in sorted order.
//
// Flags:
//
//	-verify    Map the saved array and check every key (default: true)
//	-offset    Byte offset to write at, keeping the bytes before it (default: 0)
//	-quiet     Suppress progress output (default: false)
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"time"

	"github.com/tamirms/darts"
)

type entry struct {
	key   []byte
	value int
}

// readLexicon parses LEXICON. hasValues reports whether any line had a
// value column.
func readLexicon(path string) (entries []entry, hasValues bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSuffix(sc.Bytes(), []byte("\r"))
		if len(line) == 0 {
			continue
		}
		e := entry{}
		if key, value, ok := bytes.Cut(line, []byte("\t")); ok {
			v, err := strconv.Atoi(string(value))
			if err != nil {
				return nil, false, fmt.Errorf("line %d: bad value %q: %w", lineNo, value, err)
			}
			e.key, e.value = bytes.Clone(key), v
			hasValues = true
		} else {
			e.key = bytes.Clone(line)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, false, err
	}
	return entries, hasValues, nil
}

func run() error {
	verify := flag.Bool("verify", true, "map the saved array and check every key")
	offset := flag.Int64("offset", 0, "byte offset to write at, keeping the bytes before it")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] LEXICON OUTPUT\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		return errors.New("expected LEXICON and OUTPUT")
	}
	lexiconPath, outputPath := flag.Arg(0), flag.Arg(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	entries, hasValues, err := readLexicon(lexiconPath)
	if err != nil {
		return fmt.Errorf("read lexicon: %w", err)
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return bytes.Compare(a.key, b.key)
	})

	keys := make([][]byte, len(entries))
	var values []int
	if hasValues {
		values = make([]int, len(entries))
	}
	for i, e := range entries {
		keys[i] = e.key
		if hasValues {
			values[i] = e.value
		}
	}

	opts := []darts.BuildOption{}
	if hasValues {
		opts = append(opts, darts.WithValues(values))
	}
	if !*quiet {
		lastPrint := time.Now()
		opts = append(opts, darts.WithProgress(func(current, total int) bool {
			if current == total || time.Since(lastPrint) > 100*time.Millisecond {
				fmt.Fprintf(os.Stderr, "\rbuilding: %d/%d", current, total)
				lastPrint = time.Now()
			}
			return true
		}))
	}

	start := time.Now()
	da, err := darts.Build(ctx, keys, opts...)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	defer da.Close()

	mode := darts.SaveTruncate
	if *offset > 0 {
		mode = darts.SaveUpdate
	}
	if err := da.Save(outputPath, *offset, mode); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	stats := da.Stats()

	if *verify {
		mapped, err := darts.OpenMapped(outputPath, *offset, int64(stats.TotalSize))
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		defer mapped.Close()
		if mapped.Checksum() != stats.Checksum {
			return fmt.Errorf("verify: checksum %016x, want %016x", mapped.Checksum(), stats.Checksum)
		}
		if err := mapped.VerifyKeys(ctx, uniqueKeys(keys), nil, 0); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
	}

	fmt.Printf("keys:     %d\n", len(keys))
	fmt.Printf("units:    %d\n", stats.NumUnits)
	fmt.Printf("size:     %d bytes\n", stats.TotalSize)
	fmt.Printf("checksum: %016x\n", stats.Checksum)
	fmt.Printf("time:     %.3f sec\n", time.Since(start).Seconds())
	return nil
}

// uniqueKeys drops repeated keys from a sorted slice.
func uniqueKeys(keys [][]byte) [][]byte {
	return slices.CompactFunc(slices.Clone(keys), bytes.Equal)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mkdarts: %v\n", err)
		os.Exit(1)
	}
}
