// Package darts implements a static double-array automaton for dictionary
// lookups over byte-string keys.
//
// A DoubleArray is built once from sorted keys and then queried by any
// number of goroutines. Each state occupies 32-bit units addressed by XOR
// arithmetic, so every transition is a single array read. With explicit
// values the keys are first minimized into a directed acyclic word graph,
// which shares identical suffix subtrees.
//
// # Basic Usage
//
// Building and saving a dictionary:
//
//	da, err := darts.Build(ctx, sortedKeys, darts.WithValues(values))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := da.Save("dict.da", 0, darts.SaveTruncate); err != nil {
//	    log.Fatal(err)
//	}
//
// Querying:
//
//	da, err := darts.OpenMapped("dict.da", 0, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer da.Close()
//
//	if r := da.ExactMatch([]byte("key")); r.Value != darts.NoValue {
//	    fmt.Println(r.Value)
//	}
//
//	var results [16]darts.Result
//	n := da.CommonPrefixSearch([]byte("keyword"), results[:])
//
// # File Format
//
// The file is a flat array of little-endian units with no header. Its length
// is not stored; callers supply it (or let Open read to the end of file).
//
// # Package Structure
//
//   - Public API: builder.go (Build), search.go (ExactMatch, CommonPrefixSearch,
//     LongestPrefixMatch, Traverse), doublearray.go (buffer ownership)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Persistence: io.go (Open, Save), mmap.go (OpenMapped)
//   - Construction: internal/dawg (minimization), internal/arrange (placement)
//   - Unit encoding: internal/unit
//   - Verification: verify.go (VerifyKeys)
//   - Platform: hints_*.go (OS-specific preallocation and read-ahead hints)
package darts
