package darts

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	darterrors "github.com/tamirms/darts/errors"
)

// verifyChunkSize is the number of keys a worker checks between context
// checks.
const verifyChunkSize = 4096

// VerifyKeys checks that every key exact-matches with its full length and,
// when values is non-nil, with values[i]. Keys are split across workers
// goroutines (GOMAXPROCS when workers <= 0) that search da concurrently.
//
// keys should be the accepted key set: a duplicate or out-of-order key that
// Build skipped carries the first occurrence's value, not its own.
func (da *DoubleArray) VerifyKeys(ctx context.Context, keys [][]byte, values []int, workers int) error {
	if values != nil && len(values) != len(keys) {
		return fmt.Errorf("%w: got %d values for %d keys", darterrors.ErrInvalidValue, len(values), len(keys))
	}
	if da.Size() == 0 && len(keys) > 0 {
		return darterrors.ErrNotBuilt
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(keys); start += verifyChunkSize {
		end := min(start+verifyChunkSize, len(keys))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				r := da.ExactMatch(keys[i])
				if r.Value == NoValue || r.Length != len(keys[i]) {
					return fmt.Errorf("%w: keys[%d] %q not found", darterrors.ErrKeyMismatch, i, keys[i])
				}
				if values != nil && r.Value != values[i] {
					return fmt.Errorf("%w: keys[%d] %q = %d, want %d",
						darterrors.ErrKeyMismatch, i, keys[i], r.Value, values[i])
				}
			}
			return nil
		})
	}
	return g.Wait()
}
