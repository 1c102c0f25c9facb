package darts

import (
	"bytes"
	"context"
	"fmt"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/arrange"
	"github.com/tamirms/darts/internal/dawg"
	"github.com/tamirms/darts/internal/unit"
)

// contextCheckInterval is how often to check for context cancellation
// while inserting keys.
const contextCheckInterval = 10000

// Build constructs a new DoubleArray from keys.
//
// Keys must be sorted in ascending byte order. A key that is not greater
// than the previously accepted key is skipped, so the first of a run of
// duplicates wins. Keys must be non-empty and must not contain 0x00.
//
// Usage:
//
//	da, err := darts.Build(ctx, keys, darts.WithValues(values),
//	    darts.WithProgress(func(cur, total int) bool {
//	        fmt.Printf("\r%d/%d", cur, total)
//	        return true
//	    }))
func Build(ctx context.Context, keys [][]byte, opts ...BuildOption) (*DoubleArray, error) {
	da := New()
	if err := da.Build(ctx, keys, opts...); err != nil {
		return nil, err
	}
	return da, nil
}

// Build replaces the contents of da with an array built from keys. On
// failure da is left empty.
//
// Build must not run concurrently with searches on da. Prefer the
// package-level Build, which publishes a fresh instance.
func (da *DoubleArray) Build(ctx context.Context, keys [][]byte, opts ...BuildOption) error {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := da.Clear(); err != nil {
		return err
	}

	units, err := build(ctx, keys, cfg)
	if err != nil {
		return err
	}

	da.data = unit.Marshal(units)
	da.kind = BufferOwned
	return nil
}

func build(ctx context.Context, keys [][]byte, cfg *buildConfig) ([]unit.Unit, error) {
	if err := validateInput(keys, cfg.values); err != nil {
		return nil, err
	}

	p := &progressTracker{ctx: ctx, fn: cfg.progress}
	if err := p.checkContext(); err != nil {
		return nil, err
	}

	total := len(keys) + 1

	var units []unit.Unit
	var err error
	if cfg.values != nil {
		units, err = buildDAWG(keys, cfg.values, p)
	} else {
		units, err = buildTrie(keys, p)
	}
	if err != nil {
		return nil, err
	}

	if err := p.report(total, total); err != nil {
		return nil, err
	}
	return units, nil
}

// validateInput rejects bad keys and values before anything is allocated.
func validateInput(keys [][]byte, values []int) error {
	if values != nil {
		if len(values) != len(keys) {
			return fmt.Errorf("%w: got %d values for %d keys", darterrors.ErrInvalidValue, len(values), len(keys))
		}
		for i, v := range values {
			if v < 0 || v > unit.MaxValue {
				return fmt.Errorf("%w: values[%d] = %d", darterrors.ErrInvalidValue, i, v)
			}
		}
	} else if len(keys) > unit.MaxValue+1 {
		return fmt.Errorf("%w: %d keys exceed the implicit value range", darterrors.ErrInvalidValue, len(keys))
	}

	for i, key := range keys {
		if len(key) == 0 || bytes.IndexByte(key, 0) >= 0 {
			return fmt.Errorf("%w: keys[%d]", darterrors.ErrInvalidKey, i)
		}
	}
	return nil
}

// buildDAWG minimizes the keys and places the resulting graph.
func buildDAWG(keys [][]byte, values []int, p *progressTracker) ([]unit.Unit, error) {
	b := dawg.NewBuilder()
	total := len(keys) + 1
	for i, key := range keys {
		if _, err := b.Insert(key, uint32(values[i])); err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		if err := p.report(i+1, total); err != nil {
			return nil, err
		}
	}
	return arrange.FromGraph(b.Finish())
}

// buildTrie places the plain trie of the accepted keys. Each key keeps its
// index in the original input as its value.
func buildTrie(keys [][]byte, p *progressTracker) ([]unit.Unit, error) {
	ks := acceptSorted(keys)
	total := len(keys) + 1
	return arrange.FromKeyset(ks, func(current, _ int) error {
		return p.report(int(ks.index[current-1])+1, total)
	})
}

// sortedKeyset holds the strictly ascending subsequence of the input.
type sortedKeyset struct {
	keys  [][]byte
	index []uint32 // position of keys[i] in the original input
}

func acceptSorted(keys [][]byte) *sortedKeyset {
	ks := &sortedKeyset{
		keys:  make([][]byte, 0, len(keys)),
		index: make([]uint32, 0, len(keys)),
	}
	for i, key := range keys {
		if n := len(ks.keys); n > 0 && bytes.Compare(key, ks.keys[n-1]) <= 0 {
			continue
		}
		ks.keys = append(ks.keys, key)
		ks.index = append(ks.index, uint32(i))
	}
	return ks
}

func (ks *sortedKeyset) Len() int           { return len(ks.keys) }
func (ks *sortedKeyset) Key(i int) []byte   { return ks.keys[i] }
func (ks *sortedKeyset) Value(i int) uint32 { return ks.index[i] }

// progressTracker forwards progress to the caller's callback and polls the
// context every contextCheckInterval reports.
type progressTracker struct {
	ctx     context.Context
	fn      ProgressFunc
	counter int
}

func (p *progressTracker) report(current, total int) error {
	p.counter++
	if p.counter >= contextCheckInterval {
		p.counter = 0
		if err := p.checkContext(); err != nil {
			return err
		}
	}
	if p.fn != nil && !p.fn(current, total) {
		return darterrors.ErrAborted
	}
	return nil
}

func (p *progressTracker) checkContext() error {
	select {
	case <-p.ctx.Done():
		return fmt.Errorf("%w: %w", darterrors.ErrAborted, p.ctx.Err())
	default:
		return nil
	}
}
