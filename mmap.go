package darts

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/unit"
)

// OpenMapped memory-maps a unit array from path into a new DoubleArray.
// See (*DoubleArray).OpenMapped.
func OpenMapped(path string, offset, size int64) (*DoubleArray, error) {
	da := New()
	if err := da.OpenMapped(path, offset, size); err != nil {
		return nil, err
	}
	return da, nil
}

// OpenMapped maps size bytes at offset from path read-only, without copying.
// A size of 0 maps to the end of the file. The file descriptor is closed
// before returning; the mapping lives until Clear or Close. On failure da
// is unchanged.
func (da *DoubleArray) OpenMapped(path string, offset, size int64) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open: %w", darterrors.ErrIO, err)
	}
	defer file.Close()

	size, err = regionSize(file, offset, size)
	if err != nil {
		return err
	}
	if size%unit.Size != 0 {
		return fmt.Errorf("%w: %w: %d bytes", darterrors.ErrIO, darterrors.ErrTruncatedArray, size)
	}
	if size == 0 {
		return da.Clear()
	}

	// mmap offsets must be page-aligned; map from the enclosing page.
	pageSize := int64(os.Getpagesize())
	aligned := offset - offset%pageSize
	delta := offset - aligned

	mm, err := mmap.MapRegion(file, int(delta+size), mmap.RDONLY, 0, aligned)
	if err != nil {
		return fmt.Errorf("%w: mmap: %w", darterrors.ErrIO, err)
	}
	prefaultRegion(mm)

	if err := da.replace(mm[delta:delta+size], BufferMapped, mm); err != nil {
		return errors.Join(err, mm.Unmap())
	}
	return nil
}
