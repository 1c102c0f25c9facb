package darts

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/unit"
)

// BufferKind tells who owns the unit array behind a DoubleArray.
type BufferKind uint8

const (
	// BufferNone means the array is empty.
	BufferNone BufferKind = iota
	// BufferOwned is a heap buffer produced by Build or Open.
	BufferOwned
	// BufferBorrowed is caller memory installed with SetArray. It is never
	// modified or released by the DoubleArray.
	BufferBorrowed
	// BufferMapped is a read-only memory mapping created by OpenMapped and
	// released by Clear.
	BufferMapped
)

func (k BufferKind) String() string {
	switch k {
	case BufferNone:
		return "none"
	case BufferOwned:
		return "owned"
	case BufferBorrowed:
		return "borrowed"
	case BufferMapped:
		return "mapped"
	default:
		return fmt.Sprintf("BufferKind(%d)", uint8(k))
	}
}

// DoubleArray is a static automaton stored as a flat array of units.
//
// Thread Safety:
//   - Searches are safe for concurrent use
//   - Build, Open, OpenMapped, SetArray, Clear and Close replace the buffer
//     and must not run concurrently with searches
type DoubleArray struct {
	data []byte
	kind BufferKind
	mmap mmap.MMap // set only when kind == BufferMapped
}

// Stats describes the array currently held by a DoubleArray.
type Stats struct {
	NumUnits  int
	TotalSize int
	Buffer    BufferKind
	Checksum  uint64
}

// New returns an empty DoubleArray. Searches on it report no match.
func New() *DoubleArray {
	return &DoubleArray{}
}

// UnitSize returns the width of a unit in bytes.
func (da *DoubleArray) UnitSize() int {
	return unit.Size
}

// Size returns the number of units.
func (da *DoubleArray) Size() int {
	return len(da.data) / unit.Size
}

// NonzeroSize returns the number of units. Counting units that are not
// zero would need a full scan, so it reports Size.
func (da *DoubleArray) NonzeroSize() int {
	return da.Size()
}

// TotalSize returns the size of the array in bytes.
func (da *DoubleArray) TotalSize() int {
	return da.Size() * unit.Size
}

// Array returns the raw little-endian unit array. The slice must not be
// modified; it stays valid until the buffer is replaced or cleared.
func (da *DoubleArray) Array() []byte {
	return da.data
}

// Buffer reports who owns the current array.
func (da *DoubleArray) Buffer() BufferKind {
	return da.kind
}

// Checksum returns the xxHash64 of the unit array, 0 for an empty array.
func (da *DoubleArray) Checksum() uint64 {
	if len(da.data) == 0 {
		return 0
	}
	return xxhash.Sum64(da.data)
}

// Stats returns statistics for the array.
func (da *DoubleArray) Stats() Stats {
	return Stats{
		NumUnits:  da.Size(),
		TotalSize: da.TotalSize(),
		Buffer:    da.kind,
		Checksum:  da.Checksum(),
	}
}

// SetArray installs caller-owned memory as the unit array, releasing any
// owned buffer first. The caller keeps ownership of data and must not
// modify it while the DoubleArray is in use.
func (da *DoubleArray) SetArray(data []byte) error {
	if len(data)%unit.Size != 0 {
		return fmt.Errorf("%w: %d bytes", darterrors.ErrTruncatedArray, len(data))
	}
	if err := da.Clear(); err != nil {
		return err
	}
	if len(data) > 0 {
		da.data = data
		da.kind = BufferBorrowed
	}
	return nil
}

// Clear releases an owned buffer or mapping and leaves da empty. Borrowed
// memory is only forgotten. Clear is idempotent.
func (da *DoubleArray) Clear() error {
	var err error
	if da.mmap != nil {
		if unmapErr := da.mmap.Unmap(); unmapErr != nil {
			err = fmt.Errorf("%w: unmap: %w", darterrors.ErrIO, unmapErr)
		}
		da.mmap = nil
	}
	da.data = nil
	da.kind = BufferNone
	return err
}

// Close releases resources. It is equivalent to Clear.
func (da *DoubleArray) Close() error {
	return da.Clear()
}

// replace installs a new buffer after releasing the old one.
func (da *DoubleArray) replace(data []byte, kind BufferKind, mm mmap.MMap) error {
	if err := da.Clear(); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	da.data = data
	da.kind = kind
	da.mmap = mm
	return nil
}
