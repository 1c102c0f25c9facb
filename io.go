package darts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	darterrors "github.com/tamirms/darts/errors"
	"github.com/tamirms/darts/internal/unit"
)

// SaveMode selects how Save treats an existing file.
type SaveMode int

const (
	// SaveTruncate replaces the file: the bytes before the offset are kept,
	// everything after the array is dropped. The replacement is atomic.
	SaveTruncate SaveMode = iota
	// SaveUpdate writes at the given offset and keeps all other bytes.
	SaveUpdate
	// SaveAppend writes at the end of the file; the offset is ignored.
	SaveAppend
)

func (m SaveMode) String() string {
	switch m {
	case SaveTruncate:
		return "truncate"
	case SaveUpdate:
		return "update"
	case SaveAppend:
		return "append"
	default:
		return fmt.Sprintf("SaveMode(%d)", int(m))
	}
}

// Open reads a unit array from path into a new DoubleArray.
// See (*DoubleArray).Open.
func Open(path string, offset, size int64) (*DoubleArray, error) {
	da := New()
	if err := da.Open(path, offset, size); err != nil {
		return nil, err
	}
	return da, nil
}

// Open reads size bytes at offset from path into a newly owned buffer.
// A size of 0 reads to the end of the file. On failure da is unchanged.
func (da *DoubleArray) Open(path string, offset, size int64) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open: %w", darterrors.ErrIO, err)
	}
	defer file.Close()

	size, err = regionSize(file, offset, size)
	if err != nil {
		return err
	}
	fadviseSequential(int(file.Fd()), offset, size)
	return da.LoadFrom(file, offset, size)
}

// LoadFrom reads size bytes at offset from r into a newly owned buffer.
// On failure da is unchanged.
func (da *DoubleArray) LoadFrom(r io.ReaderAt, offset, size int64) error {
	if offset < 0 || size < 0 {
		return fmt.Errorf("%w: invalid region offset=%d size=%d", darterrors.ErrIO, offset, size)
	}
	if size%unit.Size != 0 {
		return fmt.Errorf("%w: %w: %d bytes", darterrors.ErrIO, darterrors.ErrTruncatedArray, size)
	}

	buf := make([]byte, size)
	n, err := r.ReadAt(buf, offset)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: read %d of %d bytes at offset %d: %w", darterrors.ErrIO, n, size, offset, err)
	}
	return da.replace(buf, BufferOwned, nil)
}

// Save writes the unit array to path at offset. Exactly TotalSize bytes
// are written and the bytes before offset are kept.
//
// SaveTruncate builds the new file next to path and renames it into place,
// so a failed save leaves the old file untouched and existing mappings of
// it stay valid. SaveUpdate and SaveAppend write in place; a failure there
// can leave a partial array in the file.
func (da *DoubleArray) Save(path string, offset int64, mode SaveMode) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", darterrors.ErrIO, offset)
	}

	var flags int
	switch mode {
	case SaveTruncate:
		return da.saveReplace(path, offset)
	case SaveUpdate:
		flags = os.O_WRONLY | os.O_CREATE
	case SaveAppend:
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return fmt.Errorf("%w: unknown save mode %v", darterrors.ErrIO, mode)
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open: %w", darterrors.ErrIO, err)
	}

	var writeErr error
	if mode == SaveAppend {
		_, writeErr = da.WriteTo(file)
	} else {
		reserveSpace(file, offset, int64(da.TotalSize()))
		writeErr = da.StoreTo(file, offset)
	}
	if closeErr := file.Close(); closeErr != nil {
		closeErr = fmt.Errorf("%w: close: %w", darterrors.ErrIO, closeErr)
		return errors.Join(writeErr, closeErr)
	}
	return writeErr
}

// saveReplace writes the prefix of the current file and the unit array to
// a temporary file in the same directory, then renames it over path.
func (da *DoubleArray) saveReplace(path string, offset int64) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", darterrors.ErrIO, path)
		}
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create: %w", darterrors.ErrIO, err)
	}
	tmpPath := tmp.Name()

	err = da.writeReplacement(tmp, path, offset, perm)
	if closeErr := tmp.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("%w: close: %w", darterrors.ErrIO, closeErr))
	}
	if err == nil {
		if renameErr := os.Rename(tmpPath, path); renameErr != nil {
			err = fmt.Errorf("%w: rename: %w", darterrors.ErrIO, renameErr)
		}
	}
	if err != nil {
		return errors.Join(err, ignoreNotExist(os.Remove(tmpPath)))
	}
	return nil
}

func (da *DoubleArray) writeReplacement(tmp *os.File, path string, offset int64, perm os.FileMode) error {
	if offset > 0 {
		if err := copyPrefix(tmp, path, offset); err != nil {
			return err
		}
	}
	reserveSpace(tmp, offset, int64(da.TotalSize()))
	if err := da.StoreTo(tmp, offset); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("%w: chmod: %w", darterrors.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", darterrors.ErrIO, err)
	}
	return nil
}

// copyPrefix copies up to n leading bytes of the file at path into dst.
// A missing or shorter file leaves the rest of the prefix as a hole.
func copyPrefix(dst *os.File, path string, n int64) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: open: %w", darterrors.ErrIO, err)
	}
	defer src.Close()

	if _, err := io.CopyN(dst, src, n); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: copy prefix: %w", darterrors.ErrIO, err)
	}
	return nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// StoreTo writes the unit array to w at offset.
func (da *DoubleArray) StoreTo(w io.WriterAt, offset int64) error {
	if len(da.data) == 0 {
		return nil
	}
	if _, err := w.WriteAt(da.data, offset); err != nil {
		return fmt.Errorf("%w: write: %w", darterrors.ErrIO, err)
	}
	return nil
}

// WriteTo writes the unit array to w. It implements io.WriterTo.
func (da *DoubleArray) WriteTo(w io.Writer) (int64, error) {
	if len(da.data) == 0 {
		return 0, nil
	}
	n, err := w.Write(da.data)
	if err != nil {
		return int64(n), fmt.Errorf("%w: write: %w", darterrors.ErrIO, err)
	}
	return int64(n), nil
}

// regionSize resolves a size of 0 to the rest of the file and checks that
// the region lies inside it.
func regionSize(file *os.File, offset, size int64) (int64, error) {
	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat: %w", darterrors.ErrIO, err)
	}
	if offset < 0 || size < 0 || offset > stat.Size() {
		return 0, fmt.Errorf("%w: region offset=%d size=%d outside file of %d bytes",
			darterrors.ErrIO, offset, size, stat.Size())
	}
	if size == 0 {
		size = stat.Size() - offset
	}
	if offset+size > stat.Size() {
		return 0, fmt.Errorf("%w: region offset=%d size=%d outside file of %d bytes: %w",
			darterrors.ErrIO, offset, size, stat.Size(), io.ErrUnexpectedEOF)
	}
	return size, nil
}
