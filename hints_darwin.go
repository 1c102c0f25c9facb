//go:build darwin

package darts

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserveSpace pre-allocates the part of [offset, offset+size) beyond end
// of file with F_PREALLOCATE. Errors are ignored; the write extends the file.
func reserveSpace(file *os.File, offset, size int64) {
	stat, err := file.Stat()
	if err != nil {
		return
	}
	grow := offset + size - stat.Size()
	if grow <= 0 {
		return
	}
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  grow,
	}
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
}

// fadviseSequential is a no-op: macOS has no posix_fadvise.
func fadviseSequential(fd int, offset, length int64) {}

// prefaultRegion asks the kernel to read ahead a freshly mapped unit array.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
}
