//go:build linux

package darts

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserveSpace pre-allocates disk blocks for [offset, offset+size) so a
// full disk fails the save up front rather than midway.
// Best-effort: filesystems without fallocate support are left to the write
// itself to extend the file.
func reserveSpace(file *os.File, offset, size int64) {
	if size <= 0 {
		return
	}
	_ = unix.Fallocate(int(file.Fd()), 0, offset, size)
}

// fadviseSequential hints that [offset, offset+length) is read once, front
// to back.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}

// prefaultRegion asks the kernel to read ahead a freshly mapped unit array
// so the first searches do not stall on page faults.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
}
