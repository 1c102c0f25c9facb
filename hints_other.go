//go:build !linux && !darwin

package darts

import "os"

// File and mapping hints are no-ops on other platforms.

func reserveSpace(file *os.File, offset, size int64) {}

func fadviseSequential(fd int, offset, length int64) {}

func prefaultRegion(data []byte) {}
