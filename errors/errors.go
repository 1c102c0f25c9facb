// Package errors defines all exported error sentinels for the darts library.
//
// This is the single source of truth for error values. Both the top-level
// darts package and the internal construction packages import from here,
// ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Build errors
var (
	ErrInvalidValue = errors.New("darts: value must be in [0, 2^31)")
	ErrInvalidKey   = errors.New("darts: key is empty or contains a NUL byte")
	ErrBuildFailed  = errors.New("darts: failed to place automaton into double array")
	ErrAborted      = errors.New("darts: build aborted")
)

// Construction errors
var (
	ErrOffsetTooLarge = errors.New("darts: unit offset exceeds encodable range")
)

// Store errors
var (
	ErrIO             = errors.New("darts: i/o failure")
	ErrTruncatedArray = errors.New("darts: array length is not a multiple of the unit size")
	ErrNotBuilt       = errors.New("darts: double array is empty")
)

// Verification errors
var (
	ErrKeyMismatch = errors.New("darts: key lookup does not match the expected value")
)
