// Package unit implements the 32-bit cell of the double array.
//
// A unit is either a node unit or a value unit, distinguished by bit 31.
//
//	Node unit:
//	  bits 0-7    label (the check byte)
//	  bit  8      has-leaf flag
//	  bit  9      offset extension flag
//	  bits 10-31  offset (shifted left by 8 when the extension flag is set)
//
//	Value unit:
//	  bit  31     always set
//	  bits 0-30   value
//
// A state's value lives in its '\0' child, so a unit read through a parent
// whose has-leaf flag is set is interpreted as a value unit and never as a
// transition base.
package unit

import (
	"encoding/binary"

	darterrors "github.com/tamirms/darts/errors"
)

// Size is the width of a unit in bytes.
const Size = 4

const (
	valueFlag     = uint32(1) << 31
	hasLeafFlag   = uint32(1) << 8
	extensionFlag = uint32(1) << 9
	labelMask     = uint32(0xFF)

	// MaxValue is the largest value a value unit can hold.
	MaxValue = int(valueFlag - 1)

	// MaxOffset is the exclusive upper bound of encodable offsets.
	MaxOffset = uint32(1) << 29

	// extendedOffset is the first offset that needs the extension flag.
	extendedOffset = uint32(1) << 21
)

// Unit is one cell of the double array.
type Unit uint32

// HasLeaf reports whether the state owning this unit is accepting.
func (u Unit) HasLeaf() bool {
	return uint32(u)&hasLeafFlag != 0
}

// Value returns the payload of a value unit.
func (u Unit) Value() int {
	return int(uint32(u) &^ valueFlag)
}

// Label returns the check byte. Value units keep bit 31 so that they never
// compare equal to a byte label.
func (u Unit) Label() uint32 {
	return uint32(u) & (valueFlag | labelMask)
}

// Offset returns the relative offset used to reach the unit's children.
func (u Unit) Offset() uint32 {
	return (uint32(u) >> 10) << ((uint32(u) & extensionFlag) >> 6)
}

// SetHasLeaf sets or clears the has-leaf flag.
func (u *Unit) SetHasLeaf(hasLeaf bool) {
	if hasLeaf {
		*u |= Unit(hasLeafFlag)
	} else {
		*u &^= Unit(hasLeafFlag)
	}
}

// SetValue turns u into a value unit. v must not exceed MaxValue.
func (u *Unit) SetValue(v uint32) {
	*u = Unit(v | valueFlag)
}

// SetLabel replaces the check byte.
func (u *Unit) SetLabel(label byte) {
	*u = (*u &^ Unit(labelMask)) | Unit(label)
}

// SetOffset replaces the offset, keeping label and has-leaf.
// Offsets of 2^21 and above must have their low 8 bits clear.
func (u *Unit) SetOffset(offset uint32) error {
	if offset >= MaxOffset {
		return darterrors.ErrOffsetTooLarge
	}
	*u &= Unit(valueFlag | hasLeafFlag | labelMask)
	if offset < extendedOffset {
		*u |= Unit(offset << 10)
	} else {
		*u |= Unit((offset << 2) | extensionFlag)
	}
	return nil
}

// Encode builds a node unit.
func Encode(offset uint32, label byte, hasLeaf bool) (Unit, error) {
	var u Unit
	if err := u.SetOffset(offset); err != nil {
		return 0, err
	}
	u.SetLabel(label)
	u.SetHasLeaf(hasLeaf)
	return u, nil
}

// EncodeValue builds a value unit.
func EncodeValue(v uint32) Unit {
	var u Unit
	u.SetValue(v)
	return u
}

// Load reads the i-th unit of a little-endian unit array.
func Load(data []byte, i int) Unit {
	return Unit(binary.LittleEndian.Uint32(data[i*Size:]))
}

// Put writes u as the i-th unit of a little-endian unit array.
func Put(data []byte, i int, u Unit) {
	binary.LittleEndian.PutUint32(data[i*Size:], uint32(u))
}

// Marshal serializes units into a freshly allocated byte slice.
func Marshal(units []Unit) []byte {
	data := make([]byte, len(units)*Size)
	for i, u := range units {
		Put(data, i, u)
	}
	return data
}
