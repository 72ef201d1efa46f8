package emit

import (
	"fmt"

	"github.com/gogpu/midgard/isa"
)

// VectorToScalarSource re-encodes a vector source descriptor as a 6-bit
// scalar source reading a single component.
//
// For full-precision operations the full bit is the complement of the
// source's half flag, and full sources address physical lanes twice as wide,
// so the component index is doubled. Reduced-precision operations on
// subdivided sources would need 8-bit scalar lanes, which do not exist.
func VectorToScalarSource(src isa.VectorSrc, isInt, isFull bool, component uint8) (uint16, error) {
	var s isa.ScalarSrc

	switch {
	case isFull:
		s.Full = !src.Half
	case !src.Half:
		s.Full = false
	default:
		return 0, fmt.Errorf("%w: reduced-precision scalar on a subdivided source", ErrUnsupportedPrecisionCombination)
	}

	if s.Full {
		if component > 3 {
			return 0, fmt.Errorf("%w: full-precision component %d", ErrOutOfRange, component)
		}
		s.Component = component << 1
	} else {
		if component > 7 {
			return 0, fmt.Errorf("%w: component %d", ErrOutOfRange, component)
		}
		s.Component = component
	}

	if isInt {
		// TODO: integer sources need the extend/shift modifiers packed
		// once the scalar integer modifier layout is pinned down.
		if src.Mod != 0 {
			return 0, fmt.Errorf("%w: integer source modifier 0x%x", ErrUnsupportedOperation, src.Mod)
		}
	} else {
		s.Abs = src.Mod&isa.FloatModAbs != 0
		s.Negate = src.Mod&isa.FloatModNeg != 0
	}

	return s.Pack() & (1<<isa.ScalarSrcBits - 1), nil
}

// InlineConstant permutes the low 12 bits of an inline constant into the
// layout the scalar src2 field expects. Only 11 bits survive packing into
// the field; bit 11 of the result repeats bit 5 of c.
func InlineConstant(c uint16) uint16 {
	lower := c & (1<<12 - 1)

	var imm uint16
	imm |= (lower >> 9) & 3
	imm |= (lower >> 6) & 4
	imm |= (lower >> 2) & 0x38
	imm |= (lower & 63) << 6
	return imm
}

// VectorInlineConstant places the low 11 bits of an inline constant into
// the 13-bit vector src2 field.
func VectorInlineConstant(c uint16) uint16 {
	lower := c & (1<<12 - 1)
	imm := (lower>>8)&7 | (lower&0xFF)<<3
	return imm << 2
}
