package emit

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// PackSwizzleALU packs the swizzles of both sources of a vector ALU
// instruction into copies of its source descriptors. The second source is
// left untouched when the instruction carries an inline constant.
func PackSwizzleALU(ins *mir.Instruction) (src1, src2 isa.VectorSrc, err error) {
	srcs := [2]isa.VectorSrc{ins.ALU.Src1, ins.ALU.Src2}

	n := 2
	if ins.HasInlineConstant {
		n = 1
	}

	for i := 0; i < n; i++ {
		if ins.RegMode == isa.RegMode64 {
			packed, err := packSwizzle64(ins.Swizzle[i])
			if err != nil {
				return src1, src2, fmt.Errorf("src%d: %w", i+1, err)
			}
			srcs[i].Swizzle = packed
			continue
		}

		packed, upper, err := packSwizzleHalves(ins.Swizzle[i], ins.Mask, ins.RegMode)
		if err != nil {
			return src1, src2, fmt.Errorf("src%d: %w", i+1, err)
		}
		srcs[i].Swizzle = packed
		srcs[i].RepHigh = upper
	}

	return srcs[0], srcs[1], nil
}

// packSwizzleHalves packs a swizzle for 8, 16 and 32-bit lanes. Selectors
// 4..7 address the upper half of subdivided lanes; every written component
// must agree on the half, which is then flagged once for the whole source.
func packSwizzleHalves(swizzle [4]uint8, mask uint8, mode isa.RegMode) (packed uint8, upper bool, err error) {
	written := mask & 0xF

	first := 0
	if written != 0 {
		first = bits.TrailingZeros8(written)
	}
	upper = swizzle[first] > 3

	if upper && written != 0 && mode > isa.RegMode16 {
		return 0, false, fmt.Errorf("%w: upper-half swizzle on %v lanes", ErrUnsupportedRegisterWidth, mode)
	}

	for c := 0; c < 4; c++ {
		v := swizzle[c]

		if written&(1<<c) != 0 {
			if v > 7 {
				return 0, false, fmt.Errorf("%w: swizzle selector %d", ErrOutOfRange, v)
			}
			if (v > 3) != upper {
				return 0, false, fmt.Errorf("%w: component %d", ErrSwizzleHalfMismatch, c)
			}
		}

		packed |= (v & 3) << (2 * c)
	}

	return packed, upper, nil
}

// packSwizzle64 packs a swizzle for 64-bit lanes. Each 64-bit component
// spans two 32-bit selectors, so component 0 becomes xy and 1 becomes zw.
func packSwizzle64(swizzle [4]uint8) (uint8, error) {
	var packed uint8
	for i := 0; i < 2; i++ {
		if swizzle[i] > 1 {
			return 0, fmt.Errorf("%w: 64-bit swizzle selector %d", ErrOutOfRange, swizzle[i])
		}

		a := uint8(1<<2 | 0)
		if swizzle[i]&1 != 0 {
			a = 3<<2 | 2
		}
		packed |= a << (4 * i)
	}
	return packed, nil
}

// PackSwizzleLoadStore packs a load/store swizzle. Load/store operates on
// whole vec4 registers, so selectors are limited to 0..3.
func PackSwizzleLoadStore(swizzle [4]uint8) (uint8, error) {
	var packed uint8
	for c, v := range swizzle {
		if v > 3 {
			return 0, fmt.Errorf("%w: load/store swizzle selector %d", ErrOutOfRange, v)
		}
		packed |= v << (2 * c)
	}
	return packed, nil
}

// PackSwizzleTexture packs the coordinate swizzle and the in-register
// parameter swizzle of a texture instruction.
func PackSwizzleTexture(swizzle [2][4]uint8) (coord, inReg uint8, err error) {
	coord, err = PackSwizzleLoadStore(swizzle[0])
	if err != nil {
		return 0, 0, fmt.Errorf("coordinate: %w", err)
	}
	inReg, err = PackSwizzleLoadStore(swizzle[1])
	if err != nil {
		return 0, 0, fmt.Errorf("in-register: %w", err)
	}
	return coord, inReg, nil
}
