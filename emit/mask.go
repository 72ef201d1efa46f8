package emit

import (
	"fmt"

	"github.com/gogpu/midgard/isa"
)

// expandMask replicates every logical bit of mask width times.
func expandMask(mask uint8, logical, width uint) uint8 {
	var out uint8
	for i := uint(0); i < logical; i++ {
		if mask&(1<<i) != 0 {
			out |= (1<<width - 1) << (i * width)
		}
	}
	return out
}

// ExpandMaskALU converts a logical write mask into the 8-bit physical
// vector ALU mask. 32-bit lanes span two mask bits and 64-bit lanes four;
// narrower lanes map one to one.
func ExpandMaskALU(mask uint8, mode isa.RegMode) (uint8, error) {
	switch mode {
	case isa.RegMode8, isa.RegMode16:
		return mask, nil
	case isa.RegMode32:
		if mask > 0xF {
			return 0, fmt.Errorf("%w: 32-bit write mask 0x%02x", ErrOutOfRange, mask)
		}
		return expandMask(mask, 4, 2), nil
	case isa.RegMode64:
		if mask > 0x3 {
			return 0, fmt.Errorf("%w: 64-bit write mask 0x%02x", ErrOutOfRange, mask)
		}
		return expandMask(mask, 2, 4), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnsupportedRegisterWidth, mode)
}

// PackMaskLoadStore converts a write mask into the 4-bit load/store mask.
//
// Load/store masks always address four 32-bit slots. A 64-bit lane covers
// two slots. 16-bit lanes come in pairs sharing one slot, so both halves
// of each pair must be masked identically.
func PackMaskLoadStore(mask uint8, mode isa.RegMode) (uint8, error) {
	switch mode {
	case isa.RegMode32:
		if mask > 0xF {
			return 0, fmt.Errorf("%w: 32-bit write mask 0x%02x", ErrOutOfRange, mask)
		}
		return mask, nil

	case isa.RegMode64:
		if mask > 0x3 {
			return 0, fmt.Errorf("%w: 64-bit write mask 0x%02x", ErrOutOfRange, mask)
		}
		return expandMask(mask, 2, 2), nil

	case isa.RegMode16:
		var packed uint8
		for i := 0; i < 4; i++ {
			u := mask >> (2 * i) & 1
			v := mask >> (2*i + 1) & 1
			if u != v {
				return 0, fmt.Errorf("%w: lane %d in mask 0x%02x", ErrMaskDuplicationViolation, i, mask)
			}
			packed |= u << i
		}
		return packed, nil
	}
	return 0, fmt.Errorf("%w: load/store mask for %v lanes", ErrUnsupportedRegisterWidth, mode)
}
