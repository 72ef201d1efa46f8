package emit

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// componentFromMask returns the single component selected by mask.
func componentFromMask(mask uint8) (uint8, error) {
	if bits.OnesCount8(mask) != 1 {
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidMask, mask)
	}
	return uint8(bits.TrailingZeros8(mask)), nil
}

// Scalarize derives the scalar encoding of a vector ALU instruction
// scheduled on a scalar unit. The write mask selects the one output
// component; each source reads the component its swizzle maps there.
func Scalarize(ins *mir.Instruction) (isa.ScalarALU, error) {
	v := ins.ALU
	isInt := v.Op.IsInteger()
	isFull := ins.RegMode == isa.RegMode32

	comp, err := componentFromMask(ins.Mask)
	if err != nil {
		return isa.ScalarALU{}, err
	}
	if comp >= 4 {
		return isa.ScalarALU{}, fmt.Errorf("%w: output component %d", ErrOutOfRange, comp)
	}

	s := isa.ScalarALU{
		Op:              v.Op,
		Outmod:          v.Outmod,
		OutputFull:      isFull,
		OutputComponent: comp,
	}

	// Full components are physically spaced out.
	if isFull {
		s.OutputComponent <<= 1
	}

	s.Src1, err = VectorToScalarSource(v.Src1, isInt, isFull, ins.Swizzle[0][comp])
	if err != nil {
		return isa.ScalarALU{}, fmt.Errorf("src1: %w", err)
	}

	if ins.HasInlineConstant {
		s.Src2 = InlineConstant(ins.InlineConstant)
		return s, nil
	}

	s.Src2, err = VectorToScalarSource(v.Src2, isInt, isFull, ins.Swizzle[1][comp])
	if err != nil {
		return isa.ScalarALU{}, fmt.Errorf("src2: %w", err)
	}
	return s, nil
}
