package emit

import (
	"errors"
	"fmt"

	"github.com/gogpu/midgard/isa"
)

// Encoding failures. Each one means an upstream stage handed the encoder
// input it cannot represent; none is recoverable by the encoder.
var (
	ErrInvalidMask                     = errors.New("write mask does not select exactly one component")
	ErrOutOfRange                      = errors.New("value out of range")
	ErrSwizzleHalfMismatch             = errors.New("swizzle mixes low and high halves")
	ErrMaskDuplicationViolation        = errors.New("16-bit write mask halves differ")
	ErrUnsupportedPrecisionCombination = errors.New("unsupported precision combination")
	ErrUnsupportedOperation            = errors.New("unsupported operation")
	ErrUnsupportedRegisterWidth        = errors.New("unsupported register width")
	ErrUnknownBundleKind               = errors.New("unknown bundle kind")
	ErrInstructionCount                = errors.New("illegal instruction count for bundle")
	ErrBundleSizeMismatch              = errors.New("bundle size does not match tag")
)

// EncodeError reports which bundle and instruction failed to encode.
// Instruction is -1 when the failure concerns the bundle as a whole.
type EncodeError struct {
	Bundle      int
	Instruction int
	Tag         isa.Tag
	Err         error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if e.Instruction >= 0 {
		return fmt.Sprintf("bundle %d (%v), instruction %d: %v", e.Bundle, e.Tag, e.Instruction, e.Err)
	}
	return fmt.Sprintf("bundle %d (%v): %v", e.Bundle, e.Tag, e.Err)
}

// Unwrap returns the underlying error so errors.Is matches the sentinels.
func (e *EncodeError) Unwrap() error { return e.Err }
