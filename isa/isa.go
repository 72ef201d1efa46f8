// Package isa describes the Midgard instruction set at the bit level.
//
// Every fixed-size hardware word has a Go struct with one field per hardware
// field and a Pack method producing the exact little-endian bit layout the GPU
// fetches. Unpack functions are provided for the same words so that each field
// can be checked independently in tests.
//
// # Bundle Tags
//
// Every bundle starts with a 4-bit tag selecting its body layout:
//
//	0x1        break (no following bundle)
//	0x2..0x4   texture (vertex-fetch, normal, barrier)
//	0x5        load/store
//	0x8..0xB   ALU, 1..4 quadwords
//	0xC..0xF   ALU with writeout, 1..4 quadwords
package isa

import "fmt"

// Tag selects the layout of a bundle body.
type Tag uint8

// Bundle tags.
const (
	TagBreak           Tag = 0x1
	TagTexture4Vtx     Tag = 0x2
	TagTexture4        Tag = 0x3
	TagTexture4Barrier Tag = 0x4
	TagLoadStore4      Tag = 0x5
	TagALU4            Tag = 0x8
	TagALU8            Tag = 0x9
	TagALU12           Tag = 0xA
	TagALU16           Tag = 0xB
	TagALU4Writeout    Tag = 0xC
	TagALU8Writeout    Tag = 0xD
	TagALU12Writeout   Tag = 0xE
	TagALU16Writeout   Tag = 0xF
)

// IsALU reports whether the tag selects an ALU bundle, including writeout variants.
func (t Tag) IsALU() bool { return t >= TagALU4 && t <= TagALU16Writeout }

// IsTexture reports whether the tag selects a texture bundle.
func (t Tag) IsTexture() bool {
	return t == TagTexture4 || t == TagTexture4Vtx || t == TagTexture4Barrier
}

// IsLoadStore reports whether the tag selects a load/store bundle.
func (t Tag) IsLoadStore() bool { return t == TagLoadStore4 }

// Quadwords returns the number of 16-byte units an ALU bundle occupies.
// It returns 0 for non-ALU tags.
func (t Tag) Quadwords() int {
	if !t.IsALU() {
		return 0
	}
	return int(t&3) + 1
}

func (t Tag) String() string {
	switch t {
	case TagBreak:
		return "break"
	case TagTexture4Vtx:
		return "texture4_vtx"
	case TagTexture4:
		return "texture4"
	case TagTexture4Barrier:
		return "texture4_barrier"
	case TagLoadStore4:
		return "load_store4"
	}
	if t.IsALU() {
		name := fmt.Sprintf("alu%d", 4*t.Quadwords())
		if t >= TagALU4Writeout {
			name += "_writeout"
		}
		return name
	}
	return fmt.Sprintf("tag(0x%x)", uint8(t))
}

// RegMode is the lane width an instruction operates on.
type RegMode uint8

// Register modes, in hardware encoding order.
const (
	RegMode8  RegMode = 0
	RegMode16 RegMode = 1
	RegMode32 RegMode = 2
	RegMode64 RegMode = 3
)

// Bits returns the lane width in bits.
func (m RegMode) Bits() int { return 8 << m }

func (m RegMode) String() string {
	if m > RegMode64 {
		return fmt.Sprintf("regmode(%d)", uint8(m))
	}
	return fmt.Sprintf("%d-bit", m.Bits())
}

// Unit is a bitmask of ALU execution units within a bundle.
type Unit uint32

// ALU units.
const (
	UnitVMUL          Unit = 1 << 17
	UnitSADD          Unit = 1 << 19
	UnitVADD          Unit = 1 << 21
	UnitSMUL          Unit = 1 << 22
	UnitVLUT          Unit = 1 << 25
	UnitBranchCompact Unit = 1 << 26
	UnitBranch        Unit = 1 << 27

	UnitsAnyVector = UnitVMUL | UnitVADD | UnitVLUT
	UnitsAnyScalar = UnitSADD | UnitSMUL
)

// IsVector reports whether the unit set contains a vector pipe.
func (u Unit) IsVector() bool { return u&UnitsAnyVector != 0 }

// IsScalar reports whether the unit set contains a scalar pipe.
func (u Unit) IsScalar() bool { return u&UnitsAnyScalar != 0 }

// ALUOp is an 8-bit ALU opcode.
type ALUOp uint8

// A subset of ALU opcodes used by tools and tests. The encoder treats the
// opcode as opaque except for the integer/float class.
const (
	OpFAdd  ALUOp = 0x10
	OpFMul  ALUOp = 0x14
	OpFMin  ALUOp = 0x28
	OpFMax  ALUOp = 0x2C
	OpFMov  ALUOp = 0x30
	OpFRcp  ALUOp = 0xF0
	OpIAdd  ALUOp = 0x40
	OpISub  ALUOp = 0x46
	OpIMul  ALUOp = 0x58
	OpIMov  ALUOp = 0x7B
	OpIEq   ALUOp = 0xA0
	OpICsel ALUOp = 0xC1
)

// IsInteger reports whether op operates on integers. Integer and float
// operations interpret source modifier bits differently.
func (op ALUOp) IsInteger() bool {
	return (op >= 0x40 && op <= 0x7F) || (op >= 0xA0 && op <= 0xC1)
}

// Float source modifiers stored in VectorSrc.Mod.
const (
	FloatModAbs uint8 = 1 << 0
	FloatModNeg uint8 = 1 << 1
)

// TextureOp is a 6-bit texture opcode.
type TextureOp uint8

// Texture opcodes.
const (
	TextureOpNormal     TextureOp = 0x11
	TextureOpLOD        TextureOp = 0x12
	TextureOpTexelFetch TextureOp = 0x14
	TextureOpDFDX       TextureOp = 0x0D
	TextureOpDFDY       TextureOp = 0x1D
)

// LoadStoreNop is the 60-bit word occupying the second slot of a
// load/store record that carries a single instruction.
const LoadStoreNop uint64 = 3
