package isa

import "encoding/binary"

// Sizes in bytes of ALU bundle components.
const (
	ControlWordSize    = 4
	RegInfoSize        = 2
	VectorALUSize      = 6
	ScalarALUSize      = 4
	BranchCompactSize  = 2
	BranchExtendedSize = 6
	EmbeddedConstSize  = 16
)

// VectorSrc is a 13-bit vector ALU source operand descriptor.
//
//	[0:2]  mod       float abs/neg or integer extend mode
//	[2]    rep_low
//	[3]    rep_high  swizzle selects the upper half of 16-bit lanes
//	[4]    half      source is subdivided into half-width lanes
//	[5:13] swizzle   four 2-bit component selectors
type VectorSrc struct {
	Mod     uint8
	RepLow  bool
	RepHigh bool
	Half    bool
	Swizzle uint8
}

// VectorSrcBits is the packed width of a VectorSrc.
const VectorSrcBits = 13

// Pack returns the 13-bit encoding of s.
func (s VectorSrc) Pack() uint16 {
	var w uint64
	w = put(w, 0, 2, uint64(s.Mod))
	w = putBool(w, 2, s.RepLow)
	w = putBool(w, 3, s.RepHigh)
	w = putBool(w, 4, s.Half)
	w = put(w, 5, 8, uint64(s.Swizzle))
	return uint16(w)
}

// UnpackVectorSrc decodes a 13-bit vector source.
func UnpackVectorSrc(v uint16) VectorSrc {
	w := uint64(v)
	return VectorSrc{
		Mod:     uint8(get(w, 0, 2)),
		RepLow:  getBool(w, 2),
		RepHigh: getBool(w, 3),
		Half:    getBool(w, 4),
		Swizzle: uint8(get(w, 5, 8)),
	}
}

// VectorALU is the 48-bit body of an instruction issued to a vector unit.
//
//	[0:8]   op
//	[8:10]  reg_mode
//	[10:23] src1
//	[23:36] src2 (or the low bits of an inline constant)
//	[36:38] dest_override
//	[38:40] outmod
//	[40:48] mask, one bit per physical byte pair
type VectorALU struct {
	Op           ALUOp
	RegMode      RegMode
	Src1         VectorSrc
	Src2         VectorSrc
	DestOverride uint8
	Outmod       uint8
	Mask         uint8
}

// Pack returns the 48-bit encoding of a in the low bits of a uint64.
//
// When raw2 is non-nil it replaces the packed Src2 field; instructions with
// an inline constant carry constant bits there instead of a source descriptor.
func (a VectorALU) Pack(raw2 *uint16) uint64 {
	src2 := a.Src2.Pack()
	if raw2 != nil {
		src2 = *raw2
	}
	var w uint64
	w = put(w, 0, 8, uint64(a.Op))
	w = put(w, 8, 2, uint64(a.RegMode))
	w = put(w, 10, 13, uint64(a.Src1.Pack()))
	w = put(w, 23, 13, uint64(src2))
	w = put(w, 36, 2, uint64(a.DestOverride))
	w = put(w, 38, 2, uint64(a.Outmod))
	w = put(w, 40, 8, uint64(a.Mask))
	return w
}

// AppendVectorALU appends the 6-byte body of a packed vector ALU word.
func AppendVectorALU(b []byte, packed uint64) []byte { return appendLE48(b, packed) }

// UnpackVectorALU decodes a 6-byte vector ALU body.
func UnpackVectorALU(b []byte) VectorALU {
	w := le48(b)
	return VectorALU{
		Op:           ALUOp(get(w, 0, 8)),
		RegMode:      RegMode(get(w, 8, 2)),
		Src1:         UnpackVectorSrc(uint16(get(w, 10, 13))),
		Src2:         UnpackVectorSrc(uint16(get(w, 23, 13))),
		DestOverride: uint8(get(w, 36, 2)),
		Outmod:       uint8(get(w, 38, 2)),
		Mask:         uint8(get(w, 40, 8)),
	}
}

// ScalarSrc is a 6-bit scalar ALU source operand.
//
//	[0]   abs
//	[1]   negate
//	[2]   full
//	[3:6] component
type ScalarSrc struct {
	Abs       bool
	Negate    bool
	Full      bool
	Component uint8
}

// ScalarSrcBits is the packed width of a ScalarSrc.
const ScalarSrcBits = 6

// Pack returns the 6-bit encoding of s.
func (s ScalarSrc) Pack() uint16 {
	var w uint64
	w = putBool(w, 0, s.Abs)
	w = putBool(w, 1, s.Negate)
	w = putBool(w, 2, s.Full)
	w = put(w, 3, 3, uint64(s.Component))
	return uint16(w)
}

// UnpackScalarSrc decodes a 6-bit scalar source.
func UnpackScalarSrc(v uint16) ScalarSrc {
	w := uint64(v)
	return ScalarSrc{
		Abs:       getBool(w, 0),
		Negate:    getBool(w, 1),
		Full:      getBool(w, 2),
		Component: uint8(get(w, 3, 3)),
	}
}

// ScalarALU is the 32-bit body of an instruction issued to a scalar unit.
//
//	[0:8]   op
//	[8:14]  src1
//	[14:25] src2 (a ScalarSrc, or an 11-bit permuted inline constant)
//	[25]    unknown
//	[26:28] outmod
//	[28]    output_full
//	[29:32] output_component
type ScalarALU struct {
	Op              ALUOp
	Src1            uint16
	Src2            uint16
	Outmod          uint8
	OutputFull      bool
	OutputComponent uint8
}

// ScalarSrc2Bits is the width of the scalar src2 field.
const ScalarSrc2Bits = 11

// Pack returns the 32-bit encoding of a.
func (a ScalarALU) Pack() uint32 {
	var w uint64
	w = put(w, 0, 8, uint64(a.Op))
	w = put(w, 8, 6, uint64(a.Src1))
	w = put(w, 14, ScalarSrc2Bits, uint64(a.Src2))
	w = put(w, 26, 2, uint64(a.Outmod))
	w = putBool(w, 28, a.OutputFull)
	w = put(w, 29, 3, uint64(a.OutputComponent))
	return uint32(w)
}

// UnpackScalarALU decodes a 32-bit scalar ALU body.
func UnpackScalarALU(v uint32) ScalarALU {
	w := uint64(v)
	return ScalarALU{
		Op:              ALUOp(get(w, 0, 8)),
		Src1:            uint16(get(w, 8, 6)),
		Src2:            uint16(get(w, 14, ScalarSrc2Bits)),
		Outmod:          uint8(get(w, 26, 2)),
		OutputFull:      getBool(w, 28),
		OutputComponent: uint8(get(w, 29, 3)),
	}
}

// RegInfo is the 16-bit register selection word emitted for every
// non-branch instruction of an ALU bundle.
//
//	[0:5]   src1_reg
//	[5:10]  src2_reg
//	[10:15] out_reg
//	[15]    src2_imm
type RegInfo struct {
	Src1Reg uint8
	Src2Reg uint8
	OutReg  uint8
	Src2Imm bool
}

// Pack returns the 16-bit encoding of r.
func (r RegInfo) Pack() uint16 {
	var w uint64
	w = put(w, 0, 5, uint64(r.Src1Reg))
	w = put(w, 5, 5, uint64(r.Src2Reg))
	w = put(w, 10, 5, uint64(r.OutReg))
	w = putBool(w, 15, r.Src2Imm)
	return uint16(w)
}

// UnpackRegInfo decodes a register selection word.
func UnpackRegInfo(v uint16) RegInfo {
	w := uint64(v)
	return RegInfo{
		Src1Reg: uint8(get(w, 0, 5)),
		Src2Reg: uint8(get(w, 5, 5)),
		OutReg:  uint8(get(w, 10, 5)),
		Src2Imm: getBool(w, 15),
	}
}

// ControlWord combines the bundle control bits with the tag of the next
// bundle, which occupies bits [4:8].
func ControlWord(control uint32, next Tag) uint32 {
	return control | uint32(next)<<4
}

// AppendUint16 appends a little-endian 16-bit word.
func AppendUint16(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }

// AppendUint32 appends a little-endian 32-bit word.
func AppendUint32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }
