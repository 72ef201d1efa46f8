package isa

// TextureWordSize is the size in bytes of a texture bundle.
const TextureWordSize = 16

// TextureWord is the 128-bit texture instruction. Type, NextType, Mask,
// Swizzle, InRegSwizzle, Cont and Last are filled in by the encoder; the
// remaining fields come from instruction selection.
type TextureWord struct {
	Type     Tag
	NextType Tag

	Op       TextureOp
	Shadow   bool
	IsGather bool

	// Cont keeps helper invocations alive after this instruction; Last
	// marks the final instruction that needs them.
	Cont bool
	Last bool

	Format uint8
	Zero   uint8

	LODRegister    bool
	OffsetRegister bool

	InRegFull    bool
	InRegSelect  bool
	InRegUpper   bool
	InRegSwizzle uint8

	Unknown8 uint8

	OutFull      bool
	SamplerType  uint8
	OutRegSelect bool
	OutUpper     bool

	Mask     uint8
	Unknown2 uint8
	Swizzle  uint8
	Unknown4 uint8
	UnknownA uint8

	OffsetX int8
	OffsetY int8
	OffsetZ int8

	Bias    uint8
	BiasInt int8

	TextureHandle uint16
	SamplerHandle uint16
}

// Pack returns the 128-bit encoding of t.
func (t TextureWord) Pack() Word128 {
	var w Word128
	w.Set(0, 4, uint64(t.Type))
	w.Set(4, 4, uint64(t.NextType))
	w.Set(8, 6, uint64(t.Op))
	w.Set(14, 1, b2u(t.Shadow))
	w.Set(15, 1, b2u(t.IsGather))
	w.Set(16, 1, b2u(t.Cont))
	w.Set(17, 1, b2u(t.Last))
	w.Set(18, 2, uint64(t.Format))
	w.Set(20, 2, uint64(t.Zero))
	w.Set(22, 1, b2u(t.LODRegister))
	w.Set(23, 1, b2u(t.OffsetRegister))
	w.Set(24, 1, b2u(t.InRegFull))
	w.Set(25, 1, b2u(t.InRegSelect))
	w.Set(26, 1, b2u(t.InRegUpper))
	w.Set(27, 8, uint64(t.InRegSwizzle))
	w.Set(35, 2, uint64(t.Unknown8))
	w.Set(37, 1, b2u(t.OutFull))
	w.Set(38, 2, uint64(t.SamplerType))
	w.Set(40, 1, b2u(t.OutRegSelect))
	w.Set(41, 1, b2u(t.OutUpper))
	w.Set(42, 4, uint64(t.Mask))
	w.Set(46, 2, uint64(t.Unknown2))
	w.Set(48, 8, uint64(t.Swizzle))
	w.Set(56, 8, uint64(t.Unknown4))
	w.Set(64, 4, uint64(t.UnknownA))
	w.Set(68, 4, uint64(t.OffsetX))
	w.Set(72, 4, uint64(t.OffsetY))
	w.Set(76, 4, uint64(t.OffsetZ))
	w.Set(80, 8, uint64(t.Bias))
	w.Set(88, 8, uint64(t.BiasInt))
	w.Set(96, 16, uint64(t.TextureHandle))
	w.Set(112, 16, uint64(t.SamplerHandle))
	return w
}

// UnpackTextureWord decodes a 128-bit texture instruction.
func UnpackTextureWord(w Word128) TextureWord {
	return TextureWord{
		Type:           Tag(w.Get(0, 4)),
		NextType:       Tag(w.Get(4, 4)),
		Op:             TextureOp(w.Get(8, 6)),
		Shadow:         w.Get(14, 1) != 0,
		IsGather:       w.Get(15, 1) != 0,
		Cont:           w.Get(16, 1) != 0,
		Last:           w.Get(17, 1) != 0,
		Format:         uint8(w.Get(18, 2)),
		Zero:           uint8(w.Get(20, 2)),
		LODRegister:    w.Get(22, 1) != 0,
		OffsetRegister: w.Get(23, 1) != 0,
		InRegFull:      w.Get(24, 1) != 0,
		InRegSelect:    w.Get(25, 1) != 0,
		InRegUpper:     w.Get(26, 1) != 0,
		InRegSwizzle:   uint8(w.Get(27, 8)),
		Unknown8:       uint8(w.Get(35, 2)),
		OutFull:        w.Get(37, 1) != 0,
		SamplerType:    uint8(w.Get(38, 2)),
		OutRegSelect:   w.Get(40, 1) != 0,
		OutUpper:       w.Get(41, 1) != 0,
		Mask:           uint8(w.Get(42, 4)),
		Unknown2:       uint8(w.Get(46, 2)),
		Swizzle:        uint8(w.Get(48, 8)),
		Unknown4:       uint8(w.Get(56, 8)),
		UnknownA:       uint8(w.Get(64, 4)),
		OffsetX:        int8(signExtend(w.Get(68, 4), 4)),
		OffsetY:        int8(signExtend(w.Get(72, 4), 4)),
		OffsetZ:        int8(signExtend(w.Get(76, 4), 4)),
		Bias:           uint8(w.Get(80, 8)),
		BiasInt:        int8(w.Get(88, 8)),
		TextureHandle:  uint16(w.Get(96, 16)),
		SamplerHandle:  uint16(w.Get(112, 16)),
	}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
