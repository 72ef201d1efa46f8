package emit

import (
	"errors"
	"fmt"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// State is the sequential encoder state of one program. Bundles of a
// program must be emitted in order through the same State; independent
// programs use independent States and may be encoded concurrently.
type State struct {
	// Stage is the shader stage, used to decide which texture ops take
	// derivatives.
	Stage mir.Stage

	// TextureOps is the number of texture instructions not yet emitted.
	TextureOps int

	// LoopDepth is the loop nesting depth of the bundle being emitted.
	LoopDepth int

	// bundle is the index of the next bundle, for error reports.
	bundle int
}

// NewState returns the initial encoder state for p.
func NewState(p *mir.Program) *State {
	return &State{
		Stage:      p.Stage,
		TextureOps: p.TextureOps,
	}
}

// fail attaches an instruction index to err.
func fail(instruction int, err error) error {
	return &EncodeError{Instruction: instruction, Err: err}
}

// EmitBundle encodes one bundle and appends it to out. next is the tag of
// the bundle that follows, or isa.TagBreak after the last one.
//
// The bundle is built completely before anything is appended, so out is
// unchanged when an error is returned. Errors are *EncodeError values
// wrapping one of the package sentinels.
func EmitBundle(st *State, b *mir.Bundle, next isa.Tag, out *Buffer) error {
	index := st.bundle
	st.bundle++

	body, err := encodeBundle(st, b, next)
	if err != nil {
		var ee *EncodeError
		if !errors.As(err, &ee) {
			ee = &EncodeError{Instruction: -1, Err: err}
		}
		ee.Bundle = index
		if b != nil {
			ee.Tag = b.Tag
		}
		return ee
	}

	_, _ = out.Write(body)

	slogger().Debug("emitted bundle",
		"index", index,
		"tag", b.Tag,
		"next", next,
		"instructions", len(b.Instructions),
		"bytes", len(body))
	return nil
}

func encodeBundle(st *State, b *mir.Bundle, next isa.Tag) ([]byte, error) {
	if b == nil {
		return nil, fail(-1, fmt.Errorf("%w: nil bundle", ErrUnknownBundleKind))
	}
	if next > 0xF {
		return nil, fail(-1, fmt.Errorf("%w: next tag 0x%x", ErrOutOfRange, uint8(next)))
	}
	for i, ins := range b.Instructions {
		if ins == nil {
			return nil, fail(i, fmt.Errorf("%w: nil instruction", ErrUnsupportedOperation))
		}
	}

	switch {
	case b.Tag.IsALU():
		return encodeALUBundle(b, next)
	case b.Tag.IsLoadStore():
		return encodeLoadStoreBundle(b, next)
	case b.Tag.IsTexture():
		return encodeTextureBundle(st, b, next)
	}
	return nil, fail(-1, fmt.Errorf("%w: tag 0x%x", ErrUnknownBundleKind, uint8(b.Tag)))
}

// encodeALUBundle lays out an ALU bundle: control word, one register word
// per non-branch instruction, the instruction bodies in order, zero
// padding, then the optional embedded constants.
func encodeALUBundle(b *mir.Bundle, next isa.Tag) ([]byte, error) {
	if len(b.Instructions) == 0 {
		return nil, fail(-1, fmt.Errorf("%w: empty ALU bundle", ErrInstructionCount))
	}
	if b.Padding < 0 {
		return nil, fail(-1, fmt.Errorf("%w: padding %d", ErrOutOfRange, b.Padding))
	}

	size := 16 * b.Tag.Quadwords()
	buf := make([]byte, 0, size)

	buf = isa.AppendUint32(buf, isa.ControlWord(b.Control, next))

	for _, ins := range b.Instructions {
		if ins.IsBranch() {
			continue
		}
		buf = isa.AppendUint16(buf, ins.Registers.Pack())
	}

	for i, ins := range b.Instructions {
		var err error
		buf, err = appendALUBody(buf, ins)
		if err != nil {
			return nil, fail(i, err)
		}
	}

	buf = append(buf, make([]byte, b.Padding)...)

	if b.HasConstants {
		for _, c := range b.Constants {
			buf = isa.AppendUint32(buf, c)
		}
	}

	if len(buf) != size {
		return nil, fail(-1, fmt.Errorf("%w: %d bytes for %v (%d expected)", ErrBundleSizeMismatch, len(buf), b.Tag, size))
	}
	return buf, nil
}

// appendALUBody appends the body of one ALU bundle instruction.
func appendALUBody(buf []byte, ins *mir.Instruction) ([]byte, error) {
	switch {
	case ins.IsBranch():
		return appendBranch(buf, ins.Branch)

	case ins.Kind != mir.KindALU:
		return nil, fmt.Errorf("%w: %v instruction in ALU bundle", ErrUnsupportedOperation, ins.Kind)

	case ins.Unit.IsVector():
		alu, raw2, err := finalizeVector(ins)
		if err != nil {
			return nil, err
		}
		return isa.AppendVectorALU(buf, alu.Pack(raw2)), nil

	case ins.Unit.IsScalar():
		s, err := Scalarize(ins)
		if err != nil {
			return nil, err
		}
		return isa.AppendUint32(buf, s.Pack()), nil
	}
	return nil, fmt.Errorf("%w: no ALU unit assigned (0x%x)", ErrUnsupportedOperation, uint32(ins.Unit))
}

// finalizeVector fills in the physical write mask, register mode and
// packed swizzles of a vector instruction. It returns the raw src2 bits
// to use in place of the descriptor when an inline constant is present.
func finalizeVector(ins *mir.Instruction) (isa.VectorALU, *uint16, error) {
	alu := ins.ALU
	alu.RegMode = ins.RegMode

	mask, err := ExpandMaskALU(ins.Mask, ins.RegMode)
	if err != nil {
		return alu, nil, err
	}
	alu.Mask = mask

	alu.Src1, alu.Src2, err = PackSwizzleALU(ins)
	if err != nil {
		return alu, nil, err
	}

	if !ins.HasInlineConstant {
		return alu, nil, nil
	}
	raw := VectorInlineConstant(ins.InlineConstant)
	return alu, &raw, nil
}

func appendBranch(buf []byte, br *mir.Branch) ([]byte, error) {
	if br == nil {
		return nil, fmt.Errorf("%w: branch without payload", ErrUnsupportedOperation)
	}
	switch br.Form {
	case mir.BranchCompactCond:
		return isa.AppendUint16(buf, br.Cond.Pack()), nil
	case mir.BranchCompactUncond:
		return isa.AppendUint16(buf, br.Uncond.Pack()), nil
	case mir.BranchExtended:
		return isa.AppendBranchExtended(buf, br.Extended), nil
	}
	return nil, fmt.Errorf("%w: branch form %d", ErrUnsupportedOperation, br.Form)
}

// encodeLoadStoreBundle packs one or two load/store words into a record.
// A missing second word is filled with the load/store NOP.
func encodeLoadStoreBundle(b *mir.Bundle, next isa.Tag) ([]byte, error) {
	n := len(b.Instructions)
	if n < 1 || n > 2 {
		return nil, fail(-1, fmt.Errorf("%w: %d load/store instructions", ErrInstructionCount, n))
	}

	words := [2]uint64{0, isa.LoadStoreNop}
	for i, ins := range b.Instructions {
		if ins.Kind != mir.KindLoadStore {
			return nil, fail(i, fmt.Errorf("%w: %v instruction in load/store bundle", ErrUnsupportedOperation, ins.Kind))
		}

		ls := ins.LoadStore

		mask, err := PackMaskLoadStore(ins.Mask, ins.RegMode)
		if err != nil {
			return nil, fail(i, err)
		}
		ls.Mask = mask

		swizzle, err := PackSwizzleLoadStore(ins.Swizzle[0])
		if err != nil {
			return nil, fail(i, err)
		}
		ls.Swizzle = swizzle

		words[i] = ls.Pack()
	}

	rec := isa.LoadStoreRecord{
		Type:     b.Tag,
		NextType: next,
		Word1:    words[0],
		Word2:    words[1],
	}
	return rec.Pack().AppendLE(make([]byte, 0, isa.LoadStoreRecordSize)), nil
}

// encodeTextureBundle encodes the single instruction of a texture bundle
// and consumes one entry of the outstanding texture count.
func encodeTextureBundle(st *State, b *mir.Bundle, next isa.Tag) ([]byte, error) {
	if n := len(b.Instructions); n != 1 {
		return nil, fail(-1, fmt.Errorf("%w: %d texture instructions", ErrInstructionCount, n))
	}

	ins := b.Instructions[0]
	if ins.Kind != mir.KindTexture {
		return nil, fail(0, fmt.Errorf("%w: %v instruction in texture bundle", ErrUnsupportedOperation, ins.Kind))
	}
	if ins.Mask > 0xF {
		return nil, fail(0, fmt.Errorf("%w: texture write mask 0x%02x", ErrOutOfRange, ins.Mask))
	}

	tex := ins.Texture
	tex.Type = b.Tag
	tex.NextType = next
	tex.Mask = ins.Mask

	var err error
	tex.Swizzle, tex.InRegSwizzle, err = PackSwizzleTexture(ins.Swizzle)
	if err != nil {
		return nil, fail(0, err)
	}

	remaining := st.TextureOps - 1
	if remaining < 0 {
		return nil, fail(0, fmt.Errorf("%w: more texture instructions than the program declares", ErrOutOfRange))
	}

	tex.Cont, tex.Last = Continuation(ComputesDerivatives(st.Stage, tex.Op), remaining, st.LoopDepth)
	st.TextureOps = remaining

	return tex.Pack().AppendLE(make([]byte, 0, isa.TextureWordSize)), nil
}
