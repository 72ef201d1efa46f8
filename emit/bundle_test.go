package emit

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

var identitySwizzle = [2][4]uint8{{0, 1, 2, 3}, {0, 1, 2, 3}}

func scalarOp(unit isa.Unit, op isa.ALUOp, mask uint8, regs isa.RegInfo) *mir.Instruction {
	return &mir.Instruction{
		Kind:      mir.KindALU,
		Unit:      unit,
		Mask:      mask,
		RegMode:   isa.RegMode32,
		Swizzle:   identitySwizzle,
		Registers: regs,
		ALU:       isa.VectorALU{Op: op},
	}
}

func emitOne(t *testing.T, st *State, b *mir.Bundle, next isa.Tag) []byte {
	t.Helper()
	out := NewBuffer(64)
	if err := EmitBundle(st, b, next, out); err != nil {
		t.Fatalf("EmitBundle failed: %v", err)
	}
	return out.Bytes()
}

func TestEmitALUBundleScalarPair(t *testing.T) {
	b := &mir.Bundle{
		Tag:     isa.TagALU4,
		Control: uint32(isa.TagALU4) | uint32(isa.UnitSADD) | uint32(isa.UnitSMUL),
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b0001, isa.RegInfo{Src1Reg: 1, Src2Reg: 2, OutReg: 3}),
			scalarOp(isa.UnitSMUL, isa.OpFMul, 0b0010, isa.RegInfo{Src1Reg: 4, Src2Reg: 5, OutReg: 6}),
		},
	}

	want := []byte{
		0x18, 0x00, 0x48, 0x00, // control word, next = break
		0x41, 0x0C, // registers of the first instruction
		0xA4, 0x18, // registers of the second instruction
		0x10, 0x04, 0x01, 0x10, // fadd, x component
		0x14, 0x14, 0x05, 0x50, // fmul, y component doubled to 2
	}

	got := emitOne(t, &State{}, b, isa.TagBreak)
	if !bytes.Equal(got, want) {
		t.Errorf("bundle bytes:\n got % x\nwant % x", got, want)
	}

	again := emitOne(t, &State{}, b, isa.TagBreak)
	if !bytes.Equal(got, again) {
		t.Error("emission is not deterministic")
	}
}

func TestEmitALUBundleVectorWithPadding(t *testing.T) {
	b := &mir.Bundle{
		Tag:     isa.TagALU4,
		Control: uint32(isa.TagALU4) | uint32(isa.UnitVMUL),
		Padding: 4,
		Instructions: []*mir.Instruction{{
			Kind:      mir.KindALU,
			Unit:      isa.UnitVMUL,
			Mask:      0xF,
			RegMode:   isa.RegMode32,
			Swizzle:   identitySwizzle,
			Registers: isa.RegInfo{Src1Reg: 0, Src2Reg: 1, OutReg: 2},
			ALU:       isa.VectorALU{Op: isa.OpFMul, RegMode: isa.RegMode8},
		}},
	}

	got := emitOne(t, &State{}, b, isa.TagALU8)
	if len(got) != 16 {
		t.Fatalf("bundle length = %d, want 16", len(got))
	}
	if got[0]>>4 != byte(isa.TagALU8) {
		t.Errorf("next tag = 0x%x, want 0x%x", got[0]>>4, byte(isa.TagALU8))
	}

	body := got[6:12]
	if !bytes.Equal(body, []byte{0x14, 0x02, 0x72, 0x40, 0x0E, 0xFF}) {
		t.Errorf("vector body = % x", body)
	}

	alu := isa.UnpackVectorALU(body)
	if alu.RegMode != isa.RegMode32 {
		t.Errorf("reg mode = %v, want 32-bit from the instruction", alu.RegMode)
	}
	if alu.Mask != 0xFF {
		t.Errorf("mask = 0x%02x, want 0xff", alu.Mask)
	}
	if alu.Src1.Swizzle != 0xE4 || alu.Src2.Swizzle != 0xE4 {
		t.Errorf("swizzles = 0x%02x/0x%02x, want 0xe4/0xe4", alu.Src1.Swizzle, alu.Src2.Swizzle)
	}
	if !bytes.Equal(got[12:], make([]byte, 4)) {
		t.Errorf("padding = % x, want zeros", got[12:])
	}
}

func TestEmitALUBundleVectorInlineConstant(t *testing.T) {
	b := &mir.Bundle{
		Tag:     isa.TagALU4,
		Padding: 4,
		Instructions: []*mir.Instruction{{
			Kind:              mir.KindALU,
			Unit:              isa.UnitVADD,
			Mask:              0x1,
			RegMode:           isa.RegMode32,
			Swizzle:           identitySwizzle,
			HasInlineConstant: true,
			InlineConstant:    0x123,
			Registers:         isa.RegInfo{Src2Imm: true},
			ALU:               isa.VectorALU{Op: isa.OpFAdd},
		}},
	}

	got := emitOne(t, &State{}, b, isa.TagBreak)
	packed := uint64(got[6]) | uint64(got[7])<<8 | uint64(got[8])<<16 | uint64(got[9])<<24 |
		uint64(got[10])<<32 | uint64(got[11])<<40
	if src2 := packed >> 23 & (1<<isa.VectorSrcBits - 1); src2 != 0x464 {
		t.Errorf("src2 field = 0x%x, want inline constant bits 0x464", src2)
	}
}

func TestEmitALUBundleConstants(t *testing.T) {
	b := &mir.Bundle{
		Tag:          isa.TagALU8,
		Padding:      6,
		HasConstants: true,
		Constants:    [4]uint32{0x3F800000, 0x40000000, 0, 0xDEADBEEF},
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b1000, isa.RegInfo{}),
		},
	}

	got := emitOne(t, &State{}, b, isa.TagBreak)
	if len(got) != 32 {
		t.Fatalf("bundle length = %d, want 32", len(got))
	}
	want := []byte{
		0x00, 0x00, 0x80, 0x3F,
		0x00, 0x00, 0x00, 0x40,
		0x00, 0x00, 0x00, 0x00,
		0xEF, 0xBE, 0xAD, 0xDE,
	}
	if !bytes.Equal(got[16:], want) {
		t.Errorf("constants = % x, want % x", got[16:], want)
	}
	if !bytes.Equal(got[10:16], make([]byte, 6)) {
		t.Errorf("padding = % x, want zeros", got[10:16])
	}
}

func TestEmitALUBundleSizeMismatch(t *testing.T) {
	b := &mir.Bundle{
		Tag: isa.TagALU4,
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b0001, isa.RegInfo{}),
		},
	}

	out := NewBuffer(16)
	_, _ = out.Write([]byte{0xAA})

	err := EmitBundle(&State{}, b, isa.TagBreak, out)
	if !errors.Is(err, ErrBundleSizeMismatch) {
		t.Fatalf("error = %v, want ErrBundleSizeMismatch", err)
	}
	if !bytes.Equal(out.Bytes(), []byte{0xAA}) {
		t.Errorf("buffer modified on error: % x", out.Bytes())
	}
}

func TestEmitALUBundleCompactBranch(t *testing.T) {
	br := isa.BranchCond{Op: isa.BranchOpCond, DestTag: isa.TagALU4, Offset: -3, Cond: isa.CondTrue}
	b := &mir.Bundle{
		Tag:     isa.TagALU4,
		Padding: 4,
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b0001, isa.RegInfo{OutReg: 7}),
			{
				Kind:   mir.KindBranch,
				Unit:   isa.UnitBranchCompact,
				Branch: &mir.Branch{Form: mir.BranchCompactCond, Cond: br},
			},
		},
	}

	got := emitOne(t, &State{}, b, isa.TagBreak)
	if len(got) != 16 {
		t.Fatalf("bundle length = %d, want 16", len(got))
	}

	// The branch has no register word, so the scalar body starts at 6.
	if regs := isa.UnpackRegInfo(uint16(got[4]) | uint16(got[5])<<8); regs.OutReg != 7 {
		t.Errorf("register word = %+v, want out reg 7", regs)
	}
	if back := isa.UnpackBranchCond(uint16(got[10]) | uint16(got[11])<<8); back != br {
		t.Errorf("branch = %+v, want %+v", back, br)
	}
}

func TestEmitALUBundleExtendedBranch(t *testing.T) {
	br := isa.BranchExtended{Op: isa.BranchOpWriteout, DestTag: isa.TagALU4Writeout, Offset: -1, Cond: 0xAAAA}
	b := &mir.Bundle{
		Tag: isa.TagALU4Writeout,
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b0001, isa.RegInfo{}),
			{
				Kind:   mir.KindBranch,
				Unit:   isa.UnitBranch,
				Branch: &mir.Branch{Form: mir.BranchExtended, Extended: br},
			},
		},
	}

	got := emitOne(t, &State{}, b, isa.TagBreak)
	if len(got) != 16 {
		t.Fatalf("bundle length = %d, want 16", len(got))
	}
	if back := isa.UnpackBranchExtended(got[10:16]); back != br {
		t.Errorf("branch = %+v, want %+v", back, br)
	}
}

func TestEmitALUBundleErrors(t *testing.T) {
	tests := []struct {
		name    string
		bundle  *mir.Bundle
		wantErr error
	}{
		{
			name:    "empty",
			bundle:  &mir.Bundle{Tag: isa.TagALU4},
			wantErr: ErrInstructionCount,
		},
		{
			name: "branch without payload",
			bundle: &mir.Bundle{Tag: isa.TagALU4, Instructions: []*mir.Instruction{
				{Kind: mir.KindBranch, Unit: isa.UnitBranch},
			}},
			wantErr: ErrUnsupportedOperation,
		},
		{
			name: "load/store instruction",
			bundle: &mir.Bundle{Tag: isa.TagALU4, Instructions: []*mir.Instruction{
				{Kind: mir.KindLoadStore},
			}},
			wantErr: ErrUnsupportedOperation,
		},
		{
			name: "no unit",
			bundle: &mir.Bundle{Tag: isa.TagALU4, Instructions: []*mir.Instruction{
				{Kind: mir.KindALU, RegMode: isa.RegMode32, Mask: 1},
			}},
			wantErr: ErrUnsupportedOperation,
		},
		{
			name: "negative padding",
			bundle: &mir.Bundle{Tag: isa.TagALU4, Padding: -1, Instructions: []*mir.Instruction{
				scalarOp(isa.UnitSADD, isa.OpFAdd, 1, isa.RegInfo{}),
			}},
			wantErr: ErrOutOfRange,
		},
		{
			name: "nil instruction",
			bundle: &mir.Bundle{Tag: isa.TagALU4, Instructions: []*mir.Instruction{
				nil,
			}},
			wantErr: ErrUnsupportedOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EmitBundle(&State{}, tt.bundle, isa.TagBreak, NewBuffer(16))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmitBundleErrorLocation(t *testing.T) {
	st := &State{}
	ok := &mir.Bundle{
		Tag:     isa.TagALU4,
		Padding: 6,
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b0001, isa.RegInfo{}),
		},
	}
	bad := &mir.Bundle{
		Tag: isa.TagALU4,
		Instructions: []*mir.Instruction{
			scalarOp(isa.UnitSADD, isa.OpFAdd, 0b0001, isa.RegInfo{}),
			scalarOp(isa.UnitSMUL, isa.OpFMul, 0b0011, isa.RegInfo{}),
		},
	}

	out := NewBuffer(32)
	if err := EmitBundle(st, ok, isa.TagALU4, out); err != nil {
		t.Fatalf("first bundle: %v", err)
	}
	err := EmitBundle(st, bad, isa.TagBreak, out)

	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("error %v is not an *EncodeError", err)
	}
	if ee.Bundle != 1 || ee.Instruction != 1 || ee.Tag != isa.TagALU4 {
		t.Errorf("error location = bundle %d instruction %d tag %v, want bundle 1 instruction 1 tag alu4",
			ee.Bundle, ee.Instruction, ee.Tag)
	}
	if !errors.Is(err, ErrInvalidMask) {
		t.Errorf("error = %v, want ErrInvalidMask", err)
	}
	if out.Len() != 16 {
		t.Errorf("buffer length = %d, want 16", out.Len())
	}
}

func TestEmitUnknownBundleKind(t *testing.T) {
	for _, tag := range []isa.Tag{0x0, isa.TagBreak, 0x6, 0x7} {
		b := &mir.Bundle{Tag: tag, Instructions: []*mir.Instruction{{Kind: mir.KindALU}}}
		err := EmitBundle(&State{}, b, isa.TagBreak, NewBuffer(16))
		if !errors.Is(err, ErrUnknownBundleKind) {
			t.Errorf("tag 0x%x: error = %v, want ErrUnknownBundleKind", uint8(tag), err)
		}
	}

	if err := EmitBundle(&State{}, nil, isa.TagBreak, NewBuffer(16)); !errors.Is(err, ErrUnknownBundleKind) {
		t.Errorf("nil bundle: error = %v, want ErrUnknownBundleKind", err)
	}
}

func TestEmitNextTagOutOfRange(t *testing.T) {
	b := &mir.Bundle{
		Tag:          isa.TagALU4,
		Padding:      6,
		Instructions: []*mir.Instruction{scalarOp(isa.UnitSADD, isa.OpFAdd, 1, isa.RegInfo{})},
	}
	if err := EmitBundle(&State{}, b, 0x10, NewBuffer(16)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("error = %v, want ErrOutOfRange", err)
	}
}

func loadStoreIns(mask uint8, mode isa.RegMode, reg uint8) *mir.Instruction {
	return &mir.Instruction{
		Kind:      mir.KindLoadStore,
		Mask:      mask,
		RegMode:   mode,
		Swizzle:   identitySwizzle,
		LoadStore: isa.LoadStoreWord{Op: 0x94, Reg: reg},
	}
}

func TestEmitLoadStoreBundle(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		b := &mir.Bundle{
			Tag:          isa.TagLoadStore4,
			Instructions: []*mir.Instruction{loadStoreIns(0xF, isa.RegMode32, 3)},
		}
		got := emitOne(t, &State{}, b, isa.TagALU4)
		if len(got) != isa.LoadStoreRecordSize {
			t.Fatalf("record length = %d, want %d", len(got), isa.LoadStoreRecordSize)
		}

		rec := isa.UnpackLoadStoreRecord(isa.Word128FromLE(got))
		if rec.Type != isa.TagLoadStore4 || rec.NextType != isa.TagALU4 {
			t.Errorf("tags = %v/%v, want load_store4/alu4", rec.Type, rec.NextType)
		}
		if rec.Word2 != isa.LoadStoreNop {
			t.Errorf("word2 = 0x%x, want NOP", rec.Word2)
		}
		w := isa.UnpackLoadStoreWord(rec.Word1)
		if w.Op != 0x94 || w.Reg != 3 || w.Mask != 0xF || w.Swizzle != 0xE4 {
			t.Errorf("word1 = %+v", w)
		}
	})

	t.Run("pair", func(t *testing.T) {
		b := &mir.Bundle{
			Tag: isa.TagLoadStore4,
			Instructions: []*mir.Instruction{
				loadStoreIns(0x33, isa.RegMode16, 1),
				loadStoreIns(0b10, isa.RegMode64, 2),
			},
		}
		rec := isa.UnpackLoadStoreRecord(isa.Word128FromLE(emitOne(t, &State{}, b, isa.TagBreak)))

		if w := isa.UnpackLoadStoreWord(rec.Word1); w.Mask != 0b0101 || w.Reg != 1 {
			t.Errorf("word1 = %+v, want mask 0b0101 reg 1", w)
		}
		if w := isa.UnpackLoadStoreWord(rec.Word2); w.Mask != 0b1100 || w.Reg != 2 {
			t.Errorf("word2 = %+v, want mask 0b1100 reg 2", w)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			ins     []*mir.Instruction
			wantErr error
		}{
			{"empty", nil, ErrInstructionCount},
			{"three", []*mir.Instruction{
				loadStoreIns(1, isa.RegMode32, 0),
				loadStoreIns(1, isa.RegMode32, 0),
				loadStoreIns(1, isa.RegMode32, 0),
			}, ErrInstructionCount},
			{"duplication", []*mir.Instruction{loadStoreIns(0b01, isa.RegMode16, 0)}, ErrMaskDuplicationViolation},
			{"alu", []*mir.Instruction{{Kind: mir.KindALU}}, ErrUnsupportedOperation},
		}
		for _, tt := range tests {
			b := &mir.Bundle{Tag: isa.TagLoadStore4, Instructions: tt.ins}
			if err := EmitBundle(&State{}, b, isa.TagBreak, NewBuffer(16)); !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
			}
		}
	})
}

func textureBundle(op isa.TextureOp) *mir.Bundle {
	return &mir.Bundle{
		Tag: isa.TagTexture4,
		Instructions: []*mir.Instruction{{
			Kind:    mir.KindTexture,
			Mask:    0xF,
			Swizzle: [2][4]uint8{{0, 1, 2, 3}, {3, 2, 1, 0}},
			Texture: isa.TextureWord{Op: op, TextureHandle: 2, SamplerHandle: 5},
		}},
	}
}

func TestEmitTextureBundle(t *testing.T) {
	st := &State{Stage: mir.StageFragment, TextureOps: 2}

	first := isa.UnpackTextureWord(isa.Word128FromLE(emitOne(t, st, textureBundle(isa.TextureOpNormal), isa.TagTexture4)))
	if !first.Cont || first.Last {
		t.Errorf("first: cont/last = %v/%v, want true/false", first.Cont, first.Last)
	}
	if first.Type != isa.TagTexture4 || first.NextType != isa.TagTexture4 {
		t.Errorf("first: tags = %v/%v", first.Type, first.NextType)
	}
	if first.Mask != 0xF || first.Swizzle != 0xE4 || first.InRegSwizzle != 0x1B {
		t.Errorf("first: mask 0x%x swizzle 0x%02x in-reg 0x%02x", first.Mask, first.Swizzle, first.InRegSwizzle)
	}
	if first.TextureHandle != 2 || first.SamplerHandle != 5 {
		t.Errorf("first: handles %d/%d, want 2/5", first.TextureHandle, first.SamplerHandle)
	}

	second := isa.UnpackTextureWord(isa.Word128FromLE(emitOne(t, st, textureBundle(isa.TextureOpNormal), isa.TagBreak)))
	if second.Cont || !second.Last {
		t.Errorf("second: cont/last = %v/%v, want false/true", second.Cont, second.Last)
	}
	if st.TextureOps != 0 {
		t.Errorf("texture ops left = %d, want 0", st.TextureOps)
	}

	err := EmitBundle(st, textureBundle(isa.TextureOpNormal), isa.TagBreak, NewBuffer(16))
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("third: error = %v, want ErrOutOfRange", err)
	}
	if st.TextureOps != 0 {
		t.Errorf("failed emission changed texture ops to %d", st.TextureOps)
	}
}

func TestEmitTextureBundleVertexStage(t *testing.T) {
	st := &State{Stage: mir.StageVertex, TextureOps: 3}
	w := isa.UnpackTextureWord(isa.Word128FromLE(emitOne(t, st, textureBundle(isa.TextureOpNormal), isa.TagBreak)))
	if !w.Cont || !w.Last {
		t.Errorf("cont/last = %v/%v, want true/true without derivatives", w.Cont, w.Last)
	}
}

func TestEmitTextureBundleInLoop(t *testing.T) {
	st := &State{Stage: mir.StageFragment, TextureOps: 1, LoopDepth: 1}
	w := isa.UnpackTextureWord(isa.Word128FromLE(emitOne(t, st, textureBundle(isa.TextureOpDFDX), isa.TagBreak)))
	if !w.Cont || w.Last {
		t.Errorf("cont/last = %v/%v, want true/false inside a loop", w.Cont, w.Last)
	}
}

func TestEmitTextureBundleErrors(t *testing.T) {
	tooMany := textureBundle(isa.TextureOpNormal)
	tooMany.Instructions = append(tooMany.Instructions, tooMany.Instructions[0])

	wrongKind := textureBundle(isa.TextureOpNormal)
	wrongKind.Instructions[0].Kind = mir.KindALU

	wideMask := textureBundle(isa.TextureOpNormal)
	wideMask.Instructions[0].Mask = 0x1F

	badSwizzle := textureBundle(isa.TextureOpNormal)
	badSwizzle.Instructions[0].Swizzle[0][1] = 6

	tests := []struct {
		name    string
		bundle  *mir.Bundle
		wantErr error
	}{
		{"two instructions", tooMany, ErrInstructionCount},
		{"wrong kind", wrongKind, ErrUnsupportedOperation},
		{"wide mask", wideMask, ErrOutOfRange},
		{"bad swizzle", badSwizzle, ErrOutOfRange},
	}
	for _, tt := range tests {
		st := &State{Stage: mir.StageFragment, TextureOps: 1}
		if err := EmitBundle(st, tt.bundle, isa.TagBreak, NewBuffer(16)); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
		}
		if st.TextureOps != 1 {
			t.Errorf("%s: texture ops changed to %d", tt.name, st.TextureOps)
		}
	}
}
