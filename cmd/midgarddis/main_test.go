package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/midgard"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

func sampleCode(t *testing.T) []byte {
	t.Helper()
	identity := [2][4]uint8{{0, 1, 2, 3}, {0, 1, 2, 3}}
	p := &mir.Program{
		Stage:      mir.StageFragment,
		TextureOps: 1,
		Bundles: []*mir.Bundle{
			{
				Tag:     isa.TagALU8,
				Control: uint32(isa.TagALU8) | uint32(isa.UnitVMUL|isa.UnitSADD|isa.UnitBranchCompact),
				Padding: 12,
				Instructions: []*mir.Instruction{
					{
						Kind: mir.KindALU, Unit: isa.UnitVMUL, Mask: 0xF, RegMode: isa.RegMode32,
						Swizzle: identity, Registers: isa.RegInfo{Src1Reg: 1, Src2Reg: 2, OutReg: 3},
						ALU: isa.VectorALU{Op: isa.OpFMul},
					},
					{
						Kind: mir.KindALU, Unit: isa.UnitSADD, Mask: 0b0010, RegMode: isa.RegMode32,
						Swizzle: identity, Registers: isa.RegInfo{OutReg: 4},
						ALU: isa.VectorALU{Op: isa.OpFAdd},
					},
					{
						Kind: mir.KindBranch, Unit: isa.UnitBranchCompact,
						Branch: &mir.Branch{Form: mir.BranchCompactCond, Cond: isa.BranchCond{
							Op: isa.BranchOpCond, DestTag: isa.TagALU4, Offset: -2, Cond: isa.CondTrue,
						}},
					},
				},
			},
			{
				Tag: isa.TagLoadStore4,
				Instructions: []*mir.Instruction{{
					Kind: mir.KindLoadStore, Mask: 0xF, RegMode: isa.RegMode32, Swizzle: identity,
					LoadStore: isa.LoadStoreWord{Op: 0x94, Reg: 5},
				}},
			},
			{
				Tag: isa.TagTexture4,
				Instructions: []*mir.Instruction{{
					Kind: mir.KindTexture, Mask: 0xF, Swizzle: identity,
					Texture: isa.TextureWord{Op: isa.TextureOpNormal, TextureHandle: 1},
				}},
			},
		},
	}

	code, err := midgard.Encode(p, midgard.DefaultOptions())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return code
}

func TestDisassemble(t *testing.T) {
	var sb strings.Builder
	if err := disassemble(&sb, sampleCode(t)); err != nil {
		t.Fatalf("disassemble failed: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"; bundle 0 @0x0000",
		"vmul  fmul.32-bit r3 mask=0xff, r1 swz=0xe4, r2 swz=0xe4",
		"sadd  fadd r4.2 full=true",
		"br    branch -> ",
		"-2 cond=2",
		"ld/st0 op.94 r5 mask=0xf swz=0xe4",
		"ld/st1 nop",
		"texture texture=1 sampler=0 mask=0xf swz=0xe4 cont=false last=true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleTruncated(t *testing.T) {
	code := sampleCode(t)
	err := disassemble(&strings.Builder{}, code[:len(code)-1])
	if !errors.Is(err, errTruncated) {
		t.Errorf("error = %v, want errTruncated", err)
	}
}

func TestDisassembleUnknownTag(t *testing.T) {
	code := make([]byte, 16)
	code[0] = 0x6
	if err := disassemble(&strings.Builder{}, code); err == nil {
		t.Error("disassemble accepted tag 0x6")
	}
}
