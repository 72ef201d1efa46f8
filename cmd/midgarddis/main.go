// midgarddis - Midgard machine code disassembler
// Prints one block per bundle with every decoded hardware field.
package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/midgard/isa"
)

var aluOpNames = map[isa.ALUOp]string{
	isa.OpFAdd: "fadd", isa.OpFMul: "fmul", isa.OpFMin: "fmin", isa.OpFMax: "fmax",
	isa.OpFMov: "fmov", isa.OpFRcp: "frcp", isa.OpIAdd: "iadd", isa.OpISub: "isub",
	isa.OpIMul: "imul", isa.OpIMov: "imov", isa.OpIEq: "ieq", isa.OpICsel: "icsel",
}

var textureOpNames = map[isa.TextureOp]string{
	isa.TextureOpNormal: "texture", isa.TextureOpLOD: "textureLod",
	isa.TextureOpTexelFetch: "texelFetch", isa.TextureOpDFDX: "dFdx", isa.TextureOpDFDY: "dFdy",
}

var branchOpNames = map[isa.BranchOp]string{
	isa.BranchOpUncond: "jump", isa.BranchOpCond: "branch",
	isa.BranchOpWriteout: "writeout", isa.BranchOpDiscard: "discard",
}

// aluUnits lists the units in the order their words appear in a bundle.
var aluUnits = []struct {
	unit isa.Unit
	name string
}{
	{isa.UnitVMUL, "vmul"},
	{isa.UnitSADD, "sadd"},
	{isa.UnitVADD, "vadd"},
	{isa.UnitSMUL, "smul"},
	{isa.UnitVLUT, "lut"},
	{isa.UnitBranchCompact, "br"},
	{isa.UnitBranch, "brx"},
}

var errTruncated = errors.New("truncated bundle")

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: midgarddis <file.bin>")
		return
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := disassemble(os.Stdout, data); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func disassemble(w io.Writer, code []byte) error {
	for index, offset := 0, 0; offset < len(code); index++ {
		tag := isa.Tag(code[offset] & 0xF)

		size := 16
		if tag.IsALU() {
			size = 16 * tag.Quadwords()
		}
		if offset+size > len(code) {
			return fmt.Errorf("%w: bundle %d at 0x%x needs %d bytes", errTruncated, index, offset, size)
		}
		body := code[offset : offset+size]

		fmt.Fprintf(w, "; bundle %d @0x%04x %v\n", index, offset, tag)

		switch {
		case tag.IsALU():
			if err := printALU(w, body); err != nil {
				return fmt.Errorf("bundle %d: %w", index, err)
			}
		case tag.IsLoadStore():
			printLoadStore(w, body)
		case tag.IsTexture():
			printTexture(w, body)
		default:
			return fmt.Errorf("bundle %d at 0x%x: unknown tag 0x%x", index, offset, uint8(tag))
		}

		offset += size
	}
	return nil
}

func opName(op isa.ALUOp) string {
	if s, ok := aluOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op.%02x", uint8(op))
}

//nolint:funlen // dev tool: one case per unit kind
func printALU(w io.Writer, b []byte) error {
	control := binary.LittleEndian.Uint32(b)
	fmt.Fprintf(w, "    control 0x%08x next=%v\n", control, isa.Tag(control>>4&0xF))

	units := isa.Unit(control)
	regs := 0
	for _, u := range aluUnits {
		if units&u.unit != 0 && (u.unit.IsVector() || u.unit.IsScalar()) {
			regs++
		}
	}

	pos := isa.ControlWordSize
	regWords := make([]isa.RegInfo, 0, regs)
	for i := 0; i < regs; i++ {
		if pos+isa.RegInfoSize > len(b) {
			return errTruncated
		}
		regWords = append(regWords, isa.UnpackRegInfo(binary.LittleEndian.Uint16(b[pos:])))
		pos += isa.RegInfoSize
	}

	reg := 0
	for _, u := range aluUnits {
		if units&u.unit == 0 {
			continue
		}

		switch {
		case u.unit.IsVector():
			if pos+isa.VectorALUSize > len(b) {
				return errTruncated
			}
			a := isa.UnpackVectorALU(b[pos:])
			r := regWords[reg]
			reg++
			fmt.Fprintf(w, "    %-5s %s.%v r%d mask=0x%02x, r%d swz=0x%02x, r%d swz=0x%02x\n",
				u.name, opName(a.Op), a.RegMode, r.OutReg, a.Mask,
				r.Src1Reg, a.Src1.Swizzle, r.Src2Reg, a.Src2.Swizzle)
			pos += isa.VectorALUSize

		case u.unit.IsScalar():
			if pos+isa.ScalarALUSize > len(b) {
				return errTruncated
			}
			a := isa.UnpackScalarALU(binary.LittleEndian.Uint32(b[pos:]))
			r := regWords[reg]
			reg++
			s1 := isa.UnpackScalarSrc(a.Src1)
			fmt.Fprintf(w, "    %-5s %s r%d.%d full=%v, r%d.%d, src2=0x%03x\n",
				u.name, opName(a.Op), r.OutReg, a.OutputComponent, a.OutputFull,
				r.Src1Reg, s1.Component, a.Src2)
			pos += isa.ScalarALUSize

		case u.unit == isa.UnitBranchCompact:
			if pos+isa.BranchCompactSize > len(b) {
				return errTruncated
			}
			br := isa.UnpackBranchCond(binary.LittleEndian.Uint16(b[pos:]))
			fmt.Fprintf(w, "    %-5s %s -> %v %+d cond=%d\n",
				u.name, branchOpNames[br.Op], br.DestTag, br.Offset, br.Cond)
			pos += isa.BranchCompactSize

		case u.unit == isa.UnitBranch:
			if pos+isa.BranchExtendedSize > len(b) {
				return errTruncated
			}
			br := isa.UnpackBranchExtended(b[pos:])
			fmt.Fprintf(w, "    %-5s %s -> %v %+d cond=0x%04x\n",
				u.name, branchOpNames[br.Op], br.DestTag, br.Offset, br.Cond)
			pos += isa.BranchExtendedSize
		}
	}

	if pos < len(b) {
		fmt.Fprintf(w, "    tail  % x\n", b[pos:])
	}
	return nil
}

func printLoadStore(w io.Writer, b []byte) {
	rec := isa.UnpackLoadStoreRecord(isa.Word128FromLE(b))
	fmt.Fprintf(w, "    next=%v\n", rec.NextType)
	for i, word := range []uint64{rec.Word1, rec.Word2} {
		if word == isa.LoadStoreNop {
			fmt.Fprintf(w, "    ld/st%d nop\n", i)
			continue
		}
		l := isa.UnpackLoadStoreWord(word)
		fmt.Fprintf(w, "    ld/st%d op.%02x r%d mask=0x%x swz=0x%02x addr=0x%x\n",
			i, l.Op, l.Reg, l.Mask, l.Swizzle, l.Address)
	}
}

func printTexture(w io.Writer, b []byte) {
	t := isa.UnpackTextureWord(isa.Word128FromLE(b))
	name, ok := textureOpNames[t.Op]
	if !ok {
		name = fmt.Sprintf("tex.%02x", uint8(t.Op))
	}
	fmt.Fprintf(w, "    next=%v\n", t.NextType)
	fmt.Fprintf(w, "    %s texture=%d sampler=%d mask=0x%x swz=0x%02x cont=%v last=%v\n",
		name, t.TextureHandle, t.SamplerHandle, t.Mask, t.Swizzle, t.Cont, t.Last)
}
