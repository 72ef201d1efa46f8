// Package mir holds the scheduled machine IR handed to the encoder.
//
// A Program is an ordered list of Bundles; each Bundle groups the
// Instructions issued together in one VLIW slot. Scheduling, register
// allocation and bundle formation have already happened by the time a
// Program is built: the encoder only packs the final bit layouts.
package mir

import "github.com/gogpu/midgard/isa"

// Stage is the shader stage a program was compiled for.
type Stage uint8

// Shader stages.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "unknown"
}

// Kind is the instruction class.
type Kind uint8

// Instruction classes.
const (
	KindALU Kind = iota
	KindLoadStore
	KindTexture
	KindBranch
)

func (k Kind) String() string {
	switch k {
	case KindALU:
		return "alu"
	case KindLoadStore:
		return "load_store"
	case KindTexture:
		return "texture"
	case KindBranch:
		return "branch"
	}
	return "unknown"
}

// BranchForm selects the body layout of a branch.
type BranchForm uint8

// Branch forms.
const (
	BranchCompactCond BranchForm = iota
	BranchCompactUncond
	BranchExtended
)

// Branch is the payload of a KindBranch instruction. Only the body for
// Form is emitted.
type Branch struct {
	Form     BranchForm         `cbor:"1,keyasint"`
	Cond     isa.BranchCond     `cbor:"2,keyasint,omitempty"`
	Uncond   isa.BranchUncond   `cbor:"3,keyasint,omitempty"`
	Extended isa.BranchExtended `cbor:"4,keyasint,omitempty"`
}

// Instruction is a single scheduled operation.
//
// Mask is the destination write mask. Its meaning depends on RegMode: for
// 32-bit lanes bit c writes component c, for 16-bit lanes each bit writes
// one half-lane, for 64-bit lanes only bits 0 and 1 are meaningful.
//
// Swizzle holds one four-component selector per source operand. Selectors
// 0..3 address the low half of a register, 4..7 the high half of
// subdivided lanes.
type Instruction struct {
	Kind    Kind        `cbor:"1,keyasint"`
	Unit    isa.Unit    `cbor:"2,keyasint,omitempty"`
	Mask    uint8       `cbor:"3,keyasint,omitempty"`
	Swizzle [2][4]uint8 `cbor:"4,keyasint"`
	RegMode isa.RegMode `cbor:"5,keyasint,omitempty"`

	HasInlineConstant bool   `cbor:"6,keyasint,omitempty"`
	InlineConstant    uint16 `cbor:"7,keyasint,omitempty"`

	Registers isa.RegInfo `cbor:"8,keyasint,omitempty"`

	// ALU.RegMode is replaced by RegMode when the body is packed.
	ALU       isa.VectorALU     `cbor:"9,keyasint,omitempty"`
	LoadStore isa.LoadStoreWord `cbor:"10,keyasint,omitempty"`
	Texture   isa.TextureWord   `cbor:"11,keyasint,omitempty"`
	Branch    *Branch           `cbor:"12,keyasint,omitempty"`
}

// IsBranch reports whether ins is a branch. Branches have no register word.
func (ins *Instruction) IsBranch() bool { return ins.Kind == KindBranch }

// Bundle is a group of instructions issued together.
type Bundle struct {
	Tag          isa.Tag        `cbor:"1,keyasint"`
	Control      uint32         `cbor:"2,keyasint,omitempty"`
	Padding      int            `cbor:"3,keyasint,omitempty"`
	HasConstants bool           `cbor:"4,keyasint,omitempty"`
	Constants    [4]uint32      `cbor:"5,keyasint"`
	Instructions []*Instruction `cbor:"6,keyasint"`

	// LoopsEntered and LoopsExited bracket loop bodies: the loop depth is
	// raised by LoopsEntered before this bundle is encoded and lowered by
	// LoopsExited after it.
	LoopsEntered uint8 `cbor:"7,keyasint,omitempty"`
	LoopsExited  uint8 `cbor:"8,keyasint,omitempty"`
}

// Program is a fully scheduled shader.
type Program struct {
	Name    string    `cbor:"1,keyasint,omitempty"`
	Stage   Stage     `cbor:"2,keyasint"`
	Bundles []*Bundle `cbor:"3,keyasint"`

	// TextureOps is the number of texture instructions in the program.
	TextureOps int `cbor:"4,keyasint"`
}

// CountTextureOps returns the number of texture bundles in p.
func (p *Program) CountTextureOps() int {
	n := 0
	for _, b := range p.Bundles {
		if b != nil && b.Tag.IsTexture() {
			n++
		}
	}
	return n
}

// NextTag returns the tag of the bundle following index i, or
// isa.TagBreak after the final bundle.
func (p *Program) NextTag(i int) isa.Tag {
	if i+1 < len(p.Bundles) && p.Bundles[i+1] != nil {
		return p.Bundles[i+1].Tag
	}
	return isa.TagBreak
}
