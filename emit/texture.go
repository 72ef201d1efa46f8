package emit

import (
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// ComputesDerivatives reports whether a texture op takes screen-space
// derivatives and therefore needs helper invocations. Implicit-LOD sampling
// only does so in fragment shaders.
func ComputesDerivatives(stage mir.Stage, op isa.TextureOp) bool {
	switch op {
	case isa.TextureOpNormal:
		return stage == mir.StageFragment
	case isa.TextureOpDFDX, isa.TextureOpDFDY:
		return true
	}
	return false
}

// Continuation computes the cont/last flags of a texture instruction.
// remaining is the number of texture instructions after this one.
//
// Helper invocations stay alive while any later texture instruction may
// need them. Inside a loop, a later iteration can run this instruction
// again, so helpers are kept alive for the whole loop.
func Continuation(derivatives bool, remaining, loopDepth int) (cont, last bool) {
	if !derivatives {
		return true, true
	}
	cont = remaining > 0 || loopDepth > 0
	return cont, !cont
}
