package emit

import (
	"fmt"

	"github.com/gogpu/midgard/mir"
)

// EmitProgram encodes every bundle of p in program order and appends the
// machine code to out. Loop markers on each bundle update the loop depth
// around its emission. On error the contents of out are incomplete and
// should be discarded.
func EmitProgram(p *mir.Program, out *Buffer) error {
	st := NewState(p)

	for i, b := range p.Bundles {
		if b != nil {
			st.LoopDepth += int(b.LoopsEntered)
		}

		if err := EmitBundle(st, b, p.NextTag(i), out); err != nil {
			slogger().Warn("encoding aborted", "program", p.Name, "bundle", i, "err", err)
			return err
		}

		st.LoopDepth -= int(b.LoopsExited)
		if st.LoopDepth < 0 {
			err := &EncodeError{
				Bundle:      i,
				Instruction: -1,
				Tag:         b.Tag,
				Err:         fmt.Errorf("%w: loop exits outnumber loop entries", ErrOutOfRange),
			}
			slogger().Warn("encoding aborted", "program", p.Name, "bundle", i, "err", err)
			return err
		}
	}

	slogger().Debug("emitted program",
		"program", p.Name,
		"stage", p.Stage,
		"bundles", len(p.Bundles),
		"bytes", out.Len())
	return nil
}
