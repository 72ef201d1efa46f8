package isa

// BranchOp is the 3-bit jump/writeout opcode shared by all branch forms.
type BranchOp uint8

// Branch opcodes.
const (
	BranchOpUncond   BranchOp = 1
	BranchOpCond     BranchOp = 2
	BranchOpWriteout BranchOp = 3
	BranchOpDiscard  BranchOp = 4
)

// BranchCondition selects when a conditional branch is taken.
type BranchCondition uint8

// Branch conditions.
const (
	CondWriteFalse BranchCondition = 0
	CondFalse      BranchCondition = 1
	CondTrue       BranchCondition = 2
	CondAlways     BranchCondition = 3
)

// BranchCond is the 16-bit compact conditional branch.
//
//	[0:3]   op
//	[3:7]   dest_tag
//	[7:14]  offset (signed, quadwords)
//	[14:16] cond
type BranchCond struct {
	Op      BranchOp
	DestTag Tag
	Offset  int8
	Cond    BranchCondition
}

// Pack returns the 16-bit encoding of b.
func (b BranchCond) Pack() uint16 {
	var w uint64
	w = put(w, 0, 3, uint64(b.Op))
	w = put(w, 3, 4, uint64(b.DestTag))
	w = put(w, 7, 7, uint64(b.Offset))
	w = put(w, 14, 2, uint64(b.Cond))
	return uint16(w)
}

// UnpackBranchCond decodes a compact conditional branch.
func UnpackBranchCond(v uint16) BranchCond {
	w := uint64(v)
	return BranchCond{
		Op:      BranchOp(get(w, 0, 3)),
		DestTag: Tag(get(w, 3, 4)),
		Offset:  int8(signExtend(get(w, 7, 7), 7)),
		Cond:    BranchCondition(get(w, 14, 2)),
	}
}

// BranchUncond is the 16-bit compact unconditional branch.
//
//	[0:3]  op
//	[3:7]  dest_tag
//	[7:9]  unknown
//	[9:16] offset (signed, quadwords)
type BranchUncond struct {
	Op      BranchOp
	DestTag Tag
	Unknown uint8
	Offset  int8
}

// Pack returns the 16-bit encoding of b.
func (b BranchUncond) Pack() uint16 {
	var w uint64
	w = put(w, 0, 3, uint64(b.Op))
	w = put(w, 3, 4, uint64(b.DestTag))
	w = put(w, 7, 2, uint64(b.Unknown))
	w = put(w, 9, 7, uint64(b.Offset))
	return uint16(w)
}

// UnpackBranchUncond decodes a compact unconditional branch.
func UnpackBranchUncond(v uint16) BranchUncond {
	w := uint64(v)
	return BranchUncond{
		Op:      BranchOp(get(w, 0, 3)),
		DestTag: Tag(get(w, 3, 4)),
		Unknown: uint8(get(w, 7, 2)),
		Offset:  int8(signExtend(get(w, 9, 7), 7)),
	}
}

// BranchExtended is the 48-bit extended branch.
//
//	[0:3]   op
//	[3:7]   dest_tag
//	[7:9]   unknown
//	[9:32]  offset (signed, quadwords)
//	[32:48] cond, a 2-bit condition replicated per lane
type BranchExtended struct {
	Op      BranchOp
	DestTag Tag
	Unknown uint8
	Offset  int32
	Cond    uint16
}

// Pack returns the 48-bit encoding of b.
func (b BranchExtended) Pack() uint64 {
	var w uint64
	w = put(w, 0, 3, uint64(b.Op))
	w = put(w, 3, 4, uint64(b.DestTag))
	w = put(w, 7, 2, uint64(b.Unknown))
	w = put(w, 9, 23, uint64(uint32(b.Offset)))
	w = put(w, 32, 16, uint64(b.Cond))
	return w
}

// AppendBranchExtended appends the 6-byte body of b.
func AppendBranchExtended(buf []byte, b BranchExtended) []byte {
	return appendLE48(buf, b.Pack())
}

// UnpackBranchExtended decodes a 6-byte extended branch body.
func UnpackBranchExtended(buf []byte) BranchExtended {
	w := le48(buf)
	return BranchExtended{
		Op:      BranchOp(get(w, 0, 3)),
		DestTag: Tag(get(w, 3, 4)),
		Unknown: uint8(get(w, 7, 2)),
		Offset:  int32(signExtend(get(w, 9, 23), 23)),
		Cond:    uint16(get(w, 32, 16)),
	}
}
