package isa

// LoadStoreRecordSize is the size in bytes of a load/store bundle.
const LoadStoreRecordSize = 16

// LoadStoreWord is one 60-bit load/store instruction.
//
//	[0:8]   op
//	[8:13]  reg
//	[13:17] mask
//	[17:25] swizzle
//	[25:41] unknown (address registers and offsets)
//	[41:51] varying_parameters
//	[51:60] address
type LoadStoreWord struct {
	Op                uint8
	Reg               uint8
	Mask              uint8
	Swizzle           uint8
	Unknown           uint16
	VaryingParameters uint16
	Address           uint16
}

// LoadStoreWordBits is the packed width of a LoadStoreWord.
const LoadStoreWordBits = 60

// Pack returns the 60-bit encoding of l.
func (l LoadStoreWord) Pack() uint64 {
	var w uint64
	w = put(w, 0, 8, uint64(l.Op))
	w = put(w, 8, 5, uint64(l.Reg))
	w = put(w, 13, 4, uint64(l.Mask))
	w = put(w, 17, 8, uint64(l.Swizzle))
	w = put(w, 25, 16, uint64(l.Unknown))
	w = put(w, 41, 10, uint64(l.VaryingParameters))
	w = put(w, 51, 9, uint64(l.Address))
	return w
}

// UnpackLoadStoreWord decodes a 60-bit load/store instruction.
func UnpackLoadStoreWord(w uint64) LoadStoreWord {
	return LoadStoreWord{
		Op:                uint8(get(w, 0, 8)),
		Reg:               uint8(get(w, 8, 5)),
		Mask:              uint8(get(w, 13, 4)),
		Swizzle:           uint8(get(w, 17, 8)),
		Unknown:           uint16(get(w, 25, 16)),
		VaryingParameters: uint16(get(w, 41, 10)),
		Address:           uint16(get(w, 51, 9)),
	}
}

// LoadStoreRecord is a complete 128-bit load/store bundle.
//
//	[0:4]    type
//	[4:8]    next_type
//	[8:68]   word1
//	[68:128] word2
type LoadStoreRecord struct {
	Type     Tag
	NextType Tag
	Word1    uint64
	Word2    uint64
}

// Pack returns the 128-bit encoding of r.
func (r LoadStoreRecord) Pack() Word128 {
	var w Word128
	w.Set(0, 4, uint64(r.Type))
	w.Set(4, 4, uint64(r.NextType))
	w.Set(8, LoadStoreWordBits, r.Word1)
	w.Set(68, LoadStoreWordBits, r.Word2)
	return w
}

// UnpackLoadStoreRecord decodes a 128-bit load/store bundle.
func UnpackLoadStoreRecord(w Word128) LoadStoreRecord {
	return LoadStoreRecord{
		Type:     Tag(w.Get(0, 4)),
		NextType: Tag(w.Get(4, 4)),
		Word1:    w.Get(8, LoadStoreWordBits),
		Word2:    w.Get(68, LoadStoreWordBits),
	}
}
