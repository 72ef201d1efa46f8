package isa

import "encoding/binary"

// lowMask returns a mask of the low width bits.
func lowMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// put stores v into word[off : off+width], truncating v to width bits.
func put(word uint64, off, width uint, v uint64) uint64 {
	m := lowMask(width)
	return word&^(m<<off) | (v&m)<<off
}

// get extracts word[off : off+width].
func get(word uint64, off, width uint) uint64 {
	return word >> off & lowMask(width)
}

func putBool(word uint64, off uint, v bool) uint64 {
	if v {
		return put(word, off, 1, 1)
	}
	return put(word, off, 1, 0)
}

func getBool(word uint64, off uint) bool { return get(word, off, 1) != 0 }

// signExtend interprets the low width bits of v as two's complement.
func signExtend(v uint64, width uint) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}

// Word128 is a 128-bit hardware word. Bit 0 is the least significant bit of Lo.
type Word128 struct {
	Lo, Hi uint64
}

// Set stores v into bits [off, off+width) of w. Fields may straddle the
// 64-bit boundary. Width must not exceed 64.
func (w *Word128) Set(off, width uint, v uint64) {
	v &= lowMask(width)
	if off >= 64 {
		w.Hi = put(w.Hi, off-64, width, v)
		return
	}
	low := width
	if off+width > 64 {
		low = 64 - off
	}
	w.Lo = put(w.Lo, off, low, v)
	if low < width {
		w.Hi = put(w.Hi, 0, width-low, v>>low)
	}
}

// Get extracts bits [off, off+width) of w.
func (w Word128) Get(off, width uint) uint64 {
	if off >= 64 {
		return get(w.Hi, off-64, width)
	}
	v := w.Lo >> off
	if off+width > 64 {
		v |= w.Hi << (64 - off)
	}
	return v & lowMask(width)
}

// AppendLE appends the 16 little-endian bytes of w to b.
func (w Word128) AppendLE(b []byte) []byte {
	b = binary.LittleEndian.AppendUint64(b, w.Lo)
	return binary.LittleEndian.AppendUint64(b, w.Hi)
}

// Word128FromLE decodes 16 little-endian bytes.
func Word128FromLE(b []byte) Word128 {
	return Word128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// appendLE48 appends the low 48 bits of v as 6 little-endian bytes.
func appendLE48(b []byte, v uint64) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(v))
	return binary.LittleEndian.AppendUint16(b, uint16(v>>32))
}

// le48 decodes 6 little-endian bytes.
func le48(b []byte) uint64 {
	return uint64(binary.LittleEndian.Uint32(b[0:4])) | uint64(binary.LittleEndian.Uint16(b[4:6]))<<32
}
