package emit

// Buffer is the append-only emission buffer for one program. Bytes are
// never rewritten once appended.
type Buffer struct {
	data []byte
}

// NewBuffer creates a buffer with room for capacity bytes.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Len returns the number of bytes emitted so far.
func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the emitted bytes. The slice aliases the buffer and must
// not be modified.
func (b *Buffer) Bytes() []byte { return b.data }

// Write appends p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
