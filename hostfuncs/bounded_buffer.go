package hostfuncs

import (
	"bytes"
	"io"
)

// DefaultMaxResponseSize is the default limit for HTTP response bodies
// handed to a plugin (10MB). The body is copied into the arena, so an
// unbounded body would let a remote server exhaust plugin memory.
const DefaultMaxResponseSize = 10 * 1024 * 1024

// BoundedBuffer collects at most limit bytes. Anything past the limit is
// dropped and Truncated is set.
type BoundedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	Truncated bool
}

// NewBoundedBuffer creates a buffer that holds up to limit bytes.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{limit: limit}
}

// Write implements io.Writer. It always reports len(p) written so io.Copy
// does not fail with a short write once the limit is reached.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buffer.Len()
	if len(p) > room {
		b.Truncated = true
		p = p[:max(room, 0)]
	}
	if _, err := b.buffer.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadFrom implements io.ReaderFrom. It stops reading one byte past the
// limit, so a body far larger than the limit is not drained over the
// network just to be thrown away.
func (b *BoundedBuffer) ReadFrom(r io.Reader) (int64, error) {
	room := int64(b.limit - b.buffer.Len())
	n, err := b.buffer.ReadFrom(io.LimitReader(r, max(room, 0)+1))
	if int64(b.buffer.Len()) > int64(b.limit) {
		b.Truncated = true
		b.buffer.Truncate(b.limit)
	}
	return n, err
}

// Bytes returns the buffered data.
func (b *BoundedBuffer) Bytes() []byte { return b.buffer.Bytes() }
