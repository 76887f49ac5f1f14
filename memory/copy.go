package memory

import (
	"encoding/binary"

	"github.com/reglet-dev/pdk/env"
)

// wordSize is the width of the load_u64/store_u64 primitives.
const wordSize = 8

// store copies b to host memory at offset. Whole words go through StoreU64
// and the tail byte by byte. Wasm memory is little-endian, so the bytes
// land exactly where a byte-wise copy would put them.
func store(h env.Host, offset uint64, b []byte) {
	words := len(b) - len(b)%wordSize
	for i := 0; i < words; i += wordSize {
		h.StoreU64(offset+uint64(i), binary.LittleEndian.Uint64(b[i:]))
	}
	for i := words; i < len(b); i++ {
		h.StoreU8(offset+uint64(i), b[i])
	}
}

// load fills buf from host memory at offset.
func load(h env.Host, offset uint64, buf []byte) {
	words := len(buf) - len(buf)%wordSize
	for i := 0; i < words; i += wordSize {
		binary.LittleEndian.PutUint64(buf[i:], h.LoadU64(offset+uint64(i)))
	}
	for i := words; i < len(buf); i++ {
		buf[i] = h.LoadU8(offset + uint64(i))
	}
}
