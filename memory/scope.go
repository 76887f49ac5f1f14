package memory

import (
	"github.com/reglet-dev/pdk/env"
)

// WithBytes allocates a region holding b, passes it to fn and releases it
// when fn returns or panics. fn may Transfer the region, in which case the
// release is skipped.
func WithBytes(h env.Host, b []byte, fn func(*Region) error) error {
	r, err := AllocateBytes(h, b)
	if err != nil {
		return err
	}
	defer func() {
		if !r.Released() {
			_ = r.Release()
		}
	}()
	return fn(r)
}

// WithString is WithBytes for the UTF-8 bytes of s.
func WithString(h env.Host, s string, fn func(*Region) error) error {
	return WithBytes(h, []byte(s), fn)
}
