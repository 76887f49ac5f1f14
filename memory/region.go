// Package memory wraps host-owned allocations in bounds-checked regions.
//
// A Region is a single (offset, length) handle into the host's memory. The
// guest never reads or writes host memory except through a Region, and
// never allocates memory of its own: every allocation is forwarded to the
// host through env.Host.
//
// Regions come in two flavours. Owned regions are created by Allocate and
// friends; whoever holds one must Release it exactly once. Borrowed regions
// wrap an offset the host handed out (the call input, a variable value, an
// HTTP response) and must never be released by the guest.
package memory

import (
	"github.com/reglet-dev/pdk/env"
)

// Ownership says who is responsible for freeing a region.
type Ownership uint8

const (
	// Owned regions were allocated by the guest and must be released by it.
	Owned Ownership = iota
	// Borrowed regions belong to the host and must not be released.
	Borrowed
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

type state uint8

const (
	live state = iota
	released
	transferred
)

// Region is a fixed-length window into host memory.
type Region struct {
	host      env.Host
	offset    uint64
	length    uint64
	ownership Ownership
	state     state
}

// New wraps a host allocation whose length is already known. The returned
// region is borrowed.
func New(h env.Host, offset, length uint64) (*Region, error) {
	if length == 0 {
		return nil, regionError("wrap", offset, length, ErrInvalidRegion)
	}
	return &Region{host: h, offset: offset, length: length, ownership: Borrowed}, nil
}

// Lookup wraps a host allocation and asks the host for its length. The
// returned region is borrowed.
func Lookup(h env.Host, offset uint64) (*Region, error) {
	length := h.Length(offset)
	if length == 0 {
		return nil, regionError("lookup", offset, 0, ErrInvalidRegion)
	}
	return &Region{host: h, offset: offset, length: length, ownership: Borrowed}, nil
}

// Allocate asks the host for a fresh allocation of length bytes.
//
// The host either succeeds or traps; a trap is not recoverable here.
func Allocate(h env.Host, length uint64) (*Region, error) {
	if length == 0 {
		return nil, regionError("allocate", 0, length, ErrInvalidRegion)
	}
	offset := h.Alloc(length)
	return &Region{host: h, offset: offset, length: length, ownership: Owned}, nil
}

// AllocateBytes allocates a region sized exactly to b and copies b into it.
func AllocateBytes(h env.Host, b []byte) (*Region, error) {
	r, err := Allocate(h, uint64(len(b)))
	if err != nil {
		return nil, err
	}
	if err := r.Write(b); err != nil {
		_ = r.Release()
		return nil, err
	}
	return r, nil
}

// AllocateString allocates a region holding the UTF-8 bytes of s.
func AllocateString(h env.Host, s string) (*Region, error) {
	return AllocateBytes(h, []byte(s))
}

// Offset returns the host handle of the region.
func (r *Region) Offset() uint64 {
	return r.offset
}

// Len returns the capacity of the region in bytes.
func (r *Region) Len() uint64 {
	return r.length
}

// Ownership reports whether the guest or the host frees the region.
func (r *Region) Ownership() Ownership {
	return r.ownership
}

// Released reports whether the region can no longer be used by the guest.
func (r *Region) Released() bool {
	return r.state != live
}

// Write copies b to the start of the region. Bytes past len(b) keep
// whatever the allocation held before.
func (r *Region) Write(b []byte) error {
	if r.state != live {
		return regionError("write", r.offset, r.length, ErrReleased)
	}
	if uint64(len(b)) > r.length {
		return regionError("write", r.offset, r.length, ErrLengthMismatch)
	}
	store(r.host, r.offset, b)
	return nil
}

// WriteString writes the UTF-8 encoding of s.
func (r *Region) WriteString(s string) error {
	return r.Write([]byte(s))
}

// Read returns a copy of the full region.
func (r *Region) Read() ([]byte, error) {
	if r.state != live {
		return nil, regionError("read", r.offset, r.length, ErrReleased)
	}
	buf := make([]byte, r.length)
	load(r.host, r.offset, buf)
	return buf, nil
}

// ReadString returns the region's contents as a string. The bytes are not
// checked for well-formed UTF-8.
func (r *Region) ReadString() (string, error) {
	b, err := r.Read()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Release frees an owned region. Releasing a borrowed region returns
// ErrNotOwned and releasing twice returns ErrReleased; neither reaches the
// host.
func (r *Region) Release() error {
	if r.ownership == Borrowed {
		return regionError("release", r.offset, r.length, ErrNotOwned)
	}
	if r.state != live {
		return regionError("release", r.offset, r.length, ErrReleased)
	}
	r.state = released
	r.host.Free(r.offset)
	return nil
}

// Transfer hands the region over to the host and returns its offset. An
// owned region cannot be read, written or released afterwards. Borrowed
// regions already belong to the host and stay usable.
func (r *Region) Transfer() (uint64, error) {
	if r.state != live {
		return 0, regionError("transfer", r.offset, r.length, ErrReleased)
	}
	if r.ownership == Owned {
		r.state = transferred
	}
	return r.offset, nil
}
