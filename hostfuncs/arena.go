package hostfuncs

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultMaxArenaSize is the per-call allocation budget (64MB). The budget
// is cumulative: freed blocks are not reused before Reset, so their bytes
// keep counting until the next call begins.
const DefaultMaxArenaSize = 64 * 1024 * 1024

// arenaBase is the first offset handed out. Offset 0 is reserved to mean
// "no allocation" across the whole import table.
const arenaBase = 8

// arenaAlign keeps every block word-aligned so load_u64/store_u64 on a
// block's start never straddle two blocks.
const arenaAlign = 8

// Arena is the host-owned memory plugins allocate from. Blocks are bump
// allocated and never reused until Reset, so a stale offset can only ever
// miss; it can never alias a newer block.
type Arena struct {
	mu     sync.Mutex
	mem    []byte
	blocks map[uint64]uint64 // offset -> length
	starts []uint64          // sorted live offsets
	next   uint64
	live   uint64
	max    uint64
}

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithMaxArenaSize sets the cumulative allocation budget between resets.
// Values <= 0 are ignored.
func WithMaxArenaSize(n int) ArenaOption {
	return func(a *Arena) {
		if n > 0 {
			a.max = uint64(n)
		}
	}
}

// NewArena creates an empty arena.
func NewArena(opts ...ArenaOption) *Arena {
	a := &Arena{
		blocks: make(map[uint64]uint64),
		next:   arenaBase,
		max:    DefaultMaxArenaSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Alloc reserves n bytes and returns their offset. It returns
// ErrOutOfMemory once the bytes handed out since the last Reset, freed or
// not, would exceed the budget.
func (a *Arena) Alloc(n uint64) (uint64, error) {
	if n == 0 {
		return 0, fmt.Errorf("%w: zero-length allocation", ErrInvalidOffset)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	offset := align(a.next)
	end := offset + n
	if end-arenaBase > a.max || end < offset {
		return 0, fmt.Errorf("%w: requested %d bytes, %d allocated since reset (%d live), budget %d",
			ErrOutOfMemory, n, a.next-arenaBase, a.live, a.max)
	}
	if uint64(len(a.mem)) < end {
		grown := make([]byte, growTo(uint64(len(a.mem)), end))
		copy(grown, a.mem)
		a.mem = grown
	}
	a.blocks[offset] = n
	a.starts = append(a.starts, offset) // offsets only grow, so starts stays sorted
	a.next = end
	a.live += n
	return offset, nil
}

// Free releases the block at offset. Unknown offsets are ignored.
func (a *Arena) Free(offset uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.blocks[offset]
	if !ok {
		return
	}
	delete(a.blocks, offset)
	i := sort.Search(len(a.starts), func(i int) bool { return a.starts[i] >= offset })
	a.starts = append(a.starts[:i], a.starts[i+1:]...)
	a.live -= n
}

// Length returns the length of the block at offset, or 0.
func (a *Arena) Length(offset uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blocks[offset]
}

// Read copies n bytes starting at offset. The range must lie inside one
// live block.
func (a *Arena) Read(offset, n uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(offset, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, a.mem[offset:offset+n])
	return out, nil
}

// Write copies b to offset. The range must lie inside one live block.
func (a *Arena) Write(offset uint64, b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(offset, uint64(len(b))); err != nil {
		return err
	}
	copy(a.mem[offset:], b)
	return nil
}

// Block returns a copy of the whole block at offset.
func (a *Arena) Block(offset uint64) ([]byte, bool) {
	n := a.Length(offset)
	if n == 0 {
		return nil, false
	}
	b, err := a.Read(offset, n)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Put allocates a block holding b and returns its offset. Empty input
// yields offset 0.
func (a *Arena) Put(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	offset, err := a.Alloc(uint64(len(b)))
	if err != nil {
		return 0, err
	}
	return offset, a.Write(offset, b)
}

// Stats returns the number of live blocks and the bytes they hold.
func (a *Arena) Stats() (blocks int, bytes uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks), a.live
}

// Reset drops every block. Offsets handed out before Reset become invalid.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	clear(a.blocks)
	a.starts = a.starts[:0]
	clear(a.mem)
	a.next = arenaBase
	a.live = 0
}

// check verifies [offset, offset+n) is inside a single live block.
// Callers hold a.mu.
func (a *Arena) check(offset, n uint64) error {
	i := sort.Search(len(a.starts), func(i int) bool { return a.starts[i] > offset })
	if i == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}
	start := a.starts[i-1]
	if offset+n > start+a.blocks[start] || offset+n < offset {
		return fmt.Errorf("%w: [%d, %d) outside block at %d (length %d)", ErrOutOfBounds, offset, offset+n, start, a.blocks[start])
	}
	return nil
}

func align(n uint64) uint64 {
	return (n + arenaAlign - 1) &^ (arenaAlign - 1)
}

func growTo(current, need uint64) uint64 {
	size := current
	if size == 0 {
		size = 4096
	}
	for size < need {
		size *= 2
	}
	return size
}
