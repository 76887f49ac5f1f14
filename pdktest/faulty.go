package pdktest

import (
	"errors"
	"sync"

	"github.com/reglet-dev/pdk/env"
)

// ErrInjected is the error carried by traps raised by FaultyHost.
var ErrInjected = errors.New("pdktest: injected host failure")

// Compile-time interface compliance check
var _ env.Host = (*FaultyHost)(nil)

// FaultyHost wraps an env.Host, traps selected imports on demand and
// records allocation traffic.
type FaultyHost struct {
	env.Host

	allocs map[uint64]int
	frees  map[uint64]int
	mu     sync.Mutex

	// FailAlloc makes Alloc trap.
	FailAlloc bool
	// FailLog makes every log sink trap after it is called.
	FailLog bool
	// FailVarGet makes VarGet trap.
	FailVarGet bool
	// FailOutput makes OutputSet and ErrorSet trap.
	FailOutput bool
}

// NewFaultyHost wraps h.
func NewFaultyHost(h env.Host) *FaultyHost {
	return &FaultyHost{
		Host:   h,
		allocs: make(map[uint64]int),
		frees:  make(map[uint64]int),
	}
}

// Alloc implements env.Host.
func (f *FaultyHost) Alloc(n uint64) uint64 {
	if f.FailAlloc {
		panic(ErrInjected)
	}
	offset := f.Host.Alloc(n)
	f.mu.Lock()
	f.allocs[offset]++
	f.mu.Unlock()
	return offset
}

// Free implements env.Host.
func (f *FaultyHost) Free(offset uint64) {
	f.mu.Lock()
	f.frees[offset]++
	f.mu.Unlock()
	f.Host.Free(offset)
}

// VarGet implements env.Host.
func (f *FaultyHost) VarGet(keyOffset uint64) uint64 {
	if f.FailVarGet {
		panic(ErrInjected)
	}
	return f.Host.VarGet(keyOffset)
}

// OutputSet implements env.Host.
func (f *FaultyHost) OutputSet(offset, length uint64) {
	if f.FailOutput {
		panic(ErrInjected)
	}
	f.Host.OutputSet(offset, length)
}

// ErrorSet implements env.Host.
func (f *FaultyHost) ErrorSet(offset uint64) {
	if f.FailOutput {
		panic(ErrInjected)
	}
	f.Host.ErrorSet(offset)
}

// LogInfo implements env.Host.
func (f *FaultyHost) LogInfo(offset uint64) { f.Host.LogInfo(offset); f.logFault() }

// LogDebug implements env.Host.
func (f *FaultyHost) LogDebug(offset uint64) { f.Host.LogDebug(offset); f.logFault() }

// LogWarn implements env.Host.
func (f *FaultyHost) LogWarn(offset uint64) { f.Host.LogWarn(offset); f.logFault() }

// LogError implements env.Host.
func (f *FaultyHost) LogError(offset uint64) { f.Host.LogError(offset); f.logFault() }

func (f *FaultyHost) logFault() {
	if f.FailLog {
		panic(ErrInjected)
	}
}

// Allocs returns how many allocations the guest made.
func (f *FaultyHost) Allocs() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.allocs {
		n += c
	}
	return n
}

// Frees returns how many times offset was freed.
func (f *FaultyHost) Frees(offset uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frees[offset]
}

// Leaked returns the offsets the guest allocated but never freed.
func (f *FaultyHost) Leaked() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []uint64
	for offset, n := range f.allocs {
		if f.frees[offset] < n {
			out = append(out, offset)
		}
	}
	return out
}
