package hostfuncs

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reglet-dev/pdk/env"
)

// Compile-time interface compliance check
var _ env.Host = (*Kernel)(nil)

// LogSink receives plugin log lines.
type LogSink func(level slog.Level, message string)

// Kernel is a pure Go implementation of the extism:host/env import table.
// It owns the arena plugins allocate from, the current call's input, output
// and error, and the plugin's config and variables.
//
// A Kernel serves one plugin and one call at a time. BeginCall resets the
// per-call state; config and variables survive between calls.
type Kernel struct {
	arena  *Arena
	vars   VarStore
	config map[string]string
	sink   LogSink
	http   httpConfig

	ctx         context.Context
	input       uint64
	inputLength uint64
	output      [2]uint64
	errorOffset uint64
	status      int32
	maxVarBytes int

	mu sync.Mutex
}

// KernelOption configures a Kernel.
type KernelOption func(*Kernel)

// WithArena sets the arena the kernel allocates from.
func WithArena(a *Arena) KernelOption {
	return func(k *Kernel) {
		k.arena = a
	}
}

// WithVarStore sets where variables persist.
func WithVarStore(s VarStore) KernelOption {
	return func(k *Kernel) {
		k.vars = s
	}
}

// WithMaxVarBytes caps the combined size of stored variables.
func WithMaxVarBytes(n int) KernelOption {
	return func(k *Kernel) {
		if n > 0 {
			k.maxVarBytes = n
		}
	}
}

// WithConfig sets the key/value config visible through config_get.
func WithConfig(cfg map[string]string) KernelOption {
	return func(k *Kernel) {
		k.config = make(map[string]string, len(cfg))
		for key, v := range cfg {
			k.config[key] = v
		}
	}
}

// WithLogSink sets where plugin log lines go. The default writes them to
// slog.Default().
func WithLogSink(sink LogSink) KernelOption {
	return func(k *Kernel) {
		if sink != nil {
			k.sink = sink
		}
	}
}

// WithHTTPOptions configures outbound HTTP made on behalf of the plugin.
func WithHTTPOptions(opts ...HTTPOption) KernelOption {
	return func(k *Kernel) {
		for _, opt := range opts {
			opt(&k.http)
		}
	}
}

// NewKernel creates a kernel with an empty arena, in-memory variables and
// no config.
func NewKernel(opts ...KernelOption) *Kernel {
	k := &Kernel{
		config:      map[string]string{},
		http:        defaultHTTPConfig(),
		ctx:         context.Background(),
		maxVarBytes: DefaultMaxVarBytes,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.arena == nil {
		k.arena = NewArena()
	}
	if k.vars == nil {
		k.vars = NewMemoryVarStore()
	}
	if k.sink == nil {
		k.sink = func(level slog.Level, msg string) {
			slog.Log(context.Background(), level, msg, "source", "plugin")
		}
	}
	return k
}

// Arena returns the kernel's arena.
func (k *Kernel) Arena() *Arena {
	return k.arena
}

// BeginCall clears the previous call's memory and installs input for the
// next one. ctx bounds host work done on the plugin's behalf (HTTP).
func (k *Kernel) BeginCall(ctx context.Context, input []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	k.arena.Reset()
	k.ctx = ctx
	k.output = [2]uint64{}
	k.errorOffset = 0
	k.status = 0

	offset, err := k.arena.Put(input)
	if err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	k.input = offset
	k.inputLength = uint64(len(input))
	return nil
}

// Output returns the bytes the plugin marked as its output.
func (k *Kernel) Output() []byte {
	k.mu.Lock()
	offset, length := k.output[0], k.output[1]
	k.mu.Unlock()

	if length == 0 {
		return nil
	}
	b, err := k.arena.Read(offset, length)
	if err != nil {
		return nil
	}
	return b
}

// Error returns the error message the plugin reported, if any.
func (k *Kernel) Error() (string, bool) {
	k.mu.Lock()
	offset := k.errorOffset
	k.mu.Unlock()

	if offset == 0 {
		return "", false
	}
	b, ok := k.arena.Block(offset)
	if !ok {
		return "", false
	}
	return string(b), true
}

// InputOffset implements env.Host.
func (k *Kernel) InputOffset() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.input
}

// InputLength implements env.Host.
func (k *Kernel) InputLength() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.inputLength
}

// Length implements env.Host.
func (k *Kernel) Length(offset uint64) uint64 {
	return k.arena.Length(offset)
}

// Alloc implements env.Host. Exhausting the arena traps.
func (k *Kernel) Alloc(n uint64) uint64 {
	offset, err := k.arena.Alloc(n)
	if err != nil {
		trap("alloc", err)
	}
	return offset
}

// Free implements env.Host.
func (k *Kernel) Free(offset uint64) {
	k.arena.Free(offset)
}

// LoadU8 implements env.Host.
func (k *Kernel) LoadU8(offset uint64) byte {
	b, err := k.arena.Read(offset, 1)
	if err != nil {
		trap("load_u8", err)
	}
	return b[0]
}

// StoreU8 implements env.Host.
func (k *Kernel) StoreU8(offset uint64, v byte) {
	if err := k.arena.Write(offset, []byte{v}); err != nil {
		trap("store_u8", err)
	}
}

// LoadU64 implements env.Host.
func (k *Kernel) LoadU64(offset uint64) uint64 {
	b, err := k.arena.Read(offset, 8)
	if err != nil {
		trap("load_u64", err)
	}
	return binary.LittleEndian.Uint64(b)
}

// StoreU64 implements env.Host.
func (k *Kernel) StoreU64(offset uint64, v uint64) {
	if err := k.arena.Write(offset, binary.LittleEndian.AppendUint64(nil, v)); err != nil {
		trap("store_u64", err)
	}
}

// OutputSet implements env.Host.
func (k *Kernel) OutputSet(offset, length uint64) {
	if length > 0 {
		if _, err := k.arena.Read(offset, length); err != nil {
			trap("output_set", err)
		}
	}
	k.mu.Lock()
	k.output = [2]uint64{offset, length}
	k.mu.Unlock()
}

// ErrorSet implements env.Host.
func (k *Kernel) ErrorSet(offset uint64) {
	if offset != 0 && k.arena.Length(offset) == 0 {
		trap("error_set", fmt.Errorf("%w: %d", ErrInvalidOffset, offset))
	}
	k.mu.Lock()
	k.errorOffset = offset
	k.mu.Unlock()
}

// ConfigGet implements env.Host.
func (k *Kernel) ConfigGet(keyOffset uint64) uint64 {
	key := k.mustBlock("config_get", keyOffset)
	v, ok := k.config[string(key)]
	if !ok || v == "" {
		return 0
	}
	return k.put("config_get", []byte(v))
}

// VarGet implements env.Host. Each call hands out a fresh copy of the
// value; the copy lives until the guest frees it or the call ends.
func (k *Kernel) VarGet(keyOffset uint64) uint64 {
	key := k.mustBlock("var_get", keyOffset)
	v, ok, err := k.vars.Get(string(key))
	if err != nil {
		trap("var_get", err)
	}
	if !ok || len(v) == 0 {
		return 0
	}
	return k.put("var_get", v)
}

// VarSet implements env.Host. The host copies the value into its store and
// takes ownership of the value block, which is freed. A zero valueOffset
// deletes the variable.
func (k *Kernel) VarSet(keyOffset, valueOffset uint64) {
	key := string(k.mustBlock("var_set", keyOffset))
	if valueOffset == 0 {
		if err := k.vars.Delete(key); err != nil {
			trap("var_set", err)
		}
		return
	}

	value := k.mustBlock("var_set", valueOffset)
	size, err := k.vars.Size()
	if err != nil {
		trap("var_set", err)
	}
	previous, _, _ := k.vars.Get(key)
	if size-len(previous)+len(value) > k.maxVarBytes {
		trap("var_set", fmt.Errorf("variable store limit of %d bytes exceeded", k.maxVarBytes))
	}
	if err := k.vars.Set(key, value); err != nil {
		trap("var_set", err)
	}
	k.arena.Free(valueOffset)
}

// LogInfo implements env.Host.
func (k *Kernel) LogInfo(offset uint64) { k.log("log_info", slog.LevelInfo, offset) }

// LogDebug implements env.Host.
func (k *Kernel) LogDebug(offset uint64) { k.log("log_debug", slog.LevelDebug, offset) }

// LogWarn implements env.Host.
func (k *Kernel) LogWarn(offset uint64) { k.log("log_warn", slog.LevelWarn, offset) }

// LogError implements env.Host.
func (k *Kernel) LogError(offset uint64) { k.log("log_error", slog.LevelError, offset) }

func (k *Kernel) log(function string, level slog.Level, offset uint64) {
	k.sink(level, string(k.mustBlock(function, offset)))
}

// HTTPStatusCode implements env.Host.
func (k *Kernel) HTTPStatusCode() int32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.status
}

func (k *Kernel) mustBlock(function string, offset uint64) []byte {
	b, ok := k.arena.Block(offset)
	if !ok {
		trap(function, fmt.Errorf("%w: %d", ErrInvalidOffset, offset))
	}
	return b
}

func (k *Kernel) put(function string, b []byte) uint64 {
	offset, err := k.arena.Put(b)
	if err != nil {
		trap(function, err)
	}
	return offset
}
