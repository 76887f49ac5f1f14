package hostfuncs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T, input string, opts ...KernelOption) *Kernel {
	t.Helper()
	k := NewKernel(opts...)
	require.NoError(t, k.BeginCall(context.Background(), []byte(input)))
	return k
}

func putString(t *testing.T, k *Kernel, s string) uint64 {
	t.Helper()
	offset, err := k.Arena().Put([]byte(s))
	require.NoError(t, err)
	return offset
}

func requireTrap(t *testing.T, function string, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		err := RecoverTrap(recover())
		require.Error(t, err, "expected %s to trap", function)

		var tr *Trap
		require.True(t, errors.As(err, &tr))
		assert.Equal(t, function, tr.Function)
		if target != nil {
			assert.ErrorIs(t, err, target)
		}
	}()
	fn()
}

func TestKernel_Input(t *testing.T) {
	k := newTestKernel(t, "hello")

	offset := k.InputOffset()
	assert.NotZero(t, offset)
	assert.Equal(t, uint64(5), k.InputLength())
	assert.Equal(t, uint64(5), k.Length(offset))

	b, ok := k.Arena().Block(offset)
	require.True(t, ok)
	assert.Equal(t, "hello", string(b))
}

func TestKernel_EmptyInput(t *testing.T) {
	k := newTestKernel(t, "")

	assert.Zero(t, k.InputOffset())
	assert.Zero(t, k.InputLength())
}

func TestKernel_LoadStore(t *testing.T) {
	k := newTestKernel(t, "")
	offset := k.Alloc(16)

	k.StoreU64(offset, 0x0807060504030201)
	k.StoreU8(offset+8, 0xff)

	assert.Equal(t, byte(0x01), k.LoadU8(offset))
	assert.Equal(t, byte(0x08), k.LoadU8(offset+7))
	assert.Equal(t, byte(0xff), k.LoadU8(offset+8))
	assert.Equal(t, uint64(0x0807060504030201), k.LoadU64(offset))

	requireTrap(t, "load_u64", ErrOutOfBounds, func() { k.LoadU64(offset + 9) })
	requireTrap(t, "store_u64", ErrOutOfBounds, func() { k.StoreU64(offset+12, 1) })
	requireTrap(t, "load_u8", ErrInvalidOffset, func() { k.LoadU8(0) })

	k.Free(offset)
	requireTrap(t, "store_u8", nil, func() { k.StoreU8(offset, 1) })
}

func TestKernel_AllocTrapsWhenExhausted(t *testing.T) {
	k := newTestKernel(t, "", WithArena(NewArena(WithMaxArenaSize(16))))

	requireTrap(t, "alloc", ErrOutOfMemory, func() { k.Alloc(32) })
}

func TestKernel_OutputAndError(t *testing.T) {
	k := newTestKernel(t, "in")

	out := putString(t, k, "result")
	k.OutputSet(out, 6)
	assert.Equal(t, "result", string(k.Output()))

	_, ok := k.Error()
	assert.False(t, ok)

	msg := putString(t, k, "bad input")
	k.ErrorSet(msg)
	got, ok := k.Error()
	require.True(t, ok)
	assert.Equal(t, "bad input", got)

	requireTrap(t, "output_set", ErrOutOfBounds, func() { k.OutputSet(out, 7) })
	requireTrap(t, "error_set", ErrInvalidOffset, func() { k.ErrorSet(out + 1) })

	// A new call clears both.
	require.NoError(t, k.BeginCall(context.Background(), nil))
	assert.Nil(t, k.Output())
	_, ok = k.Error()
	assert.False(t, ok)
}

func TestKernel_ConfigGet(t *testing.T) {
	k := newTestKernel(t, "", WithConfig(map[string]string{"name": "pdk", "empty": ""}))

	offset := k.ConfigGet(putString(t, k, "name"))
	require.NotZero(t, offset)
	b, _ := k.Arena().Block(offset)
	assert.Equal(t, "pdk", string(b))

	assert.Zero(t, k.ConfigGet(putString(t, k, "missing")))
	assert.Zero(t, k.ConfigGet(putString(t, k, "empty")))
	requireTrap(t, "config_get", ErrInvalidOffset, func() { k.ConfigGet(0) })
}

func TestKernel_Variables(t *testing.T) {
	k := newTestKernel(t, "")
	key := putString(t, k, "count")

	assert.Zero(t, k.VarGet(key))

	value := putString(t, k, "1")
	k.VarSet(key, value)
	assert.Zero(t, k.Length(value), "var_set takes ownership of the value block")

	first := k.VarGet(key)
	second := k.VarGet(key)
	require.NotZero(t, first)
	assert.NotEqual(t, first, second, "each var_get returns its own copy")
	b, _ := k.Arena().Block(first)
	assert.Equal(t, "1", string(b))

	k.VarSet(key, putString(t, k, "22"))
	b, _ = k.Arena().Block(k.VarGet(key))
	assert.Equal(t, "22", string(b))

	k.VarSet(key, 0)
	assert.Zero(t, k.VarGet(key))

	requireTrap(t, "var_set", ErrInvalidOffset, func() { k.VarSet(key, 3) })
}

func TestKernel_VariablesSurviveCalls(t *testing.T) {
	store := NewMemoryVarStore()
	k := newTestKernel(t, "", WithVarStore(store))
	k.VarSet(putString(t, k, "k"), putString(t, k, "v"))

	require.NoError(t, k.BeginCall(context.Background(), []byte("next")))

	offset := k.VarGet(putString(t, k, "k"))
	b, _ := k.Arena().Block(offset)
	assert.Equal(t, "v", string(b))
}

func TestKernel_VarLimit(t *testing.T) {
	k := newTestKernel(t, "", WithMaxVarBytes(3))

	k.VarSet(putString(t, k, "a"), putString(t, k, "abc"))
	requireTrap(t, "var_set", nil, func() {
		k.VarSet(putString(t, k, "b"), putString(t, k, "d"))
	})
	k.VarSet(putString(t, k, "a"), putString(t, k, "xyz"))
}

func TestKernel_Logging(t *testing.T) {
	type line struct {
		level slog.Level
		msg   string
	}
	var got []line
	k := newTestKernel(t, "", WithLogSink(func(level slog.Level, msg string) {
		got = append(got, line{level, msg})
	}))

	k.LogError(putString(t, k, "e"))
	k.LogWarn(putString(t, k, "w"))
	k.LogInfo(putString(t, k, "i"))
	k.LogDebug(putString(t, k, "d"))

	assert.Equal(t, []line{
		{slog.LevelError, "e"},
		{slog.LevelWarn, "w"},
		{slog.LevelInfo, "i"},
		{slog.LevelDebug, "d"},
	}, got)

	requireTrap(t, "log_info", ErrInvalidOffset, func() { k.LogInfo(0) })
}
