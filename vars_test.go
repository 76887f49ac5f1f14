package pdk_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pdk"
	"github.com/reglet-dev/pdk/hostfuncs"
	"github.com/reglet-dev/pdk/memory"
	"github.com/reglet-dev/pdk/pdktest"
)

func TestVariables_SetGetRemoveSequence(t *testing.T) {
	type step struct {
		set    string
		remove bool
	}
	sequences := [][]step{
		{{set: "a"}},
		{{set: "a"}, {set: "b"}},
		{{set: "a"}, {remove: true}},
		{{remove: true}},
		{{set: "a"}, {remove: true}, {set: "c"}},
		{{set: "long value that spans several words"}, {set: "x"}, {remove: true}, {remove: true}},
	}

	for i, seq := range sequences {
		t.Run(fmt.Sprintf("sequence %d", i), func(t *testing.T) {
			p := pdk.New(pdktest.NewKernel(t, nil))

			var want string
			present := false
			for _, s := range seq {
				if s.remove {
					require.NoError(t, p.RemoveVariable("key"))
					present = false
				} else {
					require.NoError(t, p.SetVariableString("key", s.set))
					want, present = s.set, true
				}

				got, ok := p.GetVariableString("key")
				assert.Equal(t, present, ok)
				if present {
					assert.Equal(t, want, got)
				}
			}
		})
	}
}

func TestGetVariable_ReturnsBorrowedRegion(t *testing.T) {
	p := pdk.New(pdktest.NewKernel(t, nil))
	require.NoError(t, p.SetVariableBytes("blob", []byte{1, 2, 3}))

	r, ok := p.GetVariable("blob")
	require.True(t, ok)
	assert.Equal(t, memory.Borrowed, r.Ownership())
	assert.ErrorIs(t, r.Release(), memory.ErrNotOwned)

	b, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestGetVariable_FailuresReadAsAbsent(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	require.NoError(t, pdk.New(k).SetVariableString("key", "value"))

	host := pdktest.NewFaultyHost(k)
	p := pdk.New(host)

	host.FailVarGet = true
	r, ok := p.GetVariable("key")
	assert.False(t, ok)
	assert.Nil(t, r)
	assert.Empty(t, host.Leaked(), "name region must be released even when var_get traps")

	host.FailVarGet = false
	host.FailAlloc = true
	_, ok = p.GetVariable("key")
	assert.False(t, ok)

	host.FailAlloc = false
	_, ok = p.GetVariable("")
	assert.False(t, ok)
}

func TestSetVariable_TransfersRegion(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	host := pdktest.NewFaultyHost(k)
	p := pdk.New(host)

	r, err := memory.AllocateString(host, "owned value")
	require.NoError(t, err)

	require.NoError(t, p.SetVariable("key", r))
	assert.True(t, r.Released())
	assert.ErrorIs(t, r.Release(), memory.ErrReleased)
	assert.Zero(t, host.Frees(r.Offset()), "the guest must not free a value it handed to the host")

	got, ok := p.GetVariableString("key")
	require.True(t, ok)
	assert.Equal(t, "owned value", got)

	// Name regions are scoped; only the transferred value remains outstanding.
	assert.Equal(t, []uint64{r.Offset()}, host.Leaked())
}

func TestSetVariable_ReleasedRegion(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	r, err := memory.AllocateString(k, "gone")
	require.NoError(t, err)
	require.NoError(t, r.Release())

	err = p.SetVariable("key", r)
	require.ErrorIs(t, err, memory.ErrReleased)

	_, ok := p.GetVariable("key")
	assert.False(t, ok)
}

func TestSetVariable_OverwriteReplaces(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	require.NoError(t, p.SetVariableString("key", "first"))
	require.NoError(t, p.SetVariableString("key", "second"))

	got, ok := p.GetVariableString("key")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestSetVariableBytes_EmptyRemoves(t *testing.T) {
	p := pdk.New(pdktest.NewKernel(t, nil))

	require.NoError(t, p.SetVariableString("key", "value"))
	require.NoError(t, p.SetVariableBytes("key", nil))

	_, ok := p.GetVariable("key")
	assert.False(t, ok)
}

func TestRemoveVariable_FreesCurrentValue(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	require.NoError(t, pdk.New(k).SetVariableString("key", "value"))

	host := pdktest.NewFaultyHost(k)
	require.NoError(t, pdk.New(host).RemoveVariable("key"))

	blocks, _ := k.Arena().Stats()
	assert.Zero(t, blocks, "value copy and name regions are all freed")
	assert.Empty(t, host.Leaked())

	_, ok := pdk.New(k).GetVariable("key")
	assert.False(t, ok)
}

func TestVariables_LimitTraps(t *testing.T) {
	k := pdktest.NewKernel(t, nil, hostfuncs.WithMaxVarBytes(4))
	p := pdk.New(k)

	require.NoError(t, p.SetVariableString("a", "1234"))
	assert.Panics(t, func() { _ = p.SetVariableString("b", "5") })

	// Replacing a value only counts the difference.
	require.NoError(t, p.SetVariableString("a", "abcd"))
}

func TestSetVariable_BorrowedValueIsCopied(t *testing.T) {
	k := pdktest.NewKernel(t, []byte("call input"))
	p := pdk.New(k)

	input, err := memory.Lookup(k, k.InputOffset())
	require.NoError(t, err)
	require.NoError(t, p.SetVariable("saved", input))

	in, err := p.Input()
	require.NoError(t, err)
	assert.Equal(t, "call input", string(in), "the input block must survive var_set")
	assert.False(t, input.Released())

	require.NoError(t, p.SetVariableString("a", "first"))
	r, ok := p.GetVariable("a")
	require.True(t, ok)
	require.NoError(t, p.SetVariable("b", r))

	got, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	for name, want := range map[string]string{"saved": "call input", "a": "first", "b": "first"} {
		v, ok := p.GetVariableString(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v, name)
	}
}
