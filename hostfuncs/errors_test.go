package hostfuncs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrap_Error(t *testing.T) {
	tr := &Trap{Function: "var_get", Err: ErrInvalidOffset}

	assert.Equal(t, "var_get: invalid offset", tr.Error())
	assert.ErrorIs(t, tr, ErrInvalidOffset)
}

func TestTrap_Panics(t *testing.T) {
	defer func() {
		err := RecoverTrap(recover())
		require.Error(t, err)

		var tr *Trap
		require.True(t, errors.As(err, &tr))
		assert.Equal(t, "alloc", tr.Function)
		assert.ErrorIs(t, err, ErrOutOfMemory)
	}()

	trap("alloc", ErrOutOfMemory)
}

func TestRecoverTrap(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil},
		{name: "error", in: boom, want: "panic: boom"},
		{name: "string", in: "bad", want: "panic: bad"},
		{name: "other", in: 42, want: "panic: 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RecoverTrap(tt.in)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.want)
		})
	}

	assert.ErrorIs(t, RecoverTrap(boom), boom)
}
