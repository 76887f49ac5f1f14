package hostfuncs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOffset means an offset does not name a live block.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrOutOfBounds means an access runs past the end of its block.
	ErrOutOfBounds = errors.New("access out of bounds")

	// ErrOutOfMemory means the arena ceiling was reached.
	ErrOutOfMemory = errors.New("arena out of memory")

	// ErrHostNotAllowed means a plugin tried to reach a host that is not
	// on the allow list.
	ErrHostNotAllowed = errors.New("http host not allowed")

	// ErrAddressBlocked means an outbound connection resolved to an address
	// the AddressFilter rejects.
	ErrAddressBlocked = errors.New("address blocked")
)

// Trap is raised (as a panic) when a host function cannot complete. Inside a
// wasm runtime the panic aborts the plugin call; Go callers of Kernel see an
// ordinary panic carrying a *Trap.
type Trap struct {
	Err      error
	Function string
}

func (t *Trap) Error() string {
	return fmt.Sprintf("%s: %v", t.Function, t.Err)
}

func (t *Trap) Unwrap() error {
	return t.Err
}

func trap(function string, err error) {
	panic(&Trap{Function: function, Err: err})
}

// RecoverTrap converts a recovered panic value into an error. It is meant
// for deferred use around code that calls into a Kernel.
func RecoverTrap(r any) error {
	switch v := r.(type) {
	case nil:
		return nil
	case *Trap:
		return v
	case error:
		return fmt.Errorf("panic: %w", v)
	case string:
		return fmt.Errorf("panic: %s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
