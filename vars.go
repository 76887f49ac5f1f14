package pdk

import (
	"fmt"

	"github.com/reglet-dev/pdk/memory"
)

// GetVariable returns the value stored under name. The region belongs to
// the host. Any failure along the way, including a host trap, reads as
// "not set".
func (p *PDK) GetVariable(name string) (value *memory.Region, found bool) {
	defer func() {
		if recover() != nil {
			value, found = nil, false
		}
	}()

	err := p.withName(name, func(key *memory.Region) error {
		offset := p.host.VarGet(key.Offset())
		if offset == 0 {
			return nil
		}
		r, err := memory.Lookup(p.host, offset)
		if err != nil {
			return err
		}
		value, found = r, true
		return nil
	})
	if err != nil {
		return nil, false
	}
	return value, found
}

// GetVariableBytes returns a copy of the value stored under name.
func (p *PDK) GetVariableBytes(name string) ([]byte, bool) {
	r, ok := p.GetVariable(name)
	if !ok {
		return nil, false
	}
	b, err := r.Read()
	if err != nil {
		return nil, false
	}
	return b, true
}

// GetVariableString returns the value stored under name as a string.
func (p *PDK) GetVariableString(name string) (string, bool) {
	b, ok := p.GetVariableBytes(name)
	return string(b), ok
}

// SetVariable stores value under name. The host takes ownership of value:
// once SetVariable succeeds the region can no longer be used or released by
// the caller. Overwriting a variable replaces its previous value in host
// storage; the guest never frees the old value itself.
//
// var_set frees the block it is given, so a borrowed value (the input or a
// GetVariable result) is copied into an owned region first and the copy is
// handed over. The borrowed region stays readable.
func (p *PDK) SetVariable(name string, value *memory.Region) error {
	if value.Released() {
		return fmt.Errorf("set variable %q: %w", name, memory.ErrReleased)
	}
	if value.Ownership() == memory.Borrowed {
		b, err := value.Read()
		if err != nil {
			return fmt.Errorf("set variable %q: %w", name, err)
		}
		return memory.WithBytes(p.host, b, func(r *memory.Region) error {
			return p.SetVariable(name, r)
		})
	}
	return p.withName(name, func(key *memory.Region) error {
		p.host.VarSet(key.Offset(), value.Offset())
		_, err := value.Transfer()
		return err
	})
}

// SetVariableBytes copies b into host memory and stores it under name. An
// empty b removes the variable, since a region cannot be empty.
func (p *PDK) SetVariableBytes(name string, b []byte) error {
	if len(b) == 0 {
		return p.RemoveVariable(name)
	}
	return memory.WithBytes(p.host, b, func(r *memory.Region) error {
		return p.SetVariable(name, r)
	})
}

// SetVariableString stores the UTF-8 bytes of s under name.
func (p *PDK) SetVariableString(name, s string) error {
	return p.SetVariableBytes(name, []byte(s))
}

// RemoveVariable deletes name. The current value, if any, is freed before
// the host is told the variable is gone.
func (p *PDK) RemoveVariable(name string) error {
	return p.withName(name, func(key *memory.Region) error {
		if offset := p.host.VarGet(key.Offset()); offset != 0 {
			p.host.Free(offset)
		}
		p.host.VarSet(key.Offset(), 0)
		return nil
	})
}
