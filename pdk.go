package pdk

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/pdk/env"
	"github.com/reglet-dev/pdk/memory"
)

// PDK exposes the call lifecycle of a plugin on top of an env.Host. It
// holds no state of its own between calls.
type PDK struct {
	host env.Host
}

// New binds a PDK to h.
func New(h env.Host) *PDK {
	return &PDK{host: h}
}

// Host returns the import table the PDK talks to.
func (p *PDK) Host() env.Host {
	return p.host
}

// Input returns a copy of the call's input. The input region belongs to
// the host and is never released here.
func (p *PDK) Input() ([]byte, error) {
	if p.host.InputLength() == 0 {
		return []byte{}, nil
	}
	r, err := memory.Lookup(p.host, p.host.InputOffset())
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return r.Read()
}

// InputString returns the call's input as a string.
func (p *PDK) InputString() (string, error) {
	b, err := p.Input()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// InputJSON decodes the call's input into v.
func (p *PDK) InputJSON(v any) error {
	b, err := p.Input()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

// SetOutput marks r as the call's output. The host reads r after the call
// returns, so r must not be released before then.
func (p *PDK) SetOutput(r *memory.Region) {
	p.host.OutputSet(r.Offset(), r.Len())
}

// SetOutputBytes copies b into host memory and marks it as the output.
// Empty output is reported to the host as a zero-length output.
func (p *PDK) SetOutputBytes(b []byte) error {
	if len(b) == 0 {
		p.host.OutputSet(0, 0)
		return nil
	}
	r, err := memory.AllocateBytes(p.host, b)
	if err != nil {
		return fmt.Errorf("set output: %w", err)
	}
	p.SetOutput(r)
	return nil
}

// SetOutputString copies s into host memory and marks it as the output.
func (p *PDK) SetOutputString(s string) error {
	return p.SetOutputBytes([]byte(s))
}

// SetOutputJSON encodes v as JSON and marks it as the output.
func (p *PDK) SetOutputJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return p.SetOutputBytes(b)
}

// SetError reports msg to the host as the call's error.
//
// SetError runs while something else has already gone wrong, so it never
// fails visibly: allocation errors and host traps are discarded.
func (p *PDK) SetError(msg string) {
	defer func() { _ = recover() }()

	r, err := memory.AllocateString(p.host, nonEmpty(msg))
	if err != nil {
		return
	}
	p.host.ErrorSet(r.Offset())
}

// GetConfig returns the host config value for key. Like GetVariable, any
// failure reads as "not set".
func (p *PDK) GetConfig(key string) (value string, found bool) {
	defer func() {
		if recover() != nil {
			value, found = "", false
		}
	}()

	err := p.withName(key, func(name *memory.Region) error {
		offset := p.host.ConfigGet(name.Offset())
		if offset == 0 {
			return nil
		}
		r, err := memory.Lookup(p.host, offset)
		if err != nil {
			return err
		}
		value, err = r.ReadString()
		found = err == nil
		return err
	})
	if err != nil {
		return "", false
	}
	return value, found
}

// withName runs fn with a scoped region holding name. The region is
// released on every exit path, including a trap inside fn.
func (p *PDK) withName(name string, fn func(*memory.Region) error) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", memory.ErrInvalidRegion)
	}
	return memory.WithString(p.host, name, fn)
}

// nonEmpty keeps a region allocation from failing on an empty message.
func nonEmpty(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}
