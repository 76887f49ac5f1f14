package pdk

import (
	"sync"

	"github.com/reglet-dev/pdk/internal/abi"
	"github.com/reglet-dev/pdk/memory"
)

var defaultPDK = sync.OnceValue(func() *PDK {
	return New(abi.Host())
})

// Default returns the PDK bound to the running module's imports. It panics
// outside a wasm build.
func Default() *PDK {
	return defaultPDK()
}

// Input returns a copy of the call's input.
func Input() ([]byte, error) { return Default().Input() }

// InputString returns the call's input as a string.
func InputString() (string, error) { return Default().InputString() }

// InputJSON decodes the call's input into v.
func InputJSON(v any) error { return Default().InputJSON(v) }

// InputValid decodes and validates the input using the default PDK.
func InputValid(v any) error { return Default().InputValid(v) }

// SetOutput marks r as the call's output.
func SetOutput(r *memory.Region) { Default().SetOutput(r) }

// SetOutputBytes copies b into host memory and marks it as the output.
func SetOutputBytes(b []byte) error { return Default().SetOutputBytes(b) }

// SetOutputString copies s into host memory and marks it as the output.
func SetOutputString(s string) error { return Default().SetOutputString(s) }

// SetOutputJSON encodes v as JSON and marks it as the output.
func SetOutputJSON(v any) error { return Default().SetOutputJSON(v) }

// SetError reports msg as the call's error. It never fails visibly.
func SetError(msg string) { Default().SetError(msg) }

// GetConfig returns the host config value for key.
func GetConfig(key string) (string, bool) { return Default().GetConfig(key) }

// GetVariable returns the host-owned value stored under name.
func GetVariable(name string) (*memory.Region, bool) { return Default().GetVariable(name) }

// GetVariableBytes returns a copy of the value stored under name.
func GetVariableBytes(name string) ([]byte, bool) { return Default().GetVariableBytes(name) }

// GetVariableString returns the value stored under name as a string.
func GetVariableString(name string) (string, bool) { return Default().GetVariableString(name) }

// SetVariable hands value to the host and stores it under name.
func SetVariable(name string, value *memory.Region) error {
	return Default().SetVariable(name, value)
}

// SetVariableBytes stores a copy of b under name.
func SetVariableBytes(name string, b []byte) error { return Default().SetVariableBytes(name, b) }

// SetVariableString stores s under name.
func SetVariableString(name, s string) error { return Default().SetVariableString(name, s) }

// RemoveVariable deletes name and frees its value.
func RemoveVariable(name string) error { return Default().RemoveVariable(name) }

// Log sends msg to the host sink for level. It never fails visibly.
func Log(level LogLevel, msg string) { Default().Log(level, msg) }

// Logf formats and logs a message.
func Logf(level LogLevel, format string, args ...any) { Default().Logf(level, format, args...) }

// Fail reports err through SetError and returns the export return code for
// a failed call.
func Fail(err error) int32 { return Default().Fail(err) }

// Succeed returns 0 for a nil err and behaves like Fail otherwise.
func Succeed(err error) int32 { return Default().Succeed(err) }
