// Package env defines the foreign interface a plugin uses to reach its host.
//
// Every function mirrors one import of the "extism:host/env" module. Offsets
// are opaque handles into host-owned memory; the guest never dereferences
// them except through Host.
//
// The interface is consumed, not implemented, by the guest-side packages
// (memory, pdk, log, net). Inside a wasm module it is backed by the
// //go:wasmimport table in internal/abi; in tests and in the reference
// runtime it is backed by hostfuncs.Kernel.
package env

// ModuleName is the import module every host function lives under.
const ModuleName = "extism:host/env"

// Host is the import table exposed by the host runtime.
//
// Calls are synchronous and never re-entered. A host that cannot satisfy a
// call (out of memory, invalid offset on load/store) traps; implementations
// backed by Go code panic instead.
type Host interface {
	// InputOffset returns the offset of the current call's input.
	InputOffset() uint64
	// InputLength returns the length of the current call's input.
	InputLength() uint64

	// Length returns the length of the allocation at offset, or 0 when
	// offset does not name a live allocation.
	Length(offset uint64) uint64
	// Alloc reserves n bytes and returns the offset of the allocation.
	Alloc(n uint64) uint64
	// Free returns an allocation to the host.
	Free(offset uint64)

	LoadU8(offset uint64) byte
	StoreU8(offset uint64, v byte)
	LoadU64(offset uint64) uint64
	StoreU64(offset uint64, v uint64)

	// OutputSet marks [offset, offset+length) as the call's output.
	OutputSet(offset, length uint64)
	// ErrorSet marks the allocation at offset as the call's error message.
	ErrorSet(offset uint64)

	// ConfigGet returns the offset of the config value named by the
	// allocation at keyOffset, or 0 if the key is unset.
	ConfigGet(keyOffset uint64) uint64
	// VarGet returns the offset of a fresh copy of the variable named by
	// the allocation at keyOffset, or 0 if the variable is unset.
	VarGet(keyOffset uint64) uint64
	// VarSet stores the allocation at valueOffset under the name at
	// keyOffset. A zero valueOffset removes the variable.
	VarSet(keyOffset, valueOffset uint64)

	LogInfo(offset uint64)
	LogDebug(offset uint64)
	LogWarn(offset uint64)
	LogError(offset uint64)

	// HTTPRequest performs the JSON-encoded request at requestOffset with the
	// optional body at bodyOffset (0 for none) and returns the offset of the
	// response body, or 0 if the response had no body.
	HTTPRequest(requestOffset, bodyOffset uint64) uint64
	// HTTPStatusCode returns the status of the last HTTPRequest.
	HTTPStatusCode() int32
}
