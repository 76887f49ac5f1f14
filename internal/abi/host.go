//go:build wasip1

// Package abi binds env.Host to the extism:host/env imports of a wasm module.
package abi

import (
	"github.com/reglet-dev/pdk/env"
)

// Compile-time interface compliance check
var _ env.Host = imports{}

// imports forwards every call straight to the wasm import table.
type imports struct{}

// Host returns the import table of the running module.
func Host() env.Host {
	return imports{}
}

func (imports) InputOffset() uint64               { return extism_input_offset() }
func (imports) InputLength() uint64               { return extism_input_length() }
func (imports) Length(offset uint64) uint64       { return extism_length(offset) }
func (imports) Alloc(n uint64) uint64             { return extism_alloc(n) }
func (imports) Free(offset uint64)                { extism_free(offset) }
func (imports) LoadU8(offset uint64) byte         { return byte(extism_load_u8(offset)) }
func (imports) StoreU8(offset uint64, v byte)     { extism_store_u8(offset, uint32(v)) }
func (imports) LoadU64(offset uint64) uint64      { return extism_load_u64(offset) }
func (imports) StoreU64(offset uint64, v uint64)  { extism_store_u64(offset, v) }
func (imports) OutputSet(offset, length uint64)   { extism_output_set(offset, length) }
func (imports) ErrorSet(offset uint64)            { extism_error_set(offset) }
func (imports) ConfigGet(keyOffset uint64) uint64 { return extism_config_get(keyOffset) }
func (imports) VarGet(keyOffset uint64) uint64    { return extism_var_get(keyOffset) }
func (imports) VarSet(keyOffset, valueOffset uint64) {
	extism_var_set(keyOffset, valueOffset)
}
func (imports) LogInfo(offset uint64)  { extism_log_info(offset) }
func (imports) LogDebug(offset uint64) { extism_log_debug(offset) }
func (imports) LogWarn(offset uint64)  { extism_log_warn(offset) }
func (imports) LogError(offset uint64) { extism_log_error(offset) }
func (imports) HTTPRequest(requestOffset, bodyOffset uint64) uint64 {
	return extism_http_request(requestOffset, bodyOffset)
}
func (imports) HTTPStatusCode() int32 { return extism_http_status_code() }
