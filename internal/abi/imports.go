//go:build wasip1

package abi

// The extism:host/env import table. Byte-sized values travel as i32.
//
//nolint:revive // intentional snake_case to match WASM import convention
//go:wasmimport extism:host/env input_offset
func extism_input_offset() uint64

//go:wasmimport extism:host/env input_length
func extism_input_length() uint64

//go:wasmimport extism:host/env length
func extism_length(offset uint64) uint64

//go:wasmimport extism:host/env alloc
func extism_alloc(n uint64) uint64

//go:wasmimport extism:host/env free
func extism_free(offset uint64)

//go:wasmimport extism:host/env load_u8
func extism_load_u8(offset uint64) uint32

//go:wasmimport extism:host/env store_u8
func extism_store_u8(offset uint64, v uint32)

//go:wasmimport extism:host/env load_u64
func extism_load_u64(offset uint64) uint64

//go:wasmimport extism:host/env store_u64
func extism_store_u64(offset uint64, v uint64)

//go:wasmimport extism:host/env output_set
func extism_output_set(offset, length uint64)

//go:wasmimport extism:host/env error_set
func extism_error_set(offset uint64)

//go:wasmimport extism:host/env config_get
func extism_config_get(offset uint64) uint64

//go:wasmimport extism:host/env var_get
func extism_var_get(offset uint64) uint64

//go:wasmimport extism:host/env var_set
func extism_var_set(keyOffset, valueOffset uint64)

//go:wasmimport extism:host/env log_info
func extism_log_info(offset uint64)

//go:wasmimport extism:host/env log_debug
func extism_log_debug(offset uint64)

//go:wasmimport extism:host/env log_warn
func extism_log_warn(offset uint64)

//go:wasmimport extism:host/env log_error
func extism_log_error(offset uint64)

//go:wasmimport extism:host/env http_request
func extism_http_request(requestOffset, bodyOffset uint64) uint64

//go:wasmimport extism:host/env http_status_code
func extism_http_status_code() int32
