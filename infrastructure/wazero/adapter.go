// Package wazero binds the extism:host/env import table to the wazero runtime.
package wazero

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/pdk/env"
	"github.com/reglet-dev/pdk/hostfuncs"
)

// ErrNoActiveCall means a plugin reached a host import outside a call, for
// example from its start function.
var ErrNoActiveCall = errors.New("no active plugin call")

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "extism:host/env").
	ModuleName string

	// CustomHandlers adds functions beyond the standard import table.
	CustomHandlers []CustomHandler
}

// CustomHandler is an extra function exported from the host module.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		if name != "" {
			c.ModuleName = name
		}
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName: env.ModuleName,
	}
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// importFunc is one entry of the import table. call reads its arguments
// from stack and writes results back to it.
type importFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
	call    func(h env.Host, stack []uint64)
}

// importTable lists every function a guest may import. Offsets and lengths
// are i64; single bytes and status codes are i32.
var importTable = []importFunc{
	{"input_offset", nil, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.InputOffset() }},
	{"input_length", nil, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.InputLength() }},
	{"length", []api.ValueType{i64}, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.Length(s[0]) }},
	{"alloc", []api.ValueType{i64}, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.Alloc(s[0]) }},
	{"free", []api.ValueType{i64}, nil, func(h env.Host, s []uint64) { h.Free(s[0]) }},
	{"load_u8", []api.ValueType{i64}, []api.ValueType{i32}, func(h env.Host, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.LoadU8(s[0])))
	}},
	{"store_u8", []api.ValueType{i64, i32}, nil, func(h env.Host, s []uint64) {
		h.StoreU8(s[0], byte(api.DecodeU32(s[1])))
	}},
	{"load_u64", []api.ValueType{i64}, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.LoadU64(s[0]) }},
	{"store_u64", []api.ValueType{i64, i64}, nil, func(h env.Host, s []uint64) { h.StoreU64(s[0], s[1]) }},
	{"output_set", []api.ValueType{i64, i64}, nil, func(h env.Host, s []uint64) { h.OutputSet(s[0], s[1]) }},
	{"error_set", []api.ValueType{i64}, nil, func(h env.Host, s []uint64) { h.ErrorSet(s[0]) }},
	{"config_get", []api.ValueType{i64}, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.ConfigGet(s[0]) }},
	{"var_get", []api.ValueType{i64}, []api.ValueType{i64}, func(h env.Host, s []uint64) { s[0] = h.VarGet(s[0]) }},
	{"var_set", []api.ValueType{i64, i64}, nil, func(h env.Host, s []uint64) { h.VarSet(s[0], s[1]) }},
	{"log_info", []api.ValueType{i64}, nil, func(h env.Host, s []uint64) { h.LogInfo(s[0]) }},
	{"log_debug", []api.ValueType{i64}, nil, func(h env.Host, s []uint64) { h.LogDebug(s[0]) }},
	{"log_warn", []api.ValueType{i64}, nil, func(h env.Host, s []uint64) { h.LogWarn(s[0]) }},
	{"log_error", []api.ValueType{i64}, nil, func(h env.Host, s []uint64) { h.LogError(s[0]) }},
	{"http_request", []api.ValueType{i64, i64}, []api.ValueType{i64}, func(h env.Host, s []uint64) {
		s[0] = h.HTTPRequest(s[0], s[1])
	}},
	{"http_status_code", nil, []api.ValueType{i32}, func(h env.Host, s []uint64) {
		s[0] = api.EncodeI32(h.HTTPStatusCode())
	}},
}

// ImportNames returns the names of the standard import table functions.
func ImportNames() []string {
	names := make([]string, len(importTable))
	for i, f := range importTable {
		names[i] = f.name
	}
	return names
}

// RegisterWithRuntime instantiates the host module in runtime. Each import
// dispatches to the env.Host bound to the call's context with WithHost; a
// call without one traps with ErrNoActiveCall.
//
// Example:
//
//	rt := wazero.NewRuntime(ctx)
//	if err := adapter.RegisterWithRuntime(ctx, rt); err != nil {
//	    return err
//	}
//	mod, _ := rt.Instantiate(ctx, wasm)
//	_, err := mod.ExportedFunction("run").Call(adapter.WithHost(ctx, kernel))
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	for _, f := range importTable {
		f := f
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
				h, ok := HostFromContext(ctx)
				if !ok {
					panic(&hostfuncs.Trap{Function: f.name, Err: ErrNoActiveCall})
				}
				f.call(h, stack)
			}), f.params, f.results).
			WithName(f.name).
			Export(f.name)
	}

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %s: %w", cfg.ModuleName, err)
	}
	return nil
}
