// Package wazero binds the extism:host/env import table to the wazero
// WebAssembly runtime.
//
// The host module is instantiated once per runtime. Its functions do not
// hold plugin state; every call looks up the env.Host bound to the call's
// context, so many plugins (each with its own hostfuncs.Kernel) can share
// one runtime.
//
// # Basic Usage
//
//	rt := wazero.NewRuntime(ctx)
//	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
//	if err := adapter.RegisterWithRuntime(ctx, rt); err != nil {
//	    return err
//	}
//
//	kernel := hostfuncs.NewKernel()
//	_ = kernel.BeginCall(ctx, input)
//	_, err := mod.ExportedFunction("greet").Call(adapter.WithHost(ctx, kernel))
//
// # Custom Handlers
//
// Extra functions can be exported from the same module:
//
//	adapter.RegisterWithRuntime(ctx, rt,
//	    adapter.WithCustomHandler(adapter.CustomHandler{
//	        Name:        "now_ms",
//	        Handler:     nowHandler,
//	        ResultTypes: []api.ValueType{api.ValueTypeI64},
//	    }),
//	)
package wazero
