// Package pdk is the guest side of the extism:host/env plugin ABI.
//
// A plugin never touches host memory directly. It reads its input, writes
// its output and error, reads config, keeps variables and logs through a
// PDK, which moves bytes in and out of host-owned regions (see package
// memory) using only the host's import table (see package env).
//
// Inside a wasm module the package-level functions talk to the real
// imports:
//
//	//go:wasmexport greet
//	func greet() int32 {
//	    name, err := pdk.InputString()
//	    if err != nil {
//	        return pdk.Fail(err)
//	    }
//	    return pdk.Succeed(pdk.SetOutputString("Hello, " + name))
//	}
//
// Native code, tests in particular, binds a PDK to any env.Host:
//
//	k := hostfuncs.NewKernel()
//	_ = k.BeginCall(ctx, []byte("hello"))
//	p := pdk.New(k)
package pdk
