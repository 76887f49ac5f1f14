//go:build !wasip1

// Package abi binds env.Host to the extism:host/env imports of a wasm module.
package abi

import (
	"github.com/reglet-dev/pdk/env"
)

// Host panics outside a wasm build. Native code (tests, tools) must pass
// its own env.Host, usually a hostfuncs.Kernel, to pdk.New.
func Host() env.Host {
	panic("abi: extism:host/env imports are not available in native builds")
}
