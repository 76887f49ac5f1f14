// Package hostfuncs implements the extism:host/env import table in pure Go.
//
// Kernel owns the memory a plugin allocates from (an Arena), the current
// call's input, output and error, the plugin's config and its variables
// (a VarStore, in memory or in bbolt). Outbound HTTP goes through an allow
// list and a bounded response buffer, and optionally an AddressFilter that
// refuses connections to private networks after DNS resolution.
//
// Nothing here depends on a wasm runtime. The host package binds a Kernel
// to wazero; tests and native builds call it directly through env.Host.
// Host functions that cannot complete panic with a *Trap, which the runtime
// turns into an aborted call.
package hostfuncs
