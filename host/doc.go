// Package host runs plugins built against the pdk package.
//
// It compiles modules with wazero, registers the extism:host/env import
// table and gives every plugin its own hostfuncs.Kernel. Plugins are
// described by YAML manifests that name the module, its config, the hosts
// it may reach over HTTP and where its variables persist.
//
//	rt, err := host.NewRuntime(ctx)
//	m, err := host.NewLoader().LoadManifestFile("upper.yaml", nil)
//	p, err := rt.LoadManifest(ctx, m)
//	out, err := p.Call(ctx, "upper", []byte("hello"))
package host
