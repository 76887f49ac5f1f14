package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/reglet-dev/pdk/hostfuncs"
	adapter "github.com/reglet-dev/pdk/infrastructure/wazero"
)

// ErrFunctionNotFound means the plugin does not export the called function.
var ErrFunctionNotFound = errors.New("function not exported by plugin")

// CallError is returned when a plugin function reports failure through its
// return code.
type CallError struct {
	Plugin   string
	Function string
	Message  string
	Code     int32
}

func (e *CallError) Error() string {
	return fmt.Sprintf("plugin %s: %s returned %d: %s", e.Plugin, e.Function, e.Code, e.Message)
}

// Runtime compiles and runs plugins. One Runtime can host many plugins.
type Runtime struct {
	runtime wazero.Runtime
	logger  *slog.Logger
}

// NewRuntime creates a runtime with WASI and the extism:host/env module
// registered.
func NewRuntime(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := runtimeConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	if err := adapter.RegisterWithRuntime(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return &Runtime{runtime: rt, logger: cfg.logger}, nil
}

// Close releases resources held by the runtime and every plugin in it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Plugin is an instantiated module with its own host kernel. Calls on one
// Plugin are serialized.
type Plugin struct {
	module  api.Module
	kernel  *hostfuncs.Kernel
	logger  *slog.Logger
	name    string
	closers []func() error
	timeout time.Duration
	mu      sync.Mutex
}

// LoadPlugin instantiates a module.
func (r *Runtime) LoadPlugin(ctx context.Context, wasm []byte, opts ...PluginOption) (*Plugin, error) {
	cfg := pluginConfig{name: "plugin"}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Plugin{
		name:    cfg.name,
		logger:  r.logger.With("plugin", cfg.name),
		timeout: cfg.timeout,
	}
	for _, c := range cfg.closers {
		p.closers = append(p.closers, c.Close)
	}

	kopts := append([]hostfuncs.KernelOption{hostfuncs.WithLogSink(p.logSink)}, cfg.kernel...)
	p.kernel = hostfuncs.NewKernel(kopts...)

	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	// Start functions may already use the import table.
	if err := p.kernel.BeginCall(ctx, nil); err != nil {
		return nil, err
	}
	mc := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize").
		WithStderr(os.Stderr)
	mod, err := r.runtime.InstantiateModule(adapter.WithHost(ctx, p.kernel), compiled, mc)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	p.module = mod

	p.logger.Debug("plugin loaded", "exports", len(mod.ExportedFunctionDefinitions()))
	return p, nil
}

// LoadManifest loads the plugin a manifest describes. Variables are kept
// in a bbolt file when the manifest names one.
func (r *Runtime) LoadManifest(ctx context.Context, m *Manifest, opts ...PluginOption) (*Plugin, error) {
	wasm, err := os.ReadFile(m.Wasm)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}

	base := []PluginOption{
		WithName(m.Name),
		WithKernelOptions(m.kernelOptions()...),
		WithTimeout(m.Timeout()),
	}
	var store *hostfuncs.BoltVarStore
	if m.Vars.Path != "" {
		store, err = hostfuncs.OpenBoltVarStore(m.Vars.Path, m.Name)
		if err != nil {
			return nil, err
		}
		base = append(base, WithKernelOptions(hostfuncs.WithVarStore(store)), withCloser(store))
	}

	p, err := r.LoadPlugin(ctx, wasm, append(base, opts...)...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return p, nil
}

// Name returns the plugin's name.
func (p *Plugin) Name() string {
	return p.name
}

// Kernel returns the plugin's host kernel.
func (p *Plugin) Kernel() *hostfuncs.Kernel {
	return p.kernel
}

// FunctionExists reports whether the plugin exports name.
func (p *Plugin) FunctionExists(name string) bool {
	return p.module.ExportedFunction(name) != nil
}

// Call runs the exported function fn with input and returns its output. A
// non-zero return code becomes a *CallError carrying the message the
// plugin set; a trap in a host function becomes an error wrapping
// *hostfuncs.Trap.
func (p *Plugin) Call(ctx context.Context, fn string, input []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f := p.module.ExportedFunction(fn)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, fn)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.kernel.BeginCall(ctx, input); err != nil {
		return nil, fmt.Errorf("call %s: %w", fn, err)
	}

	start := time.Now()
	results, err := f.Call(adapter.WithPluginName(adapter.WithHost(ctx, p.kernel), p.name))
	p.logger.Debug("plugin call", "function", fn, "input_bytes", len(input), "duration", time.Since(start))
	if err != nil {
		p.logger.Warn("plugin call aborted", "function", fn, "error", err)
		return nil, fmt.Errorf("call %s: %w", fn, err)
	}

	var code int32
	if len(results) > 0 {
		code = api.DecodeI32(results[0])
	}
	if code != 0 {
		msg, ok := p.kernel.Error()
		if !ok {
			msg = "no error message"
		}
		return nil, &CallError{Plugin: p.name, Function: fn, Code: code, Message: msg}
	}

	out := p.kernel.Output()
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Close closes the module and any variable store the plugin opened.
func (p *Plugin) Close(ctx context.Context) error {
	errs := []error{p.module.Close(ctx)}
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func (p *Plugin) logSink(level slog.Level, msg string) {
	p.logger.Log(context.Background(), level, msg)
}
