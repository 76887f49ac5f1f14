package wazero

import (
	"context"

	"github.com/reglet-dev/pdk/env"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var (
	hostKey       = &contextKey{name: "host"}
	pluginNameKey = &contextKey{name: "plugin_name"}
)

// WithHost binds the import table implementation serving the call made
// with ctx.
func WithHost(ctx context.Context, h env.Host) context.Context {
	return context.WithValue(ctx, hostKey, h)
}

// HostFromContext retrieves the host bound by WithHost.
func HostFromContext(ctx context.Context) (env.Host, bool) {
	h, ok := ctx.Value(hostKey).(env.Host)
	return h, ok && h != nil
}

// WithPluginName adds the plugin name to the context.
func WithPluginName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, pluginNameKey, name)
}

// PluginNameFromContext retrieves the plugin name from the context.
func PluginNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(pluginNameKey).(string)
	return name, ok
}
