package host

import (
	"io"
	"log/slog"
	"time"

	"github.com/reglet-dev/pdk/hostfuncs"
)

// Option defines a functional option for configuring the Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	logger           *slog.Logger
	memoryLimitPages uint32
}

// WithLogger sets the logger for runtime events and plugin log lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *runtimeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMemoryLimitPages caps each module's linear memory, in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *runtimeConfig) {
		c.memoryLimitPages = pages
	}
}

// PluginOption configures a single plugin.
type PluginOption func(*pluginConfig)

type pluginConfig struct {
	name    string
	kernel  []hostfuncs.KernelOption
	timeout time.Duration
	closers []io.Closer
}

// WithName names the plugin in logs.
func WithName(name string) PluginOption {
	return func(c *pluginConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithKernelOptions configures the plugin's host kernel.
func WithKernelOptions(opts ...hostfuncs.KernelOption) PluginOption {
	return func(c *pluginConfig) {
		c.kernel = append(c.kernel, opts...)
	}
}

// WithTimeout bounds each call. A timed-out call closes the module, so the
// plugin must be loaded again.
func WithTimeout(d time.Duration) PluginOption {
	return func(c *pluginConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func withCloser(cl io.Closer) PluginOption {
	return func(c *pluginConfig) {
		c.closers = append(c.closers, cl)
	}
}
