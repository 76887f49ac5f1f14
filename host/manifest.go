package host

import (
	"time"

	"github.com/reglet-dev/pdk/hostfuncs"
)

// Manifest describes a plugin and the host resources it may use.
type Manifest struct {
	// Config is exposed to the plugin through config_get.
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty" jsonschema:"description=Key/value pairs readable with config_get"`

	// Name identifies the plugin in logs and scopes its persistent variables.
	Name string `yaml:"name" json:"name" validate:"required,max=64,excludesall=/" jsonschema:"description=Plugin name,maxLength=64"`

	// Wasm is the path to the module. A relative path is resolved against
	// the manifest's directory.
	Wasm string `yaml:"wasm" json:"wasm" validate:"required" jsonschema:"description=Path to the .wasm module"`

	// AllowedHosts lists path.Match patterns of hosts reachable through
	// http_request. Empty denies all HTTP.
	AllowedHosts []string `yaml:"allowed_hosts,omitempty" json:"allowed_hosts,omitempty" validate:"dive,required" jsonschema:"description=Host patterns the plugin may reach over HTTP"`

	Memory MemoryConfig `yaml:"memory,omitempty" json:"memory,omitempty"`
	Vars   VarsConfig   `yaml:"vars,omitempty" json:"vars,omitempty"`
	HTTP   HTTPConfig   `yaml:"http,omitempty" json:"http,omitempty"`

	// TimeoutMs bounds each call. Zero means no limit.
	TimeoutMs int `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty" validate:"min=0" jsonschema:"description=Per-call timeout in milliseconds"`
}

// MemoryConfig limits host memory handed to the plugin.
type MemoryConfig struct {
	MaxBytes int `yaml:"max_bytes,omitempty" json:"max_bytes,omitempty" validate:"omitempty,min=4096" jsonschema:"description=Cumulative bytes a single call may allocate; freed blocks still count"`
}

// VarsConfig controls variable storage.
type VarsConfig struct {
	// Path is a bbolt database file. Empty keeps variables in memory for
	// the lifetime of the plugin.
	Path     string `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"description=bbolt file for persistent variables"`
	MaxBytes int    `yaml:"max_bytes,omitempty" json:"max_bytes,omitempty" validate:"omitempty,min=1" jsonschema:"description=Combined size limit of all variables"`
}

// HTTPConfig tunes outbound HTTP.
type HTTPConfig struct {
	TimeoutMs    int  `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty" validate:"min=0"`
	MaxRedirects *int `yaml:"max_redirects,omitempty" json:"max_redirects,omitempty" validate:"omitempty,min=0,max=20"`
	MaxBodyBytes int  `yaml:"max_body_bytes,omitempty" json:"max_body_bytes,omitempty" validate:"min=0"`

	// BlockPrivateNetworks rejects connections that resolve to loopback,
	// private, link-local or multicast addresses, whatever the host name.
	BlockPrivateNetworks bool `yaml:"block_private_networks,omitempty" json:"block_private_networks,omitempty"`
	// AllowedNetworks are CIDRs exempt from BlockPrivateNetworks.
	AllowedNetworks []string `yaml:"allowed_networks,omitempty" json:"allowed_networks,omitempty" validate:"dive,cidr|ip"`
}

// Timeout returns the per-call timeout.
func (m *Manifest) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

func (m *Manifest) httpOptions() []hostfuncs.HTTPOption {
	opts := []hostfuncs.HTTPOption{hostfuncs.WithAllowedHosts(m.AllowedHosts...)}
	if m.HTTP.TimeoutMs > 0 {
		opts = append(opts, hostfuncs.WithHTTPRequestTimeout(time.Duration(m.HTTP.TimeoutMs)*time.Millisecond))
	}
	if m.HTTP.MaxRedirects != nil {
		opts = append(opts, hostfuncs.WithHTTPMaxRedirects(*m.HTTP.MaxRedirects))
	}
	if m.HTTP.MaxBodyBytes > 0 {
		opts = append(opts, hostfuncs.WithHTTPMaxBodySize(m.HTTP.MaxBodyBytes))
	}
	if m.HTTP.BlockPrivateNetworks {
		filter := hostfuncs.NewAddressFilter(hostfuncs.WithAllowlist(m.HTTP.AllowedNetworks...))
		opts = append(opts, hostfuncs.WithAddressFilter(filter))
	}
	return opts
}

func (m *Manifest) kernelOptions() []hostfuncs.KernelOption {
	opts := []hostfuncs.KernelOption{
		hostfuncs.WithConfig(m.Config),
		hostfuncs.WithHTTPOptions(m.httpOptions()...),
	}
	if m.Memory.MaxBytes > 0 {
		opts = append(opts, hostfuncs.WithArena(hostfuncs.NewArena(hostfuncs.WithMaxArenaSize(m.Memory.MaxBytes))))
	}
	if m.Vars.MaxBytes > 0 {
		opts = append(opts, hostfuncs.WithMaxVarBytes(m.Vars.MaxBytes))
	}
	return opts
}
