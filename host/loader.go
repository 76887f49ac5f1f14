package host

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		strictTemplates: true, // Secure default: fail on missing keys
	}
}

// Loader reads plugin manifests. A manifest is rendered as a text/template
// (values are available as {{.env.NAME}}), decoded from YAML and validated.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), rendering fails if a referenced key is missing.
// Disable only when missing keys should become empty strings.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{config: cfg}
}

// LoadManifest renders, parses, and validates a manifest.
func (l *Loader) LoadManifest(raw []byte, values map[string]string) (*Manifest, error) {
	data, err := l.render(raw, values)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse manifest: empty document")
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	return &m, nil
}

// LoadManifestFile loads the manifest at path and resolves its wasm path
// against the manifest's directory.
func (l *Loader) LoadManifestFile(path string, values map[string]string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := l.LoadManifest(raw, values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if !filepath.IsAbs(m.Wasm) {
		m.Wasm = filepath.Join(dir, m.Wasm)
	}
	if m.Vars.Path != "" && !filepath.IsAbs(m.Vars.Path) {
		m.Vars.Path = filepath.Join(dir, m.Vars.Path)
	}
	return m, nil
}

func (l *Loader) render(raw []byte, values map[string]string) ([]byte, error) {
	tmpl := template.New("manifest")
	if l.config.strictTemplates {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	if values == nil {
		values = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"env": values}); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}
	return buf.Bytes(), nil
}

// ManifestSchema returns the JSON Schema of the manifest format.
func ManifestSchema() ([]byte, error) {
	r := &jsonschema.Reflector{FieldNameTag: "yaml"}
	s := r.Reflect(&Manifest{})
	s.Title = "Plugin manifest"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest schema: %w", err)
	}
	return data, nil
}
