// Package manifest describes MicroPress plugin manifests and installed
// plugin records.
//
// A manifest is shipped alongside a plugin bundle as plugin.yaml or
// plugin.json. It declares what the plugin provides (editor extensions,
// backend endpoints, renderer hooks), the configuration it accepts and the
// host resources it needs. The host validates manifests at install time and
// validates installed configuration against ConfigSchema on every change.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is a plugin's self-description.
type Manifest struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
	Author      string `yaml:"author" json:"author"`
	Homepage    string `yaml:"homepage,omitempty" json:"homepage,omitempty"`

	Capabilities  Capabilities   `yaml:"capabilities" json:"capabilities"`
	ConfigSchema  *ConfigSchema  `yaml:"configSchema,omitempty" json:"configSchema,omitempty"`
	Endpoints     []Endpoint     `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`
	RendererHooks *RendererHooks `yaml:"rendererHooks,omitempty" json:"rendererHooks,omitempty"`
	Permissions   Permissions    `yaml:"permissions" json:"permissions"`
}

// Capabilities lists the host integration points a plugin uses.
type Capabilities struct {
	Editor   bool `yaml:"editor,omitempty" json:"editor,omitempty"`
	Backend  bool `yaml:"backend,omitempty" json:"backend,omitempty"`
	Renderer bool `yaml:"renderer,omitempty" json:"renderer,omitempty"`
}

// ConfigSchema is the JSON Schema of the plugin configuration. Only object
// schemas are accepted.
type ConfigSchema struct {
	Type       string                 `yaml:"type" json:"type"`
	Properties map[string]interface{} `yaml:"properties" json:"properties"`
	Required   []string               `yaml:"required,omitempty" json:"required,omitempty"`
}

// Endpoint is a backend route served by the plugin.
type Endpoint struct {
	Path        string `yaml:"path" json:"path"`
	Method      string `yaml:"method" json:"method"`
	Handler     string `yaml:"handler" json:"handler"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// RendererHooks selects the markdown conversion stages the plugin hooks.
type RendererHooks struct {
	BeforeConversion bool `yaml:"beforeConversion,omitempty" json:"beforeConversion,omitempty"`
	AfterConversion  bool `yaml:"afterConversion,omitempty" json:"afterConversion,omitempty"`
}

// Permissions are the host resources the plugin may access.
type Permissions struct {
	DataAccess  bool `yaml:"dataAccess" json:"dataAccess"`
	AssetAccess bool `yaml:"assetAccess" json:"assetAccess"`
}

// InstalledPlugin is the host's record of an installed plugin.
type InstalledPlugin struct {
	ID          string                 `yaml:"id" json:"id"`
	Version     string                 `yaml:"version" json:"version"`
	Enabled     bool                   `yaml:"enabled" json:"enabled"`
	InstalledAt string                 `yaml:"installedAt" json:"installedAt"`
	InstalledBy string                 `yaml:"installedBy" json:"installedBy"`
	Config      map[string]interface{} `yaml:"config" json:"config"`
	Manifest    Manifest               `yaml:"manifest" json:"manifest"`
}

// Parse decodes a manifest from JSON or YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
		}
		return &m, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
