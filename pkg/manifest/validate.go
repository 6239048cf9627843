package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	idPattern      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
)

var endpointMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

// ValidationError lists every problem found in a manifest or configuration.
type ValidationError struct {
	Subject  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed:\n  - %s", e.Subject, strings.Join(e.Problems, "\n  - "))
}

// Validate checks required fields and the shape of endpoints and the
// configuration schema.
func (m *Manifest) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch {
	case m.ID == "":
		add("id is required")
	case !idPattern.MatchString(m.ID):
		add("id %q may only contain letters, digits, '.', '_', ':' and '-'", m.ID)
	}
	if m.Name == "" {
		add("name is required")
	}
	switch {
	case m.Version == "":
		add("version is required")
	case !versionPattern.MatchString(m.Version):
		add("version %q is not a semantic version (MAJOR.MINOR.PATCH)", m.Version)
	}
	if m.Description == "" {
		add("description is required")
	}
	if m.Author == "" {
		add("author is required")
	}

	if m.ConfigSchema != nil && m.ConfigSchema.Type != "object" {
		add("configSchema.type must be \"object\", got %q", m.ConfigSchema.Type)
	}

	if len(m.Endpoints) > 0 && !m.Capabilities.Backend {
		add("endpoints require capabilities.backend")
	}
	seen := make(map[string]bool, len(m.Endpoints))
	for i, ep := range m.Endpoints {
		if !strings.HasPrefix(ep.Path, "/") {
			add("endpoints[%d].path %q must start with '/'", i, ep.Path)
		}
		if !endpointMethods[ep.Method] {
			add("endpoints[%d].method %q must be one of GET, POST, PUT, DELETE", i, ep.Method)
		}
		if ep.Handler == "" {
			add("endpoints[%d].handler is required", i)
		}
		route := ep.Method + " " + ep.Path
		if seen[route] {
			add("endpoints[%d] duplicates route %s", i, route)
		}
		seen[route] = true
	}

	if m.RendererHooks != nil && (m.RendererHooks.BeforeConversion || m.RendererHooks.AfterConversion) && !m.Capabilities.Renderer {
		add("rendererHooks require capabilities.renderer")
	}

	if len(problems) > 0 {
		return &ValidationError{Subject: "manifest " + m.ID, Problems: problems}
	}
	return nil
}

// ValidateConfig checks an installed plugin configuration against the
// manifest's configSchema. Any configuration is accepted when the manifest
// declares no schema.
func (m *Manifest) ValidateConfig(config map[string]interface{}) error {
	if m.ConfigSchema == nil {
		return nil
	}
	if config == nil {
		config = map[string]interface{}{}
	}

	schema := map[string]interface{}{
		"type":       m.ConfigSchema.Type,
		"properties": m.ConfigSchema.Properties,
	}
	if len(m.ConfigSchema.Required) > 0 {
		schema["required"] = m.ConfigSchema.Required
	}
	if m.ConfigSchema.Properties == nil {
		schema["properties"] = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return &ValidationError{Subject: "config for " + m.ID, Problems: problems}
	}
	return nil
}
