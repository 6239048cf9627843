// Package editor gives plugins typed access to the editor framework shared
// by the MicroPress admin host: the rich-text editor primitives and the UI
// component registry.
//
// The host passes its shared modules to NewRuntime when it loads a plugin.
// Plugins never look globals up themselves; a plugin built outside an admin
// host gets ErrHostUnavailable from NewRuntime instead of failing later on
// first use.
package editor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
)

// Well-known shared module names.
const (
	ModuleTiptapCore = "@tiptap/core"
	ModuleReact      = "react"
)

// ErrHostUnavailable is returned when no host modules were supplied.
var ErrHostUnavailable = errors.New("MicroPress plugin globals not found; load the plugin in a MicroPress admin environment")

// ModuleNotFoundError reports a shared module the host did not provide, or
// provided with an unexpected type.
type ModuleNotFoundError struct {
	Name   string
	Reason string
}

func (e *ModuleNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s not found in MicroPress plugin globals: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("%s not found in MicroPress plugin globals", e.Name)
}

// TiptapCore is the subset of the rich-text editor core plugins build on.
type TiptapCore interface {
	Node() any
	Mark() any
	Extension() any
	MergeAttributes(attrs ...map[string]any) map[string]any
}

// React is the UI library shared with the host.
type React interface {
	CreateElement(kind any, props map[string]any, children ...any) any
}

// Component is an opaque UI component handed to the host.
type Component any

// Runtime holds the host-provided modules and the component registry for
// one admin session.
type Runtime struct {
	modules map[string]any
	logger  *logging.Logger

	mu         sync.RWMutex
	components map[string]Component
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for registry warnings.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a runtime over the modules the host shares. The map is
// copied.
func NewRuntime(modules map[string]any, opts ...Option) (*Runtime, error) {
	if len(modules) == 0 {
		return nil, ErrHostUnavailable
	}

	r := &Runtime{
		modules:    make(map[string]any, len(modules)),
		logger:     logging.New(false, true),
		components: make(map[string]Component),
	}
	for name, m := range modules {
		r.modules[name] = m
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("editor")

	return r, nil
}

// Module returns the shared module registered under name.
func (r *Runtime) Module(name string) (any, error) {
	m, ok := r.modules[name]
	if !ok || m == nil {
		return nil, &ModuleNotFoundError{Name: name}
	}
	return m, nil
}

// TiptapCore returns the shared editor core.
func (r *Runtime) TiptapCore() (TiptapCore, error) {
	m, err := r.Module(ModuleTiptapCore)
	if err != nil {
		return nil, err
	}
	core, ok := m.(TiptapCore)
	if !ok {
		return nil, &ModuleNotFoundError{Name: ModuleTiptapCore, Reason: fmt.Sprintf("unexpected type %T", m)}
	}
	return core, nil
}

// React returns the shared UI library.
func (r *Runtime) React() (React, error) {
	m, err := r.Module(ModuleReact)
	if err != nil {
		return nil, err
	}
	react, ok := m.(React)
	if !ok {
		return nil, &ModuleNotFoundError{Name: ModuleReact, Reason: fmt.Sprintf("unexpected type %T", m)}
	}
	return react, nil
}

// RegisterComponent makes component available to the host under name,
// e.g. "archive:ImagePicker". An existing registration is replaced.
func (r *Runtime) RegisterComponent(name string, component Component) error {
	if name == "" {
		return errors.New("component name is required")
	}
	if component == nil {
		return fmt.Errorf("component %s is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		r.logger.Warn("Component %s is already registered. Overwriting.", name)
	}
	r.components[name] = component
	return nil
}

// Component returns the component registered under name.
func (r *Runtime) Component(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Components returns the registered component names in sorted order.
func (r *Runtime) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
