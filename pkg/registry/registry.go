// Package registry provides the component registry the execution graph
// resolves its collaborators from: cache plugins and result codecs, keyed by
// name. Executors look components up lazily at construction; registration
// happens once during service bootstrap.
//
// Example usage:
//
//	reg := registry.New()
//	if err := reg.RegisterPlugin(redisPlugin); err != nil {
//	    log.Fatal(err)
//	}
//	if err := reg.RegisterSerdes(serdes.NewMsgpack()); err != nil {
//	    log.Fatal(err)
//	}
//
//	plugin := reg.Plugin("redis")   // nil if not registered
//	codec := reg.Serdes("msgpack")
package registry

import (
	"sync"

	"github.com/Combine-Capital/tsqi/pkg/cache"
	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/Combine-Capital/tsqi/pkg/serdes"
)

// Registry holds named cache plugins and serdes implementations.
// Safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]cache.Plugin
	serdes  map[string]serdes.Serdes
	closed  bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		plugins: make(map[string]cache.Plugin),
		serdes:  make(map[string]serdes.Serdes),
	}
}

// RegisterPlugin registers a cache plugin under its Name. Duplicate names
// and registration after Close are InvalidInput errors.
func (r *Registry) RegisterPlugin(plugin cache.Plugin) error {
	if plugin == nil {
		return errors.NewInvalidInput("plugin", "plugin is required")
	}
	name := plugin.Name()
	if name == "" {
		return errors.NewInvalidInput("plugin", "plugin name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.NewInvalidInput("registry", "registry is closed")
	}
	if _, ok := r.plugins[name]; ok {
		return errors.NewInvalidInput("plugin", "plugin already registered: "+name)
	}
	r.plugins[name] = plugin
	return nil
}

// Plugin returns the cache plugin registered under name, or nil.
func (r *Registry) Plugin(name string) cache.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[name]
}

// RegisterSerdes registers a result codec under its Name. Duplicate names
// and registration after Close are InvalidInput errors.
func (r *Registry) RegisterSerdes(codec serdes.Serdes) error {
	if codec == nil {
		return errors.NewInvalidInput("serdes", "serdes is required")
	}
	name := codec.Name()
	if name == "" {
		return errors.NewInvalidInput("serdes", "serdes name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.NewInvalidInput("registry", "registry is closed")
	}
	if _, ok := r.serdes[name]; ok {
		return errors.NewInvalidInput("serdes", "serdes already registered: "+name)
	}
	r.serdes[name] = codec
	return nil
}

// Serdes returns the codec registered under name, or nil.
func (r *Registry) Serdes(name string) serdes.Serdes {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.serdes[name]
}

// PluginNames returns the registered plugin names. Observational, for
// diagnostics.
func (r *Registry) PluginNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}

// Close closes every registered plugin and empties the registry. The first
// plugin close error is returned; all plugins are closed regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for _, plugin := range r.plugins {
		if err := plugin.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.plugins = map[string]cache.Plugin{}
	r.serdes = map[string]serdes.Serdes{}
	return firstErr
}
