package bot

import (
	"fmt"
	"sync"
)

// Registry holds registered modules in registration order. Names are unique.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	names   map[string]struct{}
}

// NewRegistry creates a new module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make([]Module, 0),
		names:   make(map[string]struct{}),
	}
}

// Add adds a module, rejecting a second module with the same name.
func (r *Registry) Add(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.names[m.Name()]; dup {
		return fmt.Errorf("module %q already registered", m.Name())
	}
	r.names[m.Name()] = struct{}{}
	r.modules = append(r.modules, m)
	return nil
}

// Modules returns a snapshot of all registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Module, len(r.modules))
	copy(result, r.modules)
	return result
}

// Global registry instance for module self-registration via init()
var (
	globalMu       sync.Mutex
	globalRegistry = NewRegistry()
)

// Register adds a module to the global registry. It is called from module init()
// functions and panics on a duplicate name, since that is a wiring bug.
func Register(m Module) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if err := globalRegistry.Add(m); err != nil {
		panic("bot: " + err.Error())
	}
}

// Modules returns all modules from the global registry.
func Modules() []Module {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalRegistry.Modules()
}

// ResetGlobalRegistry resets the global registry.
// This is intended for testing purposes only.
func ResetGlobalRegistry() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRegistry = NewRegistry()
}
