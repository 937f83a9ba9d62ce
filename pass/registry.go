package pass

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh instance of a registered pass.
type Factory func() Pass

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a pass available by name to scripts that request it through
// their custom pass lists. Registering the same name twice replaces the
// earlier factory.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("pass: Register called with empty name or nil factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Unregister removes a named pass. It is a no-op for unknown names.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Lookup returns a new instance of the pass registered under name.
func Lookup(name string) (Pass, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown pass %q", name)
	}
	p := factory()
	if p == nil {
		return nil, fmt.Errorf("pass factory %q returned nil", name)
	}
	return p, nil
}

// Registered returns the sorted names of all registered passes.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
