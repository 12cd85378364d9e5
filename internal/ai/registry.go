package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a provider for a concrete model. Construction
// may do network setup, so it takes a context.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry maps provider names to factories so the active collaborator
// can be chosen at runtime. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a factory under the given name.
func (r *Registry) Register(name string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[canonical(name)] = f
}

// Names lists the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get builds a provider by name.
func (r *Registry) Get(ctx context.Context, name, model string) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[canonical(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider %q (registered: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return f(ctx, model)
}
