package resolver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-wizard"
)

// Registry stores one resolver per object kind.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[wizard.ObjectKind]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[wizard.ObjectKind]Resolver),
	}
}

// NewDefaultRegistry registers the built-in resolver for every object kind.
func NewDefaultRegistry(dir wizard.Directory) *Registry {
	r := NewRegistry()
	for _, res := range []Resolver{
		NewItem(dir.Items),
		NewQuantity(),
		NewExpiration(),
		NewCondition(dir.Conditions),
		NewStorageContainer(dir.Containers, dir.Locations),
		NewPlacementContainer(dir.Containers, dir.Locations),
		NewCreateContainer(dir.Services),
		NewCloseContainer(dir.Containers, dir.Services),
		NewPrintLabel(dir.Containers, dir.Printer),
	} {
		// kinds are distinct, Register cannot fail here
		_ = r.Register(res)
	}
	return r
}

// Register adds res under its kind.
func (r *Registry) Register(res Resolver) error {
	if res == nil {
		return fmt.Errorf("resolver required")
	}
	kind := res.Kind()
	if kind == "" {
		return fmt.Errorf("resolver kind required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolvers == nil {
		r.resolvers = make(map[wizard.ObjectKind]Resolver)
	}
	if _, exists := r.resolvers[kind]; exists {
		return fmt.Errorf("resolver %s already registered", kind)
	}
	r.resolvers[kind] = res
	return nil
}

// Replace registers res, overwriting any resolver of the same kind.
func (r *Registry) Replace(res Resolver) {
	if res == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolvers == nil {
		r.resolvers = make(map[wizard.ObjectKind]Resolver)
	}
	r.resolvers[res.Kind()] = res
}

// Lookup retrieves the resolver for kind.
func (r *Registry) Lookup(kind wizard.ObjectKind) (Resolver, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolvers[kind]
	return res, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []wizard.ObjectKind {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]wizard.ObjectKind, 0, len(r.resolvers))
	for k := range r.resolvers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Missing returns the kinds used by steps that have no resolver.
func (r *Registry) Missing(steps []wizard.Step) []wizard.ObjectKind {
	var out []wizard.ObjectKind
	seen := map[wizard.ObjectKind]bool{}
	for _, s := range steps {
		if _, ok := r.Lookup(s.Kind); !ok && !seen[s.Kind] {
			seen[s.Kind] = true
			out = append(out, s.Kind)
		}
	}
	return out
}
