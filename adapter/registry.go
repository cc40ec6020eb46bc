package adapter

import (
	"context"
	"fmt"
)

// Factory builds one school adapter. Construction may do I/O (ensuring the
// backing storage schema exists, resolving the school timezone), so it
// takes a context.
type Factory func(ctx context.Context, store CredentialStore) (School, error)

// Registration pairs a registry key with its adapter factory.
type Registration struct {
	Name string
	New  Factory
}

// Registry maps school names to shared, ready-to-use adapter instances.
// It is built once at startup and read-only afterwards, so lookups need no
// locking.
type Registry struct {
	schools map[string]School
	names   []string
}

// NewRegistry constructs every registered adapter in order. Any factory
// failure is fatal: silently dropping a school is worse than refusing to
// start.
func NewRegistry(ctx context.Context, store CredentialStore, regs []Registration) (*Registry, error) {
	r := &Registry{schools: make(map[string]School, len(regs))}
	for _, reg := range regs {
		if _, dup := r.schools[reg.Name]; dup {
			return nil, fmt.Errorf("school adapter %q registered twice", reg.Name)
		}
		school, err := reg.New(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("constructing school adapter %q: %w", reg.Name, err)
		}
		r.schools[reg.Name] = school
		r.names = append(r.names, reg.Name)
	}
	return r, nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (School, error) {
	school, ok := r.schools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
	return school, nil
}

// Names lists the registered schools in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
