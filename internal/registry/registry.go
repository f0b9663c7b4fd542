// Package registry maps card UIDs to display names.
package registry

import (
	"context"
	"sync"

	"github.com/roach88/rollcall/internal/fault"
)

// Names maps a canonical UID to a display name.
type Names map[string]string

// Clone copies the mapping.
func (n Names) Clone() Names {
	out := make(Names, len(n))
	for uid, name := range n {
		out[uid] = name
	}
	return out
}

// Store loads and saves the whole registry.
type Store interface {
	LoadNames(ctx context.Context) (Names, error)
	SaveNames(ctx context.Context, n Names) error
}

// Registry is the UID to name mapping. Load-then-mutate-then-save under the
// registry mutex is the only mutation path.
type Registry struct {
	store Store
	mu    sync.Mutex
}

// New creates a registry over the given store.
func New(s Store) *Registry {
	return &Registry{store: s}
}

func (r *Registry) load(ctx context.Context, op string) (Names, error) {
	names, err := r.store.LoadNames(ctx)
	if err != nil {
		return nil, fault.Storage(op, err)
	}
	if names == nil {
		names = Names{}
	}
	return names, nil
}

// Get returns the name registered for uid. A UID that does not normalize is
// simply not registered.
func (r *Registry) Get(ctx context.Context, uid string) (string, bool, error) {
	canonical, err := NormalizeUID(uid)
	if err != nil {
		return "", false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.load(ctx, "registry.get")
	if err != nil {
		return "", false, err
	}
	name, ok := names[canonical]
	return name, ok, nil
}

// Set registers name for uid, replacing any previous name.
// The name is trimmed and must not be empty.
func (r *Registry) Set(ctx context.Context, uid, name string) error {
	canonical, err := NormalizeUID(uid)
	if err != nil {
		return err
	}
	name = NormalizeName(name)
	if err := validateEntry(canonical, name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.load(ctx, "registry.set")
	if err != nil {
		return err
	}
	names[canonical] = name
	if err := r.store.SaveNames(ctx, names); err != nil {
		return fault.Storage("registry.set", err)
	}
	return nil
}

// All returns a copy of every registration.
func (r *Registry) All(ctx context.Context) (Names, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.load(ctx, "registry.all")
	if err != nil {
		return nil, err
	}
	return names.Clone(), nil
}
