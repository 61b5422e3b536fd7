// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Factory opens a backend instance.
type Factory func(opts Options) (*Instance, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// Hardware abstraction layer first, headless recording as fallback.
	backendPriority = []string{"hal", "noop", "recording"}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
//
// Register panics if factory is nil or the name is already taken, so
// that conflicting registrations surface during program initialization.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens the backend registered under name.
// The error message includes a hint about forgotten imports.
func Open(name string, opts Options) (*Instance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (forgotten import?)", ErrBackendNotAvailable, name)
	}
	inst, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("backend: open %q: %w", name, err)
	}
	inst.Name = name
	return inst, nil
}

// Default opens the best available backend based on priority, falling back
// to any registered backend in name order.
func Default(opts Options) (*Instance, error) {
	names := Available()
	ordered := make([]string, 0, len(names))
	for _, p := range backendPriority {
		if IsRegistered(p) {
			ordered = append(ordered, p)
		}
	}
	for _, n := range names {
		if !slices.Contains(backendPriority, n) {
			ordered = append(ordered, n)
		}
	}
	if len(ordered) == 0 {
		return nil, ErrBackendNotAvailable
	}

	var firstErr error
	for _, name := range ordered {
		inst, err := Open(name, opts)
		if err == nil {
			return inst, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
