// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"testing"
)

// resetRegistry clears all registered backends for test isolation.
func resetRegistry() map[string]Factory {
	registryMu.Lock()
	defer registryMu.Unlock()
	old := backends
	backends = make(map[string]Factory)
	return old
}

func restoreRegistry(old map[string]Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends = old
}

func stubFactory(calls *int) Factory {
	return func(opts Options) (*Instance, error) {
		*calls++
		return NewInstance("", nil, nil, nil, nil), nil
	}
}

func TestRegisterAndOpen(t *testing.T) {
	defer restoreRegistry(resetRegistry())

	var calls int
	Register("test", stubFactory(&calls))

	inst, err := Open("test", Options{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if inst.Name != "test" {
		t.Errorf("Name = %q, want %q", inst.Name, "test")
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
}

func TestOpenUnknown(t *testing.T) {
	defer restoreRegistry(resetRegistry())

	_, err := Open("missing", Options{Width: 1, Height: 1})
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open() error = %v, want %v", err, ErrBackendNotAvailable)
	}
}

func TestOpenValidatesOptions(t *testing.T) {
	defer restoreRegistry(resetRegistry())

	var calls int
	Register("test", stubFactory(&calls))
	_, err := Open("test", Options{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("Open() error = %v, want %v", err, ErrInvalidOptions)
	}
	if calls != 0 {
		t.Errorf("factory called %d times for invalid options", calls)
	}
}

func TestRegisterPanics(t *testing.T) {
	defer restoreRegistry(resetRegistry())

	t.Run("nil factory", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for nil factory")
			}
		}()
		Register("nil", nil)
	})

	t.Run("duplicate", func(t *testing.T) {
		var calls int
		Register("dup", stubFactory(&calls))
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for duplicate registration")
			}
		}()
		Register("dup", stubFactory(&calls))
	})
}

func TestDefaultPriority(t *testing.T) {
	defer restoreRegistry(resetRegistry())

	if _, err := Default(Options{Width: 1, Height: 1}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Fatalf("Default() on empty registry error = %v", err)
	}

	var zCalls, recCalls int
	Register("zzz", stubFactory(&zCalls))
	Register("recording", stubFactory(&recCalls))

	inst, err := Default(Options{Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if inst.Name != "recording" {
		t.Errorf("Default() picked %q, want %q", inst.Name, "recording")
	}

	Register("broken", func(Options) (*Instance, error) { return nil, errors.New("boom") })
	if got := Available(); len(got) != 3 || got[0] != "broken" {
		t.Errorf("Available() = %v, want sorted names", got)
	}
}

func TestInstanceCloseOnce(t *testing.T) {
	var released int
	inst := NewInstance("x", nil, nil, nil, func() { released++ })
	inst.Close()
	inst.Close()
	if released != 1 {
		t.Errorf("release called %d times, want 1", released)
	}
}
