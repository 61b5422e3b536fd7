// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](10)
	c.Set("key1", 42)

	val, ok := c.Get("key1")
	if !ok || val != 42 {
		t.Errorf("Get(key1) = %d, %v, want 42, true", val, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) found an entry")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() hits=%d misses=%d, want 1, 1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("Stats().HitRate = %v, want 0.5", s.HitRate)
	}
}

func TestCacheEviction(t *testing.T) {
	var evicted []string
	c := New[string, int](4, WithEvict(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	for i := range 4 {
		c.Set(strconv.Itoa(i), i)
	}
	// Touch "0" so "1" becomes the oldest.
	c.Get("0")
	c.Set("4", 4)

	// Target size is 3 so two entries go: "1" then "2".
	if len(evicted) != 2 || evicted[0] != "1" || evicted[1] != "2" {
		t.Errorf("evicted = %v, want [1 2]", evicted)
	}
	if _, ok := c.Get("0"); !ok {
		t.Error("recently used entry was evicted")
	}
	if got := c.Stats().Evictions; got != 2 {
		t.Errorf("Stats().Evictions = %d, want 2", got)
	}
}

func TestCacheDeleteAndClearCallEvict(t *testing.T) {
	released := map[string]int{}
	c := New[string, int](0, WithEvict(func(k string, v int) { released[k] = v }))

	c.Set("a", 1)
	c.Set("a", 2) // replaced value is released
	c.Set("b", 3)

	if !c.Delete("b") {
		t.Error("Delete(b) = false, want true")
	}
	if c.Delete("b") {
		t.Error("second Delete(b) = true, want false")
	}
	c.Clear()

	want := map[string]int{"a": 2, "b": 3}
	if len(released) != len(want) {
		t.Fatalf("released = %v, want %v", released, want)
	}
	for k, v := range want {
		if released[k] != v {
			t.Errorf("released[%q] = %d, want %d", k, released[k], v)
		}
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestCacheUnlimited(t *testing.T) {
	c := New[int, int](0)
	for i := range 1000 {
		c.Set(i, i)
	}
	if c.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", c.Len())
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New[int, int](64)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := (g*200 + i) % 100
				if _, ok := c.Get(key); !ok {
					c.Set(key, i)
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len() = %d, want <= 64", c.Len())
	}
}
