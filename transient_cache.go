// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/framegraph/gpucore"
)

// TransientResourceCache keeps the images and buffers of finished frames so
// that Created resources of later frames can reuse them. Reuse is keyed by
// descriptor equality; entries with the same descriptor come out in the
// order they went in.
//
// The cache holds arena slots only. Clear frees them through the arena.
type TransientResourceCache struct {
	arena   *ResourceArena
	images  map[gpucore.TextureDesc][]SlotIndex
	buffers map[gpucore.BufferDesc][]SlotIndex
}

// NewTransientResourceCache creates an empty cache over arena.
func NewTransientResourceCache(arena *ResourceArena) *TransientResourceCache {
	return &TransientResourceCache{
		arena:   arena,
		images:  make(map[gpucore.TextureDesc][]SlotIndex),
		buffers: make(map[gpucore.BufferDesc][]SlotIndex),
	}
}

// Arena returns the arena the cached slots belong to.
func (c *TransientResourceCache) Arena() *ResourceArena { return c.arena }

// GetImage takes an image matching desc out of the cache.
func (c *TransientResourceCache) GetImage(desc gpucore.TextureDesc) (SlotIndex, bool) {
	slot, ok := popFront(c.images, desc)
	if ok {
		transientHits.WithLabelValues("image").Inc()
	} else {
		transientMisses.WithLabelValues("image").Inc()
	}
	return slot, ok
}

// InsertImage returns an image slot to the cache.
func (c *TransientResourceCache) InsertImage(desc gpucore.TextureDesc, slot SlotIndex) {
	c.images[desc] = append(c.images[desc], slot)
}

// GetBuffer takes a buffer matching desc out of the cache.
func (c *TransientResourceCache) GetBuffer(desc gpucore.BufferDesc) (SlotIndex, bool) {
	slot, ok := popFront(c.buffers, desc)
	if ok {
		transientHits.WithLabelValues("buffer").Inc()
	} else {
		transientMisses.WithLabelValues("buffer").Inc()
	}
	return slot, ok
}

// InsertBuffer returns a buffer slot to the cache.
func (c *TransientResourceCache) InsertBuffer(desc gpucore.BufferDesc, slot SlotIndex) {
	c.buffers[desc] = append(c.buffers[desc], slot)
}

// GetOrInsertImage takes a cached image matching desc or allocates a new
// one named name.
func (c *TransientResourceCache) GetOrInsertImage(desc gpucore.TextureDesc, name string) (SlotIndex, gpucore.Texture, error) {
	if slot, ok := c.GetImage(desc); ok {
		if t, ok := c.arena.Texture(slot); ok {
			return slot, t, nil
		}
	}
	return c.arena.AllocTexture(desc, nil, name)
}

// GetOrInsertBuffer takes a cached buffer matching desc or allocates a new
// one named name.
func (c *TransientResourceCache) GetOrInsertBuffer(desc gpucore.BufferDesc, name string) (SlotIndex, gpucore.Buffer, error) {
	if slot, ok := c.GetBuffer(desc); ok {
		if b, ok := c.arena.Buffer(slot); ok {
			return slot, b, nil
		}
	}
	return c.arena.AllocBuffer(desc, name, nil)
}

// Len returns the number of cached images and buffers.
func (c *TransientResourceCache) Len() (images, buffers int) {
	for _, s := range c.images {
		images += len(s)
	}
	for _, s := range c.buffers {
		buffers += len(s)
	}
	return images, buffers
}

// Clear frees every cached resource.
func (c *TransientResourceCache) Clear() {
	for desc, slots := range c.images {
		for _, s := range slots {
			c.arena.Free(s)
		}
		delete(c.images, desc)
	}
	for desc, slots := range c.buffers {
		for _, s := range slots {
			c.arena.Free(s)
		}
		delete(c.buffers, desc)
	}
}

func popFront[K comparable](m map[K][]SlotIndex, key K) (SlotIndex, bool) {
	q := m[key]
	if len(q) == 0 {
		return 0, false
	}
	slot := q[0]
	if len(q) == 1 {
		delete(m, key)
	} else {
		m[key] = q[1:]
	}
	return slot, true
}
