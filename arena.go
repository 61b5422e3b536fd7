// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// SlotIndex names a GPU object owned by a ResourceArena.
type SlotIndex uint32

type arenaSlot struct {
	kind    gpucore.ResourceKind
	live    bool
	name    string
	texture gpucore.Texture
	buffer  gpucore.Buffer
}

// ResourceArena is the single owner of the GPU objects the graph allocates.
// The transient cache and temporal state refer to them by SlotIndex, so an
// object is destroyed exactly once, by Free.
//
// Freed slots are reused by later allocations.
type ResourceArena struct {
	device gpucore.Device
	slots  []arenaSlot
	free   []SlotIndex
	live   int
}

// NewResourceArena creates an arena allocating from dev.
func NewResourceArena(dev gpucore.Device) *ResourceArena {
	return &ResourceArena{device: dev}
}

// Device returns the device the arena allocates from.
func (a *ResourceArena) Device() gpucore.Device { return a.device }

// AllocTexture creates a texture and returns its slot.
func (a *ResourceArena) AllocTexture(desc gpucore.TextureDesc, initial []byte, name string) (SlotIndex, gpucore.Texture, error) {
	t, err := a.device.CreateTexture(desc, initial, name)
	if err != nil {
		return 0, gpucore.Texture{}, fmt.Errorf("framegraph: create texture %q: %w", name, err)
	}
	slot := a.put(arenaSlot{kind: gpucore.ResourceKindImage, live: true, name: name, texture: t})
	slogger().Debug("arena: texture allocated", "name", name, "slot", slot, "id", t.ID)
	return slot, t, nil
}

// AllocBuffer creates a buffer and returns its slot.
func (a *ResourceArena) AllocBuffer(desc gpucore.BufferDesc, name string, initial []byte) (SlotIndex, gpucore.Buffer, error) {
	b, err := a.device.CreateBuffer(desc, name, initial)
	if err != nil {
		return 0, gpucore.Buffer{}, fmt.Errorf("framegraph: create buffer %q: %w", name, err)
	}
	slot := a.put(arenaSlot{kind: gpucore.ResourceKindBuffer, live: true, name: name, buffer: b})
	slogger().Debug("arena: buffer allocated", "name", name, "slot", slot, "id", b.ID)
	return slot, b, nil
}

func (a *ResourceArena) put(s arenaSlot) SlotIndex {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = s
		return idx
	}
	a.slots = append(a.slots, s)
	return SlotIndex(len(a.slots) - 1) // #nosec G115 -- slot count fits in uint32
}

func (a *ResourceArena) slot(s SlotIndex) (*arenaSlot, bool) {
	if int(s) >= len(a.slots) || !a.slots[s].live {
		return nil, false
	}
	return &a.slots[s], true
}

// Texture returns the texture in slot s.
func (a *ResourceArena) Texture(s SlotIndex) (gpucore.Texture, bool) {
	sl, ok := a.slot(s)
	if !ok || sl.kind != gpucore.ResourceKindImage {
		return gpucore.Texture{}, false
	}
	return sl.texture, true
}

// Buffer returns the buffer in slot s.
func (a *ResourceArena) Buffer(s SlotIndex) (gpucore.Buffer, bool) {
	sl, ok := a.slot(s)
	if !ok || sl.kind != gpucore.ResourceKindBuffer {
		return gpucore.Buffer{}, false
	}
	return sl.buffer, true
}

// Kind returns the resource kind stored in slot s.
func (a *ResourceArena) Kind(s SlotIndex) (gpucore.ResourceKind, bool) {
	sl, ok := a.slot(s)
	if !ok {
		return 0, false
	}
	return sl.kind, true
}

// Free destroys the object in slot s. Freeing an empty slot does nothing.
func (a *ResourceArena) Free(s SlotIndex) {
	sl, ok := a.slot(s)
	if !ok {
		return
	}
	switch sl.kind {
	case gpucore.ResourceKindImage:
		a.device.DestroyTexture(sl.texture)
	case gpucore.ResourceKindBuffer:
		a.device.DestroyBuffer(sl.buffer)
	}
	slogger().Debug("arena: freed", "name", sl.name, "slot", s)
	*sl = arenaSlot{}
	a.free = append(a.free, s)
	a.live--
}

// Live returns the number of allocated slots.
func (a *ResourceArena) Live() int { return a.live }
