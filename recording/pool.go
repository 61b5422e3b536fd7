// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"github.com/gogpu/framegraph/gpucore"
)

// textureEntry is a live texture in the pool.
type textureEntry struct {
	tex  gpucore.Texture
	name string
}

// bufferEntry is a live buffer in the pool. Contents are kept so tests can
// observe uploads.
type bufferEntry struct {
	buf  gpucore.Buffer
	name string
	data []byte
}

// accelEntry is a live acceleration structure in the pool.
type accelEntry struct {
	accel gpucore.Acceleration
	name  string
}

// ResourcePool stores the objects created by a recording Device.
// IDs are allocated from a single counter so that no two objects of any
// kind share an ID, which keeps traces unambiguous.
//
// ResourcePool is not safe for concurrent use; Device guards it.
type ResourcePool struct {
	nextID   uint64
	textures map[gpucore.TextureID]*textureEntry
	buffers  map[gpucore.BufferID]*bufferEntry
	accels   map[gpucore.AccelerationID]*accelEntry

	created   int
	destroyed int
}

// NewResourcePool creates an empty resource pool.
func NewResourcePool() *ResourcePool {
	return &ResourcePool{
		textures: make(map[gpucore.TextureID]*textureEntry),
		buffers:  make(map[gpucore.BufferID]*bufferEntry),
		accels:   make(map[gpucore.AccelerationID]*accelEntry),
	}
}

func (p *ResourcePool) allocID() uint64 {
	p.nextID++
	p.created++
	return p.nextID
}

// AddTexture registers a new texture and returns it.
func (p *ResourcePool) AddTexture(desc gpucore.TextureDesc, name string) gpucore.Texture {
	tex := gpucore.Texture{ID: gpucore.TextureID(p.allocID()), Desc: desc}
	p.textures[tex.ID] = &textureEntry{tex: tex, name: name}
	return tex
}

// AddBuffer registers a new buffer. initial is copied; a nil initial
// yields a zero-filled buffer.
func (p *ResourcePool) AddBuffer(desc gpucore.BufferDesc, name string, initial []byte) gpucore.Buffer {
	buf := gpucore.Buffer{ID: gpucore.BufferID(p.allocID()), Desc: desc}
	data := make([]byte, desc.Size)
	copy(data, initial)
	p.buffers[buf.ID] = &bufferEntry{buf: buf, name: name, data: data}
	return buf
}

// AddAcceleration registers a new acceleration structure.
func (p *ResourcePool) AddAcceleration(desc gpucore.AccelerationDesc, name string) gpucore.Acceleration {
	a := gpucore.Acceleration{ID: gpucore.AccelerationID(p.allocID()), Desc: desc}
	p.accels[a.ID] = &accelEntry{accel: a, name: name}
	return a
}

// RemoveTexture drops a texture. It reports whether the texture was live.
func (p *ResourcePool) RemoveTexture(id gpucore.TextureID) bool {
	if _, ok := p.textures[id]; !ok {
		return false
	}
	delete(p.textures, id)
	p.destroyed++
	return true
}

// RemoveBuffer drops a buffer. It reports whether the buffer was live.
func (p *ResourcePool) RemoveBuffer(id gpucore.BufferID) bool {
	if _, ok := p.buffers[id]; !ok {
		return false
	}
	delete(p.buffers, id)
	p.destroyed++
	return true
}

// RemoveAcceleration drops an acceleration structure.
func (p *ResourcePool) RemoveAcceleration(id gpucore.AccelerationID) bool {
	if _, ok := p.accels[id]; !ok {
		return false
	}
	delete(p.accels, id)
	p.destroyed++
	return true
}

// TextureName returns the debug name of a live texture.
func (p *ResourcePool) TextureName(id gpucore.TextureID) (string, bool) {
	e, ok := p.textures[id]
	if !ok {
		return "", false
	}
	return e.name, true
}

// BufferName returns the debug name of a live buffer.
func (p *ResourcePool) BufferName(id gpucore.BufferID) (string, bool) {
	e, ok := p.buffers[id]
	if !ok {
		return "", false
	}
	return e.name, true
}

// bufferData returns the backing bytes of a live buffer.
func (p *ResourcePool) bufferData(id gpucore.BufferID) ([]byte, bool) {
	e, ok := p.buffers[id]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Live returns the number of live objects of all kinds.
func (p *ResourcePool) Live() int {
	return len(p.textures) + len(p.buffers) + len(p.accels)
}

// Created returns the number of objects ever created.
func (p *ResourcePool) Created() int {
	return p.created
}

// Destroyed returns the number of objects destroyed.
func (p *ResourcePool) Destroyed() int {
	return p.destroyed
}
