// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/framegraph/gpucore"
)

// TemporalKey names a resource that outlives a frame.
type TemporalKey string

// temporalResource is a GPU object held by the arena on behalf of a key.
type temporalResource struct {
	slot    SlotIndex
	kind    gpucore.ResourceKind
	texture gpucore.Texture
	buffer  gpucore.Buffer
}

// temporalEntry is the per-key state:
//
//	Inert --GetOrCreate--> Imported --ExportTemporal--> Exported --RetireTemporal--> Inert
//
// The variants are temporalInert, temporalImported and temporalExported.
type temporalEntry interface {
	res() temporalResource
	isTemporalEntry()
}

type temporalInert struct {
	resource temporalResource
	access   gpucore.AccessType
}

type temporalImported struct {
	resource temporalResource
	handle   RawHandle
}

type temporalExported struct {
	resource temporalResource
	handle   RawHandle
}

func (e temporalInert) res() temporalResource    { return e.resource }
func (e temporalImported) res() temporalResource { return e.resource }
func (e temporalExported) res() temporalResource { return e.resource }

func (temporalInert) isTemporalEntry()    {}
func (temporalImported) isTemporalEntry() {}
func (temporalExported) isTemporalEntry() {}

// TemporalState holds the resources that persist across frames, keyed by
// name. Its GPU objects live in a ResourceArena and are only destroyed by
// Clear.
type TemporalState struct {
	arena     *ResourceArena
	entries   map[TemporalKey]temporalEntry
	conflicts int
}

// NewTemporalState creates an empty state allocating from arena.
func NewTemporalState(arena *ResourceArena) *TemporalState {
	return &TemporalState{
		arena:   arena,
		entries: make(map[TemporalKey]temporalEntry),
	}
}

func (s *TemporalState) clone() *TemporalState {
	return &TemporalState{
		arena:   s.arena,
		entries: maps.Clone(s.entries),
	}
}

// Len returns the number of keys.
func (s *TemporalState) Len() int { return len(s.entries) }

// Keys returns the keys in sorted order.
func (s *TemporalState) Keys() []TemporalKey {
	return slices.Sorted(maps.Keys(s.entries))
}

// Conflicts returns the number of lookups refused since the state was
// created from its predecessor.
func (s *TemporalState) Conflicts() int { return s.conflicts }

// IsInert reports whether key is stored and at rest between frames.
func (s *TemporalState) IsInert(key TemporalKey) bool {
	_, ok := s.entries[key].(temporalInert)
	return ok
}

// Access returns the access an inert key was left in.
func (s *TemporalState) Access(key TemporalKey) (gpucore.AccessType, bool) {
	e, ok := s.entries[key].(temporalInert)
	if !ok {
		return gpucore.AccessNothing, false
	}
	return e.access, true
}

// Texture returns the texture stored under key.
func (s *TemporalState) Texture(key TemporalKey) (gpucore.Texture, bool) {
	e, ok := s.entries[key]
	if !ok || e.res().kind != gpucore.ResourceKindImage {
		return gpucore.Texture{}, false
	}
	return e.res().texture, true
}

// Buffer returns the buffer stored under key.
func (s *TemporalState) Buffer(key TemporalKey) (gpucore.Buffer, bool) {
	e, ok := s.entries[key]
	if !ok || e.res().kind != gpucore.ResourceKindBuffer {
		return gpucore.Buffer{}, false
	}
	return e.res().buffer, true
}

// RetireTemporal moves every exported key back to Inert with the access the
// graph left it in. rg must be the graph the state was exported from, after
// its resources were released.
func (s *TemporalState) RetireTemporal(rg *RenderGraph) error {
	var errs []error
	for _, key := range s.Keys() {
		e, ok := s.entries[key].(temporalExported)
		if !ok {
			continue
		}
		var (
			access gpucore.AccessType
			err    error
		)
		switch e.resource.kind {
		case gpucore.ResourceKindImage:
			access, err = ExportedAccess(rg, ExportedHandle[gpucore.TextureDesc]{Raw: e.handle})
		default:
			access, err = ExportedAccess(rg, ExportedHandle[gpucore.BufferDesc]{Raw: e.handle})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("temporal %q: %w", key, err))
			continue
		}
		s.entries[key] = temporalInert{resource: e.resource, access: access}
	}
	return errors.Join(errs...)
}

// SettledAccesses returns, for every exported key, the access rg has it in
// right now. Call it once the command buffer holding those transitions
// has been submitted.
func (s *TemporalState) SettledAccesses(rg *RenderGraph) map[TemporalKey]gpucore.AccessType {
	out := make(map[TemporalKey]gpucore.AccessType)
	for key, e := range s.entries {
		e, ok := e.(temporalExported)
		if !ok {
			continue
		}
		var (
			access gpucore.AccessType
			err    error
		)
		switch e.resource.kind {
		case gpucore.ResourceKindImage:
			access, err = ExportedAccess(rg, ExportedHandle[gpucore.TextureDesc]{Raw: e.handle})
		default:
			access, err = ExportedAccess(rg, ExportedHandle[gpucore.BufferDesc]{Raw: e.handle})
		}
		if err == nil {
			out[key] = access
		}
	}
	return out
}

// RestExported moves every exported key back to Inert after a frame that
// did not complete. A key found in settled keeps that access, any other
// rests in AccessNothing.
func (s *TemporalState) RestExported(settled map[TemporalKey]gpucore.AccessType) {
	for key, e := range s.entries {
		e, ok := e.(temporalExported)
		if !ok {
			continue
		}
		access, ok := settled[key]
		if !ok {
			access = gpucore.AccessNothing
		}
		s.entries[key] = temporalInert{resource: e.resource, access: access}
	}
}

// MergeNew adds the keys of next that s does not know yet, as inert
// resources in AccessNothing. It keeps the GPU objects created by a frame
// that never ran reachable, so Clear still frees them.
func (s *TemporalState) MergeNew(next *TemporalState) {
	for key, e := range next.entries {
		if _, ok := s.entries[key]; ok {
			continue
		}
		s.entries[key] = temporalInert{resource: e.res(), access: gpucore.AccessNothing}
	}
}

// Clear frees every resource and forgets every key.
func (s *TemporalState) Clear() {
	for key, e := range s.entries {
		s.arena.Free(e.res().slot)
		delete(s.entries, key)
	}
}

// TemporalGraph is a RenderGraph that can also reach resources kept from
// earlier frames.
//
// It works on a copy of the state it was created from: the copy is returned
// by ExportTemporal and the original is unchanged.
type TemporalGraph struct {
	*RenderGraph
	state *TemporalState
}

// NewTemporalGraph wraps rg with a copy of state.
func NewTemporalGraph(rg *RenderGraph, state *TemporalState) *TemporalGraph {
	return &TemporalGraph{RenderGraph: rg, state: state.clone()}
}

// GetOrCreateImage returns the image stored under key, creating it with
// desc on first use. A key can be taken once per frame. A refused lookup
// is logged and returns the empty handle with an error wrapping
// ErrTemporalKeyConflict.
func (tg *TemporalGraph) GetOrCreateImage(key TemporalKey, desc gpucore.TextureDesc) (ImageHandle, error) {
	if e, ok := tg.state.entries[key]; ok {
		res, access, err := tg.take(key, e, gpucore.ResourceKindImage)
		if err != nil {
			return EmptyHandle[gpucore.TextureDesc](), err
		}
		h := tg.ImportImage(res.texture, access)
		tg.state.entries[key] = temporalImported{resource: res, handle: h.Raw}
		return h, nil
	}

	slot, tex, err := tg.state.arena.AllocTexture(desc, nil, string(key))
	if err != nil {
		return EmptyHandle[gpucore.TextureDesc](), err
	}
	h := tg.ImportImage(tex, gpucore.AccessNothing)
	tg.state.entries[key] = temporalImported{
		resource: temporalResource{slot: slot, kind: gpucore.ResourceKindImage, texture: tex},
		handle:   h.Raw,
	}
	return h, nil
}

// GetOrCreateBuffer is GetOrCreateImage for buffers. New buffers are
// zero-filled.
func (tg *TemporalGraph) GetOrCreateBuffer(key TemporalKey, desc gpucore.BufferDesc) (BufferHandle, error) {
	if e, ok := tg.state.entries[key]; ok {
		res, access, err := tg.take(key, e, gpucore.ResourceKindBuffer)
		if err != nil {
			return EmptyHandle[gpucore.BufferDesc](), err
		}
		h := tg.ImportBuffer(res.buffer, access)
		tg.state.entries[key] = temporalImported{resource: res, handle: h.Raw}
		return h, nil
	}

	slot, buf, err := tg.state.arena.AllocBuffer(desc, string(key), make([]byte, desc.Size))
	if err != nil {
		return EmptyHandle[gpucore.BufferDesc](), err
	}
	h := tg.ImportBuffer(buf, gpucore.AccessNothing)
	tg.state.entries[key] = temporalImported{
		resource: temporalResource{slot: slot, kind: gpucore.ResourceKindBuffer, buffer: buf},
		handle:   h.Raw,
	}
	return h, nil
}

// take checks that an existing entry is inert and of the wanted kind.
func (tg *TemporalGraph) take(key TemporalKey, e temporalEntry, want gpucore.ResourceKind) (temporalResource, gpucore.AccessType, error) {
	inert, ok := e.(temporalInert)
	if !ok {
		slogger().Error("framegraph: temporal resource already taken", "key", key)
		return tg.refuse("taken", fmt.Errorf("%w: %q already taken", ErrTemporalKeyConflict, key))
	}
	if got := inert.resource.kind; got != want {
		if got == gpucore.ResourceKindBuffer {
			slogger().Error("framegraph: temporal resource is a buffer, but an image was requested", "key", key)
		} else {
			slogger().Error("framegraph: temporal resource is an image, but a buffer was requested", "key", key)
		}
		return tg.refuse("kind", fmt.Errorf("%w: %q is a %s, not a %s", ErrTemporalKeyConflict, key, got, want))
	}
	return inert.resource, inert.access, nil
}

func (tg *TemporalGraph) refuse(reason string, err error) (temporalResource, gpucore.AccessType, error) {
	tg.state.conflicts++
	temporalConflictsTotal.WithLabelValues(reason).Inc()
	return temporalResource{}, gpucore.AccessNothing, err
}

// State returns the state the graph is working on.
func (tg *TemporalGraph) State() *TemporalState { return tg.state }

// ExportTemporal exports every key imported this frame and returns the
// resulting state. After the graph has executed, RetireTemporal on the
// returned state makes the keys available to the next frame.
func (tg *TemporalGraph) ExportTemporal() *TemporalState {
	for _, key := range tg.state.Keys() {
		e, ok := tg.state.entries[key].(temporalImported)
		if !ok {
			continue
		}
		tg.export(e.handle, gpucore.AccessNothing)
		tg.state.entries[key] = temporalExported{resource: e.resource, handle: e.handle}
	}
	return tg.state
}
