// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"math"

	"github.com/gogpu/framegraph/gpucore"
)

// RawHandle indexes the resource table of one graph. It carries no type
// information; Handle adds that.
type RawHandle struct {
	ID      uint32
	Version uint32
}

// emptyRaw is the sentinel returned for resources that could not be
// provided, such as a refused temporal lookup.
var emptyRaw = RawHandle{ID: math.MaxUint32}

// IsEmpty reports whether h is the empty sentinel.
func (h RawHandle) IsEmpty() bool { return h.ID == math.MaxUint32 }

// NextVersion returns h with its version incremented.
func (h RawHandle) NextVersion() RawHandle {
	return RawHandle{ID: h.ID, Version: h.Version + 1}
}

func (h RawHandle) String() string {
	if h.IsEmpty() {
		return "rg#empty"
	}
	return fmt.Sprintf("rg#%d.%d", h.ID, h.Version)
}

// ResourceDesc is the set of descriptor types the graph tracks.
type ResourceDesc interface {
	gpucore.TextureDesc | gpucore.BufferDesc | gpucore.AccelerationDesc
	ResourceKind() gpucore.ResourceKind
}

// Handle is a build-time reference to a resource known to one graph.
// It is valid only for the frame that produced it.
type Handle[D ResourceDesc] struct {
	Raw  RawHandle
	Desc D
}

// Handle aliases for the three resource kinds.
type (
	ImageHandle        = Handle[gpucore.TextureDesc]
	BufferHandle       = Handle[gpucore.BufferDesc]
	AccelerationHandle = Handle[gpucore.AccelerationDesc]
)

// EmptyHandle returns the empty sentinel handle for D.
func EmptyHandle[D ResourceDesc]() Handle[D] {
	return Handle[D]{Raw: emptyRaw}
}

// IsEmpty reports whether h is the empty sentinel.
func (h Handle[D]) IsEmpty() bool { return h.Raw.IsEmpty() }

// Kind returns the resource kind of h.
func (h Handle[D]) Kind() gpucore.ResourceKind { return h.Desc.ResourceKind() }

// ExportedHandle names a resource exported out of a graph. After the graph
// has executed, it is used to read back the final access type.
type ExportedHandle[D ResourceDesc] struct {
	Raw  RawHandle
	Desc D
}

// ViewKind marks how a pass sees a resource: shader read, shader write,
// or render target.
type ViewKind interface {
	Srv | Uav | Rt
	writable() bool
}

type (
	// Srv is a shader-read view.
	Srv struct{}
	// Uav is a shader-write view.
	Uav struct{}
	// Rt is a render-target view.
	Rt struct{}
)

func (Srv) writable() bool { return false }
func (Uav) writable() bool { return true }
func (Rt) writable() bool  { return true }

// Ref is a pass-scoped reference produced by declaring an access. It is
// used inside the pass to bind or look up the resource.
type Ref[D ResourceDesc, V ViewKind] struct {
	Raw  RawHandle
	Desc D
}

// Writable reports whether the view permits writes.
func (r Ref[D, V]) Writable() bool {
	var v V
	return v.writable()
}

// Bind returns the default binding for the referenced resource: whole
// image or buffer, or the acceleration structure.
func (r Ref[D, V]) Bind() Binding {
	return r.BindView(gpucore.TextureViewDesc{})
}

// BindView is Bind with an explicit image view. The view is ignored for
// buffers and acceleration structures.
func (r Ref[D, V]) BindView(view gpucore.TextureViewDesc) Binding {
	switch r.Desc.ResourceKind() {
	case gpucore.ResourceKindImage:
		layout := gpucore.ImageLayoutShaderReadOnly
		if r.Writable() {
			layout = gpucore.ImageLayoutGeneral
		}
		return ImageBinding{Handle: r.Raw, View: view, Layout: layout}
	case gpucore.ResourceKindBuffer:
		return BufferBinding{Handle: r.Raw}
	default:
		return AccelerationBinding{Handle: r.Raw}
	}
}
