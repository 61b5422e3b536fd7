// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/gpucore"
)

// graphResource is one entry of the graph's resource table as declared at
// build time.
type graphResource interface {
	kind() gpucore.ResourceKind
	isGraphResource()
}

type createdImage struct {
	desc gpucore.TextureDesc
	name string
}

type createdBuffer struct {
	desc gpucore.BufferDesc
	name string
}

type importedImage struct {
	texture gpucore.Texture
	access  gpucore.AccessType
}

type importedBuffer struct {
	buffer gpucore.Buffer
	access gpucore.AccessType
}

type importedAcceleration struct {
	accel  gpucore.Acceleration
	access gpucore.AccessType
}

// importedSwapchain stands in for the presentable image until it has been
// acquired.
type importedSwapchain struct {
	desc gpucore.TextureDesc
}

func (createdImage) kind() gpucore.ResourceKind         { return gpucore.ResourceKindImage }
func (createdBuffer) kind() gpucore.ResourceKind        { return gpucore.ResourceKindBuffer }
func (importedImage) kind() gpucore.ResourceKind        { return gpucore.ResourceKindImage }
func (importedBuffer) kind() gpucore.ResourceKind       { return gpucore.ResourceKindBuffer }
func (importedAcceleration) kind() gpucore.ResourceKind { return gpucore.ResourceKindAcceleration }
func (importedSwapchain) kind() gpucore.ResourceKind    { return gpucore.ResourceKindImage }

func (createdImage) isGraphResource()         {}
func (createdBuffer) isGraphResource()        {}
func (importedImage) isGraphResource()        {}
func (importedBuffer) isGraphResource()       {}
func (importedAcceleration) isGraphResource() {}
func (importedSwapchain) isGraphResource()    {}

// swapchainDesc is the placeholder descriptor handed out by GetSwapChain.
var swapchainDesc = gpucore.NewTextureDesc2D(gputypes.TextureFormatRGBA8Unorm, 1, 1)

// renderResource is the execution-time form of a graph resource.
type renderResource interface {
	isRenderResource()
}

type ownedImage struct {
	slot    SlotIndex
	texture gpucore.Texture
}

type ownedBuffer struct {
	slot   SlotIndex
	buffer gpucore.Buffer
}

type liveImage struct{ texture gpucore.Texture }

type liveBuffer struct{ buffer gpucore.Buffer }

type liveAcceleration struct{ accel gpucore.Acceleration }

// pendingSwapchain is resolved to the acquired image by RecordPresentationCB.
type pendingSwapchain struct{}

func (ownedImage) isRenderResource()       {}
func (ownedBuffer) isRenderResource()      {}
func (liveImage) isRenderResource()        {}
func (liveBuffer) isRenderResource()       {}
func (liveAcceleration) isRenderResource() {}
func (pendingSwapchain) isRenderResource() {}

// registryResource is a concrete resource plus the access it was last
// transitioned to.
type registryResource struct {
	resource renderResource
	access   gpucore.AccessType
	// spans holds per-range accesses of a buffer after a ranged
	// transition, sorted by offset and covering the whole buffer. Nil
	// means the whole resource is in access.
	spans []accessSpan
}

// accessSpan is a byte range of a buffer in one access.
type accessSpan struct {
	ByteRange
	access gpucore.AccessType
}

// intersect returns the bytes r and o share.
func (r ByteRange) intersect(o ByteRange) (ByteRange, bool) {
	if !r.Overlaps(o) {
		return ByteRange{}, false
	}
	lo, hi := max(r.Offset, o.Offset), min(r.End(), o.End())
	return ByteRange{Offset: lo, Size: hi - lo}, true
}

// coalesce merges neighbouring spans in the same access.
func coalesce(spans []accessSpan) []accessSpan {
	out := spans[:0]
	for _, s := range spans {
		if s.Size == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].access == s.access && out[n-1].End() == s.Offset {
			out[n-1].Size += s.Size
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *registryResource) texture() (gpucore.Texture, bool) {
	switch res := r.resource.(type) {
	case ownedImage:
		return res.texture, true
	case liveImage:
		return res.texture, true
	}
	return gpucore.Texture{}, false
}

func (r *registryResource) buffer() (gpucore.Buffer, bool) {
	switch res := r.resource.(type) {
	case ownedBuffer:
		return res.buffer, true
	case liveBuffer:
		return res.buffer, true
	}
	return gpucore.Buffer{}, false
}

func (r *registryResource) acceleration() (gpucore.Acceleration, bool) {
	if res, ok := r.resource.(liveAcceleration); ok {
		return res.accel, true
	}
	return gpucore.Acceleration{}, false
}
