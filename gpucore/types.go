// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent GPU objects owned by a Device. Each backend
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// AccelerationID is an opaque handle to a ray tracing acceleration structure.
type AccelerationID uint64

// PipelineID is an opaque handle to a compiled pipeline of any kind.
type PipelineID uint64

// DescriptorSetID is an opaque handle to a descriptor set created by a Device.
type DescriptorSetID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ResourceKind distinguishes the three resource families the graph tracks.
type ResourceKind uint8

const (
	ResourceKindImage ResourceKind = iota
	ResourceKindBuffer
	ResourceKindAcceleration
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindImage:
		return "image"
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindAcceleration:
		return "acceleration"
	}
	return "unknown"
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	TextureUsageTransferSrc TextureUsage = 1 << iota
	TextureUsageTransferDst
	TextureUsageSampled
	TextureUsageStorage
	TextureUsageColorAttachment
	TextureUsageDepthStencilAttachment
)

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniformTexel
	BufferUsageStorageTexel
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
	BufferUsageShaderDeviceAddress
	BufferUsageAccelerationStructureBuildInput
)

// MemoryLocation selects the heap a buffer lives in.
type MemoryLocation uint8

const (
	MemoryGPUOnly MemoryLocation = iota
	MemoryCPUToGPU
	MemoryGPUToCPU
)

// ImageType is the dimensionality of a texture.
type ImageType uint8

const (
	ImageType1D ImageType = iota
	ImageType2D
	ImageType3D
	ImageTypeCube
	ImageType1DArray
	ImageType2DArray
)

// TextureDesc describes a texture. It is comparable and is used as the
// key of the transient resource pool, so two descriptors that compare equal
// may share a backing texture across frames.
type TextureDesc struct {
	ImageType     ImageType
	Usage         TextureUsage
	Format        gputypes.TextureFormat
	Extent        [3]uint32
	MipLevels     uint16
	ArrayElements uint32
	SampleCount   uint32
}

// NewTextureDesc2D returns a single-mip 2D texture descriptor.
func NewTextureDesc2D(format gputypes.TextureFormat, width, height uint32) TextureDesc {
	return TextureDesc{
		ImageType:     ImageType2D,
		Format:        format,
		Extent:        [3]uint32{width, height, 1},
		MipLevels:     1,
		ArrayElements: 1,
		SampleCount:   1,
	}
}

// NewTextureDesc3D returns a single-mip 3D texture descriptor.
func NewTextureDesc3D(format gputypes.TextureFormat, width, height, depth uint32) TextureDesc {
	return TextureDesc{
		ImageType:     ImageType3D,
		Format:        format,
		Extent:        [3]uint32{width, height, depth},
		MipLevels:     1,
		ArrayElements: 1,
		SampleCount:   1,
	}
}

// WithUsage returns a copy of d with usage flags added.
func (d TextureDesc) WithUsage(u TextureUsage) TextureDesc {
	d.Usage |= u
	return d
}

// WithMipLevels returns a copy of d with the given mip count.
func (d TextureDesc) WithMipLevels(n uint16) TextureDesc {
	d.MipLevels = n
	return d
}

// Extent2D returns the width and height.
func (d TextureDesc) Extent2D() [2]uint32 {
	return [2]uint32{d.Extent[0], d.Extent[1]}
}

// ResourceKind reports ResourceKindImage.
func (TextureDesc) ResourceKind() ResourceKind { return ResourceKindImage }

// BufferDesc describes a buffer. Like TextureDesc it is comparable.
type BufferDesc struct {
	Size      uint64
	Usage     BufferUsage
	Memory    MemoryLocation
	Alignment uint64
}

// NewBufferDesc returns a GPU-only buffer descriptor.
func NewBufferDesc(size uint64, usage BufferUsage) BufferDesc {
	return BufferDesc{Size: size, Usage: usage, Memory: MemoryGPUOnly}
}

// NewBufferDescCPUToGPU returns a host-visible upload buffer descriptor.
func NewBufferDescCPUToGPU(size uint64, usage BufferUsage) BufferDesc {
	return BufferDesc{Size: size, Usage: usage, Memory: MemoryCPUToGPU}
}

// WithAlignment returns a copy of d with the given alignment.
func (d BufferDesc) WithAlignment(a uint64) BufferDesc {
	d.Alignment = a
	return d
}

// ResourceKind reports ResourceKindBuffer.
func (BufferDesc) ResourceKind() ResourceKind { return ResourceKindBuffer }

// AccelerationLevel distinguishes top- and bottom-level structures.
type AccelerationLevel uint8

const (
	AccelerationBottom AccelerationLevel = iota
	AccelerationTop
)

// AccelerationDesc describes a ray tracing acceleration structure.
type AccelerationDesc struct {
	Level AccelerationLevel
	Size  uint64
}

// ResourceKind reports ResourceKindAcceleration.
func (AccelerationDesc) ResourceKind() ResourceKind { return ResourceKindAcceleration }

// Texture is a concrete texture owned by a Device.
type Texture struct {
	ID   TextureID
	Desc TextureDesc
}

// Buffer is a concrete buffer owned by a Device.
type Buffer struct {
	ID   BufferID
	Desc BufferDesc
}

// Acceleration is a concrete acceleration structure owned by a Device.
type Acceleration struct {
	ID   AccelerationID
	Desc AccelerationDesc
}

// ImageAspect selects the planes of an image a barrier or view covers.
type ImageAspect uint8

const (
	AspectColor ImageAspect = 1 << iota
	AspectDepth
	AspectStencil
)

func (a ImageAspect) String() string {
	switch a {
	case 0:
		return "none"
	case AspectColor:
		return "color"
	case AspectDepth:
		return "depth"
	case AspectStencil:
		return "stencil"
	case AspectDepth | AspectStencil:
		return "depth|stencil"
	}
	return "mixed"
}

// TextureViewDesc selects a subresource range of a texture. The zero value
// means every mip and layer with the aspect derived from the format.
type TextureViewDesc struct {
	Aspect    ImageAspect
	BaseMip   uint32
	MipCount  uint32
	BaseLayer uint32
}

// WithAspect returns a copy of v restricted to the aspect a.
func (v TextureViewDesc) WithAspect(a ImageAspect) TextureViewDesc {
	v.Aspect = a
	return v
}

// TextureView pairs a texture with a subresource view.
type TextureView struct {
	Texture Texture
	View    TextureViewDesc
}

// ImageBarrier transitions an image between two access types.
// Discard allows the previous contents to be thrown away.
type ImageBarrier struct {
	Texture Texture
	Prev    AccessType
	Next    AccessType
	Aspect  ImageAspect
	Discard bool
}

// BufferBarrier transitions a byte range of a buffer between two access types.
type BufferBarrier struct {
	Buffer Buffer
	Prev   AccessType
	Next   AccessType
	Offset uint64
	Size   uint64
}

// SwapchainImage is an acquired presentable image.
type SwapchainImage struct {
	Texture Texture
	Index   uint32
}
