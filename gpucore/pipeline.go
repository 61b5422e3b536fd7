// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"
)

// ShaderStage is a bitmask of shader stages.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageGeometry
	ShaderStageCompute
	ShaderStageRayGen
	ShaderStageMiss
	ShaderStageClosestHit
	ShaderStageAnyHit

	ShaderStageAll = ShaderStageVertex | ShaderStageFragment | ShaderStageGeometry |
		ShaderStageCompute | ShaderStageRayGen | ShaderStageMiss | ShaderStageClosestHit | ShaderStageAnyHit
)

// BindPoint selects which pipeline a descriptor set is bound for.
type BindPoint uint8

const (
	BindPointGraphics BindPoint = iota
	BindPointCompute
	BindPointRayTracing
)

func (b BindPoint) String() string {
	switch b {
	case BindPointGraphics:
		return "graphics"
	case BindPointCompute:
		return "compute"
	case BindPointRayTracing:
		return "ray-tracing"
	}
	return fmt.Sprintf("BindPoint(%d)", uint8(b))
}

// DescriptorType is the type of one descriptor set binding.
type DescriptorType uint8

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorUniformBufferDynamic
	DescriptorStorageBuffer
	DescriptorStorageBufferDynamic
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorAccelerationStructure
)

// DescriptorBindingLayout describes one binding slot of a set layout.
type DescriptorBindingLayout struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

// DescriptorSetLayout is an ordered list of binding slots.
type DescriptorSetLayout struct {
	Bindings []DescriptorBindingLayout
}

// DescriptorSetOpts maps a set index to a layout that replaces whatever the
// shader reflection would produce for that set.
type DescriptorSetOpts map[uint32]DescriptorSetLayout

// Merge copies every entry of other into o, overriding existing sets, and
// returns the result. A nil o is allocated.
func (o DescriptorSetOpts) Merge(other DescriptorSetOpts) DescriptorSetOpts {
	if len(other) == 0 {
		return o
	}
	if o == nil {
		o = make(DescriptorSetOpts, len(other))
	}
	maps.Copy(o, other)
	return o
}

// Sets returns the set indices in ascending order.
func (o DescriptorSetOpts) Sets() []uint32 {
	return slices.Sorted(maps.Keys(o))
}

// ShaderDefine is a preprocessor definition passed to shader compilation.
type ShaderDefine struct {
	Name  string
	Value string
}

// ShaderSource locates shader code. Path is resolved by the pipeline cache;
// Code, when set, is used instead of reading Path.
type ShaderSource struct {
	Path  string
	Entry string
	Code  string
}

// Key returns a stable identity for the source, used by caches.
func (s ShaderSource) Key() string {
	if s.Code != "" {
		return "inline:" + s.Entry + ":" + s.Code
	}
	return s.Path + "#" + s.Entry
}

// PipelineShaderDesc is one stage of a raster or ray tracing pipeline.
type PipelineShaderDesc struct {
	Stage   ShaderStage
	Source  ShaderSource
	Defines []ShaderDefine
}

// ComputePipelineDesc requests a compute pipeline.
type ComputePipelineDesc struct {
	Label              string
	Source             ShaderSource
	Defines            []ShaderDefine
	DescriptorSetOpts  DescriptorSetOpts
	PushConstantsBytes uint32
}

// RasterPipelineDesc requests a graphics pipeline.
type RasterPipelineDesc struct {
	Label              string
	Shaders            []PipelineShaderDesc
	ColorFormats       []gputypes.TextureFormat
	DepthFormat        gputypes.TextureFormat
	DepthWrite         bool
	CullBack           bool
	DescriptorSetOpts  DescriptorSetOpts
	PushConstantsBytes uint32
}

// RayTracingPipelineDesc requests a ray tracing pipeline.
type RayTracingPipelineDesc struct {
	Label              string
	RayGen             []PipelineShaderDesc
	Miss               []PipelineShaderDesc
	ClosestHit         []PipelineShaderDesc
	AnyHit             []PipelineShaderDesc
	MaxRecursionDepth  uint32
	DescriptorSetOpts  DescriptorSetOpts
	PushConstantsBytes uint32
}

// Cache-level pipeline identifiers returned by PipelineCache registration.
type (
	ComputePipelineID    uint32
	RasterPipelineID     uint32
	RayTracingPipelineID uint32
)

// ComputePipeline is a ready compute pipeline.
type ComputePipeline struct {
	ID        PipelineID
	GroupSize [3]uint32
}

// RasterPipeline is a ready graphics pipeline.
type RasterPipeline struct {
	ID PipelineID
}

// RayTracingPipeline is a ready ray tracing pipeline.
type RayTracingPipeline struct {
	ID PipelineID
}

// DescriptorKind tags a resolved DescriptorBinding.
type DescriptorKind uint8

const (
	DescriptorKindImage DescriptorKind = iota
	DescriptorKindImageArray
	DescriptorKindBuffer
	DescriptorKindAcceleration
	DescriptorKindDynamicUniform
	DescriptorKindDynamicStorage
)

// ImageDescriptor is an image view bound in a given layout.
type ImageDescriptor struct {
	View   TextureView
	Layout ImageLayout
}

// DescriptorBinding is one fully resolved binding of a descriptor set.
// Which fields are meaningful depends on Kind.
type DescriptorBinding struct {
	Binding      uint32
	Kind         DescriptorKind
	Images       []ImageDescriptor
	Buffer       Buffer
	Acceleration Acceleration
	Offset       uint32
}

// AttachmentDesc describes one attachment of a render pass.
type AttachmentDesc struct {
	Format gputypes.TextureFormat
	Load   gputypes.LoadOp
	Store  gputypes.StoreOp
}

// RenderPassDesc describes the attachments of a render pass.
type RenderPassDesc struct {
	Label            string
	ColorAttachments []AttachmentDesc
	DepthAttachment  *AttachmentDesc
}

// Viewport is a rasterization viewport. Height may be negative for a
// y-flipped viewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Scissor is a rasterization scissor rectangle.
type Scissor struct {
	X, Y          int32
	Width, Height uint32
}

// ClearValue is used by image clears. Color applies to color images,
// Depth and Stencil to depth formats.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}
