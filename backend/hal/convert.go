// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/gpucore"
)

func convertTextureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.TextureUsageTransferSrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageTransferDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.TextureUsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u&(gpucore.TextureUsageColorAttachment|gpucore.TextureUsageDepthStencilAttachment) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// accessTextureUsage is the hal usage state an image is in for access a.
// Nothing and Present have no hal usage; a transition from them discards.
func accessTextureUsage(a gpucore.AccessType) gputypes.TextureUsage {
	switch a {
	case gpucore.AccessNothing, gpucore.AccessPresent:
		return 0
	}
	return convertTextureUsage(gpucore.TextureUsageForAccess(a))
}

func convertBufferUsage(desc gpucore.BufferDesc) gputypes.BufferUsage {
	u := desc.Usage
	// Every buffer can be cleared and copied by the command buffer.
	out := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if u&(gpucore.BufferUsageUniform|gpucore.BufferUsageUniformTexel) != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&(gpucore.BufferUsageStorage|gpucore.BufferUsageStorageTexel) != 0 {
		out |= gputypes.BufferUsageStorage
	}
	if u&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageIndirect != 0 {
		out |= gputypes.BufferUsageIndirect
	}
	if desc.Memory == gpucore.MemoryGPUToCPU {
		out |= gputypes.BufferUsageMapRead
	}
	return out
}

func convertDimension(t gpucore.ImageType) gputypes.TextureDimension {
	switch t {
	case gpucore.ImageType1D, gpucore.ImageType1DArray:
		return gputypes.TextureDimension1D
	case gpucore.ImageType3D:
		return gputypes.TextureDimension3D
	}
	return gputypes.TextureDimension2D
}

func convertStages(s gpucore.ShaderStage) gputypes.ShaderStage {
	var out gputypes.ShaderStage
	if s&gpucore.ShaderStageVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&gpucore.ShaderStageFragment != 0 {
		out |= gputypes.ShaderStageFragment
	}
	if s&gpucore.ShaderStageCompute != 0 {
		out |= gputypes.ShaderStageCompute
	}
	if out == 0 {
		out = gputypes.ShaderStageCompute
	}
	return out
}

// convertLayoutEntry maps one descriptor slot to a bind group layout entry.
// Only buffer slots are supported; image and acceleration slots need
// view handles the hal bind group path does not take.
func convertLayoutEntry(b gpucore.DescriptorBindingLayout) (gputypes.BindGroupLayoutEntry, error) {
	entry := gputypes.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: convertStages(b.Stages),
	}
	switch b.Type {
	case gpucore.DescriptorUniformBuffer:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case gpucore.DescriptorUniformBufferDynamic:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, HasDynamicOffset: true}
	case gpucore.DescriptorStorageBuffer:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case gpucore.DescriptorStorageBufferDynamic:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage, HasDynamicOffset: true}
	default:
		return entry, ErrUnsupported
	}
	return entry, nil
}

func loadOp(op gputypes.LoadOp) gputypes.LoadOp {
	if op == gputypes.LoadOpClear {
		return op
	}
	return gputypes.LoadOpLoad
}
