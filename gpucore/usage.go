// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "github.com/gogpu/gputypes"

// TextureUsageForAccess returns the usage flags a texture needs to support a.
func TextureUsageForAccess(a AccessType) TextureUsage {
	switch a {
	case AccessTransferRead:
		return TextureUsageTransferSrc
	case AccessTransferWrite:
		return TextureUsageTransferDst
	case AccessVertexShaderWrite,
		AccessTessellationControlShaderWrite,
		AccessTessellationEvaluationShaderWrite,
		AccessGeometryShaderWrite,
		AccessFragmentShaderWrite,
		AccessComputeShaderWrite,
		AccessAnyShaderWrite,
		AccessGeneral:
		return TextureUsageStorage
	case AccessColorAttachmentRead,
		AccessColorAttachmentWrite,
		AccessColorAttachmentReadWrite:
		return TextureUsageColorAttachment
	case AccessDepthStencilAttachmentRead,
		AccessDepthStencilAttachmentWrite,
		AccessDepthAttachmentWriteStencilReadOnly,
		AccessStencilAttachmentWriteDepthReadOnly:
		return TextureUsageDepthStencilAttachment
	}
	// Shader reads of every stage, plus anything without a stronger
	// requirement, sample the image.
	return TextureUsageSampled
}

// BufferUsageForAccess returns the usage flags a buffer needs to support a.
func BufferUsageForAccess(a AccessType) BufferUsage {
	switch a {
	case AccessIndirectBuffer:
		return BufferUsageIndirect
	case AccessIndexBuffer:
		return BufferUsageIndex
	case AccessVertexBuffer:
		return BufferUsageVertex
	case AccessVertexShaderReadSampledImageOrUniformTexelBuffer,
		AccessVertexShaderReadOther,
		AccessTessellationControlShaderReadSampledImageOrUniformTexelBuffer,
		AccessTessellationControlShaderReadOther,
		AccessTessellationEvaluationShaderReadSampledImageOrUniformTexelBuffer,
		AccessTessellationEvaluationShaderReadOther,
		AccessGeometryShaderReadSampledImageOrUniformTexelBuffer,
		AccessGeometryShaderReadOther,
		AccessFragmentShaderReadSampledImageOrUniformTexelBuffer,
		AccessFragmentShaderReadOther,
		AccessComputeShaderReadSampledImageOrUniformTexelBuffer,
		AccessComputeShaderReadOther,
		AccessAnyShaderReadSampledImageOrUniformTexelBuffer,
		AccessAnyShaderReadOther:
		return BufferUsageUniformTexel
	case AccessAnyShaderReadUniformBufferOrVertexBuffer:
		return BufferUsageUniform | BufferUsageVertex
	case AccessTransferRead:
		return BufferUsageTransferSrc
	case AccessTransferWrite:
		return BufferUsageTransferDst
	case AccessVertexShaderWrite,
		AccessTessellationControlShaderWrite,
		AccessTessellationEvaluationShaderWrite,
		AccessGeometryShaderWrite,
		AccessFragmentShaderWrite,
		AccessComputeShaderWrite,
		AccessAnyShaderWrite,
		AccessGeneral:
		return BufferUsageStorage
	}
	return BufferUsageUniform
}

// AspectFromFormat returns the planes present in a texture format.
func AspectFromFormat(f gputypes.TextureFormat) ImageAspect {
	switch f {
	case gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatDepth24Plus:
		return AspectDepth
	case gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32FloatStencil8:
		return AspectDepth | AspectStencil
	}
	return AspectColor
}

// IsDepthFormat reports whether f has a depth plane.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	return AspectFromFormat(f)&AspectDepth != 0
}

// AspectForAccess returns the aspect an image barrier to a must cover for a
// texture of format f. It reports false when a carries no image layout and
// therefore cannot be the target of an image transition.
func AspectForAccess(a AccessType, f gputypes.TextureFormat) (ImageAspect, bool) {
	if !a.IsValid() || a.Info().Layout == ImageLayoutUndefined {
		return 0, false
	}
	return AspectFromFormat(f), true
}
