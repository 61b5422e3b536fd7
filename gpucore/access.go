// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "fmt"

// AccessType describes how a resource is used by one GPU operation.
//
// The ordering matches the classic vk-sync enumeration: read accesses come
// first, then write accesses, then General.
type AccessType uint8

const (
	AccessNothing AccessType = iota
	AccessCommandBufferReadNVX
	AccessIndirectBuffer
	AccessIndexBuffer
	AccessVertexBuffer
	AccessVertexShaderReadUniformBuffer
	AccessVertexShaderReadSampledImageOrUniformTexelBuffer
	AccessVertexShaderReadOther
	AccessTessellationControlShaderReadUniformBuffer
	AccessTessellationControlShaderReadSampledImageOrUniformTexelBuffer
	AccessTessellationControlShaderReadOther
	AccessTessellationEvaluationShaderReadUniformBuffer
	AccessTessellationEvaluationShaderReadSampledImageOrUniformTexelBuffer
	AccessTessellationEvaluationShaderReadOther
	AccessGeometryShaderReadUniformBuffer
	AccessGeometryShaderReadSampledImageOrUniformTexelBuffer
	AccessGeometryShaderReadOther
	AccessFragmentShaderReadUniformBuffer
	AccessFragmentShaderReadSampledImageOrUniformTexelBuffer
	AccessFragmentShaderReadColorInputAttachment
	AccessFragmentShaderReadDepthStencilInputAttachment
	AccessFragmentShaderReadOther
	AccessColorAttachmentRead
	AccessDepthStencilAttachmentRead
	AccessComputeShaderReadUniformBuffer
	AccessComputeShaderReadSampledImageOrUniformTexelBuffer
	AccessComputeShaderReadOther
	AccessAnyShaderReadUniformBuffer
	AccessAnyShaderReadUniformBufferOrVertexBuffer
	AccessAnyShaderReadSampledImageOrUniformTexelBuffer
	AccessAnyShaderReadOther
	AccessTransferRead
	AccessHostRead
	AccessPresent
	AccessCommandBufferWriteNVX
	AccessVertexShaderWrite
	AccessTessellationControlShaderWrite
	AccessTessellationEvaluationShaderWrite
	AccessGeometryShaderWrite
	AccessFragmentShaderWrite
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentWrite
	AccessDepthAttachmentWriteStencilReadOnly
	AccessStencilAttachmentWriteDepthReadOnly
	AccessComputeShaderWrite
	AccessAnyShaderWrite
	AccessTransferWrite
	AccessHostWrite
	AccessColorAttachmentReadWrite
	AccessGeneral

	accessTypeCount
)

// PipelineStage is a bitmask of pipeline stages.
type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageTessellationControlShader
	StageTessellationEvaluationShader
	StageGeometryShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageHost
	StageAllCommands
	StageCommandPreprocessNVX
	StageBottomOfPipe
)

const stageAnyShader = StageVertexShader | StageTessellationControlShader |
	StageTessellationEvaluationShader | StageGeometryShader | StageFragmentShader | StageComputeShader

// ImageLayout is the layout an image must be in for an access.
type ImageLayout uint8

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutColorAttachment
	ImageLayoutDepthStencilAttachment
	ImageLayoutDepthStencilReadOnly
	ImageLayoutShaderReadOnly
	ImageLayoutTransferSrc
	ImageLayoutTransferDst
	ImageLayoutDepthAttachmentStencilReadOnly
	ImageLayoutDepthReadOnlyStencilAttachment
	ImageLayoutPresentSrc
)

var imageLayoutNames = [...]string{
	ImageLayoutUndefined:                      "Undefined",
	ImageLayoutGeneral:                        "General",
	ImageLayoutColorAttachment:                "ColorAttachment",
	ImageLayoutDepthStencilAttachment:         "DepthStencilAttachment",
	ImageLayoutDepthStencilReadOnly:           "DepthStencilReadOnly",
	ImageLayoutShaderReadOnly:                 "ShaderReadOnly",
	ImageLayoutTransferSrc:                    "TransferSrc",
	ImageLayoutTransferDst:                    "TransferDst",
	ImageLayoutDepthAttachmentStencilReadOnly: "DepthAttachmentStencilReadOnly",
	ImageLayoutDepthReadOnlyStencilAttachment: "DepthReadOnlyStencilAttachment",
	ImageLayoutPresentSrc:                     "PresentSrc",
}

func (l ImageLayout) String() string {
	if int(l) < len(imageLayoutNames) {
		return imageLayoutNames[l]
	}
	return fmt.Sprintf("ImageLayout(%d)", l)
}

// AccessInfo is the synchronization scope implied by an access type.
// Layout is ImageLayoutUndefined for accesses that only apply to buffers.
type AccessInfo struct {
	Name   string
	Stage  PipelineStage
	Layout ImageLayout
	Write  bool
}

var accessInfos = [accessTypeCount]AccessInfo{
	AccessNothing:                {"Nothing", 0, ImageLayoutUndefined, false},
	AccessCommandBufferReadNVX:   {"CommandBufferReadNVX", StageCommandPreprocessNVX, ImageLayoutUndefined, false},
	AccessIndirectBuffer:         {"IndirectBuffer", StageDrawIndirect, ImageLayoutUndefined, false},
	AccessIndexBuffer:            {"IndexBuffer", StageVertexInput, ImageLayoutUndefined, false},
	AccessVertexBuffer:           {"VertexBuffer", StageVertexInput, ImageLayoutUndefined, false},
	AccessVertexShaderReadUniformBuffer: {"VertexShaderReadUniformBuffer",
		StageVertexShader, ImageLayoutUndefined, false},
	AccessVertexShaderReadSampledImageOrUniformTexelBuffer: {"VertexShaderReadSampledImageOrUniformTexelBuffer",
		StageVertexShader, ImageLayoutShaderReadOnly, false},
	AccessVertexShaderReadOther: {"VertexShaderReadOther", StageVertexShader, ImageLayoutGeneral, false},
	AccessTessellationControlShaderReadUniformBuffer: {"TessellationControlShaderReadUniformBuffer",
		StageTessellationControlShader, ImageLayoutUndefined, false},
	AccessTessellationControlShaderReadSampledImageOrUniformTexelBuffer: {"TessellationControlShaderReadSampledImageOrUniformTexelBuffer",
		StageTessellationControlShader, ImageLayoutShaderReadOnly, false},
	AccessTessellationControlShaderReadOther: {"TessellationControlShaderReadOther",
		StageTessellationControlShader, ImageLayoutGeneral, false},
	AccessTessellationEvaluationShaderReadUniformBuffer: {"TessellationEvaluationShaderReadUniformBuffer",
		StageTessellationEvaluationShader, ImageLayoutUndefined, false},
	AccessTessellationEvaluationShaderReadSampledImageOrUniformTexelBuffer: {"TessellationEvaluationShaderReadSampledImageOrUniformTexelBuffer",
		StageTessellationEvaluationShader, ImageLayoutShaderReadOnly, false},
	AccessTessellationEvaluationShaderReadOther: {"TessellationEvaluationShaderReadOther",
		StageTessellationEvaluationShader, ImageLayoutGeneral, false},
	AccessGeometryShaderReadUniformBuffer: {"GeometryShaderReadUniformBuffer",
		StageGeometryShader, ImageLayoutUndefined, false},
	AccessGeometryShaderReadSampledImageOrUniformTexelBuffer: {"GeometryShaderReadSampledImageOrUniformTexelBuffer",
		StageGeometryShader, ImageLayoutShaderReadOnly, false},
	AccessGeometryShaderReadOther: {"GeometryShaderReadOther", StageGeometryShader, ImageLayoutGeneral, false},
	AccessFragmentShaderReadUniformBuffer: {"FragmentShaderReadUniformBuffer",
		StageFragmentShader, ImageLayoutUndefined, false},
	AccessFragmentShaderReadSampledImageOrUniformTexelBuffer: {"FragmentShaderReadSampledImageOrUniformTexelBuffer",
		StageFragmentShader, ImageLayoutShaderReadOnly, false},
	AccessFragmentShaderReadColorInputAttachment: {"FragmentShaderReadColorInputAttachment",
		StageFragmentShader, ImageLayoutShaderReadOnly, false},
	AccessFragmentShaderReadDepthStencilInputAttachment: {"FragmentShaderReadDepthStencilInputAttachment",
		StageFragmentShader, ImageLayoutDepthStencilReadOnly, false},
	AccessFragmentShaderReadOther: {"FragmentShaderReadOther", StageFragmentShader, ImageLayoutGeneral, false},
	AccessColorAttachmentRead: {"ColorAttachmentRead",
		StageColorAttachmentOutput, ImageLayoutColorAttachment, false},
	AccessDepthStencilAttachmentRead: {"DepthStencilAttachmentRead",
		StageEarlyFragmentTests | StageLateFragmentTests, ImageLayoutDepthStencilReadOnly, false},
	AccessComputeShaderReadUniformBuffer: {"ComputeShaderReadUniformBuffer",
		StageComputeShader, ImageLayoutUndefined, false},
	AccessComputeShaderReadSampledImageOrUniformTexelBuffer: {"ComputeShaderReadSampledImageOrUniformTexelBuffer",
		StageComputeShader, ImageLayoutShaderReadOnly, false},
	AccessComputeShaderReadOther: {"ComputeShaderReadOther", StageComputeShader, ImageLayoutGeneral, false},
	AccessAnyShaderReadUniformBuffer: {"AnyShaderReadUniformBuffer",
		StageAllCommands, ImageLayoutUndefined, false},
	AccessAnyShaderReadUniformBufferOrVertexBuffer: {"AnyShaderReadUniformBufferOrVertexBuffer",
		StageAllCommands, ImageLayoutUndefined, false},
	AccessAnyShaderReadSampledImageOrUniformTexelBuffer: {"AnyShaderReadSampledImageOrUniformTexelBuffer",
		StageAllCommands, ImageLayoutShaderReadOnly, false},
	AccessAnyShaderReadOther:    {"AnyShaderReadOther", StageAllCommands, ImageLayoutGeneral, false},
	AccessTransferRead:          {"TransferRead", StageTransfer, ImageLayoutTransferSrc, false},
	AccessHostRead:              {"HostRead", StageHost, ImageLayoutGeneral, false},
	AccessPresent:               {"Present", 0, ImageLayoutPresentSrc, false},
	AccessCommandBufferWriteNVX: {"CommandBufferWriteNVX", StageCommandPreprocessNVX, ImageLayoutUndefined, true},
	AccessVertexShaderWrite:     {"VertexShaderWrite", StageVertexShader, ImageLayoutGeneral, true},
	AccessTessellationControlShaderWrite: {"TessellationControlShaderWrite",
		StageTessellationControlShader, ImageLayoutGeneral, true},
	AccessTessellationEvaluationShaderWrite: {"TessellationEvaluationShaderWrite",
		StageTessellationEvaluationShader, ImageLayoutGeneral, true},
	AccessGeometryShaderWrite: {"GeometryShaderWrite", StageGeometryShader, ImageLayoutGeneral, true},
	AccessFragmentShaderWrite: {"FragmentShaderWrite", StageFragmentShader, ImageLayoutGeneral, true},
	AccessColorAttachmentWrite: {"ColorAttachmentWrite",
		StageColorAttachmentOutput, ImageLayoutColorAttachment, true},
	AccessDepthStencilAttachmentWrite: {"DepthStencilAttachmentWrite",
		StageEarlyFragmentTests | StageLateFragmentTests, ImageLayoutDepthStencilAttachment, true},
	AccessDepthAttachmentWriteStencilReadOnly: {"DepthAttachmentWriteStencilReadOnly",
		StageEarlyFragmentTests | StageLateFragmentTests, ImageLayoutDepthAttachmentStencilReadOnly, true},
	AccessStencilAttachmentWriteDepthReadOnly: {"StencilAttachmentWriteDepthReadOnly",
		StageEarlyFragmentTests | StageLateFragmentTests, ImageLayoutDepthReadOnlyStencilAttachment, true},
	AccessComputeShaderWrite: {"ComputeShaderWrite", StageComputeShader, ImageLayoutGeneral, true},
	AccessAnyShaderWrite:     {"AnyShaderWrite", stageAnyShader, ImageLayoutGeneral, true},
	AccessTransferWrite:      {"TransferWrite", StageTransfer, ImageLayoutTransferDst, true},
	AccessHostWrite:          {"HostWrite", StageHost, ImageLayoutGeneral, true},
	AccessColorAttachmentReadWrite: {"ColorAttachmentReadWrite",
		StageColorAttachmentOutput, ImageLayoutColorAttachment, true},
	AccessGeneral: {"General", StageAllCommands, ImageLayoutGeneral, true},
}

// Info returns the synchronization scope of a. Unknown values yield the
// zero AccessInfo.
func (a AccessType) Info() AccessInfo {
	if a >= accessTypeCount {
		return AccessInfo{}
	}
	return accessInfos[a]
}

// IsValid reports whether a is a defined access type.
func (a AccessType) IsValid() bool {
	return a < accessTypeCount
}

// String returns the access type name.
func (a AccessType) String() string {
	if a >= accessTypeCount {
		return fmt.Sprintf("AccessType(%d)", uint8(a))
	}
	return accessInfos[a].Name
}

// IsWrite reports whether a writes memory.
func (a AccessType) IsWrite() bool {
	return a.Info().Write
}

// Access categories accepted by the pass declaration API.

// IsReadAccess reports whether a may be declared through a plain read:
// every read kind from CommandBufferReadNVX through Present.
func IsReadAccess(a AccessType) bool {
	return a >= AccessCommandBufferReadNVX && a <= AccessPresent
}

// IsWriteAccess reports whether a may be declared through a plain write.
// Attachment writes are excluded and must go through a raster declaration.
func IsWriteAccess(a AccessType) bool {
	switch a {
	case AccessCommandBufferWriteNVX,
		AccessVertexShaderWrite,
		AccessTessellationControlShaderWrite,
		AccessTessellationEvaluationShaderWrite,
		AccessGeometryShaderWrite,
		AccessFragmentShaderWrite,
		AccessComputeShaderWrite,
		AccessAnyShaderWrite,
		AccessTransferWrite,
		AccessHostWrite,
		AccessColorAttachmentReadWrite,
		AccessGeneral:
		return true
	}
	return false
}

// IsRasterAccess reports whether a is a render-target write.
func IsRasterAccess(a AccessType) bool {
	switch a {
	case AccessColorAttachmentWrite,
		AccessDepthStencilAttachmentWrite,
		AccessDepthAttachmentWriteStencilReadOnly,
		AccessStencilAttachmentWriteDepthReadOnly:
		return true
	}
	return false
}

// IsRasterReadAccess reports whether a is a render-target read.
func IsRasterReadAccess(a AccessType) bool {
	return a == AccessColorAttachmentRead || a == AccessDepthStencilAttachmentRead
}
