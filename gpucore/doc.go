// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the GPU capability set consumed by the frame graph.
//
// The frame graph never talks to a graphics API directly. Everything it needs
// from the GPU is expressed here:
//   - resource descriptors ([TextureDesc], [BufferDesc], [AccelerationDesc])
//     and the concrete objects a [Device] returns for them
//   - the [AccessType] enumeration together with the tables that derive
//     pipeline stage, image layout, usage flags and image aspect from it
//   - the [Device], [CommandBuffer], [Swapchain] and [PipelineCache]
//     interfaces implemented by backends
//
// Two implementations ship with the module: package recording captures every
// call as a typed command (used by tests and headless tools) and package
// backend/hal drives gogpu/wgpu's hardware abstraction layer.
//
// # Access types
//
// An [AccessType] names one way a resource is touched by the GPU, for example
// ComputeShaderWrite or TransferRead. Barriers are expressed as a pair of
// access types, previous and next; backends derive the synchronization scope
// from [AccessType.Info].
//
//	info := gpucore.AccessFragmentShaderReadSampledImageOrUniformTexelBuffer.Info()
//	// info.Stage == gpucore.StageFragmentShader
//	// info.Layout == gpucore.ImageLayoutShaderReadOnly
package gpucore
