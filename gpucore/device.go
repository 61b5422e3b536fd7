// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "context"

// Device creates and destroys GPU objects and submits command buffers.
//
// Implementations must accept a nil initial slice to mean "no initial data".
type Device interface {
	CreateTexture(desc TextureDesc, initial []byte, name string) (Texture, error)
	CreateBuffer(desc BufferDesc, name string, initial []byte) (Buffer, error)
	CreateAcceleration(desc AccelerationDesc, name string) (Acceleration, error)

	DestroyTexture(t Texture)
	DestroyBuffer(b Buffer)
	DestroyAcceleration(a Acceleration)

	// WriteBuffer uploads data into a host-visible buffer at offset.
	WriteBuffer(b Buffer, offset uint64, data []byte) error

	// BufferDeviceAddress returns the GPU virtual address of b, or 0 if the
	// device does not support buffer device addresses.
	BufferDeviceAddress(b Buffer) uint64

	// CreateDescriptorSet creates a long-lived descriptor set, such as the
	// per-frame constants set bound at a fixed index by every pass.
	CreateDescriptorSet(layout DescriptorSetLayout, bindings []DescriptorBinding) (DescriptorSetID, error)

	BeginCommandBuffer(label string) (CommandBuffer, error)

	// Submit ends recording on cb and queues it. Submission is fire and
	// forget; ctx bounds only the time spent handing work to the queue.
	Submit(ctx context.Context, cb CommandBuffer) error
}

// CommandBuffer records GPU commands. It is used from a single goroutine.
type CommandBuffer interface {
	Label() string

	ImageBarrier(b ImageBarrier)
	BufferBarrier(b BufferBarrier)
	GlobalBarrier(prev, next []AccessType)

	BindPipeline(point BindPoint, pipeline PipelineID)
	BindDescriptorSet(point BindPoint, pipeline PipelineID, set uint32, bindings []DescriptorBinding)
	BindRawDescriptorSet(point BindPoint, pipeline PipelineID, set uint32, ds DescriptorSetID, dynamicOffsets []uint32)
	PushConstants(pipeline PipelineID, stages ShaderStage, offset uint32, data []byte)

	Dispatch(x, y, z uint32)
	DispatchIndirect(args Buffer, offset uint64)

	BeginRenderPass(desc RenderPassDesc, extent [2]uint32, colors []TextureView, depth *TextureView)
	EndRenderPass()
	SetViewportScissor(v Viewport, s Scissor)
	DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(index Buffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	DrawInstancedIndirect(args Buffer, offset uint64, drawCount, stride uint32)

	TraceRays(pipeline PipelineID, extent [3]uint32)
	TraceRaysIndirect(pipeline PipelineID, argsAddress uint64)

	ClearImage(t Texture, value ClearValue)
	ClearBuffer(b Buffer, value uint32)
	CopyImage(src, dst Texture)
	CopyBuffer(src, dst Buffer, size uint64)

	BeginEvent(name string)
	EndEvent()
}

// Swapchain hands out presentable images.
type Swapchain interface {
	// AcquireNextImage may block until an image is available.
	AcquireNextImage(ctx context.Context) (SwapchainImage, error)
	// PresentImage submits cb, which must end with the image in Present
	// access, and queues the image for display.
	PresentImage(ctx context.Context, img SwapchainImage, cb CommandBuffer) error
	Extent() [2]uint32
}

// PipelineCache owns compiled pipelines. Registration is cheap and only
// records the request; compilation happens in PrepareFrame.
type PipelineCache interface {
	RegisterCompute(desc ComputePipelineDesc) ComputePipelineID
	RegisterRaster(desc RasterPipelineDesc) RasterPipelineID
	RegisterRayTracing(desc RayTracingPipelineDesc) RayTracingPipelineID

	// PrepareFrame compiles every pipeline registered since the last call.
	// A non-nil error means at least one pipeline is not usable this frame.
	PrepareFrame(ctx context.Context, dev Device) error

	ComputePipeline(id ComputePipelineID) (ComputePipeline, bool)
	RasterPipeline(id RasterPipelineID) (RasterPipeline, bool)
	RayTracingPipeline(id RayTracingPipelineID) (RayTracingPipeline, bool)

	// RefreshShaders drops compiled pipelines so they are rebuilt from
	// source by the next PrepareFrame.
	RefreshShaders()
}
