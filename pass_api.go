// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/framegraph/gpucore"
)

// frameSet is the descriptor set index of the per-frame constants.
const frameSet = 2

// PassAPI is handed to the commands of a pass while it is recorded.
type PassAPI struct {
	cb        gpucore.CommandBuffer
	resources *ResourceRegistry
	pass      *RecordedPass
}

// CommandBuffer returns the command buffer being recorded.
func (api *PassAPI) CommandBuffer() gpucore.CommandBuffer { return api.cb }

// Resources returns the registry of the executing graph.
func (api *PassAPI) Resources() *ResourceRegistry { return api.resources }

// Device returns the device the graph executes on.
func (api *PassAPI) Device() gpucore.Device { return api.resources.Device() }

// DynamicConstants returns the per-frame constants ring, or nil.
func (api *PassAPI) DynamicConstants() *DynamicConstants { return api.resources.DynamicConstants() }

// PassName returns the name of the pass being recorded.
func (api *PassAPI) PassName() string { return api.pass.Name }

// BoundComputePipeline is a compute pipeline bound by BindComputePipeline.
type BoundComputePipeline struct {
	api      *PassAPI
	pipeline gpucore.ComputePipeline
}

// BoundRasterPipeline is a raster pipeline bound by BindRasterPipeline.
type BoundRasterPipeline struct {
	api      *PassAPI
	pipeline gpucore.RasterPipeline
}

// BoundRayTracingPipeline is a ray tracing pipeline bound by
// BindRayTracingPipeline.
type BoundRayTracingPipeline struct {
	api      *PassAPI
	pipeline gpucore.RayTracingPipeline
}

// BindComputePipeline binds the pipeline, the frame constants and binding.
func (api *PassAPI) BindComputePipeline(h ComputePipelineHandle, binding PipelineBinding) (*BoundComputePipeline, error) {
	p, err := api.resources.ComputePipeline(h)
	if err != nil {
		return nil, err
	}
	if err := api.bindCommon(gpucore.BindPointCompute, p.ID, binding); err != nil {
		return nil, err
	}
	return &BoundComputePipeline{api: api, pipeline: p}, nil
}

// BindRasterPipeline binds the pipeline, the frame constants and binding.
func (api *PassAPI) BindRasterPipeline(h RasterPipelineHandle, binding PipelineBinding) (*BoundRasterPipeline, error) {
	p, err := api.resources.RasterPipeline(h)
	if err != nil {
		return nil, err
	}
	if err := api.bindCommon(gpucore.BindPointGraphics, p.ID, binding); err != nil {
		return nil, err
	}
	return &BoundRasterPipeline{api: api, pipeline: p}, nil
}

// BindRayTracingPipeline binds the pipeline, the frame constants and binding.
func (api *PassAPI) BindRayTracingPipeline(h RayTracingPipelineHandle, binding PipelineBinding) (*BoundRayTracingPipeline, error) {
	p, err := api.resources.RayTracingPipeline(h)
	if err != nil {
		return nil, err
	}
	if err := api.bindCommon(gpucore.BindPointRayTracing, p.ID, binding); err != nil {
		return nil, err
	}
	return &BoundRayTracingPipeline{api: api, pipeline: p}, nil
}

func (api *PassAPI) bindCommon(point gpucore.BindPoint, pipeline gpucore.PipelineID, binding PipelineBinding) error {
	api.cb.BindPipeline(point, pipeline)

	params := api.resources.params
	if params.FrameDescriptorSet != gpucore.InvalidID {
		api.cb.BindRawDescriptorSet(point, pipeline, frameSet, params.FrameDescriptorSet,
			params.FrameConstants.DynamicOffsets())
	}

	for _, set := range binding.Sets {
		resolved, err := api.resources.resolve(set.Bindings)
		if err != nil {
			return err
		}
		api.cb.BindDescriptorSet(point, pipeline, set.Set, resolved)
	}
	for _, raw := range binding.RawSets {
		api.cb.BindRawDescriptorSet(point, pipeline, raw.Set, raw.ID, nil)
	}
	return nil
}

// BeginRenderPass begins a render pass on the given attachments.
func (api *PassAPI) BeginRenderPass(desc gpucore.RenderPassDesc, extent [2]uint32, colors []Attachment, depth *Attachment) error {
	views := make([]gpucore.TextureView, 0, len(colors))
	for _, c := range colors {
		t, err := Image(api.resources, c.Image)
		if err != nil {
			return err
		}
		views = append(views, gpucore.TextureView{Texture: t, View: c.View})
	}
	var depthView *gpucore.TextureView
	if depth != nil {
		t, err := Image(api.resources, depth.Image)
		if err != nil {
			return err
		}
		depthView = &gpucore.TextureView{Texture: t, View: depth.View}
	}
	api.cb.BeginRenderPass(desc, extent, views, depthView)
	return nil
}

// EndRenderPass ends the current render pass.
func (api *PassAPI) EndRenderPass() { api.cb.EndRenderPass() }

// SetDefaultViewAndScissor covers extent with a y-flipped viewport and a
// matching scissor.
func (api *PassAPI) SetDefaultViewAndScissor(extent [2]uint32) {
	api.cb.SetViewportScissor(
		gpucore.Viewport{
			X:        0,
			Y:        float32(extent[1]),
			Width:    float32(extent[0]),
			Height:   -float32(extent[1]),
			MinDepth: 0,
			MaxDepth: 1,
		},
		gpucore.Scissor{Width: extent[0], Height: extent[1]},
	)
}

func (api *PassAPI) withTargets(t *RenderTargets, draw func() error) error {
	if t == nil {
		return draw()
	}
	if err := api.BeginRenderPass(t.Desc, t.Extent, t.Colors, t.Depth); err != nil {
		return err
	}
	api.SetDefaultViewAndScissor(t.Extent)
	err := draw()
	api.EndRenderPass()
	return err
}

// Pipeline returns the bound pipeline.
func (p *BoundComputePipeline) Pipeline() gpucore.ComputePipeline { return p.pipeline }

// Dispatch dispatches enough groups to cover threads.
func (p *BoundComputePipeline) Dispatch(threads [3]uint32) {
	gs := p.pipeline.GroupSize
	p.api.cb.Dispatch(
		divRoundUp(threads[0], gs[0]),
		divRoundUp(threads[1], gs[1]),
		divRoundUp(threads[2], gs[2]),
	)
}

// DispatchIndirect dispatches with arguments read from args at offset.
func (p *BoundComputePipeline) DispatchIndirect(args Ref[gpucore.BufferDesc, Srv], offset uint64) error {
	b, err := Buffer(p.api.resources, args)
	if err != nil {
		return err
	}
	p.api.cb.DispatchIndirect(b, offset)
	return nil
}

// PushConstants uploads push constants for the compute stage.
func (p *BoundComputePipeline) PushConstants(offset uint32, data []byte) {
	p.api.cb.PushConstants(p.pipeline.ID, gpucore.ShaderStageCompute, offset, data)
}

// DrawInstanced draws vertexCount vertices instanceCount times.
func (p *BoundRasterPipeline) DrawInstanced(vertexCount, instanceCount uint32) {
	p.api.cb.DrawInstanced(vertexCount, instanceCount, 0, 0)
}

// DrawInstancedIndirect draws with arguments read from args at offset.
func (p *BoundRasterPipeline) DrawInstancedIndirect(args Ref[gpucore.BufferDesc, Srv], offset uint64, drawCount, stride uint32) error {
	b, err := Buffer(p.api.resources, args)
	if err != nil {
		return err
	}
	p.api.cb.DrawInstancedIndirect(b, offset, drawCount, stride)
	return nil
}

// DrawIndexed draws indexCount indices from index.
func (p *BoundRasterPipeline) DrawIndexed(index Ref[gpucore.BufferDesc, Srv], indexCount, instanceCount uint32) error {
	b, err := Buffer(p.api.resources, index)
	if err != nil {
		return err
	}
	p.api.cb.DrawIndexed(b, indexCount, instanceCount, 0, 0, 0)
	return nil
}

// PushConstants uploads push constants for the vertex and fragment stages.
func (p *BoundRasterPipeline) PushConstants(offset uint32, data []byte) {
	p.api.cb.PushConstants(p.pipeline.ID, gpucore.ShaderStageVertex|gpucore.ShaderStageFragment, offset, data)
}

// TraceRays traces extent rays.
func (p *BoundRayTracingPipeline) TraceRays(extent [3]uint32) {
	p.api.cb.TraceRays(p.pipeline.ID, extent)
}

// TraceRaysIndirect traces rays with arguments read at the device address
// of args plus offset.
func (p *BoundRayTracingPipeline) TraceRaysIndirect(args Ref[gpucore.BufferDesc, Srv], offset uint64) error {
	b, err := Buffer(p.api.resources, args)
	if err != nil {
		return err
	}
	addr := p.api.Device().BufferDeviceAddress(b) + offset
	p.api.cb.TraceRaysIndirect(p.pipeline.ID, addr)
	return nil
}

// PushConstants uploads push constants for every stage.
func (p *BoundRayTracingPipeline) PushConstants(offset uint32, data []byte) {
	p.api.cb.PushConstants(p.pipeline.ID, gpucore.ShaderStageAll, offset, data)
}

func divRoundUp(n, d uint32) uint32 {
	if d == 0 {
		d = 1
	}
	return (n + d - 1) / d
}
