// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/framegraph/gpucore"
)

// PassCommand is one unit of work recorded by a pass. Commands run in order
// after the pass's barriers.
//
// Besides RenderFunc, every command is a plain value that can be inspected
// in RecordedPass.Commands before the graph runs.
type PassCommand interface {
	record(api *PassAPI) error
}

// RenderFunc is a free-form command.
type RenderFunc func(api *PassAPI) error

func (f RenderFunc) record(api *PassAPI) error { return f(api) }

// DispatchCommand binds a compute pipeline and dispatches enough groups to
// cover Threads.
type DispatchCommand struct {
	Pipeline ComputePipelineHandle
	Bindings ShaderBindings
	Threads  [3]uint32
}

func (c DispatchCommand) record(api *PassAPI) error {
	pb, err := c.Bindings.pipelineBinding(api.DynamicConstants())
	if err != nil {
		return err
	}
	p, err := api.BindComputePipeline(c.Pipeline, pb)
	if err != nil {
		return err
	}
	p.Dispatch(c.Threads)
	return nil
}

// DispatchIndirectCommand dispatches with arguments read from a buffer.
type DispatchIndirectCommand struct {
	Pipeline ComputePipelineHandle
	Bindings ShaderBindings
	Args     Ref[gpucore.BufferDesc, Srv]
	Offset   uint64
}

func (c DispatchIndirectCommand) record(api *PassAPI) error {
	pb, err := c.Bindings.pipelineBinding(api.DynamicConstants())
	if err != nil {
		return err
	}
	p, err := api.BindComputePipeline(c.Pipeline, pb)
	if err != nil {
		return err
	}
	return p.DispatchIndirect(c.Args, c.Offset)
}

// DrawInstancedCommand binds a raster pipeline and draws. With Targets set,
// the draw is wrapped in a render pass with the default viewport.
type DrawInstancedCommand struct {
	Pipeline      RasterPipelineHandle
	Bindings      ShaderBindings
	Targets       *RenderTargets
	VertexCount   uint32
	InstanceCount uint32
}

func (c DrawInstancedCommand) record(api *PassAPI) error {
	return api.withTargets(c.Targets, func() error {
		pb, err := c.Bindings.pipelineBinding(api.DynamicConstants())
		if err != nil {
			return err
		}
		p, err := api.BindRasterPipeline(c.Pipeline, pb)
		if err != nil {
			return err
		}
		p.DrawInstanced(c.VertexCount, c.InstanceCount)
		return nil
	})
}

// DrawInstancedIndirectCommand draws with arguments read from a buffer.
type DrawInstancedIndirectCommand struct {
	Pipeline  RasterPipelineHandle
	Bindings  ShaderBindings
	Targets   *RenderTargets
	Args      Ref[gpucore.BufferDesc, Srv]
	Offset    uint64
	DrawCount uint32
	Stride    uint32
}

func (c DrawInstancedIndirectCommand) record(api *PassAPI) error {
	return api.withTargets(c.Targets, func() error {
		pb, err := c.Bindings.pipelineBinding(api.DynamicConstants())
		if err != nil {
			return err
		}
		p, err := api.BindRasterPipeline(c.Pipeline, pb)
		if err != nil {
			return err
		}
		return p.DrawInstancedIndirect(c.Args, c.Offset, c.DrawCount, c.Stride)
	})
}

// tlasSet is the descriptor set the top-level acceleration structure of a
// ray tracing command is bound to.
const tlasSet = 3

// TraceRaysCommand binds a ray tracing pipeline with TLAS at set 3 and
// traces Extent rays.
type TraceRaysCommand struct {
	Pipeline RayTracingPipelineHandle
	Bindings ShaderBindings
	TLAS     Ref[gpucore.AccelerationDesc, Srv]
	Extent   [3]uint32
}

func (c TraceRaysCommand) record(api *PassAPI) error {
	pb, err := c.Bindings.pipelineBinding(api.DynamicConstants())
	if err != nil {
		return err
	}
	pb = pb.DescriptorSet(tlasSet, []Binding{c.TLAS.Bind()})
	p, err := api.BindRayTracingPipeline(c.Pipeline, pb)
	if err != nil {
		return err
	}
	p.TraceRays(c.Extent)
	return nil
}

// TraceRaysIndirectCommand traces rays with arguments read from a buffer.
type TraceRaysIndirectCommand struct {
	Pipeline RayTracingPipelineHandle
	Bindings ShaderBindings
	TLAS     Ref[gpucore.AccelerationDesc, Srv]
	Args     Ref[gpucore.BufferDesc, Srv]
	Offset   uint64
}

func (c TraceRaysIndirectCommand) record(api *PassAPI) error {
	pb, err := c.Bindings.pipelineBinding(api.DynamicConstants())
	if err != nil {
		return err
	}
	pb = pb.DescriptorSet(tlasSet, []Binding{c.TLAS.Bind()})
	p, err := api.BindRayTracingPipeline(c.Pipeline, pb)
	if err != nil {
		return err
	}
	return p.TraceRaysIndirect(c.Args, c.Offset)
}

// ClearImageCommand clears an image written by the pass.
type ClearImageCommand struct {
	Image Ref[gpucore.TextureDesc, Uav]
	Value gpucore.ClearValue
}

func (c ClearImageCommand) record(api *PassAPI) error {
	t, err := Image(api.Resources(), c.Image)
	if err != nil {
		return err
	}
	api.CommandBuffer().ClearImage(t, c.Value)
	return nil
}

// ClearBufferCommand fills a buffer written by the pass with Value.
type ClearBufferCommand struct {
	Buffer Ref[gpucore.BufferDesc, Uav]
	Value  uint32
}

func (c ClearBufferCommand) record(api *PassAPI) error {
	b, err := Buffer(api.Resources(), c.Buffer)
	if err != nil {
		return err
	}
	api.CommandBuffer().ClearBuffer(b, c.Value)
	return nil
}

// CopyImageCommand copies Src into Dst.
type CopyImageCommand struct {
	Src Ref[gpucore.TextureDesc, Srv]
	Dst Ref[gpucore.TextureDesc, Uav]
}

func (c CopyImageCommand) record(api *PassAPI) error {
	src, err := Image(api.Resources(), c.Src)
	if err != nil {
		return err
	}
	dst, err := Image(api.Resources(), c.Dst)
	if err != nil {
		return err
	}
	api.CommandBuffer().CopyImage(src, dst)
	return nil
}

// CopyBufferCommand copies Size bytes from Src to Dst.
type CopyBufferCommand struct {
	Src  Ref[gpucore.BufferDesc, Srv]
	Dst  Ref[gpucore.BufferDesc, Uav]
	Size uint64
}

func (c CopyBufferCommand) record(api *PassAPI) error {
	src, err := Buffer(api.Resources(), c.Src)
	if err != nil {
		return err
	}
	dst, err := Buffer(api.Resources(), c.Dst)
	if err != nil {
		return err
	}
	api.CommandBuffer().CopyBuffer(src, dst, c.Size)
	return nil
}
