// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// PipelineHandle is the set of graph pipeline handle types.
type PipelineHandle interface {
	ComputePipelineHandle | RasterPipelineHandle | RayTracingPipelineHandle
}

// SimpleRenderPass builds the common pass shape: one pipeline, a set 0
// made of the resources the pass reads and writes in declaration order,
// and one terminal command.
//
//	NewComputePass(rg.AddPass("blur"), "shaders/blur.wgsl", nil).
//		Read(input).
//		Write(output).
//		Constants(params).
//		Dispatch(output.Desc.Extent)
//
// The terminal command finishes the pass.
type SimpleRenderPass[P PipelineHandle] struct {
	pass     *PassBuilder
	pipeline P
	bindings ShaderBindings
	targets  *RenderTargets
}

// ComputePass, RasterPass and RayTracingPass are the three simple pass kinds.
type (
	ComputePass    = SimpleRenderPass[ComputePipelineHandle]
	RasterPass     = SimpleRenderPass[RasterPipelineHandle]
	RayTracingPass = SimpleRenderPass[RayTracingPipelineHandle]
)

// NewComputePass registers the compute shader at path, compiled with
// defines, and returns a pass using it.
func NewComputePass(pb *PassBuilder, path string, defines []gpucore.ShaderDefine) *ComputePass {
	h := pb.RegisterComputePipeline(gpucore.ComputePipelineDesc{
		Label:   pb.Name(),
		Source:  gpucore.ShaderSource{Path: path, Entry: "main"},
		Defines: defines,
	})
	return &ComputePass{pass: pb, pipeline: h}
}

// NewComputePassWithDesc is NewComputePass with a full pipeline descriptor.
func NewComputePassWithDesc(pb *PassBuilder, desc gpucore.ComputePipelineDesc) *ComputePass {
	return &ComputePass{pass: pb, pipeline: pb.RegisterComputePipeline(desc)}
}

// NewRayTracingPass registers a ray tracing pipeline with one ray generation
// shader and the given miss and closest hit shaders.
func NewRayTracingPass(pb *PassBuilder, rgen gpucore.ShaderSource, miss, hit []gpucore.ShaderSource) *RayTracingPass {
	desc := gpucore.RayTracingPipelineDesc{
		Label:             pb.Name(),
		RayGen:            []gpucore.PipelineShaderDesc{{Stage: gpucore.ShaderStageRayGen, Source: rgen}},
		MaxRecursionDepth: 1,
	}
	for _, src := range miss {
		desc.Miss = append(desc.Miss, gpucore.PipelineShaderDesc{Stage: gpucore.ShaderStageMiss, Source: src})
	}
	for _, src := range hit {
		desc.ClosestHit = append(desc.ClosestHit, gpucore.PipelineShaderDesc{Stage: gpucore.ShaderStageClosestHit, Source: src})
	}
	return &RayTracingPass{pass: pb, pipeline: pb.RegisterRayTracingPipeline(desc)}
}

// NewRasterPass registers a raster pipeline built from desc and the vertex,
// optional geometry and fragment shaders. defines apply to every stage.
func NewRasterPass(pb *PassBuilder, desc gpucore.RasterPipelineDesc, vs, fs gpucore.ShaderSource, defines []gpucore.ShaderDefine, gs *gpucore.ShaderSource) *RasterPass {
	if desc.Label == "" {
		desc.Label = pb.Name()
	}
	desc.Shaders = []gpucore.PipelineShaderDesc{{Stage: gpucore.ShaderStageVertex, Source: vs, Defines: defines}}
	if gs != nil {
		desc.Shaders = append(desc.Shaders, gpucore.PipelineShaderDesc{Stage: gpucore.ShaderStageGeometry, Source: *gs, Defines: defines})
	}
	desc.Shaders = append(desc.Shaders, gpucore.PipelineShaderDesc{Stage: gpucore.ShaderStageFragment, Source: fs, Defines: defines})
	return &RasterPass{pass: pb, pipeline: pb.RegisterRasterPipeline(desc)}
}

// Pass returns the underlying builder, for declarations the simple pass
// does not cover.
func (sp *SimpleRenderPass[P]) Pass() *PassBuilder { return sp.pass }

// Pipeline returns the graph pipeline handle.
func (sp *SimpleRenderPass[P]) Pipeline() P { return sp.pipeline }

// Bindings returns the set 0 bindings collected so far.
func (sp *SimpleRenderPass[P]) Bindings() []Binding { return sp.bindings.Bindings }

func (sp *SimpleRenderPass[P]) push(b Binding) *SimpleRenderPass[P] {
	sp.bindings.Bindings = append(sp.bindings.Bindings, b)
	return sp
}

// Read binds h for shader reads.
func (sp *SimpleRenderPass[P]) Read(h ImageHandle) *SimpleRenderPass[P] {
	return sp.push(Read(sp.pass, h, gpucore.AccessAnyShaderReadSampledImageOrUniformTexelBuffer).Bind())
}

// ReadBuffer binds h for shader reads.
func (sp *SimpleRenderPass[P]) ReadBuffer(h BufferHandle) *SimpleRenderPass[P] {
	return sp.push(Read(sp.pass, h, gpucore.AccessAnyShaderReadSampledImageOrUniformTexelBuffer).Bind())
}

// ReadArray binds every image of hs to one array binding.
func (sp *SimpleRenderPass[P]) ReadArray(hs []ImageHandle) *SimpleRenderPass[P] {
	if len(hs) == 0 {
		panic(fmt.Errorf("framegraph: ReadArray in pass %q: no images", sp.pass.Name()))
	}
	images := make([]ImageBinding, 0, len(hs))
	for _, h := range hs {
		ref := Read(sp.pass, h, gpucore.AccessAnyShaderReadSampledImageOrUniformTexelBuffer)
		images = append(images, ImageBinding{Handle: ref.Raw, Layout: gpucore.ImageLayoutShaderReadOnly})
	}
	return sp.push(ImageArrayBinding{Images: images})
}

// ReadView binds a view of h for shader reads.
func (sp *SimpleRenderPass[P]) ReadView(h ImageHandle, view gpucore.TextureViewDesc) *SimpleRenderPass[P] {
	return sp.push(Read(sp.pass, h, gpucore.AccessAnyShaderReadSampledImageOrUniformTexelBuffer).BindView(view))
}

// ReadAspect binds one aspect of h, such as the depth plane of a
// depth-stencil image, for shader reads.
func (sp *SimpleRenderPass[P]) ReadAspect(h ImageHandle, aspect gpucore.ImageAspect) *SimpleRenderPass[P] {
	return sp.ReadView(h, gpucore.TextureViewDesc{}.WithAspect(aspect))
}

// Write binds h for shader writes.
func (sp *SimpleRenderPass[P]) Write(h ImageHandle) *SimpleRenderPass[P] {
	return sp.push(Write(sp.pass, h, gpucore.AccessAnyShaderWrite).Bind())
}

// WriteBuffer binds h for shader writes.
func (sp *SimpleRenderPass[P]) WriteBuffer(h BufferHandle) *SimpleRenderPass[P] {
	return sp.push(Write(sp.pass, h, gpucore.AccessAnyShaderWrite).Bind())
}

// WriteNoSync binds h for shader writes that need no barrier against the
// previous pass writing it.
func (sp *SimpleRenderPass[P]) WriteNoSync(h ImageHandle) *SimpleRenderPass[P] {
	return sp.push(WriteNoSync(sp.pass, h, gpucore.AccessAnyShaderWrite).Bind())
}

// WriteBufferNoSync is WriteNoSync for buffers.
func (sp *SimpleRenderPass[P]) WriteBufferNoSync(h BufferHandle) *SimpleRenderPass[P] {
	return sp.push(WriteNoSync(sp.pass, h, gpucore.AccessAnyShaderWrite).Bind())
}

// WriteView binds a view of h for shader writes.
func (sp *SimpleRenderPass[P]) WriteView(h ImageHandle, view gpucore.TextureViewDesc) *SimpleRenderPass[P] {
	return sp.push(Write(sp.pass, h, gpucore.AccessAnyShaderWrite).BindView(view))
}

// Constants binds blob as a uniform buffer. The bytes are copied into the
// graph's frame arena now and uploaded to the dynamic constants buffer
// right before the pass runs.
func (sp *SimpleRenderPass[P]) Constants(blob []byte) *SimpleRenderPass[P] {
	return sp.constBlob(DynamicConstantsBinding{}, blob)
}

// DynamicStorageBuffer is Constants bound as a storage buffer.
func (sp *SimpleRenderPass[P]) DynamicStorageBuffer(blob []byte) *SimpleRenderPass[P] {
	return sp.constBlob(DynamicStorageBinding{}, blob)
}

func (sp *SimpleRenderPass[P]) constBlob(b Binding, blob []byte) *SimpleRenderPass[P] {
	sp.pass.mustBeOpen()
	sp.bindings.ConstBlobs = append(sp.bindings.ConstBlobs, ConstBlob{
		Binding: len(sp.bindings.Bindings),
		Data:    sp.pass.Graph().FrameArena().Copy(blob),
	})
	return sp.push(b)
}

// ConstantsValue encodes v in little-endian layout and binds it with
// Constants.
func ConstantsValue[P PipelineHandle, T any](sp *SimpleRenderPass[P], v T) *SimpleRenderPass[P] {
	return sp.Constants(mustEncode(sp, v))
}

// DynamicStorageBufferVec encodes the elements of v back to back and binds
// them with DynamicStorageBuffer.
func DynamicStorageBufferVec[P PipelineHandle, T any](sp *SimpleRenderPass[P], v []T) *SimpleRenderPass[P] {
	return sp.DynamicStorageBuffer(mustEncode(sp, v))
}

func mustEncode[P PipelineHandle, T any](sp *SimpleRenderPass[P], v T) []byte {
	data, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		panic(fmt.Errorf("framegraph: encode constants in pass %q: %w", sp.pass.Name(), err))
	}
	return data
}

// RawDescriptorSet binds a device-created descriptor set at set.
func (sp *SimpleRenderPass[P]) RawDescriptorSet(set uint32, id gpucore.DescriptorSetID) *SimpleRenderPass[P] {
	sp.pass.mustBeOpen()
	sp.bindings.RawSets = append(sp.bindings.RawSets, RawDescriptorSet{Set: set, ID: id})
	return sp
}

// SimplePassBinder adds a group of bindings to a pass, such as the
// resources of a shared lighting model.
type SimplePassBinder[P PipelineHandle] interface {
	Bind(sp *SimpleRenderPass[P]) *SimpleRenderPass[P]
}

// Bind lets binder add its bindings.
func (sp *SimpleRenderPass[P]) Bind(binder SimplePassBinder[P]) *SimpleRenderPass[P] {
	return binder.Bind(sp)
}

// RenderTargets makes the raster commands of the pass run inside a render
// pass described by desc and covering extent. Attachments are added with
// Color and Depth.
func (sp *SimpleRenderPass[P]) RenderTargets(desc gpucore.RenderPassDesc, extent [2]uint32) *SimpleRenderPass[P] {
	sp.pass.mustBeOpen()
	sp.targets = &RenderTargets{Desc: desc, Extent: extent}
	return sp
}

// Color attaches h as the next color target.
func (sp *SimpleRenderPass[P]) Color(h ImageHandle) *SimpleRenderPass[P] {
	ref := Raster(sp.pass, h, gpucore.AccessColorAttachmentWrite)
	sp.mustHaveTargets()
	sp.targets.Colors = append(sp.targets.Colors, Attachment{Image: ref})
	return sp
}

// Depth attaches h as the depth target. Without write the attachment is
// only tested against.
func (sp *SimpleRenderPass[P]) Depth(h ImageHandle, write bool) *SimpleRenderPass[P] {
	var ref Ref[gpucore.TextureDesc, Rt]
	if write {
		ref = Raster(sp.pass, h, gpucore.AccessDepthStencilAttachmentWrite)
	} else {
		ref = RasterRead(sp.pass, h, gpucore.AccessDepthStencilAttachmentRead)
	}
	sp.mustHaveTargets()
	view := gpucore.TextureViewDesc{}.WithAspect(gpucore.AspectDepth)
	sp.targets.Depth = &Attachment{Image: ref, View: view}
	return sp
}

func (sp *SimpleRenderPass[P]) mustHaveTargets() {
	if sp.targets == nil {
		panic(fmt.Errorf("framegraph: pass %q: attachment before RenderTargets", sp.pass.Name()))
	}
}

func (sp *SimpleRenderPass[P]) finish(cmd PassCommand) *RecordedPass {
	sp.pass.Record(cmd)
	return sp.pass.Finish()
}

func pipelineAs[H PipelineHandle, P PipelineHandle](sp *SimpleRenderPass[P], op string) H {
	h, ok := any(sp.pipeline).(H)
	if !ok {
		panic(fmt.Errorf("%w: %s in pass %q", ErrPipelineKind, op, sp.pass.Name()))
	}
	return h
}

// Dispatch ends a compute pass with enough groups to cover threads.
func (sp *SimpleRenderPass[P]) Dispatch(threads [3]uint32) *RecordedPass {
	return sp.finish(DispatchCommand{
		Pipeline: pipelineAs[ComputePipelineHandle](sp, "Dispatch"),
		Bindings: sp.bindings,
		Threads:  threads,
	})
}

// DispatchIndirect ends a compute pass with a dispatch whose group counts
// are read from args at offset.
func (sp *SimpleRenderPass[P]) DispatchIndirect(args BufferHandle, offset uint64) *RecordedPass {
	p := pipelineAs[ComputePipelineHandle](sp, "DispatchIndirect")
	ref := Read(sp.pass, args, gpucore.AccessIndirectBuffer)
	return sp.finish(DispatchIndirectCommand{
		Pipeline: p,
		Bindings: sp.bindings,
		Args:     ref,
		Offset:   offset,
	})
}

// DrawInstanced ends a raster pass with a non-indexed instanced draw.
func (sp *SimpleRenderPass[P]) DrawInstanced(vertexCount, instanceCount uint32) *RecordedPass {
	return sp.finish(DrawInstancedCommand{
		Pipeline:      pipelineAs[RasterPipelineHandle](sp, "DrawInstanced"),
		Bindings:      sp.bindings,
		Targets:       sp.targets,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
	})
}

// DrawInstancedIndirect ends a raster pass with one indirect draw whose
// arguments are read from args at offset.
func (sp *SimpleRenderPass[P]) DrawInstancedIndirect(args BufferHandle, offset uint64) *RecordedPass {
	p := pipelineAs[RasterPipelineHandle](sp, "DrawInstancedIndirect")
	ref := Read(sp.pass, args, gpucore.AccessIndirectBuffer)
	return sp.finish(DrawInstancedIndirectCommand{
		Pipeline:  p,
		Bindings:  sp.bindings,
		Targets:   sp.targets,
		Args:      ref,
		Offset:    offset,
		DrawCount: 1,
		Stride:    drawIndirectStride,
	})
}

// drawIndirectStride is the size of one non-indexed indirect draw record.
const drawIndirectStride = 16

// TraceRays ends a ray tracing pass. tlas is bound at set 3.
func (sp *SimpleRenderPass[P]) TraceRays(tlas AccelerationHandle, extent [3]uint32) *RecordedPass {
	p := pipelineAs[RayTracingPipelineHandle](sp, "TraceRays")
	ref := Read(sp.pass, tlas, gpucore.AccessAnyShaderReadOther)
	return sp.finish(TraceRaysCommand{
		Pipeline: p,
		Bindings: sp.bindings,
		TLAS:     ref,
		Extent:   extent,
	})
}

// TraceRaysIndirect is TraceRays with the extent read from args at offset.
func (sp *SimpleRenderPass[P]) TraceRaysIndirect(tlas AccelerationHandle, args BufferHandle, offset uint64) *RecordedPass {
	p := pipelineAs[RayTracingPipelineHandle](sp, "TraceRaysIndirect")
	argsRef := Read(sp.pass, args, gpucore.AccessIndirectBuffer)
	tlasRef := Read(sp.pass, tlas, gpucore.AccessAnyShaderReadOther)
	return sp.finish(TraceRaysIndirectCommand{
		Pipeline: p,
		Bindings: sp.bindings,
		TLAS:     tlasRef,
		Args:     argsRef,
		Offset:   offset,
	})
}
