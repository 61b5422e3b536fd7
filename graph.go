// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"maps"

	"github.com/gogpu/framegraph/gpucore"
)

// Graph-level pipeline handles. They index the pipelines registered on one
// graph and are resolved through the pipeline cache while it executes.
type (
	ComputePipelineHandle    uint32
	RasterPipelineHandle     uint32
	RayTracingPipelineHandle uint32
)

// FrameConstantsLayout holds the dynamic offsets of the per-frame constants
// bound at set 2 of every pipeline.
type FrameConstantsLayout struct {
	GlobalsOffset                   uint32
	InstanceDynamicParametersOffset uint32
	TriangleLightsOffset            uint32
	SceneLightsOffset               uint32
}

// DynamicOffsets returns the offsets in binding order.
func (l FrameConstantsLayout) DynamicOffsets() []uint32 {
	return []uint32{
		l.GlobalsOffset,
		l.InstanceDynamicParametersOffset,
		l.TriangleLightsOffset,
		l.SceneLightsOffset,
	}
}

// ExecutionParams is what a graph needs to execute.
type ExecutionParams struct {
	Device        gpucore.Device
	PipelineCache gpucore.PipelineCache

	// FrameDescriptorSet is bound at set 2 of every pipeline with the
	// offsets of FrameConstants. InvalidID skips the binding.
	FrameDescriptorSet gpucore.DescriptorSetID
	FrameConstants     FrameConstantsLayout

	// DynamicConstants receives the constant blobs of passes. It may be nil
	// for graphs whose passes push none.
	DynamicConstants *DynamicConstants

	// TransientCache provides the Created resources.
	TransientCache *TransientResourceCache
}

// ResourceLifetime is the last pass index a resource is used in.
type ResourceLifetime struct {
	LastAccess int
	Used       bool
}

// ResourceInfo is the result of CalculateResourceInfo, indexed by resource ID.
// ImageUsage is meaningful for images and BufferUsage for buffers.
type ResourceInfo struct {
	Lifetimes   []ResourceLifetime
	ImageUsage  []gpucore.TextureUsage
	BufferUsage []gpucore.BufferUsage
}

type exportedResource struct {
	handle RawHandle
	access gpucore.AccessType
}

type compiledPipelines struct {
	compute    []gpucore.ComputePipelineID
	raster     []gpucore.RasterPipelineID
	rayTracing []gpucore.RayTracingPipelineID
}

// RenderGraph is the pass and resource table of one frame.
//
// A graph is built, compiled, executed and then discarded. It is not safe
// for concurrent use.
type RenderGraph struct {
	passes    []*RecordedPass
	resources []graphResource
	exported  []exportedResource

	computePipelines    []gpucore.ComputePipelineDesc
	rasterPipelines     []gpucore.RasterPipelineDesc
	rayTracingPipelines []gpucore.RayTracingPipelineDesc
	predefinedSets      gpucore.DescriptorSetOpts

	// noSyncRanges tracks ranged unsynchronized writes per buffer.
	noSyncRanges map[uint32][]ByteRange

	arena  *FrameArena
	params *ExecutionParams

	info      *ResourceInfo
	pipelines *compiledPipelines
	registry  *ResourceRegistry
	executing bool
}

// GraphOption configures a RenderGraph.
type GraphOption func(*RenderGraph)

// WithFrameArena makes the graph allocate scratch memory from a.
func WithFrameArena(a *FrameArena) GraphOption {
	return func(rg *RenderGraph) { rg.arena = a }
}

// WithPredefinedDescriptorSet merges layout into set of every pipeline
// registered on the graph.
func WithPredefinedDescriptorSet(set uint32, layout gpucore.DescriptorSetLayout) GraphOption {
	return func(rg *RenderGraph) { rg.SetPredefinedDescriptorSet(set, layout) }
}

// NewRenderGraph creates an empty graph.
func NewRenderGraph(opts ...GraphOption) *RenderGraph {
	rg := &RenderGraph{
		noSyncRanges: make(map[uint32][]ByteRange),
	}
	for _, opt := range opts {
		opt(rg)
	}
	if rg.arena == nil {
		rg.arena = NewFrameArena(0)
	}
	return rg
}

// FrameArena returns the scratch allocator of the graph.
func (rg *RenderGraph) FrameArena() *FrameArena { return rg.arena }

// SetPredefinedDescriptorSet merges layout into set of every pipeline
// registered after the call.
func (rg *RenderGraph) SetPredefinedDescriptorSet(set uint32, layout gpucore.DescriptorSetLayout) {
	rg.predefinedSets = rg.predefinedSets.Merge(gpucore.DescriptorSetOpts{set: layout})
}

// RegisterExecutionParams sets what the graph executes with.
func (rg *RenderGraph) RegisterExecutionParams(p ExecutionParams) {
	rg.params = &p
}

// Passes returns the passes still to be recorded.
func (rg *RenderGraph) Passes() []*RecordedPass { return rg.passes }

// AddPass starts a new pass. The pass takes the next index and is part of
// the graph from now on; Finish seals it.
func (rg *RenderGraph) AddPass(name string) *PassBuilder {
	p := &RecordedPass{Name: name, Index: len(rg.passes)}
	rg.passes = append(rg.passes, p)
	return &PassBuilder{rg: rg, pass: p}
}

func (rg *RenderGraph) addResource(r graphResource) RawHandle {
	id := uint32(len(rg.resources)) // #nosec G115 -- resource count fits in uint32
	rg.resources = append(rg.resources, r)
	return RawHandle{ID: id}
}

// CreateImage declares an image the graph allocates when it executes.
func (rg *RenderGraph) CreateImage(desc gpucore.TextureDesc) ImageHandle {
	name := fmt.Sprintf("rg image %d", len(rg.resources))
	return ImageHandle{Raw: rg.addResource(createdImage{desc: desc, name: name}), Desc: desc}
}

// CreateBuffer declares a buffer the graph allocates when it executes.
func (rg *RenderGraph) CreateBuffer(desc gpucore.BufferDesc) BufferHandle {
	name := fmt.Sprintf("rg buffer %d", len(rg.resources))
	return BufferHandle{Raw: rg.addResource(createdBuffer{desc: desc, name: name}), Desc: desc}
}

// ImportImage makes an existing texture, currently in access, known to the graph.
func (rg *RenderGraph) ImportImage(t gpucore.Texture, access gpucore.AccessType) ImageHandle {
	return ImageHandle{Raw: rg.addResource(importedImage{texture: t, access: access}), Desc: t.Desc}
}

// ImportBuffer makes an existing buffer, currently in access, known to the graph.
func (rg *RenderGraph) ImportBuffer(b gpucore.Buffer, access gpucore.AccessType) BufferHandle {
	return BufferHandle{Raw: rg.addResource(importedBuffer{buffer: b, access: access}), Desc: b.Desc}
}

// ImportAcceleration makes an existing acceleration structure known to the graph.
func (rg *RenderGraph) ImportAcceleration(a gpucore.Acceleration, access gpucore.AccessType) AccelerationHandle {
	return AccelerationHandle{Raw: rg.addResource(importedAcceleration{accel: a, access: access}), Desc: a.Desc}
}

// GetSwapChain returns a handle to the presentable image. The image itself
// is bound when the presentation stream is recorded.
func (rg *RenderGraph) GetSwapChain() ImageHandle {
	return ImageHandle{Raw: rg.addResource(importedSwapchain{desc: swapchainDesc}), Desc: swapchainDesc}
}

// ExportImage keeps h alive past the graph. After presentation the image is
// transitioned to access, unless access is AccessNothing.
func (rg *RenderGraph) ExportImage(h ImageHandle, access gpucore.AccessType) ExportedHandle[gpucore.TextureDesc] {
	rg.export(h.Raw, access)
	return ExportedHandle[gpucore.TextureDesc]{Raw: h.Raw, Desc: h.Desc}
}

// ExportBuffer is ExportImage for buffers.
func (rg *RenderGraph) ExportBuffer(h BufferHandle, access gpucore.AccessType) ExportedHandle[gpucore.BufferDesc] {
	rg.export(h.Raw, access)
	return ExportedHandle[gpucore.BufferDesc]{Raw: h.Raw, Desc: h.Desc}
}

// ExportAcceleration is ExportImage for acceleration structures.
func (rg *RenderGraph) ExportAcceleration(h AccelerationHandle, access gpucore.AccessType) ExportedHandle[gpucore.AccelerationDesc] {
	rg.export(h.Raw, access)
	return ExportedHandle[gpucore.AccelerationDesc]{Raw: h.Raw, Desc: h.Desc}
}

func (rg *RenderGraph) export(h RawHandle, access gpucore.AccessType) {
	rg.mustOwn(h)
	rg.exported = append(rg.exported, exportedResource{handle: h, access: access})
}

// mustOwn panics when h does not name a resource of rg.
func (rg *RenderGraph) mustOwn(h RawHandle) {
	if h.IsEmpty() || int(h.ID) >= len(rg.resources) {
		panic(fmt.Errorf("%w: %v", ErrForeignHandle, h))
	}
}

// ResourceCount returns the number of declared resources.
func (rg *RenderGraph) ResourceCount() int { return len(rg.resources) }

func (rg *RenderGraph) registerComputePipeline(desc gpucore.ComputePipelineDesc) ComputePipelineHandle {
	desc.DescriptorSetOpts = maps.Clone(desc.DescriptorSetOpts).Merge(rg.predefinedSets)
	rg.computePipelines = append(rg.computePipelines, desc)
	return ComputePipelineHandle(len(rg.computePipelines) - 1) // #nosec G115 -- pipeline count is small
}

func (rg *RenderGraph) registerRasterPipeline(desc gpucore.RasterPipelineDesc) RasterPipelineHandle {
	desc.DescriptorSetOpts = maps.Clone(desc.DescriptorSetOpts).Merge(rg.predefinedSets)
	rg.rasterPipelines = append(rg.rasterPipelines, desc)
	return RasterPipelineHandle(len(rg.rasterPipelines) - 1) // #nosec G115 -- pipeline count is small
}

func (rg *RenderGraph) registerRayTracingPipeline(desc gpucore.RayTracingPipelineDesc) RayTracingPipelineHandle {
	desc.DescriptorSetOpts = maps.Clone(desc.DescriptorSetOpts).Merge(rg.predefinedSets)
	rg.rayTracingPipelines = append(rg.rayTracingPipelines, desc)
	return RayTracingPipelineHandle(len(rg.rayTracingPipelines) - 1) // #nosec G115 -- pipeline count is small
}

// CalculateResourceInfo computes the lifetime and the final usage flags of
// every resource.
//
// Created resources start from their descriptor's usage and are unused
// until a pass touches them; imported resources start empty and live from
// pass 0. Every access ORs in the usage it implies. Exported resources
// live until the last pass.
func (rg *RenderGraph) CalculateResourceInfo() ResourceInfo {
	n := len(rg.resources)
	info := ResourceInfo{
		Lifetimes:   make([]ResourceLifetime, n),
		ImageUsage:  make([]gpucore.TextureUsage, n),
		BufferUsage: make([]gpucore.BufferUsage, n),
	}
	for i, r := range rg.resources {
		switch r := r.(type) {
		case createdImage:
			info.ImageUsage[i] = r.desc.Usage
		case createdBuffer:
			info.BufferUsage[i] = r.desc.Usage
		default:
			info.Lifetimes[i] = ResourceLifetime{LastAccess: 0, Used: true}
		}
	}

	addUsage := func(id uint32, access gpucore.AccessType) {
		switch rg.resources[id].kind() {
		case gpucore.ResourceKindImage:
			info.ImageUsage[id] |= gpucore.TextureUsageForAccess(access)
		case gpucore.ResourceKindBuffer:
			info.BufferUsage[id] |= gpucore.BufferUsageForAccess(access)
		}
	}

	for idx, p := range rg.passes {
		for _, ref := range p.refs() {
			lt := &info.Lifetimes[ref.Handle.ID]
			if !lt.Used || idx > lt.LastAccess {
				lt.LastAccess = idx
			}
			lt.Used = true
			addUsage(ref.Handle.ID, ref.Access)
		}
	}

	last := max(len(rg.passes)-1, 0)
	for _, e := range rg.exported {
		lt := &info.Lifetimes[e.handle.ID]
		lt.LastAccess = max(lt.LastAccess, last)
		lt.Used = true
		if e.access != gpucore.AccessNothing {
			addUsage(e.handle.ID, e.access)
		}
	}
	return info
}

// Compile calculates resource info and registers every pipeline requested
// by the graph's passes with cache. The returned cache IDs are kept by
// registration order for the rest of the frame.
func (rg *RenderGraph) Compile(cache gpucore.PipelineCache) error {
	if cache == nil {
		return fmt.Errorf("%w: nil pipeline cache", ErrNoExecutionParams)
	}
	info := rg.CalculateResourceInfo()
	rg.info = &info

	pipelines := &compiledPipelines{
		compute:    make([]gpucore.ComputePipelineID, 0, len(rg.computePipelines)),
		raster:     make([]gpucore.RasterPipelineID, 0, len(rg.rasterPipelines)),
		rayTracing: make([]gpucore.RayTracingPipelineID, 0, len(rg.rayTracingPipelines)),
	}
	for _, desc := range rg.computePipelines {
		pipelines.compute = append(pipelines.compute, cache.RegisterCompute(desc))
	}
	for _, desc := range rg.rasterPipelines {
		pipelines.raster = append(pipelines.raster, cache.RegisterRaster(desc))
	}
	for _, desc := range rg.rayTracingPipelines {
		pipelines.rayTracing = append(pipelines.rayTracing, cache.RegisterRayTracing(desc))
	}
	rg.pipelines = pipelines

	slogger().Debug("framegraph: compiled",
		"passes", len(rg.passes),
		"resources", len(rg.resources),
		"pipelines", len(rg.computePipelines)+len(rg.rasterPipelines)+len(rg.rayTracingPipelines))
	return nil
}

// ResourceInfo returns the info computed by Compile.
func (rg *RenderGraph) ResourceInfo() (ResourceInfo, bool) {
	if rg.info == nil {
		return ResourceInfo{}, false
	}
	return *rg.info, true
}
