// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// PassBuilder declares the accesses and commands of one pass.
//
// Declaring an access with a type outside the accessor's category is a
// programming error: Read, Write, WriteNoSync, Raster and RasterRead panic
// with an *AccessError before anything is recorded.
type PassBuilder struct {
	rg       *RenderGraph
	pass     *RecordedPass
	finished bool
}

// Graph returns the graph the pass belongs to.
func (pb *PassBuilder) Graph() *RenderGraph { return pb.rg }

// Name returns the pass name.
func (pb *PassBuilder) Name() string { return pb.pass.Name }

// Index returns the pass index.
func (pb *PassBuilder) Index() int { return pb.pass.Index }

func (pb *PassBuilder) mustBeOpen() {
	if pb.finished {
		panic(fmt.Errorf("%w: %q", ErrPassFinished, pb.pass.Name))
	}
}

// CreateImage declares an image owned by the graph.
func (pb *PassBuilder) CreateImage(desc gpucore.TextureDesc) ImageHandle {
	pb.mustBeOpen()
	return pb.rg.CreateImage(desc)
}

// CreateBuffer declares a buffer owned by the graph.
func (pb *PassBuilder) CreateBuffer(desc gpucore.BufferDesc) BufferHandle {
	pb.mustBeOpen()
	return pb.rg.CreateBuffer(desc)
}

// ImportImage forwards to RenderGraph.ImportImage.
func (pb *PassBuilder) ImportImage(t gpucore.Texture, access gpucore.AccessType) ImageHandle {
	pb.mustBeOpen()
	return pb.rg.ImportImage(t, access)
}

// ImportBuffer forwards to RenderGraph.ImportBuffer.
func (pb *PassBuilder) ImportBuffer(b gpucore.Buffer, access gpucore.AccessType) BufferHandle {
	pb.mustBeOpen()
	return pb.rg.ImportBuffer(b, access)
}

// ImportAcceleration forwards to RenderGraph.ImportAcceleration.
func (pb *PassBuilder) ImportAcceleration(a gpucore.Acceleration, access gpucore.AccessType) AccelerationHandle {
	pb.mustBeOpen()
	return pb.rg.ImportAcceleration(a, access)
}

// RegisterComputePipeline requests a compute pipeline. The graph's
// predefined descriptor sets are merged into the layout.
func (pb *PassBuilder) RegisterComputePipeline(desc gpucore.ComputePipelineDesc) ComputePipelineHandle {
	pb.mustBeOpen()
	return pb.rg.registerComputePipeline(desc)
}

// RegisterRasterPipeline requests a raster pipeline.
func (pb *PassBuilder) RegisterRasterPipeline(desc gpucore.RasterPipelineDesc) RasterPipelineHandle {
	pb.mustBeOpen()
	return pb.rg.registerRasterPipeline(desc)
}

// RegisterRayTracingPipeline requests a ray tracing pipeline.
func (pb *PassBuilder) RegisterRayTracingPipeline(desc gpucore.RayTracingPipelineDesc) RayTracingPipelineHandle {
	pb.mustBeOpen()
	return pb.rg.registerRayTracingPipeline(desc)
}

// Render appends a free-form command.
func (pb *PassBuilder) Render(fn func(api *PassAPI) error) {
	pb.mustBeOpen()
	pb.pass.Commands = append(pb.pass.Commands, RenderFunc(fn))
}

// Record appends recorded commands.
func (pb *PassBuilder) Record(cmds ...PassCommand) {
	pb.mustBeOpen()
	pb.pass.Commands = append(pb.pass.Commands, cmds...)
}

// Finish seals the pass. Any later use of pb panics.
func (pb *PassBuilder) Finish() *RecordedPass {
	pb.mustBeOpen()
	pb.finished = true
	return pb.pass
}

func (pb *PassBuilder) declare(op string, h RawHandle, access gpucore.AccessType, ok func(gpucore.AccessType) bool) {
	pb.mustBeOpen()
	if !ok(access) {
		panic(&AccessError{Op: op, Pass: pb.pass.Name, Access: access})
	}
	pb.rg.mustOwn(h)
}

// Read declares a read of h. access must be a read access.
func Read[D ResourceDesc](pb *PassBuilder, h Handle[D], access gpucore.AccessType) Ref[D, Srv] {
	pb.declare("read", h.Raw, access, gpucore.IsReadAccess)
	pb.pass.Reads = append(pb.pass.Reads, PassResourceRef{
		Handle: h.Raw,
		Access: access,
		Sync:   SkipSyncIfSameAccessType,
	})
	return Ref[D, Srv]{Raw: h.Raw, Desc: h.Desc}
}

// Write declares a synchronized write of h. access must be a write access.
func Write[D ResourceDesc](pb *PassBuilder, h Handle[D], access gpucore.AccessType) Ref[D, Uav] {
	pb.declare("write", h.Raw, access, gpucore.IsWriteAccess)
	pb.pass.Writes = append(pb.pass.Writes, PassResourceRef{
		Handle: h.Raw,
		Access: access,
		Sync:   AlwaysSync,
	})
	return Ref[D, Uav]{Raw: h.Raw, Desc: h.Desc}
}

// WriteNoSync is Write without a barrier when the resource is already in
// access. The caller guarantees that the writes of consecutive passes do
// not race.
func WriteNoSync[D ResourceDesc](pb *PassBuilder, h Handle[D], access gpucore.AccessType) Ref[D, Uav] {
	pb.declare("write_no_sync", h.Raw, access, gpucore.IsWriteAccess)
	pb.pass.Writes = append(pb.pass.Writes, PassResourceRef{
		Handle: h.Raw,
		Access: access,
		Sync:   SkipSyncIfSameAccessType,
	})
	return Ref[D, Uav]{Raw: h.Raw, Desc: h.Desc}
}

// WriteNoSyncRange is WriteNoSync restricted to r. It panics with
// ErrOverlappingNoSyncWrite when r overlaps another ranged unsynchronized
// write to the same buffer in this graph, and with ErrRangeOutOfBounds when r
// does not fit the buffer.
func WriteNoSyncRange(pb *PassBuilder, h BufferHandle, access gpucore.AccessType, r ByteRange) Ref[gpucore.BufferDesc, Uav] {
	pb.declare("write_no_sync_range", h.Raw, access, gpucore.IsWriteAccess)
	if r.End() > h.Desc.Size || r.End() < r.Offset {
		panic(fmt.Errorf("%w: %v in buffer of %d bytes", ErrRangeOutOfBounds, r, h.Desc.Size))
	}
	for _, prev := range pb.rg.noSyncRanges[h.Raw.ID] {
		if prev.Overlaps(r) {
			panic(fmt.Errorf("%w: pass %q writes %v of %v, overlapping %v",
				ErrOverlappingNoSyncWrite, pb.pass.Name, r, h.Raw, prev))
		}
	}
	pb.rg.noSyncRanges[h.Raw.ID] = append(pb.rg.noSyncRanges[h.Raw.ID], r)

	rc := r
	pb.pass.Writes = append(pb.pass.Writes, PassResourceRef{
		Handle: h.Raw,
		Access: access,
		Sync:   SkipSyncIfSameAccessType,
		Range:  &rc,
	})
	return Ref[gpucore.BufferDesc, Uav]{Raw: h.Raw, Desc: h.Desc}
}

// Raster declares a render target write of h.
func Raster[D ResourceDesc](pb *PassBuilder, h Handle[D], access gpucore.AccessType) Ref[D, Rt] {
	pb.declare("raster", h.Raw, access, gpucore.IsRasterAccess)
	pb.pass.Writes = append(pb.pass.Writes, PassResourceRef{
		Handle: h.Raw,
		Access: access,
		Sync:   AlwaysSync,
	})
	return Ref[D, Rt]{Raw: h.Raw, Desc: h.Desc}
}

// RasterRead declares a read-only render target use of h, such as a depth
// test without depth writes.
func RasterRead[D ResourceDesc](pb *PassBuilder, h Handle[D], access gpucore.AccessType) Ref[D, Rt] {
	pb.declare("raster_read", h.Raw, access, gpucore.IsRasterReadAccess)
	pb.pass.Reads = append(pb.pass.Reads, PassResourceRef{
		Handle: h.Raw,
		Access: access,
		Sync:   SkipSyncIfSameAccessType,
	})
	return Ref[D, Rt]{Raw: h.Raw, Desc: h.Desc}
}
