// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// BeginExecute instantiates every resource of a compiled graph.
//
// Created resources come from the transient cache, with the usage flags
// computed by Compile, or are allocated on a miss. They start in
// AccessNothing. Imported resources keep the access they were imported
// with. The swapchain placeholder stays pending until RecordPresentationCB.
func (rg *RenderGraph) BeginExecute() error {
	if rg.info == nil || rg.pipelines == nil {
		return ErrGraphNotCompiled
	}
	if rg.params == nil || rg.params.Device == nil || rg.params.PipelineCache == nil || rg.params.TransientCache == nil {
		return ErrNoExecutionParams
	}
	cache := rg.params.TransientCache

	resources := make([]registryResource, len(rg.resources))
	for i, r := range rg.resources {
		switch r := r.(type) {
		case createdImage:
			desc := r.desc
			desc.Usage = rg.info.ImageUsage[i]
			slot, tex, err := cache.GetOrInsertImage(desc, r.name)
			if err != nil {
				rg.returnOwned(resources[:i], cache)
				return err
			}
			resources[i] = registryResource{resource: ownedImage{slot: slot, texture: tex}, access: gpucore.AccessNothing}
		case createdBuffer:
			desc := r.desc
			desc.Usage = rg.info.BufferUsage[i]
			slot, buf, err := cache.GetOrInsertBuffer(desc, r.name)
			if err != nil {
				rg.returnOwned(resources[:i], cache)
				return err
			}
			resources[i] = registryResource{resource: ownedBuffer{slot: slot, buffer: buf}, access: gpucore.AccessNothing}
		case importedImage:
			resources[i] = registryResource{resource: liveImage{texture: r.texture}, access: r.access}
		case importedBuffer:
			resources[i] = registryResource{resource: liveBuffer{buffer: r.buffer}, access: r.access}
		case importedAcceleration:
			resources[i] = registryResource{resource: liveAcceleration{accel: r.accel}, access: r.access}
		case importedSwapchain:
			resources[i] = registryResource{resource: pendingSwapchain{}, access: gpucore.AccessComputeShaderWrite}
		}
	}

	rg.registry = &ResourceRegistry{
		resources: resources,
		params:    rg.params,
		pipelines: *rg.pipelines,
	}
	rg.executing = true
	return nil
}

func (rg *RenderGraph) returnOwned(resources []registryResource, cache *TransientResourceCache) {
	for _, r := range resources {
		switch r := r.resource.(type) {
		case ownedImage:
			cache.InsertImage(r.texture.Desc, r.slot)
		case ownedBuffer:
			cache.InsertBuffer(r.buffer.Desc, r.slot)
		}
	}
}

// Registry returns the registry of the executing graph, or nil before
// BeginExecute.
func (rg *RenderGraph) Registry() *ResourceRegistry { return rg.registry }

// presentationSplit returns the index of the first pass writing the
// swapchain image, or len(passes) if none does.
func (rg *RenderGraph) presentationSplit() int {
	for i, p := range rg.passes {
		for _, w := range p.Writes {
			if _, ok := rg.resources[w.Handle.ID].(importedSwapchain); ok {
				return i
			}
		}
	}
	return len(rg.passes)
}

// RecordMainCB records every pass before the first one writing the
// swapchain image into cb and drops them from the graph.
//
// Before the first pass, each resource is transitioned to the access of its
// first use, in the order those uses appear. The refs of those first uses
// are then treated as already synchronized.
func (rg *RenderGraph) RecordMainCB(cb gpucore.CommandBuffer) error {
	if !rg.executing {
		return ErrNotExecuting
	}
	k := rg.presentationSplit()
	main := rg.passes[:k]

	seen := make(map[uint32]bool)
	for _, p := range main {
		for _, ref := range p.refs() {
			if seen[ref.Handle.ID] {
				continue
			}
			seen[ref.Handle.ID] = true
			warm := *ref
			warm.Sync = SkipSyncIfSameAccessType
			rg.transitionResource(cb, &rg.registry.resources[ref.Handle.ID], warm)
			ref.Sync = SkipSyncIfSameAccessType
		}
	}

	for _, p := range main {
		if err := rg.recordPass(cb, p, "main"); err != nil {
			return err
		}
	}
	rg.passes = rg.passes[k:]
	return nil
}

// RecordPresentationCB records the remaining passes into cb once the
// swapchain image is known.
//
// Exported resources are first transitioned to their export access, then
// the pending swapchain resource is bound to swapchainImage.
func (rg *RenderGraph) RecordPresentationCB(cb gpucore.CommandBuffer, swapchainImage gpucore.Texture) error {
	if !rg.executing {
		return ErrNotExecuting
	}
	for _, e := range rg.exported {
		if e.access == gpucore.AccessNothing {
			continue
		}
		rg.transitionResource(cb, &rg.registry.resources[e.handle.ID], PassResourceRef{
			Handle: e.handle,
			Access: e.access,
			Sync:   AlwaysSync,
		})
	}

	for i := range rg.registry.resources {
		res := &rg.registry.resources[i]
		if _, ok := res.resource.(pendingSwapchain); !ok {
			continue
		}
		if _, ok := rg.resources[i].(importedSwapchain); !ok {
			return fmt.Errorf("%w: resource %d is pending but is not the swapchain", ErrPendingResource, i)
		}
		res.resource = liveImage{texture: swapchainImage}
	}

	for _, p := range rg.passes {
		if err := rg.recordPass(cb, p, "presentation"); err != nil {
			return err
		}
	}
	rg.passes = nil
	return nil
}

// SwapchainAccess returns the access the swapchain image was left in by the
// recorded passes, for the transition back to presentation. It is
// AccessComputeShaderWrite when no pass touched the image. With several
// swapchain handles the last one created wins.
func (rg *RenderGraph) SwapchainAccess() gpucore.AccessType {
	access := gpucore.AccessComputeShaderWrite
	if rg.registry == nil {
		return access
	}
	for i, r := range rg.resources {
		if _, ok := r.(importedSwapchain); ok {
			access = rg.registry.resources[i].access
		}
	}
	return access
}

func (rg *RenderGraph) recordPass(cb gpucore.CommandBuffer, p *RecordedPass, stream string) error {
	for _, ref := range p.refs() {
		rg.transitionResource(cb, &rg.registry.resources[ref.Handle.ID], *ref)
	}

	cb.BeginEvent(p.Name)
	api := &PassAPI{cb: cb, resources: rg.registry, pass: p}
	for i, cmd := range p.Commands {
		if err := cmd.record(api); err != nil {
			cb.EndEvent()
			return fmt.Errorf("framegraph: pass %q command %d: %w", p.Name, i, err)
		}
	}
	cb.EndEvent()
	passesRecordedTotal.WithLabelValues(stream).Inc()
	return nil
}

// transitionResource is the only place barriers are recorded.
func (rg *RenderGraph) transitionResource(cb gpucore.CommandBuffer, res *registryResource, ref PassResourceRef) {
	if res.spans == nil && res.access == ref.Access && ref.Sync == SkipSyncIfSameAccessType {
		barriersSkippedTotal.WithLabelValues("same_access").Inc()
		return
	}

	switch res.resource.(type) {
	case ownedImage, liveImage:
		tex, _ := res.texture()
		aspect, ok := gpucore.AspectForAccess(ref.Access, tex.Desc.Format)
		if !ok {
			slogger().Error("framegraph: invalid image access",
				"texture", tex.ID, "access", ref.Access, "sync", ref.Sync)
			barriersSkippedTotal.WithLabelValues("invalid_aspect").Inc()
			return
		}
		slogger().Debug("framegraph: image barrier",
			"texture", tex.ID, "prev", res.access, "next", ref.Access, "aspect", aspect)
		cb.ImageBarrier(gpucore.ImageBarrier{
			Texture: tex,
			Prev:    res.access,
			Next:    ref.Access,
			Aspect:  aspect,
		})
		barriersTotal.WithLabelValues("image").Inc()
		res.access = ref.Access

	case ownedBuffer, liveBuffer:
		rg.transitionBuffer(cb, res, ref)

	case liveAcceleration:
		// No barrier type exists for acceleration structures; only the
		// bookkeeping moves.
		res.access = ref.Access
		barriersTotal.WithLabelValues("acceleration").Inc()

	case pendingSwapchain:
		barriersSkippedTotal.WithLabelValues("pending").Inc()
	}
}

// transitionBuffer moves the bytes ref covers to ref.Access. A ranged ref
// splits the buffer into spans that keep their own access, so a later
// whole-buffer use waits on every earlier writer, each from its own access.
func (rg *RenderGraph) transitionBuffer(cb gpucore.CommandBuffer, res *registryResource, ref PassResourceRef) {
	buf, _ := res.buffer()
	whole := ByteRange{Size: buf.Desc.Size}
	target := whole
	if ref.Range != nil {
		target = *ref.Range
	}
	spans := res.spans
	if spans == nil {
		spans = []accessSpan{{ByteRange: whole, access: res.access}}
	}

	next := make([]accessSpan, 0, len(spans)+2)
	for _, s := range spans {
		in, ok := s.intersect(target)
		if !ok {
			next = append(next, s)
			continue
		}
		next = append(next, accessSpan{ByteRange{Offset: s.Offset, Size: in.Offset - s.Offset}, s.access})
		if s.access == ref.Access && ref.Sync == SkipSyncIfSameAccessType {
			barriersSkippedTotal.WithLabelValues("same_access").Inc()
		} else {
			slogger().Debug("framegraph: buffer barrier",
				"buffer", buf.ID, "prev", s.access, "next", ref.Access, "offset", in.Offset, "size", in.Size)
			cb.BufferBarrier(gpucore.BufferBarrier{
				Buffer: buf,
				Prev:   s.access,
				Next:   ref.Access,
				Offset: in.Offset,
				Size:   in.Size,
			})
			barriersTotal.WithLabelValues("buffer").Inc()
		}
		next = append(next, accessSpan{in, ref.Access})
		next = append(next, accessSpan{ByteRange{Offset: in.End(), Size: s.End() - in.End()}, s.access})
	}

	next = coalesce(next)
	switch len(next) {
	case 0:
		res.spans = nil
		res.access = ref.Access
		return
	case 1:
		res.spans = nil
		res.access = next[0].access
		return
	}
	res.spans = next
	res.access = ref.Access
}

// ReleaseResources returns the owned images and buffers to cache. It fails
// with ErrPendingResource if the swapchain image was never bound, which
// means the presentation stream was not recorded.
func (rg *RenderGraph) ReleaseResources(cache *TransientResourceCache) error {
	if !rg.executing {
		return ErrNotExecuting
	}
	rg.executing = false

	var errs []error
	for i, r := range rg.registry.resources {
		switch res := r.resource.(type) {
		case ownedImage:
			cache.InsertImage(res.texture.Desc, res.slot)
		case ownedBuffer:
			cache.InsertBuffer(res.buffer.Desc, res.slot)
		case pendingSwapchain:
			errs = append(errs, fmt.Errorf("%w: resource %d", ErrPendingResource, i))
		}
	}
	return errors.Join(errs...)
}

// Execute runs a graph without presentation, such as a one-off utility
// graph: compile, prepare pipelines, record every pass into one command
// buffer, submit it and release the resources.
func (rg *RenderGraph) Execute(ctx context.Context) error {
	if rg.params == nil || rg.params.Device == nil || rg.params.PipelineCache == nil || rg.params.TransientCache == nil {
		return ErrNoExecutionParams
	}
	dev := rg.params.Device
	if err := rg.Compile(rg.params.PipelineCache); err != nil {
		return err
	}
	if err := rg.params.PipelineCache.PrepareFrame(ctx, dev); err != nil {
		return fmt.Errorf("framegraph: prepare pipelines: %w", err)
	}
	cb, err := dev.BeginCommandBuffer("framegraph execute")
	if err != nil {
		return err
	}
	if err := rg.BeginExecute(); err != nil {
		return err
	}
	if err := rg.RecordMainCB(cb); err != nil {
		return errors.Join(err, rg.ReleaseResources(rg.params.TransientCache))
	}
	if err := dev.Submit(ctx, cb); err != nil {
		return errors.Join(err, rg.ReleaseResources(rg.params.TransientCache))
	}
	return rg.ReleaseResources(rg.params.TransientCache)
}

// ExportedAccess returns the access an exported resource ended the frame in.
func ExportedAccess[D ResourceDesc](rg *RenderGraph, h ExportedHandle[D]) (gpucore.AccessType, error) {
	if rg.registry == nil {
		return gpucore.AccessNothing, ErrNotExecuting
	}
	a, ok := rg.registry.Access(h.Raw)
	if !ok {
		return gpucore.AccessNothing, fmt.Errorf("%w: %v", ErrForeignHandle, h.Raw)
	}
	return a, nil
}

// ExportedTexture returns the texture behind an exported image.
func ExportedTexture(rg *RenderGraph, h ExportedHandle[gpucore.TextureDesc]) (gpucore.Texture, error) {
	if rg.registry == nil {
		return gpucore.Texture{}, ErrNotExecuting
	}
	return rg.registry.texture(h.Raw)
}

// ExportedBuffer returns the buffer behind an exported buffer.
func ExportedBuffer(rg *RenderGraph, h ExportedHandle[gpucore.BufferDesc]) (gpucore.Buffer, error) {
	if rg.registry == nil {
		return gpucore.Buffer{}, ErrNotExecuting
	}
	return rg.registry.buffer(h.Raw)
}
