// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/gpucore"
)

// FrameSet is the descriptor set index of the frame constants.
const FrameSet = 2

// FrameSetLayout is the layout of the frame descriptor set: one dynamic
// uniform buffer for globals and three dynamic storage buffers, all views
// of the dynamic constants ring.
var FrameSetLayout = gpucore.DescriptorSetLayout{
	Bindings: []gpucore.DescriptorBindingLayout{
		{Binding: 0, Type: gpucore.DescriptorUniformBufferDynamic, Count: 1, Stages: gpucore.ShaderStageAll},
		{Binding: 1, Type: gpucore.DescriptorStorageBufferDynamic, Count: 1, Stages: gpucore.ShaderStageAll},
		{Binding: 2, Type: gpucore.DescriptorStorageBufferDynamic, Count: 1, Stages: gpucore.ShaderStageAll},
		{Binding: 3, Type: gpucore.DescriptorStorageBufferDynamic, Count: 1, Stages: gpucore.ShaderStageAll},
	},
}

// Renderer errors.
var (
	// ErrFrameNotPrepared is returned by DrawFrame for a graph that did not
	// go through a successful PrepareFrame.
	ErrFrameNotPrepared = errors.New("render: frame not prepared")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("render: renderer closed")
)

// Renderer runs one temporal graph per frame on a backend instance.
//
// Thread Safety: Renderer is not safe for concurrent use.
type Renderer struct {
	cfg  Config
	inst *backend.Instance

	arena     *framegraph.ResourceArena
	transient *framegraph.TransientResourceCache
	temporal  *framegraph.TemporalState
	constants *framegraph.DynamicConstants
	scratch   *framegraph.FrameArena

	frameSet    gpucore.DescriptorSetID
	frameLayout framegraph.FrameConstantsLayout

	prepared *framegraph.TemporalGraph
	frame    uint64
	closed   bool
}

// Open opens the backend named by cfg.Backend, or the default one, and
// creates a Renderer that owns it.
func Open(cfg Config) (*Renderer, error) {
	cfg = cfg.withDefaults()
	var (
		inst *backend.Instance
		err  error
	)
	if cfg.Backend == "" {
		inst, err = backend.Default(cfg.BackendOptions())
	} else {
		inst, err = backend.Open(cfg.Backend, cfg.BackendOptions())
	}
	if err != nil {
		return nil, err
	}
	r, err := New(inst, cfg)
	if err != nil {
		inst.Close()
		return nil, err
	}
	return r, nil
}

// New creates a Renderer on inst. Close releases inst.
func New(inst *backend.Instance, cfg Config) (*Renderer, error) {
	cfg = cfg.withDefaults()
	dev := inst.Device

	constants, err := framegraph.NewDynamicConstants(dev, cfg.DynamicConstantsSize, 0)
	if err != nil {
		return nil, err
	}
	buf := constants.Buffer()
	frameSet, err := dev.CreateDescriptorSet(FrameSetLayout, []gpucore.DescriptorBinding{
		{Binding: 0, Kind: gpucore.DescriptorKindDynamicUniform, Buffer: buf},
		{Binding: 1, Kind: gpucore.DescriptorKindDynamicStorage, Buffer: buf},
		{Binding: 2, Kind: gpucore.DescriptorKindDynamicStorage, Buffer: buf},
		{Binding: 3, Kind: gpucore.DescriptorKindDynamicStorage, Buffer: buf},
	})
	if err != nil {
		dev.DestroyBuffer(buf)
		return nil, fmt.Errorf("render: frame descriptor set: %w", err)
	}

	arena := framegraph.NewResourceArena(dev)
	framegraph.Logger().Info("render: renderer created",
		"backend", inst.Name, "extent", inst.Swapchain.Extent())
	return &Renderer{
		cfg:       cfg,
		inst:      inst,
		arena:     arena,
		transient: framegraph.NewTransientResourceCache(arena),
		temporal:  framegraph.NewTemporalState(arena),
		constants: constants,
		scratch:   framegraph.NewFrameArena(cfg.FrameArenaChunk),
		frameSet:  frameSet,
	}, nil
}

// Config returns the settings the renderer was created with.
func (r *Renderer) Config() Config { return r.cfg }

// Instance returns the backend the renderer runs on.
func (r *Renderer) Instance() *backend.Instance { return r.inst }

// Frame returns the number of frames drawn.
func (r *Renderer) Frame() uint64 { return r.frame }

// Temporal returns the temporal state carried to the next frame.
func (r *Renderer) Temporal() *framegraph.TemporalState { return r.temporal }

// DynamicConstants returns the constants ring of the renderer.
func (r *Renderer) DynamicConstants() *framegraph.DynamicConstants { return r.constants }

// TemporalGraph starts the graph of the next frame. The graph sees the
// temporal resources of earlier frames and is registered with the
// renderer's execution parameters.
func (r *Renderer) TemporalGraph() *framegraph.TemporalGraph {
	r.abandonPrepared()
	rg := framegraph.NewRenderGraph(framegraph.WithFrameArena(r.scratch))
	r.RegisterRenderGraph(rg)
	return framegraph.NewTemporalGraph(rg, r.temporal)
}

// RegisterRenderGraph adds the frame descriptor set to every pipeline of
// rg and binds rg to the renderer's device, pipeline cache and caches.
// Pipelines registered on rg before the call do not get the frame set.
func (r *Renderer) RegisterRenderGraph(rg *framegraph.RenderGraph) {
	rg.SetPredefinedDescriptorSet(FrameSet, FrameSetLayout)
	rg.RegisterExecutionParams(framegraph.ExecutionParams{
		Device:             r.inst.Device,
		PipelineCache:      r.inst.PipelineCache,
		FrameDescriptorSet: r.frameSet,
		FrameConstants:     r.frameLayout,
		DynamicConstants:   r.constants,
		TransientCache:     r.transient,
	})
}

// PrepareFrameConstants lets fn push the frame constants of this frame and
// records the offsets it returns for binding at FrameSet.
func (r *Renderer) PrepareFrameConstants(tg *framegraph.TemporalGraph, fn func(*framegraph.DynamicConstants) (framegraph.FrameConstantsLayout, error)) error {
	layout, err := fn(r.constants)
	if err != nil {
		return fmt.Errorf("render: frame constants: %w", err)
	}
	r.frameLayout = layout
	r.RegisterRenderGraph(tg.RenderGraph)
	return nil
}

// PrepareFrame lets build declare the passes of tg, then compiles the graph
// and its pipelines.
//
// On success the temporal state exported by tg becomes the renderer's
// state and tg can be drawn. On failure nothing may be drawn; temporal
// resources created by tg are kept, at rest in AccessNothing, so the next
// attempt reuses them.
func (r *Renderer) PrepareFrame(ctx context.Context, tg *framegraph.TemporalGraph, build func(*framegraph.TemporalGraph) error) error {
	if r.closed {
		return ErrClosed
	}
	r.abandonPrepared()

	if err := build(tg); err != nil {
		r.temporal.MergeNew(tg.State())
		framesTotal.WithLabelValues("prepare_failed").Inc()
		return fmt.Errorf("render: build graph: %w", err)
	}
	next := tg.ExportTemporal()
	if err := tg.Compile(r.inst.PipelineCache); err != nil {
		r.temporal.MergeNew(next)
		framesTotal.WithLabelValues("prepare_failed").Inc()
		return err
	}
	if err := r.inst.PipelineCache.PrepareFrame(ctx, r.inst.Device); err != nil {
		r.temporal.MergeNew(next)
		framesTotal.WithLabelValues("prepare_failed").Inc()
		framegraph.Logger().Warn("render: pipelines not ready, skipping frame", "error", err)
		return fmt.Errorf("render: prepare pipelines: %w", err)
	}
	r.temporal = next
	r.prepared = tg
	return nil
}

// DrawFrame records and presents a prepared graph.
//
// The passes before the first swapchain write are submitted first. The
// swapchain image is then acquired, the remaining passes are recorded
// between a discard transition out of Present and a transition back to
// Present, and the image is presented. Finally temporal resources are
// retired, transient ones returned to the cache and the per-frame
// allocators reset.
func (r *Renderer) DrawFrame(ctx context.Context, tg *framegraph.TemporalGraph) (err error) {
	if r.closed {
		return ErrClosed
	}
	if tg == nil || tg != r.prepared {
		return ErrFrameNotPrepared
	}
	r.prepared = nil
	start := time.Now()
	defer func() {
		if err != nil {
			framesTotal.WithLabelValues("draw_failed").Inc()
			return
		}
		frameDuration.Observe(time.Since(start).Seconds())
		framesTotal.WithLabelValues("drawn").Inc()
	}()

	dev := r.inst.Device
	sc := r.inst.Swapchain

	if err := tg.BeginExecute(); err != nil {
		r.temporal.RestExported(nil)
		return err
	}
	// settled holds the temporal accesses the GPU is known to reach, set
	// once the main command buffer is submitted.
	var settled map[framegraph.TemporalKey]gpucore.AccessType
	abort := func(err error) error {
		if rerr := tg.ReleaseResources(r.transient); rerr != nil && !errors.Is(rerr, framegraph.ErrPendingResource) {
			err = errors.Join(err, rerr)
		}
		r.temporal.RestExported(settled)
		r.constants.AdvanceFrame()
		r.scratch.Reset()
		framegraph.Logger().Warn("render: frame aborted", "frame", r.frame, "error", err)
		return err
	}

	mainCB, err := dev.BeginCommandBuffer("main")
	if err != nil {
		return abort(err)
	}
	if err := tg.RecordMainCB(mainCB); err != nil {
		return abort(err)
	}
	if err := dev.Submit(ctx, mainCB); err != nil {
		return abort(fmt.Errorf("render: submit main: %w", err))
	}
	settled = r.temporal.SettledAccesses(tg.RenderGraph)

	img, err := sc.AcquireNextImage(ctx)
	if err != nil {
		return abort(fmt.Errorf("render: acquire swapchain image: %w", err))
	}
	presentCB, err := dev.BeginCommandBuffer("presentation")
	if err != nil {
		return abort(err)
	}
	presentCB.ImageBarrier(gpucore.ImageBarrier{
		Texture: img.Texture,
		Prev:    gpucore.AccessPresent,
		Next:    gpucore.AccessComputeShaderWrite,
		Aspect:  gpucore.AspectColor,
		Discard: true,
	})
	if err := tg.RecordPresentationCB(presentCB, img.Texture); err != nil {
		return abort(err)
	}
	presentCB.ImageBarrier(gpucore.ImageBarrier{
		Texture: img.Texture,
		Prev:    tg.SwapchainAccess(),
		Next:    gpucore.AccessPresent,
		Aspect:  gpucore.AspectColor,
	})
	if err := sc.PresentImage(ctx, img, presentCB); err != nil {
		return abort(fmt.Errorf("render: present: %w", err))
	}

	var errs []error
	if err := r.temporal.RetireTemporal(tg.RenderGraph); err != nil {
		errs = append(errs, err)
		r.temporal.RestExported(nil)
	}
	if err := tg.ReleaseResources(r.transient); err != nil {
		errs = append(errs, err)
	}
	r.constants.AdvanceFrame()
	r.scratch.Reset()
	r.frame++
	framegraph.Logger().Debug("render: frame drawn", "frame", r.frame, "image", img.Index)
	return errors.Join(errs...)
}

// abandonPrepared rests the temporal resources of a prepared frame that
// will not be drawn.
func (r *Renderer) abandonPrepared() {
	if r.prepared == nil {
		return
	}
	r.temporal.RestExported(nil)
	r.prepared = nil
}

// ClearResources frees every temporal and cached transient resource.
// The next frame starts from scratch.
func (r *Renderer) ClearResources() {
	r.temporal.Clear()
	r.transient.Clear()
	r.prepared = nil
	framegraph.Logger().Info("render: resources cleared")
}

// RefreshShaders makes the next PrepareFrame rebuild every pipeline from
// source.
func (r *Renderer) RefreshShaders() {
	r.inst.PipelineCache.RefreshShaders()
	framegraph.Logger().Info("render: shaders refreshed")
}

// Close frees the renderer's resources and closes the backend instance.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.ClearResources()
	r.inst.Device.DestroyBuffer(r.constants.Buffer())
	r.inst.Close()
}
