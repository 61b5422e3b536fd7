// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	gpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gpucore"
)

// CommandBuffer implements gpucore.CommandBuffer on a hal command encoder.
//
// Compute work is recorded into compute passes that are opened on demand
// and closed by the next barrier, transfer or render pass. Buffer and
// global barriers only close the open pass: hal tracks buffer usage at
// pass boundaries.
//
// Commands without a hal equivalent do not panic. The first such command
// poisons the buffer and Device.Submit returns the accumulated error.
type CommandBuffer struct {
	dev   *Device
	label string
	enc   gpuhal.CommandEncoder

	compute gpuhal.ComputePassEncoder
	render  gpuhal.RenderPassEncoder

	events  []string
	release []func()
	err     error
}

var _ gpucore.CommandBuffer = (*CommandBuffer)(nil)

// Label implements gpucore.CommandBuffer.
func (c *CommandBuffer) Label() string { return c.label }

// Err returns the error recorded so far, if any.
func (c *CommandBuffer) Err() error { return c.err }

func (c *CommandBuffer) fail(err error) {
	framegraph.Logger().Debug("hal: command failed", "cb", c.label, "error", err)
	c.err = errors.Join(c.err, err)
}

func (c *CommandBuffer) unsupported(what string) {
	c.fail(fmt.Errorf("%w: %s", ErrUnsupported, what))
}

func (c *CommandBuffer) passLabel() string {
	if n := len(c.events); n > 0 {
		return c.events[n-1]
	}
	return c.label
}

func (c *CommandBuffer) endPasses() {
	if c.compute != nil {
		c.compute.End()
		c.compute = nil
	}
	if c.render != nil {
		c.render.End()
		c.render = nil
	}
}

func (c *CommandBuffer) beginCompute() bool {
	if c.render != nil {
		c.fail(errors.New("hal: compute command inside a render pass"))
		return false
	}
	if c.compute == nil {
		c.compute = c.enc.BeginComputePass(&gpuhal.ComputePassDescriptor{Label: c.passLabel()})
	}
	return true
}

func (c *CommandBuffer) discard() {
	c.endPasses()
	c.enc.DiscardEncoding()
	c.runRelease()
}

func (c *CommandBuffer) runRelease() {
	for _, fn := range c.release {
		fn()
	}
	c.release = nil
}

// ImageBarrier implements gpucore.CommandBuffer.
func (c *CommandBuffer) ImageBarrier(b gpucore.ImageBarrier) {
	c.endPasses()
	tex, ok := c.dev.lookupTexture(b.Texture.ID)
	if !ok {
		c.fail(fmt.Errorf("%w: texture %d", ErrUnknownResource, b.Texture.ID))
		return
	}
	old := accessTextureUsage(b.Prev)
	if b.Discard {
		old = 0
	}
	c.enc.TransitionTextures([]gpuhal.TextureBarrier{{
		Texture: tex.raw,
		Usage: gpuhal.TextureUsageTransition{
			OldUsage: old,
			NewUsage: accessTextureUsage(b.Next),
		},
	}})
}

// BufferBarrier implements gpucore.CommandBuffer.
func (c *CommandBuffer) BufferBarrier(gpucore.BufferBarrier) {
	c.endPasses()
}

// GlobalBarrier implements gpucore.CommandBuffer.
func (c *CommandBuffer) GlobalBarrier(_, _ []gpucore.AccessType) {
	c.endPasses()
}

// BindPipeline implements gpucore.CommandBuffer. Only compute pipelines
// are built by the hal PipelineCache.
func (c *CommandBuffer) BindPipeline(point gpucore.BindPoint, pipeline gpucore.PipelineID) {
	if point != gpucore.BindPointCompute {
		c.unsupported(point.String() + " pipeline")
		return
	}
	p, ok := c.dev.lookupPipeline(pipeline)
	if !ok {
		c.fail(fmt.Errorf("%w: pipeline %d", ErrUnknownResource, pipeline))
		return
	}
	if c.beginCompute() {
		c.compute.SetPipeline(p.raw)
	}
}

// BindDescriptorSet implements gpucore.CommandBuffer. The bind group lives
// until the submission completes.
func (c *CommandBuffer) BindDescriptorSet(point gpucore.BindPoint, pipeline gpucore.PipelineID, set uint32, bindings []gpucore.DescriptorBinding) {
	p, ok := c.dev.lookupPipeline(pipeline)
	if !ok {
		c.fail(fmt.Errorf("%w: pipeline %d", ErrUnknownResource, pipeline))
		return
	}
	if int(set) >= len(p.sets) {
		c.fail(fmt.Errorf("%w: set %d not in pipeline layout", ErrUnknownResource, set))
		return
	}
	group, offsets, err := c.dev.createBindGroup(c.passLabel(), p.sets[set], bindings)
	if err != nil {
		c.fail(err)
		return
	}
	raw := c.dev.raw
	c.release = append(c.release, func() { raw.DestroyBindGroup(group) })
	c.setBindGroup(point, set, group, offsets)
}

// BindRawDescriptorSet implements gpucore.CommandBuffer.
func (c *CommandBuffer) BindRawDescriptorSet(point gpucore.BindPoint, _ gpucore.PipelineID, set uint32, ds gpucore.DescriptorSetID, dynamicOffsets []uint32) {
	s, ok := c.dev.lookupSet(ds)
	if !ok {
		c.fail(fmt.Errorf("%w: descriptor set %d", ErrUnknownResource, ds))
		return
	}
	c.setBindGroup(point, set, s.group, dynamicOffsets)
}

func (c *CommandBuffer) setBindGroup(point gpucore.BindPoint, set uint32, group gpuhal.BindGroup, offsets []uint32) {
	switch {
	case point == gpucore.BindPointCompute:
		if c.beginCompute() {
			c.compute.SetBindGroup(set, group, offsets)
		}
	case point == gpucore.BindPointGraphics && c.render != nil:
		c.render.SetBindGroup(set, group, offsets)
	default:
		c.unsupported(point.String() + " descriptor set outside a pass")
	}
}

// PushConstants implements gpucore.CommandBuffer.
func (c *CommandBuffer) PushConstants(gpucore.PipelineID, gpucore.ShaderStage, uint32, []byte) {
	c.unsupported("push constants")
}

// Dispatch implements gpucore.CommandBuffer.
func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	if c.compute == nil {
		c.fail(errors.New("hal: dispatch without a bound compute pipeline"))
		return
	}
	c.compute.Dispatch(x, y, z)
}

// DispatchIndirect implements gpucore.CommandBuffer.
func (c *CommandBuffer) DispatchIndirect(gpucore.Buffer, uint64) {
	c.unsupported("indirect dispatch")
}

// BeginRenderPass implements gpucore.CommandBuffer.
func (c *CommandBuffer) BeginRenderPass(desc gpucore.RenderPassDesc, _ [2]uint32, colors []gpucore.TextureView, depth *gpucore.TextureView) {
	c.endPasses()
	rp := &gpuhal.RenderPassDescriptor{Label: desc.Label}
	for i, color := range colors {
		view, err := c.dev.attachmentView(color.Texture.ID)
		if err != nil {
			c.fail(err)
			return
		}
		att := gpuhal.RenderPassColorAttachment{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}
		if i < len(desc.ColorAttachments) {
			att.LoadOp = loadOp(desc.ColorAttachments[i].Load)
		}
		rp.ColorAttachments = append(rp.ColorAttachments, att)
	}
	if depth != nil {
		view, err := c.dev.attachmentView(depth.Texture.ID)
		if err != nil {
			c.fail(err)
			return
		}
		op := gputypes.LoadOpLoad
		if desc.DepthAttachment != nil {
			op = loadOp(desc.DepthAttachment.Load)
		}
		rp.DepthStencilAttachment = depthAttachment(view, depth.Texture.Desc.Format, op, 1, 0)
	}
	c.render = c.enc.BeginRenderPass(rp)
}

func depthAttachment(view gpuhal.TextureView, format gputypes.TextureFormat, op gputypes.LoadOp, depth float32, stencil uint32) *gpuhal.RenderPassDepthStencilAttachment {
	att := &gpuhal.RenderPassDepthStencilAttachment{
		View:            view,
		DepthLoadOp:     op,
		DepthStoreOp:    gputypes.StoreOpStore,
		DepthClearValue: depth,
	}
	if gpucore.AspectFromFormat(format)&gpucore.AspectStencil != 0 {
		att.StencilLoadOp = op
		att.StencilStoreOp = gputypes.StoreOpStore
		att.StencilClearValue = stencil
	}
	return att
}

// EndRenderPass implements gpucore.CommandBuffer.
func (c *CommandBuffer) EndRenderPass() {
	if c.render != nil {
		c.render.End()
		c.render = nil
	}
}

// SetViewportScissor implements gpucore.CommandBuffer. hal render passes
// cover the whole attachment, so the call only validates that a pass is open.
func (c *CommandBuffer) SetViewportScissor(gpucore.Viewport, gpucore.Scissor) {
	if c.render == nil {
		c.fail(errors.New("hal: viewport outside a render pass"))
	}
}

// DrawInstanced implements gpucore.CommandBuffer.
func (c *CommandBuffer) DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if c.render == nil {
		c.fail(errors.New("hal: draw outside a render pass"))
		return
	}
	c.render.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed implements gpucore.CommandBuffer.
func (c *CommandBuffer) DrawIndexed(gpucore.Buffer, uint32, uint32, uint32, int32, uint32) {
	c.unsupported("indexed draw")
}

// DrawInstancedIndirect implements gpucore.CommandBuffer.
func (c *CommandBuffer) DrawInstancedIndirect(gpucore.Buffer, uint64, uint32, uint32) {
	c.unsupported("indirect draw")
}

// TraceRays implements gpucore.CommandBuffer.
func (c *CommandBuffer) TraceRays(gpucore.PipelineID, [3]uint32) {
	c.unsupported("ray tracing")
}

// TraceRaysIndirect implements gpucore.CommandBuffer.
func (c *CommandBuffer) TraceRaysIndirect(gpucore.PipelineID, uint64) {
	c.unsupported("ray tracing")
}

// ClearImage implements gpucore.CommandBuffer with a render pass that
// clears on load, so t needs an attachment usage.
func (c *CommandBuffer) ClearImage(t gpucore.Texture, value gpucore.ClearValue) {
	c.endPasses()
	view, err := c.dev.attachmentView(t.ID)
	if err != nil {
		c.fail(err)
		return
	}
	rp := &gpuhal.RenderPassDescriptor{Label: c.passLabel()}
	if gpucore.IsDepthFormat(t.Desc.Format) {
		rp.DepthStencilAttachment = depthAttachment(view, t.Desc.Format, gputypes.LoadOpClear, value.Depth, value.Stencil)
	} else {
		rp.ColorAttachments = []gpuhal.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(value.Color[0]),
				G: float64(value.Color[1]),
				B: float64(value.Color[2]),
				A: float64(value.Color[3]),
			},
		}}
	}
	c.enc.BeginRenderPass(rp).End()
}

// ClearBuffer implements gpucore.CommandBuffer by copying from a filled
// staging buffer.
func (c *CommandBuffer) ClearBuffer(b gpucore.Buffer, value uint32) {
	c.endPasses()
	dst, ok := c.dev.lookupBuffer(b.ID)
	if !ok {
		c.fail(fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.ID))
		return
	}
	size := (b.Desc.Size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
	fill := make([]byte, size)
	for i := uint64(0); i < size; i += 4 {
		binary.LittleEndian.PutUint32(fill[i:], value)
	}

	raw := c.dev.raw
	staging, err := raw.CreateBuffer(&gpuhal.BufferDescriptor{
		Label: "clear staging",
		Size:  size,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		c.fail(fmt.Errorf("hal: create staging buffer: %w", err))
		return
	}
	c.release = append(c.release, func() { raw.DestroyBuffer(staging) })
	c.dev.queue.WriteBuffer(staging, 0, fill)
	c.enc.CopyBufferToBuffer(staging, dst, []gpuhal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
}

// CopyImage implements gpucore.CommandBuffer.
func (c *CommandBuffer) CopyImage(gpucore.Texture, gpucore.Texture) {
	c.unsupported("image copy")
}

// CopyBuffer implements gpucore.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gpucore.Buffer, size uint64) {
	c.endPasses()
	s, ok := c.dev.lookupBuffer(src.ID)
	if !ok {
		c.fail(fmt.Errorf("%w: buffer %d", ErrUnknownResource, src.ID))
		return
	}
	d, ok := c.dev.lookupBuffer(dst.ID)
	if !ok {
		c.fail(fmt.Errorf("%w: buffer %d", ErrUnknownResource, dst.ID))
		return
	}
	c.enc.CopyBufferToBuffer(s, d, []gpuhal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
}

// BeginEvent implements gpucore.CommandBuffer. Event names label the
// passes opened inside them.
func (c *CommandBuffer) BeginEvent(name string) {
	c.events = append(c.events, name)
}

// EndEvent implements gpucore.CommandBuffer.
func (c *CommandBuffer) EndEvent() {
	if n := len(c.events); n > 0 {
		c.events = c.events[:n-1]
	}
}
