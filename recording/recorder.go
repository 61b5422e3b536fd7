// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"slices"
	"strings"

	"github.com/gogpu/framegraph/gpucore"
)

// Recorder captures GPU commands as typed values.
// It implements gpucore.CommandBuffer and generates commands instead of
// talking to a driver. Use Finish to obtain an immutable Recording that can
// be inspected or replayed onto another command buffer.
//
// Example:
//
//	rec := recording.NewRecorder("main")
//	rec.BeginEvent("clear")
//	rec.ClearImage(tex, gpucore.ClearValue{})
//	rec.EndEvent()
//	r := rec.Finish()
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	label    string
	commands []Command
	depth    int
	finished bool
}

var _ gpucore.CommandBuffer = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder(label string) *Recorder {
	return &Recorder{
		label:    label,
		commands: make([]Command, 0, 64),
	}
}

// Finish returns an immutable Recording containing all recorded commands.
// After calling Finish, the Recorder should not be used again.
func (r *Recorder) Finish() *Recording {
	r.finished = true
	return &Recording{label: r.label, commands: r.commands}
}

// Finished reports whether Finish was called.
func (r *Recorder) Finished() bool {
	return r.finished
}

// Commands returns the commands recorded so far.
func (r *Recorder) Commands() []Command {
	return r.commands
}

func (r *Recorder) add(c Command) {
	r.commands = append(r.commands, c)
}

// Label implements gpucore.CommandBuffer.
func (r *Recorder) Label() string { return r.label }

// ImageBarrier implements gpucore.CommandBuffer.
func (r *Recorder) ImageBarrier(b gpucore.ImageBarrier) {
	r.add(ImageBarrierCommand{Barrier: b})
}

// BufferBarrier implements gpucore.CommandBuffer.
func (r *Recorder) BufferBarrier(b gpucore.BufferBarrier) {
	r.add(BufferBarrierCommand{Barrier: b})
}

// GlobalBarrier implements gpucore.CommandBuffer.
func (r *Recorder) GlobalBarrier(prev, next []gpucore.AccessType) {
	r.add(GlobalBarrierCommand{Prev: slices.Clone(prev), Next: slices.Clone(next)})
}

// BindPipeline implements gpucore.CommandBuffer.
func (r *Recorder) BindPipeline(point gpucore.BindPoint, pipeline gpucore.PipelineID) {
	r.add(BindPipelineCommand{Point: point, Pipeline: pipeline})
}

// BindDescriptorSet implements gpucore.CommandBuffer.
func (r *Recorder) BindDescriptorSet(point gpucore.BindPoint, pipeline gpucore.PipelineID, set uint32, bindings []gpucore.DescriptorBinding) {
	r.add(BindDescriptorSetCommand{Point: point, Pipeline: pipeline, Set: set, Bindings: slices.Clone(bindings)})
}

// BindRawDescriptorSet implements gpucore.CommandBuffer.
func (r *Recorder) BindRawDescriptorSet(point gpucore.BindPoint, pipeline gpucore.PipelineID, set uint32, ds gpucore.DescriptorSetID, dynamicOffsets []uint32) {
	r.add(BindRawDescriptorSetCommand{
		Point:          point,
		Pipeline:       pipeline,
		Set:            set,
		DescriptorSet:  ds,
		DynamicOffsets: slices.Clone(dynamicOffsets),
	})
}

// PushConstants implements gpucore.CommandBuffer.
func (r *Recorder) PushConstants(pipeline gpucore.PipelineID, stages gpucore.ShaderStage, offset uint32, data []byte) {
	r.add(PushConstantsCommand{Pipeline: pipeline, Stages: stages, Offset: offset, Data: slices.Clone(data)})
}

// Dispatch implements gpucore.CommandBuffer.
func (r *Recorder) Dispatch(x, y, z uint32) {
	r.add(DispatchCommand{X: x, Y: y, Z: z})
}

// DispatchIndirect implements gpucore.CommandBuffer.
func (r *Recorder) DispatchIndirect(args gpucore.Buffer, offset uint64) {
	r.add(DispatchIndirectCommand{Args: args, Offset: offset})
}

// BeginRenderPass implements gpucore.CommandBuffer.
func (r *Recorder) BeginRenderPass(desc gpucore.RenderPassDesc, extent [2]uint32, colors []gpucore.TextureView, depth *gpucore.TextureView) {
	cmd := BeginRenderPassCommand{Desc: desc, Extent: extent, Colors: slices.Clone(colors)}
	if depth != nil {
		d := *depth
		cmd.Depth = &d
	}
	r.add(cmd)
}

// EndRenderPass implements gpucore.CommandBuffer.
func (r *Recorder) EndRenderPass() { r.add(EndRenderPassCommand{}) }

// SetViewportScissor implements gpucore.CommandBuffer.
func (r *Recorder) SetViewportScissor(v gpucore.Viewport, s gpucore.Scissor) {
	r.add(SetViewportScissorCommand{Viewport: v, Scissor: s})
}

// DrawInstanced implements gpucore.CommandBuffer.
func (r *Recorder) DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.add(DrawInstancedCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// DrawIndexed implements gpucore.CommandBuffer.
func (r *Recorder) DrawIndexed(index gpucore.Buffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.add(DrawIndexedCommand{
		Index:         index,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		VertexOffset:  vertexOffset,
		FirstInstance: firstInstance,
	})
}

// DrawInstancedIndirect implements gpucore.CommandBuffer.
func (r *Recorder) DrawInstancedIndirect(args gpucore.Buffer, offset uint64, drawCount, stride uint32) {
	r.add(DrawInstancedIndirectCommand{Args: args, Offset: offset, DrawCount: drawCount, Stride: stride})
}

// TraceRays implements gpucore.CommandBuffer.
func (r *Recorder) TraceRays(pipeline gpucore.PipelineID, extent [3]uint32) {
	r.add(TraceRaysCommand{Pipeline: pipeline, Extent: extent})
}

// TraceRaysIndirect implements gpucore.CommandBuffer.
func (r *Recorder) TraceRaysIndirect(pipeline gpucore.PipelineID, argsAddress uint64) {
	r.add(TraceRaysIndirectCommand{Pipeline: pipeline, ArgsAddress: argsAddress})
}

// ClearImage implements gpucore.CommandBuffer.
func (r *Recorder) ClearImage(t gpucore.Texture, value gpucore.ClearValue) {
	r.add(ClearImageCommand{Texture: t, Value: value})
}

// ClearBuffer implements gpucore.CommandBuffer.
func (r *Recorder) ClearBuffer(b gpucore.Buffer, value uint32) {
	r.add(ClearBufferCommand{Buffer: b, Value: value})
}

// CopyImage implements gpucore.CommandBuffer.
func (r *Recorder) CopyImage(src, dst gpucore.Texture) {
	r.add(CopyImageCommand{Src: src, Dst: dst})
}

// CopyBuffer implements gpucore.CommandBuffer.
func (r *Recorder) CopyBuffer(src, dst gpucore.Buffer, size uint64) {
	r.add(CopyBufferCommand{Src: src, Dst: dst, Size: size})
}

// BeginEvent implements gpucore.CommandBuffer.
func (r *Recorder) BeginEvent(name string) {
	r.depth++
	r.add(BeginEventCommand{Name: name})
}

// EndEvent implements gpucore.CommandBuffer.
func (r *Recorder) EndEvent() {
	r.depth--
	r.add(EndEventCommand{})
}

// OpenEvents returns the number of BeginEvent calls without a matching EndEvent.
func (r *Recorder) OpenEvents() int {
	return r.depth
}

// Recording is an immutable container for recorded GPU commands.
// It can be replayed onto any gpucore.CommandBuffer.
type Recording struct {
	label    string
	commands []Command
}

// Label returns the label of the recorder that produced r.
func (r *Recording) Label() string {
	return r.label
}

// Commands returns the recorded commands.
// The returned slice should not be modified.
func (r *Recording) Commands() []Command {
	return r.commands
}

// Len returns the number of recorded commands.
func (r *Recording) Len() int {
	return len(r.commands)
}

// Barriers returns only the barrier commands, in order.
func (r *Recording) Barriers() []Command {
	return Barriers(r.commands)
}

// Barriers filters cmds down to image, buffer and global barriers.
func Barriers(cmds []Command) []Command {
	var out []Command
	for _, c := range cmds {
		switch c.Type() {
		case CmdImageBarrier, CmdBufferBarrier, CmdGlobalBarrier:
			out = append(out, c)
		}
	}
	return out
}

// Events returns the names of every BeginEvent in cmds, in order.
func Events(cmds []Command) []string {
	var out []string
	for _, c := range cmds {
		if e, ok := c.(BeginEventCommand); ok {
			out = append(out, e.Name)
		}
	}
	return out
}

// Trace renders cmds as one line per command. It is meant for logs,
// golden files and the demo CLI.
func Trace(cmds []Command) string {
	var sb strings.Builder
	indent := 0
	for _, c := range cmds {
		if c.Type() == CmdEndEvent && indent > 0 {
			indent--
		}
		sb.WriteString(strings.Repeat("  ", indent))
		sb.WriteString(c.Type().String())
		switch v := c.(type) {
		case ImageBarrierCommand:
			sb.WriteString(" " + v.String())
		case BufferBarrierCommand:
			sb.WriteString(" " + v.String())
		case BeginEventCommand:
			sb.WriteString(" " + v.Name)
			indent++
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Playback replays the recording onto dst.
// Commands are replayed in recorded order.
func (r *Recording) Playback(dst gpucore.CommandBuffer) {
	for _, cmd := range r.commands {
		switch c := cmd.(type) {
		case ImageBarrierCommand:
			dst.ImageBarrier(c.Barrier)
		case BufferBarrierCommand:
			dst.BufferBarrier(c.Barrier)
		case GlobalBarrierCommand:
			dst.GlobalBarrier(c.Prev, c.Next)
		case BindPipelineCommand:
			dst.BindPipeline(c.Point, c.Pipeline)
		case BindDescriptorSetCommand:
			dst.BindDescriptorSet(c.Point, c.Pipeline, c.Set, c.Bindings)
		case BindRawDescriptorSetCommand:
			dst.BindRawDescriptorSet(c.Point, c.Pipeline, c.Set, c.DescriptorSet, c.DynamicOffsets)
		case PushConstantsCommand:
			dst.PushConstants(c.Pipeline, c.Stages, c.Offset, c.Data)
		case DispatchCommand:
			dst.Dispatch(c.X, c.Y, c.Z)
		case DispatchIndirectCommand:
			dst.DispatchIndirect(c.Args, c.Offset)
		case BeginRenderPassCommand:
			dst.BeginRenderPass(c.Desc, c.Extent, c.Colors, c.Depth)
		case EndRenderPassCommand:
			dst.EndRenderPass()
		case SetViewportScissorCommand:
			dst.SetViewportScissor(c.Viewport, c.Scissor)
		case DrawInstancedCommand:
			dst.DrawInstanced(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
		case DrawIndexedCommand:
			dst.DrawIndexed(c.Index, c.IndexCount, c.InstanceCount, c.FirstIndex, c.VertexOffset, c.FirstInstance)
		case DrawInstancedIndirectCommand:
			dst.DrawInstancedIndirect(c.Args, c.Offset, c.DrawCount, c.Stride)
		case TraceRaysCommand:
			dst.TraceRays(c.Pipeline, c.Extent)
		case TraceRaysIndirectCommand:
			dst.TraceRaysIndirect(c.Pipeline, c.ArgsAddress)
		case ClearImageCommand:
			dst.ClearImage(c.Texture, c.Value)
		case ClearBufferCommand:
			dst.ClearBuffer(c.Buffer, c.Value)
		case CopyImageCommand:
			dst.CopyImage(c.Src, c.Dst)
		case CopyBufferCommand:
			dst.CopyBuffer(c.Src, c.Dst, c.Size)
		case BeginEventCommand:
			dst.BeginEvent(c.Name)
		case EndEventCommand:
			dst.EndEvent()
		}
	}
}
