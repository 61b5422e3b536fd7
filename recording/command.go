// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// CommandType identifies the type of a command.
// Each command type corresponds to one gpucore.CommandBuffer method.
type CommandType uint8

const (
	// Synchronization commands
	CmdImageBarrier  CommandType = iota // Image layout/access transition
	CmdBufferBarrier                    // Buffer access transition
	CmdGlobalBarrier                    // Memory barrier without a resource

	// Binding commands
	CmdBindPipeline         // Bind a pipeline
	CmdBindDescriptorSet    // Bind a transient descriptor set
	CmdBindRawDescriptorSet // Bind a device-created descriptor set
	CmdPushConstants        // Upload push constants

	// Compute commands
	CmdDispatch         // Compute dispatch
	CmdDispatchIndirect // Compute dispatch with GPU-sourced arguments

	// Raster commands
	CmdBeginRenderPass       // Begin a render pass
	CmdEndRenderPass         // End the current render pass
	CmdSetViewportScissor    // Set viewport and scissor
	CmdDrawInstanced         // Non-indexed draw
	CmdDrawIndexed           // Indexed draw
	CmdDrawInstancedIndirect // Draw with GPU-sourced arguments

	// Ray tracing commands
	CmdTraceRays         // Ray dispatch
	CmdTraceRaysIndirect // Ray dispatch with GPU-sourced arguments

	// Transfer commands
	CmdClearImage  // Clear an image
	CmdClearBuffer // Fill a buffer with a 32-bit value
	CmdCopyImage   // Image to image copy
	CmdCopyBuffer  // Buffer to buffer copy

	// Debug commands
	CmdBeginEvent // Open a debug marker region
	CmdEndEvent   // Close a debug marker region
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdImageBarrier:          "ImageBarrier",
	CmdBufferBarrier:         "BufferBarrier",
	CmdGlobalBarrier:         "GlobalBarrier",
	CmdBindPipeline:          "BindPipeline",
	CmdBindDescriptorSet:     "BindDescriptorSet",
	CmdBindRawDescriptorSet:  "BindRawDescriptorSet",
	CmdPushConstants:         "PushConstants",
	CmdDispatch:              "Dispatch",
	CmdDispatchIndirect:      "DispatchIndirect",
	CmdBeginRenderPass:       "BeginRenderPass",
	CmdEndRenderPass:         "EndRenderPass",
	CmdSetViewportScissor:    "SetViewportScissor",
	CmdDrawInstanced:         "DrawInstanced",
	CmdDrawIndexed:           "DrawIndexed",
	CmdDrawInstancedIndirect: "DrawInstancedIndirect",
	CmdTraceRays:             "TraceRays",
	CmdTraceRaysIndirect:     "TraceRaysIndirect",
	CmdClearImage:            "ClearImage",
	CmdClearBuffer:           "ClearBuffer",
	CmdCopyImage:             "CopyImage",
	CmdCopyBuffer:            "CopyBuffer",
	CmdBeginEvent:            "BeginEvent",
	CmdEndEvent:              "EndEvent",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
// Commands are plain values so tests can compare whole command streams.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// --------------------------------------------------------------------------
// Synchronization Commands
// --------------------------------------------------------------------------

// ImageBarrierCommand records gpucore.CommandBuffer.ImageBarrier.
type ImageBarrierCommand struct {
	Barrier gpucore.ImageBarrier
}

// Type implements Command.
func (ImageBarrierCommand) Type() CommandType { return CmdImageBarrier }

func (c ImageBarrierCommand) String() string {
	return fmt.Sprintf("image#%d %v->%v (%v)", c.Barrier.Texture.ID, c.Barrier.Prev, c.Barrier.Next, c.Barrier.Aspect)
}

// BufferBarrierCommand records gpucore.CommandBuffer.BufferBarrier.
type BufferBarrierCommand struct {
	Barrier gpucore.BufferBarrier
}

// Type implements Command.
func (BufferBarrierCommand) Type() CommandType { return CmdBufferBarrier }

func (c BufferBarrierCommand) String() string {
	return fmt.Sprintf("buffer#%d %v->%v [%d+%d]", c.Barrier.Buffer.ID, c.Barrier.Prev, c.Barrier.Next,
		c.Barrier.Offset, c.Barrier.Size)
}

// GlobalBarrierCommand records gpucore.CommandBuffer.GlobalBarrier.
type GlobalBarrierCommand struct {
	Prev []gpucore.AccessType
	Next []gpucore.AccessType
}

// Type implements Command.
func (GlobalBarrierCommand) Type() CommandType { return CmdGlobalBarrier }

// --------------------------------------------------------------------------
// Binding Commands
// --------------------------------------------------------------------------

// BindPipelineCommand records gpucore.CommandBuffer.BindPipeline.
type BindPipelineCommand struct {
	Point    gpucore.BindPoint
	Pipeline gpucore.PipelineID
}

// Type implements Command.
func (BindPipelineCommand) Type() CommandType { return CmdBindPipeline }

// BindDescriptorSetCommand records gpucore.CommandBuffer.BindDescriptorSet.
type BindDescriptorSetCommand struct {
	Point    gpucore.BindPoint
	Pipeline gpucore.PipelineID
	Set      uint32
	Bindings []gpucore.DescriptorBinding
}

// Type implements Command.
func (BindDescriptorSetCommand) Type() CommandType { return CmdBindDescriptorSet }

// BindRawDescriptorSetCommand records gpucore.CommandBuffer.BindRawDescriptorSet.
type BindRawDescriptorSetCommand struct {
	Point          gpucore.BindPoint
	Pipeline       gpucore.PipelineID
	Set            uint32
	DescriptorSet  gpucore.DescriptorSetID
	DynamicOffsets []uint32
}

// Type implements Command.
func (BindRawDescriptorSetCommand) Type() CommandType { return CmdBindRawDescriptorSet }

// PushConstantsCommand records gpucore.CommandBuffer.PushConstants.
type PushConstantsCommand struct {
	Pipeline gpucore.PipelineID
	Stages   gpucore.ShaderStage
	Offset   uint32
	Data     []byte
}

// Type implements Command.
func (PushConstantsCommand) Type() CommandType { return CmdPushConstants }

// --------------------------------------------------------------------------
// Compute Commands
// --------------------------------------------------------------------------

// DispatchCommand records gpucore.CommandBuffer.Dispatch.
type DispatchCommand struct {
	X, Y, Z uint32
}

// Type implements Command.
func (DispatchCommand) Type() CommandType { return CmdDispatch }

// DispatchIndirectCommand records gpucore.CommandBuffer.DispatchIndirect.
type DispatchIndirectCommand struct {
	Args   gpucore.Buffer
	Offset uint64
}

// Type implements Command.
func (DispatchIndirectCommand) Type() CommandType { return CmdDispatchIndirect }

// --------------------------------------------------------------------------
// Raster Commands
// --------------------------------------------------------------------------

// BeginRenderPassCommand records gpucore.CommandBuffer.BeginRenderPass.
type BeginRenderPassCommand struct {
	Desc   gpucore.RenderPassDesc
	Extent [2]uint32
	Colors []gpucore.TextureView
	Depth  *gpucore.TextureView
}

// Type implements Command.
func (BeginRenderPassCommand) Type() CommandType { return CmdBeginRenderPass }

// EndRenderPassCommand records gpucore.CommandBuffer.EndRenderPass.
type EndRenderPassCommand struct{}

// Type implements Command.
func (EndRenderPassCommand) Type() CommandType { return CmdEndRenderPass }

// SetViewportScissorCommand records gpucore.CommandBuffer.SetViewportScissor.
type SetViewportScissorCommand struct {
	Viewport gpucore.Viewport
	Scissor  gpucore.Scissor
}

// Type implements Command.
func (SetViewportScissorCommand) Type() CommandType { return CmdSetViewportScissor }

// DrawInstancedCommand records gpucore.CommandBuffer.DrawInstanced.
type DrawInstancedCommand struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

// Type implements Command.
func (DrawInstancedCommand) Type() CommandType { return CmdDrawInstanced }

// DrawIndexedCommand records gpucore.CommandBuffer.DrawIndexed.
type DrawIndexedCommand struct {
	Index         gpucore.Buffer
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// DrawInstancedIndirectCommand records gpucore.CommandBuffer.DrawInstancedIndirect.
type DrawInstancedIndirectCommand struct {
	Args      gpucore.Buffer
	Offset    uint64
	DrawCount uint32
	Stride    uint32
}

// Type implements Command.
func (DrawInstancedIndirectCommand) Type() CommandType { return CmdDrawInstancedIndirect }

// --------------------------------------------------------------------------
// Ray Tracing Commands
// --------------------------------------------------------------------------

// TraceRaysCommand records gpucore.CommandBuffer.TraceRays.
type TraceRaysCommand struct {
	Pipeline gpucore.PipelineID
	Extent   [3]uint32
}

// Type implements Command.
func (TraceRaysCommand) Type() CommandType { return CmdTraceRays }

// TraceRaysIndirectCommand records gpucore.CommandBuffer.TraceRaysIndirect.
type TraceRaysIndirectCommand struct {
	Pipeline    gpucore.PipelineID
	ArgsAddress uint64
}

// Type implements Command.
func (TraceRaysIndirectCommand) Type() CommandType { return CmdTraceRaysIndirect }

// --------------------------------------------------------------------------
// Transfer Commands
// --------------------------------------------------------------------------

// ClearImageCommand records gpucore.CommandBuffer.ClearImage.
type ClearImageCommand struct {
	Texture gpucore.Texture
	Value   gpucore.ClearValue
}

// Type implements Command.
func (ClearImageCommand) Type() CommandType { return CmdClearImage }

// ClearBufferCommand records gpucore.CommandBuffer.ClearBuffer.
type ClearBufferCommand struct {
	Buffer gpucore.Buffer
	Value  uint32
}

// Type implements Command.
func (ClearBufferCommand) Type() CommandType { return CmdClearBuffer }

// CopyImageCommand records gpucore.CommandBuffer.CopyImage.
type CopyImageCommand struct {
	Src, Dst gpucore.Texture
}

// Type implements Command.
func (CopyImageCommand) Type() CommandType { return CmdCopyImage }

// CopyBufferCommand records gpucore.CommandBuffer.CopyBuffer.
type CopyBufferCommand struct {
	Src, Dst gpucore.Buffer
	Size     uint64
}

// Type implements Command.
func (CopyBufferCommand) Type() CommandType { return CmdCopyBuffer }

// --------------------------------------------------------------------------
// Debug Commands
// --------------------------------------------------------------------------

// BeginEventCommand records gpucore.CommandBuffer.BeginEvent.
type BeginEventCommand struct {
	Name string
}

// Type implements Command.
func (BeginEventCommand) Type() CommandType { return CmdBeginEvent }

// EndEventCommand records gpucore.CommandBuffer.EndEvent.
type EndEventCommand struct{}

// Type implements Command.
func (EndEventCommand) Type() CommandType { return CmdEndEvent }
