// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/framegraph/gpucore"
)

func TestCommandTypeString(t *testing.T) {
	tests := []struct {
		cmd  CommandType
		want string
	}{
		{CmdImageBarrier, "ImageBarrier"},
		{CmdDispatch, "Dispatch"},
		{CmdTraceRaysIndirect, "TraceRaysIndirect"},
		{CmdEndEvent, "EndEvent"},
		{CommandType(255), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("CommandType(%d).String() = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func recordSample(cb gpucore.CommandBuffer) {
	tex := gpucore.Texture{ID: 1}
	buf := gpucore.Buffer{ID: 2, Desc: gpucore.NewBufferDesc(64, gpucore.BufferUsageStorage)}

	cb.BeginEvent("sample")
	cb.ImageBarrier(gpucore.ImageBarrier{Texture: tex, Prev: gpucore.AccessNothing, Next: gpucore.AccessComputeShaderWrite, Aspect: gpucore.AspectColor})
	cb.BufferBarrier(gpucore.BufferBarrier{Buffer: buf, Prev: gpucore.AccessNothing, Next: gpucore.AccessTransferWrite, Size: 64})
	cb.GlobalBarrier([]gpucore.AccessType{gpucore.AccessGeneral}, []gpucore.AccessType{gpucore.AccessGeneral})
	cb.BindPipeline(gpucore.BindPointCompute, 7)
	cb.BindDescriptorSet(gpucore.BindPointCompute, 7, 0, []gpucore.DescriptorBinding{{Binding: 0, Kind: gpucore.DescriptorKindBuffer, Buffer: buf}})
	cb.BindRawDescriptorSet(gpucore.BindPointCompute, 7, 2, 3, []uint32{0, 256})
	cb.PushConstants(7, gpucore.ShaderStageCompute, 0, []byte{1, 2, 3, 4})
	cb.Dispatch(4, 4, 1)
	cb.DispatchIndirect(buf, 16)
	cb.BeginRenderPass(gpucore.RenderPassDesc{Label: "rp"}, [2]uint32{8, 8}, []gpucore.TextureView{{Texture: tex}}, &gpucore.TextureView{Texture: tex})
	cb.SetViewportScissor(gpucore.Viewport{Width: 8, Height: -8}, gpucore.Scissor{Width: 8, Height: 8})
	cb.DrawInstanced(3, 1, 0, 0)
	cb.DrawIndexed(buf, 6, 1, 0, 0, 0)
	cb.DrawInstancedIndirect(buf, 0, 1, 16)
	cb.EndRenderPass()
	cb.TraceRays(9, [3]uint32{8, 8, 1})
	cb.TraceRaysIndirect(9, 0x1000)
	cb.ClearImage(tex, gpucore.ClearValue{Depth: 1})
	cb.ClearBuffer(buf, 0)
	cb.CopyImage(tex, tex)
	cb.CopyBuffer(buf, buf, 64)
	cb.EndEvent()
}

func TestPlaybackReproducesStream(t *testing.T) {
	src := NewRecorder("src")
	recordSample(src)
	if got := src.OpenEvents(); got != 0 {
		t.Fatalf("OpenEvents() = %d, want 0", got)
	}
	r := src.Finish()

	dst := NewRecorder("dst")
	r.Playback(dst)

	if diff := cmp.Diff(r.Commands(), dst.Commands()); diff != "" {
		t.Errorf("Playback mismatch (-want +got):\n%s", diff)
	}
	if got := r.Len(); got != 23 {
		t.Errorf("Len() = %d, want 23", got)
	}
}

func TestRecorderClonesSlices(t *testing.T) {
	rec := NewRecorder("clone")
	offsets := []uint32{1, 2}
	rec.BindRawDescriptorSet(gpucore.BindPointCompute, 1, 2, 3, offsets)
	offsets[0] = 99

	got := rec.Commands()[0].(BindRawDescriptorSetCommand).DynamicOffsets
	if got[0] != 1 {
		t.Errorf("DynamicOffsets[0] = %d, want 1 (recorder must copy its inputs)", got[0])
	}
}

func TestBarriersAndEvents(t *testing.T) {
	rec := NewRecorder("filter")
	recordSample(rec)
	cmds := rec.Commands()

	barriers := Barriers(cmds)
	if len(barriers) != 3 {
		t.Fatalf("Barriers() returned %d commands, want 3", len(barriers))
	}
	if got := Events(cmds); len(got) != 1 || got[0] != "sample" {
		t.Errorf("Events() = %v, want [sample]", got)
	}
}

func TestTraceIndentsEvents(t *testing.T) {
	rec := NewRecorder("trace")
	rec.BeginEvent("outer")
	rec.Dispatch(1, 1, 1)
	rec.EndEvent()

	want := "BeginEvent outer\n  Dispatch\nEndEvent\n"
	if got := Trace(rec.Commands()); got != want {
		t.Errorf("Trace() = %q, want %q", got, want)
	}

	rec2 := NewRecorder("barrier")
	rec2.ImageBarrier(gpucore.ImageBarrier{Texture: gpucore.Texture{ID: 5}, Prev: gpucore.AccessNothing, Next: gpucore.AccessTransferWrite, Aspect: gpucore.AspectColor})
	if got := Trace(rec2.Commands()); !strings.Contains(got, "image#5 Nothing->TransferWrite (color)") {
		t.Errorf("Trace() = %q, missing barrier description", got)
	}
}
