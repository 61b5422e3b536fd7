// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	gpuhal "github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/recording"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (gpuhal.Device, gpuhal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	raw, queue := createNoopDevice(t)
	d, err := NewDevice(raw, queue, opts...)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	// Registered after createNoopDevice so it runs first.
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return d
}

var (
	testColorDesc = gpucore.NewTextureDesc2D(gputypes.TextureFormatRGBA8Unorm, 16, 16).
			WithUsage(gpucore.TextureUsageStorage | gpucore.TextureUsageColorAttachment | gpucore.TextureUsageTransferSrc)
	testDepthDesc = gpucore.NewTextureDesc2D(gputypes.TextureFormatDepth24PlusStencil8, 16, 16).
			WithUsage(gpucore.TextureUsageDepthStencilAttachment)
	testBufferDesc = gpucore.NewBufferDesc(256, gpucore.BufferUsageStorage)
)

func TestNewDevice_NilDevice(t *testing.T) {
	if _, err := NewDevice(nil, nil); !errors.Is(err, ErrNoHALProvider) {
		t.Errorf("NewDevice(nil, nil) error = %v, want ErrNoHALProvider", err)
	}
}

func TestNewDeviceFromProvider_NoHAL(t *testing.T) {
	if _, err := NewDeviceFromProvider(nil); !errors.Is(err, ErrNoHALProvider) {
		t.Errorf("error = %v, want ErrNoHALProvider", err)
	}
}

func TestDeviceCreateDestroy(t *testing.T) {
	d := newTestDevice(t)

	tex, err := d.CreateTexture(testColorDesc, nil, "color")
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	buf, err := d.CreateBuffer(testBufferDesc, "data", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if uint64(tex.ID) == uint64(buf.ID) {
		t.Error("texture and buffer share an ID")
	}
	if got := d.Live(); got != 2 {
		t.Errorf("Live() = %d, want 2", got)
	}

	d.DestroyTexture(tex)
	d.DestroyBuffer(buf)
	d.DestroyBuffer(buf) // unknown buffers are ignored
	if got := d.Live(); got != 0 {
		t.Errorf("Live() after destroy = %d, want 0", got)
	}
}

func TestDeviceCreateErrors(t *testing.T) {
	d := newTestDevice(t)

	if _, err := d.CreateTexture(testColorDesc, []byte{0}, "init"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("texture with initial data: error = %v, want ErrUnsupported", err)
	}
	if _, err := d.CreateBuffer(gpucore.NewBufferDesc(4, 0), "small", make([]byte, 8)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("oversized initial data: error = %v, want ErrOutOfRange", err)
	}
	if _, err := d.CreateAcceleration(gpucore.AccelerationDesc{Size: 64}, "tlas"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateAcceleration: error = %v, want ErrUnsupported", err)
	}
	if got := d.BufferDeviceAddress(gpucore.Buffer{}); got != 0 {
		t.Errorf("BufferDeviceAddress = %d, want 0", got)
	}
}

func TestDeviceWriteBuffer(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.CreateBuffer(gpucore.NewBufferDescCPUToGPU(16, gpucore.BufferUsageUniform), "constants", nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		buf     gpucore.Buffer
		offset  uint64
		size    int
		wantErr error
	}{
		{"fits", buf, 8, 8, nil},
		{"past end", buf, 12, 8, ErrOutOfRange},
		{"unknown buffer", gpucore.Buffer{ID: 999}, 0, 4, ErrUnknownResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.WriteBuffer(tt.buf, tt.offset, make([]byte, tt.size))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteBuffer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeviceSubmitRetiresOldest(t *testing.T) {
	d := newTestDevice(t, WithFramesInFlight(1))
	ctx := context.Background()

	for range 3 {
		cb, err := d.BeginCommandBuffer("frame")
		if err != nil {
			t.Fatal(err)
		}
		if err := d.Submit(ctx, cb); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if got := d.InFlight(); got > 1 {
			t.Fatalf("InFlight() = %d, want at most 1", got)
		}
	}
	if err := d.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if got := d.InFlight(); got != 0 {
		t.Errorf("InFlight() after WaitIdle = %d, want 0", got)
	}
}

func TestDeviceSubmitRejectsForeignCommandBuffer(t *testing.T) {
	d := newTestDevice(t)
	cb, err := recording.NewDevice().BeginCommandBuffer("other")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Submit(context.Background(), cb); !errors.Is(err, ErrForeignDevice) {
		t.Errorf("Submit() error = %v, want ErrForeignDevice", err)
	}
}

func TestDeviceSubmitCanceled(t *testing.T) {
	d := newTestDevice(t)
	cb, err := d.BeginCommandBuffer("late")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Submit(ctx, cb); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
	if got := d.InFlight(); got != 0 {
		t.Errorf("InFlight() = %d, want 0", got)
	}
}

func TestCommandBufferUnsupportedCommands(t *testing.T) {
	tests := []struct {
		name   string
		record func(cb gpucore.CommandBuffer)
	}{
		{"push constants", func(cb gpucore.CommandBuffer) {
			cb.PushConstants(1, gpucore.ShaderStageCompute, 0, []byte{0})
		}},
		{"indirect dispatch", func(cb gpucore.CommandBuffer) { cb.DispatchIndirect(gpucore.Buffer{}, 0) }},
		{"indexed draw", func(cb gpucore.CommandBuffer) { cb.DrawIndexed(gpucore.Buffer{}, 3, 1, 0, 0, 0) }},
		{"trace rays", func(cb gpucore.CommandBuffer) { cb.TraceRays(1, [3]uint32{1, 1, 1}) }},
		{"copy image", func(cb gpucore.CommandBuffer) { cb.CopyImage(gpucore.Texture{}, gpucore.Texture{}) }},
		{"graphics pipeline", func(cb gpucore.CommandBuffer) { cb.BindPipeline(gpucore.BindPointGraphics, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			cb, err := d.BeginCommandBuffer(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			tt.record(cb)
			if err := d.Submit(context.Background(), cb); !errors.Is(err, ErrUnsupported) {
				t.Errorf("Submit() error = %v, want ErrUnsupported", err)
			}
			if got := d.InFlight(); got != 0 {
				t.Errorf("InFlight() = %d, want 0 after a failed submit", got)
			}
		})
	}
}

func TestCommandBufferTransfersAndBarriers(t *testing.T) {
	d := newTestDevice(t)
	color, err := d.CreateTexture(testColorDesc, nil, "color")
	if err != nil {
		t.Fatal(err)
	}
	depth, err := d.CreateTexture(testDepthDesc, nil, "depth")
	if err != nil {
		t.Fatal(err)
	}
	src, err := d.CreateBuffer(testBufferDesc, "src", nil)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := d.CreateBuffer(testBufferDesc, "dst", nil)
	if err != nil {
		t.Fatal(err)
	}

	cb, err := d.BeginCommandBuffer("transfers")
	if err != nil {
		t.Fatal(err)
	}
	cb.BeginEvent("clears")
	cb.ImageBarrier(gpucore.ImageBarrier{Texture: color, Prev: gpucore.AccessNothing, Next: gpucore.AccessColorAttachmentWrite, Discard: true})
	cb.ClearImage(color, gpucore.ClearValue{Color: [4]float32{1, 0, 0, 1}})
	cb.ClearImage(depth, gpucore.ClearValue{Depth: 1})
	cb.ClearBuffer(src, 0xdeadbeef)
	cb.BufferBarrier(gpucore.BufferBarrier{Buffer: src, Prev: gpucore.AccessTransferWrite, Next: gpucore.AccessTransferRead})
	cb.CopyBuffer(src, dst, testBufferDesc.Size)
	cb.GlobalBarrier([]gpucore.AccessType{gpucore.AccessTransferWrite}, []gpucore.AccessType{gpucore.AccessComputeShaderReadOther})
	cb.EndEvent()

	cb.BeginRenderPass(gpucore.RenderPassDesc{
		Label:            "draw",
		ColorAttachments: []gpucore.AttachmentDesc{{Format: color.Desc.Format, Load: gputypes.LoadOpClear}},
	}, color.Desc.Extent2D(), []gpucore.TextureView{{Texture: color}}, &gpucore.TextureView{Texture: depth})
	cb.SetViewportScissor(gpucore.Viewport{Width: 16, Height: 16, MaxDepth: 1}, gpucore.Scissor{Width: 16, Height: 16})
	cb.DrawInstanced(3, 1, 0, 0)
	cb.EndRenderPass()

	if err := d.Submit(context.Background(), cb); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.WaitIdle(); err != nil {
		t.Fatal(err)
	}
}

func TestCommandBufferUnknownResource(t *testing.T) {
	d := newTestDevice(t)
	cb, err := d.BeginCommandBuffer("stale")
	if err != nil {
		t.Fatal(err)
	}
	cb.ImageBarrier(gpucore.ImageBarrier{Texture: gpucore.Texture{ID: 42}, Next: gpucore.AccessTransferWrite})
	if err := d.Submit(context.Background(), cb); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Submit() error = %v, want ErrUnknownResource", err)
	}
}

func TestDeviceDescriptorSet(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.CreateBuffer(testBufferDesc, "frame constants", nil)
	if err != nil {
		t.Fatal(err)
	}
	layout := gpucore.DescriptorSetLayout{Bindings: []gpucore.DescriptorBindingLayout{
		{Binding: 0, Type: gpucore.DescriptorUniformBufferDynamic, Count: 1, Stages: gpucore.ShaderStageCompute},
		{Binding: 1, Type: gpucore.DescriptorStorageBuffer, Count: 1, Stages: gpucore.ShaderStageCompute},
	}}
	ds, err := d.CreateDescriptorSet(layout, []gpucore.DescriptorBinding{
		{Binding: 0, Kind: gpucore.DescriptorKindDynamicUniform, Buffer: buf},
		{Binding: 1, Kind: gpucore.DescriptorKindBuffer, Buffer: buf},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorSet: %v", err)
	}
	if ds == gpucore.InvalidID {
		t.Error("CreateDescriptorSet returned InvalidID")
	}

	_, err = d.CreateDescriptorSet(gpucore.DescriptorSetLayout{Bindings: []gpucore.DescriptorBindingLayout{
		{Binding: 0, Type: gpucore.DescriptorSampledImage, Count: 1},
	}}, nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("image layout: error = %v, want ErrUnsupported", err)
	}
}
