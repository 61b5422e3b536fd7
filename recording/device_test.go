// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/gputypes"
)

func TestDeviceBufferLifecycle(t *testing.T) {
	dev := NewDevice()

	buf, err := dev.CreateBuffer(gpucore.NewBufferDescCPUToGPU(8, gpucore.BufferUsageUniform), "consts", []byte{1, 2})
	require.NoError(t, err)

	require.NoError(t, dev.WriteBuffer(buf, 4, []byte{9, 9, 9, 9}))
	data, err := dev.ReadBuffer(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 0, 0, 9, 9, 9, 9}, data)

	err = dev.WriteBuffer(buf, 6, []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrOutOfRange)

	name, ok := dev.BufferName(buf)
	require.True(t, ok)
	require.Equal(t, "consts", name)

	dev.DestroyBuffer(buf)
	require.ErrorIs(t, dev.WriteBuffer(buf, 0, []byte{1}), ErrUnknownResource)

	st := dev.Stats()
	require.Equal(t, Stats{Live: 0, Created: 1, Destroyed: 1}, st)
}

func TestDeviceCreateBufferRejectsOversizedInit(t *testing.T) {
	dev := NewDevice()
	_, err := dev.CreateBuffer(gpucore.NewBufferDesc(2, gpucore.BufferUsageStorage), "small", []byte{1, 2, 3})
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("CreateBuffer() error = %v, want %v", err, ErrOutOfRange)
	}
}

func TestDeviceUniqueIDs(t *testing.T) {
	dev := NewDevice()
	tex, _ := dev.CreateTexture(gpucore.NewTextureDesc2D(gputypes.TextureFormatRGBA8Unorm, 4, 4), nil, "t")
	buf, _ := dev.CreateBuffer(gpucore.NewBufferDesc(4, gpucore.BufferUsageStorage), "b", nil)
	acc, _ := dev.CreateAcceleration(gpucore.AccelerationDesc{Level: gpucore.AccelerationTop}, "tlas")

	ids := map[uint64]bool{uint64(tex.ID): true, uint64(buf.ID): true, uint64(acc.ID): true}
	if len(ids) != 3 {
		t.Errorf("object IDs collide: %v %v %v", tex.ID, buf.ID, acc.ID)
	}
}

func TestDeviceSubmit(t *testing.T) {
	dev := NewDevice()
	ctx := context.Background()

	cb, err := dev.BeginCommandBuffer("main")
	require.NoError(t, err)
	cb.Dispatch(1, 1, 1)
	require.NoError(t, dev.Submit(ctx, cb))
	require.ErrorIs(t, dev.Submit(ctx, cb), ErrAlreadySubmitted)

	subs := dev.Submitted()
	require.Len(t, subs, 1)
	require.Equal(t, "main", subs[0].Label())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	cb2, _ := dev.BeginCommandBuffer("late")
	require.ErrorIs(t, dev.Submit(cancelled, cb2), context.Canceled)

	dev.ResetSubmitted()
	require.Empty(t, dev.Submitted())
}

func TestDeviceAddresses(t *testing.T) {
	buf := gpucore.Buffer{ID: 3}
	if got := NewDevice().BufferDeviceAddress(buf); got != 0 {
		t.Errorf("BufferDeviceAddress() = %#x, want 0 without device addresses", got)
	}
	if got := NewDevice(WithBufferDeviceAddress()).BufferDeviceAddress(buf); got == 0 {
		t.Error("BufferDeviceAddress() = 0 with device addresses enabled")
	}
}

func TestSwapchainRoundRobin(t *testing.T) {
	dev := NewDevice()
	sc, err := NewSwapchain(dev, 16, 8, 2)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := sc.AcquireNextImage(ctx)
	require.NoError(t, err)
	b, _ := sc.AcquireNextImage(ctx)
	c, _ := sc.AcquireNextImage(ctx)

	require.Equal(t, uint32(0), a.Index)
	require.Equal(t, uint32(1), b.Index)
	require.Equal(t, a.Texture, c.Texture)
	require.Equal(t, [2]uint32{16, 8}, sc.Extent())

	cb, _ := dev.BeginCommandBuffer("present")
	require.NoError(t, sc.PresentImage(ctx, a, cb))
	pres := sc.Presented()
	require.Len(t, pres, 1)
	require.Equal(t, "present", pres[0].Recording.Label())

	sc.Destroy()
	require.Equal(t, 0, dev.Stats().Live)
}

func TestRegisteredBackend(t *testing.T) {
	inst, err := backend.Open("recording", backend.Options{Width: 32, Height: 32})
	require.NoError(t, err)
	defer inst.Close()

	require.IsType(t, &Device{}, inst.Device)
	require.IsType(t, &PipelineCache{}, inst.PipelineCache)
	require.Equal(t, [2]uint32{32, 32}, inst.Swapchain.Extent())
}
