// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/recording"
)

func TestDynamicConstants_Push(t *testing.T) {
	dev := recording.NewDevice()
	dc, err := NewDynamicConstants(dev, 1000, 0)
	require.NoError(t, err)

	// The frame size is rounded up to the alignment.
	assert.Equal(t, uint64(1024), dc.FrameSize())
	assert.Equal(t, uint64(2048), dc.Buffer().Desc.Size)
	assert.Equal(t, gpucore.MemoryCPUToGPU, dc.Buffer().Desc.Memory)
	assert.NotZero(t, dc.Buffer().Desc.Usage&gpucore.BufferUsageUniform)

	off0, err := dc.Push([]byte{1})
	require.NoError(t, err)
	off1, err := dc.Push(make([]byte, 300))
	require.NoError(t, err)
	off2, err := dc.Push([]byte{2})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), off0)
	assert.Equal(t, uint32(256), off1)
	assert.Equal(t, uint32(768), off2)
	assert.Equal(t, uint32(1024), dc.CurrentOffset())
}

func TestDynamicConstants_Overflow(t *testing.T) {
	dev := recording.NewDevice()
	dc, err := NewDynamicConstants(dev, 512, 0)
	require.NoError(t, err)

	_, err = dc.Push(make([]byte, 512))
	require.NoError(t, err)
	_, err = dc.Push([]byte{1})
	require.ErrorIs(t, err, ErrDynamicConstantsOverflow)
}

func TestDynamicConstants_AdvanceFrame(t *testing.T) {
	dev := recording.NewDevice()
	dc, err := NewDynamicConstants(dev, 512, 0)
	require.NoError(t, err)

	_, err = dc.Push([]byte{1})
	require.NoError(t, err)

	dc.AdvanceFrame()
	off, err := dc.Push([]byte{2})
	require.NoError(t, err)
	assert.Equal(t, uint32(512), off, "second frame uses the other half")

	dc.AdvanceFrame()
	off, err = dc.Push([]byte{3})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), off, "the ring wraps after two frames")

	data, err := dev.ReadBuffer(dc.Buffer())
	require.NoError(t, err)
	assert.Equal(t, byte(3), data[0])
	assert.Equal(t, byte(2), data[512])
}

func TestPushValue(t *testing.T) {
	dev := recording.NewDevice()
	dc, err := NewDynamicConstants(dev, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(DynamicConstantsSize), dc.FrameSize())

	type globals struct {
		Time  float32
		Frame uint32
	}
	off, err := PushValue(dc, globals{Time: 1.5, Frame: 42})
	require.NoError(t, err)

	data, err := dev.ReadBuffer(dc.Buffer())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(data[off+4:]))

	_, err = PushValue(dc, map[string]int{})
	assert.Error(t, err, "variable-size values cannot be encoded")
}
