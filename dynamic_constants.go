// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// Dynamic constants ring geometry.
const (
	// DynamicConstantsSize is the default number of bytes available to one frame.
	DynamicConstantsSize = 16 << 20
	// DynamicConstantsAlignment is the offset alignment of every push.
	DynamicConstantsAlignment = 256
	// DynamicConstantsFrames is the number of frames in flight the ring covers.
	DynamicConstantsFrames = 2
)

// DynamicConstants is a host-visible ring buffer for small per-pass
// constant blocks. Each frame in flight owns one half of the buffer; within
// a frame, pushes are laid out back to back at DynamicConstantsAlignment.
//
// Offsets returned by Push are absolute offsets into Buffer and are used as
// dynamic descriptor offsets.
type DynamicConstants struct {
	device      gpucore.Device
	buffer      gpucore.Buffer
	frameSize   uint64
	parity      uint64
	frameOffset uint64
}

// NewDynamicConstants creates the ring buffer on dev. A zero frameSize
// selects DynamicConstantsSize. frameSize is rounded up to the alignment.
func NewDynamicConstants(dev gpucore.Device, frameSize uint64, usage gpucore.BufferUsage) (*DynamicConstants, error) {
	if frameSize == 0 {
		frameSize = DynamicConstantsSize
	}
	frameSize = alignUp(frameSize, DynamicConstantsAlignment)
	desc := gpucore.NewBufferDescCPUToGPU(frameSize*DynamicConstantsFrames,
		usage|gpucore.BufferUsageUniform|gpucore.BufferUsageStorage)
	buf, err := dev.CreateBuffer(desc, "dynamic constants buffer", nil)
	if err != nil {
		return nil, fmt.Errorf("framegraph: dynamic constants: %w", err)
	}
	return &DynamicConstants{device: dev, buffer: buf, frameSize: frameSize}, nil
}

// Buffer returns the backing buffer.
func (d *DynamicConstants) Buffer() gpucore.Buffer { return d.buffer }

// FrameSize returns the bytes available to one frame.
func (d *DynamicConstants) FrameSize() uint64 { return d.frameSize }

// CurrentOffset returns the absolute offset the next push will use.
func (d *DynamicConstants) CurrentOffset() uint32 {
	return uint32(d.parity*d.frameSize + d.frameOffset) // #nosec G115 -- ring is far below 4 GiB
}

// Push uploads data and returns its absolute offset.
func (d *DynamicConstants) Push(data []byte) (uint32, error) {
	size := uint64(len(data))
	if d.frameOffset+size > d.frameSize {
		return 0, fmt.Errorf("%w: %d bytes at offset %d, frame holds %d",
			ErrDynamicConstantsOverflow, size, d.frameOffset, d.frameSize)
	}
	offset := d.CurrentOffset()
	if size > 0 {
		if err := d.device.WriteBuffer(d.buffer, uint64(offset), data); err != nil {
			return 0, fmt.Errorf("framegraph: dynamic constants: %w", err)
		}
	}
	d.frameOffset += alignUp(size, DynamicConstantsAlignment)
	return offset, nil
}

// AdvanceFrame moves to the other half of the ring and rewinds it.
func (d *DynamicConstants) AdvanceFrame() {
	d.parity = (d.parity + 1) % DynamicConstantsFrames
	d.frameOffset = 0
}

// PushValue encodes v in little-endian layout and pushes it. v must be a
// fixed-size value or a slice of fixed-size values.
func PushValue[T any](d *DynamicConstants, v T) (uint32, error) {
	data, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		return 0, fmt.Errorf("framegraph: encode constants: %w", err)
	}
	return d.Push(data)
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}
