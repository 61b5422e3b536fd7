// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/gpucore"
)

// Device errors.
var (
	// ErrUnknownResource is returned when an operation references an object
	// the device never created or already destroyed.
	ErrUnknownResource = errors.New("recording: unknown resource")

	// ErrOutOfRange is returned by WriteBuffer when the write exceeds the buffer.
	ErrOutOfRange = errors.New("recording: write out of range")

	// ErrForeignCommandBuffer is returned when Submit receives a command
	// buffer that was not produced by this package.
	ErrForeignCommandBuffer = errors.New("recording: command buffer was not created by a recording device")

	// ErrAlreadySubmitted is returned when a command buffer is submitted twice.
	ErrAlreadySubmitted = errors.New("recording: command buffer already submitted")
)

// Device is a gpucore.Device that allocates nothing on a GPU. Every object
// is an entry in a ResourcePool and every submitted command buffer is kept
// as a Recording, in submission order.
//
// Device is safe for concurrent use.
type Device struct {
	mu        sync.Mutex
	pool      *ResourcePool
	submitted []*Recording
	sets      map[gpucore.DescriptorSetID][]gpucore.DescriptorBinding
	nextSet   gpucore.DescriptorSetID
	addresses bool
}

var _ gpucore.Device = (*Device)(nil)

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithBufferDeviceAddress makes BufferDeviceAddress return non-zero
// synthetic addresses, as a device with ray tracing support would.
func WithBufferDeviceAddress() DeviceOption {
	return func(d *Device) { d.addresses = true }
}

// NewDevice creates a recording device.
func NewDevice(opts ...DeviceOption) *Device {
	d := &Device{
		pool: NewResourcePool(),
		sets: make(map[gpucore.DescriptorSetID][]gpucore.DescriptorBinding),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDesc, _ []byte, name string) (gpucore.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.AddTexture(desc, name), nil
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc, name string, initial []byte) (gpucore.Buffer, error) {
	if uint64(len(initial)) > desc.Size {
		return gpucore.Buffer{}, fmt.Errorf("%w: %d initial bytes for a %d byte buffer", ErrOutOfRange, len(initial), desc.Size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.AddBuffer(desc, name, initial), nil
}

// CreateAcceleration implements gpucore.Device.
func (d *Device) CreateAcceleration(desc gpucore.AccelerationDesc, name string) (gpucore.Acceleration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.AddAcceleration(desc, name), nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(t gpucore.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool.RemoveTexture(t.ID)
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(b gpucore.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool.RemoveBuffer(b.ID)
}

// DestroyAcceleration implements gpucore.Device.
func (d *Device) DestroyAcceleration(a gpucore.Acceleration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool.RemoveAcceleration(a.ID)
}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(b gpucore.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dst, ok := d.pool.bufferData(b.ID)
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.ID)
	}
	if offset+uint64(len(data)) > uint64(len(dst)) {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrOutOfRange, offset, offset+uint64(len(data)), len(dst))
	}
	copy(dst[offset:], data)
	return nil
}

// ReadBuffer copies the current contents of b into a new slice.
func (d *Device) ReadBuffer(b gpucore.Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, ok := d.pool.bufferData(b.ID)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.ID)
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// BufferDeviceAddress implements gpucore.Device.
func (d *Device) BufferDeviceAddress(b gpucore.Buffer) uint64 {
	if !d.addresses {
		return 0
	}
	return uint64(b.ID) << 32
}

// CreateDescriptorSet implements gpucore.Device.
func (d *Device) CreateDescriptorSet(_ gpucore.DescriptorSetLayout, bindings []gpucore.DescriptorBinding) (gpucore.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSet++
	d.sets[d.nextSet] = bindings
	return d.nextSet, nil
}

// DescriptorSet returns the bindings a set was created with.
func (d *Device) DescriptorSet(id gpucore.DescriptorSetID) ([]gpucore.DescriptorBinding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.sets[id]
	return b, ok
}

// BeginCommandBuffer implements gpucore.Device.
func (d *Device) BeginCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	return NewRecorder(label), nil
}

// Submit implements gpucore.Device.
func (d *Device) Submit(ctx context.Context, cb gpucore.CommandBuffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, ok := cb.(*Recorder)
	if !ok {
		return ErrForeignCommandBuffer
	}
	if rec.Finished() {
		return ErrAlreadySubmitted
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = append(d.submitted, rec.Finish())
	return nil
}

// Submitted returns every submitted recording in submission order.
func (d *Device) Submitted() []*Recording {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Recording, len(d.submitted))
	copy(out, d.submitted)
	return out
}

// ResetSubmitted forgets previously submitted recordings.
func (d *Device) ResetSubmitted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = nil
}

// Stats reports object counts.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Live:      d.pool.Live(),
		Created:   d.pool.Created(),
		Destroyed: d.pool.Destroyed(),
		Submitted: len(d.submitted),
	}
}

// TextureName returns the debug name a live texture was created with.
func (d *Device) TextureName(t gpucore.Texture) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.TextureName(t.ID)
}

// BufferName returns the debug name a live buffer was created with.
func (d *Device) BufferName(b gpucore.Buffer) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.BufferName(b.ID)
}

// Stats contains recording device statistics.
type Stats struct {
	// Live is the number of objects not yet destroyed.
	Live int
	// Created is the number of objects ever created.
	Created int
	// Destroyed is the number of destroyed objects.
	Destroyed int
	// Submitted is the number of submitted command buffers.
	Submitted int
}
