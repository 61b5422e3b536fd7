// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	gpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gpucore"
)

const (
	// DefaultFramesInFlight is the number of submissions allowed to be
	// pending before Submit waits for the oldest one.
	DefaultFramesInFlight = 2

	// DefaultWaitTimeout bounds every fence wait.
	DefaultWaitTimeout = 5 * time.Second

	// dynamicBindingWindow is the range bound for dynamic buffer bindings.
	dynamicBindingWindow = 64 << 10

	copyBufferAlignment = 4
)

type texture struct {
	raw  gpuhal.Texture
	desc gpucore.TextureDesc
	view gpuhal.TextureView // created on first use as an attachment
}

type descriptorSet struct {
	layout gpuhal.BindGroupLayout
	group  gpuhal.BindGroup
}

type computePipeline struct {
	raw       gpuhal.ComputePipeline
	layout    gpuhal.PipelineLayout
	sets      []gpuhal.BindGroupLayout
	groupSize [3]uint32
}

type submission struct {
	value   uint64
	cmd     gpuhal.CommandBuffer
	release []func()
}

// Option configures a Device.
type Option func(*Device)

// WithFramesInFlight sets how many submissions may be pending at once.
func WithFramesInFlight(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.maxInFlight = n
		}
	}
}

// WithWaitTimeout sets the fence wait timeout.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(d *Device) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// Device implements gpucore.Device on a wgpu hal device and queue.
//
// gpucore IDs map to hal objects held by the Device. Objects destroyed
// while submissions are pending are released once the fence passes them.
//
// Thread Safety:
// Device is safe for concurrent use. Command buffers are not.
type Device struct {
	mu sync.Mutex

	raw   gpuhal.Device
	queue gpuhal.Queue

	fence       gpuhal.Fence
	fenceValue  uint64
	inFlight    []submission
	maxInFlight int
	timeout     time.Duration

	nextID    uint64
	textures  map[gpucore.TextureID]*texture
	buffers   map[gpucore.BufferID]gpuhal.Buffer
	sizes     map[gpucore.BufferID]uint64
	sets      map[gpucore.DescriptorSetID]*descriptorSet
	pipelines map[gpucore.PipelineID]*computePipeline

	// closeFn destroys the hal device and instance when the Device opened them.
	closeFn func()
	closed  bool
}

var _ gpucore.Device = (*Device)(nil)

// NewDevice wraps an open hal device and queue. The caller keeps ownership
// of both; Close releases only the objects created through the Device.
func NewDevice(raw gpuhal.Device, queue gpuhal.Queue, opts ...Option) (*Device, error) {
	if raw == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrNoHALProvider)
	}
	fence, err := raw.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("hal: create fence: %w", err)
	}
	d := &Device{
		raw:         raw,
		queue:       queue,
		fence:       fence,
		maxInFlight: DefaultFramesInFlight,
		timeout:     DefaultWaitTimeout,
		textures:    make(map[gpucore.TextureID]*texture),
		buffers:     make(map[gpucore.BufferID]gpuhal.Buffer),
		sizes:       make(map[gpucore.BufferID]uint64),
		sets:        make(map[gpucore.DescriptorSetID]*descriptorSet),
		pipelines:   make(map[gpucore.PipelineID]*computePipeline),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewDeviceFromProvider shares the device of a host application, such as a
// gogpu window. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewDeviceFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	raw, ok := hp.HalDevice().(gpuhal.Device)
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(gpuhal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return NewDevice(raw, queue, opts...)
}

// openInstance opens the preferred adapter of instance. The returned
// Device owns the instance and destroys it on Close.
func openInstance(instance gpuhal.Instance, opts ...Option) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("hal: open device: %w", err)
	}
	d, err := NewDevice(openDev.Device, openDev.Queue, opts...)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.closeFn = func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	framegraph.Logger().Info("hal: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// Raw returns the underlying hal device.
func (d *Device) Raw() gpuhal.Device {
	return d.raw
}

// allocID must be called with d.mu held.
func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateTexture implements gpucore.Device. Initial data is not supported.
func (d *Device) CreateTexture(desc gpucore.TextureDesc, initial []byte, name string) (gpucore.Texture, error) {
	if initial != nil {
		return gpucore.Texture{}, fmt.Errorf("%w: initial texture data", ErrUnsupported)
	}
	layers := max(desc.ArrayElements, 1)
	if desc.ImageType == gpucore.ImageType3D {
		layers = max(desc.Extent[2], 1)
	}
	raw, err := d.raw.CreateTexture(&gpuhal.TextureDescriptor{
		Label: name,
		Size: gpuhal.Extent3D{
			Width:              desc.Extent[0],
			Height:             desc.Extent[1],
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: uint32(max(desc.MipLevels, 1)),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     convertDimension(desc.ImageType),
		Format:        desc.Format,
		Usage:         convertTextureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.Texture{}, fmt.Errorf("hal: create texture %q: %w", name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.TextureID(d.allocID())
	d.textures[id] = &texture{raw: raw, desc: desc}
	return gpucore.Texture{ID: id, Desc: desc}, nil
}

// CreateBuffer implements gpucore.Device. The size is rounded up to the copy
// alignment; initial data is uploaded through the queue.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc, name string, initial []byte) (gpucore.Buffer, error) {
	if uint64(len(initial)) > desc.Size {
		return gpucore.Buffer{}, fmt.Errorf("%w: %d initial bytes for %q of size %d",
			ErrOutOfRange, len(initial), name, desc.Size)
	}
	size := (desc.Size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
	raw, err := d.raw.CreateBuffer(&gpuhal.BufferDescriptor{
		Label: name,
		Size:  size,
		Usage: convertBufferUsage(desc),
	})
	if err != nil {
		return gpucore.Buffer{}, fmt.Errorf("hal: create buffer %q: %w", name, err)
	}
	if len(initial) > 0 {
		d.queue.WriteBuffer(raw, 0, initial)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.BufferID(d.allocID())
	d.buffers[id] = raw
	d.sizes[id] = size
	return gpucore.Buffer{ID: id, Desc: desc}, nil
}

// CreateAcceleration implements gpucore.Device. hal has no ray tracing.
func (d *Device) CreateAcceleration(_ gpucore.AccelerationDesc, name string) (gpucore.Acceleration, error) {
	return gpucore.Acceleration{}, fmt.Errorf("%w: acceleration structure %q", ErrUnsupported, name)
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(t gpucore.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex, ok := d.textures[t.ID]
	if !ok {
		return
	}
	delete(d.textures, t.ID)
	d.release(func() {
		if tex.view != nil {
			d.raw.DestroyTextureView(tex.view)
		}
		d.raw.DestroyTexture(tex.raw)
	})
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(b gpucore.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, ok := d.buffers[b.ID]
	if !ok {
		return
	}
	delete(d.buffers, b.ID)
	delete(d.sizes, b.ID)
	d.release(func() { d.raw.DestroyBuffer(raw) })
}

// DestroyAcceleration implements gpucore.Device.
func (d *Device) DestroyAcceleration(gpucore.Acceleration) {}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(b gpucore.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	raw, ok := d.buffers[b.ID]
	size := d.sizes[b.ID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.ID)
	}
	if offset+uint64(len(data)) > size {
		return fmt.Errorf("%w: %d bytes at %d in buffer of size %d", ErrOutOfRange, len(data), offset, size)
	}
	d.queue.WriteBuffer(raw, offset, data)
	return nil
}

// BufferDeviceAddress implements gpucore.Device. hal exposes no device
// addresses, so it is always 0.
func (d *Device) BufferDeviceAddress(gpucore.Buffer) uint64 {
	return 0
}

// CreateDescriptorSet implements gpucore.Device.
func (d *Device) CreateDescriptorSet(layout gpucore.DescriptorSetLayout, bindings []gpucore.DescriptorBinding) (gpucore.DescriptorSetID, error) {
	bgl, err := d.createSetLayout("descriptor set layout", layout)
	if err != nil {
		return gpucore.InvalidID, err
	}
	group, _, err := d.createBindGroup("descriptor set", bgl, bindings)
	if err != nil {
		d.raw.DestroyBindGroupLayout(bgl)
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.DescriptorSetID(d.allocID())
	d.sets[id] = &descriptorSet{layout: bgl, group: group}
	return id, nil
}

func (d *Device) createSetLayout(label string, layout gpucore.DescriptorSetLayout) (gpuhal.BindGroupLayout, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(layout.Bindings))
	for _, b := range layout.Bindings {
		e, err := convertLayoutEntry(b)
		if err != nil {
			return nil, fmt.Errorf("%w: binding %d of type %d", err, b.Binding, b.Type)
		}
		entries = append(entries, e)
	}
	bgl, err := d.raw.CreateBindGroupLayout(&gpuhal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("hal: create bind group layout: %w", err)
	}
	return bgl, nil
}

// createBindGroup resolves buffer bindings into a bind group and returns the
// dynamic offsets in binding order.
func (d *Device) createBindGroup(label string, layout gpuhal.BindGroupLayout, bindings []gpucore.DescriptorBinding) (gpuhal.BindGroup, []uint32, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(bindings))
	var offsets []uint32

	d.mu.Lock()
	for _, b := range bindings {
		switch b.Kind {
		case gpucore.DescriptorKindBuffer, gpucore.DescriptorKindDynamicUniform, gpucore.DescriptorKindDynamicStorage:
		default:
			d.mu.Unlock()
			return nil, nil, fmt.Errorf("%w: descriptor kind %d at binding %d", ErrUnsupported, b.Kind, b.Binding)
		}
		raw, ok := d.buffers[b.Buffer.ID]
		if !ok {
			d.mu.Unlock()
			return nil, nil, fmt.Errorf("%w: buffer %d at binding %d", ErrUnknownResource, b.Buffer.ID, b.Binding)
		}
		size := d.sizes[b.Buffer.ID]
		if b.Kind != gpucore.DescriptorKindBuffer {
			size = min(size, dynamicBindingWindow)
			offsets = append(offsets, b.Offset)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  b.Binding,
			Resource: gputypes.BufferBinding{Buffer: raw.NativeHandle(), Offset: 0, Size: size},
		})
	}
	d.mu.Unlock()

	group, err := d.raw.CreateBindGroup(&gpuhal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("hal: create bind group: %w", err)
	}
	return group, offsets, nil
}

// BeginCommandBuffer implements gpucore.Device.
func (d *Device) BeginCommandBuffer(label string) (gpucore.CommandBuffer, error) {
	enc, err := d.raw.CreateCommandEncoder(&gpuhal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("hal: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("hal: begin encoding: %w", err)
	}
	return &CommandBuffer{dev: d, label: label, enc: enc}, nil
}

// Submit implements gpucore.Device. A command buffer that recorded an
// unsupported command is discarded and its error returned.
func (d *Device) Submit(ctx context.Context, cb gpucore.CommandBuffer) error {
	c, ok := cb.(*CommandBuffer)
	if !ok || c.dev != d {
		return fmt.Errorf("%w: command buffer %T", ErrForeignDevice, cb)
	}
	if err := ctx.Err(); err != nil {
		c.discard()
		return err
	}
	c.endPasses()
	if c.err != nil {
		c.discard()
		return fmt.Errorf("hal: command buffer %q: %w", c.label, c.err)
	}
	cmd, err := c.enc.EndEncoding()
	if err != nil {
		c.runRelease()
		return fmt.Errorf("hal: end encoding: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.fenceValue++
	if err := d.queue.Submit([]gpuhal.CommandBuffer{cmd}, d.fence, d.fenceValue); err != nil {
		d.raw.FreeCommandBuffer(cmd)
		c.runRelease()
		return fmt.Errorf("hal: submit: %w", err)
	}
	d.inFlight = append(d.inFlight, submission{value: d.fenceValue, cmd: cmd, release: c.release})
	c.release = nil

	for len(d.inFlight) > d.maxInFlight {
		if err := d.retireOldest(); err != nil {
			return err
		}
	}
	return nil
}

// retireOldest waits for the oldest submission and frees what it held.
// Caller must hold d.mu.
func (d *Device) retireOldest() error {
	s := d.inFlight[0]
	ok, err := d.raw.Wait(d.fence, s.value, d.timeout)
	if err != nil {
		return fmt.Errorf("hal: wait for submission %d: %w", s.value, err)
	}
	if !ok {
		return fmt.Errorf("%w: submission %d", ErrFenceTimeout, s.value)
	}
	d.inFlight = d.inFlight[1:]
	d.raw.FreeCommandBuffer(s.cmd)
	for _, fn := range s.release {
		fn()
	}
	return nil
}

// release runs fn once every pending submission has completed.
// Caller must hold d.mu.
func (d *Device) release(fn func()) {
	if len(d.inFlight) == 0 {
		fn()
		return
	}
	last := &d.inFlight[len(d.inFlight)-1]
	last.release = append(last.release, fn)
}

// WaitIdle blocks until every submission has completed.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.inFlight) > 0 {
		if err := d.retireOldest(); err != nil {
			return err
		}
	}
	return nil
}

// InFlight returns the number of pending submissions.
func (d *Device) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inFlight)
}

// Close waits for the GPU and destroys every object created through the
// Device. It is safe to call more than once.
func (d *Device) Close() error {
	err := d.WaitIdle()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return err
	}
	d.closed = true
	for id, p := range d.pipelines {
		d.destroyPipelineLocked(p)
		delete(d.pipelines, id)
	}
	for id, s := range d.sets {
		d.raw.DestroyBindGroup(s.group)
		d.raw.DestroyBindGroupLayout(s.layout)
		delete(d.sets, id)
	}
	for id, t := range d.textures {
		if t.view != nil {
			d.raw.DestroyTextureView(t.view)
		}
		d.raw.DestroyTexture(t.raw)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.raw.DestroyBuffer(b)
		delete(d.buffers, id)
	}
	d.raw.DestroyFence(d.fence)
	if d.closeFn != nil {
		d.closeFn()
	}
	return err
}

// Live returns the number of live textures and buffers.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures) + len(d.buffers)
}

func (d *Device) lookupTexture(id gpucore.TextureID) (*texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	return t, ok
}

func (d *Device) lookupBuffer(id gpucore.BufferID) (gpuhal.Buffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	return b, ok
}

// attachmentView returns the default view of a texture, creating it on
// first use.
func (d *Device) attachmentView(id gpucore.TextureID) (gpuhal.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
	}
	if t.view == nil {
		view, err := d.raw.CreateTextureView(t.raw, &gpuhal.TextureViewDescriptor{Label: "attachment"})
		if err != nil {
			return nil, fmt.Errorf("hal: create texture view: %w", err)
		}
		t.view = view
	}
	return t.view, nil
}

func (d *Device) registerPipeline(p *computePipeline) gpucore.PipelineID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpucore.PipelineID(d.allocID())
	d.pipelines[id] = p
	return id
}

func (d *Device) lookupPipeline(id gpucore.PipelineID) (*computePipeline, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipelines[id]
	return p, ok
}

// releasePipeline destroys a pipeline once no pending submission uses it.
func (d *Device) releasePipeline(id gpucore.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pipelines[id]
	if !ok {
		return
	}
	delete(d.pipelines, id)
	d.release(func() { d.destroyPipelineLocked(p) })
}

// destroyPipelineLocked also accepts partially built pipelines.
func (d *Device) destroyPipelineLocked(p *computePipeline) {
	if p.raw != nil {
		d.raw.DestroyComputePipeline(p.raw)
	}
	if p.layout != nil {
		d.raw.DestroyPipelineLayout(p.layout)
	}
	for _, l := range p.sets {
		d.raw.DestroyBindGroupLayout(l)
	}
}

func (d *Device) lookupSet(id gpucore.DescriptorSetID) (*descriptorSet, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sets[id]
	return s, ok
}
