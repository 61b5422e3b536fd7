// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// ResourceRegistry maps the handles of an executing graph to concrete GPU
// objects and tracks the access each one was last transitioned to. It also
// resolves graph pipeline handles through the pipeline cache.
//
// A registry exists between BeginExecute and ReleaseResources.
type ResourceRegistry struct {
	resources []registryResource
	params    *ExecutionParams
	pipelines compiledPipelines
}

// Image returns the texture referenced by r.
func Image[V ViewKind](reg *ResourceRegistry, r Ref[gpucore.TextureDesc, V]) (gpucore.Texture, error) {
	return reg.texture(r.Raw)
}

// Buffer returns the buffer referenced by r.
func Buffer[V ViewKind](reg *ResourceRegistry, r Ref[gpucore.BufferDesc, V]) (gpucore.Buffer, error) {
	return reg.buffer(r.Raw)
}

// Acceleration returns the acceleration structure referenced by r.
func Acceleration[V ViewKind](reg *ResourceRegistry, r Ref[gpucore.AccelerationDesc, V]) (gpucore.Acceleration, error) {
	return reg.acceleration(r.Raw)
}

func (reg *ResourceRegistry) lookup(h RawHandle) (*registryResource, error) {
	if h.IsEmpty() || int(h.ID) >= len(reg.resources) {
		return nil, fmt.Errorf("%w: %v", ErrForeignHandle, h)
	}
	res := &reg.resources[h.ID]
	if _, ok := res.resource.(pendingSwapchain); ok {
		return nil, fmt.Errorf("%w: %v", ErrPendingResource, h)
	}
	return res, nil
}

func (reg *ResourceRegistry) texture(h RawHandle) (gpucore.Texture, error) {
	res, err := reg.lookup(h)
	if err != nil {
		return gpucore.Texture{}, err
	}
	t, ok := res.texture()
	if !ok {
		return gpucore.Texture{}, fmt.Errorf("%w: %v is not an image", ErrResourceKind, h)
	}
	return t, nil
}

func (reg *ResourceRegistry) buffer(h RawHandle) (gpucore.Buffer, error) {
	res, err := reg.lookup(h)
	if err != nil {
		return gpucore.Buffer{}, err
	}
	b, ok := res.buffer()
	if !ok {
		return gpucore.Buffer{}, fmt.Errorf("%w: %v is not a buffer", ErrResourceKind, h)
	}
	return b, nil
}

func (reg *ResourceRegistry) acceleration(h RawHandle) (gpucore.Acceleration, error) {
	res, err := reg.lookup(h)
	if err != nil {
		return gpucore.Acceleration{}, err
	}
	a, ok := res.acceleration()
	if !ok {
		return gpucore.Acceleration{}, fmt.Errorf("%w: %v is not an acceleration structure", ErrResourceKind, h)
	}
	return a, nil
}

// Access returns the access the resource h is currently in. For a buffer
// split by ranged writes it is the access of the latest transition.
func (reg *ResourceRegistry) Access(h RawHandle) (gpucore.AccessType, bool) {
	if h.IsEmpty() || int(h.ID) >= len(reg.resources) {
		return gpucore.AccessNothing, false
	}
	return reg.resources[h.ID].access, true
}

// Device returns the device the graph executes on.
func (reg *ResourceRegistry) Device() gpucore.Device { return reg.params.Device }

// DynamicConstants returns the dynamic constants ring, or nil.
func (reg *ResourceRegistry) DynamicConstants() *DynamicConstants { return reg.params.DynamicConstants }

// ComputePipeline resolves a graph compute pipeline handle.
func (reg *ResourceRegistry) ComputePipeline(h ComputePipelineHandle) (gpucore.ComputePipeline, error) {
	if int(h) >= len(reg.pipelines.compute) {
		return gpucore.ComputePipeline{}, fmt.Errorf("%w: compute pipeline %d not registered", ErrPipelineNotReady, h)
	}
	p, ok := reg.params.PipelineCache.ComputePipeline(reg.pipelines.compute[h])
	if !ok {
		return gpucore.ComputePipeline{}, fmt.Errorf("%w: compute pipeline %d", ErrPipelineNotReady, h)
	}
	return p, nil
}

// RasterPipeline resolves a graph raster pipeline handle.
func (reg *ResourceRegistry) RasterPipeline(h RasterPipelineHandle) (gpucore.RasterPipeline, error) {
	if int(h) >= len(reg.pipelines.raster) {
		return gpucore.RasterPipeline{}, fmt.Errorf("%w: raster pipeline %d not registered", ErrPipelineNotReady, h)
	}
	p, ok := reg.params.PipelineCache.RasterPipeline(reg.pipelines.raster[h])
	if !ok {
		return gpucore.RasterPipeline{}, fmt.Errorf("%w: raster pipeline %d", ErrPipelineNotReady, h)
	}
	return p, nil
}

// RayTracingPipeline resolves a graph ray tracing pipeline handle.
func (reg *ResourceRegistry) RayTracingPipeline(h RayTracingPipelineHandle) (gpucore.RayTracingPipeline, error) {
	if int(h) >= len(reg.pipelines.rayTracing) {
		return gpucore.RayTracingPipeline{}, fmt.Errorf("%w: ray tracing pipeline %d not registered", ErrPipelineNotReady, h)
	}
	p, ok := reg.params.PipelineCache.RayTracingPipeline(reg.pipelines.rayTracing[h])
	if !ok {
		return gpucore.RayTracingPipeline{}, fmt.Errorf("%w: ray tracing pipeline %d", ErrPipelineNotReady, h)
	}
	return p, nil
}

// resolve turns graph bindings into descriptor bindings numbered from 0.
func (reg *ResourceRegistry) resolve(bindings []Binding) ([]gpucore.DescriptorBinding, error) {
	out := make([]gpucore.DescriptorBinding, 0, len(bindings))
	for i, b := range bindings {
		d := gpucore.DescriptorBinding{Binding: uint32(i)} // #nosec G115 -- binding count is small
		switch b := b.(type) {
		case ImageBinding:
			img, err := reg.imageDescriptor(b)
			if err != nil {
				return nil, err
			}
			d.Kind = gpucore.DescriptorKindImage
			d.Images = []gpucore.ImageDescriptor{img}
		case ImageArrayBinding:
			d.Kind = gpucore.DescriptorKindImageArray
			d.Images = make([]gpucore.ImageDescriptor, 0, len(b.Images))
			for _, ib := range b.Images {
				img, err := reg.imageDescriptor(ib)
				if err != nil {
					return nil, err
				}
				d.Images = append(d.Images, img)
			}
		case BufferBinding:
			buf, err := reg.buffer(b.Handle)
			if err != nil {
				return nil, err
			}
			d.Kind = gpucore.DescriptorKindBuffer
			d.Buffer = buf
		case AccelerationBinding:
			a, err := reg.acceleration(b.Handle)
			if err != nil {
				return nil, err
			}
			d.Kind = gpucore.DescriptorKindAcceleration
			d.Acceleration = a
		case DynamicConstantsBinding:
			if reg.params.DynamicConstants == nil {
				return nil, fmt.Errorf("%w: no dynamic constants buffer", ErrNoExecutionParams)
			}
			d.Kind = gpucore.DescriptorKindDynamicUniform
			d.Buffer = reg.params.DynamicConstants.Buffer()
			d.Offset = b.Offset
		case DynamicStorageBinding:
			if reg.params.DynamicConstants == nil {
				return nil, fmt.Errorf("%w: no dynamic constants buffer", ErrNoExecutionParams)
			}
			d.Kind = gpucore.DescriptorKindDynamicStorage
			d.Buffer = reg.params.DynamicConstants.Buffer()
			d.Offset = b.Offset
		}
		out = append(out, d)
	}
	return out, nil
}

func (reg *ResourceRegistry) imageDescriptor(b ImageBinding) (gpucore.ImageDescriptor, error) {
	t, err := reg.texture(b.Handle)
	if err != nil {
		return gpucore.ImageDescriptor{}, err
	}
	return gpucore.ImageDescriptor{
		View:   gpucore.TextureView{Texture: t, View: b.View},
		Layout: b.Layout,
	}, nil
}
