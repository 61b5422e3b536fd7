// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"slices"

	"github.com/gogpu/framegraph/gpucore"
)

// Binding is one entry of a pass descriptor set, expressed in graph handles.
// It is resolved to a gpucore.DescriptorBinding when the pass executes.
//
// The concrete types are ImageBinding, ImageArrayBinding, BufferBinding,
// AccelerationBinding, DynamicConstantsBinding and DynamicStorageBinding.
type Binding interface {
	isBinding()
}

// ImageBinding binds an image view in a given layout.
type ImageBinding struct {
	Handle RawHandle
	View   gpucore.TextureViewDesc
	Layout gpucore.ImageLayout
}

// ImageArrayBinding binds several images to one array slot.
type ImageArrayBinding struct {
	Images []ImageBinding
}

// BufferBinding binds a whole buffer.
type BufferBinding struct {
	Handle RawHandle
}

// AccelerationBinding binds a top-level acceleration structure.
type AccelerationBinding struct {
	Handle RawHandle
}

// DynamicConstantsBinding binds the dynamic constants buffer as a uniform
// buffer at Offset.
type DynamicConstantsBinding struct {
	Offset uint32
}

// DynamicStorageBinding binds the dynamic constants buffer as a storage
// buffer at Offset.
type DynamicStorageBinding struct {
	Offset uint32
}

func (ImageBinding) isBinding()            {}
func (ImageArrayBinding) isBinding()       {}
func (BufferBinding) isBinding()           {}
func (AccelerationBinding) isBinding()     {}
func (DynamicConstantsBinding) isBinding() {}
func (DynamicStorageBinding) isBinding()   {}

// DescriptorSetBinding is a set index and the bindings to place in it,
// numbered from binding 0 in order.
type DescriptorSetBinding struct {
	Set      uint32
	Bindings []Binding
}

// RawDescriptorSet binds a descriptor set created directly on the device.
type RawDescriptorSet struct {
	Set uint32
	ID  gpucore.DescriptorSetID
}

// PipelineBinding lists everything bound together with a pipeline.
type PipelineBinding struct {
	Sets    []DescriptorSetBinding
	RawSets []RawDescriptorSet
}

// DescriptorSet appends a binding set and returns the result.
func (b PipelineBinding) DescriptorSet(set uint32, bindings []Binding) PipelineBinding {
	b.Sets = append(slices.Clip(b.Sets), DescriptorSetBinding{Set: set, Bindings: bindings})
	return b
}

// RawDescriptorSet appends a raw set and returns the result.
func (b PipelineBinding) RawDescriptorSet(set uint32, id gpucore.DescriptorSetID) PipelineBinding {
	b.RawSets = append(slices.Clip(b.RawSets), RawDescriptorSet{Set: set, ID: id})
	return b
}
