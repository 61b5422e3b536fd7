// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/gpucore"
)

// SyncPolicy decides whether a transition to the access a resource is
// already in still records a barrier.
type SyncPolicy uint8

const (
	// AlwaysSync records a barrier even when the access does not change,
	// ordering back-to-back writes.
	AlwaysSync SyncPolicy = iota
	// SkipSyncIfSameAccessType records nothing when the access does not change.
	SkipSyncIfSameAccessType
)

func (p SyncPolicy) String() string {
	if p == AlwaysSync {
		return "AlwaysSync"
	}
	return "SkipSyncIfSameAccessType"
}

// ByteRange is a sub-range of a buffer.
type ByteRange struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte past the range.
func (r ByteRange) End() uint64 { return r.Offset + r.Size }

// Overlaps reports whether r and o share at least one byte.
func (r ByteRange) Overlaps(o ByteRange) bool {
	return r.Size > 0 && o.Size > 0 && r.Offset < o.End() && o.Offset < r.End()
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Offset, r.End())
}

// PassResourceRef is one declared access of a pass.
type PassResourceRef struct {
	Handle RawHandle
	Access gpucore.AccessType
	Sync   SyncPolicy
	// Range limits the barrier of a ranged buffer write. Nil means the
	// whole resource.
	Range *ByteRange
}

// RecordedPass is a pass as stored in the graph: its declared accesses and
// the commands to run once they are satisfied.
type RecordedPass struct {
	Name     string
	Index    int
	Reads    []PassResourceRef
	Writes   []PassResourceRef
	Commands []PassCommand
}

// refs returns the reads followed by the writes.
func (p *RecordedPass) refs() []*PassResourceRef {
	out := make([]*PassResourceRef, 0, len(p.Reads)+len(p.Writes))
	for i := range p.Reads {
		out = append(out, &p.Reads[i])
	}
	for i := range p.Writes {
		out = append(out, &p.Writes[i])
	}
	return out
}

// writes reports whether the pass writes the resource h.
func (p *RecordedPass) writes(id uint32) bool {
	for _, w := range p.Writes {
		if w.Handle.ID == id {
			return true
		}
	}
	return false
}

// ConstBlob is a constant block pushed to DynamicConstants right before its
// pass runs. The resulting offset is written into the dynamic binding at
// index Binding of set 0.
type ConstBlob struct {
	Binding int
	Data    []byte
}

// ShaderBindings is what a recorded command binds with its pipeline: the
// bindings of set 0, the constant blobs patched into them and any raw sets.
type ShaderBindings struct {
	Bindings   []Binding
	ConstBlobs []ConstBlob
	RawSets    []RawDescriptorSet
}

// pipelineBinding pushes the constant blobs and returns the bindings with
// their dynamic offsets filled in.
func (s ShaderBindings) pipelineBinding(dc *DynamicConstants) (PipelineBinding, error) {
	bindings := make([]Binding, len(s.Bindings))
	copy(bindings, s.Bindings)
	for _, blob := range s.ConstBlobs {
		if dc == nil {
			return PipelineBinding{}, fmt.Errorf("%w: no dynamic constants buffer", ErrNoExecutionParams)
		}
		offset, err := dc.Push(blob.Data)
		if err != nil {
			return PipelineBinding{}, err
		}
		switch bindings[blob.Binding].(type) {
		case DynamicConstantsBinding:
			bindings[blob.Binding] = DynamicConstantsBinding{Offset: offset}
		case DynamicStorageBinding:
			bindings[blob.Binding] = DynamicStorageBinding{Offset: offset}
		}
	}
	var pb PipelineBinding
	if len(bindings) > 0 {
		pb = pb.DescriptorSet(0, bindings)
	}
	for _, raw := range s.RawSets {
		pb = pb.RawDescriptorSet(raw.Set, raw.ID)
	}
	return pb, nil
}

// Attachment is a render target of a raster command.
type Attachment struct {
	Image Ref[gpucore.TextureDesc, Rt]
	View  gpucore.TextureViewDesc
}

// RenderTargets opens a render pass around a raster command.
type RenderTargets struct {
	Desc   gpucore.RenderPassDesc
	Extent [2]uint32
	Colors []Attachment
	Depth  *Attachment
}
