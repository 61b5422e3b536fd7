// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "github.com/gogpu/framegraph/gpucore"

// CopyBuffer adds a pass copying src into dst. The copy covers dst.
func CopyBuffer(rg *RenderGraph, src, dst BufferHandle) *RecordedPass {
	pb := rg.AddPass("copy buffer")
	out := Write(pb, dst, gpucore.AccessTransferWrite)
	in := Read(pb, src, gpucore.AccessTransferRead)
	pb.Record(CopyBufferCommand{Src: in, Dst: out, Size: dst.Desc.Size})
	return pb.Finish()
}

// ClearBuffer adds a pass filling buf with the 32-bit value.
func ClearBuffer(rg *RenderGraph, buf BufferHandle, value uint32) *RecordedPass {
	pb := rg.AddPass("clear buffer")
	out := Write(pb, buf, gpucore.AccessTransferWrite)
	pb.Record(ClearBufferCommand{Buffer: out, Value: value})
	return pb.Finish()
}
