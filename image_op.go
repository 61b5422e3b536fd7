// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "github.com/gogpu/framegraph/gpucore"

// ClearDepth adds a pass clearing the depth and stencil planes of img.
func ClearDepth(rg *RenderGraph, img ImageHandle, depth float32, stencil uint32) *RecordedPass {
	pb := rg.AddPass("clear depth")
	out := Write(pb, img, gpucore.AccessTransferWrite)
	pb.Record(ClearImageCommand{Image: out, Value: gpucore.ClearValue{Depth: depth, Stencil: stencil}})
	return pb.Finish()
}

// ClearColor adds a pass clearing img to color.
func ClearColor(rg *RenderGraph, img ImageHandle, color [4]float32) *RecordedPass {
	pb := rg.AddPass("clear color")
	out := Write(pb, img, gpucore.AccessTransferWrite)
	pb.Record(ClearImageCommand{Image: out, Value: gpucore.ClearValue{Color: color}})
	return pb.Finish()
}

// CopyImage adds a pass copying src into dst.
func CopyImage(rg *RenderGraph, src, dst ImageHandle) *RecordedPass {
	pb := rg.AddPass("copy image")
	out := Write(pb, dst, gpucore.AccessTransferWrite)
	in := Read(pb, src, gpucore.AccessTransferRead)
	pb.Record(CopyImageCommand{Src: in, Dst: out})
	return pb.Finish()
}
