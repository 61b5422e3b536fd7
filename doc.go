// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph is a GPU frame graph.
//
// # Overview
//
// Rendering code declares, once per frame, the passes it wants to run and
// the resources each pass reads and writes. The graph then works out how
// long every resource lives and which usage flags it needs, instantiates
// the resources (reusing them across frames through a transient cache),
// inserts the barriers between passes and records everything into command
// buffers in declaration order.
//
// # Quick Start
//
//	rg := framegraph.NewRenderGraph()
//	img := rg.CreateImage(gpucore.NewTextureDesc2D(gputypes.TextureFormatRGBA16Float, 1280, 720))
//
//	framegraph.ClearColor(rg, img, [4]float32{0, 0, 0, 1})
//
//	framegraph.NewComputePass(rg.AddPass("shade"), "shaders/shade.wgsl", nil).
//		Write(img).
//		Dispatch(img.Desc.Extent)
//
//	rg.RegisterExecutionParams(framegraph.ExecutionParams{ ... })
//	err := rg.Execute(ctx)
//
// # Frame Lifecycle
//
// A graph goes through build, Compile, BeginExecute, RecordMainCB,
// RecordPresentationCB and ReleaseResources. Passes up to the first one
// that writes the swapchain image are recorded into the main command
// buffer, which can be submitted before the swapchain image is acquired.
// The rest go into the presentation command buffer.
//
// # Temporal Resources
//
// TemporalGraph keeps named resources alive from one frame to the next.
// Each key moves Inert → Imported → Exported → Inert once per frame; asking
// for the same key twice in one frame is refused.
//
// # Access Declarations
//
// Read, Write, WriteNoSync, Raster and RasterRead accept only access types
// of their category. A mismatch is a programming error and panics with an
// *AccessError.
package framegraph
