// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render drives a frame graph once per frame.
//
// A Renderer owns everything that outlives one graph: the transient
// resource cache, the temporal state, the dynamic constants ring and the
// frame descriptor set bound at FrameSet of every pipeline. Each frame
// goes through the same three steps:
//
//	tg := r.TemporalGraph()
//	err := r.PrepareFrame(ctx, tg, func(tg *framegraph.TemporalGraph) error {
//	    // declare passes
//	    return nil
//	})
//	if err == nil {
//	    err = r.DrawFrame(ctx, tg)
//	}
//
// PrepareFrame compiles the graph and its pipelines. When a pipeline fails
// to build, nothing is drawn, but temporal resources created by the failed
// frame are kept for the next attempt.
//
// DrawFrame records and submits the work before the first swapchain write,
// then acquires the swapchain image and records the rest. The main
// submission keeps the GPU busy while the image is acquired.
//
// # Device integration
//
// A Renderer runs on any backend instance. A host that owns a GPU device,
// such as a gogpu window, passes it as a DeviceHandle:
//
//	r, err := render.NewFromDevice(handle, render.DefaultConfig())
//
// # Configuration
//
// Config holds the renderer settings. LoadConfig reads them from an HCL
// file where env.NAME expands environment variables:
//
//	backend = "noop"
//	width   = 1280
//	height  = 720
//	shader_dir = "${env.HOME}/shaders"
package render
