// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hal runs the frame graph on wgpu's hardware abstraction layer.
//
// Device maps gpucore resources to hal objects and submits command buffers
// against a timeline fence, keeping at most DefaultFramesInFlight
// submissions pending. Objects destroyed while the GPU may still use them
// are released when their submission retires.
//
// PipelineCache compiles WGSL compute shaders to SPIR-V with naga and
// builds compute pipelines. Only buffer bindings are supported in
// descriptor sets, and graphics work is limited to clears and
// non-indexed draws inside render passes; other commands make Submit fail
// with ErrUnsupported.
//
// Importing the package registers two backends:
//
//	"hal"   Vulkan on the first discrete or integrated GPU
//	"noop"  the wgpu noop device, for headless runs
//
// Build with -tags nogpu to leave out the Vulkan backend. A host that
// already owns a device, such as a gogpu window, can share it through
// NewDeviceFromProvider.
package hal
