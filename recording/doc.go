// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recording provides a headless implementation of the gpucore
// capability set.
//
// Every GPU command is captured as a typed command value instead of being
// sent to a driver. Commands are stored in a Recording and can be inspected,
// printed with Trace, or replayed onto any gpucore.CommandBuffer with
// Playback.
//
// Design follows the typed-command approach: each command is a plain struct
// so recorded streams can be compared directly in tests, rather than parsed
// out of a binary format.
//
// # Architecture
//
//   - [Recorder] implements gpucore.CommandBuffer
//   - [Device] implements gpucore.Device; objects live in a [ResourcePool]
//     and submitted command buffers are kept in order
//   - [Swapchain] hands out offscreen images round-robin
//   - [PipelineCache] hands out pipeline IDs and can simulate shader
//     compilation failures
//
// Importing the package registers the "recording" backend.
//
// # Example
//
//	dev := recording.NewDevice()
//	cb, _ := dev.BeginCommandBuffer("main")
//	cb.Dispatch(8, 8, 1)
//	_ = dev.Submit(ctx, cb)
//
//	for _, r := range dev.Submitted() {
//	    fmt.Print(recording.Trace(r.Commands()))
//	}
package recording
