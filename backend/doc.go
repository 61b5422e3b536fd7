// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend selects a GPU implementation for the frame graph.
//
// A backend bundles the three gpucore capabilities a renderer needs: a
// Device, a PipelineCache and a Swapchain. Backends register themselves
// from init() functions and are opened by name at runtime, following the
// database/sql driver pattern:
//
//	import (
//	    _ "github.com/gogpu/framegraph/backend/hal"  // registers "hal" and "noop"
//	    _ "github.com/gogpu/framegraph/recording"    // registers "recording"
//	)
//
//	inst, err := backend.Open("recording", backend.Options{Width: 640, Height: 480})
//	if err != nil {
//	    // handle error
//	}
//	defer inst.Close()
//
// Default opens the highest priority backend that is registered.
package backend
