// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gpucore"
)

// historyLen is the number of floats in the temporal history buffer.
const historyLen = 4096

type globals struct {
	Frame uint32
	Decay float32
}

// pushGlobals returns the frame constants of one demo frame.
func pushGlobals(frame uint64, decay float32) func(*framegraph.DynamicConstants) (framegraph.FrameConstantsLayout, error) {
	return func(dc *framegraph.DynamicConstants) (framegraph.FrameConstantsLayout, error) {
		off, err := framegraph.PushValue(dc, globals{Frame: uint32(frame), Decay: decay}) // #nosec G115 -- wraps in the shader
		return framegraph.FrameConstantsLayout{GlobalsOffset: off}, err
	}
}

// buildFrame accumulates into a buffer kept across frames and clears the
// swapchain image with a color derived from the frame number.
func buildFrame(frame uint64) func(*framegraph.TemporalGraph) error {
	return func(tg *framegraph.TemporalGraph) error {
		history, err := tg.GetOrCreateBuffer("history",
			gpucore.NewBufferDesc(historyLen*4, gpucore.BufferUsageStorage))
		if err != nil {
			return err
		}
		framegraph.NewComputePass(tg.AddPass("accumulate"), "accumulate.wgsl", nil).
			WriteBuffer(history).
			Dispatch([3]uint32{historyLen, 1, 1})

		t := float32(frame%60) / 60
		framegraph.ClearColor(tg.RenderGraph, tg.GetSwapChain(), [4]float32{t, 0.2, 1 - t, 1})
		return nil
	}
}
