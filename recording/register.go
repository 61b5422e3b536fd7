// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import "github.com/gogpu/framegraph/backend"

func init() {
	backend.Register("recording", Open)
}

// Open creates a recording Device, PipelineCache and Swapchain bundled as a
// backend instance.
func Open(opts backend.Options) (*backend.Instance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	dev := NewDevice(WithBufferDeviceAddress())
	sc, err := NewSwapchain(dev, opts.Width, opts.Height, opts.SwapchainImages)
	if err != nil {
		return nil, err
	}
	return backend.NewInstance("recording", dev, NewPipelineCache(), sc, sc.Destroy), nil
}
