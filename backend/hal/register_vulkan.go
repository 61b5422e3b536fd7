// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package hal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	gpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/backend"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register("hal", Open)
}

// Open opens the Vulkan hal backend on the preferred adapter.
func Open(opts backend.Options) (*backend.Instance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b, ok := gpuhal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := b.CreateInstance(&gpuhal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("hal: create instance: %w", err)
	}
	dev, err := openInstance(instance)
	if err != nil {
		return nil, err
	}
	return NewInstance("hal", dev, opts)
}
