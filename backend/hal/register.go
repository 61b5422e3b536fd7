// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"os"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
)

func init() {
	backend.Register("noop", OpenNoop)
}

// OpenNoop opens a backend on the wgpu noop device. Commands are validated
// and discarded, which makes it useful for headless tests of the hal path.
func OpenNoop(opts backend.Options) (*backend.Instance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, err
	}
	dev, err := openInstance(instance)
	if err != nil {
		return nil, err
	}
	return NewInstance("noop", dev, opts)
}

// NewInstance bundles dev with a pipeline cache and an offscreen swapchain.
// The instance owns dev.
func NewInstance(name string, dev *Device, opts backend.Options) (*backend.Instance, error) {
	sc, err := NewSwapchain(dev, opts.Width, opts.Height, opts.SwapchainImages)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	var pcOpts []PipelineCacheOption
	if opts.ShaderDir != "" {
		pcOpts = append(pcOpts, WithShaderFS(os.DirFS(opts.ShaderDir)))
	}
	pc := NewPipelineCache(pcOpts...)
	release := func() {
		sc.Destroy()
		pc.Release()
		if err := dev.Close(); err != nil {
			framegraph.Logger().Warn("hal: close device", "backend", name, "error", err)
		}
	}
	return backend.NewInstance(name, dev, pc, sc, release), nil
}
