// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/framegraph/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrInvalidOptions is returned when Options fail validation.
	ErrInvalidOptions = errors.New("backend: invalid options")
)

// Options configures a backend instance.
type Options struct {
	// Width and Height are the swapchain extent in pixels.
	Width, Height uint32

	// SwapchainImages is the number of presentable images.
	// If 0, defaults to 2.
	SwapchainImages int

	// ShaderDir is the directory shader paths are resolved against by
	// backends that compile shaders. Empty means the working directory.
	ShaderDir string
}

// DefaultSwapchainImages is used when Options.SwapchainImages is 0.
const DefaultSwapchainImages = 2

// Validate applies defaults and reports invalid sizes.
func (o *Options) Validate() error {
	if o.Width == 0 || o.Height == 0 {
		return errors.Join(ErrInvalidOptions, errors.New("backend: swapchain extent must be non-zero"))
	}
	if o.SwapchainImages <= 0 {
		o.SwapchainImages = DefaultSwapchainImages
	}
	return nil
}

// Instance is an opened backend.
type Instance struct {
	// Name is the registry name the instance was opened with.
	Name string

	Device        gpucore.Device
	PipelineCache gpucore.PipelineCache
	Swapchain     gpucore.Swapchain

	// release frees backend objects. May be nil.
	release func()
}

// NewInstance assembles an Instance. release is called once by Close.
func NewInstance(name string, dev gpucore.Device, cache gpucore.PipelineCache, sc gpucore.Swapchain, release func()) *Instance {
	return &Instance{Name: name, Device: dev, PipelineCache: cache, Swapchain: sc, release: release}
}

// Close releases every backend object. It is safe to call more than once.
func (i *Instance) Close() {
	if i.release != nil {
		i.release()
		i.release = nil
	}
}
