// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/framegraph/backend/hal"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host, such as a gogpu window, owns the device and queue; the
// renderer only borrows them. The handle must also expose the wgpu hal
// objects through HalDevice() and HalQueue().
type DeviceHandle = gpucontext.DeviceProvider

// NewFromDevice creates a Renderer on a device owned by the host. Close
// releases the objects the renderer created but leaves the device open.
func NewFromDevice(handle DeviceHandle, cfg Config) (*Renderer, error) {
	cfg = cfg.withDefaults()
	dev, err := hal.NewDeviceFromProvider(handle)
	if err != nil {
		return nil, err
	}
	inst, err := hal.NewInstance("host", dev, cfg.BackendOptions())
	if err != nil {
		return nil, err
	}
	r, err := New(inst, cfg)
	if err != nil {
		inst.Close()
		return nil, err
	}
	return r, nil
}
