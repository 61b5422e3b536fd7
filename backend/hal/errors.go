// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import "errors"

// HAL backend errors.
var (
	// ErrUnsupported is returned for resources and commands the hal backend
	// cannot express, such as ray tracing or push constants.
	ErrUnsupported = errors.New("hal: unsupported")

	// ErrUnknownResource is returned when an ID does not belong to the device.
	ErrUnknownResource = errors.New("hal: unknown resource")

	// ErrForeignDevice is returned when a command buffer or pipeline cache is
	// used with a gpucore.Device that is not a *hal.Device.
	ErrForeignDevice = errors.New("hal: foreign device")

	// ErrNoHALProvider is returned by NewDeviceFromProvider when the provider
	// does not expose hal device and queue objects.
	ErrNoHALProvider = errors.New("hal: provider does not expose HAL types")

	// ErrFenceTimeout is returned when the GPU does not reach a fence value
	// within the wait timeout.
	ErrFenceTimeout = errors.New("hal: fence wait timed out")

	// ErrNoAdapter is returned when an instance exposes no adapters.
	ErrNoAdapter = errors.New("hal: no GPU adapters found")
)

// ErrOutOfRange is returned when a write does not fit its buffer.
var ErrOutOfRange = errors.New("hal: write out of range")
