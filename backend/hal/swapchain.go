// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/gpucore"
)

// Swapchain is an offscreen gpucore.Swapchain: images are Device textures
// handed out round-robin, and presenting submits the command buffer.
// Windowed presentation belongs to the host that owns the surface.
type Swapchain struct {
	mu        sync.Mutex
	dev       *Device
	extent    [2]uint32
	images    []gpucore.Texture
	next      int
	presented uint64
}

var _ gpucore.Swapchain = (*Swapchain)(nil)

// NewSwapchain creates count BGRA8 images of the given size on dev.
func NewSwapchain(dev *Device, width, height uint32, count int) (*Swapchain, error) {
	if count <= 0 {
		count = 2
	}
	sc := &Swapchain{dev: dev, extent: [2]uint32{width, height}}
	desc := gpucore.NewTextureDesc2D(gputypes.TextureFormatBGRA8Unorm, width, height).
		WithUsage(gpucore.TextureUsageStorage | gpucore.TextureUsageColorAttachment |
			gpucore.TextureUsageTransferDst | gpucore.TextureUsageTransferSrc)
	for i := range count {
		tex, err := dev.CreateTexture(desc, nil, fmt.Sprintf("swapchain image %d", i))
		if err != nil {
			sc.Destroy()
			return nil, err
		}
		sc.images = append(sc.images, tex)
	}
	return sc, nil
}

// AcquireNextImage implements gpucore.Swapchain.
func (s *Swapchain) AcquireNextImage(ctx context.Context) (gpucore.SwapchainImage, error) {
	if err := ctx.Err(); err != nil {
		return gpucore.SwapchainImage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.next
	s.next = (s.next + 1) % len(s.images)
	return gpucore.SwapchainImage{Texture: s.images[idx], Index: uint32(idx)}, nil // #nosec G115 -- image count is small
}

// PresentImage implements gpucore.Swapchain.
func (s *Swapchain) PresentImage(ctx context.Context, _ gpucore.SwapchainImage, cb gpucore.CommandBuffer) error {
	if err := s.dev.Submit(ctx, cb); err != nil {
		return err
	}
	s.mu.Lock()
	s.presented++
	s.mu.Unlock()
	return nil
}

// Extent implements gpucore.Swapchain.
func (s *Swapchain) Extent() [2]uint32 {
	return s.extent
}

// Presented returns the number of presented images.
func (s *Swapchain) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Destroy releases the swapchain images.
func (s *Swapchain) Destroy() {
	for _, img := range s.images {
		s.dev.DestroyTexture(img)
	}
	s.images = nil
}
