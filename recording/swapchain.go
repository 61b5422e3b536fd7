// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/gputypes"
)

// Presentation is one PresentImage call observed by a Swapchain.
type Presentation struct {
	Image     gpucore.SwapchainImage
	Recording *Recording
}

// Swapchain is an offscreen gpucore.Swapchain backed by a recording Device.
// Images are handed out round-robin.
type Swapchain struct {
	mu        sync.Mutex
	dev       *Device
	extent    [2]uint32
	images    []gpucore.Texture
	next      int
	presented []Presentation
}

var _ gpucore.Swapchain = (*Swapchain)(nil)

// NewSwapchain creates count images of the given size on dev.
func NewSwapchain(dev *Device, width, height uint32, count int) (*Swapchain, error) {
	if count <= 0 {
		count = 2
	}
	sc := &Swapchain{dev: dev, extent: [2]uint32{width, height}}
	desc := gpucore.NewTextureDesc2D(gputypes.TextureFormatBGRA8Unorm, width, height).
		WithUsage(gpucore.TextureUsageStorage | gpucore.TextureUsageColorAttachment | gpucore.TextureUsageTransferDst)
	for i := range count {
		tex, err := dev.CreateTexture(desc, nil, fmt.Sprintf("swapchain image %d", i))
		if err != nil {
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
func (s *Swapchain) PresentImage(ctx context.Context, img gpucore.SwapchainImage, cb gpucore.CommandBuffer) error {
	if err := s.dev.Submit(ctx, cb); err != nil {
		return err
	}
	subs := s.dev.Submitted()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented = append(s.presented, Presentation{Image: img, Recording: subs[len(subs)-1]})
	return nil
}

// Extent implements gpucore.Swapchain.
func (s *Swapchain) Extent() [2]uint32 {
	return s.extent
}

// Images returns the swapchain images.
func (s *Swapchain) Images() []gpucore.Texture {
	return s.images
}

// Presented returns every presentation so far.
func (s *Swapchain) Presented() []Presentation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Presentation, len(s.presented))
	copy(out, s.presented)
	return out
}

// Destroy releases the swapchain images.
func (s *Swapchain) Destroy() {
	for _, img := range s.images {
		s.dev.DestroyTexture(img)
	}
	s.images = nil
}
