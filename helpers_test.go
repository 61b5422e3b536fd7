// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/recording"
	"github.com/gogpu/gputypes"
)

// testEnv is a recording device with everything a graph needs to execute.
type testEnv struct {
	dev    *recording.Device
	cache  *recording.PipelineCache
	arena  *ResourceArena
	tcache *TransientResourceCache
	dc     *DynamicConstants
	swap   gpucore.Texture
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dev := recording.NewDevice(recording.WithBufferDeviceAddress())
	arena := NewResourceArena(dev)
	dc, err := NewDynamicConstants(dev, 4096, 0)
	require.NoError(t, err)
	swap, err := dev.CreateTexture(
		gpucore.NewTextureDesc2D(gputypes.TextureFormatBGRA8Unorm, 64, 64).WithUsage(gpucore.TextureUsageStorage),
		nil, "swapchain")
	require.NoError(t, err)
	return &testEnv{
		dev:    dev,
		cache:  recording.NewPipelineCache(),
		arena:  arena,
		tcache: NewTransientResourceCache(arena),
		dc:     dc,
		swap:   swap,
	}
}

func (e *testEnv) params() ExecutionParams {
	return ExecutionParams{
		Device:             e.dev,
		PipelineCache:      e.cache,
		FrameDescriptorSet: gpucore.InvalidID,
		DynamicConstants:   e.dc,
		TransientCache:     e.tcache,
	}
}

// begin compiles rg, prepares its pipelines and instantiates its resources.
func (e *testEnv) begin(t *testing.T, rg *RenderGraph) {
	t.Helper()
	rg.RegisterExecutionParams(e.params())
	require.NoError(t, rg.Compile(e.cache))
	require.NoError(t, e.cache.PrepareFrame(context.Background(), e.dev))
	require.NoError(t, rg.BeginExecute())
}

// run executes rg as a full frame and returns the main and presentation
// command streams.
func (e *testEnv) run(t *testing.T, rg *RenderGraph) (main, present []recording.Command) {
	t.Helper()
	e.begin(t, rg)

	mainCB := recording.NewRecorder("main")
	require.NoError(t, rg.RecordMainCB(mainCB))
	presentCB := recording.NewRecorder("present")
	require.NoError(t, rg.RecordPresentationCB(presentCB, e.swap))
	require.NoError(t, rg.ReleaseResources(e.tcache))
	return mainCB.Finish().Commands(), presentCB.Finish().Commands()
}

// summarize turns barriers and debug markers into short strings, dropping
// everything else.
func summarize(cmds []recording.Command) []string {
	var out []string
	for _, c := range cmds {
		switch c := c.(type) {
		case recording.ImageBarrierCommand:
			out = append(out, fmt.Sprintf("image %v->%v", c.Barrier.Prev, c.Barrier.Next))
		case recording.BufferBarrierCommand:
			out = append(out, fmt.Sprintf("buffer %v->%v", c.Barrier.Prev, c.Barrier.Next))
		case recording.BeginEventCommand:
			out = append(out, "begin "+c.Name)
		case recording.EndEventCommand:
			out = append(out, "end")
		}
	}
	return out
}

// recoverError runs f and returns the error it panicked with, or nil.
func recoverError(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(error); ok {
			err = e
			return
		}
		err = fmt.Errorf("panic: %v", r)
	}()
	f()
	return nil
}

func requirePanicIs(t *testing.T, target error, f func()) {
	t.Helper()
	err := recoverError(f)
	if err == nil {
		t.Fatalf("expected panic wrapping %v, got none", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("panic = %v, want error wrapping %v", err, target)
	}
}

var (
	testImageDesc  = gpucore.NewTextureDesc2D(gputypes.TextureFormatRGBA16Float, 32, 32)
	testDepthDesc  = gpucore.NewTextureDesc2D(gputypes.TextureFormatDepth32Float, 32, 32)
	testBufferDesc = gpucore.NewBufferDesc(1024, 0)
)
