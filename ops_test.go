// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/recording"
)

func TestImageOps(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	color := rg.CreateImage(testImageDesc)
	copyDst := rg.CreateImage(testImageDesc)
	depth := rg.CreateImage(testDepthDesc)

	ClearColor(rg, color, [4]float32{1, 0, 0, 1})
	ClearDepth(rg, depth, 1, 0)
	CopyImage(rg, color, copyDst)

	main, _ := env.run(t, rg)
	assert.Equal(t, []string{"clear color", "clear depth", "copy image"}, recording.Events(main))

	clears := commandsOf[recording.ClearImageCommand](main)
	require.Len(t, clears, 2)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, clears[0].Value.Color)
	assert.Equal(t, float32(1), clears[1].Value.Depth)

	copies := commandsOf[recording.CopyImageCommand](main)
	require.Len(t, copies, 1)
	assert.Equal(t, clears[0].Texture.ID, copies[0].Src.ID)
	assert.NotEqual(t, copies[0].Src.ID, copies[0].Dst.ID)

	want := []string{
		"image Nothing->TransferWrite",
		"image Nothing->TransferWrite",
		"image Nothing->TransferWrite",
		"begin clear color", "end",
		"begin clear depth", "end",
		"image TransferWrite->TransferRead",
		"begin copy image", "end",
	}
	if diff := cmp.Diff(want, summarize(main)); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}

	info, _ := rg.ResourceInfo()
	assert.Equal(t, gpucore.TextureUsageTransferDst|gpucore.TextureUsageTransferSrc, info.ImageUsage[color.Raw.ID])
	assert.Equal(t, gpucore.TextureUsageTransferDst, info.ImageUsage[copyDst.Raw.ID])
}

func TestBufferOps(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	src := rg.CreateBuffer(testBufferDesc)
	dst := rg.CreateBuffer(gpucore.NewBufferDesc(512, 0))

	ClearBuffer(rg, src, 0xdeadbeef)
	CopyBuffer(rg, src, dst)

	main, _ := env.run(t, rg)
	assert.Equal(t, []string{"clear buffer", "copy buffer"}, recording.Events(main))

	clears := commandsOf[recording.ClearBufferCommand](main)
	require.Len(t, clears, 1)
	assert.Equal(t, uint32(0xdeadbeef), clears[0].Value)

	copies := commandsOf[recording.CopyBufferCommand](main)
	require.Len(t, copies, 1)
	assert.Equal(t, uint64(512), copies[0].Size)
	assert.Equal(t, clears[0].Buffer.ID, copies[0].Src.ID)
}
