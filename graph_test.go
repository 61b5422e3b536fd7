// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/recording"
)

func TestCalculateResourceInfo(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()

	a := rg.CreateImage(testImageDesc)
	b := rg.CreateBuffer(testBufferDesc)
	unused := rg.CreateImage(testDepthDesc)
	imported := rg.ImportImage(env.swap, gpucore.AccessNothing)
	exp := rg.CreateImage(testImageDesc.WithMipLevels(2))

	p0 := rg.AddPass("p0")
	Write(p0, a, gpucore.AccessAnyShaderWrite)
	Write(p0, exp, gpucore.AccessComputeShaderWrite)
	p0.Finish()

	p1 := rg.AddPass("p1")
	Read(p1, a, gpucore.AccessAnyShaderReadSampledImageOrUniformTexelBuffer)
	Write(p1, b, gpucore.AccessTransferWrite)
	p1.Finish()

	p2 := rg.AddPass("p2")
	Read(p2, a, gpucore.AccessTransferRead)
	Read(p2, b, gpucore.AccessIndirectBuffer)
	p2.Finish()

	rg.ExportImage(exp, gpucore.AccessAnyShaderReadSampledImageOrUniformTexelBuffer)

	info := rg.CalculateResourceInfo()

	got := map[string]ResourceLifetime{
		"a":        info.Lifetimes[a.Raw.ID],
		"b":        info.Lifetimes[b.Raw.ID],
		"unused":   info.Lifetimes[unused.Raw.ID],
		"imported": info.Lifetimes[imported.Raw.ID],
		"exported": info.Lifetimes[exp.Raw.ID],
	}
	want := map[string]ResourceLifetime{
		"a":        {LastAccess: 2, Used: true},
		"b":        {LastAccess: 2, Used: true},
		"unused":   {LastAccess: 0, Used: false},
		"imported": {LastAccess: 0, Used: true},
		"exported": {LastAccess: 2, Used: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lifetimes mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t,
		gpucore.TextureUsageStorage|gpucore.TextureUsageSampled|gpucore.TextureUsageTransferSrc,
		info.ImageUsage[a.Raw.ID], "image a usage")
	assert.Equal(t,
		gpucore.BufferUsageTransferDst|gpucore.BufferUsageIndirect,
		info.BufferUsage[b.Raw.ID], "buffer b usage")
	assert.Equal(t,
		gpucore.TextureUsageStorage|gpucore.TextureUsageSampled,
		info.ImageUsage[exp.Raw.ID], "exported image usage")
	assert.Zero(t, info.ImageUsage[unused.Raw.ID], "unused image usage")
}

func TestCalculateResourceInfo_KeepsDescriptorUsage(t *testing.T) {
	rg := NewRenderGraph()
	h := rg.CreateImage(testImageDesc.WithUsage(gpucore.TextureUsageTransferSrc))

	pb := rg.AddPass("write")
	Write(pb, h, gpucore.AccessComputeShaderWrite)
	pb.Finish()

	info := rg.CalculateResourceInfo()
	assert.Equal(t, gpucore.TextureUsageTransferSrc|gpucore.TextureUsageStorage, info.ImageUsage[h.Raw.ID])
}

func TestAccessCategories(t *testing.T) {
	declarations := []struct {
		name    string
		allowed func(gpucore.AccessType) bool
		declare func(pb *PassBuilder, h ImageHandle, a gpucore.AccessType)
	}{
		{"Read", gpucore.IsReadAccess, func(pb *PassBuilder, h ImageHandle, a gpucore.AccessType) { Read(pb, h, a) }},
		{"Write", gpucore.IsWriteAccess, func(pb *PassBuilder, h ImageHandle, a gpucore.AccessType) { Write(pb, h, a) }},
		{"WriteNoSync", gpucore.IsWriteAccess, func(pb *PassBuilder, h ImageHandle, a gpucore.AccessType) { WriteNoSync(pb, h, a) }},
		{"Raster", gpucore.IsRasterAccess, func(pb *PassBuilder, h ImageHandle, a gpucore.AccessType) { Raster(pb, h, a) }},
		{"RasterRead", gpucore.IsRasterReadAccess, func(pb *PassBuilder, h ImageHandle, a gpucore.AccessType) { RasterRead(pb, h, a) }},
	}

	for _, d := range declarations {
		t.Run(d.name, func(t *testing.T) {
			for a := gpucore.AccessNothing; a <= gpucore.AccessGeneral; a++ {
				rg := NewRenderGraph()
				h := rg.CreateImage(testImageDesc)
				pb := rg.AddPass("p")

				err := recoverError(func() { d.declare(pb, h, a) })
				if d.allowed(a) {
					if err != nil {
						t.Errorf("%s(%v) panicked: %v", d.name, a, err)
					}
					continue
				}
				if !errors.Is(err, ErrInvalidAccessType) {
					t.Errorf("%s(%v) = %v, want ErrInvalidAccessType", d.name, a, err)
					continue
				}
				if len(pb.pass.Reads)+len(pb.pass.Writes) != 0 {
					t.Errorf("%s(%v) recorded a ref before panicking", d.name, a)
				}
			}
		})
	}
}

func TestAccessCategories_Examples(t *testing.T) {
	rg := NewRenderGraph()
	h := rg.CreateImage(testImageDesc)
	pb := rg.AddPass("p")

	requirePanicIs(t, ErrInvalidAccessType, func() { Read(pb, h, gpucore.AccessComputeShaderWrite) })
	requirePanicIs(t, ErrInvalidAccessType, func() { Write(pb, h, gpucore.AccessColorAttachmentWrite) })
	requirePanicIs(t, ErrInvalidAccessType, func() { Raster(pb, h, gpucore.AccessComputeShaderWrite) })
	requirePanicIs(t, ErrInvalidAccessType, func() { RasterRead(pb, h, gpucore.AccessNothing) })

	var accessErr *AccessError
	err := recoverError(func() { Write(pb, h, gpucore.AccessTransferRead) })
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, "write", accessErr.Op)
	assert.Equal(t, "p", accessErr.Pass)
	assert.Equal(t, gpucore.AccessTransferRead, accessErr.Access)
}

func TestForeignHandlePanics(t *testing.T) {
	other := NewRenderGraph()
	other.CreateImage(testImageDesc)
	h := other.CreateImage(testImageDesc)

	rg := NewRenderGraph()
	pb := rg.AddPass("p")
	requirePanicIs(t, ErrForeignHandle, func() { Read(pb, h, gpucore.AccessTransferRead) })
	requirePanicIs(t, ErrForeignHandle, func() {
		Write(pb, EmptyHandle[gpucore.TextureDesc](), gpucore.AccessTransferWrite)
	})
}

func TestBarrierElision(t *testing.T) {
	tests := []struct {
		name    string
		declare func(pb *PassBuilder, h ImageHandle)
		want    []string
	}{
		{
			name: "same read skips",
			declare: func(pb *PassBuilder, h ImageHandle) {
				Read(pb, h, gpucore.AccessComputeShaderReadSampledImageOrUniformTexelBuffer)
			},
			want: []string{
				"image Nothing->ComputeShaderReadSampledImageOrUniformTexelBuffer",
				"begin first", "end",
				"begin second", "end",
			},
		},
		{
			name: "same write syncs",
			declare: func(pb *PassBuilder, h ImageHandle) {
				Write(pb, h, gpucore.AccessComputeShaderWrite)
			},
			want: []string{
				"image Nothing->ComputeShaderWrite",
				"begin first", "end",
				"image ComputeShaderWrite->ComputeShaderWrite",
				"begin second", "end",
			},
		},
		{
			name: "no sync write skips",
			declare: func(pb *PassBuilder, h ImageHandle) {
				WriteNoSync(pb, h, gpucore.AccessComputeShaderWrite)
			},
			want: []string{
				"image Nothing->ComputeShaderWrite",
				"begin first", "end",
				"begin second", "end",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rg := NewRenderGraph()
			tex, err := env.dev.CreateTexture(testImageDesc, nil, "target")
			require.NoError(t, err)
			h := rg.ImportImage(tex, gpucore.AccessNothing)

			for _, name := range []string{"first", "second"} {
				pb := rg.AddPass(name)
				tt.declare(pb, h)
				pb.Finish()
			}

			main, present := env.run(t, rg)
			if diff := cmp.Diff(tt.want, summarize(main)); diff != "" {
				t.Errorf("main stream mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, recording.Barriers(present))
		})
	}
}

// A pass writes an image that the next pass reads: the write is pre-warmed
// and exactly one barrier separates the passes.
func TestWriteThenRead(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	h := rg.CreateImage(testImageDesc)

	w := rg.AddPass("write")
	Write(w, h, gpucore.AccessAnyShaderWrite)
	w.Finish()

	r := rg.AddPass("read")
	Read(r, h, gpucore.AccessComputeShaderReadOther)
	r.Finish()

	main, _ := env.run(t, rg)

	want := []string{
		"image Nothing->AnyShaderWrite",
		"begin write", "end",
		"image AnyShaderWrite->ComputeShaderReadOther",
		"begin read", "end",
	}
	if diff := cmp.Diff(want, summarize(main)); diff != "" {
		t.Errorf("main stream mismatch (-want +got):\n%s", diff)
	}

	info, ok := rg.ResourceInfo()
	require.True(t, ok)
	assert.Equal(t, gpucore.TextureUsageStorage, info.ImageUsage[h.Raw.ID]&gpucore.TextureUsageStorage)
	assert.Equal(t, gpucore.TextureUsageStorage|gpucore.TextureUsageSampled, info.ImageUsage[h.Raw.ID])
}

func TestWriteThenRead_BufferUsage(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	h := rg.CreateBuffer(testBufferDesc)

	w := rg.AddPass("write")
	Write(w, h, gpucore.AccessAnyShaderWrite)
	w.Finish()
	r := rg.AddPass("read")
	Read(r, h, gpucore.AccessComputeShaderReadOther)
	r.Finish()

	main, _ := env.run(t, rg)
	barriers := recording.Barriers(main)
	require.Len(t, barriers, 2)

	info, _ := rg.ResourceInfo()
	assert.Equal(t, gpucore.BufferUsageStorage|gpucore.BufferUsageUniformTexel, info.BufferUsage[h.Raw.ID])
}

func TestPresentationSplit(t *testing.T) {
	t.Run("with swapchain writer", func(t *testing.T) {
		env := newTestEnv(t)
		rg := NewRenderGraph()
		img := rg.CreateImage(testImageDesc)
		swap := rg.GetSwapChain()

		p0 := rg.AddPass("render")
		Write(p0, img, gpucore.AccessAnyShaderWrite)
		p0.Finish()

		p1 := rg.AddPass("blit")
		Read(p1, img, gpucore.AccessComputeShaderReadOther)
		Write(p1, swap, gpucore.AccessComputeShaderWrite)
		p1.Finish()

		p2 := rg.AddPass("overlay")
		Write(p2, swap, gpucore.AccessComputeShaderWrite)
		p2.Finish()

		main, present := env.run(t, rg)

		wantMain := []string{
			"image Nothing->AnyShaderWrite",
			"begin render", "end",
		}
		if diff := cmp.Diff(wantMain, summarize(main)); diff != "" {
			t.Errorf("main stream mismatch (-want +got):\n%s", diff)
		}
		wantPresent := []string{
			"image AnyShaderWrite->ComputeShaderReadOther",
			"image ComputeShaderWrite->ComputeShaderWrite",
			"begin blit", "end",
			"image ComputeShaderWrite->ComputeShaderWrite",
			"begin overlay", "end",
		}
		if diff := cmp.Diff(wantPresent, summarize(present)); diff != "" {
			t.Errorf("presentation stream mismatch (-want +got):\n%s", diff)
		}

		// The swapchain barriers target the bound image.
		for _, c := range recording.Barriers(present)[1:] {
			ib, ok := c.(recording.ImageBarrierCommand)
			require.True(t, ok)
			assert.Equal(t, env.swap.ID, ib.Barrier.Texture.ID)
		}
		assert.Empty(t, rg.Passes())
	})

	t.Run("without swapchain writer", func(t *testing.T) {
		env := newTestEnv(t)
		rg := NewRenderGraph()
		img := rg.CreateImage(testImageDesc)

		for _, name := range []string{"a", "b"} {
			pb := rg.AddPass(name)
			Write(pb, img, gpucore.AccessComputeShaderWrite)
			pb.Finish()
		}

		main, present := env.run(t, rg)
		assert.Equal(t, []string{"a", "b"}, recording.Events(main))
		assert.Nil(t, recording.Events(present))
	})
}

func TestReleaseResources_PendingSwapchain(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	swap := rg.GetSwapChain()
	img := rg.CreateImage(testImageDesc)

	p0 := rg.AddPass("render")
	Write(p0, img, gpucore.AccessComputeShaderWrite)
	p0.Finish()
	p1 := rg.AddPass("present")
	Write(p1, swap, gpucore.AccessComputeShaderWrite)
	p1.Finish()

	env.begin(t, rg)
	require.NoError(t, rg.RecordMainCB(recording.NewRecorder("main")))

	err := rg.ReleaseResources(env.tcache)
	require.ErrorIs(t, err, ErrPendingResource)

	// The owned image still went back to the cache.
	images, _ := env.tcache.Len()
	assert.Equal(t, 1, images)
}

func TestExecuteStateErrors(t *testing.T) {
	env := newTestEnv(t)

	rg := NewRenderGraph()
	assert.ErrorIs(t, rg.BeginExecute(), ErrGraphNotCompiled)
	assert.ErrorIs(t, rg.RecordMainCB(recording.NewRecorder("main")), ErrNotExecuting)
	assert.ErrorIs(t, rg.ReleaseResources(env.tcache), ErrNotExecuting)
	assert.ErrorIs(t, rg.Compile(nil), ErrNoExecutionParams)

	require.NoError(t, rg.Compile(env.cache))
	assert.ErrorIs(t, rg.BeginExecute(), ErrNoExecutionParams)
}

func TestTransientReuseAcrossGraphs(t *testing.T) {
	env := newTestEnv(t)

	build := func() (*RenderGraph, ImageHandle) {
		rg := NewRenderGraph()
		h := rg.CreateImage(testImageDesc)
		pb := rg.AddPass("fill")
		Write(pb, h, gpucore.AccessComputeShaderWrite)
		pb.Finish()
		return rg, h
	}

	rg1, h1 := build()
	env.begin(t, rg1)
	tex1, err := Image(rg1.Registry(), Ref[gpucore.TextureDesc, Uav]{Raw: h1.Raw, Desc: h1.Desc})
	require.NoError(t, err)
	require.NoError(t, rg1.RecordMainCB(recording.NewRecorder("main")))
	require.NoError(t, rg1.RecordPresentationCB(recording.NewRecorder("present"), env.swap))
	require.NoError(t, rg1.ReleaseResources(env.tcache))
	created := env.dev.Stats().Created

	rg2, h2 := build()
	env.begin(t, rg2)
	tex2, err := Image(rg2.Registry(), Ref[gpucore.TextureDesc, Uav]{Raw: h2.Raw, Desc: h2.Desc})
	require.NoError(t, err)

	assert.Equal(t, tex1.ID, tex2.ID, "second graph should reuse the cached texture")
	assert.Equal(t, created, env.dev.Stats().Created, "no new objects")
	assert.Equal(t, gpucore.AccessNothing, mustAccess(t, rg2, h2.Raw), "cached resources restart in Nothing")
}

func mustAccess(t *testing.T, rg *RenderGraph, h RawHandle) gpucore.AccessType {
	t.Helper()
	a, ok := rg.Registry().Access(h)
	require.True(t, ok)
	return a
}

func TestExportedAccess(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	h := rg.CreateImage(testImageDesc)

	pb := rg.AddPass("write")
	Write(pb, h, gpucore.AccessComputeShaderWrite)
	pb.Finish()
	exp := rg.ExportImage(h, gpucore.AccessFragmentShaderReadSampledImageOrUniformTexelBuffer)

	_, present := env.run(t, rg)
	assert.Equal(t,
		[]string{"image ComputeShaderWrite->FragmentShaderReadSampledImageOrUniformTexelBuffer"},
		summarize(present))

	access, err := ExportedAccess(rg, exp)
	require.NoError(t, err)
	assert.Equal(t, gpucore.AccessFragmentShaderReadSampledImageOrUniformTexelBuffer, access)

	tex, err := ExportedTexture(rg, exp)
	require.NoError(t, err)
	assert.Equal(t, gpucore.TextureUsageSampled, tex.Desc.Usage&gpucore.TextureUsageSampled)
}

func TestInvalidImageAccessSkipsBarrier(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	tex, err := env.dev.CreateTexture(testImageDesc, nil, "target")
	require.NoError(t, err)
	h := rg.ImportImage(tex, gpucore.AccessNothing)

	pb := rg.AddPass("bad")
	Write(pb, h, gpucore.AccessCommandBufferWriteNVX)
	pb.Finish()

	before := testutil.ToFloat64(barriersSkippedTotal.WithLabelValues("invalid_aspect"))
	main, _ := env.run(t, rg)

	assert.Empty(t, recording.Barriers(main))
	assert.Equal(t, []string{"bad"}, recording.Events(main))
	assert.Greater(t, testutil.ToFloat64(barriersSkippedTotal.WithLabelValues("invalid_aspect")), before)
}

func TestExecute(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	h := rg.CreateBuffer(testBufferDesc)
	ClearBuffer(rg, h, 7)
	rg.RegisterExecutionParams(env.params())

	require.NoError(t, rg.Execute(t.Context()))

	submitted := env.dev.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, []string{"clear buffer"}, recording.Events(submitted[0].Commands()))

	_, buffers := env.tcache.Len()
	assert.Equal(t, 1, buffers)
}

func TestPredefinedDescriptorSet(t *testing.T) {
	layout := gpucore.DescriptorSetLayout{}
	rg := NewRenderGraph(WithPredefinedDescriptorSet(2, layout))
	pb := rg.AddPass("p")
	NewComputePass(pb, "a.wgsl", nil)

	require.Len(t, rg.computePipelines, 1)
	_, ok := rg.computePipelines[0].DescriptorSetOpts[2]
	assert.True(t, ok, "set 2 merged into the pipeline layout")
}

func TestSwapchainAccess(t *testing.T) {
	env := newTestEnv(t)
	rg := NewRenderGraph()
	assert.Equal(t, gpucore.AccessComputeShaderWrite, rg.SwapchainAccess(), "before execution")

	pb := rg.AddPass("ui")
	Raster(pb, rg.GetSwapChain(), gpucore.AccessColorAttachmentWrite)
	pb.Finish()

	env.begin(t, rg)
	require.NoError(t, rg.RecordMainCB(recording.NewRecorder("main")))
	require.NoError(t, rg.RecordPresentationCB(recording.NewRecorder("present"), env.swap))
	assert.Equal(t, gpucore.AccessColorAttachmentWrite, rg.SwapchainAccess())
	require.NoError(t, rg.ReleaseResources(env.tcache))
}
