// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/framegraph/gpucore"
)

func computeDesc(path string) gpucore.ComputePipelineDesc {
	return gpucore.ComputePipelineDesc{Label: path, Source: gpucore.ShaderSource{Path: path, Entry: "main"}}
}

func TestPipelineCacheRegisterDedup(t *testing.T) {
	c := NewPipelineCache()
	a := c.RegisterCompute(computeDesc("a.wgsl"))
	b := c.RegisterCompute(computeDesc("b.wgsl"))
	a2 := c.RegisterCompute(computeDesc("a.wgsl"))

	if a != a2 {
		t.Errorf("RegisterCompute() for identical desc = %d, want %d", a2, a)
	}
	if a == b {
		t.Error("distinct descriptors share an ID")
	}
}

func TestPipelineCachePrepareFrame(t *testing.T) {
	c := NewPipelineCache()
	ctx := context.Background()
	id := c.RegisterCompute(computeDesc("blur.wgsl"))

	if _, ok := c.ComputePipeline(id); ok {
		t.Fatal("ComputePipeline() ready before PrepareFrame")
	}
	if err := c.PrepareFrame(ctx, nil); err != nil {
		t.Fatalf("PrepareFrame() error = %v", err)
	}
	p, ok := c.ComputePipeline(id)
	if !ok || p.ID == gpucore.InvalidID {
		t.Fatalf("ComputePipeline() = %v, %v after PrepareFrame", p, ok)
	}
	if p.GroupSize != DefaultGroupSize {
		t.Errorf("GroupSize = %v, want %v", p.GroupSize, DefaultGroupSize)
	}

	c.SetGroupSize("blur.wgsl", [3]uint32{64, 1, 1})
	p, _ = c.ComputePipeline(id)
	if p.GroupSize != [3]uint32{64, 1, 1} {
		t.Errorf("GroupSize = %v after SetGroupSize", p.GroupSize)
	}

	hits, misses, prepared := c.Stats()
	if hits != 2 || misses != 1 || prepared != 1 {
		t.Errorf("Stats() = %d/%d/%d, want 2/1/1", hits, misses, prepared)
	}
}

func TestPipelineCacheFailures(t *testing.T) {
	c := NewPipelineCache()
	ctx := context.Background()

	c.FailShader("bad.wgsl")
	good := c.RegisterCompute(computeDesc("good.wgsl"))
	bad := c.RegisterCompute(computeDesc("bad.wgsl"))
	raster := c.RegisterRaster(gpucore.RasterPipelineDesc{Shaders: []gpucore.PipelineShaderDesc{
		{Stage: gpucore.ShaderStageVertex, Source: gpucore.ShaderSource{Path: "bad.wgsl"}},
	}})

	err := c.PrepareFrame(ctx, nil)
	if !errors.Is(err, ErrShaderCompile) {
		t.Fatalf("PrepareFrame() error = %v, want %v", err, ErrShaderCompile)
	}
	if _, ok := c.ComputePipeline(good); !ok {
		t.Error("good pipeline not ready")
	}
	if _, ok := c.ComputePipeline(bad); ok {
		t.Error("bad pipeline ready")
	}
	if _, ok := c.RasterPipeline(raster); ok {
		t.Error("raster pipeline with bad stage ready")
	}

	c.FixShader("bad.wgsl")
	if err := c.PrepareFrame(ctx, nil); err != nil {
		t.Fatalf("PrepareFrame() after fix error = %v", err)
	}
	if _, ok := c.RasterPipeline(raster); !ok {
		t.Error("raster pipeline not ready after fix")
	}
}

func TestPipelineCacheRefreshShaders(t *testing.T) {
	c := NewPipelineCache()
	ctx := context.Background()
	id := c.RegisterRayTracing(gpucore.RayTracingPipelineDesc{
		RayGen: []gpucore.PipelineShaderDesc{{Stage: gpucore.ShaderStageRayGen, Source: gpucore.ShaderSource{Path: "gen.rgen"}}},
	})
	if err := c.PrepareFrame(ctx, nil); err != nil {
		t.Fatal(err)
	}
	first, _ := c.RayTracingPipeline(id)

	c.RefreshShaders()
	if _, ok := c.RayTracingPipeline(id); ok {
		t.Fatal("pipeline still ready after RefreshShaders")
	}
	if err := c.PrepareFrame(ctx, nil); err != nil {
		t.Fatal(err)
	}
	second, _ := c.RayTracingPipeline(id)
	if second.ID == first.ID {
		t.Errorf("recompiled pipeline reused ID %d", first.ID)
	}
}
