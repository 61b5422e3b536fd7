// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/recording"
)

const doubleWGSL = `@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * SCALE;
}
`

var storageSet = gpucore.DescriptorSetOpts{
	0: {Bindings: []gpucore.DescriptorBindingLayout{
		{Binding: 0, Type: gpucore.DescriptorStorageBuffer, Count: 1, Stages: gpucore.ShaderStageCompute},
	}},
}

func doubleDesc() gpucore.ComputePipelineDesc {
	return gpucore.ComputePipelineDesc{
		Label:             "double",
		Source:            gpucore.ShaderSource{Path: "shaders/double.wgsl"},
		Defines:           []gpucore.ShaderDefine{{Name: "SCALE", Value: "2u"}},
		DescriptorSetOpts: storageSet,
	}
}

func newTestCache() *PipelineCache {
	return NewPipelineCache(WithShaderFS(fstest.MapFS{
		"shaders/double.wgsl": {Data: []byte(doubleWGSL)},
	}), WithCompileParallelism(2))
}

// skipIfNoCompiler skips when naga cannot translate the test shader, which
// leaves nothing for the noop device to build.
func skipIfNoCompiler(t *testing.T, err error) {
	t.Helper()
	if err != nil && strings.Contains(err.Error(), "compile shader") {
		t.Skipf("shader compiler unavailable: %v", err)
	}
}

func TestParseGroupSize(t *testing.T) {
	tests := []struct {
		src  string
		want [3]uint32
	}{
		{"@compute @workgroup_size(64) fn main() {}", [3]uint32{64, 1, 1}},
		{"@compute @workgroup_size(8, 8) fn main() {}", [3]uint32{8, 8, 1}},
		{"@compute @workgroup_size( 4 , 2 , 2 ) fn main() {}", [3]uint32{4, 2, 2}},
		{"@compute @workgroup_size(16, 16,) fn main() {}", [3]uint32{16, 16, 1}},
		{"fn helper() {}", DefaultGroupSize},
	}
	for _, tt := range tests {
		if got := parseGroupSize(tt.src); got != tt.want {
			t.Errorf("parseGroupSize(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestSetLayoutsFillsGaps(t *testing.T) {
	layouts := setLayouts(gpucore.DescriptorSetOpts{2: storageSet[0]})
	if len(layouts) != 3 {
		t.Fatalf("len = %d, want 3", len(layouts))
	}
	if len(layouts[0].Bindings) != 0 || len(layouts[1].Bindings) != 0 {
		t.Error("gap sets should be empty")
	}
	if len(layouts[2].Bindings) != 1 {
		t.Error("set 2 lost its bindings")
	}
	if setLayouts(nil) != nil {
		t.Error("no sets should give no layouts")
	}
}

func TestLoadSourcePrependsDefines(t *testing.T) {
	c := newTestCache()
	src, err := c.loadSource(gpucore.ShaderSource{Path: "shaders/double.wgsl"},
		[]gpucore.ShaderDefine{{Name: "SCALE", Value: "2u"}, {Name: "FAST"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(src, "const SCALE = 2u;\nconst FAST = 1;\n@group(0)") {
		t.Errorf("unexpected source prefix:\n%s", src[:60])
	}

	if _, err := c.loadSource(gpucore.ShaderSource{Path: "missing.wgsl"}, nil); err == nil {
		t.Error("missing shader file should fail")
	}

	inline, err := c.loadSource(gpucore.ShaderSource{Code: "fn f() {}"}, nil)
	if err != nil || inline != "fn f() {}" {
		t.Errorf("inline source = %q, %v", inline, err)
	}
}

func TestPipelineCacheRegisterDedup(t *testing.T) {
	c := newTestCache()
	a := c.RegisterCompute(doubleDesc())
	b := c.RegisterCompute(doubleDesc())
	if a != b {
		t.Errorf("identical descriptors got IDs %d and %d", a, b)
	}
	other := doubleDesc()
	other.Label = "triple"
	if c.RegisterCompute(other) == a {
		t.Error("different descriptors share an ID")
	}
}

func TestPipelineCacheCompileAndDispatch(t *testing.T) {
	d := newTestDevice(t)
	c := newTestCache()
	t.Cleanup(c.Release)
	ctx := context.Background()

	id := c.RegisterCompute(doubleDesc())
	if _, ok := c.ComputePipeline(id); ok {
		t.Fatal("pipeline ready before PrepareFrame")
	}
	err := c.PrepareFrame(ctx, d)
	skipIfNoCompiler(t, err)
	if err != nil {
		t.Fatalf("PrepareFrame: %v", err)
	}
	p, ok := c.ComputePipeline(id)
	if !ok {
		t.Fatal("pipeline not ready after PrepareFrame")
	}
	if p.GroupSize != [3]uint32{64, 1, 1} {
		t.Errorf("GroupSize = %v, want [64 1 1]", p.GroupSize)
	}

	buf, err := d.CreateBuffer(gpucore.NewBufferDesc(256, gpucore.BufferUsageStorage), "data", nil)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := d.BeginCommandBuffer("double")
	if err != nil {
		t.Fatal(err)
	}
	cb.BindPipeline(gpucore.BindPointCompute, p.ID)
	cb.BindDescriptorSet(gpucore.BindPointCompute, p.ID, 0, []gpucore.DescriptorBinding{
		{Binding: 0, Kind: gpucore.DescriptorKindBuffer, Buffer: buf},
	})
	cb.Dispatch(1, 1, 1)
	if err := d.Submit(ctx, cb); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// A second PrepareFrame compiles nothing new.
	if err := c.PrepareFrame(ctx, d); err != nil {
		t.Fatal(err)
	}
	stats := c.Stats()
	if stats.Prepared != 2 || stats.Shaders.Len != 1 {
		t.Errorf("Stats() = %+v, want 2 prepares and 1 shader", stats)
	}

	c.RefreshShaders()
	if _, ok := c.ComputePipeline(id); ok {
		t.Error("pipeline still ready after RefreshShaders")
	}
	if err := c.PrepareFrame(ctx, d); err != nil {
		t.Fatalf("PrepareFrame after refresh: %v", err)
	}
	if p2, ok := c.ComputePipeline(id); !ok || p2.ID == p.ID {
		t.Errorf("refreshed pipeline = %+v, %v; want a new ID", p2, ok)
	}
}

func TestPipelineCachePartialFailure(t *testing.T) {
	d := newTestDevice(t)
	c := newTestCache()
	t.Cleanup(c.Release)

	good := c.RegisterCompute(doubleDesc())
	missing := doubleDesc()
	missing.Label = "missing"
	missing.Source.Path = "shaders/missing.wgsl"
	bad := c.RegisterCompute(missing)
	pushes := doubleDesc()
	pushes.Label = "pushes"
	pushes.PushConstantsBytes = 16
	c.RegisterCompute(pushes)
	c.RegisterRaster(gpucore.RasterPipelineDesc{Label: "raster"})

	err := c.PrepareFrame(context.Background(), d)
	skipIfNoCompiler(t, err)
	if err == nil {
		t.Fatal("PrepareFrame should report failures")
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error %v should include ErrUnsupported", err)
	}
	if _, ok := c.ComputePipeline(good); !ok {
		t.Error("good pipeline should compile despite failures")
	}
	if _, ok := c.ComputePipeline(bad); ok {
		t.Error("pipeline with a missing shader should not be ready")
	}
	if _, ok := c.RasterPipeline(0); ok {
		t.Error("raster pipelines are never ready")
	}
}

func TestPipelineCacheForeignDevice(t *testing.T) {
	c := newTestCache()
	err := c.PrepareFrame(context.Background(), recording.NewDevice())
	if !errors.Is(err, ErrForeignDevice) {
		t.Errorf("PrepareFrame() error = %v, want ErrForeignDevice", err)
	}
}

func TestOpenNoopBackend(t *testing.T) {
	inst, err := backend.Open("noop", backend.Options{Width: 32, Height: 16})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if inst.Name != "noop" {
		t.Errorf("Name = %q, want noop", inst.Name)
	}
	if got := inst.Swapchain.Extent(); got != [2]uint32{32, 16} {
		t.Errorf("Extent() = %v", got)
	}

	ctx := context.Background()
	img, err := inst.Swapchain.AcquireNextImage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	next, err := inst.Swapchain.AcquireNextImage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if img.Index == next.Index {
		t.Error("images should be handed out round-robin")
	}

	cb, err := inst.Device.BeginCommandBuffer("present")
	if err != nil {
		t.Fatal(err)
	}
	cb.ImageBarrier(gpucore.ImageBarrier{Texture: img.Texture, Prev: gpucore.AccessNothing, Next: gpucore.AccessPresent, Discard: true})
	if err := inst.Swapchain.PresentImage(ctx, img, cb); err != nil {
		t.Fatalf("PresentImage: %v", err)
	}
	if got := inst.Swapchain.(*Swapchain).Presented(); got != 1 {
		t.Errorf("Presented() = %d, want 1", got)
	}
}
