// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	gpuhal "github.com/gogpu/wgpu/hal"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gpucore"
	"github.com/gogpu/framegraph/internal/cache"
)

// DefaultGroupSize is used for shaders without a @workgroup_size attribute.
var DefaultGroupSize = [3]uint32{8, 8, 1}

// DefaultShaderCacheSize is the soft limit of compiled shader modules kept
// between RefreshShaders calls.
const DefaultShaderCacheSize = 256

var workgroupSizeRe = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?(?:,\s*(\d+)\s*)?,?\s*\)`)

type computeEntry struct {
	desc      gpucore.ComputePipelineDesc
	pipeline  gpucore.PipelineID
	groupSize [3]uint32
}

// PipelineCacheOption configures a PipelineCache.
type PipelineCacheOption func(*PipelineCache)

// WithShaderFS sets the file system shader paths are read from.
// The default is the working directory.
func WithShaderFS(fsys fs.FS) PipelineCacheOption {
	return func(c *PipelineCache) { c.fsys = fsys }
}

// WithCompileParallelism bounds the number of pipelines compiled at once.
func WithCompileParallelism(n int) PipelineCacheOption {
	return func(c *PipelineCache) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// PipelineCache compiles WGSL compute shaders with naga and builds hal
// compute pipelines on a Device.
//
// Raster and ray tracing pipelines can be registered but never become
// ready: PrepareFrame reports them as ErrUnsupported.
//
// Thread Safety:
// PipelineCache is safe for concurrent use.
type PipelineCache struct {
	mu sync.RWMutex

	fsys        fs.FS
	parallelism int

	compute    []computeEntry
	raster     []gpucore.RasterPipelineDesc
	rayTracing []gpucore.RayTracingPipelineDesc

	// spirv caches compiled modules by source and defines.
	spirv *cache.Cache[string, []uint32]
	dev   *Device

	hits     uint64
	misses   uint64
	prepared uint64
}

var _ gpucore.PipelineCache = (*PipelineCache)(nil)

// NewPipelineCache creates an empty pipeline cache.
func NewPipelineCache(opts ...PipelineCacheOption) *PipelineCache {
	c := &PipelineCache{
		fsys:        os.DirFS("."),
		parallelism: runtime.GOMAXPROCS(0),
		spirv: cache.New(DefaultShaderCacheSize, cache.WithEvict(func(key string, _ []uint32) {
			framegraph.Logger().Debug("hal: shader module evicted", "key", shortKey(key))
		})),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func shortKey(key string) string {
	if len(key) > 64 {
		return key[:64] + "..."
	}
	return key
}

// RegisterCompute implements gpucore.PipelineCache. Identical descriptors
// share an ID.
func (c *PipelineCache) RegisterCompute(desc gpucore.ComputePipelineDesc) gpucore.ComputePipelineID {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.compute {
		if reflect.DeepEqual(e.desc, desc) {
			return gpucore.ComputePipelineID(i) // #nosec G115 -- bounded by registrations
		}
	}
	c.compute = append(c.compute, computeEntry{desc: desc})
	return gpucore.ComputePipelineID(len(c.compute) - 1) // #nosec G115 -- bounded by registrations
}

// RegisterRaster implements gpucore.PipelineCache.
func (c *PipelineCache) RegisterRaster(desc gpucore.RasterPipelineDesc) gpucore.RasterPipelineID {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.raster {
		if reflect.DeepEqual(d, desc) {
			return gpucore.RasterPipelineID(i) // #nosec G115 -- bounded by registrations
		}
	}
	c.raster = append(c.raster, desc)
	return gpucore.RasterPipelineID(len(c.raster) - 1) // #nosec G115 -- bounded by registrations
}

// RegisterRayTracing implements gpucore.PipelineCache.
func (c *PipelineCache) RegisterRayTracing(desc gpucore.RayTracingPipelineDesc) gpucore.RayTracingPipelineID {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.rayTracing {
		if reflect.DeepEqual(d, desc) {
			return gpucore.RayTracingPipelineID(i) // #nosec G115 -- bounded by registrations
		}
	}
	c.rayTracing = append(c.rayTracing, desc)
	return gpucore.RayTracingPipelineID(len(c.rayTracing) - 1) // #nosec G115 -- bounded by registrations
}

// PrepareFrame implements gpucore.PipelineCache. Pending compute pipelines
// are compiled concurrently; every failure is reported in the joined error
// and leaves only that pipeline unavailable.
func (c *PipelineCache) PrepareFrame(ctx context.Context, dev gpucore.Device) error {
	d, ok := dev.(*Device)
	if !ok {
		return fmt.Errorf("%w: device %T", ErrForeignDevice, dev)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.AddUint64(&c.prepared, 1)
	if c.dev != nil && c.dev != d {
		return fmt.Errorf("%w: pipeline cache already bound to another device", ErrForeignDevice)
	}
	c.dev = d

	var (
		errMu sync.Mutex
		errs  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i := range c.compute {
		e := &c.compute[i]
		if e.pipeline != gpucore.InvalidID {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := c.build(d, e.desc)
			if err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("hal: compute pipeline %q: %w", e.desc.Label, err))
				errMu.Unlock()
				return nil
			}
			e.pipeline = d.registerPipeline(p)
			e.groupSize = p.groupSize
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	for _, desc := range c.raster {
		errs = append(errs, fmt.Errorf("%w: raster pipeline %q", ErrUnsupported, desc.Label))
	}
	for _, desc := range c.rayTracing {
		errs = append(errs, fmt.Errorf("%w: ray tracing pipeline %q", ErrUnsupported, desc.Label))
	}
	return errors.Join(errs...)
}

// build compiles one compute pipeline. It does not touch c's entries.
func (c *PipelineCache) build(d *Device, desc gpucore.ComputePipelineDesc) (*computePipeline, error) {
	if desc.PushConstantsBytes > 0 {
		return nil, fmt.Errorf("%w: push constants", ErrUnsupported)
	}
	source, err := c.loadSource(desc.Source, desc.Defines)
	if err != nil {
		return nil, err
	}
	// Compile outside the cache lock so pipelines build in parallel; a
	// duplicate compile of the same source is harmless.
	spirv, found := c.spirv.Get(source)
	if !found {
		if spirv, err = compileWGSL(source); err != nil {
			return nil, err
		}
		c.spirv.Set(source, spirv)
	}

	p := &computePipeline{groupSize: parseGroupSize(source)}
	ok := false
	defer func() {
		if !ok {
			d.destroyPipelineLocked(p)
		}
	}()

	for _, set := range setLayouts(desc.DescriptorSetOpts) {
		bgl, err := d.createSetLayout(desc.Label, set)
		if err != nil {
			return nil, err
		}
		p.sets = append(p.sets, bgl)
	}
	p.layout, err = d.raw.CreatePipelineLayout(&gpuhal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.sets,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	module, err := d.raw.CreateShaderModule(&gpuhal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: gpuhal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	defer d.raw.DestroyShaderModule(module)

	entry := desc.Source.Entry
	if entry == "" {
		entry = "main"
	}
	p.raw, err = d.raw.CreateComputePipeline(&gpuhal.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  p.layout,
		Compute: gpuhal.ComputeState{Module: module, EntryPoint: entry},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	ok = true
	return p, nil
}

// loadSource returns the WGSL text of src with defines prepended as
// module-scope constants.
func (c *PipelineCache) loadSource(src gpucore.ShaderSource, defines []gpucore.ShaderDefine) (string, error) {
	code := src.Code
	if code == "" {
		data, err := fs.ReadFile(c.fsys, src.Path)
		if err != nil {
			return "", fmt.Errorf("read shader: %w", err)
		}
		code = string(data)
	}
	if len(defines) == 0 {
		return code, nil
	}
	var b strings.Builder
	for _, def := range defines {
		value := def.Value
		if value == "" {
			value = "1"
		}
		fmt.Fprintf(&b, "const %s = %s;\n", def.Name, value)
	}
	b.WriteString(code)
	return b.String(), nil
}

// compileWGSL compiles WGSL to little-endian SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// parseGroupSize reads the first @workgroup_size attribute of source.
// Omitted dimensions are 1.
func parseGroupSize(source string) [3]uint32 {
	m := workgroupSizeRe.FindStringSubmatch(source)
	if m == nil {
		return DefaultGroupSize
	}
	size := [3]uint32{1, 1, 1}
	for i := range size {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseUint(m[i+1], 10, 32)
		if err != nil || v == 0 {
			return DefaultGroupSize
		}
		size[i] = uint32(v)
	}
	return size
}

// setLayouts returns one layout per set index up to the highest one in
// opts. Gaps get empty layouts.
func setLayouts(opts gpucore.DescriptorSetOpts) []gpucore.DescriptorSetLayout {
	sets := opts.Sets()
	if len(sets) == 0 {
		return nil
	}
	out := make([]gpucore.DescriptorSetLayout, sets[len(sets)-1]+1)
	for _, s := range sets {
		out[s] = opts[s]
	}
	return out
}

// ComputePipeline implements gpucore.PipelineCache.
func (c *PipelineCache) ComputePipeline(id gpucore.ComputePipelineID) (gpucore.ComputePipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.compute) || c.compute[id].pipeline == gpucore.InvalidID {
		atomic.AddUint64(&c.misses, 1)
		return gpucore.ComputePipeline{}, false
	}
	atomic.AddUint64(&c.hits, 1)
	e := c.compute[id]
	return gpucore.ComputePipeline{ID: e.pipeline, GroupSize: e.groupSize}, true
}

// RasterPipeline implements gpucore.PipelineCache. It always misses.
func (c *PipelineCache) RasterPipeline(gpucore.RasterPipelineID) (gpucore.RasterPipeline, bool) {
	atomic.AddUint64(&c.misses, 1)
	return gpucore.RasterPipeline{}, false
}

// RayTracingPipeline implements gpucore.PipelineCache. It always misses.
func (c *PipelineCache) RayTracingPipeline(gpucore.RayTracingPipelineID) (gpucore.RayTracingPipeline, bool) {
	atomic.AddUint64(&c.misses, 1)
	return gpucore.RayTracingPipeline{}, false
}

// RefreshShaders implements gpucore.PipelineCache. Shader files are read
// again by the next PrepareFrame.
func (c *PipelineCache) RefreshShaders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.spirv.Clear()
}

// Release destroys every compiled pipeline.
func (c *PipelineCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.dev = nil
}

func (c *PipelineCache) releaseLocked() {
	for i := range c.compute {
		e := &c.compute[i]
		if e.pipeline != gpucore.InvalidID && c.dev != nil {
			c.dev.releasePipeline(e.pipeline)
		}
		e.pipeline = gpucore.InvalidID
	}
}

// PipelineCacheStats reports pipeline lookups and shader compilation.
type PipelineCacheStats struct {
	Hits, Misses uint64
	Prepared     uint64
	Shaders      cache.Stats
}

// Stats returns lookup and shader cache statistics.
func (c *PipelineCache) Stats() PipelineCacheStats {
	return PipelineCacheStats{
		Hits:     atomic.LoadUint64(&c.hits),
		Misses:   atomic.LoadUint64(&c.misses),
		Prepared: atomic.LoadUint64(&c.prepared),
		Shaders:  c.spirv.Stats(),
	}
}
