// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/gpucore"
)

// ErrShaderCompile is returned by PrepareFrame for shaders marked as broken
// with PipelineCache.FailShader.
var ErrShaderCompile = errors.New("recording: shader compilation failed")

// DefaultGroupSize is the compute group size reported for shaders that
// were not given one with SetGroupSize.
var DefaultGroupSize = [3]uint32{8, 8, 1}

type computeEntry struct {
	desc     gpucore.ComputePipelineDesc
	pipeline gpucore.PipelineID
}

type rasterEntry struct {
	desc     gpucore.RasterPipelineDesc
	pipeline gpucore.PipelineID
}

type rayTracingEntry struct {
	desc     gpucore.RayTracingPipelineDesc
	pipeline gpucore.PipelineID
}

// PipelineCache is a gpucore.PipelineCache that "compiles" pipelines by
// handing out IDs. It lets tests make individual shaders fail to exercise
// the renderer's recovery path.
//
// Thread Safety:
// PipelineCache is safe for concurrent use. Lookups take a read lock;
// registration and PrepareFrame take the write lock.
type PipelineCache struct {
	mu sync.RWMutex

	compute    []computeEntry
	raster     []rasterEntry
	rayTracing []rayTracingEntry

	groupSizes map[string][3]uint32
	broken     map[string]bool
	nextID     gpucore.PipelineID

	// Lookup statistics (atomic for lock-free reads).
	hits   uint64
	misses uint64

	prepared uint64
}

var _ gpucore.PipelineCache = (*PipelineCache)(nil)

// NewPipelineCache creates an empty pipeline cache.
func NewPipelineCache() *PipelineCache {
	return &PipelineCache{
		groupSizes: make(map[string][3]uint32),
		broken:     make(map[string]bool),
	}
}

// SetGroupSize sets the compute group size reported for a shader path.
func (c *PipelineCache) SetGroupSize(path string, size [3]uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupSizes[path] = size
}

// FailShader makes every pipeline using path fail to compile until
// FixShader is called.
func (c *PipelineCache) FailShader(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken[path] = true
}

// FixShader undoes FailShader.
func (c *PipelineCache) FixShader(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.broken, path)
}

// RegisterCompute implements gpucore.PipelineCache.
// Registering an identical descriptor twice returns the same ID; the same
// holds for the raster and ray tracing variants.
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
	for i, e := range c.raster {
		if reflect.DeepEqual(e.desc, desc) {
			return gpucore.RasterPipelineID(i) // #nosec G115 -- bounded by registrations
		}
	}
	c.raster = append(c.raster, rasterEntry{desc: desc})
	return gpucore.RasterPipelineID(len(c.raster) - 1) // #nosec G115 -- bounded by registrations
}

// RegisterRayTracing implements gpucore.PipelineCache.
func (c *PipelineCache) RegisterRayTracing(desc gpucore.RayTracingPipelineDesc) gpucore.RayTracingPipelineID {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.rayTracing {
		if reflect.DeepEqual(e.desc, desc) {
			return gpucore.RayTracingPipelineID(i) // #nosec G115 -- bounded by registrations
		}
	}
	c.rayTracing = append(c.rayTracing, rayTracingEntry{desc: desc})
	return gpucore.RayTracingPipelineID(len(c.rayTracing) - 1) // #nosec G115 -- bounded by registrations
}

// PrepareFrame implements gpucore.PipelineCache.
// Every pending pipeline gets an ID unless one of its shaders is broken;
// all failures are reported together.
func (c *PipelineCache) PrepareFrame(ctx context.Context, _ gpucore.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.AddUint64(&c.prepared, 1)

	var errs []error
	for i := range c.compute {
		e := &c.compute[i]
		if e.pipeline != gpucore.InvalidID {
			continue
		}
		if c.broken[e.desc.Source.Path] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrShaderCompile, e.desc.Source.Path))
			continue
		}
		e.pipeline = c.allocID()
	}
	for i := range c.raster {
		e := &c.raster[i]
		if e.pipeline != gpucore.InvalidID {
			continue
		}
		if err := c.checkStages(e.desc.Shaders); err != nil {
			errs = append(errs, err)
			continue
		}
		e.pipeline = c.allocID()
	}
	for i := range c.rayTracing {
		e := &c.rayTracing[i]
		if e.pipeline != gpucore.InvalidID {
			continue
		}
		var stages []gpucore.PipelineShaderDesc
		stages = append(stages, e.desc.RayGen...)
		stages = append(stages, e.desc.Miss...)
		stages = append(stages, e.desc.ClosestHit...)
		stages = append(stages, e.desc.AnyHit...)
		if err := c.checkStages(stages); err != nil {
			errs = append(errs, err)
			continue
		}
		e.pipeline = c.allocID()
	}
	return errors.Join(errs...)
}

func (c *PipelineCache) checkStages(stages []gpucore.PipelineShaderDesc) error {
	for _, s := range stages {
		if c.broken[s.Source.Path] {
			return fmt.Errorf("%w: %s", ErrShaderCompile, s.Source.Path)
		}
	}
	return nil
}

// allocID must be called with c.mu held.
func (c *PipelineCache) allocID() gpucore.PipelineID {
	c.nextID++
	return c.nextID
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
	size, ok := c.groupSizes[e.desc.Source.Path]
	if !ok {
		size = DefaultGroupSize
	}
	return gpucore.ComputePipeline{ID: e.pipeline, GroupSize: size}, true
}

// RasterPipeline implements gpucore.PipelineCache.
func (c *PipelineCache) RasterPipeline(id gpucore.RasterPipelineID) (gpucore.RasterPipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.raster) || c.raster[id].pipeline == gpucore.InvalidID {
		atomic.AddUint64(&c.misses, 1)
		return gpucore.RasterPipeline{}, false
	}
	atomic.AddUint64(&c.hits, 1)
	return gpucore.RasterPipeline{ID: c.raster[id].pipeline}, true
}

// RayTracingPipeline implements gpucore.PipelineCache.
func (c *PipelineCache) RayTracingPipeline(id gpucore.RayTracingPipelineID) (gpucore.RayTracingPipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.rayTracing) || c.rayTracing[id].pipeline == gpucore.InvalidID {
		atomic.AddUint64(&c.misses, 1)
		return gpucore.RayTracingPipeline{}, false
	}
	atomic.AddUint64(&c.hits, 1)
	return gpucore.RayTracingPipeline{ID: c.rayTracing[id].pipeline}, true
}

// ComputeDesc returns the descriptor registered under id.
func (c *PipelineCache) ComputeDesc(id gpucore.ComputePipelineID) (gpucore.ComputePipelineDesc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.compute) {
		return gpucore.ComputePipelineDesc{}, false
	}
	return c.compute[id].desc, true
}

// RasterDesc returns the descriptor registered under id.
func (c *PipelineCache) RasterDesc(id gpucore.RasterPipelineID) (gpucore.RasterPipelineDesc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.raster) {
		return gpucore.RasterPipelineDesc{}, false
	}
	return c.raster[id].desc, true
}

// RefreshShaders implements gpucore.PipelineCache.
func (c *PipelineCache) RefreshShaders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.compute {
		c.compute[i].pipeline = gpucore.InvalidID
	}
	for i := range c.raster {
		c.raster[i].pipeline = gpucore.InvalidID
	}
	for i := range c.rayTracing {
		c.rayTracing[i].pipeline = gpucore.InvalidID
	}
}

// Stats returns lookup hit and miss counts and the number of PrepareFrame calls.
func (c *PipelineCache) Stats() (hits, misses, prepared uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.prepared)
}
