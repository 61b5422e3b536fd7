// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
)

// Config holds Renderer settings. Zero fields take the DefaultConfig value.
type Config struct {
	// Backend is the backend registry name. Empty selects backend.Default.
	Backend string `hcl:"backend,optional"`

	// Width and Height are the swapchain extent in pixels.
	Width  uint32 `hcl:"width,optional"`
	Height uint32 `hcl:"height,optional"`

	// SwapchainImages is the number of presentable images.
	SwapchainImages int `hcl:"swapchain_images,optional"`

	// DynamicConstantsSize is the constants budget of one frame in bytes.
	DynamicConstantsSize uint64 `hcl:"dynamic_constants_size,optional"`

	// FrameArenaChunk is the chunk size of the per-frame scratch arena.
	FrameArenaChunk int `hcl:"frame_arena_chunk,optional"`

	// ShaderDir is where shader paths are resolved.
	ShaderDir string `hcl:"shader_dir,optional"`
}

// DefaultConfig returns the default renderer settings.
func DefaultConfig() Config {
	return Config{
		Width:                1280,
		Height:               720,
		SwapchainImages:      backend.DefaultSwapchainImages,
		DynamicConstantsSize: framegraph.DynamicConstantsSize,
		FrameArenaChunk:      framegraph.DefaultFrameArenaChunk,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Width == 0 {
		c.Width = def.Width
	}
	if c.Height == 0 {
		c.Height = def.Height
	}
	if c.SwapchainImages <= 0 {
		c.SwapchainImages = def.SwapchainImages
	}
	if c.DynamicConstantsSize == 0 {
		c.DynamicConstantsSize = def.DynamicConstantsSize
	}
	if c.FrameArenaChunk <= 0 {
		c.FrameArenaChunk = def.FrameArenaChunk
	}
	return c
}

// BackendOptions returns the options used to open the backend.
func (c Config) BackendOptions() backend.Options {
	c = c.withDefaults()
	return backend.Options{
		Width:           c.Width,
		Height:          c.Height,
		SwapchainImages: c.SwapchainImages,
		ShaderDir:       c.ShaderDir,
	}
}

// LoadConfig reads a Config from an HCL file.
func LoadConfig(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("render: failed to parse config %s: %w", path, diags)
	}
	return decodeConfig(path, file)
}

// ParseConfig reads a Config from HCL source. filename is used in
// diagnostics only.
func ParseConfig(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("render: failed to parse config %s: %w", filename, diags)
	}
	return decodeConfig(filename, file)
}

func decodeConfig(filename string, file *hcl.File) (Config, error) {
	var cfg Config
	diags := gohcl.DecodeBody(file.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("render: failed to decode config %s: %w", filename, diags)
	}
	return cfg.withDefaults(), nil
}

// evalContext exposes the process environment as env.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}
