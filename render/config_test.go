// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint32(1280), cfg.Width)
	assert.Equal(t, uint32(720), cfg.Height)
	assert.Equal(t, uint64(framegraph.DynamicConstantsSize), cfg.DynamicConstantsSize)
	assert.Equal(t, framegraph.DefaultFrameArenaChunk, cfg.FrameArenaChunk)
	assert.Empty(t, cfg.Backend)
}

func TestParseConfig(t *testing.T) {
	t.Setenv("FG_SHADER_ROOT", "/opt/fg")
	src := []byte(`
backend    = "recording"
width      = 640
shader_dir = "${env.FG_SHADER_ROOT}/shaders"
`)
	cfg, err := ParseConfig(src, "renderer.hcl")
	require.NoError(t, err)

	assert.Equal(t, "recording", cfg.Backend)
	assert.Equal(t, uint32(640), cfg.Width)
	assert.Equal(t, uint32(720), cfg.Height, "unset fields take defaults")
	assert.Equal(t, "/opt/fg/shaders", cfg.ShaderDir)
	assert.Equal(t, backend.Options{
		Width:           640,
		Height:          720,
		SwapchainImages: backend.DefaultSwapchainImages,
		ShaderDir:       "/opt/fg/shaders",
	}, cfg.BackendOptions())
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `width = `},
		{"unknown attribute", `vsync = true`},
		{"wrong type", `width = "wide"`},
		{"unknown variable", `shader_dir = "${env.FG_SURELY_UNSET_VARIABLE}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.src), "bad.hcl"); err == nil {
				t.Errorf("ParseConfig(%q) error = nil, want error", tt.src)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer.hcl")
	require.NoError(t, os.WriteFile(path, []byte("height = 240\nswapchain_images = 3\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(240), cfg.Height)
	assert.Equal(t, 3, cfg.SwapchainImages)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
