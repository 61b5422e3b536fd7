// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecording(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs([]string{"--frames", "2"})
	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "backend recording")
	assert.Contains(t, got, "frame 2")
	assert.Contains(t, got, "BeginEvent accumulate")
	assert.Contains(t, got, "main (")
	assert.Contains(t, got, "presentation (")
	assert.Contains(t, got, "temporal history")
}

func TestRunConfigFile(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "demo.hcl")
	require.NoError(t, os.WriteFile(path, []byte("backend = \"recording\"\nwidth = 32\nheight = 16\n"), 0o600))

	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs([]string{"-c", path, "-n", "1"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "32x16")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown backend", []string{"--backend", "missing"}},
		{"missing config", []string{"--config", "does-not-exist.hcl"}},
		{"positional args", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			assert.Error(t, cmd.Execute())
		})
	}
}
