// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fgdemo drives the frame graph renderer for a number of frames and
// prints what each frame submitted.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/recording"
	"github.com/gogpu/framegraph/render"
)

type options struct {
	config    string
	backend   string
	shaderDir string
	frames    int
	decay     float32
	debug     bool
}

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	barrier = color.New(color.FgYellow).SprintFunc()
	event   = color.New(color.FgGreen).SprintFunc()
	failed  = color.New(color.FgRed, color.Bold).SprintFunc()
)

func newRootCommand(out io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "fgdemo",
		Short: "Render frames through the frame graph",
		Long: heading("fgdemo [flags]") + "\n\n" +
			"Renders a small temporal accumulation graph and presents it.\n" +
			"With the recording backend every submitted command buffer is printed.\n\n" +
			"Examples:\n" +
			"  fgdemo --frames 3\n" +
			"  fgdemo --config cmd/fgdemo/fgdemo.hcl --backend noop\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, opts)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	f := cmd.Flags()
	f.StringVarP(&opts.config, "config", "c", "", "HCL configuration file")
	f.StringVarP(&opts.backend, "backend", "b", "", "backend name, overrides the configuration")
	f.StringVar(&opts.shaderDir, "shader-dir", "", "shader directory, overrides the configuration")
	f.IntVarP(&opts.frames, "frames", "n", 2, "number of frames to draw")
	f.Float32Var(&opts.decay, "decay", 0.9, "history decay factor")
	f.BoolVar(&opts.debug, "debug", false, "log barriers and allocations")
	return cmd
}

func loadConfig(opts options) (render.Config, error) {
	cfg := render.DefaultConfig()
	cfg.Backend = "recording"
	if opts.config != "" {
		var err error
		if cfg, err = render.LoadConfig(opts.config); err != nil {
			return cfg, err
		}
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.shaderDir != "" {
		cfg.ShaderDir = opts.shaderDir
	}
	return cfg, nil
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if opts.debug {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	r, err := render.Open(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	rec, _ := r.Instance().Device.(*recording.Device)
	fmt.Fprintf(out, "%s %s %dx%d\n", heading("backend"), r.Instance().Name, cfg.Width, cfg.Height)

	for i := 0; i < opts.frames; i++ {
		tg := r.TemporalGraph()
		if err := r.PrepareFrameConstants(tg, pushGlobals(r.Frame(), opts.decay)); err != nil {
			return err
		}
		if err := r.PrepareFrame(ctx, tg, buildFrame(r.Frame())); err != nil {
			fmt.Fprintf(out, "%s frame %d: %v\n", failed("skipped"), r.Frame(), err)
			continue
		}
		if err := r.DrawFrame(ctx, tg); err != nil {
			return fmt.Errorf("frame %d: %w", r.Frame(), err)
		}
		fmt.Fprintf(out, "%s %d\n", heading("frame"), r.Frame())
		if rec != nil {
			for _, sub := range rec.Submitted() {
				printRecording(out, sub)
			}
			rec.ResetSubmitted()
		}
	}
	var keys []string
	for _, k := range r.Temporal().Keys() {
		keys = append(keys, string(k))
	}
	fmt.Fprintf(out, "%s %s\n", heading("temporal"), strings.Join(keys, ", "))
	return nil
}

func printRecording(out io.Writer, rec *recording.Recording) {
	fmt.Fprintf(out, "  %s (%d commands)\n", heading(rec.Label()), rec.Len())
	for _, line := range strings.Split(strings.TrimRight(recording.Trace(rec.Commands()), "\n"), "\n") {
		switch {
		case strings.Contains(line, "Barrier"):
			line = barrier(line)
		case strings.Contains(line, "BeginEvent"):
			line = event(line)
		}
		fmt.Fprintf(out, "    %s\n", line)
	}
}

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
	if err := newRootCommand(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, failed("error:"), err)
		os.Exit(1)
	}
}
