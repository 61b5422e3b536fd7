// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	frameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "framegraph",
			Subsystem: "render",
			Name:      "frame_duration_seconds",
			Help:      "Time spent recording and submitting one frame",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framegraph",
			Subsystem: "render",
			Name:      "frames_total",
			Help:      "Total number of frames, per outcome",
		},
		[]string{"result"}, // "drawn", "prepare_failed", "draw_failed"
	)
)

// RegisterMetrics registers the renderer metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{frameDuration, framesTotal} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
