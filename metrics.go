// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "framegraph"
)

var (
	barriersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "barriers_total",
			Help:      "Total number of barriers recorded, per resource kind",
		},
		[]string{"kind"},
	)

	barriersSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "barriers_skipped_total",
			Help:      "Total number of transitions that recorded no barrier, per reason",
		},
		[]string{"reason"}, // "same_access", "invalid_aspect", "pending"
	)

	transientHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transient_cache",
			Name:      "hits_total",
			Help:      "Total number of transient cache lookups served from the cache",
		},
		[]string{"kind"},
	)

	transientMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transient_cache",
			Name:      "misses_total",
			Help:      "Total number of transient cache lookups that needed an allocation",
		},
		[]string{"kind"},
	)

	passesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "passes_recorded_total",
			Help:      "Total number of passes recorded into command buffers, per stream",
		},
		[]string{"stream"}, // "main" or "presentation"
	)

	temporalConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "temporal_conflicts_total",
			Help:      "Total number of refused temporal resource lookups",
		},
		[]string{"reason"}, // "taken" or "kind"
	)
)

// RegisterMetrics registers the graph metrics with reg.
// Metrics are collected whether or not they are registered.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		barriersTotal,
		barriersSkippedTotal,
		transientHits,
		transientMisses,
		passesRecordedTotal,
		temporalConflictsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
