// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Flush outcomes reported in the flush counter's "result" label.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics holds the Prometheus collectors updated by a Graph.
//
// A nil *Metrics is valid and records nothing, so graphs created without
// WithMetrics pay no cost.
type Metrics struct {
	// Nodes counts appended nodes by kind.
	Nodes *prometheus.CounterVec
	// Rejected counts rejected node creations by kind and error category.
	Rejected *prometheus.CounterVec
	// Edges counts dependency edges.
	Edges prometheus.Counter
	// Barriers counts merged barrier entries emitted by flushes.
	Barriers prometheus.Counter
	// BarrierCommands counts barrier commands emitted by flushes.
	BarrierCommands prometheus.Counter
	// Flushes counts flushes by result.
	Flushes *prometheus.CounterVec
	// FlushSeconds observes flush durations.
	FlushSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rendergraph_nodes_total",
				Help: "Total number of nodes appended to render graphs",
			},
			[]string{"kind"},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rendergraph_rejected_nodes_total",
				Help: "Total number of rejected node creations",
			},
			[]string{"kind", "reason"},
		),
		Edges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendergraph_edges_total",
			Help: "Total number of dependency edges created",
		}),
		Barriers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendergraph_barriers_total",
			Help: "Total number of merged barriers emitted",
		}),
		BarrierCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rendergraph_barrier_commands_total",
			Help: "Total number of barrier commands emitted",
		}),
		Flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rendergraph_flushes_total",
				Help: "Total number of flushes by result",
			},
			[]string{"result"},
		),
		FlushSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rendergraph_flush_duration_seconds",
			Help:    "Time spent recording the command stream",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("rendergraph: register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Nodes, m.Rejected, m.Edges, m.Barriers, m.BarrierCommands, m.Flushes, m.FlushSeconds,
	}
}

func (m *Metrics) nodeAdded(kind NodeKind, edges int) {
	if m == nil {
		return
	}
	m.Nodes.WithLabelValues(kind.String()).Inc()
	m.Edges.Add(float64(edges))
}

func (m *Metrics) nodeRejected(kind NodeKind, err error) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(kind.String(), errorReason(err)).Inc()
}

func (m *Metrics) flushed(stats FlushStats, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Barriers.Add(float64(stats.Barriers))
	m.BarrierCommands.Add(float64(stats.BarrierCommands))
	m.FlushSeconds.Observe(d.Seconds())
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.Flushes.WithLabelValues(result).Inc()
}
