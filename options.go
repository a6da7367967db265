// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import "log/slog"

// Option configures a Graph during creation.
//
// Example:
//
//	m, _ := rendergraph.NewMetrics(prometheus.DefaultRegisterer)
//	g := rendergraph.New(rendergraph.WithMetrics(m), rendergraph.WithCapacity(256))
type Option func(*options)

// options holds optional configuration for Graph creation.
type options struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics
	capacity int
}

// defaultOptions returns the default graph options.
func defaultOptions() options {
	return options{
		registry: nil, // DefaultRegistry
		logger:   nil, // Logger() at creation time
		capacity: 64,
	}
}

// WithRegistry sets the node kind table used by the graph.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLogger sets a graph-specific logger instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics makes the graph report to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCapacity preallocates room for n nodes per cycle. Non-positive
// values are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
