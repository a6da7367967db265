// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"
)

// ErrInvalidHandle is returned when the zero handle is imported.
var ErrInvalidHandle = errors.New("rendergraph: invalid handle")

// Graph records GPU operations for one cycle and schedules them.
//
// A cycle is Begin, any number of node creations, Flush and Clear. Nodes
// get dense indices in creation order and may only depend on earlier
// nodes. Resources must be imported before use; imports survive Clear.
//
// Graph is not safe for concurrent use. Independent graphs share no state.
type Graph struct {
	registry *Registry
	tracker  *Tracker
	store    *Store
	links    linkBuilder
	recorder *Recorder
	logger   *slog.Logger
	metrics  *Metrics

	phase Phase
	// scope is the open BeginRendering node, or NoNode.
	scope NodeIndex
	// queries maps active queries to the scope they began in.
	queries map[queryKey]NodeIndex
	// ended is set once the cycle was flushed; Clear resets it.
	ended     bool
	submitted bool
	last      FlushStats
}

// New creates an empty graph.
//
// Example:
//
//	g := rendergraph.New()
//	g.ImportBuffer(src, gputypes.BufferUsageCopySrc)
//	g.ImportBuffer(dst, gputypes.BufferUsageCopyDst)
//	g.Begin()
//	g.CopyBuffer(rendergraph.CopyBufferInfo{Src: src, Dst: dst, Size: 256})
//	err := g.Flush(sink)
func New(opts ...Option) *Graph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	g := &Graph{
		registry: o.registry,
		tracker:  NewTracker(),
		store:    NewStore(o.capacity),
		recorder: NewRecorder(o.registry, o.logger),
		logger:   o.logger,
		metrics:  o.metrics,
		scope:    NoNode,
		queries:  make(map[queryKey]NodeIndex),
	}
	g.links = linkBuilder{registry: g.registry, tracker: g.tracker}
	return g
}

// ImportBuffer registers a buffer and the usages it was created with.
func (g *Graph) ImportBuffer(h Handle, usage gputypes.BufferUsage) error {
	return g.importResource(h, ResourceInfo{Type: ResourceBuffer, BufferUsage: usage}, LayoutUndefined)
}

// ImportImage registers an image, the usages it was created with and the
// layout it is currently in.
func (g *Graph) ImportImage(h Handle, usage gputypes.TextureUsage, format gputypes.TextureFormat, layout Layout) error {
	return g.importResource(h, ResourceInfo{Type: ResourceImage, TextureUsage: usage, Format: format}, layout)
}

func (g *Graph) importResource(h Handle, info ResourceInfo, layout Layout) error {
	if !h.IsValid() {
		return ErrInvalidHandle
	}
	if g.phase == PhaseFlushing {
		return &UsageSequenceError{Op: "import", Phase: g.phase}
	}
	if prev, ok := g.tracker.Lookup(h); ok && prev.Type != info.Type {
		return &ResourceMisuseError{
			Kind:   KindUnused,
			Handle: h,
			Reason: "re-imported as " + info.Type.String() + ", was " + prev.Type.String(),
		}
	}
	g.tracker.Import(h, info, layout)
	return nil
}

// RequireFinalState records the state h must be left in when the cycle is
// flushed. The barrier is emitted after the last node, and only when the
// cycle touched h.
func (g *Graph) RequireFinalState(h Handle, s AccessState) error {
	if !g.tracker.RequireFinal(h, s) {
		return &ResourceMisuseError{Kind: KindUnused, Handle: h, Reason: "resource not imported"}
	}
	return nil
}

// Begin starts a recording cycle. The graph must be idle and empty; a
// flushed cycle must be cleared first.
func (g *Graph) Begin() error {
	switch {
	case g.phase != PhaseIdle:
		return &UsageSequenceError{Op: "begin", Phase: g.phase, Reason: "cycle already active"}
	case g.ended:
		return &UsageSequenceError{Op: "begin", Phase: g.phase, Reason: "flushed cycle not cleared"}
	}
	g.phase = PhaseRecording
	g.logger.Info("rendergraph: begin cycle", slog.Int("resources", g.tracker.Len()))
	return nil
}

// Add appends a node described by info and returns its index.
//
// The node is validated, linked against the current resource states and
// appended atomically: on error neither the store nor the tracker change.
func (g *Graph) Add(info CreateInfo) (NodeIndex, error) {
	var kind NodeKind
	if info != nil {
		kind = info.Kind()
	}
	idx, err := g.add(kind, info)
	if err != nil {
		g.metrics.nodeRejected(kind, err)
		g.logger.Warn("rendergraph: node rejected", slog.String("kind", kind.String()), slog.Any("err", err))
		return NoNode, err
	}
	return idx, nil
}

func (g *Graph) add(kind NodeKind, info CreateInfo) (NodeIndex, error) {
	if g.phase != PhaseRecording {
		return NoNode, &UsageSequenceError{Op: "add " + kind.String(), Phase: g.phase}
	}
	if err := g.checkScope(kind); err != nil {
		return NoNode, err
	}
	if err := g.checkQuery(info); err != nil {
		return NoNode, err
	}

	usages, err := g.registry.Usages(info)
	if err != nil {
		return NoNode, err
	}
	idx := NodeIndex(g.store.Len())
	res, err := g.links.build(idx, kind, usages, g.scope)
	if err != nil {
		return NoNode, err
	}

	g.store.Append(Node{
		Kind:        kind,
		Info:        cloneInfo(info),
		Usages:      res.usages,
		Edges:       res.edges,
		Transitions: res.transitions,
	})
	g.tracker.apply(res.updates)

	switch ci := info.(type) {
	case BeginRenderingInfo:
		g.scope = idx
	case EndRenderingInfo:
		g.scope = NoNode
	case BeginQueryInfo:
		g.queries[queryKey{ci.QuerySet, ci.Query}] = g.scope
	case EndQueryInfo:
		delete(g.queries, queryKey{ci.QuerySet, ci.Query})
	}

	g.metrics.nodeAdded(kind, len(res.edges))
	g.logger.Debug("rendergraph: node added",
		slog.Int("index", int(idx)),
		slog.String("kind", kind.String()),
		slog.Int("usages", len(res.usages)),
		slog.Int("edges", len(res.edges)),
		slog.Int("transitions", len(res.transitions)))
	return idx, nil
}

// checkScope enforces rendering scope nesting.
func (g *Graph) checkScope(kind NodeKind) error {
	open := g.scope != NoNode
	switch {
	case kind == KindBeginRendering && open:
		return &UsageSequenceError{Op: "add " + kind.String(), Phase: g.phase, Reason: "rendering scope already open"}
	case kind == KindEndRendering && !open:
		return &UsageSequenceError{Op: "add " + kind.String(), Phase: g.phase, Reason: "no open rendering scope"}
	case open && kind != KindEndRendering && !g.registry.Info(kind).WithinRendering:
		return &UsageSequenceError{Op: "add " + kind.String(), Phase: g.phase, Reason: "not allowed inside a rendering scope"}
	case kind == KindEndRendering && g.scopeHasQuery():
		return &UsageSequenceError{Op: "add " + kind.String(), Phase: g.phase, Reason: "query still active in rendering scope"}
	}
	return nil
}

type queryKey struct {
	set   QuerySetID
	index uint32
}

// checkQuery enforces query begin and end pairing.
func (g *Graph) checkQuery(info CreateInfo) error {
	switch ci := info.(type) {
	case BeginQueryInfo:
		if _, ok := g.queries[queryKey{ci.QuerySet, ci.Query}]; ok {
			return &UsageSequenceError{Op: "add " + ci.Kind().String(), Phase: g.phase, Reason: fmt.Sprintf("query %d already active", ci.Query)}
		}
	case EndQueryInfo:
		scope, ok := g.queries[queryKey{ci.QuerySet, ci.Query}]
		if !ok {
			return &UsageSequenceError{Op: "add " + ci.Kind().String(), Phase: g.phase, Reason: fmt.Sprintf("query %d not active", ci.Query)}
		}
		if scope != g.scope {
			return &UsageSequenceError{Op: "add " + ci.Kind().String(), Phase: g.phase, Reason: fmt.Sprintf("query %d began in another rendering scope", ci.Query)}
		}
	}
	return nil
}

func (g *Graph) scopeHasQuery() bool {
	for _, scope := range g.queries {
		if scope != NoNode && scope == g.scope {
			return true
		}
	}
	return false
}

// Flush records the cycle into sink and ends it.
//
// Flush is allowed once per cycle and requires every rendering scope to be
// closed. A sink error aborts the flush with a *FlushError; the cycle
// still ends and the graph must be cleared before the next Begin.
func (g *Graph) Flush(sink CommandSink) error {
	if g.phase != PhaseRecording {
		return &UsageSequenceError{Op: "flush", Phase: g.phase}
	}
	if sink == nil {
		return ErrNilSink
	}
	if g.scope != NoNode {
		return &UsageSequenceError{Op: "flush", Phase: g.phase, Reason: "rendering scope not closed"}
	}
	if len(g.queries) > 0 {
		return &UsageSequenceError{Op: "flush", Phase: g.phase, Reason: "query still active"}
	}

	g.phase = PhaseFlushing
	start := time.Now()
	stats, err := g.recorder.Record(g.store.Nodes(), g.tracker.finalBarriers(), sink)
	elapsed := time.Since(start)
	g.phase = PhaseIdle
	g.ended = true
	g.submitted = err == nil
	g.last = stats

	g.metrics.flushed(stats, elapsed, err)
	if err != nil {
		g.logger.Warn("rendergraph: flush failed", slog.Any("err", err))
		return err
	}
	g.logger.Info("rendergraph: flushed",
		slog.Int("nodes", stats.Nodes),
		slog.Int("barrier_commands", stats.BarrierCommands),
		slog.Duration("elapsed", elapsed))
	return nil
}

// Replay records the flushed cycle into sink again. The emitted stream is
// identical to the one Flush produced. Replay does not change the phase.
func (g *Graph) Replay(sink CommandSink) error {
	if g.phase != PhaseIdle || !g.ended {
		return &UsageSequenceError{Op: "replay", Phase: g.phase, Reason: "no flushed cycle"}
	}
	if sink == nil {
		return ErrNilSink
	}
	_, err := g.recorder.Record(g.store.Nodes(), g.tracker.finalBarriers(), sink)
	return err
}

// Clear drops all nodes and ends the cycle. Imported resources stay
// registered; after a successful flush images keep the layout the cycle
// left them in, otherwise they revert to their layout before Begin.
func (g *Graph) Clear() error {
	if g.phase == PhaseFlushing {
		return &UsageSequenceError{Op: "clear", Phase: g.phase}
	}
	g.store.Clear()
	g.tracker.Reset(g.submitted)
	g.phase = PhaseIdle
	g.scope = NoNode
	clear(g.queries)
	g.ended = false
	g.submitted = false
	g.last = FlushStats{}
	return nil
}

// Phase returns the current lifecycle phase.
func (g *Graph) Phase() Phase { return g.phase }

// Len returns the number of nodes recorded in this cycle.
func (g *Graph) Len() int { return g.store.Len() }

// Node returns the node at idx.
func (g *Graph) Node(idx NodeIndex) (Node, bool) { return g.store.Node(idx) }

// Nodes returns the nodes in creation order. The slice must not be
// modified.
func (g *Graph) Nodes() []Node { return g.store.Nodes() }

// Edges returns every dependency edge in the order of their destination
// nodes.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.store.EdgeCount())
	for _, n := range g.store.Nodes() {
		out = append(out, n.Edges...)
	}
	return out
}

// State returns the last recorded access state of h. See Tracker.State.
func (g *Graph) State(h Handle) AccessState { return g.tracker.State(h) }

// SetState overwrites the recorded state of h, for resources that were
// written outside the graph.
func (g *Graph) SetState(h Handle, s AccessState) error {
	if _, ok := g.tracker.Lookup(h); !ok {
		return &ResourceMisuseError{Kind: KindUnused, Handle: h, Reason: "resource not imported"}
	}
	if g.phase == PhaseFlushing {
		return &UsageSequenceError{Op: "set state", Phase: g.phase}
	}
	g.tracker.SetState(h, s)
	return nil
}

// Resource returns the import description of h.
func (g *Graph) Resource(h Handle) (ResourceInfo, bool) { return g.tracker.Lookup(h) }

// Resources returns the imported handles in ascending order.
func (g *Graph) Resources() []Handle { return g.tracker.Handles() }

// Registry returns the node kind table used by the graph.
func (g *Graph) Registry() *Registry { return g.registry }

// LastFlush returns the statistics of the last flush of this cycle.
func (g *Graph) LastFlush() FlushStats { return g.last }
