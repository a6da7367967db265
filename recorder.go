// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"log/slog"
	"slices"
)

// Phase is the lifecycle state of a recording cycle.
type Phase uint8

const (
	// PhaseIdle means no cycle is being recorded.
	PhaseIdle Phase = iota
	// PhaseRecording means Begin was called and nodes may be added.
	PhaseRecording
	// PhaseFlushing means the recorder is emitting commands.
	PhaseFlushing
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhaseFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// FlushStats summarizes one pass of the recorder.
type FlushStats struct {
	Nodes int
	// BarrierCommands is the number of CommandBarrier commands emitted.
	BarrierCommands int
	// Barriers is the number of merged barrier entries across all batches.
	Barriers int
}

// Recorder linearizes a node store into a command stream.
//
// The recorder borrows nodes and tracker state read-only; it never mutates
// either, so recording the same cycle twice emits the same stream.
type Recorder struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRecorder creates a recorder using reg for node metadata. A nil
// registry selects DefaultRegistry; a nil logger selects Logger().
func NewRecorder(reg *Registry, logger *slog.Logger) *Recorder {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if logger == nil {
		logger = Logger()
	}
	return &Recorder{registry: reg, logger: logger}
}

// Record emits nodes in creation order. Each node is preceded by the merged
// batch of its incoming barriers. Barriers of nodes inside a rendering
// scope are emitted before the scope's BeginRendering node. The final
// batch is emitted after the last node.
func (rec *Recorder) Record(nodes []Node, final []Barrier, sink CommandSink) (FlushStats, error) {
	var stats FlushStats
	if sink == nil {
		return stats, ErrNilSink
	}

	emitBatch := func(at NodeIndex, kind NodeKind, bs []Barrier) error {
		batch := mergeBarriers(bs)
		if len(batch) == 0 {
			return nil
		}
		if err := sink.Emit(Command{Type: CommandBarrier, Node: at, Kind: kind, Barriers: batch}); err != nil {
			return &FlushError{Node: at, Kind: kind, Err: err}
		}
		stats.BarrierCommands++
		stats.Barriers += len(batch)
		return nil
	}

	scopeEnd := NoNode
	for i := range nodes {
		n := &nodes[i]
		switch {
		case n.Kind == KindBeginRendering:
			scopeEnd = scopeEndOf(nodes, i)
			var pending []Barrier
			for j := i; j <= int(scopeEnd); j++ {
				pending = appendNodeBarriers(pending, &nodes[j])
			}
			if err := emitBatch(n.Index, n.Kind, pending); err != nil {
				return stats, err
			}
		case scopeEnd != NoNode && n.Index <= scopeEnd:
			// Hoisted into the scope's batch.
		default:
			if err := emitBatch(n.Index, n.Kind, appendNodeBarriers(nil, n)); err != nil {
				return stats, err
			}
		}

		if err := sink.Emit(Command{
			Type:    CommandNode,
			Node:    n.Index,
			Kind:    n.Kind,
			Info:    n.Info,
			Handles: usageHandles(n.Usages),
		}); err != nil {
			return stats, &FlushError{Node: n.Index, Kind: n.Kind, Err: err}
		}
		stats.Nodes++

		if n.Kind == KindEndRendering {
			scopeEnd = NoNode
		}
	}

	if err := emitBatch(NoNode, KindUnused, final); err != nil {
		return stats, err
	}

	rec.logger.Debug("rendergraph: recorded",
		slog.Int("nodes", stats.Nodes),
		slog.Int("barrier_commands", stats.BarrierCommands),
		slog.Int("barriers", stats.Barriers))
	return stats, nil
}

// scopeEndOf returns the index of the EndRendering node that closes the
// scope opened at nodes[begin], or the last node when the scope is open.
func scopeEndOf(nodes []Node, begin int) NodeIndex {
	for j := begin + 1; j < len(nodes); j++ {
		if nodes[j].Kind == KindEndRendering {
			return nodes[j].Index
		}
	}
	return nodes[len(nodes)-1].Index
}

func appendNodeBarriers(dst []Barrier, n *Node) []Barrier {
	for _, e := range n.Edges {
		dst = append(dst, e.Barrier)
	}
	return append(dst, n.Transitions...)
}

func usageHandles(us []ResourceUsage) []Handle {
	if len(us) == 0 {
		return nil
	}
	hs := make([]Handle, 0, len(us))
	for _, u := range us {
		hs = append(hs, u.Handle)
	}
	return slices.Clip(hs)
}
