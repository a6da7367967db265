// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"fmt"
	"slices"
	"strings"
)

// CommandType identifies what a Command asks the sink to record.
type CommandType uint8

const (
	// CommandBarrier records a batch of barriers.
	CommandBarrier CommandType = iota + 1
	// CommandNode records the native commands of one node.
	CommandNode
)

// String returns the command type name.
func (t CommandType) String() string {
	switch t {
	case CommandBarrier:
		return "barrier"
	case CommandNode:
		return "node"
	default:
		return "unknown"
	}
}

// Command is one entry of the linear command stream produced by a flush.
type Command struct {
	Type CommandType
	// Node is the node the command belongs to. Barrier commands carry the
	// node they guard; the trailing barrier carries NoNode.
	Node NodeIndex
	Kind NodeKind
	// Info holds the node's creation parameters (CommandNode only).
	Info CreateInfo
	// Handles are the resources the node touches (CommandNode only).
	Handles []Handle
	// Barriers is the merged batch (CommandBarrier only).
	Barriers BarrierBatch
}

// CommandSink receives the command stream of a flush.
//
// Implementations translate commands into a native command buffer or log
// them for inspection. Returning an error aborts the flush; commands
// already accepted are the sink's responsibility.
type CommandSink interface {
	Emit(cmd Command) error
}

// CommandSinkFunc adapts a function to the CommandSink interface.
type CommandSinkFunc func(cmd Command) error

// Emit calls f(cmd).
func (f CommandSinkFunc) Emit(cmd Command) error { return f(cmd) }

// LogEntry is one command recorded by a LogSink.
type LogEntry struct {
	Type     CommandType
	Node     NodeIndex
	Kind     NodeKind
	Handles  []Handle
	Barriers BarrierBatch
}

// String formats the entry as a single line.
func (e LogEntry) String() string {
	var b strings.Builder
	switch e.Type {
	case CommandBarrier:
		if e.Node == NoNode {
			b.WriteString("barrier final")
		} else {
			fmt.Fprintf(&b, "barrier before %d", e.Node)
		}
		for _, br := range e.Barriers {
			b.WriteString(" [")
			b.WriteString(br.String())
			b.WriteByte(']')
		}
	default:
		fmt.Fprintf(&b, "%s %d %s handles=%v", e.Type, e.Node, e.Kind, e.Handles)
	}
	return b.String()
}

// LogSink records commands instead of executing them. It is used by tests
// and by tools that print the scheduled stream.
//
// LogSink is not safe for concurrent use.
type LogSink struct {
	entries []LogEntry
}

// NewLogSink creates an empty logging sink.
func NewLogSink() *LogSink { return &LogSink{} }

// Emit records cmd.
func (s *LogSink) Emit(cmd Command) error {
	s.entries = append(s.entries, LogEntry{
		Type:     cmd.Type,
		Node:     cmd.Node,
		Kind:     cmd.Kind,
		Handles:  slices.Clone(cmd.Handles),
		Barriers: cmd.Barriers.clone(),
	})
	return nil
}

// Entries returns the recorded entries in emission order.
func (s *LogSink) Entries() []LogEntry { return s.entries }

// Barriers returns only the barrier entries.
func (s *LogSink) Barriers() []LogEntry {
	var out []LogEntry
	for _, e := range s.entries {
		if e.Type == CommandBarrier {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded entries.
func (s *LogSink) Reset() { s.entries = s.entries[:0] }

// String returns one line per entry.
func (s *LogSink) String() string {
	var b strings.Builder
	for _, e := range s.entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
