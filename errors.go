// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"errors"
	"fmt"
)

// Sentinel errors. The struct error types below unwrap to them, so callers
// can test the category with errors.Is and the details with errors.As.
var (
	// ErrMalformedNode is returned when creation parameters violate the
	// structural contract of a node kind.
	ErrMalformedNode = errors.New("rendergraph: malformed node")

	// ErrResourceMisuse is returned when a node accesses a resource in a
	// way its import does not allow.
	ErrResourceMisuse = errors.New("rendergraph: resource misuse")

	// ErrUsageSequence is returned when an operation is invoked in the
	// wrong recording phase.
	ErrUsageSequence = errors.New("rendergraph: invalid usage sequence")

	// ErrNilSink is returned when Flush or Replay is called without a sink.
	ErrNilSink = errors.New("rendergraph: command sink is nil")
)

// MalformedNodeError describes a rejected node creation.
type MalformedNodeError struct {
	Kind   NodeKind
	Reason string
}

func (e *MalformedNodeError) Error() string {
	return "rendergraph: malformed " + e.Kind.String() + " node: " + e.Reason
}

// Unwrap returns ErrMalformedNode.
func (e *MalformedNodeError) Unwrap() error { return ErrMalformedNode }

// ResourceMisuseError describes an access incompatible with a resource's
// imported capability.
type ResourceMisuseError struct {
	Kind   NodeKind
	Handle Handle
	Reason string
}

func (e *ResourceMisuseError) Error() string {
	return fmt.Sprintf("rendergraph: %s node misuses resource %d: %s", e.Kind, e.Handle, e.Reason)
}

// Unwrap returns ErrResourceMisuse.
func (e *ResourceMisuseError) Unwrap() error { return ErrResourceMisuse }

// UsageSequenceError is returned when Op is not allowed in Phase.
type UsageSequenceError struct {
	Op     string
	Phase  Phase
	Reason string
}

func (e *UsageSequenceError) Error() string {
	msg := "rendergraph: " + e.Op + " not allowed while " + e.Phase.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap returns ErrUsageSequence.
func (e *UsageSequenceError) Unwrap() error { return ErrUsageSequence }

// FlushError reports the node at which a command sink rejected a command.
// Commands emitted before Node are the sink's responsibility.
type FlushError struct {
	// Node is the index of the failing node, or NoNode when the trailing
	// barrier failed.
	Node NodeIndex
	Kind NodeKind
	Err  error
}

func (e *FlushError) Error() string {
	if e.Node == NoNode {
		return fmt.Sprintf("rendergraph: flush failed at trailing barrier: %v", e.Err)
	}
	return fmt.Sprintf("rendergraph: flush failed at node %d (%s): %v", e.Node, e.Kind, e.Err)
}

// Unwrap returns the sink error.
func (e *FlushError) Unwrap() error { return e.Err }

// errorReason returns a short category label for err.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedNode):
		return "malformed"
	case errors.Is(err, ErrResourceMisuse):
		return "misuse"
	case errors.Is(err, ErrUsageSequence):
		return "sequence"
	default:
		return "other"
	}
}
