// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"fmt"
	"slices"
)

// linkResult is everything a new node contributes to the graph. It is
// computed without touching the tracker so a rejected node leaves no trace.
type linkResult struct {
	usages      []ResourceUsage
	edges       []Edge
	transitions []Barrier
	updates     []stateUpdate
}

// linkBuilder derives dependency edges from prior resource states.
type linkBuilder struct {
	registry *Registry
	tracker  *Tracker
}

// build computes the links of node idx of the given kind. scopeStart is the
// index of the open BeginRendering node, or NoNode.
func (lb *linkBuilder) build(idx NodeIndex, kind NodeKind, usages []ResourceUsage, scopeStart NodeIndex) (linkResult, error) {
	res := linkResult{usages: slices.Clone(usages)}

	for i := range res.usages {
		u := &res.usages[i]
		r, ok := lb.tracker.resources[u.Handle]
		if !ok {
			return linkResult{}, &ResourceMisuseError{Kind: kind, Handle: u.Handle, Reason: "resource not imported"}
		}
		if u.Type == 0 {
			u.Type = r.info.Type
		}
		if err := checkCapability(kind, *u, r.info); err != nil {
			return linkResult{}, err
		}
		lb.link(&res, idx, *u, r)
	}

	if scopeStart != NoNode && lb.registry.Info(kind).WithinRendering {
		for _, e := range res.edges {
			if e.From >= scopeStart {
				return linkResult{}, &ResourceMisuseError{
					Kind:   kind,
					Handle: e.Handle,
					Reason: fmt.Sprintf("depends on node %d inside the same rendering scope", e.From),
				}
			}
		}
	}
	return res, nil
}

// link appends the edges, transitions and state update of one usage.
func (lb *linkBuilder) link(res *linkResult, idx NodeIndex, u ResourceUsage, r *trackedResource) {
	dst := lb.registry.StateAfter(u)
	cur := r.state.Layout
	if u.Type != ResourceImage || dst.Layout == LayoutUndefined {
		dst.Layout = cur
	}
	layoutChange := dst.Layout != cur
	hazard := u.IsWrite() || layoutChange

	barrier := func(src AccessState) Barrier {
		return Barrier{
			SrcStage:  src.Stage,
			DstStage:  dst.Stage,
			SrcAccess: src.Access,
			DstAccess: dst.Access,
			OldLayout: cur,
			NewLayout: dst.Layout,
			Handles:   []Handle{u.Handle},
		}
	}
	edge := func(from NodeIndex, src AccessState) {
		res.edges = append(res.edges, Edge{From: from, To: idx, Handle: u.Handle, Barrier: barrier(src)})
	}

	switch {
	case !r.touched:
		// First use in this cycle: nothing to order against, but an image
		// may still need to leave its initial layout.
		if layoutChange {
			res.transitions = append(res.transitions, barrier(AccessState{Layout: cur}))
		}
	case hazard && len(r.readers) > 0:
		// Write after read: wait for every reader. Each edge carries the
		// union of all readers so any single edge is sufficient.
		src := AccessState{Stage: r.readState.Stage, Access: r.readState.Access, Layout: cur}
		for _, from := range r.readers {
			edge(from, src)
		}
	case r.writer != NoNode:
		// Read after write or write after write.
		edge(r.writer, r.state)
	case len(r.readers) == 0:
		// State set out of band: synchronize against it without an edge.
		if hazard || r.state.Access.IsWrite() {
			res.transitions = append(res.transitions, barrier(r.state))
		}
	}

	res.updates = append(res.updates, stateUpdate{
		handle:     u.Handle,
		node:       idx,
		write:      u.IsWrite(),
		transition: !u.IsWrite() && layoutChange,
		state:      dst,
	})
}

// checkCapability verifies u against the import description of its
// resource.
func checkCapability(kind NodeKind, u ResourceUsage, info ResourceInfo) error {
	if u.Type != info.Type {
		return &ResourceMisuseError{
			Kind:   kind,
			Handle: u.Handle,
			Reason: fmt.Sprintf("used as %s but imported as %s", u.Type, info.Type),
		}
	}
	switch u.Type {
	case ResourceBuffer:
		if info.BufferUsage&u.BufferUsage != u.BufferUsage {
			return &ResourceMisuseError{
				Kind:   kind,
				Handle: u.Handle,
				Reason: fmt.Sprintf("buffer lacks usage %#x", uint64(u.BufferUsage&^info.BufferUsage)),
			}
		}
	case ResourceImage:
		if info.TextureUsage&u.TextureUsage != u.TextureUsage {
			return &ResourceMisuseError{
				Kind:   kind,
				Handle: u.Handle,
				Reason: fmt.Sprintf("image lacks usage %#x", uint64(u.TextureUsage&^info.TextureUsage)),
			}
		}
	}
	return nil
}
