// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"maps"
	"slices"

	"github.com/gogpu/gputypes"
)

// ResourceInfo describes an imported resource and what it may be used for.
type ResourceInfo struct {
	Type         ResourceType
	BufferUsage  gputypes.BufferUsage
	TextureUsage gputypes.TextureUsage
	Format       gputypes.TextureFormat
}

// trackedResource is the tracker entry of one handle.
type trackedResource struct {
	info ResourceInfo

	// state is the state produced by the last write. Its Layout is the
	// image's current layout even when no node touched it yet, and
	// follows reads that moved the image into another layout.
	state   AccessState
	touched bool
	writer  NodeIndex

	// readers are the nodes that read the resource since the last write;
	// readState is the union of their stages and accesses.
	readers   []NodeIndex
	readState AccessState

	// startLayout is the layout the image had when the cycle began.
	startLayout Layout

	final    AccessState
	hasFinal bool
}

// Tracker maps resource handles to their last-known access state.
//
// Tracker is owned by one Graph and is not safe for concurrent use.
type Tracker struct {
	resources map[Handle]*trackedResource
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{resources: make(map[Handle]*trackedResource)}
}

// Import registers a resource. Re-importing a handle replaces its
// description but keeps the recorded state.
func (t *Tracker) Import(h Handle, info ResourceInfo, layout Layout) {
	if r, ok := t.resources[h]; ok {
		r.info = info
		return
	}
	t.resources[h] = &trackedResource{
		info:        info,
		state:       AccessState{Layout: layout},
		writer:      NoNode,
		startLayout: layout,
	}
}

// Lookup returns the import description of h.
func (t *Tracker) Lookup(h Handle) (ResourceInfo, bool) {
	r, ok := t.resources[h]
	if !ok {
		return ResourceInfo{}, false
	}
	return r.info, true
}

// State returns the last recorded access state of h.
//
// A handle that no node touched in this cycle, including an unknown one,
// yields an undefined state (IsUndefined reports true); for images the
// state still carries the current layout. If nodes read the resource
// since the last write, the union of those reads is returned.
func (t *Tracker) State(h Handle) AccessState {
	r, ok := t.resources[h]
	if !ok {
		return AccessState{}
	}
	return r.current()
}

// SetState overwrites the state of h. The resource is considered touched
// but has no writer or reader node, so later accesses synchronize against
// s without producing dependency edges. Unknown handles are ignored.
func (t *Tracker) SetState(h Handle, s AccessState) {
	r, ok := t.resources[h]
	if !ok {
		return
	}
	r.state = s
	r.touched = !s.IsUndefined()
	r.writer = NoNode
	r.readers = nil
	r.readState = AccessState{}
}

// RequireFinal records the state h must be in at the end of the cycle.
func (t *Tracker) RequireFinal(h Handle, s AccessState) bool {
	r, ok := t.resources[h]
	if !ok {
		return false
	}
	r.final = s
	r.hasFinal = true
	return true
}

// Handles returns the imported handles in ascending order.
func (t *Tracker) Handles() []Handle {
	return slices.Sorted(maps.Keys(t.resources))
}

// Len returns the number of imported resources.
func (t *Tracker) Len() int { return len(t.resources) }

// Reset ends a recording cycle. Writers, readers and access states are
// dropped. When the cycle was submitted, images keep the layout they ended
// in, which is their required final layout when one was requested;
// otherwise they revert to the layout they started the cycle with.
func (t *Tracker) Reset(submitted bool) {
	for _, r := range t.resources {
		layout := r.startLayout
		if submitted {
			layout = r.state.Layout
			if r.hasFinal && r.final.Layout != LayoutUndefined && r.touched {
				layout = r.final.Layout
			}
		}
		r.startLayout = layout
		r.state = AccessState{Layout: layout}
		r.touched = false
		r.writer = NoNode
		r.readers = nil
		r.readState = AccessState{}
	}
}

func (r *trackedResource) current() AccessState {
	if !r.touched {
		return AccessState{Layout: r.state.Layout}
	}
	if len(r.readers) > 0 {
		return AccessState{Stage: r.readState.Stage, Access: r.readState.Access, Layout: r.state.Layout}
	}
	return r.state
}

// stateUpdate is a pending tracker mutation produced by the link builder.
type stateUpdate struct {
	handle Handle
	node   NodeIndex
	write  bool
	// transition marks a read that moved an image into a new layout. The
	// node becomes the only reader; the last writer is kept.
	transition bool
	state      AccessState
}

// apply commits updates produced for one node.
func (t *Tracker) apply(updates []stateUpdate) {
	for _, u := range updates {
		r := t.resources[u.handle]
		r.touched = true
		switch {
		case u.write:
			r.state = u.state
			r.writer = u.node
			r.readers = nil
			r.readState = AccessState{}
			continue
		case u.transition:
			r.state.Layout = u.state.Layout
			r.readers = []NodeIndex{u.node}
			r.readState = AccessState{Stage: u.state.Stage, Access: u.state.Access}
			continue
		}
		if n := len(r.readers); n == 0 || r.readers[n-1] != u.node {
			r.readers = append(r.readers, u.node)
		}
		r.readState.Stage |= u.state.Stage
		r.readState.Access |= u.state.Access
	}
}

// finalBarriers returns the barriers that move touched resources into
// their required final states.
func (t *Tracker) finalBarriers() []Barrier {
	var out []Barrier
	for _, h := range t.Handles() {
		r := t.resources[h]
		if !r.hasFinal || !r.touched {
			continue
		}
		cur := r.current()
		if cur == r.final {
			continue
		}
		newLayout := r.final.Layout
		if newLayout == LayoutUndefined {
			newLayout = cur.Layout
		}
		if newLayout == cur.Layout && !cur.Access.IsWrite() {
			continue
		}
		out = append(out, Barrier{
			SrcStage:  cur.Stage,
			DstStage:  r.final.Stage,
			SrcAccess: cur.Access,
			DstAccess: r.final.Access,
			OldLayout: cur.Layout,
			NewLayout: newLayout,
			Handles:   []Handle{h},
		})
	}
	return out
}
