// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"fmt"
	"slices"
)

// Barrier instructs the GPU to finish all accesses matching the source
// scope before starting accesses matching the destination scope. For
// images, OldLayout and NewLayout describe a layout transition; equal
// layouts mean a pure memory dependency.
type Barrier struct {
	SrcStage  StageFlags
	DstStage  StageFlags
	SrcAccess AccessFlags
	DstAccess AccessFlags
	OldLayout Layout
	NewLayout Layout
	Handles   []Handle
}

// IsTransition reports whether the barrier changes an image layout.
func (b Barrier) IsTransition() bool { return b.OldLayout != b.NewLayout }

// String formats the barrier for logs and test failures.
func (b Barrier) String() string {
	s := fmt.Sprintf("%s/%s -> %s/%s", b.SrcStage, b.SrcAccess, b.DstStage, b.DstAccess)
	if b.IsTransition() {
		s += fmt.Sprintf(" layout %s -> %s", b.OldLayout, b.NewLayout)
	}
	return s + fmt.Sprintf(" handles=%v", b.Handles)
}

// BarrierBatch is the set of barriers recorded in one synchronization
// command.
type BarrierBatch []Barrier

// SrcStage returns the union of all source stages in the batch.
func (bb BarrierBatch) SrcStage() StageFlags {
	var s StageFlags
	for _, b := range bb {
		s |= b.SrcStage
	}
	return s
}

// DstStage returns the union of all destination stages in the batch.
func (bb BarrierBatch) DstStage() StageFlags {
	var s StageFlags
	for _, b := range bb {
		s |= b.DstStage
	}
	return s
}

// clone returns a deep copy so sinks may retain the batch.
func (bb BarrierBatch) clone() BarrierBatch {
	if bb == nil {
		return nil
	}
	out := make(BarrierBatch, len(bb))
	for i, b := range bb {
		b.Handles = slices.Clone(b.Handles)
		out[i] = b
	}
	return out
}

type layoutPair struct {
	old, new Layout
}

// mergeBarriers folds barriers with the same layout pair into one entry,
// taking the union of their stages, accesses and handles. Entries keep the
// order in which their layout pair first appears.
func mergeBarriers(bs []Barrier) BarrierBatch {
	if len(bs) == 0 {
		return nil
	}
	var (
		out   BarrierBatch
		index = make(map[layoutPair]int, 2)
	)
	for _, b := range bs {
		key := layoutPair{b.OldLayout, b.NewLayout}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			b.Handles = slices.Clone(b.Handles)
			out = append(out, b)
			continue
		}
		m := &out[i]
		m.SrcStage |= b.SrcStage
		m.DstStage |= b.DstStage
		m.SrcAccess |= b.SrcAccess
		m.DstAccess |= b.DstAccess
		for _, h := range b.Handles {
			if !slices.Contains(m.Handles, h) {
				m.Handles = append(m.Handles, h)
			}
		}
	}
	for i := range out {
		slices.Sort(out[i].Handles)
	}
	return out
}
