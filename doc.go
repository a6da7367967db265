// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rendergraph schedules GPU work as a dependency graph.
//
// # Overview
//
// Callers describe GPU operations (draws, dispatches, copies, clears and
// explicit synchronization points) as nodes. Each node declares the
// buffers and images it touches; the graph tracks the last access to every
// resource and links the new node to the earlier nodes it depends on. At
// flush the nodes are replayed in creation order into a [CommandSink],
// each preceded by one merged batch of the barriers it needs.
//
// # Quick Start
//
//	g := rendergraph.New()
//	g.ImportBuffer(staging, gputypes.BufferUsageCopySrc)
//	g.ImportBuffer(vertices, gputypes.BufferUsageCopyDst|gputypes.BufferUsageVertex)
//
//	g.Begin()
//	g.CopyBuffer(rendergraph.CopyBufferInfo{Src: staging, Dst: vertices, Size: 4096})
//	g.BeginRendering(rendergraph.BeginRenderingInfo{Width: 800, Height: 600, ColorAttachments: atts})
//	g.Draw(rendergraph.DrawInfo{VertexBuffers: []rendergraph.Handle{vertices}, VertexCount: 3, InstanceCount: 1})
//	g.EndRendering()
//
//	sink := rendergraph.NewLogSink()
//	if err := g.Flush(sink); err != nil {
//	    return err
//	}
//	g.Clear()
//
// # Dependencies
//
// A write waits for every read since the previous write and, when there
// were none, for the previous write itself. A read waits for the previous
// write. Reads of the same state do not wait for each other. An image read
// that changes the layout is scheduled like a write. The first access of a
// cycle has nothing to wait for, but may still need a layout transition.
//
// # Rendering scopes
//
// Draws between BeginRendering and EndRendering form one pass. A pass
// cannot contain barriers, so the barriers of all its nodes are emitted
// before BeginRendering, and a node inside the pass may not depend on
// another node of the same pass.
//
// # Sinks
//
// [LogSink] records the stream for tests and tools. The backend/halsink
// package encodes it into a gogpu/wgpu HAL command encoder.
package rendergraph
