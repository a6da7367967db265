// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/gputypes"
)

const (
	bufA Handle = 1
	bufB Handle = 2
	bufC Handle = 3
	img  Handle = 10
)

const allBufferUsages = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst |
	gputypes.BufferUsageVertex | gputypes.BufferUsageIndex | gputypes.BufferUsageUniform |
	gputypes.BufferUsageStorage | gputypes.BufferUsageIndirect | gputypes.BufferUsageQueryResolve

const allTextureUsages = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageStorageBinding

// newTestGraph returns a recording graph with buffers A and B and an
// undefined image imported.
func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	g := New(opts...)
	for _, h := range []Handle{bufA, bufB} {
		if err := g.ImportBuffer(h, allBufferUsages); err != nil {
			t.Fatalf("ImportBuffer(%d): %v", h, err)
		}
	}
	if err := g.ImportImage(img, allTextureUsages, gputypes.TextureFormatBGRA8Unorm, LayoutUndefined); err != nil {
		t.Fatalf("ImportImage: %v", err)
	}
	if err := g.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return g
}

// mustAdd fails the test when info is rejected.
func mustAdd(t *testing.T, g *Graph, info CreateInfo) NodeIndex {
	t.Helper()
	idx, err := g.Add(info)
	if err != nil {
		t.Fatalf("Add(%s): %v", info.Kind(), err)
	}
	return idx
}

func flushLog(t *testing.T, g *Graph) *LogSink {
	t.Helper()
	sink := NewLogSink()
	if err := g.Flush(sink); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return sink
}

func uniformDispatch(h Handle) DispatchInfo {
	return DispatchInfo{
		Bindings: Bindings{Resources: []ShaderResource{{Handle: h, Binding: BindingUniformBuffer}}},
		GroupsX:  1, GroupsY: 1, GroupsZ: 1,
	}
}

func colorTarget(h Handle) BeginRenderingInfo {
	return BeginRenderingInfo{
		Width:  64,
		Height: 64,
		ColorAttachments: []ColorAttachment{{
			Image:   h,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	}
}

func TestIndependentNodesHaveNoEdges(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})
	mustAdd(t, g, FillBufferInfo{Buffer: bufB, Size: 16})

	if got := g.Edges(); len(got) != 0 {
		t.Errorf("Edges() = %v, want none", got)
	}
	if got := g.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestReadAfterWriteEdge(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufB, Size: 16})
	mustAdd(t, g, CopyBufferInfo{Src: bufB, Dst: bufA, Size: 16})

	want := []Edge{{
		From:   0,
		To:     1,
		Handle: bufB,
		Barrier: Barrier{
			SrcStage:  StageTransfer,
			DstStage:  StageTransfer,
			SrcAccess: AccessTransferWrite,
			DstAccess: AccessTransferRead,
			Handles:   []Handle{bufB},
		},
	}}
	if diff := cmp.Diff(want, g.Edges()); diff != "" {
		t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadersDoNotDependOnEachOther(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})
	mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 16})
	mustAdd(t, g, uniformDispatch(bufA))
	w := mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})

	for _, idx := range []NodeIndex{1, 2} {
		n, _ := g.Node(idx)
		for _, e := range n.Edges {
			if e.Handle == bufA && e.From != 0 {
				t.Errorf("node %d depends on node %d for A, want node 0", idx, e.From)
			}
		}
	}

	n, _ := g.Node(w)
	var from []NodeIndex
	for _, e := range n.Edges {
		from = append(from, e.From)
		if e.Barrier.SrcStage != StageTransfer|StageComputeShader {
			t.Errorf("edge %d->%d SrcStage = %s, want union of readers", e.From, e.To, e.Barrier.SrcStage)
		}
		if e.Barrier.SrcAccess != AccessTransferRead|AccessUniformRead {
			t.Errorf("edge %d->%d SrcAccess = %s, want union of readers", e.From, e.To, e.Barrier.SrcAccess)
		}
	}
	if diff := cmp.Diff([]NodeIndex{1, 2}, from); diff != "" {
		t.Errorf("writer edge sources mismatch (-want +got):\n%s", diff)
	}
}

func sampledDispatch(h Handle, stages StageFlags) DispatchInfo {
	return DispatchInfo{
		Bindings: Bindings{Resources: []ShaderResource{{Handle: h, Binding: BindingSampledImage, Stages: stages}}},
		GroupsX:  1, GroupsY: 1, GroupsZ: 1,
	}
}

func TestLayoutChangingReadIsAReader(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 4})
	first := mustAdd(t, g, sampledDispatch(img, 0))
	second := mustAdd(t, g, sampledDispatch(img, StageComputeShader|StageFragmentShader))
	writer := mustAdd(t, g, ClearColorImageInfo{Image: img})

	n, _ := g.Node(first)
	wantTransition := []Barrier{{
		DstStage:  StageComputeShader,
		DstAccess: AccessShaderRead,
		OldLayout: LayoutUndefined,
		NewLayout: LayoutShaderReadOnly,
		Handles:   []Handle{img},
	}}
	if diff := cmp.Diff(wantTransition, n.Transitions); diff != "" {
		t.Errorf("first read transitions mismatch (-want +got):\n%s", diff)
	}

	n, _ = g.Node(second)
	if len(n.Edges) != 0 || len(n.Transitions) != 0 {
		t.Errorf("second read: edges %v, transitions %v, want none", n.Edges, n.Transitions)
	}
	if st := g.State(img); st.Stage != StageComputeShader|StageFragmentShader || st.Layout != LayoutShaderReadOnly {
		t.Errorf("State(img) = %s, want union of both reads in SHADER_READ_ONLY", st)
	}

	b := Barrier{
		SrcStage:  StageComputeShader | StageFragmentShader,
		DstStage:  StageColorAttachmentOutput,
		SrcAccess: AccessShaderRead,
		DstAccess: AccessColorAttachmentWrite,
		OldLayout: LayoutShaderReadOnly,
		NewLayout: LayoutColorAttachment,
		Handles:   []Handle{img},
	}
	want := []Edge{
		{From: first, To: writer, Handle: img, Barrier: b},
		{From: second, To: writer, Handle: img, Barrier: b},
	}
	n, _ = g.Node(writer)
	if diff := cmp.Diff(want, n.Edges); diff != "" {
		t.Errorf("writer edges mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutChangingReadKeepsWriter(t *testing.T) {
	g := newTestGraph(t)
	copyIdx := mustAdd(t, g, CopyBufferToImageInfo{Src: bufA, Dst: img, Extent: gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1}})
	mustAdd(t, g, sampledDispatch(img, 0))
	second := mustAdd(t, g, sampledDispatch(img, 0))

	n, _ := g.Node(second)
	want := []Edge{{
		From:   copyIdx,
		To:     second,
		Handle: img,
		Barrier: Barrier{
			SrcStage:  StageTransfer,
			DstStage:  StageComputeShader,
			SrcAccess: AccessTransferWrite,
			DstAccess: AccessShaderRead,
			OldLayout: LayoutShaderReadOnly,
			NewLayout: LayoutShaderReadOnly,
			Handles:   []Handle{img},
		},
	}}
	if diff := cmp.Diff(want, n.Edges); diff != "" {
		t.Errorf("second read edges mismatch (-want +got):\n%s", diff)
	}
}

func TestSampledReadsShareRenderingScope(t *testing.T) {
	const target Handle = 11
	g := newTestGraph(t)
	if err := g.ImportImage(target, allTextureUsages, gputypes.TextureFormatBGRA8Unorm, LayoutUndefined); err != nil {
		t.Fatal(err)
	}
	sampled := Bindings{Resources: []ShaderResource{{Handle: img, Binding: BindingSampledImage}}}
	mustAdd(t, g, colorTarget(target))
	mustAdd(t, g, DrawInfo{Bindings: sampled, VertexCount: 3, InstanceCount: 1})
	if _, err := g.Draw(DrawInfo{Bindings: sampled, VertexCount: 3, InstanceCount: 1}); err != nil {
		t.Fatalf("second sampling draw rejected: %v", err)
	}
	mustAdd(t, g, EndRenderingInfo{})

	sink := flushLog(t, g)
	if got := len(sink.Barriers()); got != 1 {
		t.Errorf("barrier commands = %d, want 1 hoisted before the scope", got)
	}
}

func TestBarrierBeforeReadAndRewrite(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 64})
	mustAdd(t, g, DrawInfo{VertexBuffers: []Handle{bufB}, VertexCount: 3, InstanceCount: 1})
	mustAdd(t, g, FillBufferInfo{Buffer: bufB, Size: 64})

	sink := flushLog(t, g)
	want := []LogEntry{
		{Type: CommandNode, Node: 0, Kind: KindCopyBuffer, Handles: []Handle{bufA, bufB}},
		{Type: CommandBarrier, Node: 1, Kind: KindDraw, Barriers: BarrierBatch{{
			SrcStage:  StageTransfer,
			DstStage:  StageVertexInput,
			SrcAccess: AccessTransferWrite,
			DstAccess: AccessVertexAttributeRead,
			Handles:   []Handle{bufB},
		}}},
		{Type: CommandNode, Node: 1, Kind: KindDraw, Handles: []Handle{bufB}},
		{Type: CommandBarrier, Node: 2, Kind: KindFillBuffer, Barriers: BarrierBatch{{
			SrcStage:  StageVertexInput,
			DstStage:  StageTransfer,
			SrcAccess: AccessVertexAttributeRead,
			DstAccess: AccessTransferWrite,
			Handles:   []Handle{bufB},
		}}},
		{Type: CommandNode, Node: 2, Kind: KindFillBuffer, Handles: []Handle{bufB}},
	}
	if diff := cmp.Diff(want, sink.Entries()); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
	if got := g.LastFlush().BarrierCommands; got != 2 {
		t.Errorf("BarrierCommands = %d, want 2", got)
	}
}

func TestWriteAfterReadsMergesIntoOneBarrier(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})
	mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 16})
	mustAdd(t, g, uniformDispatch(bufA))
	w := mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})

	sink := flushLog(t, g)
	var batch BarrierBatch
	for _, e := range sink.Barriers() {
		if e.Node == w {
			batch = e.Barriers
		}
	}
	want := BarrierBatch{{
		SrcStage:  StageTransfer | StageComputeShader,
		DstStage:  StageTransfer,
		SrcAccess: AccessTransferRead | AccessUniformRead,
		DstAccess: AccessTransferWrite,
		Handles:   []Handle{bufA},
	}}
	if diff := cmp.Diff(want, batch); diff != "" {
		t.Errorf("barrier before writer mismatch (-want +got):\n%s", diff)
	}
}

func TestUsagesAreIdempotent(t *testing.T) {
	reg := DefaultRegistry()
	info := DrawIndexedInfo{
		VertexBuffers: []Handle{bufB, bufA},
		IndexBuffer:   bufA,
		IndexCount:    6,
		InstanceCount: 1,
	}
	first, err := reg.Usages(info)
	if err != nil {
		t.Fatal(err)
	}
	second, err := reg.Usages(info)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Usages not idempotent (-first +second):\n%s", diff)
	}

	want := []ResourceUsage{
		{
			Handle:      bufA,
			Type:        ResourceBuffer,
			Stage:       StageVertexInput,
			Access:      AccessVertexAttributeRead | AccessIndexRead,
			BufferUsage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex,
		},
		{
			Handle:      bufB,
			Type:        ResourceBuffer,
			Stage:       StageVertexInput,
			Access:      AccessVertexAttributeRead,
			BufferUsage: gputypes.BufferUsageVertex,
		},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Usages mismatch (-want +got):\n%s", diff)
	}
}

func TestReplayMatchesFlush(t *testing.T) {
	g := newTestGraph(t)
	if err := g.RequireFinalState(img, AccessState{Stage: StageBottomOfPipe, Layout: LayoutPresent}); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 64})
	mustAdd(t, g, colorTarget(img))
	mustAdd(t, g, DrawInfo{VertexBuffers: []Handle{bufB}, VertexCount: 3, InstanceCount: 1})
	mustAdd(t, g, EndRenderingInfo{})

	first := flushLog(t, g)
	second := NewLogSink()
	if err := g.Replay(second); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if diff := cmp.Diff(first.Entries(), second.Entries()); diff != "" {
		t.Errorf("Replay differs from Flush (-flush +replay):\n%s", diff)
	}
}

func TestRenderingScopeHoistsBarriers(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 64})
	mustAdd(t, g, colorTarget(img))
	mustAdd(t, g, DrawInfo{VertexBuffers: []Handle{bufB}, VertexCount: 3, InstanceCount: 1})
	mustAdd(t, g, EndRenderingInfo{})

	sink := flushLog(t, g)
	want := []LogEntry{
		{Type: CommandNode, Node: 0, Kind: KindCopyBuffer, Handles: []Handle{bufA, bufB}},
		{Type: CommandBarrier, Node: 1, Kind: KindBeginRendering, Barriers: BarrierBatch{
			{
				DstStage:  StageColorAttachmentOutput,
				DstAccess: AccessColorAttachmentWrite,
				OldLayout: LayoutUndefined,
				NewLayout: LayoutColorAttachment,
				Handles:   []Handle{img},
			},
			{
				SrcStage:  StageTransfer,
				DstStage:  StageVertexInput,
				SrcAccess: AccessTransferWrite,
				DstAccess: AccessVertexAttributeRead,
				Handles:   []Handle{bufB},
			},
		}},
		{Type: CommandNode, Node: 1, Kind: KindBeginRendering, Handles: []Handle{img}},
		{Type: CommandNode, Node: 2, Kind: KindDraw, Handles: []Handle{bufB}},
		{Type: CommandNode, Node: 3, Kind: KindEndRendering},
	}
	if diff := cmp.Diff(want, sink.Entries()); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}
}

func TestDependencyInsideScopeRejected(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, colorTarget(img))
	mustAdd(t, g, DrawInfo{
		Bindings:    Bindings{Resources: []ShaderResource{{Handle: bufA, Binding: BindingStorageBuffer}}},
		VertexCount: 3, InstanceCount: 1,
	})

	_, err := g.Draw(DrawInfo{VertexBuffers: []Handle{bufA}, VertexCount: 3, InstanceCount: 1})
	var me *ResourceMisuseError
	if !errors.As(err, &me) {
		t.Fatalf("Draw error = %v, want *ResourceMisuseError", err)
	}
	if me.Handle != bufA {
		t.Errorf("ResourceMisuseError.Handle = %d, want %d", me.Handle, bufA)
	}
	if got := g.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestScopeSequenceErrors(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.EndRendering(); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("EndRendering without scope error = %v, want ErrUsageSequence", err)
	}
	mustAdd(t, g, colorTarget(img))

	tests := []struct {
		name string
		info CreateInfo
	}{
		{"nested begin", colorTarget(img)},
		{"transfer inside scope", FillBufferInfo{Buffer: bufA, Size: 4}},
		{"dispatch inside scope", uniformDispatch(bufA)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Add(tt.info); !errors.Is(err, ErrUsageSequence) {
				t.Errorf("Add error = %v, want ErrUsageSequence", err)
			}
		})
	}
	if err := g.Flush(NewLogSink()); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("Flush with open scope error = %v, want ErrUsageSequence", err)
	}
	if g.Phase() != PhaseRecording {
		t.Errorf("Phase() = %s, want recording", g.Phase())
	}
}

func TestMalformedNodeLeavesGraphUnchanged(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})
	before := g.State(bufA)

	_, err := g.CopyBuffer(CopyBufferInfo{Src: bufA, Dst: bufB})
	var me *MalformedNodeError
	if !errors.As(err, &me) {
		t.Fatalf("CopyBuffer error = %v, want *MalformedNodeError", err)
	}
	if me.Kind != KindCopyBuffer {
		t.Errorf("MalformedNodeError.Kind = %s, want COPY_BUFFER", me.Kind)
	}
	if got := g.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if got := g.State(bufA); got != before {
		t.Errorf("State(A) = %s, want %s", got, before)
	}
	if got := g.State(bufB); !got.IsUndefined() {
		t.Errorf("State(B) = %s, want undefined", got)
	}
}

func TestMisuseLeavesTrackerUnchanged(t *testing.T) {
	g := newTestGraph(t)
	if err := g.ImportBuffer(bufC, gputypes.BufferUsageVertex); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 16})
	before := g.State(bufA)

	_, err := g.CopyBuffer(CopyBufferInfo{Src: bufA, Dst: bufC, Size: 16})
	var me *ResourceMisuseError
	if !errors.As(err, &me) {
		t.Fatalf("CopyBuffer error = %v, want *ResourceMisuseError", err)
	}
	if me.Handle != bufC {
		t.Errorf("ResourceMisuseError.Handle = %d, want %d", me.Handle, bufC)
	}
	if got := g.State(bufA); got != before {
		t.Errorf("State(A) = %s, want %s", got, before)
	}
	if got := g.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	if _, err := g.FillBuffer(FillBufferInfo{Buffer: 99, Size: 4}); !errors.Is(err, ErrResourceMisuse) {
		t.Errorf("FillBuffer(unknown) error = %v, want ErrResourceMisuse", err)
	}
}

func TestLifecycleSequence(t *testing.T) {
	g := New()
	if err := g.ImportBuffer(bufA, allBufferUsages); err != nil {
		t.Fatal(err)
	}
	if _, err := g.FillBuffer(FillBufferInfo{Buffer: bufA, Size: 4}); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("Add before Begin error = %v, want ErrUsageSequence", err)
	}
	if err := g.Flush(NewLogSink()); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("Flush before Begin error = %v, want ErrUsageSequence", err)
	}
	if err := g.Replay(NewLogSink()); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("Replay before Flush error = %v, want ErrUsageSequence", err)
	}

	if err := g.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := g.Begin(); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("second Begin error = %v, want ErrUsageSequence", err)
	}
	if err := g.Flush(nil); !errors.Is(err, ErrNilSink) {
		t.Errorf("Flush(nil) error = %v, want ErrNilSink", err)
	}
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 4})
	flushLog(t, g)

	if err := g.Flush(NewLogSink()); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("second Flush error = %v, want ErrUsageSequence", err)
	}
	if err := g.Begin(); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("Begin before Clear error = %v, want ErrUsageSequence", err)
	}
	if err := g.Clear(); err != nil {
		t.Fatal(err)
	}
	if g.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", g.Len())
	}
	if err := g.Begin(); err != nil {
		t.Errorf("Begin after Clear: %v", err)
	}
	if got := g.Resources(); len(got) != 1 {
		t.Errorf("Resources() after Clear = %v, want imports kept", got)
	}
}

func TestAddDuringFlushRejected(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 4})

	var inner error
	err := g.Flush(CommandSinkFunc(func(Command) error {
		if inner == nil {
			_, inner = g.FillBuffer(FillBufferInfo{Buffer: bufB, Size: 4})
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	var se *UsageSequenceError
	if !errors.As(inner, &se) {
		t.Fatalf("Add during flush error = %v, want *UsageSequenceError", inner)
	}
	if se.Phase != PhaseFlushing {
		t.Errorf("UsageSequenceError.Phase = %s, want flushing", se.Phase)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}

func TestFlushErrorReportsNode(t *testing.T) {
	g := newTestGraph(t)
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 4})
	mustAdd(t, g, FillBufferInfo{Buffer: bufB, Size: 4})
	mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 4})

	errSink := errors.New("device lost")
	var emitted int
	err := g.Flush(CommandSinkFunc(func(cmd Command) error {
		if cmd.Type == CommandNode && cmd.Node == 1 {
			return errSink
		}
		emitted++
		return nil
	}))

	var fe *FlushError
	if !errors.As(err, &fe) {
		t.Fatalf("Flush error = %v, want *FlushError", err)
	}
	if fe.Node != 1 || fe.Kind != KindFillBuffer {
		t.Errorf("FlushError = node %d %s, want node 1 FILL_BUFFER", fe.Node, fe.Kind)
	}
	if !errors.Is(err, errSink) {
		t.Errorf("Flush error does not wrap the sink error")
	}
	if emitted != 1 {
		t.Errorf("commands accepted before failure = %d, want 1", emitted)
	}
	if g.Phase() != PhaseIdle {
		t.Errorf("Phase() = %s, want idle", g.Phase())
	}
}

func TestFinalStateBarrier(t *testing.T) {
	g := newTestGraph(t)
	final := AccessState{Stage: StageBottomOfPipe, Layout: LayoutPresent}
	if err := g.RequireFinalState(img, final); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, g, ClearColorImageInfo{Image: img})

	sink := flushLog(t, g)
	entries := sink.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3:\n%s", len(entries), sink)
	}
	want := LogEntry{
		Type: CommandBarrier,
		Node: NoNode,
		Barriers: BarrierBatch{{
			SrcStage:  StageColorAttachmentOutput,
			DstStage:  StageBottomOfPipe,
			SrcAccess: AccessColorAttachmentWrite,
			OldLayout: LayoutColorAttachment,
			NewLayout: LayoutPresent,
			Handles:   []Handle{img},
		}},
	}
	if diff := cmp.Diff(want, entries[2]); diff != "" {
		t.Errorf("trailing barrier mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalStateSkippedWhenUntouched(t *testing.T) {
	g := newTestGraph(t)
	if err := g.RequireFinalState(img, AccessState{Stage: StageBottomOfPipe, Layout: LayoutPresent}); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, g, FillBufferInfo{Buffer: bufA, Size: 4})

	sink := flushLog(t, g)
	if got := sink.Barriers(); len(got) != 0 {
		t.Errorf("Barriers() = %v, want none", got)
	}
	if err := g.RequireFinalState(99, AccessState{}); !errors.Is(err, ErrResourceMisuse) {
		t.Errorf("RequireFinalState(unknown) error = %v, want ErrResourceMisuse", err)
	}
}

func TestClearCarriesLayouts(t *testing.T) {
	tests := []struct {
		name string
		sink CommandSink
		want Layout
	}{
		{"submitted", NewLogSink(), LayoutPresent},
		{"failed", CommandSinkFunc(func(Command) error { return errors.New("rejected") }), LayoutUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t)
			if err := g.RequireFinalState(img, AccessState{Stage: StageBottomOfPipe, Layout: LayoutPresent}); err != nil {
				t.Fatal(err)
			}
			mustAdd(t, g, ClearColorImageInfo{Image: img})
			_ = g.Flush(tt.sink)
			if err := g.Clear(); err != nil {
				t.Fatal(err)
			}
			st := g.State(img)
			if st.Layout != tt.want {
				t.Errorf("layout after Clear = %s, want %s", st.Layout, tt.want)
			}
			if !st.IsUndefined() {
				t.Errorf("State after Clear = %s, want no recorded access", st)
			}
		})
	}
}

func TestSetStateSynchronizesWithoutEdge(t *testing.T) {
	g := newTestGraph(t)
	if err := g.SetState(bufA, AccessState{Stage: StageHost, Access: AccessHostWrite}); err != nil {
		t.Fatal(err)
	}
	idx := mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 16})

	n, _ := g.Node(idx)
	if len(n.Edges) != 0 {
		t.Errorf("Edges = %v, want none", n.Edges)
	}
	want := []Barrier{{
		SrcStage:  StageHost,
		DstStage:  StageTransfer,
		SrcAccess: AccessHostWrite,
		DstAccess: AccessTransferRead,
		Handles:   []Handle{bufA},
	}}
	if diff := cmp.Diff(want, n.Transitions); diff != "" {
		t.Errorf("Transitions mismatch (-want +got):\n%s", diff)
	}
	if err := g.SetState(99, AccessState{}); !errors.Is(err, ErrResourceMisuse) {
		t.Errorf("SetState(unknown) error = %v, want ErrResourceMisuse", err)
	}
}

func TestImportErrors(t *testing.T) {
	g := New()
	if err := g.ImportBuffer(InvalidHandle, gputypes.BufferUsageVertex); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("ImportBuffer(0) error = %v, want ErrInvalidHandle", err)
	}
	if err := g.ImportBuffer(bufA, gputypes.BufferUsageVertex); err != nil {
		t.Fatal(err)
	}
	err := g.ImportImage(bufA, gputypes.TextureUsageCopyDst, gputypes.TextureFormatBGRA8Unorm, LayoutUndefined)
	if !errors.Is(err, ErrResourceMisuse) {
		t.Errorf("re-import as image error = %v, want ErrResourceMisuse", err)
	}
	if info, _ := g.Resource(bufA); info.Type != ResourceBuffer {
		t.Errorf("Resource(A).Type = %s, want buffer", info.Type)
	}
}

func TestNodeOwnsInfo(t *testing.T) {
	g := newTestGraph(t)
	vbs := []Handle{bufA}
	idx := mustAdd(t, g, DrawInfo{VertexBuffers: vbs, VertexCount: 3, InstanceCount: 1})
	vbs[0] = bufB

	n, _ := g.Node(idx)
	if got := n.Info.(DrawInfo).VertexBuffers[0]; got != bufA {
		t.Errorf("stored vertex buffer = %d, want %d", got, bufA)
	}
}

func TestQueryPairing(t *testing.T) {
	const target Handle = 11
	g := newTestGraph(t)
	if err := g.ImportImage(target, allTextureUsages, gputypes.TextureFormatBGRA8Unorm, LayoutUndefined); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, g, ResetQueryPoolInfo{QuerySet: 1, QueryCount: 2})
	mustAdd(t, g, colorTarget(target))
	mustAdd(t, g, BeginQueryInfo{QuerySet: 1, Query: 0})

	if _, err := g.BeginQuery(BeginQueryInfo{QuerySet: 1, Query: 0}); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("second BeginQuery error = %v, want ErrUsageSequence", err)
	}
	if _, err := g.EndQuery(EndQueryInfo{QuerySet: 1, Query: 1}); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("EndQuery(inactive) error = %v, want ErrUsageSequence", err)
	}
	if _, err := g.EndRendering(); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("EndRendering with active query error = %v, want ErrUsageSequence", err)
	}
	if _, err := g.ResetQueryPool(ResetQueryPoolInfo{QuerySet: 1, QueryCount: 2}); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("ResetQueryPool inside scope error = %v, want ErrUsageSequence", err)
	}

	mustAdd(t, g, EndQueryInfo{QuerySet: 1, Query: 0})
	mustAdd(t, g, EndRenderingInfo{})
	mustAdd(t, g, BeginQueryInfo{QuerySet: 1, Query: 1})
	if err := g.Flush(NewLogSink()); !errors.Is(err, ErrUsageSequence) {
		t.Errorf("Flush with active query error = %v, want ErrUsageSequence", err)
	}
	mustAdd(t, g, EndQueryInfo{QuerySet: 1, Query: 1})
	flushLog(t, g)
}

func TestResolveQueryOrdersReadback(t *testing.T) {
	g := newTestGraph(t)
	resolve := mustAdd(t, g, ResolveQueryInfo{QuerySet: 1, QueryCount: 2, Dst: bufA})
	readback := mustAdd(t, g, CopyBufferInfo{Src: bufA, Dst: bufB, Size: 16})

	n, _ := g.Node(readback)
	if len(n.Edges) != 1 || n.Edges[0].From != resolve {
		t.Fatalf("Edges = %v, want one edge from node %d", n.Edges, resolve)
	}
	if b := n.Edges[0].Barrier; b.SrcAccess != AccessTransferWrite || b.DstAccess != AccessTransferRead {
		t.Errorf("barrier = %s, want transfer write to transfer read", b)
	}
}

func TestUpdateMipmapsLeavesGeneralLayout(t *testing.T) {
	g := newTestGraph(t)
	e := gputypes.Extent3D{Width: 256, Height: 128, DepthOrArrayLayers: 1}
	mustAdd(t, g, CopyBufferToImageInfo{Src: bufA, Dst: img, Extent: e})
	idx, err := g.UpdateMipmaps(UpdateMipmapsInfo{Image: img, Extent: e, MipLevels: 9})
	if err != nil {
		t.Fatal(err)
	}

	n, _ := g.Node(idx)
	if len(n.Usages) != 1 {
		t.Fatalf("Usages = %v, want one merged usage", n.Usages)
	}
	u := n.Usages[0]
	if u.Layout != LayoutGeneral || u.Access != AccessTransferRead|AccessTransferWrite {
		t.Errorf("usage = %s %s, want TRANSFER_READ|TRANSFER_WRITE in GENERAL", u.Access, u.Layout)
	}
	if len(n.Edges) != 1 || n.Edges[0].Barrier.NewLayout != LayoutGeneral {
		t.Errorf("Edges = %v, want one edge into GENERAL", n.Edges)
	}
}
