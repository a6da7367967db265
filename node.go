// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"github.com/gogpu/gputypes"
)

// NodeKind identifies the operation a node performs.
type NodeKind uint8

// Node kinds.
const (
	KindUnused NodeKind = iota
	KindBeginRendering
	KindEndRendering
	KindClearAttachments
	KindClearColorImage
	KindClearDepthStencilImage
	KindFillBuffer
	KindUpdateBuffer
	KindCopyBuffer
	KindCopyImage
	KindCopyBufferToImage
	KindCopyImageToBuffer
	KindBlitImage
	KindDispatch
	KindDispatchIndirect
	KindDraw
	KindDrawIndexed
	KindDrawIndirect
	KindDrawIndexedIndirect
	KindSynchronization
	KindBeginQuery
	KindEndQuery
	KindResetQueryPool
	KindResolveQuery
	KindUpdateMipmaps

	kindCount
)

var kindNames = [...]string{
	KindUnused:                 "UNUSED",
	KindBeginRendering:         "BEGIN_RENDERING",
	KindEndRendering:           "END_RENDERING",
	KindClearAttachments:       "CLEAR_ATTACHMENTS",
	KindClearColorImage:        "CLEAR_COLOR_IMAGE",
	KindClearDepthStencilImage: "CLEAR_DEPTH_STENCIL_IMAGE",
	KindFillBuffer:             "FILL_BUFFER",
	KindUpdateBuffer:           "UPDATE_BUFFER",
	KindCopyBuffer:             "COPY_BUFFER",
	KindCopyImage:              "COPY_IMAGE",
	KindCopyBufferToImage:      "COPY_BUFFER_TO_IMAGE",
	KindCopyImageToBuffer:      "COPY_IMAGE_TO_BUFFER",
	KindBlitImage:              "BLIT_IMAGE",
	KindDispatch:               "DISPATCH",
	KindDispatchIndirect:       "DISPATCH_INDIRECT",
	KindDraw:                   "DRAW",
	KindDrawIndexed:            "DRAW_INDEXED",
	KindDrawIndirect:           "DRAW_INDIRECT",
	KindDrawIndexedIndirect:    "DRAW_INDEXED_INDIRECT",
	KindSynchronization:        "SYNCHRONIZATION",
	KindBeginQuery:             "BEGIN_QUERY",
	KindEndQuery:               "END_QUERY",
	KindResetQueryPool:         "RESET_QUERY_POOL",
	KindResolveQuery:           "RESOLVE_QUERY",
	KindUpdateMipmaps:          "UPDATE_MIPMAPS",
}

// LastKind is the highest valid node kind.
const LastKind = kindCount - 1

// String returns the upper-case kind name.
func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// NodeIndex is the position of a node in creation order.
type NodeIndex int

// NoNode marks the absence of a node, e.g. the source of a first-use
// layout transition.
const NoNode NodeIndex = -1

// PipelineID is an opaque pipeline handle resolved by the command sink.
type PipelineID uint64

// BindGroupID is an opaque bind group handle resolved by the command sink.
type BindGroupID uint64

// QuerySetID is an opaque query set handle resolved by the command sink.
// Query sets are not tracked resources: ordering between queries and their
// resolves follows creation order.
type QuerySetID uint64

// CreateInfo holds the creation parameters of one node kind.
//
// The set of implementations is closed: each kind has exactly one
// *Info struct in this package.
type CreateInfo interface {
	Kind() NodeKind
	createInfo()
}

// BindingType describes how a shader accesses a bound resource.
type BindingType uint8

// Binding types.
const (
	BindingUniformBuffer BindingType = iota + 1
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingSampledImage
	BindingStorageImage
	BindingReadOnlyStorageImage
)

// ShaderResource is a resource bound to a draw or dispatch.
type ShaderResource struct {
	Handle  Handle
	Binding BindingType
	// Stages overrides the shader stages the resource is visible to.
	// Zero selects the node kind's shader stages.
	Stages StageFlags
}

// Bindings is the pipeline state shared by draws and dispatches.
type Bindings struct {
	Pipeline   PipelineID
	BindGroups []BindGroupID
	Resources  []ShaderResource
}

// ColorAttachment is a render target of a rendering scope.
type ColorAttachment struct {
	Image Handle
	// Resolve is an optional multisample resolve target.
	Resolve    Handle
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearValue gputypes.Color
}

// DepthStencilAttachment is the depth/stencil target of a rendering scope.
type DepthStencilAttachment struct {
	Image             Handle
	DepthLoadOp       gputypes.LoadOp
	DepthStoreOp      gputypes.StoreOp
	DepthClearValue   float32
	StencilLoadOp     gputypes.LoadOp
	StencilStoreOp    gputypes.StoreOp
	StencilClearValue uint32
	ReadOnly          bool
}

// BeginRenderingInfo opens a rendering scope over a set of attachments.
type BeginRenderingInfo struct {
	Label            string
	Width, Height    uint32
	ColorAttachments []ColorAttachment
	DepthStencil     *DepthStencilAttachment
}

// EndRenderingInfo closes the open rendering scope.
type EndRenderingInfo struct{}

// ClearAttachmentsInfo clears attachments of the open rendering scope.
type ClearAttachmentsInfo struct {
	ColorAttachment uint32
	Color           gputypes.Color
	ClearDepth      bool
	Depth           float32
}

// ClearColorImageInfo clears a whole color image.
type ClearColorImageInfo struct {
	Image Handle
	Color gputypes.Color
}

// ClearDepthStencilImageInfo clears a whole depth/stencil image.
type ClearDepthStencilImageInfo struct {
	Image   Handle
	Depth   float32
	Stencil uint32
}

// FillBufferInfo fills a buffer range with a repeated 32-bit value.
type FillBufferInfo struct {
	Buffer Handle
	Offset uint64
	Size   uint64
	Value  uint32
}

// UpdateBufferInfo writes inline data into a buffer.
type UpdateBufferInfo struct {
	Buffer Handle
	Offset uint64
	Data   []byte
}

// CopyBufferInfo copies a range between buffers.
type CopyBufferInfo struct {
	Src, Dst             Handle
	SrcOffset, DstOffset uint64
	Size                 uint64
}

// CopyImageInfo copies a region between images.
type CopyImageInfo struct {
	Src, Dst       Handle
	SrcMip, DstMip uint32
	Extent         gputypes.Extent3D
}

// CopyBufferToImageInfo uploads buffer contents into an image.
type CopyBufferToImageInfo struct {
	Src          Handle
	Dst          Handle
	BufferOffset uint64
	BytesPerRow  uint32
	RowsPerImage uint32
	MipLevel     uint32
	Extent       gputypes.Extent3D
}

// CopyImageToBufferInfo reads image contents back into a buffer.
type CopyImageToBufferInfo struct {
	Src          Handle
	Dst          Handle
	BufferOffset uint64
	BytesPerRow  uint32
	RowsPerImage uint32
	MipLevel     uint32
	Extent       gputypes.Extent3D
}

// BlitImageInfo copies a region between images with scaling.
type BlitImageInfo struct {
	Src, Dst             Handle
	SrcExtent, DstExtent gputypes.Extent3D
	Filter               gputypes.FilterMode
}

// DispatchInfo runs a compute pipeline.
type DispatchInfo struct {
	Bindings
	GroupsX, GroupsY, GroupsZ uint32
}

// DispatchIndirectInfo runs a compute pipeline with GPU-provided group
// counts.
type DispatchIndirectInfo struct {
	Bindings
	Buffer Handle
	Offset uint64
}

// DrawInfo draws non-indexed primitives.
type DrawInfo struct {
	Bindings
	VertexBuffers []Handle
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// DrawIndexedInfo draws indexed primitives.
type DrawIndexedInfo struct {
	Bindings
	VertexBuffers []Handle
	IndexBuffer   Handle
	IndexFormat   gputypes.IndexFormat
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// DrawIndirectInfo draws non-indexed primitives with GPU-provided
// arguments.
type DrawIndirectInfo struct {
	Bindings
	VertexBuffers []Handle
	Buffer        Handle
	Offset        uint64
	DrawCount     uint32
	Stride        uint32
}

// DrawIndexedIndirectInfo draws indexed primitives with GPU-provided
// arguments.
type DrawIndexedIndirectInfo struct {
	Bindings
	VertexBuffers []Handle
	IndexBuffer   Handle
	IndexFormat   gputypes.IndexFormat
	Buffer        Handle
	Offset        uint64
	DrawCount     uint32
	Stride        uint32
}

// SynchronizationInfo moves a resource into an explicit state, e.g. an
// image into LayoutPresent or a buffer into host-readable memory.
type SynchronizationInfo struct {
	Handle Handle
	Stage  StageFlags
	Access AccessFlags
	Layout Layout
}

// BeginQueryInfo starts an occlusion query. The query stays active until
// the matching EndQuery and must end in the rendering scope it began in.
type BeginQueryInfo struct {
	QuerySet QuerySetID
	Query    uint32
	// Precise requests exact sample counts instead of a boolean result.
	Precise bool
}

// EndQueryInfo ends an active query.
type EndQueryInfo struct {
	QuerySet QuerySetID
	Query    uint32
}

// ResetQueryPoolInfo makes a range of queries available for reuse.
type ResetQueryPoolInfo struct {
	QuerySet   QuerySetID
	FirstQuery uint32
	QueryCount uint32
}

// ResolveQueryInfo copies query results into a buffer, eight bytes per
// query.
type ResolveQueryInfo struct {
	QuerySet   QuerySetID
	FirstQuery uint32
	QueryCount uint32
	Dst        Handle
	DstOffset  uint64
}

// UpdateMipmapsInfo regenerates mip levels 1 to MipLevels-1 of an image by
// successive downscaling from level 0.
type UpdateMipmapsInfo struct {
	Image Handle
	// Extent is the size of level 0.
	Extent    gputypes.Extent3D
	MipLevels uint32
	Filter    gputypes.FilterMode
}

// Kind implementations.

func (BeginRenderingInfo) Kind() NodeKind         { return KindBeginRendering }
func (EndRenderingInfo) Kind() NodeKind           { return KindEndRendering }
func (ClearAttachmentsInfo) Kind() NodeKind       { return KindClearAttachments }
func (ClearColorImageInfo) Kind() NodeKind        { return KindClearColorImage }
func (ClearDepthStencilImageInfo) Kind() NodeKind { return KindClearDepthStencilImage }
func (FillBufferInfo) Kind() NodeKind             { return KindFillBuffer }
func (UpdateBufferInfo) Kind() NodeKind           { return KindUpdateBuffer }
func (CopyBufferInfo) Kind() NodeKind             { return KindCopyBuffer }
func (CopyImageInfo) Kind() NodeKind              { return KindCopyImage }
func (CopyBufferToImageInfo) Kind() NodeKind      { return KindCopyBufferToImage }
func (CopyImageToBufferInfo) Kind() NodeKind      { return KindCopyImageToBuffer }
func (BlitImageInfo) Kind() NodeKind              { return KindBlitImage }
func (DispatchInfo) Kind() NodeKind               { return KindDispatch }
func (DispatchIndirectInfo) Kind() NodeKind       { return KindDispatchIndirect }
func (DrawInfo) Kind() NodeKind                   { return KindDraw }
func (DrawIndexedInfo) Kind() NodeKind            { return KindDrawIndexed }
func (DrawIndirectInfo) Kind() NodeKind           { return KindDrawIndirect }
func (DrawIndexedIndirectInfo) Kind() NodeKind    { return KindDrawIndexedIndirect }
func (SynchronizationInfo) Kind() NodeKind        { return KindSynchronization }
func (BeginQueryInfo) Kind() NodeKind             { return KindBeginQuery }
func (EndQueryInfo) Kind() NodeKind               { return KindEndQuery }
func (ResetQueryPoolInfo) Kind() NodeKind         { return KindResetQueryPool }
func (ResolveQueryInfo) Kind() NodeKind           { return KindResolveQuery }
func (UpdateMipmapsInfo) Kind() NodeKind          { return KindUpdateMipmaps }

func (BeginRenderingInfo) createInfo()         {}
func (EndRenderingInfo) createInfo()           {}
func (ClearAttachmentsInfo) createInfo()       {}
func (ClearColorImageInfo) createInfo()        {}
func (ClearDepthStencilImageInfo) createInfo() {}
func (FillBufferInfo) createInfo()             {}
func (UpdateBufferInfo) createInfo()           {}
func (CopyBufferInfo) createInfo()             {}
func (CopyImageInfo) createInfo()              {}
func (CopyBufferToImageInfo) createInfo()      {}
func (CopyImageToBufferInfo) createInfo()      {}
func (BlitImageInfo) createInfo()              {}
func (DispatchInfo) createInfo()               {}
func (DispatchIndirectInfo) createInfo()       {}
func (DrawInfo) createInfo()                   {}
func (DrawIndexedInfo) createInfo()            {}
func (DrawIndirectInfo) createInfo()           {}
func (DrawIndexedIndirectInfo) createInfo()    {}
func (SynchronizationInfo) createInfo()        {}
func (BeginQueryInfo) createInfo()             {}
func (EndQueryInfo) createInfo()               {}
func (ResetQueryPoolInfo) createInfo()         {}
func (ResolveQueryInfo) createInfo()           {}
func (UpdateMipmapsInfo) createInfo()          {}

// Node is one recorded operation.
//
// Nodes are immutable once appended; Edges and Transitions are attached by
// the graph before the node becomes visible.
type Node struct {
	Index  NodeIndex
	Kind   NodeKind
	Info   CreateInfo
	Usages []ResourceUsage

	// Edges are the dependencies on earlier nodes, all with From < Index.
	Edges []Edge

	// Transitions are first-use layout changes that have no source node.
	Transitions []Barrier
}

// Edge is a dependency from an earlier node to a later one, annotated with
// the barrier that makes the later access safe.
type Edge struct {
	From    NodeIndex
	To      NodeIndex
	Handle  Handle
	Barrier Barrier
}

// cloneInfo copies slice fields so the node owns its payload.
func cloneInfo(info CreateInfo) CreateInfo {
	switch ci := info.(type) {
	case BeginRenderingInfo:
		ci.ColorAttachments = append([]ColorAttachment(nil), ci.ColorAttachments...)
		if ci.DepthStencil != nil {
			ds := *ci.DepthStencil
			ci.DepthStencil = &ds
		}
		return ci
	case UpdateBufferInfo:
		ci.Data = append([]byte(nil), ci.Data...)
		return ci
	case DispatchInfo:
		ci.Bindings = ci.Bindings.clone()
		return ci
	case DispatchIndirectInfo:
		ci.Bindings = ci.Bindings.clone()
		return ci
	case DrawInfo:
		ci.Bindings = ci.Bindings.clone()
		ci.VertexBuffers = append([]Handle(nil), ci.VertexBuffers...)
		return ci
	case DrawIndexedInfo:
		ci.Bindings = ci.Bindings.clone()
		ci.VertexBuffers = append([]Handle(nil), ci.VertexBuffers...)
		return ci
	case DrawIndirectInfo:
		ci.Bindings = ci.Bindings.clone()
		ci.VertexBuffers = append([]Handle(nil), ci.VertexBuffers...)
		return ci
	case DrawIndexedIndirectInfo:
		ci.Bindings = ci.Bindings.clone()
		ci.VertexBuffers = append([]Handle(nil), ci.VertexBuffers...)
		return ci
	default:
		return info
	}
}

func (b Bindings) clone() Bindings {
	return Bindings{
		Pipeline:   b.Pipeline,
		BindGroups: append([]BindGroupID(nil), b.BindGroups...),
		Resources:  append([]ShaderResource(nil), b.Resources...),
	}
}
