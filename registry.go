// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
)

// ResourceCategory tells which resource types a node kind can touch.
type ResourceCategory uint8

// Resource categories.
const (
	CategoryNone ResourceCategory = iota
	CategoryBuffers
	CategoryImages
	CategoryMixed
)

// String returns the category name.
func (c ResourceCategory) String() string {
	switch c {
	case CategoryBuffers:
		return "buffers"
	case CategoryImages:
		return "images"
	case CategoryMixed:
		return "mixed"
	default:
		return "none"
	}
}

// NodeInfo is the static metadata of a node kind.
type NodeInfo struct {
	Kind NodeKind
	// Stages are the pipeline stages the operation executes in.
	Stages   StageFlags
	Category ResourceCategory
	// RequiresResource rejects nodes of this kind that touch nothing.
	RequiresResource bool
	// WithinRendering marks kinds that must be recorded inside a
	// rendering scope.
	WithinRendering bool
}

const drawShaderStages = StageVertexShader | StageFragmentShader

// Sizes of the argument records read by indirect draws.
const (
	drawIndirectArgsSize        = 16
	drawIndexedIndirectArgsSize = 20
)

const queryResolveAlignment = 256

// Registry is the immutable table of node kinds. It is built once and
// passed by reference to the link builder and the recorder.
type Registry struct {
	infos [kindCount]NodeInfo
}

// NewRegistry builds the node kind table.
func NewRegistry() *Registry {
	r := &Registry{}
	set := func(k NodeKind, stages StageFlags, cat ResourceCategory, requires, within bool) {
		r.infos[k] = NodeInfo{
			Kind:             k,
			Stages:           stages,
			Category:         cat,
			RequiresResource: requires,
			WithinRendering:  within,
		}
	}
	set(KindBeginRendering, StageColorAttachmentOutput|StageEarlyFragmentTests|StageLateFragmentTests, CategoryImages, true, false)
	set(KindEndRendering, StageNone, CategoryNone, false, false)
	set(KindClearAttachments, StageColorAttachmentOutput|StageLateFragmentTests, CategoryNone, false, true)
	set(KindClearColorImage, StageColorAttachmentOutput, CategoryImages, true, false)
	set(KindClearDepthStencilImage, StageEarlyFragmentTests|StageLateFragmentTests, CategoryImages, true, false)
	set(KindFillBuffer, StageTransfer, CategoryBuffers, true, false)
	set(KindUpdateBuffer, StageTransfer, CategoryBuffers, true, false)
	set(KindCopyBuffer, StageTransfer, CategoryBuffers, true, false)
	set(KindCopyImage, StageTransfer, CategoryImages, true, false)
	set(KindCopyBufferToImage, StageTransfer, CategoryMixed, true, false)
	set(KindCopyImageToBuffer, StageTransfer, CategoryMixed, true, false)
	set(KindBlitImage, StageTransfer, CategoryImages, true, false)
	set(KindDispatch, StageComputeShader, CategoryMixed, false, false)
	set(KindDispatchIndirect, StageComputeShader|StageDrawIndirect, CategoryMixed, true, false)
	set(KindDraw, StageAllGraphics, CategoryMixed, false, true)
	set(KindDrawIndexed, StageAllGraphics, CategoryMixed, true, true)
	set(KindDrawIndirect, StageAllGraphics, CategoryMixed, true, true)
	set(KindDrawIndexedIndirect, StageAllGraphics, CategoryMixed, true, true)
	set(KindSynchronization, StageNone, CategoryMixed, true, false)
	set(KindBeginQuery, StageEarlyFragmentTests|StageLateFragmentTests, CategoryNone, false, true)
	set(KindEndQuery, StageEarlyFragmentTests|StageLateFragmentTests, CategoryNone, false, true)
	set(KindResetQueryPool, StageTransfer, CategoryNone, false, false)
	set(KindResolveQuery, StageTransfer, CategoryBuffers, true, false)
	set(KindUpdateMipmaps, StageTransfer, CategoryImages, true, false)
	return r
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// DefaultRegistry returns the process-wide node kind table.
func DefaultRegistry() *Registry { return defaultRegistry() }

// Info returns the metadata of kind k.
func (r *Registry) Info(k NodeKind) NodeInfo {
	if int(k) >= len(r.infos) {
		return NodeInfo{}
	}
	return r.infos[k]
}

// StateAfter returns the resource state produced by usage u.
func (r *Registry) StateAfter(u ResourceUsage) AccessState {
	return AccessState{Stage: u.Stage, Access: u.Access, Layout: u.Layout}
}

// Usages derives the resource usages of a node from its creation
// parameters.
//
// Usages is pure: the result is merged per handle and sorted by handle, so
// identical parameters always yield identical slices. Structurally invalid
// parameters yield a *MalformedNodeError.
func (r *Registry) Usages(info CreateInfo) ([]ResourceUsage, error) {
	if info == nil {
		return nil, &MalformedNodeError{Kind: KindUnused, Reason: "nil create info"}
	}
	kind := info.Kind()
	d := usageDeriver{kind: kind}

	switch ci := info.(type) {
	case BeginRenderingInfo:
		d.beginRendering(ci)
	case EndRenderingInfo, ClearAttachmentsInfo:
	case ClearColorImageInfo:
		// Image clears are encoded as attachment clears of an empty pass.
		d.image(ci.Image, StageColorAttachmentOutput, AccessColorAttachmentWrite, LayoutColorAttachment, gputypes.TextureUsageRenderAttachment)
	case ClearDepthStencilImageInfo:
		d.image(ci.Image, StageEarlyFragmentTests|StageLateFragmentTests, AccessDepthStencilWrite, LayoutDepthStencilAttachment, gputypes.TextureUsageRenderAttachment)
	case FillBufferInfo:
		d.require(ci.Size > 0, "zero fill size")
		d.require(ci.Offset%4 == 0 && ci.Size%4 == 0, "fill range must be 4-byte aligned")
		d.buffer(ci.Buffer, StageTransfer, AccessTransferWrite, gputypes.BufferUsageCopyDst)
	case UpdateBufferInfo:
		d.require(len(ci.Data) > 0, "empty update data")
		d.require(ci.Offset%4 == 0 && len(ci.Data)%4 == 0, "update range must be 4-byte aligned")
		d.buffer(ci.Buffer, StageTransfer, AccessTransferWrite, gputypes.BufferUsageCopyDst)
	case CopyBufferInfo:
		d.require(ci.Size > 0, "zero copy size")
		d.buffer(ci.Src, StageTransfer, AccessTransferRead, gputypes.BufferUsageCopySrc)
		d.buffer(ci.Dst, StageTransfer, AccessTransferWrite, gputypes.BufferUsageCopyDst)
	case CopyImageInfo:
		d.extent(ci.Extent)
		d.image(ci.Src, StageTransfer, AccessTransferRead, LayoutTransferSrc, gputypes.TextureUsageCopySrc)
		d.image(ci.Dst, StageTransfer, AccessTransferWrite, LayoutTransferDst, gputypes.TextureUsageCopyDst)
	case CopyBufferToImageInfo:
		d.extent(ci.Extent)
		d.buffer(ci.Src, StageTransfer, AccessTransferRead, gputypes.BufferUsageCopySrc)
		d.image(ci.Dst, StageTransfer, AccessTransferWrite, LayoutTransferDst, gputypes.TextureUsageCopyDst)
	case CopyImageToBufferInfo:
		d.extent(ci.Extent)
		d.image(ci.Src, StageTransfer, AccessTransferRead, LayoutTransferSrc, gputypes.TextureUsageCopySrc)
		d.buffer(ci.Dst, StageTransfer, AccessTransferWrite, gputypes.BufferUsageCopyDst)
	case BlitImageInfo:
		d.extent(ci.SrcExtent)
		d.extent(ci.DstExtent)
		d.image(ci.Src, StageTransfer, AccessTransferRead, LayoutTransferSrc, gputypes.TextureUsageCopySrc)
		d.image(ci.Dst, StageTransfer, AccessTransferWrite, LayoutTransferDst, gputypes.TextureUsageCopyDst)
	case DispatchInfo:
		d.require(ci.GroupsX > 0 && ci.GroupsY > 0 && ci.GroupsZ > 0, "zero workgroup count")
		d.bindings(ci.Bindings, StageComputeShader)
	case DispatchIndirectInfo:
		d.require(ci.Offset%4 == 0, "indirect offset must be 4-byte aligned")
		d.bindings(ci.Bindings, StageComputeShader)
		d.indirect(ci.Buffer)
	case DrawInfo:
		d.require(ci.VertexCount > 0 && ci.InstanceCount > 0, "empty draw")
		d.bindings(ci.Bindings, drawShaderStages)
		d.vertexBuffers(ci.VertexBuffers)
	case DrawIndexedInfo:
		d.require(ci.IndexCount > 0 && ci.InstanceCount > 0, "empty draw")
		d.bindings(ci.Bindings, drawShaderStages)
		d.vertexBuffers(ci.VertexBuffers)
		d.buffer(ci.IndexBuffer, StageVertexInput, AccessIndexRead, gputypes.BufferUsageIndex)
	case DrawIndirectInfo:
		d.require(ci.DrawCount > 0, "zero draw count")
		d.indirectLayout(ci.Offset, ci.DrawCount, ci.Stride, drawIndirectArgsSize)
		d.bindings(ci.Bindings, drawShaderStages)
		d.vertexBuffers(ci.VertexBuffers)
		d.indirect(ci.Buffer)
	case DrawIndexedIndirectInfo:
		d.require(ci.DrawCount > 0, "zero draw count")
		d.indirectLayout(ci.Offset, ci.DrawCount, ci.Stride, drawIndexedIndirectArgsSize)
		d.bindings(ci.Bindings, drawShaderStages)
		d.vertexBuffers(ci.VertexBuffers)
		d.buffer(ci.IndexBuffer, StageVertexInput, AccessIndexRead, gputypes.BufferUsageIndex)
		d.indirect(ci.Buffer)
	case SynchronizationInfo:
		d.require(ci.Stage != StageNone, "synchronization without destination stage")
		d.synchronization(ci)
	case BeginQueryInfo, EndQueryInfo:
	case ResetQueryPoolInfo:
		d.require(ci.QueryCount > 0, "zero query count")
	case ResolveQueryInfo:
		d.require(ci.QueryCount > 0, "zero query count")
		d.require(ci.DstOffset%queryResolveAlignment == 0, "resolve offset must be 256-byte aligned")
		d.buffer(ci.Dst, StageTransfer, AccessTransferWrite, gputypes.BufferUsageQueryResolve)
	case UpdateMipmapsInfo:
		d.extent(ci.Extent)
		d.require(ci.MipLevels >= 2, "fewer than two mip levels")
		d.require(ci.MipLevels <= mipLevelCount(ci.Extent), "more mip levels than the extent allows")
		// Each level is read as a source and written as a destination, so
		// the merged usage leaves the image in LayoutGeneral.
		d.image(ci.Image, StageTransfer, AccessTransferRead, LayoutTransferSrc, gputypes.TextureUsageCopySrc)
		d.image(ci.Image, StageTransfer, AccessTransferWrite, LayoutTransferDst, gputypes.TextureUsageCopyDst)
	default:
		return nil, &MalformedNodeError{Kind: kind, Reason: fmt.Sprintf("unsupported create info %T", info)}
	}

	if d.err != nil {
		return nil, d.err
	}
	if len(d.usages) == 0 && r.Info(kind).RequiresResource {
		return nil, &MalformedNodeError{Kind: kind, Reason: "no resource usages"}
	}
	us, ok := mergeUsages(d.usages)
	if !ok {
		return nil, &MalformedNodeError{Kind: kind, Reason: "handle used as both buffer and image"}
	}
	return us, nil
}

// usageDeriver accumulates usages and the first structural error.
type usageDeriver struct {
	kind   NodeKind
	usages []ResourceUsage
	err    error
}

func (d *usageDeriver) fail(reason string) {
	if d.err == nil {
		d.err = &MalformedNodeError{Kind: d.kind, Reason: reason}
	}
}

func (d *usageDeriver) require(ok bool, reason string) {
	if !ok {
		d.fail(reason)
	}
}

func (d *usageDeriver) extent(e gputypes.Extent3D) {
	d.require(e.Width > 0 && e.Height > 0 && e.DepthOrArrayLayers > 0, "empty extent")
}

func (d *usageDeriver) buffer(h Handle, stage StageFlags, access AccessFlags, need gputypes.BufferUsage) {
	if !h.IsValid() {
		d.fail("invalid buffer handle")
		return
	}
	d.usages = append(d.usages, ResourceUsage{
		Handle:      h,
		Type:        ResourceBuffer,
		Stage:       stage,
		Access:      access,
		BufferUsage: need,
	})
}

func (d *usageDeriver) image(h Handle, stage StageFlags, access AccessFlags, layout Layout, need gputypes.TextureUsage) {
	if !h.IsValid() {
		d.fail("invalid image handle")
		return
	}
	d.usages = append(d.usages, ResourceUsage{
		Handle:       h,
		Type:         ResourceImage,
		Stage:        stage,
		Access:       access,
		Layout:       layout,
		TextureUsage: need,
	})
}

func (d *usageDeriver) vertexBuffers(hs []Handle) {
	for _, h := range hs {
		d.buffer(h, StageVertexInput, AccessVertexAttributeRead, gputypes.BufferUsageVertex)
	}
}

// indirectLayout checks that drawCount argument records of size bytes fit
// the stride between them.
func (d *usageDeriver) indirectLayout(offset uint64, drawCount, stride, size uint32) {
	d.require(offset%4 == 0, "indirect offset must be 4-byte aligned")
	if drawCount > 1 {
		d.require(stride >= size && stride%4 == 0, fmt.Sprintf("indirect stride %d below %d bytes or unaligned", stride, size))
	}
}

// mipLevelCount is the length of the full mip chain of e.
func mipLevelCount(e gputypes.Extent3D) uint32 {
	return uint32(bits.Len32(max(e.Width, e.Height)))
}

func (d *usageDeriver) indirect(h Handle) {
	d.buffer(h, StageDrawIndirect, AccessIndirectCommandRead, gputypes.BufferUsageIndirect)
}

func (d *usageDeriver) bindings(b Bindings, defaultStages StageFlags) {
	for _, res := range b.Resources {
		stages := res.Stages
		if stages == StageNone {
			stages = defaultStages
		}
		switch res.Binding {
		case BindingUniformBuffer:
			d.buffer(res.Handle, stages, AccessUniformRead, gputypes.BufferUsageUniform)
		case BindingStorageBuffer:
			d.buffer(res.Handle, stages, AccessShaderRead|AccessShaderWrite, gputypes.BufferUsageStorage)
		case BindingReadOnlyStorageBuffer:
			d.buffer(res.Handle, stages, AccessShaderRead, gputypes.BufferUsageStorage)
		case BindingSampledImage:
			d.image(res.Handle, stages, AccessShaderRead, LayoutShaderReadOnly, gputypes.TextureUsageTextureBinding)
		case BindingStorageImage:
			d.image(res.Handle, stages, AccessShaderRead|AccessShaderWrite, LayoutGeneral, gputypes.TextureUsageStorageBinding)
		case BindingReadOnlyStorageImage:
			d.image(res.Handle, stages, AccessShaderRead, LayoutGeneral, gputypes.TextureUsageStorageBinding)
		default:
			d.fail(fmt.Sprintf("unknown binding type %d", res.Binding))
		}
	}
}

func (d *usageDeriver) beginRendering(ci BeginRenderingInfo) {
	d.require(ci.Width > 0 && ci.Height > 0, "empty render area")
	for _, att := range ci.ColorAttachments {
		access := AccessColorAttachmentWrite
		if att.LoadOp == gputypes.LoadOpLoad {
			access |= AccessColorAttachmentRead
		}
		d.image(att.Image, StageColorAttachmentOutput, access, LayoutColorAttachment, gputypes.TextureUsageRenderAttachment)
		if att.Resolve.IsValid() {
			d.image(att.Resolve, StageColorAttachmentOutput, AccessColorAttachmentWrite, LayoutColorAttachment, gputypes.TextureUsageRenderAttachment)
		}
	}
	if ds := ci.DepthStencil; ds != nil {
		stages := StageEarlyFragmentTests | StageLateFragmentTests
		if ds.ReadOnly {
			d.image(ds.Image, stages, AccessDepthStencilRead, LayoutDepthStencilReadOnly, gputypes.TextureUsageRenderAttachment)
		} else {
			d.image(ds.Image, stages, AccessDepthStencilRead|AccessDepthStencilWrite, LayoutDepthStencilAttachment, gputypes.TextureUsageRenderAttachment)
		}
	}
}

// synchronization declares an explicit state change. The usage carries no
// capability requirement: it only moves the resource between states.
func (d *usageDeriver) synchronization(ci SynchronizationInfo) {
	if !ci.Handle.IsValid() {
		d.fail("invalid handle")
		return
	}
	u := ResourceUsage{Handle: ci.Handle, Stage: ci.Stage, Access: ci.Access, Layout: ci.Layout}
	if ci.Layout != LayoutUndefined {
		u.Type = ResourceImage
	}
	d.usages = append(d.usages, u)
}

// mergeUsages combines usages of the same handle and sorts by handle.
// Conflicting image layouts on one handle collapse to LayoutGeneral; a
// handle used as two resource types reports false.
func mergeUsages(us []ResourceUsage) ([]ResourceUsage, bool) {
	slices.SortStableFunc(us, func(a, b ResourceUsage) int {
		return cmp.Compare(a.Handle, b.Handle)
	})
	out := us[:0]
	for _, u := range us {
		n := len(out)
		if n == 0 || out[n-1].Handle != u.Handle {
			out = append(out, u)
			continue
		}
		m := &out[n-1]
		if m.Type != 0 && u.Type != 0 && m.Type != u.Type {
			return nil, false
		}
		m.Stage |= u.Stage
		m.Access |= u.Access
		m.BufferUsage |= u.BufferUsage
		m.TextureUsage |= u.TextureUsage
		if m.Type == 0 {
			m.Type = u.Type
		}
		if m.Layout != u.Layout {
			m.Layout = LayoutGeneral
		}
	}
	return out, true
}
