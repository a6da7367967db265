// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphfile

import (
	"fmt"

	"github.com/gogpu/rendergraph"
)

// nodeSpec is the HCL body of one node kind.
type nodeSpec interface {
	info(r *resolver) (rendergraph.CreateInfo, error)
}

var nodeSpecs = map[rendergraph.NodeKind]func() nodeSpec{
	rendergraph.KindBeginRendering:         func() nodeSpec { return &beginRenderingSpec{} },
	rendergraph.KindEndRendering:           func() nodeSpec { return &endRenderingSpec{} },
	rendergraph.KindClearAttachments:       func() nodeSpec { return &clearAttachmentsSpec{} },
	rendergraph.KindClearColorImage:        func() nodeSpec { return &clearColorSpec{} },
	rendergraph.KindClearDepthStencilImage: func() nodeSpec { return &clearDepthStencilSpec{} },
	rendergraph.KindFillBuffer:             func() nodeSpec { return &fillBufferSpec{} },
	rendergraph.KindUpdateBuffer:           func() nodeSpec { return &updateBufferSpec{} },
	rendergraph.KindCopyBuffer:             func() nodeSpec { return &copyBufferSpec{} },
	rendergraph.KindCopyImage:              func() nodeSpec { return &copyImageSpec{} },
	rendergraph.KindCopyBufferToImage:      func() nodeSpec { return &bufferImageCopySpec{toImage: true} },
	rendergraph.KindCopyImageToBuffer:      func() nodeSpec { return &bufferImageCopySpec{} },
	rendergraph.KindBlitImage:              func() nodeSpec { return &blitImageSpec{} },
	rendergraph.KindDispatch:               func() nodeSpec { return &dispatchSpec{} },
	rendergraph.KindDispatchIndirect:       func() nodeSpec { return &dispatchIndirectSpec{} },
	rendergraph.KindDraw:                   func() nodeSpec { return &drawSpec{} },
	rendergraph.KindDrawIndexed:            func() nodeSpec { return &drawIndexedSpec{} },
	rendergraph.KindDrawIndirect:           func() nodeSpec { return &drawIndirectSpec{} },
	rendergraph.KindDrawIndexedIndirect:    func() nodeSpec { return &drawIndexedIndirectSpec{} },
	rendergraph.KindSynchronization:        func() nodeSpec { return &synchronizationSpec{} },
	rendergraph.KindBeginQuery:             func() nodeSpec { return &querySpec{begin: true} },
	rendergraph.KindEndQuery:               func() nodeSpec { return &querySpec{} },
	rendergraph.KindResetQueryPool:         func() nodeSpec { return &resetQueryPoolSpec{} },
	rendergraph.KindResolveQuery:           func() nodeSpec { return &resolveQuerySpec{} },
	rendergraph.KindUpdateMipmaps:          func() nodeSpec { return &updateMipmapsSpec{} },
}

// resolver maps resource names to handles, keeping the first error.
type resolver struct {
	handles map[string]rendergraph.Handle
	err     error
}

// handle resolves name. The empty name yields the invalid handle, which
// the registry rejects where a resource is required.
func (r *resolver) handle(name string) rendergraph.Handle {
	if name == "" {
		return rendergraph.InvalidHandle
	}
	h, ok := r.handles[name]
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return h
}

func (r *resolver) list(names []string) []rendergraph.Handle {
	if len(names) == 0 {
		return nil
	}
	out := make([]rendergraph.Handle, len(names))
	for i, n := range names {
		out[i] = r.handle(n)
	}
	return out
}

// result returns info unless resolution failed.
func (r *resolver) result(info rendergraph.CreateInfo) (rendergraph.CreateInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	return info, nil
}

type bindingsBlock struct {
	Pipeline             uint64   `hcl:"pipeline,optional"`
	BindGroups           []uint64 `hcl:"bind_groups,optional"`
	Uniform              []string `hcl:"uniform,optional"`
	Storage              []string `hcl:"storage,optional"`
	ReadOnlyStorage      []string `hcl:"read_only_storage,optional"`
	Sampled              []string `hcl:"sampled,optional"`
	StorageImage         []string `hcl:"storage_image,optional"`
	ReadOnlyStorageImage []string `hcl:"read_only_storage_image,optional"`
}

func (b *bindingsBlock) bindings(r *resolver) rendergraph.Bindings {
	if b == nil {
		return rendergraph.Bindings{}
	}
	out := rendergraph.Bindings{Pipeline: rendergraph.PipelineID(b.Pipeline)}
	for _, id := range b.BindGroups {
		out.BindGroups = append(out.BindGroups, rendergraph.BindGroupID(id))
	}
	add := func(names []string, bt rendergraph.BindingType) {
		for _, n := range names {
			out.Resources = append(out.Resources, rendergraph.ShaderResource{Handle: r.handle(n), Binding: bt})
		}
	}
	add(b.Uniform, rendergraph.BindingUniformBuffer)
	add(b.Storage, rendergraph.BindingStorageBuffer)
	add(b.ReadOnlyStorage, rendergraph.BindingReadOnlyStorageBuffer)
	add(b.Sampled, rendergraph.BindingSampledImage)
	add(b.StorageImage, rendergraph.BindingStorageImage)
	add(b.ReadOnlyStorageImage, rendergraph.BindingReadOnlyStorageImage)
	return out
}

type colorAttachmentBlock struct {
	Image   string    `hcl:"image,label"`
	Resolve string    `hcl:"resolve,optional"`
	Load    string    `hcl:"load,optional"`
	Store   string    `hcl:"store,optional"`
	Clear   []float64 `hcl:"clear,optional"`
}

type depthStencilBlock struct {
	Image        string  `hcl:"image"`
	DepthLoad    string  `hcl:"depth_load,optional"`
	DepthStore   string  `hcl:"depth_store,optional"`
	DepthClear   float32 `hcl:"depth_clear,optional"`
	StencilLoad  string  `hcl:"stencil_load,optional"`
	StencilStore string  `hcl:"stencil_store,optional"`
	StencilClear uint32  `hcl:"stencil_clear,optional"`
	ReadOnly     bool    `hcl:"read_only,optional"`
}

type beginRenderingSpec struct {
	Label        string                  `hcl:"label,optional"`
	Width        uint32                  `hcl:"width"`
	Height       uint32                  `hcl:"height"`
	Colors       []*colorAttachmentBlock `hcl:"color,block"`
	DepthStencil *depthStencilBlock      `hcl:"depth_stencil,block"`
}

func (s *beginRenderingSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	info := rendergraph.BeginRenderingInfo{Label: s.Label, Width: s.Width, Height: s.Height}
	for _, c := range s.Colors {
		load, err := enum("load op", c.Load, loadOps)
		if err != nil {
			return nil, err
		}
		store, err := enum("store op", c.Store, storeOps)
		if err != nil {
			return nil, err
		}
		info.ColorAttachments = append(info.ColorAttachments, rendergraph.ColorAttachment{
			Image:      r.handle(c.Image),
			Resolve:    r.handle(c.Resolve),
			LoadOp:     load,
			StoreOp:    store,
			ClearValue: color(c.Clear),
		})
	}
	if ds := s.DepthStencil; ds != nil {
		att := rendergraph.DepthStencilAttachment{
			Image:             r.handle(ds.Image),
			DepthClearValue:   ds.DepthClear,
			StencilClearValue: ds.StencilClear,
			ReadOnly:          ds.ReadOnly,
		}
		var err error
		if att.DepthLoadOp, err = enum("load op", ds.DepthLoad, loadOps); err != nil {
			return nil, err
		}
		if att.DepthStoreOp, err = enum("store op", ds.DepthStore, storeOps); err != nil {
			return nil, err
		}
		if att.StencilLoadOp, err = enum("load op", ds.StencilLoad, loadOps); err != nil {
			return nil, err
		}
		if att.StencilStoreOp, err = enum("store op", ds.StencilStore, storeOps); err != nil {
			return nil, err
		}
		info.DepthStencil = &att
	}
	return r.result(info)
}

type endRenderingSpec struct{}

func (*endRenderingSpec) info(*resolver) (rendergraph.CreateInfo, error) {
	return rendergraph.EndRenderingInfo{}, nil
}

type clearAttachmentsSpec struct {
	Attachment uint32    `hcl:"attachment,optional"`
	Color      []float64 `hcl:"color,optional"`
	ClearDepth bool      `hcl:"clear_depth,optional"`
	Depth      float32   `hcl:"depth,optional"`
}

func (s *clearAttachmentsSpec) info(*resolver) (rendergraph.CreateInfo, error) {
	return rendergraph.ClearAttachmentsInfo{
		ColorAttachment: s.Attachment,
		Color:           color(s.Color),
		ClearDepth:      s.ClearDepth,
		Depth:           s.Depth,
	}, nil
}

type clearColorSpec struct {
	Image string    `hcl:"image"`
	Color []float64 `hcl:"color,optional"`
}

func (s *clearColorSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.ClearColorImageInfo{Image: r.handle(s.Image), Color: color(s.Color)})
}

type clearDepthStencilSpec struct {
	Image   string  `hcl:"image"`
	Depth   float32 `hcl:"depth,optional"`
	Stencil uint32  `hcl:"stencil,optional"`
}

func (s *clearDepthStencilSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.ClearDepthStencilImageInfo{Image: r.handle(s.Image), Depth: s.Depth, Stencil: s.Stencil})
}

type fillBufferSpec struct {
	Buffer string `hcl:"buffer"`
	Offset uint64 `hcl:"offset,optional"`
	Size   uint64 `hcl:"size"`
	Value  uint32 `hcl:"value,optional"`
}

func (s *fillBufferSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.FillBufferInfo{Buffer: r.handle(s.Buffer), Offset: s.Offset, Size: s.Size, Value: s.Value})
}

type updateBufferSpec struct {
	Buffer string  `hcl:"buffer"`
	Offset uint64  `hcl:"offset,optional"`
	Data   []uint8 `hcl:"data"`
}

func (s *updateBufferSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.UpdateBufferInfo{Buffer: r.handle(s.Buffer), Offset: s.Offset, Data: s.Data})
}

type copyBufferSpec struct {
	Src       string `hcl:"src"`
	Dst       string `hcl:"dst"`
	SrcOffset uint64 `hcl:"src_offset,optional"`
	DstOffset uint64 `hcl:"dst_offset,optional"`
	Size      uint64 `hcl:"size"`
}

func (s *copyBufferSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.CopyBufferInfo{
		Src:       r.handle(s.Src),
		Dst:       r.handle(s.Dst),
		SrcOffset: s.SrcOffset,
		DstOffset: s.DstOffset,
		Size:      s.Size,
	})
}

type copyImageSpec struct {
	Src    string   `hcl:"src"`
	Dst    string   `hcl:"dst"`
	SrcMip uint32   `hcl:"src_mip,optional"`
	DstMip uint32   `hcl:"dst_mip,optional"`
	Extent []uint32 `hcl:"extent"`
}

func (s *copyImageSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.CopyImageInfo{
		Src:    r.handle(s.Src),
		Dst:    r.handle(s.Dst),
		SrcMip: s.SrcMip,
		DstMip: s.DstMip,
		Extent: extent(s.Extent),
	})
}

// bufferImageCopySpec serves both directions of buffer/image copies.
type bufferImageCopySpec struct {
	toImage bool

	Src          string   `hcl:"src"`
	Dst          string   `hcl:"dst"`
	BufferOffset uint64   `hcl:"buffer_offset,optional"`
	BytesPerRow  uint32   `hcl:"bytes_per_row,optional"`
	RowsPerImage uint32   `hcl:"rows_per_image,optional"`
	MipLevel     uint32   `hcl:"mip_level,optional"`
	Extent       []uint32 `hcl:"extent"`
}

func (s *bufferImageCopySpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	if s.toImage {
		return r.result(rendergraph.CopyBufferToImageInfo{
			Src:          r.handle(s.Src),
			Dst:          r.handle(s.Dst),
			BufferOffset: s.BufferOffset,
			BytesPerRow:  s.BytesPerRow,
			RowsPerImage: s.RowsPerImage,
			MipLevel:     s.MipLevel,
			Extent:       extent(s.Extent),
		})
	}
	return r.result(rendergraph.CopyImageToBufferInfo{
		Src:          r.handle(s.Src),
		Dst:          r.handle(s.Dst),
		BufferOffset: s.BufferOffset,
		BytesPerRow:  s.BytesPerRow,
		RowsPerImage: s.RowsPerImage,
		MipLevel:     s.MipLevel,
		Extent:       extent(s.Extent),
	})
}

type blitImageSpec struct {
	Src       string   `hcl:"src"`
	Dst       string   `hcl:"dst"`
	SrcExtent []uint32 `hcl:"src_extent"`
	DstExtent []uint32 `hcl:"dst_extent"`
	Filter    string   `hcl:"filter,optional"`
}

func (s *blitImageSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	filter, err := enum("filter", s.Filter, filterModes)
	if err != nil {
		return nil, err
	}
	return r.result(rendergraph.BlitImageInfo{
		Src:       r.handle(s.Src),
		Dst:       r.handle(s.Dst),
		SrcExtent: extent(s.SrcExtent),
		DstExtent: extent(s.DstExtent),
		Filter:    filter,
	})
}

type dispatchSpec struct {
	Bindings *bindingsBlock `hcl:"bindings,block"`
	Groups   []uint32       `hcl:"groups"`
}

func (s *dispatchSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	e := extent(s.Groups)
	return r.result(rendergraph.DispatchInfo{
		Bindings: s.Bindings.bindings(r),
		GroupsX:  e.Width,
		GroupsY:  e.Height,
		GroupsZ:  e.DepthOrArrayLayers,
	})
}

type dispatchIndirectSpec struct {
	Bindings *bindingsBlock `hcl:"bindings,block"`
	Buffer   string         `hcl:"buffer"`
	Offset   uint64         `hcl:"offset,optional"`
}

func (s *dispatchIndirectSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.DispatchIndirectInfo{
		Bindings: s.Bindings.bindings(r),
		Buffer:   r.handle(s.Buffer),
		Offset:   s.Offset,
	})
}

type drawSpec struct {
	Bindings      *bindingsBlock `hcl:"bindings,block"`
	VertexBuffers []string       `hcl:"vertex_buffers,optional"`
	VertexCount   uint32         `hcl:"vertex_count"`
	InstanceCount *uint32        `hcl:"instance_count,optional"`
	FirstVertex   uint32         `hcl:"first_vertex,optional"`
	FirstInstance uint32         `hcl:"first_instance,optional"`
}

func (s *drawSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.DrawInfo{
		Bindings:      s.Bindings.bindings(r),
		VertexBuffers: r.list(s.VertexBuffers),
		VertexCount:   s.VertexCount,
		InstanceCount: instances(s.InstanceCount),
		FirstVertex:   s.FirstVertex,
		FirstInstance: s.FirstInstance,
	})
}

type drawIndexedSpec struct {
	Bindings      *bindingsBlock `hcl:"bindings,block"`
	VertexBuffers []string       `hcl:"vertex_buffers,optional"`
	IndexBuffer   string         `hcl:"index_buffer"`
	IndexFormat   string         `hcl:"index_format,optional"`
	IndexCount    uint32         `hcl:"index_count"`
	InstanceCount *uint32        `hcl:"instance_count,optional"`
	FirstIndex    uint32         `hcl:"first_index,optional"`
	BaseVertex    int32          `hcl:"base_vertex,optional"`
	FirstInstance uint32         `hcl:"first_instance,optional"`
}

func (s *drawIndexedSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	format, err := enum("index format", s.IndexFormat, indexFormats)
	if err != nil {
		return nil, err
	}
	return r.result(rendergraph.DrawIndexedInfo{
		Bindings:      s.Bindings.bindings(r),
		VertexBuffers: r.list(s.VertexBuffers),
		IndexBuffer:   r.handle(s.IndexBuffer),
		IndexFormat:   format,
		IndexCount:    s.IndexCount,
		InstanceCount: instances(s.InstanceCount),
		FirstIndex:    s.FirstIndex,
		BaseVertex:    s.BaseVertex,
		FirstInstance: s.FirstInstance,
	})
}

type drawIndirectSpec struct {
	Bindings      *bindingsBlock `hcl:"bindings,block"`
	VertexBuffers []string       `hcl:"vertex_buffers,optional"`
	Buffer        string         `hcl:"buffer"`
	Offset        uint64         `hcl:"offset,optional"`
	DrawCount     *uint32        `hcl:"draw_count,optional"`
	Stride        uint32         `hcl:"stride,optional"`
}

func (s *drawIndirectSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.DrawIndirectInfo{
		Bindings:      s.Bindings.bindings(r),
		VertexBuffers: r.list(s.VertexBuffers),
		Buffer:        r.handle(s.Buffer),
		Offset:        s.Offset,
		DrawCount:     instances(s.DrawCount),
		Stride:        s.Stride,
	})
}

type drawIndexedIndirectSpec struct {
	Bindings      *bindingsBlock `hcl:"bindings,block"`
	VertexBuffers []string       `hcl:"vertex_buffers,optional"`
	IndexBuffer   string         `hcl:"index_buffer"`
	IndexFormat   string         `hcl:"index_format,optional"`
	Buffer        string         `hcl:"buffer"`
	Offset        uint64         `hcl:"offset,optional"`
	DrawCount     *uint32        `hcl:"draw_count,optional"`
	Stride        uint32         `hcl:"stride,optional"`
}

func (s *drawIndexedIndirectSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	format, err := enum("index format", s.IndexFormat, indexFormats)
	if err != nil {
		return nil, err
	}
	return r.result(rendergraph.DrawIndexedIndirectInfo{
		Bindings:      s.Bindings.bindings(r),
		VertexBuffers: r.list(s.VertexBuffers),
		IndexBuffer:   r.handle(s.IndexBuffer),
		IndexFormat:   format,
		Buffer:        r.handle(s.Buffer),
		Offset:        s.Offset,
		DrawCount:     instances(s.DrawCount),
		Stride:        s.Stride,
	})
}

type synchronizationSpec struct {
	Resource string   `hcl:"resource"`
	Stages   []string `hcl:"stages"`
	Access   []string `hcl:"access,optional"`
	Layout   string   `hcl:"layout,optional"`
}

func (s *synchronizationSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	stages, ok := rendergraph.ParseStages(s.Stages...)
	if !ok {
		return nil, fmt.Errorf("%w: unknown stage in %q", ErrInvalidValue, s.Stages)
	}
	access, ok := rendergraph.ParseAccess(s.Access...)
	if !ok {
		return nil, fmt.Errorf("%w: unknown access in %q", ErrInvalidValue, s.Access)
	}
	l, err := layout(s.Layout)
	if err != nil {
		return nil, err
	}
	return r.result(rendergraph.SynchronizationInfo{
		Handle: r.handle(s.Resource),
		Stage:  stages,
		Access: access,
		Layout: l,
	})
}

// querySpec serves both ends of a query.
type querySpec struct {
	begin bool

	QuerySet uint64 `hcl:"query_set"`
	Query    uint32 `hcl:"query"`
	Precise  bool   `hcl:"precise,optional"`
}

func (s *querySpec) info(*resolver) (rendergraph.CreateInfo, error) {
	set := rendergraph.QuerySetID(s.QuerySet)
	if s.begin {
		return rendergraph.BeginQueryInfo{QuerySet: set, Query: s.Query, Precise: s.Precise}, nil
	}
	return rendergraph.EndQueryInfo{QuerySet: set, Query: s.Query}, nil
}

type resetQueryPoolSpec struct {
	QuerySet   uint64 `hcl:"query_set"`
	FirstQuery uint32 `hcl:"first_query,optional"`
	QueryCount uint32 `hcl:"query_count"`
}

func (s *resetQueryPoolSpec) info(*resolver) (rendergraph.CreateInfo, error) {
	return rendergraph.ResetQueryPoolInfo{
		QuerySet:   rendergraph.QuerySetID(s.QuerySet),
		FirstQuery: s.FirstQuery,
		QueryCount: s.QueryCount,
	}, nil
}

type resolveQuerySpec struct {
	QuerySet   uint64 `hcl:"query_set"`
	FirstQuery uint32 `hcl:"first_query,optional"`
	QueryCount uint32 `hcl:"query_count"`
	Dst        string `hcl:"dst"`
	DstOffset  uint64 `hcl:"dst_offset,optional"`
}

func (s *resolveQuerySpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	return r.result(rendergraph.ResolveQueryInfo{
		QuerySet:   rendergraph.QuerySetID(s.QuerySet),
		FirstQuery: s.FirstQuery,
		QueryCount: s.QueryCount,
		Dst:        r.handle(s.Dst),
		DstOffset:  s.DstOffset,
	})
}

type updateMipmapsSpec struct {
	Image     string   `hcl:"image"`
	Extent    []uint32 `hcl:"extent"`
	MipLevels uint32   `hcl:"mip_levels"`
	Filter    string   `hcl:"filter,optional"`
}

func (s *updateMipmapsSpec) info(r *resolver) (rendergraph.CreateInfo, error) {
	filter, err := enum("filter", s.Filter, filterModes)
	if err != nil {
		return nil, err
	}
	return r.result(rendergraph.UpdateMipmapsInfo{
		Image:     r.handle(s.Image),
		Extent:    extent(s.Extent),
		MipLevels: s.MipLevels,
		Filter:    filter,
	})
}

// instances defaults an omitted count to one.
func instances(n *uint32) uint32 {
	if n == nil {
		return 1
	}
	return *n
}
