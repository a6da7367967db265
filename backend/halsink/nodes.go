// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halsink

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph"
)

func (s *Sink) node(cmd rendergraph.Command) error {
	switch ci := cmd.Info.(type) {
	case rendergraph.BeginRenderingInfo:
		return s.beginRendering(ci)
	case rendergraph.EndRenderingInfo:
		if s.pass == nil {
			return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "no open render pass"}
		}
		s.pass.End()
		s.pass = nil
		return nil
	case rendergraph.ClearColorImageInfo:
		return s.clearColor(ci)
	case rendergraph.ClearDepthStencilImageInfo:
		return s.clearDepthStencil(ci)
	case rendergraph.FillBufferInfo:
		return s.fillBuffer(ci)
	case rendergraph.CopyBufferInfo:
		return s.copyBuffer(ci)
	case rendergraph.CopyImageInfo:
		return s.copyImage(ci)
	case rendergraph.CopyBufferToImageInfo:
		return s.copyBufferToImage(ci)
	case rendergraph.CopyImageToBufferInfo:
		return s.copyImageToBuffer(ci)
	case rendergraph.DispatchInfo:
		return s.dispatch(ci)
	case rendergraph.DispatchIndirectInfo:
		return s.dispatchIndirect(ci)
	case rendergraph.DrawInfo:
		return s.draw(ci)
	case rendergraph.DrawIndexedInfo:
		return s.drawIndexed(ci)
	case rendergraph.DrawIndirectInfo:
		return s.drawIndirect(ci)
	case rendergraph.DrawIndexedIndirectInfo:
		return s.drawIndexedIndirect(ci)
	case rendergraph.ResolveQueryInfo:
		return s.resolveQuery(ci)
	case rendergraph.ResetQueryPoolInfo:
		// HAL query sets need no reset before reuse.
		_, err := s.querySet(ci.QuerySet)
		return err
	case rendergraph.SynchronizationInfo:
		// The state change was encoded by the preceding barrier.
		return nil
	case rendergraph.ClearAttachmentsInfo:
		return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "use attachment load operations"}
	case rendergraph.UpdateBufferInfo:
		return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "inline data requires a queue write"}
	case rendergraph.BlitImageInfo:
		return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "scaled blits have no HAL equivalent"}
	case rendergraph.BeginQueryInfo, rendergraph.EndQueryInfo:
		return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "HAL only writes queries at pass boundaries"}
	case rendergraph.UpdateMipmapsInfo:
		return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "mipmap generation needs a downscale pipeline"}
	default:
		return &UnsupportedCommandError{Kind: cmd.Kind, Reason: "unknown create info"}
	}
}

func (s *Sink) beginRendering(ci rendergraph.BeginRenderingInfo) error {
	if s.pass != nil {
		return ErrPassOpen
	}
	desc := &hal.RenderPassDescriptor{
		Label:            ci.Label,
		ColorAttachments: make([]hal.RenderPassColorAttachment, 0, len(ci.ColorAttachments)),
	}
	for _, att := range ci.ColorAttachments {
		v, err := s.view(att.Image)
		if err != nil {
			return err
		}
		ca := hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     att.LoadOp,
			StoreOp:    att.StoreOp,
			ClearValue: att.ClearValue,
		}
		if att.Resolve.IsValid() {
			if ca.ResolveTarget, err = s.view(att.Resolve); err != nil {
				return err
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, ca)
	}
	if ds := ci.DepthStencil; ds != nil {
		v, err := s.view(ds.Image)
		if err != nil {
			return err
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              v,
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			StencilLoadOp:     ds.StencilLoadOp,
			StencilStoreOp:    ds.StencilStoreOp,
			StencilClearValue: ds.StencilClearValue,
		}
	}
	s.pass = s.encoder.BeginRenderPass(desc)
	s.stats.RenderPasses++
	return nil
}

// clearColor clears an image with an otherwise empty render pass.
func (s *Sink) clearColor(ci rendergraph.ClearColorImageInfo) error {
	if s.pass != nil {
		return ErrPassOpen
	}
	v, err := s.view(ci.Image)
	if err != nil {
		return err
	}
	rp := s.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "clear_color",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       v,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: ci.Color,
		}},
	})
	rp.End()
	s.stats.RenderPasses++
	return nil
}

func (s *Sink) clearDepthStencil(ci rendergraph.ClearDepthStencilImageInfo) error {
	if s.pass != nil {
		return ErrPassOpen
	}
	v, err := s.view(ci.Image)
	if err != nil {
		return err
	}
	rp := s.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "clear_depth_stencil",
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              v,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   ci.Depth,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: ci.Stencil,
		},
	})
	rp.End()
	s.stats.RenderPasses++
	return nil
}

func (s *Sink) fillBuffer(ci rendergraph.FillBufferInfo) error {
	if ci.Value != 0 {
		return &UnsupportedCommandError{Kind: rendergraph.KindFillBuffer, Reason: "only zero fills are supported"}
	}
	buf, err := s.buffer(ci.Buffer)
	if err != nil {
		return err
	}
	s.encoder.ClearBuffer(buf, ci.Offset, ci.Size)
	s.stats.Copies++
	return nil
}

func (s *Sink) copyBuffer(ci rendergraph.CopyBufferInfo) error {
	src, err := s.buffer(ci.Src)
	if err != nil {
		return err
	}
	dst, err := s.buffer(ci.Dst)
	if err != nil {
		return err
	}
	s.encoder.CopyBufferToBuffer(src, dst, []hal.BufferCopy{{
		SrcOffset: ci.SrcOffset,
		DstOffset: ci.DstOffset,
		Size:      ci.Size,
	}})
	s.stats.Copies++
	return nil
}

func (s *Sink) copyImage(ci rendergraph.CopyImageInfo) error {
	src, err := s.texture(ci.Src)
	if err != nil {
		return err
	}
	dst, err := s.texture(ci.Dst)
	if err != nil {
		return err
	}
	s.encoder.CopyTextureToTexture(src, dst, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: src, MipLevel: ci.SrcMip},
		DstBase: hal.ImageCopyTexture{Texture: dst, MipLevel: ci.DstMip},
		Size:    extent(ci.Extent),
	}})
	s.stats.Copies++
	return nil
}

func (s *Sink) copyBufferToImage(ci rendergraph.CopyBufferToImageInfo) error {
	src, err := s.buffer(ci.Src)
	if err != nil {
		return err
	}
	dst, err := s.texture(ci.Dst)
	if err != nil {
		return err
	}
	s.encoder.CopyBufferToTexture(src, dst, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: ci.BufferOffset, BytesPerRow: ci.BytesPerRow, RowsPerImage: ci.RowsPerImage},
		TextureBase:  hal.ImageCopyTexture{Texture: dst, MipLevel: ci.MipLevel},
		Size:         extent(ci.Extent),
	}})
	s.stats.Copies++
	return nil
}

func (s *Sink) copyImageToBuffer(ci rendergraph.CopyImageToBufferInfo) error {
	src, err := s.texture(ci.Src)
	if err != nil {
		return err
	}
	dst, err := s.buffer(ci.Dst)
	if err != nil {
		return err
	}
	s.encoder.CopyTextureToBuffer(src, dst, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: ci.BufferOffset, BytesPerRow: ci.BytesPerRow, RowsPerImage: ci.RowsPerImage},
		TextureBase:  hal.ImageCopyTexture{Texture: src, MipLevel: ci.MipLevel},
		Size:         extent(ci.Extent),
	}})
	s.stats.Copies++
	return nil
}

// computePass opens a compute pass with the pipeline and bind groups of b
// set. The caller records the dispatch and ends the pass.
func (s *Sink) computePass(label string, b rendergraph.Bindings) (hal.ComputePassEncoder, error) {
	if s.pass != nil {
		return nil, ErrPassOpen
	}
	pipeline, ok := s.compute[b.Pipeline]
	if !ok {
		return nil, fmt.Errorf("%w: compute pipeline %d", ErrUnboundPipeline, b.Pipeline)
	}
	groups, err := s.bindGroups(b.BindGroups)
	if err != nil {
		return nil, err
	}
	pass := s.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	pass.SetPipeline(pipeline)
	for i, bg := range groups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	s.stats.ComputePasses++
	return pass, nil
}

func (s *Sink) dispatch(ci rendergraph.DispatchInfo) error {
	pass, err := s.computePass("dispatch", ci.Bindings)
	if err != nil {
		return err
	}
	pass.Dispatch(ci.GroupsX, ci.GroupsY, ci.GroupsZ)
	pass.End()
	s.stats.Dispatches++
	return nil
}

func (s *Sink) dispatchIndirect(ci rendergraph.DispatchIndirectInfo) error {
	args, err := s.buffer(ci.Buffer)
	if err != nil {
		return err
	}
	pass, err := s.computePass("dispatch_indirect", ci.Bindings)
	if err != nil {
		return err
	}
	pass.DispatchIndirect(args, ci.Offset)
	pass.End()
	s.stats.Dispatches++
	return nil
}

// bindDraw sets pipeline, bind groups and vertex buffers on the open pass.
func (s *Sink) bindDraw(kind rendergraph.NodeKind, b rendergraph.Bindings, vertexBuffers []rendergraph.Handle) error {
	if s.pass == nil {
		return &UnsupportedCommandError{Kind: kind, Reason: "draw outside a render pass"}
	}
	pipeline, ok := s.render[b.Pipeline]
	if !ok {
		return fmt.Errorf("%w: render pipeline %d", ErrUnboundPipeline, b.Pipeline)
	}
	groups, err := s.bindGroups(b.BindGroups)
	if err != nil {
		return err
	}
	s.pass.SetPipeline(pipeline)
	for i, bg := range groups {
		s.pass.SetBindGroup(uint32(i), bg, nil)
	}
	for i, h := range vertexBuffers {
		buf, err := s.buffer(h)
		if err != nil {
			return err
		}
		s.pass.SetVertexBuffer(uint32(i), buf, 0)
	}
	return nil
}

func (s *Sink) draw(ci rendergraph.DrawInfo) error {
	if err := s.bindDraw(rendergraph.KindDraw, ci.Bindings, ci.VertexBuffers); err != nil {
		return err
	}
	s.pass.Draw(ci.VertexCount, ci.InstanceCount, ci.FirstVertex, ci.FirstInstance)
	s.stats.Draws++
	return nil
}

func (s *Sink) drawIndexed(ci rendergraph.DrawIndexedInfo) error {
	if err := s.bindDraw(rendergraph.KindDrawIndexed, ci.Bindings, ci.VertexBuffers); err != nil {
		return err
	}
	idx, err := s.buffer(ci.IndexBuffer)
	if err != nil {
		return err
	}
	s.pass.SetIndexBuffer(idx, ci.IndexFormat, 0)
	s.pass.DrawIndexed(ci.IndexCount, ci.InstanceCount, ci.FirstIndex, ci.BaseVertex, ci.FirstInstance)
	s.stats.Draws++
	return nil
}

// drawIndirect issues one indirect draw per argument record. HAL has no
// multi-draw call, so records are walked at Offset + i*Stride.
func (s *Sink) drawIndirect(ci rendergraph.DrawIndirectInfo) error {
	if err := s.bindDraw(rendergraph.KindDrawIndirect, ci.Bindings, ci.VertexBuffers); err != nil {
		return err
	}
	args, err := s.buffer(ci.Buffer)
	if err != nil {
		return err
	}
	for i := range ci.DrawCount {
		s.pass.DrawIndirect(args, ci.Offset+uint64(i)*uint64(ci.Stride))
	}
	s.stats.Draws += int(ci.DrawCount)
	return nil
}

func (s *Sink) drawIndexedIndirect(ci rendergraph.DrawIndexedIndirectInfo) error {
	if err := s.bindDraw(rendergraph.KindDrawIndexedIndirect, ci.Bindings, ci.VertexBuffers); err != nil {
		return err
	}
	idx, err := s.buffer(ci.IndexBuffer)
	if err != nil {
		return err
	}
	args, err := s.buffer(ci.Buffer)
	if err != nil {
		return err
	}
	s.pass.SetIndexBuffer(idx, ci.IndexFormat, 0)
	for i := range ci.DrawCount {
		s.pass.DrawIndexedIndirect(args, ci.Offset+uint64(i)*uint64(ci.Stride))
	}
	s.stats.Draws += int(ci.DrawCount)
	return nil
}

func (s *Sink) resolveQuery(ci rendergraph.ResolveQueryInfo) error {
	if s.pass != nil {
		return ErrPassOpen
	}
	qs, err := s.querySet(ci.QuerySet)
	if err != nil {
		return err
	}
	dst, err := s.buffer(ci.Dst)
	if err != nil {
		return err
	}
	s.encoder.ResolveQuerySet(qs, ci.FirstQuery, ci.QueryCount, dst, ci.DstOffset)
	s.stats.QueryResolves++
	return nil
}

func (s *Sink) querySet(id rendergraph.QuerySetID) (hal.QuerySet, error) {
	qs, ok := s.queries[id]
	if !ok {
		return nil, fmt.Errorf("%w: query set %d", ErrUnboundQuerySet, id)
	}
	return qs, nil
}

func (s *Sink) bindGroups(ids []rendergraph.BindGroupID) ([]hal.BindGroup, error) {
	out := make([]hal.BindGroup, 0, len(ids))
	for _, id := range ids {
		bg, ok := s.groups[id]
		if !ok {
			return nil, fmt.Errorf("%w: bind group %d", ErrUnboundBindGroup, id)
		}
		out = append(out, bg)
	}
	return out, nil
}

func extent(e gputypes.Extent3D) hal.Extent3D {
	return hal.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: e.DepthOrArrayLayers}
}
