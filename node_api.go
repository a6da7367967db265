// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

// Typed node creation. Each method is Add with a concrete create info.

// BeginRendering opens a rendering scope over the given attachments.
func (g *Graph) BeginRendering(info BeginRenderingInfo) (NodeIndex, error) { return g.Add(info) }

// EndRendering closes the open rendering scope.
func (g *Graph) EndRendering() (NodeIndex, error) { return g.Add(EndRenderingInfo{}) }

// ClearAttachments clears attachments of the open rendering scope.
func (g *Graph) ClearAttachments(info ClearAttachmentsInfo) (NodeIndex, error) { return g.Add(info) }

// ClearColorImage clears a color image outside of rendering.
func (g *Graph) ClearColorImage(info ClearColorImageInfo) (NodeIndex, error) { return g.Add(info) }

// ClearDepthStencilImage clears a depth/stencil image outside of rendering.
func (g *Graph) ClearDepthStencilImage(info ClearDepthStencilImageInfo) (NodeIndex, error) {
	return g.Add(info)
}

// FillBuffer fills a buffer range with a 32-bit value.
func (g *Graph) FillBuffer(info FillBufferInfo) (NodeIndex, error) { return g.Add(info) }

// UpdateBuffer writes inline data into a buffer.
func (g *Graph) UpdateBuffer(info UpdateBufferInfo) (NodeIndex, error) { return g.Add(info) }

// CopyBuffer copies between buffers.
func (g *Graph) CopyBuffer(info CopyBufferInfo) (NodeIndex, error) { return g.Add(info) }

// CopyImage copies between images.
func (g *Graph) CopyImage(info CopyImageInfo) (NodeIndex, error) { return g.Add(info) }

// CopyBufferToImage uploads buffer contents into an image.
func (g *Graph) CopyBufferToImage(info CopyBufferToImageInfo) (NodeIndex, error) { return g.Add(info) }

// CopyImageToBuffer reads an image back into a buffer.
func (g *Graph) CopyImageToBuffer(info CopyImageToBufferInfo) (NodeIndex, error) { return g.Add(info) }

// BlitImage copies between images with scaling.
func (g *Graph) BlitImage(info BlitImageInfo) (NodeIndex, error) { return g.Add(info) }

// Dispatch records a compute dispatch.
func (g *Graph) Dispatch(info DispatchInfo) (NodeIndex, error) { return g.Add(info) }

// DispatchIndirect records a compute dispatch with GPU-sourced counts.
func (g *Graph) DispatchIndirect(info DispatchIndirectInfo) (NodeIndex, error) { return g.Add(info) }

// Draw records a non-indexed draw.
func (g *Graph) Draw(info DrawInfo) (NodeIndex, error) { return g.Add(info) }

// DrawIndexed records an indexed draw.
func (g *Graph) DrawIndexed(info DrawIndexedInfo) (NodeIndex, error) { return g.Add(info) }

// DrawIndirect records non-indexed draws with GPU-sourced parameters.
func (g *Graph) DrawIndirect(info DrawIndirectInfo) (NodeIndex, error) { return g.Add(info) }

// DrawIndexedIndirect records indexed draws with GPU-sourced parameters.
func (g *Graph) DrawIndexedIndirect(info DrawIndexedIndirectInfo) (NodeIndex, error) {
	return g.Add(info)
}

// Synchronize records an explicit state change of one resource.
func (g *Graph) Synchronize(info SynchronizationInfo) (NodeIndex, error) { return g.Add(info) }

// BeginQuery starts an occlusion query.
func (g *Graph) BeginQuery(info BeginQueryInfo) (NodeIndex, error) { return g.Add(info) }

// EndQuery ends an active query.
func (g *Graph) EndQuery(info EndQueryInfo) (NodeIndex, error) { return g.Add(info) }

// ResetQueryPool makes a range of queries reusable.
func (g *Graph) ResetQueryPool(info ResetQueryPoolInfo) (NodeIndex, error) { return g.Add(info) }

// ResolveQuery copies query results into a buffer.
func (g *Graph) ResolveQuery(info ResolveQueryInfo) (NodeIndex, error) { return g.Add(info) }

// UpdateMipmaps regenerates the mip chain of an image from level 0.
func (g *Graph) UpdateMipmaps(info UpdateMipmapsInfo) (NodeIndex, error) { return g.Add(info) }
