// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halsink

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rendergraph"
)

// textureUsage maps an image layout to the HAL texture usage that puts the
// texture into it. HAL backends derive the native layout from the usage.
func textureUsage(l rendergraph.Layout) gputypes.TextureUsage {
	switch l {
	case rendergraph.LayoutColorAttachment,
		rendergraph.LayoutDepthStencilAttachment,
		rendergraph.LayoutDepthStencilReadOnly,
		rendergraph.LayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	case rendergraph.LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case rendergraph.LayoutGeneral:
		return gputypes.TextureUsageStorageBinding
	case rendergraph.LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case rendergraph.LayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	default:
		return 0
	}
}

// bufferUsage maps access flags to the HAL buffer usages they exercise.
func bufferUsage(a rendergraph.AccessFlags) gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if a&rendergraph.AccessIndirectCommandRead != 0 {
		u |= gputypes.BufferUsageIndirect
	}
	if a&rendergraph.AccessIndexRead != 0 {
		u |= gputypes.BufferUsageIndex
	}
	if a&rendergraph.AccessVertexAttributeRead != 0 {
		u |= gputypes.BufferUsageVertex
	}
	if a&rendergraph.AccessUniformRead != 0 {
		u |= gputypes.BufferUsageUniform
	}
	if a&(rendergraph.AccessShaderRead|rendergraph.AccessShaderWrite) != 0 {
		u |= gputypes.BufferUsageStorage
	}
	if a&rendergraph.AccessTransferRead != 0 {
		u |= gputypes.BufferUsageCopySrc
	}
	if a&rendergraph.AccessTransferWrite != 0 {
		u |= gputypes.BufferUsageCopyDst
	}
	if a&rendergraph.AccessHostRead != 0 {
		u |= gputypes.BufferUsageMapRead
	}
	if a&rendergraph.AccessHostWrite != 0 {
		u |= gputypes.BufferUsageMapWrite
	}
	return u
}
