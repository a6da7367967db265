// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// Handle is an opaque identifier of a GPU-visible buffer or image.
//
// Handles are borrowed: the graph never owns the resource behind a handle.
// The zero value is not a valid handle.
type Handle uint64

// InvalidHandle is the zero handle. It never names a resource.
const InvalidHandle Handle = 0

// IsValid reports whether h may name a resource.
func (h Handle) IsValid() bool { return h != InvalidHandle }

// ResourceType distinguishes buffers from images.
type ResourceType uint8

// Resource types.
const (
	ResourceBuffer ResourceType = iota + 1
	ResourceImage
)

// String returns the resource type name.
func (t ResourceType) String() string {
	switch t {
	case ResourceBuffer:
		return "buffer"
	case ResourceImage:
		return "image"
	default:
		return "unknown"
	}
}

// StageFlags is a bitmask of GPU pipeline stages.
type StageFlags uint32

// Pipeline stages, in pipeline order.
const (
	StageDrawIndirect StageFlags = 1 << iota
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageHost
	StageBottomOfPipe

	StageNone StageFlags = 0
)

// StageAllGraphics covers every stage a draw can execute in.
const StageAllGraphics = StageDrawIndirect | StageVertexInput | StageVertexShader |
	StageFragmentShader | StageEarlyFragmentTests | StageLateFragmentTests |
	StageColorAttachmentOutput

var stageNames = [...]string{
	"DRAW_INDIRECT",
	"VERTEX_INPUT",
	"VERTEX_SHADER",
	"FRAGMENT_SHADER",
	"EARLY_FRAGMENT_TESTS",
	"LATE_FRAGMENT_TESTS",
	"COLOR_ATTACHMENT_OUTPUT",
	"COMPUTE_SHADER",
	"TRANSFER",
	"HOST",
	"BOTTOM_OF_PIPE",
}

// String returns the stage names joined by '|', or "NONE".
func (s StageFlags) String() string {
	return flagString(uint32(s), stageNames[:])
}

// AccessFlags is a bitmask of memory access kinds.
type AccessFlags uint32

// Memory access kinds.
const (
	AccessIndirectCommandRead AccessFlags = 1 << iota
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite

	AccessNone AccessFlags = 0
)

// accessWriteMask holds every access bit that modifies memory.
const accessWriteMask = AccessShaderWrite | AccessColorAttachmentWrite |
	AccessDepthStencilWrite | AccessTransferWrite | AccessHostWrite

var accessNames = [...]string{
	"INDIRECT_COMMAND_READ",
	"INDEX_READ",
	"VERTEX_ATTRIBUTE_READ",
	"UNIFORM_READ",
	"SHADER_READ",
	"SHADER_WRITE",
	"COLOR_ATTACHMENT_READ",
	"COLOR_ATTACHMENT_WRITE",
	"DEPTH_STENCIL_READ",
	"DEPTH_STENCIL_WRITE",
	"TRANSFER_READ",
	"TRANSFER_WRITE",
	"HOST_READ",
	"HOST_WRITE",
}

// String returns the access names joined by '|', or "NONE".
func (a AccessFlags) String() string {
	return flagString(uint32(a), accessNames[:])
}

// IsWrite reports whether any bit of a modifies memory.
func (a AccessFlags) IsWrite() bool { return a&accessWriteMask != 0 }

// IsRead reports whether any bit of a only reads memory.
func (a AccessFlags) IsRead() bool { return a&^accessWriteMask != 0 }

// Layout describes how an image's memory is organized for its current use.
// Buffers always use LayoutUndefined.
type Layout uint8

// Image layouts.
const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:              "UNDEFINED",
	LayoutGeneral:                "GENERAL",
	LayoutColorAttachment:        "COLOR_ATTACHMENT",
	LayoutDepthStencilAttachment: "DEPTH_STENCIL_ATTACHMENT",
	LayoutDepthStencilReadOnly:   "DEPTH_STENCIL_READ_ONLY",
	LayoutShaderReadOnly:         "SHADER_READ_ONLY",
	LayoutTransferSrc:            "TRANSFER_SRC",
	LayoutTransferDst:            "TRANSFER_DST",
	LayoutPresent:                "PRESENT",
}

// String returns the layout name.
func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Layout(" + strconv.Itoa(int(l)) + ")"
}

// ParseLayout returns the layout with the given name. Names are matched
// case-insensitively and may use '-' or '_' as separators.
func ParseLayout(name string) (Layout, bool) {
	n := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	for i, s := range layoutNames {
		if s == n {
			return Layout(i), true
		}
	}
	return LayoutUndefined, false
}

// AccessState is the most recent access recorded for a resource.
type AccessState struct {
	Stage  StageFlags
	Access AccessFlags
	// Layout is meaningful for images only.
	Layout Layout
}

// IsUndefined reports whether no access has been recorded.
// The layout of an untouched image is still carried in the state.
func (s AccessState) IsUndefined() bool {
	return s.Stage == StageNone && s.Access == AccessNone
}

// String formats the state for logs and test failures.
func (s AccessState) String() string {
	return s.Stage.String() + "/" + s.Access.String() + "/" + s.Layout.String()
}

// ResourceUsage declares one resource touched by a node.
type ResourceUsage struct {
	Handle Handle
	Type   ResourceType
	Stage  StageFlags
	Access AccessFlags
	// Layout is the layout the image must be in; LayoutUndefined for
	// buffers.
	Layout Layout

	// BufferUsage is the capability a buffer must have been imported with.
	BufferUsage gputypes.BufferUsage
	// TextureUsage is the capability an image must have been imported with.
	TextureUsage gputypes.TextureUsage
}

// IsWrite reports whether the usage modifies the resource.
func (u ResourceUsage) IsWrite() bool { return u.Access.IsWrite() }

func flagString(v uint32, names []string) string {
	if v == 0 {
		return "NONE"
	}
	var b strings.Builder
	for i, name := range names {
		if v&(1<<uint(i)) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
		v &^= 1 << uint(i)
	}
	if v != 0 {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString("0x" + strconv.FormatUint(uint64(v), 16))
	}
	return b.String()
}

// ParseStages returns the union of the named stages. Names follow the
// rules of ParseLayout.
func ParseStages(names ...string) (StageFlags, bool) {
	v, ok := parseFlags(names, stageNames[:])
	return StageFlags(v), ok
}

// ParseAccess returns the union of the named access kinds. Names follow
// the rules of ParseLayout.
func ParseAccess(names ...string) (AccessFlags, bool) {
	v, ok := parseFlags(names, accessNames[:])
	return AccessFlags(v), ok
}

func parseFlags(names, table []string) (uint32, bool) {
	var v uint32
outer:
	for _, name := range names {
		n := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		for i, s := range table {
			if s == n {
				v |= 1 << uint(i)
				continue outer
			}
		}
		return 0, false
	}
	return v, true
}
