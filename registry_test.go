// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestRegistryInfo(t *testing.T) {
	reg := DefaultRegistry()
	tests := []struct {
		kind     NodeKind
		within   bool
		category ResourceCategory
	}{
		{KindBeginRendering, false, CategoryImages},
		{KindCopyBuffer, false, CategoryBuffers},
		{KindCopyBufferToImage, false, CategoryMixed},
		{KindDraw, true, CategoryMixed},
		{KindDrawIndexedIndirect, true, CategoryMixed},
		{KindClearAttachments, true, CategoryNone},
		{KindDispatch, false, CategoryMixed},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			info := reg.Info(tt.kind)
			if info.Kind != tt.kind {
				t.Errorf("Info(%s).Kind = %s", tt.kind, info.Kind)
			}
			if info.WithinRendering != tt.within {
				t.Errorf("WithinRendering = %v, want %v", info.WithinRendering, tt.within)
			}
			if info.Category != tt.category {
				t.Errorf("Category = %s, want %s", info.Category, tt.category)
			}
		})
	}
	if got := reg.Info(kindCount + 3); got != (NodeInfo{}) {
		t.Errorf("Info(out of range) = %+v, want zero", got)
	}
}

func TestUsagesMalformed(t *testing.T) {
	extent := gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1}
	tests := []struct {
		name string
		info CreateInfo
	}{
		{"nil info", nil},
		{"zero fill", FillBufferInfo{Buffer: bufA}},
		{"unaligned fill", FillBufferInfo{Buffer: bufA, Offset: 2, Size: 4}},
		{"empty update", UpdateBufferInfo{Buffer: bufA}},
		{"zero copy", CopyBufferInfo{Src: bufA, Dst: bufB}},
		{"invalid copy source", CopyBufferInfo{Dst: bufB, Size: 4}},
		{"empty image copy", CopyImageInfo{Src: img, Dst: img + 1}},
		{"buffer and image on one handle", CopyBufferToImageInfo{Src: bufA, Dst: bufA, Extent: extent}},
		{"empty draw", DrawInfo{VertexCount: 3}},
		{"missing index buffer", DrawIndexedInfo{IndexCount: 3, InstanceCount: 1}},
		{"zero workgroups", DispatchInfo{GroupsX: 1}},
		{"indirect stride too small", DrawIndirectInfo{Buffer: bufA, DrawCount: 2, Stride: 8}},
		{"indexed indirect stride too small", DrawIndexedIndirectInfo{IndexBuffer: bufB, Buffer: bufA, DrawCount: 2, Stride: 16}},
		{"unaligned indirect offset", DispatchIndirectInfo{Buffer: bufA, Offset: 2}},
		{"empty query reset", ResetQueryPoolInfo{QuerySet: 1}},
		{"unaligned query resolve", ResolveQueryInfo{QuerySet: 1, QueryCount: 1, Dst: bufA, DstOffset: 8}},
		{"resolve without buffer", ResolveQueryInfo{QuerySet: 1, QueryCount: 1}},
		{"single mip level", UpdateMipmapsInfo{Image: img, Extent: extent, MipLevels: 1}},
		{"mip chain too long", UpdateMipmapsInfo{Image: img, Extent: extent, MipLevels: 4}},
		{"empty render area", BeginRenderingInfo{ColorAttachments: []ColorAttachment{{Image: img}}}},
		{"begin without attachments", BeginRenderingInfo{Width: 4, Height: 4}},
		{"indirect without buffer", DrawIndirectInfo{DrawCount: 1}},
		{"synchronize without stage", SynchronizationInfo{Handle: bufA}},
		{"synchronize invalid handle", SynchronizationInfo{Stage: StageHost}},
		{"unknown binding", DispatchInfo{
			Bindings: Bindings{Resources: []ShaderResource{{Handle: bufA, Binding: BindingType(99)}}},
			GroupsX:  1, GroupsY: 1, GroupsZ: 1,
		}},
	}
	reg := DefaultRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Usages(tt.info)
			if !errors.Is(err, ErrMalformedNode) {
				t.Errorf("Usages error = %v, want ErrMalformedNode", err)
			}
		})
	}
}

func TestUsagesOptionalResources(t *testing.T) {
	reg := DefaultRegistry()
	for _, info := range []CreateInfo{
		EndRenderingInfo{},
		ClearAttachmentsInfo{},
		DrawInfo{VertexCount: 3, InstanceCount: 1},
		DispatchInfo{GroupsX: 1, GroupsY: 1, GroupsZ: 1},
	} {
		us, err := reg.Usages(info)
		if err != nil {
			t.Errorf("Usages(%s): %v", info.Kind(), err)
		}
		if len(us) != 0 {
			t.Errorf("Usages(%s) = %v, want none", info.Kind(), us)
		}
	}
}

func TestUsagesConflictingLayoutsCollapse(t *testing.T) {
	reg := DefaultRegistry()
	us, err := reg.Usages(BlitImageInfo{
		Src:       img,
		Dst:       img,
		SrcExtent: gputypes.Extent3D{Width: 8, Height: 8, DepthOrArrayLayers: 1},
		DstExtent: gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(us) != 1 {
		t.Fatalf("got %d usages, want 1", len(us))
	}
	u := us[0]
	if u.Layout != LayoutGeneral {
		t.Errorf("Layout = %s, want GENERAL", u.Layout)
	}
	if u.Access != AccessTransferRead|AccessTransferWrite {
		t.Errorf("Access = %s, want TRANSFER_READ|TRANSFER_WRITE", u.Access)
	}
	if u.TextureUsage != gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst {
		t.Errorf("TextureUsage = %v, want CopySrc|CopyDst", u.TextureUsage)
	}
}

func TestUsagesDepthReadOnly(t *testing.T) {
	reg := DefaultRegistry()
	us, err := reg.Usages(BeginRenderingInfo{
		Width:        4,
		Height:       4,
		DepthStencil: &DepthStencilAttachment{Image: img, ReadOnly: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(us) != 1 || us[0].Layout != LayoutDepthStencilReadOnly || us[0].IsWrite() {
		t.Errorf("Usages = %v, want one read-only depth usage", us)
	}
}

func TestUsagesImageClearsAreAttachmentWrites(t *testing.T) {
	reg := DefaultRegistry()
	tests := []struct {
		info   CreateInfo
		stage  StageFlags
		access AccessFlags
		layout Layout
	}{
		{ClearColorImageInfo{Image: img}, StageColorAttachmentOutput, AccessColorAttachmentWrite, LayoutColorAttachment},
		{ClearDepthStencilImageInfo{Image: img, Depth: 1}, StageEarlyFragmentTests | StageLateFragmentTests, AccessDepthStencilWrite, LayoutDepthStencilAttachment},
	}
	for _, tt := range tests {
		t.Run(tt.info.Kind().String(), func(t *testing.T) {
			us, err := reg.Usages(tt.info)
			if err != nil {
				t.Fatal(err)
			}
			if len(us) != 1 {
				t.Fatalf("got %d usages, want 1", len(us))
			}
			u := us[0]
			if u.Stage != tt.stage || u.Access != tt.access || u.Layout != tt.layout {
				t.Errorf("usage = %s %s %s, want %s %s %s", u.Stage, u.Access, u.Layout, tt.stage, tt.access, tt.layout)
			}
			if u.TextureUsage != gputypes.TextureUsageRenderAttachment {
				t.Errorf("TextureUsage = %v, want RenderAttachment", u.TextureUsage)
			}
			if reg.Info(tt.info.Kind()).Stages != tt.stage {
				t.Errorf("registry stages = %s, want %s", reg.Info(tt.info.Kind()).Stages, tt.stage)
			}
		})
	}
}
