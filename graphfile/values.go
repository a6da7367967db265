// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphfile

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph"
)

var bufferUsages = map[string]gputypes.BufferUsage{
	"copy_src":  gputypes.BufferUsageCopySrc,
	"copy_dst":  gputypes.BufferUsageCopyDst,
	"vertex":    gputypes.BufferUsageVertex,
	"index":     gputypes.BufferUsageIndex,
	"uniform":   gputypes.BufferUsageUniform,
	"storage":   gputypes.BufferUsageStorage,
	"indirect":  gputypes.BufferUsageIndirect,
	"map_read":  gputypes.BufferUsageMapRead,
	"map_write": gputypes.BufferUsageMapWrite,

	"query_resolve": gputypes.BufferUsageQueryResolve,
}

var textureUsages = map[string]gputypes.TextureUsage{
	"copy_src":          gputypes.TextureUsageCopySrc,
	"copy_dst":          gputypes.TextureUsageCopyDst,
	"texture_binding":   gputypes.TextureUsageTextureBinding,
	"storage_binding":   gputypes.TextureUsageStorageBinding,
	"render_attachment": gputypes.TextureUsageRenderAttachment,
}

var textureFormats = map[string]gputypes.TextureFormat{
	"":                     gputypes.TextureFormatUndefined,
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"depth24plus_stencil8": gputypes.TextureFormatDepth24PlusStencil8,
}

var loadOps = map[string]gputypes.LoadOp{
	"":      gputypes.LoadOpClear,
	"clear": gputypes.LoadOpClear,
	"load":  gputypes.LoadOpLoad,
}

var storeOps = map[string]gputypes.StoreOp{
	"":        gputypes.StoreOpStore,
	"store":   gputypes.StoreOpStore,
	"discard": gputypes.StoreOpDiscard,
}

var indexFormats = map[string]gputypes.IndexFormat{
	"":       gputypes.IndexFormatUint16,
	"uint16": gputypes.IndexFormatUint16,
	"uint32": gputypes.IndexFormatUint32,
}

var filterModes = map[string]gputypes.FilterMode{
	"":        gputypes.FilterModeLinear,
	"linear":  gputypes.FilterModeLinear,
	"nearest": gputypes.FilterModeNearest,
}

// enum looks name up in table, matching case-insensitively with '-' and
// '_' interchangeable.
func enum[T any](what, name string, table map[string]T) (T, error) {
	v, ok := table[strings.ToLower(strings.ReplaceAll(name, "-", "_"))]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidValue, what, name)
	}
	return v, nil
}

// flags ORs the table entries of names.
func flags[T ~uint32 | ~uint64](what string, names []string, table map[string]T) (T, error) {
	var v T
	for _, n := range names {
		f, err := enum(what, n, table)
		if err != nil {
			return 0, err
		}
		v |= f
	}
	return v, nil
}

func layout(name string) (rendergraph.Layout, error) {
	if name == "" {
		return rendergraph.LayoutUndefined, nil
	}
	l, ok := rendergraph.ParseLayout(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown layout %q", ErrInvalidValue, name)
	}
	return l, nil
}

func extent(v []uint32) gputypes.Extent3D {
	if len(v) == 0 {
		return gputypes.Extent3D{}
	}
	e := gputypes.Extent3D{Width: v[0], Height: 1, DepthOrArrayLayers: 1}
	if len(v) > 1 {
		e.Height = v[1]
	}
	if len(v) > 2 {
		e.DepthOrArrayLayers = v[2]
	}
	return e
}

func color(v []float64) gputypes.Color {
	var c [4]float64
	copy(c[:], v)
	return gputypes.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}
