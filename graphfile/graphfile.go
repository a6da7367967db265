// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graphfile declares render graphs in HCL.
//
// A document lists the resources a frame uses and the nodes that touch
// them, in recording order:
//
//	variable "size" {
//	  default = 4096
//	}
//
//	buffer "staging" {
//	  usage = ["copy_src", "map_write"]
//	}
//
//	buffer "vertices" {
//	  usage = ["copy_dst", "vertex"]
//	}
//
//	image "target" {
//	  usage        = ["render_attachment"]
//	  format       = "bgra8unorm"
//	  final_layout = "present"
//	}
//
//	node "copy_buffer" "upload" {
//	  src  = "staging"
//	  dst  = "vertices"
//	  size = var.size
//	}
//
//	node "begin_rendering" "main" {
//	  width  = 800
//	  height = 600
//	  color "target" {
//	    clear = [0, 0, 0, 1]
//	  }
//	}
//
//	node "draw" "triangle" {
//	  vertex_buffers = ["vertices"]
//	  vertex_count   = 3
//	}
//
//	node "end_rendering" "main" {}
//
// Node kinds are the lower-case names of rendergraph.NodeKind. Resources
// are referenced by name; handles are assigned in declaration order,
// buffers first.
package graphfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/gogpu/rendergraph"
)

var (
	// ErrUnknownResource is returned when a node references an undeclared
	// resource name.
	ErrUnknownResource = errors.New("graphfile: unknown resource")

	// ErrUnknownKind is returned for a node block with an unknown kind
	// label.
	ErrUnknownKind = errors.New("graphfile: unknown node kind")

	// ErrInvalidValue is returned for an unknown enumeration name.
	ErrInvalidValue = errors.New("graphfile: invalid value")

	// ErrDuplicateName is returned when two resources share a name.
	ErrDuplicateName = errors.New("graphfile: duplicate resource name")
)

// Resource is a declared buffer or image.
type Resource struct {
	Name   string
	Handle rendergraph.Handle
	Info   rendergraph.ResourceInfo
	// Layout is the initial layout of an image.
	Layout rendergraph.Layout
	// FinalLayout, when set, is required at the end of the cycle.
	FinalLayout rendergraph.Layout
}

// Node is a declared node.
type Node struct {
	Name string
	Info rendergraph.CreateInfo
}

// Document is a decoded graph description.
type Document struct {
	Resources []Resource
	Nodes     []Node

	handles map[string]rendergraph.Handle
}

// Handle returns the handle assigned to the resource name.
func (d *Document) Handle(name string) (rendergraph.Handle, bool) {
	h, ok := d.handles[name]
	return h, ok
}

// ParseOption configures decoding.
type ParseOption func(*parseOptions)

type parseOptions struct {
	vars   map[string]cty.Value
	logger *slog.Logger
}

// WithVariable overrides the default of variable name.
func WithVariable(name string, v cty.Value) ParseOption {
	return func(o *parseOptions) {
		if o.vars == nil {
			o.vars = make(map[string]cty.Value)
		}
		o.vars[name] = v
	}
}

// WithLogger sets the logger used while decoding.
func WithLogger(l *slog.Logger) ParseOption {
	return func(o *parseOptions) {
		o.logger = l
	}
}

// Load parses and decodes the HCL file at path.
func Load(ctx context.Context, path string, opts ...ParseOption) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("graphfile: parse %s: %s", path, diags.Error())
	}
	return decode(ctx, file.Body, path, opts)
}

// Parse decodes HCL source. name is used in diagnostics.
func Parse(src []byte, name string, opts ...ParseOption) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("graphfile: parse %s: %s", name, diags.Error())
	}
	return decode(context.Background(), file.Body, name, opts)
}

func decode(ctx context.Context, body hcl.Body, name string, opts []ParseOption) (*Document, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = rendergraph.Logger()
	}

	var vs variablesSchema
	if diags := gohcl.DecodeBody(body, nil, &vs); diags.HasErrors() {
		return nil, fmt.Errorf("graphfile: decode %s variables: %s", name, diags.Error())
	}
	evalCtx := evalContext(vs.Variables, o.vars)

	var gs graphSchema
	if diags := gohcl.DecodeBody(vs.Remain, evalCtx, &gs); diags.HasErrors() {
		return nil, fmt.Errorf("graphfile: decode %s: %s", name, diags.Error())
	}

	doc := &Document{handles: make(map[string]rendergraph.Handle)}
	if err := doc.declare(gs.Buffers, gs.Images); err != nil {
		return nil, fmt.Errorf("graphfile: %s: %w", name, err)
	}

	r := &resolver{handles: doc.handles}
	for _, nb := range gs.Nodes {
		info, err := decodeNode(nb, evalCtx, r)
		if err != nil {
			return nil, fmt.Errorf("graphfile: %s: node %q: %w", name, nb.Name, err)
		}
		doc.Nodes = append(doc.Nodes, Node{Name: nb.Name, Info: info})
	}

	o.logger.DebugContext(ctx, "graphfile: decoded",
		slog.String("name", name),
		slog.Int("resources", len(doc.Resources)),
		slog.Int("nodes", len(doc.Nodes)))
	return doc, nil
}

// evalContext exposes variables as var.<name>.
func evalContext(vars []*variableBlock, overrides map[string]cty.Value) *hcl.EvalContext {
	values := make(map[string]cty.Value, len(vars))
	for _, v := range vars {
		val := v.Default
		if o, ok := overrides[v.Name]; ok {
			val = o
		}
		if val == cty.NilVal {
			val = cty.NullVal(cty.DynamicPseudoType)
		}
		values[v.Name] = val
	}
	obj := cty.EmptyObjectVal
	if len(values) > 0 {
		obj = cty.ObjectVal(values)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"var": obj}}
}

func (d *Document) declare(buffers []*bufferBlock, images []*imageBlock) error {
	next := rendergraph.Handle(1)
	add := func(res Resource) error {
		if _, dup := d.handles[res.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, res.Name)
		}
		res.Handle = next
		next++
		d.handles[res.Name] = res.Handle
		d.Resources = append(d.Resources, res)
		return nil
	}

	for _, b := range buffers {
		usage, err := flags("buffer usage", b.Usage, bufferUsages)
		if err != nil {
			return err
		}
		if err := add(Resource{
			Name: b.Name,
			Info: rendergraph.ResourceInfo{Type: rendergraph.ResourceBuffer, BufferUsage: usage},
		}); err != nil {
			return err
		}
	}
	for _, img := range images {
		usage, err := flags("texture usage", img.Usage, textureUsages)
		if err != nil {
			return err
		}
		format, err := enum("texture format", img.Format, textureFormats)
		if err != nil {
			return err
		}
		initial, err := layout(img.Layout)
		if err != nil {
			return err
		}
		final, err := layout(img.FinalLayout)
		if err != nil {
			return err
		}
		if err := add(Resource{
			Name:        img.Name,
			Info:        rendergraph.ResourceInfo{Type: rendergraph.ResourceImage, TextureUsage: usage, Format: format},
			Layout:      initial,
			FinalLayout: final,
		}); err != nil {
			return err
		}
	}
	return nil
}

func decodeNode(nb *nodeBlock, evalCtx *hcl.EvalContext, r *resolver) (rendergraph.CreateInfo, error) {
	kind, ok := parseKind(nb.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, nb.Kind)
	}
	spec := nodeSpecs[kind]()
	if diags := gohcl.DecodeBody(nb.Body, evalCtx, spec); diags.HasErrors() {
		return nil, errors.New(diags.Error())
	}
	r.err = nil
	return spec.info(r)
}

func parseKind(label string) (rendergraph.NodeKind, bool) {
	label = strings.ReplaceAll(label, "-", "_")
	for k := rendergraph.KindBeginRendering; k <= rendergraph.LastKind; k++ {
		if strings.EqualFold(k.String(), label) {
			return k, true
		}
	}
	return rendergraph.KindUnused, false
}

// Build creates a graph, imports the declared resources and records the
// declared nodes. The returned graph is in the recording phase, ready to
// be flushed.
func (d *Document) Build(opts ...rendergraph.Option) (*rendergraph.Graph, error) {
	g := rendergraph.New(opts...)
	for _, res := range d.Resources {
		var err error
		switch res.Info.Type {
		case rendergraph.ResourceBuffer:
			err = g.ImportBuffer(res.Handle, res.Info.BufferUsage)
		default:
			err = g.ImportImage(res.Handle, res.Info.TextureUsage, res.Info.Format, res.Layout)
			if err == nil && res.FinalLayout != rendergraph.LayoutUndefined {
				err = g.RequireFinalState(res.Handle, rendergraph.AccessState{
					Stage:  rendergraph.StageBottomOfPipe,
					Layout: res.FinalLayout,
				})
			}
		}
		if err != nil {
			return nil, fmt.Errorf("graphfile: import %q: %w", res.Name, err)
		}
	}
	if err := g.Begin(); err != nil {
		return nil, err
	}
	for _, n := range d.Nodes {
		if _, err := g.Add(n.Info); err != nil {
			return nil, fmt.Errorf("graphfile: node %q: %w", n.Name, err)
		}
	}
	return g, nil
}
