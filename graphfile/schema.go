// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphfile

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// variablesSchema is the first decoding pass: variables only, so their
// values can be put in the evaluation context of everything else.
type variablesSchema struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type variableBlock struct {
	Name        string    `hcl:"name,label"`
	Default     cty.Value `hcl:"default,optional"`
	Description string    `hcl:"description,optional"`
}

// graphSchema is the second decoding pass.
type graphSchema struct {
	Buffers []*bufferBlock `hcl:"buffer,block"`
	Images  []*imageBlock  `hcl:"image,block"`
	Nodes   []*nodeBlock   `hcl:"node,block"`
}

type bufferBlock struct {
	Name  string   `hcl:"name,label"`
	Usage []string `hcl:"usage"`
}

type imageBlock struct {
	Name        string   `hcl:"name,label"`
	Usage       []string `hcl:"usage"`
	Format      string   `hcl:"format,optional"`
	Layout      string   `hcl:"layout,optional"`
	FinalLayout string   `hcl:"final_layout,optional"`
}

// nodeBlock is decoded per kind once the kind label is known.
type nodeBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}
