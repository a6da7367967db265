// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halsink

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendergraph"
)

var (
	// ErrUnboundResource is returned when a command references a handle
	// that was not bound to a HAL buffer or texture.
	ErrUnboundResource = errors.New("halsink: resource not bound")

	// ErrUnboundPipeline is returned when a draw or dispatch references an
	// unknown pipeline.
	ErrUnboundPipeline = errors.New("halsink: pipeline not bound")

	// ErrUnboundBindGroup is returned when a draw or dispatch references an
	// unknown bind group.
	ErrUnboundBindGroup = errors.New("halsink: bind group not bound")

	// ErrUnboundQuerySet is returned when a query command references an
	// unknown query set.
	ErrUnboundQuerySet = errors.New("halsink: query set not bound")

	// ErrPassOpen is returned when a command that must be recorded outside
	// a render pass arrives while one is open.
	ErrPassOpen = errors.New("halsink: render pass in progress")

	// ErrNilEncoder is returned by New when no encoder is given.
	ErrNilEncoder = errors.New("halsink: command encoder is nil")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNoHALProvider = errors.New("halsink: provider does not expose HAL types")
)

// UnsupportedCommandError is returned for node kinds the HAL encoder cannot
// express.
type UnsupportedCommandError struct {
	Kind   rendergraph.NodeKind
	Reason string
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("halsink: unsupported %s command: %s", e.Kind, e.Reason)
}
