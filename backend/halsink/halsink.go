// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halsink encodes a rendergraph command stream into a gogpu/wgpu
// HAL command encoder.
//
// Handles, pipelines and bind groups are opaque to the graph; bind the HAL
// objects they stand for before flushing:
//
//	enc, err := halsink.NewEncoder(provider, "frame")
//	sink, err := halsink.New(enc)
//	sink.BindBuffer(vertices, vbuf)
//	sink.BindTexture(target, tex, view)
//	sink.BindRenderPipeline(1, pipeline)
//	err = g.Flush(sink)
//	cmdBuf, err := sink.Finish()
package halsink

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph"
)

// Sink implements rendergraph.CommandSink on top of a hal.CommandEncoder.
//
// Barriers become buffer and texture transitions; HAL backends translate
// usage transitions into native barriers. Copies and fills map to encoder
// copy calls and rendering scopes to render passes. Every dispatch gets a
// compute pass of its own.
//
// Sink is not safe for concurrent use.
type Sink struct {
	encoder hal.CommandEncoder
	logger  *slog.Logger

	buffers  map[rendergraph.Handle]hal.Buffer
	textures map[rendergraph.Handle]hal.Texture
	views    map[rendergraph.Handle]hal.TextureView
	render   map[rendergraph.PipelineID]hal.RenderPipeline
	compute  map[rendergraph.PipelineID]hal.ComputePipeline
	groups   map[rendergraph.BindGroupID]hal.BindGroup
	queries  map[rendergraph.QuerySetID]hal.QuerySet

	// pass is the open render pass, nil outside rendering scopes.
	pass hal.RenderPassEncoder

	stats Stats
}

// Stats counts what the sink encoded.
type Stats struct {
	BufferBarriers  int
	TextureBarriers int
	Copies          int
	RenderPasses    int
	ComputePasses   int
	Draws           int
	Dispatches      int
	QueryResolves   int
}

// New creates a sink that records into encoder. The encoder must already
// be encoding (BeginEncoding was called).
func New(encoder hal.CommandEncoder) (*Sink, error) {
	if encoder == nil {
		return nil, ErrNilEncoder
	}
	return &Sink{
		encoder:  encoder,
		logger:   rendergraph.Logger(),
		buffers:  make(map[rendergraph.Handle]hal.Buffer),
		textures: make(map[rendergraph.Handle]hal.Texture),
		views:    make(map[rendergraph.Handle]hal.TextureView),
		render:   make(map[rendergraph.PipelineID]hal.RenderPipeline),
		compute:  make(map[rendergraph.PipelineID]hal.ComputePipeline),
		groups:   make(map[rendergraph.BindGroupID]hal.BindGroup),
		queries:  make(map[rendergraph.QuerySetID]hal.QuerySet),
	}, nil
}

// NewEncoder creates a command encoder on the HAL device of provider and
// begins encoding. The provider must implement HalDevice() any returning
// a hal.Device, as gogpu device providers do.
func NewEncoder(provider gpucontext.DeviceProvider, label string) (hal.CommandEncoder, error) {
	type halProvider interface {
		HalDevice() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	return EncoderFromDevice(device, label)
}

// EncoderFromDevice creates a command encoder on device and begins
// encoding.
func EncoderFromDevice(device hal.Device, label string) (hal.CommandEncoder, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("halsink: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("halsink: begin encoding: %w", err)
	}
	return encoder, nil
}

// SetLogger replaces the logger. Nil restores the rendergraph logger.
func (s *Sink) SetLogger(l *slog.Logger) {
	if l == nil {
		l = rendergraph.Logger()
	}
	s.logger = l
}

// BindBuffer associates h with a HAL buffer.
func (s *Sink) BindBuffer(h rendergraph.Handle, buf hal.Buffer) { s.buffers[h] = buf }

// BindTexture associates h with a HAL texture and the view used when the
// image is a render attachment. view may be nil for images that are never
// rendered to.
func (s *Sink) BindTexture(h rendergraph.Handle, tex hal.Texture, view hal.TextureView) {
	s.textures[h] = tex
	if view != nil {
		s.views[h] = view
	}
}

// BindRenderPipeline associates id with a render pipeline.
func (s *Sink) BindRenderPipeline(id rendergraph.PipelineID, p hal.RenderPipeline) { s.render[id] = p }

// BindComputePipeline associates id with a compute pipeline.
func (s *Sink) BindComputePipeline(id rendergraph.PipelineID, p hal.ComputePipeline) {
	s.compute[id] = p
}

// BindGroup associates id with a bind group.
func (s *Sink) BindGroup(id rendergraph.BindGroupID, bg hal.BindGroup) { s.groups[id] = bg }

// BindQuerySet associates id with a query set.
func (s *Sink) BindQuerySet(id rendergraph.QuerySetID, qs hal.QuerySet) { s.queries[id] = qs }

// Stats returns the counts of encoded commands.
func (s *Sink) Stats() Stats { return s.stats }

// Finish ends encoding and returns the command buffer. It fails when a
// render pass is still open.
func (s *Sink) Finish() (hal.CommandBuffer, error) {
	if s.pass != nil {
		return nil, ErrPassOpen
	}
	cmdBuf, err := s.encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("halsink: end encoding: %w", err)
	}
	s.logger.Debug("halsink: encoded",
		slog.Int("copies", s.stats.Copies),
		slog.Int("render_passes", s.stats.RenderPasses),
		slog.Int("compute_passes", s.stats.ComputePasses),
		slog.Int("draws", s.stats.Draws),
		slog.Int("dispatches", s.stats.Dispatches))
	return cmdBuf, nil
}

// Discard abandons the recorded commands.
func (s *Sink) Discard() {
	if s.pass != nil {
		s.pass.End()
		s.pass = nil
	}
	s.encoder.DiscardEncoding()
}

// Emit encodes one command.
func (s *Sink) Emit(cmd rendergraph.Command) error {
	switch cmd.Type {
	case rendergraph.CommandBarrier:
		return s.barriers(cmd.Barriers)
	case rendergraph.CommandNode:
		return s.node(cmd)
	default:
		return fmt.Errorf("halsink: unknown command type %d", cmd.Type)
	}
}

func (s *Sink) barriers(batch rendergraph.BarrierBatch) error {
	if s.pass != nil {
		return ErrPassOpen
	}
	var (
		bufs []hal.BufferBarrier
		texs []hal.TextureBarrier
	)
	for _, b := range batch {
		for _, h := range b.Handles {
			if buf, ok := s.buffers[h]; ok {
				bufs = append(bufs, hal.BufferBarrier{
					Buffer: buf,
					Usage: hal.BufferUsageTransition{
						OldUsage: bufferUsage(b.SrcAccess),
						NewUsage: bufferUsage(b.DstAccess),
					},
				})
				continue
			}
			tex, ok := s.textures[h]
			if !ok {
				return fmt.Errorf("%w: handle %d", ErrUnboundResource, h)
			}
			texs = append(texs, hal.TextureBarrier{
				Texture: tex,
				Usage: hal.TextureUsageTransition{
					OldUsage: textureUsage(b.OldLayout),
					NewUsage: textureUsage(b.NewLayout),
				},
			})
		}
	}
	if len(bufs) > 0 {
		s.encoder.TransitionBuffers(bufs)
		s.stats.BufferBarriers += len(bufs)
	}
	if len(texs) > 0 {
		s.encoder.TransitionTextures(texs)
		s.stats.TextureBarriers += len(texs)
	}
	return nil
}

func (s *Sink) buffer(h rendergraph.Handle) (hal.Buffer, error) {
	buf, ok := s.buffers[h]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnboundResource, h)
	}
	return buf, nil
}

func (s *Sink) texture(h rendergraph.Handle) (hal.Texture, error) {
	tex, ok := s.textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnboundResource, h)
	}
	return tex, nil
}

func (s *Sink) view(h rendergraph.Handle) (hal.TextureView, error) {
	v, ok := s.views[h]
	if !ok {
		return nil, fmt.Errorf("%w: texture view %d", ErrUnboundResource, h)
	}
	return v, nil
}
