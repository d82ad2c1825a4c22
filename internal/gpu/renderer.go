// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hdmiview"
)

// ErrNoFrame is returned by Snapshot before the first offscreen draw.
var ErrNoFrame = errors.New("gpu: no frame drawn")

// Renderer draws luma and chroma textures to a color target with a
// single render pass. It implements hdmiview.Renderer and
// hdmiview.DisplayResizer.
//
// All methods are safe for concurrent use.
type Renderer struct {
	mu sync.Mutex

	dev     *halDevice
	display hdmiview.Size
	maxSize int

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler
	uniformBuf hal.Buffer

	// Bind group for the current surface pair; rebuilt when either
	// surface changes.
	bindGroup   hal.BindGroup
	boundLuma   *Texture
	boundChroma *Texture

	toggles    hdmiview.Toggles
	uniformSet bool

	target      offscreenTarget
	surfaceView hal.TextureView
	drawn       bool

	surfaces map[*Texture]struct{}
	memory   *MemoryBudget
	frames   uint64
	closed   bool
}

// Open creates a renderer on a private Vulkan device. The display size is
// the size of the offscreen target.
func Open(display hdmiview.Size) (*Renderer, error) {
	dev, err := openVulkan()
	if err != nil {
		return nil, err
	}
	r, err := newRenderer(dev, display)
	if err != nil {
		dev.release()
		return nil, err
	}
	slogger().Info("gpu renderer ready", "adapter", dev.name, "display", display, "max_texture", r.maxSize)
	return r, nil
}

// NewFromProvider creates a renderer that shares the device of a
// gpucontext provider. The provider keeps ownership of the device.
func NewFromProvider(provider gpucontext.DeviceProvider, display hdmiview.Size) (*Renderer, error) {
	dev, err := fromProvider(provider)
	if err != nil {
		return nil, err
	}
	return newRenderer(dev, display)
}

// New creates a renderer on an existing device and queue. The caller keeps
// ownership of both.
func New(device hal.Device, queue hal.Queue, display hdmiview.Size) (*Renderer, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrNoGPU)
	}
	return newRenderer(&halDevice{
		device:   device,
		queue:    queue,
		name:     "external",
		format:   gputypes.TextureFormatBGRA8Unorm,
		limits:   gputypes.DefaultLimits(),
		external: true,
	}, display)
}

func newRenderer(dev *halDevice, display hdmiview.Size) (*Renderer, error) {
	if display.Empty() {
		return nil, fmt.Errorf("%w: display %s", hdmiview.ErrInvalidDimensions, display)
	}
	r := &Renderer{
		dev:      dev,
		display:  display,
		maxSize:  maxTextureEdge(dev.limits),
		surfaces: make(map[*Texture]struct{}),
		memory:   NewMemoryBudget(DefaultMaxMemoryMB),
	}
	if err := r.createPipeline(); err != nil {
		r.destroyPipeline()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return r, nil
}

// SetLogger implements the logger propagation hook of hdmiview.SetLogger.
func (r *Renderer) SetLogger(l *slog.Logger) { setLogger(l) }

// MaxSurfaceSize returns the largest texture edge the device accepts.
func (r *Renderer) MaxSurfaceSize() int { return r.maxSize }

// DisplaySize returns the current output size.
func (r *Renderer) DisplaySize() hdmiview.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.display
}

// Frames returns the number of frames drawn.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// CreateSurface allocates a plane texture. channels must be 1 or 2.
func (r *Renderer) CreateSurface(label string, size hdmiview.Size, channels int) (hdmiview.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if size.Width > r.maxSize || size.Height > r.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d", hdmiview.ErrInvalidDimensions, size, r.maxSize)
	}
	if err := r.memory.reserve(label, textureBytes(size.Width, size.Height, channels)); err != nil {
		return nil, err
	}
	t, err := newTexture(r.dev.device, r.dev.queue, label, size, channels)
	if err != nil {
		return nil, err
	}
	t.owner = r
	r.surfaces[t] = struct{}{}
	r.memory.track(t)
	return t, nil
}

// DestroySurface releases a texture created by CreateSurface. Surfaces
// from other allocators are ignored.
func (r *Renderer) DestroySurface(s hdmiview.Surface) {
	t, ok := s.(*Texture)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surfaces[t]; !ok {
		return
	}
	if t == r.boundLuma || t == r.boundChroma {
		r.dropBindGroup()
	}
	delete(r.surfaces, t)
	_ = r.memory.release(t)
	t.destroy(r.dev.device)
}

// MemoryStats returns plane texture memory usage.
func (r *Renderer) MemoryStats() MemoryStats { return r.memory.Stats() }

// SetMemoryBudget changes the plane texture budget in megabytes.
func (r *Renderer) SetMemoryBudget(megabytes int) { r.memory.SetBudget(megabytes) }

// Draw converts the two planes to RGB and writes the result to the
// current target.
func (r *Renderer) Draw(luma, chroma hdmiview.Surface, t hdmiview.Toggles) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	lt, err := r.owned(luma)
	if err != nil {
		return err
	}
	ct, err := r.owned(chroma)
	if err != nil {
		return err
	}

	if !r.uniformSet || t != r.toggles {
		r.dev.queue.WriteBuffer(r.uniformBuf, 0, makeYUVUniform(t))
		r.toggles = t
		r.uniformSet = true
	}
	if err := r.bind(lt, ct); err != nil {
		return err
	}

	view := r.surfaceView
	if view == nil {
		//nolint:gosec // display validated positive
		if err := r.target.ensure(r.dev.device, uint32(r.display.Width), uint32(r.display.Height), r.dev.format); err != nil {
			return err
		}
		view = r.target.view
	}
	if err := r.encodeDraw(view); err != nil {
		return err
	}
	if r.surfaceView == nil {
		r.drawn = true
	}
	r.frames++
	return nil
}

// ResizeDisplay changes the offscreen target size. The next Draw
// reallocates the target.
func (r *Renderer) ResizeDisplay(size hdmiview.Size) error {
	if size.Empty() {
		return fmt.Errorf("%w: display %s", hdmiview.ErrInvalidDimensions, size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if size == r.display {
		return nil
	}
	slogger().Debug("gpu display resized", "from", r.display, "to", size)
	r.display = size
	r.target.destroy(r.dev.device)
	r.drawn = false
	return nil
}

// SetSurfaceTarget draws subsequent frames into view instead of the
// offscreen target, resizing the display to width×height. A nil view
// returns to offscreen mode. The caller keeps ownership of view.
func (r *Renderer) SetSurfaceTarget(view hal.TextureView, width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surfaceView = view
	if view != nil && width > 0 && height > 0 {
		r.display = hdmiview.Size{Width: int(width), Height: int(height)}
		r.target.destroy(r.dev.device)
		r.drawn = false
	}
}

// Snapshot reads the last offscreen frame back to the CPU.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if !r.drawn || r.target.tex == nil {
		return nil, ErrNoFrame
	}
	return r.readback()
}

// Close destroys every surface and GPU object the renderer created. The
// device is released only when Open created it. Close is idempotent.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.dropBindGroup()
	for t := range r.surfaces {
		_ = r.memory.release(t)
		t.destroy(r.dev.device)
	}
	r.surfaces = nil
	r.target.destroy(r.dev.device)
	r.surfaceView = nil
	r.destroyPipeline()
	r.dev.release()
	return nil
}

// owned checks that s is a live texture of this renderer.
func (r *Renderer) owned(s hdmiview.Surface) (*Texture, error) {
	t, ok := s.(*Texture)
	if !ok || t.owner != r {
		return nil, ErrForeignSurface
	}
	if t.IsReleased() {
		return nil, ErrTextureReleased
	}
	return t, nil
}

// bind rebuilds the bind group when the surface pair changed.
func (r *Renderer) bind(luma, chroma *Texture) error {
	if r.bindGroup != nil && r.boundLuma == luma && r.boundChroma == chroma {
		return nil
	}
	r.dropBindGroup()
	bg, err := r.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "hdmiview_planes",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: yuvUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: luma.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: chroma.view.NativeHandle()}},
			{Binding: 3, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	r.bindGroup = bg
	r.boundLuma, r.boundChroma = luma, chroma
	return nil
}

func (r *Renderer) dropBindGroup() {
	if r.bindGroup != nil {
		r.dev.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	r.boundLuma, r.boundChroma = nil, nil
}

func (r *Renderer) createPipeline() error {
	device := r.dev.device

	shader, err := createShaderModule(device, "hdmiview_yuv", yuvShaderSource, r.dev.spirv)
	if err != nil {
		return fmt.Errorf("create yuv shader: %w", err)
	}
	r.shader = shader

	// Bind group layout:
	//   Binding 0: conversion uniform (fragment)
	//   Binding 1: luma texture (fragment)
	//   Binding 2: chroma texture (fragment)
	//   Binding 3: sampler (fragment)
	planeTexture := &gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "hdmiview_planes_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: planeTexture},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Texture: planeTexture},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "hdmiview_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	// Linear filtering upsamples 4:2:0 chroma and scales to the display.
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "hdmiview_plane_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	r.sampler = sampler

	uniformBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "hdmiview_yuv_uniform",
		Size:  yuvUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	r.uniformBuf = uniformBuf

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "hdmiview_yuv_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    r.dev.format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

// destroyPipeline releases pipeline objects in reverse creation order.
func (r *Renderer) destroyPipeline() {
	device := r.dev.device
	if device == nil {
		return
	}
	if r.pipeline != nil {
		device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.uniformBuf != nil {
		device.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
	if r.sampler != nil {
		device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.pipeLayout != nil {
		device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}
