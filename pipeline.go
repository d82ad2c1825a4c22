// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hdmiview

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline drives capture, upload and drawing on a single goroutine.
// It owns the buffer pool and both surfaces; it does not own the device
// or the renderer.
type Pipeline struct {
	dev    Device
	r      Renderer
	cfg    Config
	opts   pipelineOptions
	pool   *BufferPool
	engine *UploadEngine
	track  *Tracker

	frame     uint64
	stats     Stats
	mismatch  bool
	streaming bool
	closed    bool
}

// NewPipeline negotiates the capture format, allocates surfaces, maps and
// queues the capture buffers and starts streaming. Any failure releases
// what was acquired and returns a *DeviceError or *SurfaceError.
func NewPipeline(dev Device, r Renderer, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{dev: dev, r: r, cfg: cfg}
	for _, opt := range opts {
		opt(&p.opts)
	}
	attachLogger(dev)
	attachLogger(r)

	format, err := p.negotiate()
	if err != nil {
		p.detach()
		return nil, err
	}

	if err := dev.SubscribeSourceChange(); err != nil {
		Logger().Warn("hdmiview: source change notifications unavailable, relying on polling", "err", err)
	}

	maxSize := r.MaxSurfaceSize()
	if n := p.opts.maxSurfaceSize; n > 0 && (maxSize <= 0 || n < maxSize) {
		maxSize = n
	}
	p.engine = NewUploadEngine(r, maxSize)
	resizer, _ := r.(DisplayResizer)
	p.track = NewTracker(dev, p.engine, cfg, resizer)
	if err := p.track.Apply(format); err != nil {
		p.detach()
		return nil, err
	}

	p.pool, err = NewBufferPool(dev, cfg.BufferCount)
	if err != nil {
		p.engine.Release()
		p.detach()
		return nil, err
	}

	if err := dev.StreamOn(); err != nil {
		_ = p.pool.Close()
		p.engine.Release()
		p.detach()
		return nil, deviceErr("stream on", err)
	}
	p.streaming = true

	Logger().Info("hdmiview: streaming",
		"format", format.String(), "buffers", p.pool.Len(), "max_surface", maxSize,
		"uv_swap", p.track.Swap(), "cpu_swap", cfg.CPUSwap,
		"matrix", cfg.Matrix.String(), "range", cfg.Range.String())
	return p, nil
}

// negotiate reads the device format and requests the configured pixel
// format at the current size. A rejected request is not an error. A 0x0
// format (no signal) starts at DefaultWidth x DefaultHeight; the tracker
// adopts the real mode once a signal appears.
func (p *Pipeline) negotiate() (FrameFormat, error) {
	cur, qerr := p.dev.Format()
	if qerr == nil && (p.cfg.RequestFourCC == 0 || p.cfg.RequestFourCC == cur.FourCC) {
		return p.sized(cur), nil
	}
	if qerr == nil {
		cur = p.sized(cur)
	} else {
		if p.cfg.RequestFourCC == 0 {
			return FrameFormat{}, deviceErr("get format", qerr)
		}
		Logger().Warn("hdmiview: initial format query failed, using defaults", "err", qerr)
		cur = NewFrameFormat(p.cfg.DefaultWidth, p.cfg.DefaultHeight, p.cfg.RequestFourCC)
	}

	want := NewFrameFormat(cur.Width, cur.Height, p.cfg.RequestFourCC)
	set, setErr := p.dev.SetFormat(want)
	if setErr != nil {
		Logger().Warn("hdmiview: format request rejected", "want", want.String(), "err", setErr)
	}
	got, err := p.dev.Format()
	switch {
	case err == nil:
		return p.sized(got), nil
	case setErr == nil:
		return p.sized(set), nil
	}
	return FrameFormat{}, deviceErr("get format", err)
}

// sized replaces an empty frame size with the configured default. An
// unknown pixel format falls back to the requested one.
func (p *Pipeline) sized(f FrameFormat) FrameFormat {
	if f.Width != 0 && f.Height != 0 {
		return f
	}
	code := f.FourCC
	if code.Layout() == LayoutUnknown && p.cfg.RequestFourCC != 0 {
		code = p.cfg.RequestFourCC
	}
	Logger().Warn("hdmiview: no signal, starting at default size",
		"reported", f.String(), "width", p.cfg.DefaultWidth, "height", p.cfg.DefaultHeight)
	return NewFrameFormat(p.cfg.DefaultWidth, p.cfg.DefaultHeight, code)
}

// Format returns the adopted capture format.
func (p *Pipeline) Format() FrameFormat { return p.track.Current() }

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.Format = p.track.Current()
	s.Upload = p.engine.Stats()
	return s
}

// Run iterates until quit input, context cancellation or a fatal error.
// Quit and cancellation return nil. Call Close afterwards to release
// buffers and surfaces.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			Logger().Info("hdmiview: stopping", "reason", err)
			return nil
		}
		more, err := p.Step()
		if err != nil {
			return err
		}
		if !more {
			Logger().Info("hdmiview: quit requested")
			return nil
		}
	}
}

// Step runs one loop iteration. It reports false once quit was requested.
func (p *Pipeline) Step() (bool, error) {
	if p.closed {
		return false, ErrPoolClosed
	}
	ready, err := p.dev.Wait(p.cfg.PollTimeout)
	if err != nil {
		return false, p.fail(deviceErr("wait", err))
	}
	if !ready.Frame && !ready.Event {
		p.stats.Timeouts++
	}

	if ready.Event {
		changed, err := p.track.DrainEvents()
		if err != nil {
			return false, p.fail(err)
		}
		p.noteChange(changed)
	}
	changed, err := p.track.PeriodicCheck(p.frame)
	if err != nil {
		return false, p.fail(err)
	}
	p.noteChange(changed)

	buf, err := p.pool.Acquire()
	switch {
	case errors.Is(err, ErrNotReady):
		p.stats.NotReady++
	case err != nil:
		return false, p.fail(err)
	default:
		if err := p.present(buf); err != nil {
			if relErr := p.pool.Release(buf); relErr != nil {
				err = errors.Join(err, relErr)
			}
			return false, p.fail(err)
		}
		if err := p.pool.Release(buf); err != nil {
			return false, p.fail(err)
		}
	}

	more := p.handleInput()
	p.frame++
	p.stats.Iterations++
	if p.opts.observer != nil {
		p.opts.observer.Observe(p.Stats())
	}
	return more, nil
}

// present uploads one acquired buffer and draws it. Short planes skip
// the frame and are not returned as errors.
func (p *Pipeline) present(buf *Buffer) error {
	f := p.track.Current()
	layout := Resolve(f, buf, buf.BytesUsed(0))

	swap := p.track.Swap()
	cpuSwap := p.cfg.CPUSwap && swap
	toggles := Toggles{Swap: swap && !p.cfg.CPUSwap, Matrix: p.cfg.Matrix, Range: p.cfg.Range}

	var err error
	if layout.Source == SourcePacked {
		err = p.engine.UploadPacked(layout.Y, cpuSwap)
	} else {
		err = p.engine.Upload(SurfaceLuma, layout.Y, false)
		if err == nil {
			err = p.engine.Upload(SurfaceChroma, layout.UV, cpuSwap)
		}
	}
	if errors.Is(err, ErrGeometryMismatch) {
		p.stats.Skipped++
		if !p.mismatch {
			p.mismatch = true
			Logger().Warn("hdmiview: skipping short frame", "format", f.String(),
				"layout", layout.Source.String(), "bytes_used", buf.BytesUsed(0), "err", err)
		}
		return nil
	}
	if err != nil {
		return surfaceErr("upload", err)
	}

	if err := p.r.Draw(p.engine.Surface(SurfaceLuma), p.engine.Surface(SurfaceChroma), toggles); err != nil {
		return surfaceErr("draw", err)
	}
	p.stats.Frames++
	return nil
}

func (p *Pipeline) noteChange(changed bool) {
	if changed {
		p.stats.FormatChanges++
		p.mismatch = false
	}
}

// handleInput drains pending input and reports whether to keep running.
func (p *Pipeline) handleInput() bool {
	if p.opts.input == nil {
		return true
	}
	for {
		ev, ok := p.opts.input.PollInput()
		if !ok {
			return true
		}
		switch ev {
		case InputQuit:
			return false
		case InputToggleFullscreen:
			ft, ok := p.r.(FullscreenToggler)
			if !ok {
				Logger().Debug("hdmiview: renderer has no fullscreen mode")
				continue
			}
			if err := ft.ToggleFullscreen(); err != nil {
				Logger().Warn("hdmiview: fullscreen toggle failed", "err", err)
			}
		}
	}
}

func (p *Pipeline) fail(err error) error {
	p.stats.Errors++
	Logger().Warn("hdmiview: capture loop stopped", "frame", p.frame, "err", err)
	return err
}

// Close stops streaming, unmaps every buffer and destroys both surfaces.
// It is safe to call more than once.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	if p.streaming {
		if err := p.dev.StreamOff(); err != nil {
			errs = append(errs, deviceErr("stream off", err))
		}
		p.streaming = false
	}
	if err := p.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	p.engine.Release()
	p.detach()
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("hdmiview: close: %w", err)
	}
	return nil
}

func (p *Pipeline) detach() {
	detachLogger(p.dev)
	detachLogger(p.r)
}
