// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package soft is a CPU implementation of hdmiview.Renderer.
//
// Planes live in hdmiview.MemorySurface values. Draw converts them to an
// RGBA image at capture resolution, spreading rows over a worker pool, then
// scales to the display size with golang.org/x/image/draw. It is used when
// no GPU is available and for snapshot tests.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/hdmiview"
	"github.com/gogpu/hdmiview/internal/parallel"
)

// DefaultMaxSurfaceSize matches the WebGPU default 2D texture limit so
// the software path tiles the same way the GPU path does.
const DefaultMaxSurfaceSize = 8192

// minBandRows is the smallest row band handed to one worker.
const minBandRows = 16

var (
	// ErrForeignSurface is returned when Draw receives a surface this
	// renderer did not allocate.
	ErrForeignSurface = errors.New("soft: surface not created by this renderer")

	// ErrNoFrame is returned by Snapshot before the first Draw.
	ErrNoFrame = errors.New("soft: no frame drawn")

	// ErrClosed is returned when using a closed renderer.
	ErrClosed = errors.New("soft: renderer closed")
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxSurfaceSize overrides the largest surface edge. Values <= 0
// disable the limit.
func WithMaxSurfaceSize(n int) Option {
	return func(r *Renderer) { r.maxSize = n }
}

// WithWorkers sets the number of conversion goroutines.
func WithWorkers(n int) Option {
	return func(r *Renderer) { r.workers = n }
}

// WithScaler sets the interpolator used when the display size differs
// from the capture size. The default is ApproxBiLinear.
func WithScaler(s xdraw.Interpolator) Option {
	return func(r *Renderer) { r.scaler = s }
}

// Renderer converts memory surfaces to RGBA on the CPU.
type Renderer struct {
	mu    sync.Mutex
	alloc hdmiview.MemoryAllocator

	pool    *parallel.Pool
	workers int
	scaler  xdraw.Interpolator
	maxSize int

	display hdmiview.Size
	native  *image.RGBA
	frame   *image.RGBA
	toggles hdmiview.Toggles
	coeffs  coeffs
	frames  uint64
	closed  bool
}

// New returns a renderer whose output is display-sized.
func New(display hdmiview.Size, opts ...Option) (*Renderer, error) {
	if display.Empty() {
		return nil, fmt.Errorf("%w: display %s", hdmiview.ErrInvalidDimensions, display)
	}
	r := &Renderer{
		display: display,
		maxSize: DefaultMaxSurfaceSize,
		scaler:  xdraw.ApproxBiLinear,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pool = parallel.NewPool(r.workers)
	r.coeffs = coefficientsFor(r.toggles.Matrix, r.toggles.Range)
	return r, nil
}

// MaxSurfaceSize implements hdmiview.Renderer.
func (r *Renderer) MaxSurfaceSize() int { return r.maxSize }

// CreateSurface implements hdmiview.SurfaceAllocator.
func (r *Renderer) CreateSurface(label string, size hdmiview.Size, channels int) (hdmiview.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.maxSize > 0 && (size.Width > r.maxSize || size.Height > r.maxSize) {
		return nil, fmt.Errorf("%w: %s exceeds %d", hdmiview.ErrInvalidDimensions, size, r.maxSize)
	}
	return r.alloc.CreateSurface(label, size, channels)
}

// DestroySurface implements hdmiview.SurfaceAllocator.
func (r *Renderer) DestroySurface(s hdmiview.Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alloc.DestroySurface(s)
}

// LiveSurfaces returns the number of surfaces not yet destroyed.
func (r *Renderer) LiveSurfaces() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc.Live
}

// Draw implements hdmiview.Renderer.
func (r *Renderer) Draw(luma, chroma hdmiview.Surface, t hdmiview.Toggles) error {
	l, ok := luma.(*hdmiview.MemorySurface)
	if !ok || l.Channels() != 1 {
		return ErrForeignSurface
	}
	c, ok := chroma.(*hdmiview.MemorySurface)
	if !ok || c.Channels() != 2 {
		return ErrForeignSurface
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if t.Matrix != r.toggles.Matrix || t.Range != r.toggles.Range {
		r.coeffs = coefficientsFor(t.Matrix, t.Range)
	}
	r.toggles = t

	size := l.Size()
	if r.native == nil || r.native.Rect.Dx() != size.Width || r.native.Rect.Dy() != size.Height {
		r.native = image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	}
	k := r.coeffs
	r.pool.Rows(size.Height, minBandRows, func(y0, y1 int) {
		convertRows(r.native, l, c, k, t.Swap, y0, y1)
	})

	if size == r.display {
		r.frame = r.native
	} else {
		if r.frame == nil || r.frame == r.native ||
			r.frame.Rect.Dx() != r.display.Width || r.frame.Rect.Dy() != r.display.Height {
			r.frame = image.NewRGBA(image.Rect(0, 0, r.display.Width, r.display.Height))
		}
		r.scaler.Scale(r.frame, r.frame.Rect, r.native, r.native.Rect, xdraw.Src, nil)
	}
	r.frames++
	return nil
}

// ResizeDisplay implements hdmiview.DisplayResizer.
func (r *Renderer) ResizeDisplay(size hdmiview.Size) error {
	if size.Empty() {
		return fmt.Errorf("%w: display %s", hdmiview.ErrInvalidDimensions, size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if size != r.display {
		r.display = size
		r.frame = nil
	}
	return nil
}

// DisplaySize returns the output size.
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

// Snapshot returns a copy of the last frame.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame == nil {
		return nil, ErrNoFrame
	}
	img := image.NewRGBA(r.frame.Rect)
	copy(img.Pix, r.frame.Pix)
	return img, nil
}

// SavePNG writes the last frame to path.
func (r *Renderer) SavePNG(path string) error {
	img, err := r.Snapshot()
	if err != nil {
		return err
	}
	return SavePNG(path, img)
}

// Close stops the conversion workers. Close is idempotent.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Close()
	return nil
}

// SavePNG encodes img to a PNG file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
