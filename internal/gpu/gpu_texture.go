//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hdmiview"
)

// ErrTextureReleased is returned when writing to a destroyed texture.
var ErrTextureReleased = errors.New("gpu: texture has been released")

// planeFormat maps a channel count to the texture format holding it.
func planeFormat(channels int) (gputypes.TextureFormat, bool) {
	switch channels {
	case 1:
		return gputypes.TextureFormatR8Unorm, true
	case 2:
		return gputypes.TextureFormatRG8Unorm, true
	default:
		return 0, false
	}
}

// Texture is a sampled plane texture. It implements hdmiview.Surface.
type Texture struct {
	owner    *Renderer
	queue    hal.Queue
	tex      hal.Texture
	view     hal.TextureView
	label    string
	size     hdmiview.Size
	channels int
	format   gputypes.TextureFormat

	writes   atomic.Uint64
	released atomic.Bool
}

// newTexture creates a plane texture and its view.
func newTexture(device hal.Device, queue hal.Queue, label string, size hdmiview.Size, channels int) (*Texture, error) {
	if size.Empty() {
		return nil, fmt.Errorf("%w: %s", hdmiview.ErrInvalidDimensions, size)
	}
	format, ok := planeFormat(channels)
	if !ok {
		return nil, fmt.Errorf("%w: %d channels", hdmiview.ErrUnsupported, channels)
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(size.Width),  //nolint:gosec // checked positive above
			Height:             uint32(size.Height), //nolint:gosec // checked positive above
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	return &Texture{
		queue:    queue,
		tex:      tex,
		view:     view,
		label:    label,
		size:     size,
		channels: channels,
		format:   format,
	}, nil
}

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Size returns the texture dimensions.
func (t *Texture) Size() hdmiview.Size { return t.size }

// Channels returns 1 for luma textures and 2 for chroma textures.
func (t *Texture) Channels() int { return t.channels }

// Format returns the GPU texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Writes returns the number of WriteTexture calls issued.
func (t *Texture) Writes() uint64 { return t.writes.Load() }

// IsReleased reports whether the texture has been destroyed.
func (t *Texture) IsReleased() bool { return t.released.Load() }

// Write uploads a w×h region at (x, y) with a single WriteTexture call.
// bytesPerRow may exceed w*Channels; the GPU skips the padding.
func (t *Texture) Write(x, y, w, h int, data []byte, bytesPerRow int) error {
	if t.released.Load() {
		return ErrTextureReleased
	}
	if err := hdmiview.CheckRegion(t, x, y, w, h, data, bytesPerRow); err != nil {
		return err
	}
	n := (h-1)*bytesPerRow + w*t.channels
	//nolint:gosec // region validated against the texture size
	t.queue.WriteTexture(&hal.ImageCopyTexture{
		Texture:  t.tex,
		MipLevel: 0,
		Origin:   hal.Origin3D{X: uint32(x), Y: uint32(y), Z: 0},
		Aspect:   gputypes.TextureAspectAll,
	}, data[:n], &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(bytesPerRow),
		RowsPerImage: uint32(h),
	}, &hal.Extent3D{
		Width:              uint32(w),
		Height:             uint32(h),
		DepthOrArrayLayers: 1,
	})
	t.writes.Add(1)
	return nil
}

// destroy releases the view and the texture. Safe to call twice.
func (t *Texture) destroy(device hal.Device) {
	if t.released.Swap(true) {
		return
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// String returns a short description of the texture.
func (t *Texture) String() string {
	status := "active"
	if t.released.Load() {
		status = "released"
	}
	return fmt.Sprintf("Texture[%s %s ch=%d %s]", t.label, t.size, t.channels, status)
}
