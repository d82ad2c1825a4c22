//go:build nogpu

package gpu

import (
	"errors"
	"image"

	"github.com/gogpu/hdmiview"
)

// ErrNoGPU is returned by Open in builds without GPU support.
var ErrNoGPU = errors.New("gpu: built with nogpu tag")

// Renderer is unavailable in nogpu builds.
type Renderer struct {
	hdmiview.Renderer
}

// Open always fails in nogpu builds.
func Open(hdmiview.Size) (*Renderer, error) { return nil, ErrNoGPU }

// Snapshot always fails in nogpu builds.
func (r *Renderer) Snapshot() (*image.RGBA, error) { return nil, ErrNoGPU }

// Close is a no-op in nogpu builds.
func (r *Renderer) Close() error { return nil }
