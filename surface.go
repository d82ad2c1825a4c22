package hdmiview

// Surface is a 2D image with fixed dimensions and 1 or 2 byte channels.
type Surface interface {
	Size() Size
	Channels() int

	// Write copies a w×h region of rows starting at data into the surface
	// at (x, y). Consecutive rows in data are bytesPerRow apart.
	Write(x, y, w, h int, data []byte, bytesPerRow int) error
}

// SurfaceAllocator creates and destroys surfaces.
type SurfaceAllocator interface {
	CreateSurface(label string, size Size, channels int) (Surface, error)
	DestroySurface(s Surface)
}

// Toggles are the per-frame scalar inputs of the color conversion.
type Toggles struct {
	// Swap exchanges the two chroma channels when sampling.
	Swap   bool
	Matrix ColorMatrix
	Range  ColorRange
}

// Renderer converts a luma and a chroma surface to a colored image.
//
// MaxSurfaceSize is queried once at startup. Larger planes are uploaded
// in tiles.
type Renderer interface {
	SurfaceAllocator
	MaxSurfaceSize() int
	Draw(luma, chroma Surface, t Toggles) error
}

// DisplayResizer is implemented by renderers whose output size can follow
// the capture size.
type DisplayResizer interface {
	ResizeDisplay(size Size) error
}

// FullscreenToggler is implemented by renderers attached to a window.
type FullscreenToggler interface {
	ToggleFullscreen() error
}
