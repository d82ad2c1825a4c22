package hdmiview

import "fmt"

// MemorySurface is a Surface backed by a byte slice.
type MemorySurface struct {
	label    string
	size     Size
	channels int

	// Pix holds rows of Size().Width*Channels() bytes.
	Pix []byte

	writes int
}

// NewMemorySurface allocates a zeroed surface.
func NewMemorySurface(label string, size Size, channels int) (*MemorySurface, error) {
	if size.Empty() || channels < 1 || channels > 4 {
		return nil, fmt.Errorf("%w: %s with %d channels", ErrInvalidDimensions, size, channels)
	}
	return &MemorySurface{
		label:    label,
		size:     size,
		channels: channels,
		Pix:      make([]byte, size.Width*size.Height*channels),
	}, nil
}

func (s *MemorySurface) Label() string { return s.label }
func (s *MemorySurface) Size() Size    { return s.size }
func (s *MemorySurface) Channels() int { return s.channels }

// Stride returns the row length in bytes.
func (s *MemorySurface) Stride() int { return s.size.Width * s.channels }

// Writes returns the number of Write calls made so far.
func (s *MemorySurface) Writes() int { return s.writes }

// Write implements Surface.
func (s *MemorySurface) Write(x, y, w, h int, data []byte, bytesPerRow int) error {
	if err := CheckRegion(s, x, y, w, h, data, bytesPerRow); err != nil {
		return err
	}
	rowBytes := w * s.channels
	stride := s.Stride()
	for row := 0; row < h; row++ {
		src := data[row*bytesPerRow : row*bytesPerRow+rowBytes]
		dst := (y+row)*stride + x*s.channels
		copy(s.Pix[dst:dst+rowBytes], src)
	}
	s.writes++
	return nil
}

// CheckRegion validates a Write request against s. Short data is
// reported as ErrGeometryMismatch.
func CheckRegion(s Surface, x, y, w, h int, data []byte, bytesPerRow int) error {
	size := s.Size()
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > size.Width || y+h > size.Height {
		return fmt.Errorf("hdmiview: region %dx%d+%d+%d outside %s surface", w, h, x, y, size)
	}
	rowBytes := w * s.Channels()
	if bytesPerRow < rowBytes {
		return fmt.Errorf("hdmiview: row pitch %d shorter than %d bytes", bytesPerRow, rowBytes)
	}
	if need := (h-1)*bytesPerRow + rowBytes; len(data) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrGeometryMismatch, len(data), need)
	}
	return nil
}

// MemoryAllocator creates MemorySurfaces.
type MemoryAllocator struct {
	// Live counts surfaces created and not yet destroyed.
	Live int
}

// CreateSurface implements SurfaceAllocator.
func (a *MemoryAllocator) CreateSurface(label string, size Size, channels int) (Surface, error) {
	s, err := NewMemorySurface(label, size, channels)
	if err != nil {
		return nil, err
	}
	a.Live++
	return s, nil
}

// DestroySurface implements SurfaceAllocator.
func (a *MemoryAllocator) DestroySurface(s Surface) {
	if ms, ok := s.(*MemorySurface); ok && ms.Pix != nil {
		ms.Pix = nil
		a.Live--
	}
}
