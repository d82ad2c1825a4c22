// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hdmiview

import (
	"fmt"
)

// SurfaceID selects one of the two frame surfaces.
type SurfaceID uint8

const (
	// SurfaceLuma is the one-channel Y surface at full frame size.
	SurfaceLuma SurfaceID = iota

	// SurfaceChroma is the two-channel interleaved UV surface at the
	// subsampled chroma size.
	SurfaceChroma
)

func (id SurfaceID) String() string {
	if id == SurfaceChroma {
		return "chroma"
	}
	return "luma"
}

func (id SurfaceID) channels() int { return int(id) + 1 }

// UploadStats counts upload engine activity.
type UploadStats struct {
	Uploads       uint64
	TiledUploads  uint64
	Tiles         uint64
	PackedFrames  uint64
	Reallocations uint64
}

// UploadEngine copies plane data into a luma and a chroma surface. Planes
// larger than the adapter limit are written in tiles through a scratch
// buffer that grows as needed and is never shrunk.
//
// UploadEngine is not safe for concurrent use.
type UploadEngine struct {
	alloc    SurfaceAllocator
	maxSize  int
	surfaces [2]Surface

	scratch []byte
	swapBuf []byte
	packedY []byte
	packedC []byte

	stats UploadStats
}

// NewUploadEngine returns an engine allocating from alloc. maxSize is the
// largest surface dimension a single write may cover; zero or less means
// unlimited.
func NewUploadEngine(alloc SurfaceAllocator, maxSize int) *UploadEngine {
	return &UploadEngine{alloc: alloc, maxSize: maxSize}
}

// MaxSize returns the single-write dimension limit.
func (e *UploadEngine) MaxSize() int { return e.maxSize }

// Surface returns the current surface for id, or nil before Reallocate.
func (e *UploadEngine) Surface(id SurfaceID) Surface { return e.surfaces[id] }

// Stats returns a copy of the activity counters.
func (e *UploadEngine) Stats() UploadStats { return e.stats }

// Reallocate discards both surfaces and creates new ones at the given
// sizes.
func (e *UploadEngine) Reallocate(luma, chroma Size) error {
	e.Release()
	if luma.Empty() || chroma.Empty() {
		return surfaceErr("allocate", fmt.Errorf("%w: luma %s chroma %s", ErrInvalidDimensions, luma, chroma))
	}

	y, err := e.alloc.CreateSurface("luma", luma, SurfaceLuma.channels())
	if err != nil {
		return surfaceErr("create luma", err)
	}
	uv, err := e.alloc.CreateSurface("chroma", chroma, SurfaceChroma.channels())
	if err != nil {
		e.alloc.DestroySurface(y)
		return surfaceErr("create chroma", err)
	}
	e.surfaces = [2]Surface{y, uv}
	e.stats.Reallocations++

	Logger().Debug("hdmiview: surfaces allocated", "luma", luma.String(), "chroma", chroma.String(),
		"tiled", e.needsTiling(luma) || e.needsTiling(chroma))
	return nil
}

// Release destroys both surfaces.
func (e *UploadEngine) Release() {
	for i, s := range e.surfaces {
		if s != nil {
			e.alloc.DestroySurface(s)
			e.surfaces[i] = nil
		}
	}
}

// Upload copies plane into the surface selected by id. With swap set,
// the two bytes of every chroma pair are exchanged on the way; swap has
// no effect on the luma surface.
func (e *UploadEngine) Upload(id SurfaceID, plane PlaneView, swap bool) error {
	s := e.surfaces[id]
	if s == nil {
		return ErrNoSurfaces
	}
	size := s.Size()
	rowBytes := size.Width * s.Channels()
	src, stride := plane.Data, plane.Stride
	if stride < rowBytes {
		stride = rowBytes
	}
	if need := (size.Height-1)*stride + rowBytes; len(src) < need {
		return fmt.Errorf("upload %s: %w: have %d bytes, need %d", id, ErrGeometryMismatch, len(src), need)
	}

	if swap && s.Channels() == 2 {
		e.swapBuf = grow(e.swapBuf, rowBytes*size.Height)
		SwapChroma(e.swapBuf, src, size.Width, size.Height, stride)
		src, stride = e.swapBuf, rowBytes
	}

	if err := e.write(s, src, stride); err != nil {
		return fmt.Errorf("upload %s: %w", id, err)
	}
	e.stats.Uploads++
	return nil
}

// UploadPacked converts packed 3-byte pixels into both surfaces. The
// packed interpretation is a best-effort fallback for buffers that do
// not carry a complete semi-planar frame.
func (e *UploadEngine) UploadPacked(src PlaneView, swap bool) error {
	y, uv := e.surfaces[SurfaceLuma], e.surfaces[SurfaceChroma]
	if y == nil || uv == nil {
		return ErrNoSurfaces
	}
	size, csize := y.Size(), uv.Size()
	e.packedY = grow(e.packedY, size.Width*size.Height)
	e.packedC = grow(e.packedC, csize.Width*csize.Height*2)

	rows := DeinterleavePacked(e.packedY, e.packedC, src, size, csize)
	if rows == 0 {
		return fmt.Errorf("upload packed: %w: %d bytes for %s", ErrGeometryMismatch, len(src.Data), size)
	}
	if rows < size.Height {
		Logger().Debug("hdmiview: partial packed frame", "rows", rows, "height", size.Height)
	}
	e.stats.PackedFrames++

	if err := e.Upload(SurfaceLuma, PlaneView{Data: e.packedY, Stride: size.Width}, false); err != nil {
		return err
	}
	return e.Upload(SurfaceChroma, PlaneView{Data: e.packedC, Stride: csize.Width * 2}, swap)
}

func (e *UploadEngine) needsTiling(s Size) bool {
	return e.maxSize > 0 && (s.Width > e.maxSize || s.Height > e.maxSize)
}

// write uploads a full surface from src, tiling when either dimension
// exceeds the limit. Bands that span the full width are written straight
// from src; narrower tiles are gathered into the scratch buffer first.
func (e *UploadEngine) write(s Surface, src []byte, stride int) error {
	size := s.Size()
	if !e.needsTiling(size) {
		return s.Write(0, 0, size.Width, size.Height, src, stride)
	}
	e.stats.TiledUploads++

	ch := s.Channels()
	maxDim := e.maxSize
	for y := 0; y < size.Height; y += maxDim {
		th := min(maxDim, size.Height-y)
		band := src[y*stride:]
		if size.Width <= maxDim {
			if err := s.Write(0, y, size.Width, th, band, stride); err != nil {
				return err
			}
			e.stats.Tiles++
			continue
		}
		for x := 0; x < size.Width; x += maxDim {
			tw := min(maxDim, size.Width-x)
			n := tw * ch
			e.scratch = grow(e.scratch, n*th)
			for r := 0; r < th; r++ {
				off := r*stride + x*ch
				copy(e.scratch[r*n:(r+1)*n], band[off:off+n])
			}
			if err := s.Write(x, y, tw, th, e.scratch[:n*th], n); err != nil {
				return err
			}
			e.stats.Tiles++
		}
	}
	return nil
}

// grow returns b resized to n bytes, reallocating only when the capacity
// is too small.
func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
