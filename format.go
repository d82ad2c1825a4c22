// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hdmiview

import "fmt"

// FourCC is a V4L2 pixel format code.
type FourCC uint32

// Recognized capture formats.
const (
	FourCCNV12  FourCC = 'N' | 'V'<<8 | '1'<<16 | '2'<<24 // Y plane + interleaved UV, 4:2:0
	FourCCNV21  FourCC = 'N' | 'V'<<8 | '2'<<16 | '1'<<24 // Y plane + interleaved VU, 4:2:0
	FourCCNV24  FourCC = 'N' | 'V'<<8 | '2'<<16 | '4'<<24 // Y plane + interleaved UV, 4:4:4
	FourCCNV42  FourCC = 'N' | 'V'<<8 | '4'<<16 | '2'<<24 // Y plane + interleaved VU, 4:4:4
	FourCCYUV24 FourCC = 'Y' | 'U'<<8 | 'V'<<16 | '3'<<24 // packed Y,U,V triplets
)

// NewFourCC builds a code from its four characters.
func NewFourCC(a, b, c, d byte) FourCC {
	return FourCC(a) | FourCC(b)<<8 | FourCC(c)<<16 | FourCC(d)<<24
}

// String returns the four characters, with non-printable bytes shown as '.'.
func (f FourCC) String() string {
	var s [4]byte
	for i := range s {
		c := byte(f >> (8 * i))
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		s[i] = c
	}
	return string(s[:])
}

// Layout returns the pixel layout family of the code.
func (f FourCC) Layout() PixelLayout {
	switch f {
	case FourCCNV12, FourCCNV21:
		return SemiPlanar420
	case FourCCNV24, FourCCNV42:
		return SemiPlanar444
	case FourCCYUV24:
		return PackedTriplet
	default:
		return LayoutUnknown
	}
}

// ChromaSwapped reports whether the code stores chroma as V before U.
func (f FourCC) ChromaSwapped() bool {
	return f == FourCCNV21 || f == FourCCNV42
}

// PixelLayout is the memory arrangement family of a frame.
type PixelLayout uint8

const (
	// LayoutUnknown is a format outside the recognized set. Chroma is
	// treated as full resolution.
	LayoutUnknown PixelLayout = iota

	// SemiPlanar420 has a luma plane and a half-resolution plane of
	// interleaved chroma pairs.
	SemiPlanar420

	// SemiPlanar444 has a luma plane and a full-resolution plane of
	// interleaved chroma pairs.
	SemiPlanar444

	// PackedTriplet stores Y, U and V contiguously, 3 bytes per pixel.
	PackedTriplet
)

// String returns a human-readable name for the layout.
func (l PixelLayout) String() string {
	switch l {
	case SemiPlanar420:
		return "SemiPlanar420"
	case SemiPlanar444:
		return "SemiPlanar444"
	case PackedTriplet:
		return "PackedTriplet"
	default:
		return fmt.Sprintf("Unknown(%d)", l)
	}
}

// Subsampled reports whether chroma is stored at half resolution.
func (l PixelLayout) Subsampled() bool { return l == SemiPlanar420 }

// SemiPlanar reports whether luma and chroma live in separate regions.
func (l PixelLayout) SemiPlanar() bool {
	return l == SemiPlanar420 || l == SemiPlanar444
}

// Size is a width and height in pixels.
type Size struct {
	Width, Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// FrameFormat is an adopted capture geometry. It is a value: a change
// replaces it wholesale.
type FrameFormat struct {
	Width  uint32
	Height uint32
	Layout PixelLayout

	// FourCC is the exact wire format. It separates the two chroma
	// orders within a layout family.
	FourCC FourCC

	// BytesPerLine is the luma row stride reported by the driver.
	// Zero means rows are tightly packed.
	BytesPerLine uint32
}

// NewFrameFormat returns a tightly packed format for the given code.
func NewFrameFormat(width, height uint32, code FourCC) FrameFormat {
	return FrameFormat{Width: width, Height: height, Layout: code.Layout(), FourCC: code}
}

func (f FrameFormat) String() string {
	return fmt.Sprintf("%dx%d %s (%s)", f.Width, f.Height, f.FourCC, f.Layout)
}

// SameMode reports whether f and g describe the same width, height and
// pixel layout. Stride differences alone are not a mode change.
func (f FrameFormat) SameMode(g FrameFormat) bool {
	return f.Width == g.Width && f.Height == g.Height &&
		f.Layout == g.Layout && f.FourCC == g.FourCC
}

// LumaSize returns the luma surface dimensions.
func (f FrameFormat) LumaSize() Size {
	return Size{Width: int(f.Width), Height: int(f.Height)}
}

// ChromaSize returns the chroma surface dimensions: half resolution for
// SemiPlanar420, full resolution otherwise.
func (f FrameFormat) ChromaSize() Size {
	if f.Layout.Subsampled() {
		return Size{Width: int(f.Width) / 2, Height: int(f.Height) / 2}
	}
	return f.LumaSize()
}

// LumaStride returns the luma row stride in bytes.
func (f FrameFormat) LumaStride() int {
	if f.Layout == PackedTriplet {
		if f.BytesPerLine >= f.Width*3 {
			return int(f.BytesPerLine)
		}
		return int(f.Width) * 3
	}
	if f.BytesPerLine >= f.Width {
		return int(f.BytesPerLine)
	}
	return int(f.Width)
}

// ChromaStride returns the chroma row stride in bytes. Semi-planar
// chroma rows hold width/2 pairs (4:2:0) or width pairs (4:4:4) and
// follow the luma stride.
func (f FrameFormat) ChromaStride() int {
	if f.Layout.Subsampled() {
		return f.LumaStride()
	}
	return 2 * f.LumaStride()
}

// LumaBytes returns the byte size of the luma region.
func (f FrameFormat) LumaBytes() int { return f.LumaStride() * int(f.Height) }

// ChromaBytes returns the byte size of the chroma region.
func (f FrameFormat) ChromaBytes() int { return f.ChromaStride() * f.ChromaSize().Height }
