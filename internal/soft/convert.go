package soft

import (
	"image"
	"math"

	"github.com/gogpu/hdmiview"
)

// coeffs are 16.16 fixed-point YCbCr to RGB factors with the range
// expansion folded in.
type coeffs struct {
	yOff int32
	yMul int32
	rv   int32
	gu   int32
	gv   int32
	bu   int32
}

func fixed(f float64) int32 { return int32(math.Round(f * 65536)) }

// coefficientsFor returns the factors for a matrix and range.
func coefficientsFor(m hdmiview.ColorMatrix, r hdmiview.ColorRange) coeffs {
	kr, kgu, kgv, kb := 1.5748, 0.187324, 0.468124, 1.8556
	if m == hdmiview.MatrixBT601 {
		kr, kgu, kgv, kb = 1.402, 0.344136, 0.714136, 1.772
	}
	yScale, cScale := 1.0, 1.0
	var yOff int32
	if r == hdmiview.RangeLimited {
		yScale, cScale = 255.0/219.0, 255.0/224.0
		yOff = 16
	}
	return coeffs{
		yOff: yOff,
		yMul: fixed(yScale),
		rv:   fixed(kr * cScale),
		gu:   fixed(kgu * cScale),
		gv:   fixed(kgv * cScale),
		bu:   fixed(kb * cScale),
	}
}

func clamp8(v int32) uint8 {
	v = (v + 1<<15) >> 16
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// rgb converts one sample.
func (c coeffs) rgb(y, u, v uint8) (r, g, b uint8) {
	yy := (int32(y) - c.yOff) * c.yMul
	uu := int32(u) - 128
	vv := int32(v) - 128
	return clamp8(yy + c.rv*vv), clamp8(yy - c.gu*uu - c.gv*vv), clamp8(yy + c.bu*uu)
}

// convertRows writes rows [y0, y1) of dst from a luma and an interleaved
// chroma surface. Chroma is point-sampled, so 4:2:0 and 4:4:4 both map
// onto the luma grid.
func convertRows(dst *image.RGBA, luma, chroma *hdmiview.MemorySurface, c coeffs, swap bool, y0, y1 int) {
	ls, cs := luma.Size(), chroma.Size()
	lStride, cStride := luma.Stride(), chroma.Stride()
	ui, vi := 0, 1
	if swap {
		ui, vi = 1, 0
	}
	for y := y0; y < y1; y++ {
		cy := y * cs.Height / ls.Height
		lrow := luma.Pix[y*lStride : y*lStride+ls.Width]
		crow := chroma.Pix[cy*cStride : cy*cStride+cs.Width*2]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+ls.Width*4]
		for x := 0; x < ls.Width; x++ {
			cx := (x * cs.Width / ls.Width) * 2
			r, g, b := c.rgb(lrow[x], crow[cx+ui], crow[cx+vi])
			o := x * 4
			out[o], out[o+1], out[o+2], out[o+3] = r, g, b, 0xff
		}
	}
}
