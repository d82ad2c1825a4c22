package hdmiview

// LayoutSource tells which resolution rule produced a PlaneLayout.
type LayoutSource uint8

const (
	// SourceMultiPlane takes luma and chroma from separate buffer planes.
	SourceMultiPlane LayoutSource = iota
	// SourceContiguous splits a single plane at the end of the luma region.
	SourceContiguous
	// SourcePacked treats the single plane as packed 3-byte pixels.
	SourcePacked
)

func (s LayoutSource) String() string {
	switch s {
	case SourceMultiPlane:
		return "multi-plane"
	case SourceContiguous:
		return "contiguous"
	default:
		return "packed"
	}
}

// PlaneView is a window onto sample rows in buffer memory.
type PlaneView struct {
	Data   []byte
	Stride int
}

// Empty reports whether the view holds no data.
func (v PlaneView) Empty() bool { return len(v.Data) == 0 }

// PlaneLayout locates luma and chroma samples of one frame. For
// SourcePacked, Y holds the packed pixels and UV is empty.
type PlaneLayout struct {
	Source LayoutSource

	Y  PlaneView
	UV PlaneView

	Width, Height     int
	UVWidth, UVHeight int
	Subsampled        bool
}

// HasChroma reports whether chroma samples were located.
func (l PlaneLayout) HasChroma() bool { return !l.UV.Empty() }

// Resolve maps a dequeued buffer onto luma and chroma regions for the
// adopted format. bytesUsed0 is the driver-reported payload of plane 0.
//
// A buffer with two or more planes always uses plane 0 as luma and plane 1
// as chroma. A single plane is split by offset when it carries at least a
// full luma and chroma region; anything else falls back to packed pixels.
// Resolve does not touch device or GPU state.
func Resolve(format FrameFormat, buf *Buffer, bytesUsed0 int) PlaneLayout {
	uv := format.ChromaSize()
	l := PlaneLayout{
		Width:      int(format.Width),
		Height:     int(format.Height),
		UVWidth:    uv.Width,
		UVHeight:   uv.Height,
		Subsampled: format.Layout.Subsampled(),
	}
	planes := buf.Planes()
	if len(planes) == 0 {
		l.Source = SourcePacked
		return l
	}

	if len(planes) >= 2 {
		l.Source = SourceMultiPlane
		l.Y = PlaneView{Data: planes[0].Data, Stride: format.LumaStride()}
		l.UV = PlaneView{Data: planes[1].Data, Stride: format.ChromaStride()}
		return l
	}

	data := planes[0].Data
	if bytesUsed0 > len(data) {
		bytesUsed0 = len(data)
	}

	if format.Layout != PackedTriplet {
		ySize, uvSize := format.LumaBytes(), format.ChromaBytes()
		if bytesUsed0 >= ySize+uvSize {
			l.Source = SourceContiguous
			l.Y = PlaneView{Data: data[:ySize], Stride: format.LumaStride()}
			l.UV = PlaneView{Data: data[ySize : ySize+uvSize], Stride: format.ChromaStride()}
			return l
		}
	}

	l.Source = SourcePacked
	l.Y = PlaneView{Data: data[:bytesUsed0], Stride: packedStride(format)}
	return l
}

// packedStride is the row stride for packed 3-byte pixels.
func packedStride(f FrameFormat) int {
	if f.Layout == PackedTriplet {
		return f.LumaStride()
	}
	return int(f.Width) * 3
}
