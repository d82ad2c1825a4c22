package hdmiview

// SwapChroma copies rows of interleaved two-byte chroma pairs from src to
// dst, exchanging the two bytes of every pair. dst is written tightly
// packed (pairs*2 bytes per row); src rows are srcStride bytes apart.
// Applying it twice with a tight stride restores the input.
func SwapChroma(dst, src []byte, pairs, rows, srcStride int) {
	rowBytes := pairs * 2
	for r := 0; r < rows; r++ {
		s := src[r*srcStride : r*srcStride+rowBytes]
		d := dst[r*rowBytes : (r+1)*rowBytes]
		for i := 0; i < rowBytes; i += 2 {
			d[i], d[i+1] = s[i+1], s[i]
		}
	}
}

// DeinterleavePacked splits packed Y,U,V pixels into a tight luma plane
// and a tight interleaved chroma plane of chroma size. Chroma is point
// sampled when the chroma plane is smaller than the frame. It returns the
// number of complete source rows converted.
func DeinterleavePacked(luma, chroma []byte, src PlaneView, size, chromaSize Size) int {
	w, h := size.Width, size.Height
	rowBytes := w * 3
	stride := src.Stride
	if stride < rowBytes {
		stride = rowBytes
	}
	rows := 0
	if n := len(src.Data); n >= rowBytes {
		rows = (n-rowBytes)/stride + 1
	}
	if rows > h {
		rows = h
	}

	for y := 0; y < rows; y++ {
		s := src.Data[y*stride : y*stride+rowBytes]
		d := luma[y*w : (y+1)*w]
		for x := range d {
			d[x] = s[x*3]
		}
	}

	if chromaSize.Empty() {
		return rows
	}
	sx := w / chromaSize.Width
	sy := h / chromaSize.Height
	if sx < 1 {
		sx = 1
	}
	if sy < 1 {
		sy = 1
	}
	cRowBytes := chromaSize.Width * 2
	for cy := 0; cy < chromaSize.Height; cy++ {
		y := cy * sy
		if y >= rows {
			break
		}
		s := src.Data[y*stride : y*stride+rowBytes]
		d := chroma[cy*cRowBytes : (cy+1)*cRowBytes]
		for cx := 0; cx < chromaSize.Width; cx++ {
			p := cx * sx * 3
			d[cx*2] = s[p+1]
			d[cx*2+1] = s[p+2]
		}
	}
	return rows
}
