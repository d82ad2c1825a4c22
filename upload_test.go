package hdmiview

import (
	"bytes"
	"errors"
	"testing"
)

func newTestEngine(t *testing.T, maxSize int, luma, chroma Size) (*UploadEngine, *MemoryAllocator) {
	t.Helper()
	alloc := &MemoryAllocator{}
	e := NewUploadEngine(alloc, maxSize)
	if err := e.Reallocate(luma, chroma); err != nil {
		t.Fatalf("Reallocate() = %v", err)
	}
	t.Cleanup(e.Release)
	return e, alloc
}

func surfacePix(t *testing.T, e *UploadEngine, id SurfaceID) []byte {
	t.Helper()
	ms, ok := e.Surface(id).(*MemorySurface)
	if !ok {
		t.Fatalf("surface %v is %T, want *MemorySurface", id, e.Surface(id))
	}
	return ms.Pix
}

func TestSurfaceIDs(t *testing.T) {
	e, _ := newTestEngine(t, 0, Size{8, 4}, Size{4, 2})
	tests := []struct {
		id       SurfaceID
		name     string
		channels int
		size     Size
	}{
		{SurfaceLuma, "luma", 1, Size{8, 4}},
		{SurfaceChroma, "chroma", 2, Size{4, 2}},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.name {
			t.Errorf("SurfaceID(%d).String() = %q, want %q", tt.id, got, tt.name)
		}
		s := e.Surface(tt.id).(*MemorySurface)
		if got := s.Channels(); got != tt.channels {
			t.Errorf("%v channels = %d, want %d", tt.id, got, tt.channels)
		}
		if got := s.Size(); got != tt.size {
			t.Errorf("%v size = %s, want %s", tt.id, got, tt.size)
		}
	}
}

func TestUploadTiledMatchesSingleShot(t *testing.T) {
	tests := []struct {
		w, h, max int
	}{
		{16, 16, 16},
		{17, 5, 4},
		{5, 17, 4},
		{33, 33, 8},
		{64, 3, 7},
		{1, 1, 1},
		{100, 60, 64},
	}
	for _, tt := range tests {
		for _, id := range []SurfaceID{SurfaceLuma, SurfaceChroma} {
			size := Size{tt.w, tt.h}
			ch := id.channels()
			stride := tt.w*ch + 3
			src := make([]byte, stride*tt.h)
			pattern(src, byte(tt.w))

			single, _ := newTestEngine(t, 0, size, size)
			tiled, _ := newTestEngine(t, tt.max, size, size)
			for _, e := range []*UploadEngine{single, tiled} {
				if err := e.Upload(id, PlaneView{Data: src, Stride: stride}, false); err != nil {
					t.Fatalf("%dx%d max %d %v: Upload() = %v", tt.w, tt.h, tt.max, id, err)
				}
			}
			if !bytes.Equal(surfacePix(t, single, id), surfacePix(t, tiled, id)) {
				t.Errorf("%dx%d max %d %v: tiled upload differs from single-shot", tt.w, tt.h, tt.max, id)
			}
			if got := single.Surface(id).(*MemorySurface).Writes(); got != 1 {
				t.Errorf("single-shot writes = %d, want 1", got)
			}
		}
	}
}

func TestUploadTileCount(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		tiles     int
	}{
		{"fits", 8, 8, 8, 1},
		{"tall bands", 8, 20, 8, 3},
		{"wide grid", 20, 8, 8, 3},
		{"grid", 20, 20, 8, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := Size{tt.w, tt.h}
			e, _ := newTestEngine(t, tt.max, size, size)
			src := make([]byte, tt.w*tt.h)
			if err := e.Upload(SurfaceLuma, PlaneView{Data: src, Stride: tt.w}, false); err != nil {
				t.Fatal(err)
			}
			if got := e.Surface(SurfaceLuma).(*MemorySurface).Writes(); got != tt.tiles {
				t.Errorf("writes = %d, want %d", got, tt.tiles)
			}
		})
	}
}

func TestUploadScratchNeverShrinks(t *testing.T) {
	e, _ := newTestEngine(t, 4, Size{16, 16}, Size{16, 16})
	src := make([]byte, 16*16)
	if err := e.Upload(SurfaceLuma, PlaneView{Data: src, Stride: 16}, false); err != nil {
		t.Fatal(err)
	}
	c := cap(e.scratch)
	if c < 16 {
		t.Fatalf("scratch capacity = %d, want >= 16", c)
	}
	if err := e.Reallocate(Size{6, 6}, Size{3, 3}); err != nil {
		t.Fatal(err)
	}
	if err := e.Upload(SurfaceLuma, PlaneView{Data: src, Stride: 6}, false); err != nil {
		t.Fatal(err)
	}
	if cap(e.scratch) < c {
		t.Errorf("scratch capacity shrank from %d to %d", c, cap(e.scratch))
	}
}

func TestUploadChromaSwap(t *testing.T) {
	size := Size{3, 2}
	e, _ := newTestEngine(t, 0, size, size)
	src := []byte{1, 2, 3, 4, 5, 6, 9, 7, 8, 9, 10, 11, 12, 9}
	if err := e.Upload(SurfaceChroma, PlaneView{Data: src, Stride: 7}, true); err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 1, 4, 3, 6, 5, 8, 7, 10, 9, 12, 11}
	if got := surfacePix(t, e, SurfaceChroma); !bytes.Equal(got, want) {
		t.Errorf("chroma = %v, want %v", got, want)
	}
}

func TestUploadSwapIgnoredForLuma(t *testing.T) {
	size := Size{4, 1}
	e, _ := newTestEngine(t, 0, size, size)
	src := []byte{1, 2, 3, 4}
	if err := e.Upload(SurfaceLuma, PlaneView{Data: src, Stride: 4}, true); err != nil {
		t.Fatal(err)
	}
	if got := surfacePix(t, e, SurfaceLuma); !bytes.Equal(got, src) {
		t.Errorf("luma = %v, want %v", got, src)
	}
}

func TestUploadShortPlane(t *testing.T) {
	e, _ := newTestEngine(t, 0, Size{8, 8}, Size{4, 4})
	err := e.Upload(SurfaceLuma, PlaneView{Data: make([]byte, 63), Stride: 8}, false)
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("Upload(short) = %v, want ErrGeometryMismatch", err)
	}
	if IsFatal(err) {
		t.Error("geometry mismatch reported as fatal")
	}
}

func TestUploadBeforeReallocate(t *testing.T) {
	e := NewUploadEngine(&MemoryAllocator{}, 0)
	if err := e.Upload(SurfaceLuma, PlaneView{Data: []byte{1}}, false); !errors.Is(err, ErrNoSurfaces) {
		t.Errorf("Upload() = %v, want ErrNoSurfaces", err)
	}
	if err := e.UploadPacked(PlaneView{Data: []byte{1, 2, 3}}, false); !errors.Is(err, ErrNoSurfaces) {
		t.Errorf("UploadPacked() = %v, want ErrNoSurfaces", err)
	}
}

func TestReallocateReplacesSurfaces(t *testing.T) {
	e, alloc := newTestEngine(t, 0, Size{8, 8}, Size{4, 4})
	old := e.Surface(SurfaceLuma)
	if err := e.Reallocate(Size{16, 4}, Size{16, 4}); err != nil {
		t.Fatal(err)
	}
	if e.Surface(SurfaceLuma) == old {
		t.Error("Reallocate kept the old luma surface")
	}
	if got := e.Surface(SurfaceChroma).Size(); got != (Size{16, 4}) {
		t.Errorf("chroma size = %s, want 16x4", got)
	}
	if got := e.Surface(SurfaceChroma).Channels(); got != 2 {
		t.Errorf("chroma channels = %d, want 2", got)
	}
	if alloc.Live != 2 {
		t.Errorf("live surfaces = %d, want 2", alloc.Live)
	}
	if got := e.Stats().Reallocations; got != 2 {
		t.Errorf("Reallocations = %d, want 2", got)
	}
}

func TestReallocateInvalid(t *testing.T) {
	e := NewUploadEngine(&MemoryAllocator{}, 0)
	err := e.Reallocate(Size{0, 8}, Size{0, 4})
	var se *SurfaceError
	if !errors.As(err, &se) {
		t.Errorf("Reallocate(0x8) = %v, want *SurfaceError", err)
	}
}

func TestUploadPacked(t *testing.T) {
	e, _ := newTestEngine(t, 2, Size{4, 2}, Size{2, 1})
	src := make([]byte, 24)
	for i := 0; i < 8; i++ {
		src[i*3], src[i*3+1], src[i*3+2] = byte(i), byte(100+i), byte(200+i)
	}
	if err := e.UploadPacked(PlaneView{Data: src, Stride: 12}, true); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0, 1, 2, 3, 4, 5, 6, 7}; !bytes.Equal(surfacePix(t, e, SurfaceLuma), want) {
		t.Errorf("luma = %v, want %v", surfacePix(t, e, SurfaceLuma), want)
	}
	if want := []byte{200, 100, 202, 102}; !bytes.Equal(surfacePix(t, e, SurfaceChroma), want) {
		t.Errorf("chroma = %v, want %v", surfacePix(t, e, SurfaceChroma), want)
	}
	if got := e.Stats().PackedFrames; got != 1 {
		t.Errorf("PackedFrames = %d, want 1", got)
	}
}

func BenchmarkUploadTiled4K(b *testing.B) {
	alloc := &MemoryAllocator{}
	e := NewUploadEngine(alloc, 2048)
	if err := e.Reallocate(Size{3840, 2160}, Size{1920, 1080}); err != nil {
		b.Fatal(err)
	}
	src := make([]byte, 3840*2160)
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.Upload(SurfaceLuma, PlaneView{Data: src, Stride: 3840}, false); err != nil {
			b.Fatal(err)
		}
	}
}
