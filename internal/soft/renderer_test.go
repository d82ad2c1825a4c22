package soft

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/hdmiview"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func near(a, b uint8) bool { return abs(int(a)-int(b)) <= 2 }

func TestCoefficients(t *testing.T) {
	tests := []struct {
		name    string
		m       hdmiview.ColorMatrix
		r       hdmiview.ColorRange
		y, u, v uint8
		want    [3]uint8
	}{
		{"limited black", hdmiview.MatrixBT709, hdmiview.RangeLimited, 16, 128, 128, [3]uint8{0, 0, 0}},
		{"limited white", hdmiview.MatrixBT709, hdmiview.RangeLimited, 235, 128, 128, [3]uint8{255, 255, 255}},
		{"limited below black clamps", hdmiview.MatrixBT709, hdmiview.RangeLimited, 4, 128, 128, [3]uint8{0, 0, 0}},
		{"full black", hdmiview.MatrixBT709, hdmiview.RangeFull, 0, 128, 128, [3]uint8{0, 0, 0}},
		{"full white", hdmiview.MatrixBT601, hdmiview.RangeFull, 255, 128, 128, [3]uint8{255, 255, 255}},
		{"full gray", hdmiview.MatrixBT601, hdmiview.RangeFull, 128, 128, 128, [3]uint8{128, 128, 128}},
		{"bt709 limited red", hdmiview.MatrixBT709, hdmiview.RangeLimited, 63, 102, 240, [3]uint8{255, 1, 0}},
		{"bt601 limited red", hdmiview.MatrixBT601, hdmiview.RangeLimited, 81, 90, 240, [3]uint8{255, 0, 0}},
		{"bt601 full blue", hdmiview.MatrixBT601, hdmiview.RangeFull, 29, 255, 107, [3]uint8{0, 0, 254}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := coefficientsFor(tt.m, tt.r).rgb(tt.y, tt.u, tt.v)
			if !near(r, tt.want[0]) || !near(g, tt.want[1]) || !near(b, tt.want[2]) {
				t.Errorf("rgb(%d,%d,%d) = (%d,%d,%d), want ~%v", tt.y, tt.u, tt.v, r, g, b, tt.want)
			}
		})
	}
}

// fillFrame writes a uniform Y and a uniform (c0, c1) chroma pair.
func fillFrame(t *testing.T, r *Renderer, size hdmiview.Size, chroma hdmiview.Size, y, c0, c1 uint8) (hdmiview.Surface, hdmiview.Surface) {
	t.Helper()
	ls, err := r.CreateSurface("luma", size, 1)
	if err != nil {
		t.Fatalf("CreateSurface(luma) failed: %v", err)
	}
	cs, err := r.CreateSurface("chroma", chroma, 2)
	if err != nil {
		t.Fatalf("CreateSurface(chroma) failed: %v", err)
	}
	l := ls.(*hdmiview.MemorySurface)
	for i := range l.Pix {
		l.Pix[i] = y
	}
	c := cs.(*hdmiview.MemorySurface)
	for i := 0; i < len(c.Pix); i += 2 {
		c.Pix[i], c.Pix[i+1] = c0, c1
	}
	return ls, cs
}

func newRenderer(t *testing.T, display hdmiview.Size, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(display, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestDrawSwap(t *testing.T) {
	size := hdmiview.Size{Width: 64, Height: 48}
	half := hdmiview.Size{Width: 32, Height: 24}

	// (U=102, V=240) is red; swapped it reads as (U=240, V=102).
	tests := []struct {
		name  string
		swap  bool
		check func(r, g, b uint8) bool
	}{
		{"unswapped red", false, func(r, g, b uint8) bool { return r > 240 && g < 10 && b < 10 }},
		{"swapped", true, func(r, g, b uint8) bool { return b > 200 && r < 40 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRenderer(t, size, WithWorkers(3))
			luma, chroma := fillFrame(t, r, size, half, 63, 102, 240)
			if err := r.Draw(luma, chroma, hdmiview.Toggles{Swap: tt.swap}); err != nil {
				t.Fatalf("Draw failed: %v", err)
			}
			img, err := r.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			for _, p := range [][2]int{{0, 0}, {63, 47}, {31, 20}} {
				c := img.RGBAAt(p[0], p[1])
				if !tt.check(c.R, c.G, c.B) || c.A != 0xff {
					t.Errorf("pixel %v = %v", p, c)
				}
			}
		})
	}
}

func TestDrawChromaPerRow(t *testing.T) {
	size := hdmiview.Size{Width: 4, Height: 4}
	r := newRenderer(t, size)
	luma, chroma := fillFrame(t, r, size, hdmiview.Size{Width: 2, Height: 2}, 128, 128, 128)

	// Bottom chroma row red-shifted; 4:2:0 maps luma rows 2-3 to it.
	c := chroma.(*hdmiview.MemorySurface)
	for x := 0; x < 2; x++ {
		c.Pix[c.Stride()+x*2+1] = 240
	}
	if err := r.Draw(luma, chroma, hdmiview.Toggles{Range: hdmiview.RangeFull}); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	img, _ := r.Snapshot()
	for y := 0; y < 4; y++ {
		px := img.RGBAAt(3, y)
		red := px.R > px.B+50
		if want := y >= 2; red != want {
			t.Errorf("row %d red = %v, want %v (pixel %v)", y, red, want, px)
		}
	}
}

func TestDrawScalesToDisplay(t *testing.T) {
	r := newRenderer(t, hdmiview.Size{Width: 20, Height: 10})
	size := hdmiview.Size{Width: 40, Height: 30}
	luma, chroma := fillFrame(t, r, size, hdmiview.Size{Width: 40, Height: 30}, 235, 128, 128)
	if err := r.Draw(luma, chroma, hdmiview.Toggles{}); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Fatalf("Snapshot bounds = %v, want 20x10", b)
	}
	if c := img.RGBAAt(10, 5); !near(c.R, 255) || !near(c.G, 255) || !near(c.B, 255) {
		t.Errorf("center = %v, want white", c)
	}

	if err := r.ResizeDisplay(size); err != nil {
		t.Fatalf("ResizeDisplay failed: %v", err)
	}
	if _, err := r.Snapshot(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Snapshot after resize error = %v, want ErrNoFrame", err)
	}
	if err := r.Draw(luma, chroma, hdmiview.Toggles{}); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	img, _ = r.Snapshot()
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("Snapshot bounds after resize = %v, want 40x30", b)
	}
	if got := r.Frames(); got != 2 {
		t.Errorf("Frames() = %d, want 2", got)
	}
}

func TestDrawRejectsForeignSurfaces(t *testing.T) {
	r := newRenderer(t, hdmiview.Size{Width: 8, Height: 8})
	luma, chroma := fillFrame(t, r, hdmiview.Size{Width: 8, Height: 8}, hdmiview.Size{Width: 4, Height: 4}, 16, 128, 128)

	if err := r.Draw(chroma, luma, hdmiview.Toggles{}); !errors.Is(err, ErrForeignSurface) {
		t.Errorf("Draw(swapped planes) error = %v, want ErrForeignSurface", err)
	}
	if err := r.Draw(nil, chroma, hdmiview.Toggles{}); !errors.Is(err, ErrForeignSurface) {
		t.Errorf("Draw(nil) error = %v, want ErrForeignSurface", err)
	}
}

func TestSurfaceLifecycle(t *testing.T) {
	r := newRenderer(t, hdmiview.Size{Width: 8, Height: 8}, WithMaxSurfaceSize(16))
	if got := r.MaxSurfaceSize(); got != 16 {
		t.Errorf("MaxSurfaceSize() = %d, want 16", got)
	}
	s, err := r.CreateSurface("y", hdmiview.Size{Width: 16, Height: 16}, 1)
	if err != nil {
		t.Fatalf("CreateSurface failed: %v", err)
	}
	if _, err := r.CreateSurface("big", hdmiview.Size{Width: 17, Height: 1}, 1); !errors.Is(err, hdmiview.ErrInvalidDimensions) {
		t.Errorf("CreateSurface(17x1) error = %v, want ErrInvalidDimensions", err)
	}
	if got := r.LiveSurfaces(); got != 1 {
		t.Errorf("LiveSurfaces() = %d, want 1", got)
	}
	r.DestroySurface(s)
	if got := r.LiveSurfaces(); got != 0 {
		t.Errorf("LiveSurfaces() after destroy = %d, want 0", got)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := r.CreateSurface("late", hdmiview.Size{Width: 1, Height: 1}, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateSurface after Close error = %v, want ErrClosed", err)
	}
}

func TestSavePNG(t *testing.T) {
	r := newRenderer(t, hdmiview.Size{Width: 6, Height: 4})
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := r.SavePNG(path); !errors.Is(err, ErrNoFrame) {
		t.Errorf("SavePNG before draw error = %v, want ErrNoFrame", err)
	}

	luma, chroma := fillFrame(t, r, hdmiview.Size{Width: 6, Height: 4}, hdmiview.Size{Width: 3, Height: 2}, 16, 128, 128)
	if err := r.Draw(luma, chroma, hdmiview.Toggles{}); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if err := r.SavePNG(path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Errorf("decoded bounds = %v, want 6x4", b)
	}
}

func TestNewInvalidDisplay(t *testing.T) {
	if _, err := New(hdmiview.Size{Width: 0, Height: 10}); !errors.Is(err, hdmiview.ErrInvalidDimensions) {
		t.Errorf("New(0x10) error = %v, want ErrInvalidDimensions", err)
	}
}

func BenchmarkDraw1080p(b *testing.B) {
	size := hdmiview.Size{Width: 1920, Height: 1080}
	r, err := New(size)
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()
	luma, _ := r.CreateSurface("y", size, 1)
	chroma, _ := r.CreateSurface("uv", hdmiview.Size{Width: 960, Height: 540}, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Draw(luma, chroma, hdmiview.Toggles{}); err != nil {
			b.Fatal(err)
		}
	}
}
