//go:build linux && (amd64 || arm64)

package v4l2

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"unsafe"

	"github.com/gogpu/hdmiview"
)

func TestIoctlNumbers(t *testing.T) {
	// Values from <linux/videodev2.h> on 64-bit architectures.
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"VIDIOC_QUERYCAP", vidiocQuerycap, 0x80685600},
		{"VIDIOC_G_FMT", vidiocGFmt, 0xc0d05604},
		{"VIDIOC_S_FMT", vidiocSFmt, 0xc0d05605},
		{"VIDIOC_REQBUFS", vidiocReqbufs, 0xc0145608},
		{"VIDIOC_QUERYBUF", vidiocQuerybuf, 0xc0585609},
		{"VIDIOC_QBUF", vidiocQbuf, 0xc058560f},
		{"VIDIOC_DQBUF", vidiocDqbuf, 0xc0585611},
		{"VIDIOC_STREAMON", vidiocStreamon, 0x40045612},
		{"VIDIOC_STREAMOFF", vidiocStreamoff, 0x40045613},
		{"VIDIOC_DQEVENT", vidiocDqevent, 0x80885659},
		{"VIDIOC_SUBSCRIBE_EVENT", vidiocSubscribeEvent, 0x4020565a},
		{"VIDIOC_UNSUBSCRIBE_EVENT", vidiocUnsubscribeEvent, 0x4020565b},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, tt.got, tt.want)
		}
	}
}

func TestFrameFormatFromPixFormat(t *testing.T) {
	var f v4l2Format
	f.typ = bufTypeVideoCaptureMplane
	pix := f.pixMP()
	pix.width = 1920
	pix.height = 1080
	pix.pixelformat = uint32(hdmiview.FourCCNV21)
	pix.numPlanes = 1
	pix.planeFmt[0].bytesperline = 2048

	// The union starts 8 bytes into the format.
	if got := *(*uint32)(unsafe.Pointer(&f.fmt[0])); got != 1920 {
		t.Fatalf("width at union start = %d, want 1920", got)
	}

	got := frameFormat(pix)
	want := hdmiview.FrameFormat{
		Width: 1920, Height: 1080, Layout: hdmiview.SemiPlanar420,
		FourCC: hdmiview.FourCCNV21, BytesPerLine: 2048,
	}
	if got != want {
		t.Errorf("frameFormat() = %+v, want %+v", got, want)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "video99"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) = %v, want not-exist error", err)
	}
}

func TestOpenNonDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open(regular file) succeeded")
	}
}

func TestPlaneBufferPointsIntoDevice(t *testing.T) {
	f, ok := reflect.TypeOf(v4l2Buffer{}).FieldByName("m")
	if !ok || f.Type.Kind() != reflect.UnsafePointer {
		t.Fatalf("v4l2Buffer.m = %v, want unsafe.Pointer", f.Type)
	}

	d := &Device{}
	d.planes[3].bytesused = 7
	buf := d.planeBuffer(2, 4)
	if buf.index != 2 || buf.length != 4 || buf.typ != bufTypeVideoCaptureMplane || buf.memory != memoryMmap {
		t.Errorf("planeBuffer(2, 4) = %+v", buf)
	}
	if buf.m != unsafe.Pointer(&d.planes[0]) {
		t.Fatal("m does not point at the device plane array")
	}
	if d.planes[3].bytesused != 0 {
		t.Errorf("stale plane record bytesused = %d, want 0", d.planes[3].bytesused)
	}

	// Write through m the way the driver does on DQBUF.
	(*[videoMaxPlanes]v4l2Plane)(buf.m)[1].bytesused = 99
	if got := d.planes[1].bytesused; got != 99 {
		t.Errorf("planes[1].bytesused = %d, want 99", got)
	}
}
