package v4l2

import (
	"fmt"
	"strings"
)

// Capability describes a V4L2 device as reported by VIDIOC_QUERYCAP.
type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	Version uint32

	// Caps are the device capabilities (device_caps when reported,
	// otherwise the physical device capabilities).
	Caps uint32
}

// VersionString formats the kernel version triplet.
func (c Capability) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", c.Version>>16, (c.Version>>8)&0xff, c.Version&0xff)
}

// MultiPlanarCapture reports whether the device captures through the
// multi-planar API.
func (c Capability) MultiPlanarCapture() bool { return c.Caps&0x00001000 != 0 }

// Streaming reports whether the device supports streaming I/O.
func (c Capability) Streaming() bool { return c.Caps&0x04000000 != 0 }

// cString converts a NUL-terminated byte array.
func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
