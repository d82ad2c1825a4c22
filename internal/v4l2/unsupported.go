//go:build !linux || !(amd64 || arm64)

package v4l2

import (
	"fmt"
	"runtime"

	"github.com/gogpu/hdmiview"
)

// Device is unavailable on this platform.
type Device struct {
	hdmiview.Device
}

// Open always fails on this platform.
func Open(path string) (*Device, error) {
	return nil, fmt.Errorf("v4l2: open %s on %s/%s: %w", path, runtime.GOOS, runtime.GOARCH, hdmiview.ErrUnsupported)
}

// Path returns an empty string.
func (d *Device) Path() string { return "" }

// Capability returns an empty capability.
func (d *Device) Capability() Capability { return Capability{} }

// Close does nothing.
func (d *Device) Close() error { return nil }
