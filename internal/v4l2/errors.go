package v4l2

import "errors"

var (
	// ErrNotMultiPlanar is returned by Open for devices without
	// multi-planar streaming capture.
	ErrNotMultiPlanar = errors.New("v4l2: device does not support multi-planar streaming capture")

	// ErrDeviceGone is returned by Wait when the device reports an error
	// condition without data, typically after unplugging.
	ErrDeviceGone = errors.New("v4l2: device reported an error condition")
)
