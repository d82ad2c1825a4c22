package hdmiview

import (
	"errors"
	"fmt"
)

// Pipeline errors.
var (
	// ErrNotReady is returned by a non-blocking dequeue when no frame is
	// complete yet. It is a normal empty result, not a device fault.
	ErrNotReady = errors.New("hdmiview: no buffer ready")

	// ErrBufferOutstanding is returned by Acquire while the application
	// still owns a previously acquired buffer.
	ErrBufferOutstanding = errors.New("hdmiview: a buffer is already owned by the application")

	// ErrBufferNotOwned is returned when releasing a buffer that was not
	// acquired from the pool.
	ErrBufferNotOwned = errors.New("hdmiview: buffer is not owned by the application")

	// ErrPoolClosed is returned when using a pool after Close.
	ErrPoolClosed = errors.New("hdmiview: buffer pool is closed")

	// ErrNoBuffers is returned when the device grants zero buffers.
	ErrNoBuffers = errors.New("hdmiview: device granted no buffers")

	// ErrGeometryMismatch is returned when a plane holds fewer bytes than
	// the adopted format requires. The pipeline skips such frames.
	ErrGeometryMismatch = errors.New("hdmiview: plane smaller than frame geometry")

	// ErrNoSurfaces is returned when uploading before Reallocate.
	ErrNoSurfaces = errors.New("hdmiview: surfaces not allocated")

	// ErrInvalidDimensions is returned for zero or negative sizes.
	ErrInvalidDimensions = errors.New("hdmiview: invalid dimensions")

	// ErrUnsupported is returned by device bindings on platforms without
	// capture support.
	ErrUnsupported = errors.New("hdmiview: capture not supported on this platform")
)

// DeviceError reports a failed capture device operation: format
// negotiation, buffer request, memory mapping, queue or dequeue.
// Device errors end the pipeline.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("hdmiview: device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// SurfaceError reports a failed GPU resource operation such as surface
// creation or shader compilation.
type SurfaceError struct {
	Op  string
	Err error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("hdmiview: surface %s: %v", e.Op, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

func deviceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}

func surfaceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SurfaceError
	if errors.As(err, &se) {
		return err
	}
	return &SurfaceError{Op: op, Err: err}
}

// IsFatal reports whether err must stop the capture loop. Not-ready and
// geometry mismatches are recovered locally; everything else is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotReady) && !errors.Is(err, ErrGeometryMismatch)
}
