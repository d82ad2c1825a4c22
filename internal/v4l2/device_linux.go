// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux && (amd64 || arm64)

package v4l2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/gogpu/hdmiview"
	"golang.org/x/sys/unix"
)

// Device is a V4L2 multi-planar capture device using MMAP streaming I/O.
// It implements hdmiview.Device and is not safe for concurrent use.
type Device struct {
	fd   int
	path string
	caps Capability

	// bufPlanes is the plane count of the negotiated buffers.
	bufPlanes int

	// planes receives plane records for QUERYBUF, QBUF and DQBUF.
	planes [videoMaxPlanes]v4l2Plane
}

var _ hdmiview.Device = (*Device)(nil)

// Open opens a capture device in non-blocking mode and checks that it
// supports multi-planar streaming capture.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("v4l2: open %s: %w", path, err)
	}
	d := &Device{fd: fd, path: path}

	caps, err := d.queryCap()
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if !caps.MultiPlanarCapture() || !caps.Streaming() {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("v4l2: %s (%s): %w", path, caps.Card, ErrNotMultiPlanar)
	}
	d.caps = caps
	slogger().Info("v4l2: device opened", "path", path, "driver", caps.Driver, "card", caps.Card)
	return d, nil
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Capability returns what VIDIOC_QUERYCAP reported at open.
func (d *Device) Capability() Capability { return d.caps }

// SetLogger installs the logger used by this package.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Close closes the device node.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	if err != nil {
		return fmt.Errorf("v4l2: close: %w", err)
	}
	return nil
}

// ioctl issues a request, retrying when interrupted by a signal.
func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}

func (d *Device) queryCap() (Capability, error) {
	var c v4l2Capability
	if err := ioctl(d.fd, vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
		return Capability{}, fmt.Errorf("v4l2: VIDIOC_QUERYCAP: %w", err)
	}
	caps := c.capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.deviceCaps
	}
	return Capability{
		Driver:  cString(c.driver[:]),
		Card:    cString(c.card[:]),
		BusInfo: cString(c.busInfo[:]),
		Version: c.version,
		Caps:    caps,
	}, nil
}

func (d *Device) getFormat() (v4l2Format, error) {
	f := v4l2Format{typ: bufTypeVideoCaptureMplane}
	if err := ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return f, fmt.Errorf("v4l2: VIDIOC_G_FMT: %w", err)
	}
	return f, nil
}

// Format implements hdmiview.Device.
func (d *Device) Format() (hdmiview.FrameFormat, error) {
	f, err := d.getFormat()
	if err != nil {
		return hdmiview.FrameFormat{}, err
	}
	return frameFormat(f.pixMP()), nil
}

// SetFormat requests a single-plane layout of f's size and pixel format
// and returns what the driver adopted.
func (d *Device) SetFormat(want hdmiview.FrameFormat) (hdmiview.FrameFormat, error) {
	f, err := d.getFormat()
	if err != nil {
		f = v4l2Format{typ: bufTypeVideoCaptureMplane}
	}
	pix := f.pixMP()
	pix.width = want.Width
	pix.height = want.Height
	pix.pixelformat = uint32(want.FourCC)
	pix.field = fieldNone
	pix.numPlanes = 1
	pix.planeFmt[0].bytesperline = want.BytesPerLine

	if err := ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return hdmiview.FrameFormat{}, fmt.Errorf("v4l2: VIDIOC_S_FMT %s: %w", want.FourCC, err)
	}
	got := frameFormat(pix)
	slogger().Debug("v4l2: format set", "want", want.String(), "got", got.String(), "planes", pix.numPlanes)
	return got, nil
}

// frameFormat converts the driver's multi-planar format.
func frameFormat(pix *v4l2PixFormatMplane) hdmiview.FrameFormat {
	code := hdmiview.FourCC(pix.pixelformat)
	return hdmiview.FrameFormat{
		Width:        pix.width,
		Height:       pix.height,
		Layout:       code.Layout(),
		FourCC:       code,
		BytesPerLine: pix.planeFmt[0].bytesperline,
	}
}

// SubscribeSourceChange implements hdmiview.Device.
func (d *Device) SubscribeSourceChange() error {
	sub := v4l2EventSubscription{typ: eventSourceChange}
	if err := ioctl(d.fd, vidiocSubscribeEvent, unsafe.Pointer(&sub)); err != nil {
		return fmt.Errorf("v4l2: VIDIOC_SUBSCRIBE_EVENT: %w", err)
	}
	return nil
}

// UnsubscribeSourceChange stops source-change notifications.
func (d *Device) UnsubscribeSourceChange() error {
	sub := v4l2EventSubscription{typ: eventSourceChange}
	if err := ioctl(d.fd, vidiocUnsubscribeEvent, unsafe.Pointer(&sub)); err != nil {
		return fmt.Errorf("v4l2: VIDIOC_UNSUBSCRIBE_EVENT: %w", err)
	}
	return nil
}

// NextEvent implements hdmiview.Device.
func (d *Device) NextEvent() (hdmiview.Event, bool, error) {
	var ev v4l2Event
	err := ioctl(d.fd, vidiocDqevent, unsafe.Pointer(&ev))
	if errors.Is(err, unix.ENOENT) {
		return hdmiview.Event{}, false, nil
	}
	if err != nil {
		return hdmiview.Event{}, false, fmt.Errorf("v4l2: VIDIOC_DQEVENT: %w", err)
	}
	out := hdmiview.Event{Type: hdmiview.EventOther}
	if ev.typ == eventSourceChange {
		out.Type = hdmiview.EventSourceChange
		out.Changes = binary.LittleEndian.Uint32(ev.u[:4])
	}
	return out, true, nil
}

// RequestBuffers implements hdmiview.Device.
func (d *Device) RequestBuffers(count int) ([]hdmiview.BufferSpec, error) {
	req := v4l2RequestBuffers{
		count:  uint32(count), //nolint:gosec // count is a small positive buffer count
		typ:    bufTypeVideoCaptureMplane,
		memory: memoryMmap,
	}
	if err := ioctl(d.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("v4l2: VIDIOC_REQBUFS: %w", err)
	}
	if int(req.count) != count {
		slogger().Warn("v4l2: driver adjusted buffer count", "requested", count, "granted", req.count)
	}

	specs := make([]hdmiview.BufferSpec, 0, req.count)
	for i := uint32(0); i < req.count; i++ {
		buf := d.planeBuffer(i, videoMaxPlanes)
		err := ioctl(d.fd, vidiocQuerybuf, unsafe.Pointer(buf))
		if err != nil {
			return nil, fmt.Errorf("v4l2: VIDIOC_QUERYBUF %d: %w", i, err)
		}

		spec := hdmiview.BufferSpec{Index: int(i)}
		for j := uint32(0); j < buf.length && j < videoMaxPlanes; j++ {
			spec.Planes = append(spec.Planes, hdmiview.PlaneSpec{
				Offset: d.planes[j].memOffset,
				Length: d.planes[j].length,
			})
		}
		specs = append(specs, spec)
		d.bufPlanes = len(spec.Planes)
	}
	return specs, nil
}

// Map implements hdmiview.Device.
func (d *Device) Map(p hdmiview.PlaneSpec) ([]byte, error) {
	b, err := unix.Mmap(d.fd, int64(p.Offset), int(p.Length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("v4l2: mmap offset %#x length %d: %w", p.Offset, p.Length, err)
	}
	return b, nil
}

// Unmap implements hdmiview.Device.
func (d *Device) Unmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("v4l2: munmap: %w", err)
	}
	return nil
}

// Enqueue implements hdmiview.Device.
func (d *Device) Enqueue(index int) error {
	//nolint:gosec // buffer indices are small; plane count is at most videoMaxPlanes
	buf := d.planeBuffer(uint32(index), uint32(max(d.bufPlanes, 1)))
	err := ioctl(d.fd, vidiocQbuf, unsafe.Pointer(buf))
	if err != nil {
		return fmt.Errorf("v4l2: VIDIOC_QBUF %d: %w", index, err)
	}
	return nil
}

// Dequeue implements hdmiview.Device. It returns hdmiview.ErrNotReady
// when no buffer is complete.
func (d *Device) Dequeue() (hdmiview.Dequeued, error) {
	buf := d.planeBuffer(0, videoMaxPlanes)
	err := ioctl(d.fd, vidiocDqbuf, unsafe.Pointer(buf))
	if errors.Is(err, unix.EAGAIN) {
		return hdmiview.Dequeued{}, hdmiview.ErrNotReady
	}
	if err != nil {
		return hdmiview.Dequeued{}, fmt.Errorf("v4l2: VIDIOC_DQBUF: %w", err)
	}

	n := min(int(buf.length), videoMaxPlanes)
	out := hdmiview.Dequeued{
		Index:     int(buf.index),
		BytesUsed: make([]int, n),
		Sequence:  buf.sequence,
	}
	for j := 0; j < n; j++ {
		out.BytesUsed[j] = int(d.planes[j].bytesused)
	}
	return out, nil
}

// planeBuffer returns an MMAP buffer descriptor whose plane array is
// d.planes, cleared. The kernel writes plane records through m, so m is
// a pointer into the Device and never a bare address.
func (d *Device) planeBuffer(index, length uint32) *v4l2Buffer {
	d.planes = [videoMaxPlanes]v4l2Plane{}
	return &v4l2Buffer{
		index:  index,
		typ:    bufTypeVideoCaptureMplane,
		memory: memoryMmap,
		m:      unsafe.Pointer(&d.planes[0]),
		length: length,
	}
}

func (d *Device) stream(req uintptr, name string) error {
	typ := uint32(bufTypeVideoCaptureMplane)
	if err := ioctl(d.fd, req, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("v4l2: %s: %w", name, err)
	}
	return nil
}

// StreamOn implements hdmiview.Device.
func (d *Device) StreamOn() error { return d.stream(vidiocStreamon, "VIDIOC_STREAMON") }

// StreamOff implements hdmiview.Device.
func (d *Device) StreamOff() error { return d.stream(vidiocStreamoff, "VIDIOC_STREAMOFF") }

// Wait implements hdmiview.Device. Frames are signalled by POLLIN and
// notifications by POLLPRI.
func (d *Device) Wait(timeout time.Duration) (hdmiview.Readiness, error) {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN | unix.POLLPRI}} //nolint:gosec // fd fits int32
	for {
		n, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return hdmiview.Readiness{}, fmt.Errorf("v4l2: poll: %w", err)
		}
		if n == 0 {
			return hdmiview.Readiness{}, nil
		}
		break
	}
	re := fds[0].Revents
	if re&(unix.POLLERR|unix.POLLNVAL) != 0 && re&(unix.POLLIN|unix.POLLPRI) == 0 {
		return hdmiview.Readiness{}, fmt.Errorf("v4l2: poll: %w", ErrDeviceGone)
	}
	return hdmiview.Readiness{
		Frame: re&unix.POLLIN != 0,
		Event: re&unix.POLLPRI != 0,
	}, nil
}
