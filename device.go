package hdmiview

import "time"

// PlaneSpec describes one mappable plane of a driver buffer.
type PlaneSpec struct {
	Offset uint32
	Length uint32
}

// BufferSpec describes one driver buffer as granted by RequestBuffers.
type BufferSpec struct {
	Index  int
	Planes []PlaneSpec
}

// Dequeued is a completed buffer returned by Device.Dequeue.
type Dequeued struct {
	Index int

	// BytesUsed holds the driver-reported payload per plane.
	BytesUsed []int

	Sequence uint32
}

// EventType identifies a device notification.
type EventType uint32

const (
	EventOther EventType = iota
	// EventSourceChange signals that the input signal's resolution or
	// format may have changed.
	EventSourceChange
)

// Event is a dequeued device notification.
type Event struct {
	Type    EventType
	Changes uint32
}

// Readiness is the result of a bounded wait on the device.
type Readiness struct {
	// Frame is set when a buffer can be dequeued.
	Frame bool
	// Event is set when notifications are pending.
	Event bool
}

// Device is a memory-mapped multi-planar capture device.
//
// Implementations retry interrupted system calls internally. Dequeue
// returns ErrNotReady when no buffer is complete; NextEvent reports
// false when no notification is pending.
type Device interface {
	// Format queries the current capture format.
	Format() (FrameFormat, error)

	// SetFormat requests a format and returns what the driver adopted.
	SetFormat(f FrameFormat) (FrameFormat, error)

	// SubscribeSourceChange enables source-change notifications.
	SubscribeSourceChange() error

	// NextEvent dequeues one pending notification.
	NextEvent() (Event, bool, error)

	// RequestBuffers negotiates count buffers and describes their planes.
	// The driver may grant a different count.
	RequestBuffers(count int) ([]BufferSpec, error)

	// Map maps one plane into memory.
	Map(p PlaneSpec) ([]byte, error)

	// Unmap releases a mapping returned by Map.
	Unmap(b []byte) error

	// Enqueue hands a buffer to the driver.
	Enqueue(index int) error

	// Dequeue takes the next completed buffer without blocking.
	Dequeue() (Dequeued, error)

	StreamOn() error
	StreamOff() error

	// Wait blocks until a frame or a notification is ready, or timeout.
	Wait(timeout time.Duration) (Readiness, error)
}
