package hdmiview

import (
	"errors"
	"fmt"
)

// BufferState is the ownership state of a capture buffer.
type BufferState uint8

const (
	// BufferQueued means the driver owns the buffer.
	BufferQueued BufferState = iota
	// BufferOwned means the application owns the buffer.
	BufferOwned
)

func (s BufferState) String() string {
	if s == BufferOwned {
		return "owned"
	}
	return "queued"
}

// Plane is one mapped region of a capture buffer.
type Plane struct {
	Data []byte
}

// Buffer is a kernel-shared frame buffer. Its handle and mappings are
// fixed for the lifetime of the pool.
type Buffer struct {
	handle int
	planes []Plane
	state  BufferState

	bytesUsed []int
	sequence  uint32
}

// Handle returns the stable buffer index.
func (b *Buffer) Handle() int { return b.handle }

// Planes returns the mapped planes.
func (b *Buffer) Planes() []Plane { return b.planes }

// State returns the current ownership state.
func (b *Buffer) State() BufferState { return b.state }

// BytesUsed returns the payload size of plane i from the last dequeue.
func (b *Buffer) BytesUsed(i int) int {
	if i < 0 || i >= len(b.bytesUsed) {
		return 0
	}
	return b.bytesUsed[i]
}

// Sequence returns the driver frame sequence number of the last dequeue.
func (b *Buffer) Sequence() uint32 { return b.sequence }

// NewBuffer wraps plane data as an application-owned buffer. It is meant
// for feeding Resolve and the upload engine outside a pool.
func NewBuffer(handle int, planes ...[]byte) *Buffer {
	b := &Buffer{handle: handle, state: BufferOwned}
	for _, p := range planes {
		b.planes = append(b.planes, Plane{Data: p})
		b.bytesUsed = append(b.bytesUsed, len(p))
	}
	return b
}

// BufferPool owns the memory-mapped capture buffers of one device.
// It is not safe for concurrent use.
type BufferPool struct {
	dev     Device
	buffers []*Buffer
	owned   *Buffer
	closed  bool
}

// NewBufferPool negotiates count buffers with dev, maps every plane and
// queues every buffer with the driver. On failure every mapping made so
// far is released and a *DeviceError is returned.
func NewBufferPool(dev Device, count int) (*BufferPool, error) {
	if count <= 0 {
		return nil, deviceErr("request buffers", fmt.Errorf("invalid buffer count %d", count))
	}
	specs, err := dev.RequestBuffers(count)
	if err != nil {
		return nil, deviceErr("request buffers", err)
	}
	if len(specs) == 0 {
		return nil, deviceErr("request buffers", ErrNoBuffers)
	}

	p := &BufferPool{dev: dev, buffers: make([]*Buffer, 0, len(specs))}
	for i, spec := range specs {
		b := &Buffer{handle: i, planes: make([]Plane, 0, len(spec.Planes))}
		p.buffers = append(p.buffers, b)
		for j, ps := range spec.Planes {
			data, err := dev.Map(ps)
			if err != nil {
				p.unmapAll()
				return nil, deviceErr(fmt.Sprintf("map buffer %d plane %d", i, j), err)
			}
			b.planes = append(b.planes, Plane{Data: data})
		}
		if len(b.planes) == 0 {
			p.unmapAll()
			return nil, deviceErr("query buffer", fmt.Errorf("buffer %d has no planes", i))
		}
	}

	for _, b := range p.buffers {
		if err := dev.Enqueue(b.handle); err != nil {
			p.unmapAll()
			return nil, deviceErr(fmt.Sprintf("queue buffer %d", b.handle), err)
		}
		b.state = BufferQueued
	}

	Logger().Debug("hdmiview: buffer pool ready",
		"requested", count, "granted", len(p.buffers), "planes", len(p.buffers[0].planes))
	return p, nil
}

// Len returns the number of buffers. It never changes after creation.
func (p *BufferPool) Len() int { return len(p.buffers) }

// Buffer returns the buffer with the given handle.
func (p *BufferPool) Buffer(handle int) *Buffer {
	if handle < 0 || handle >= len(p.buffers) {
		return nil
	}
	return p.buffers[handle]
}

// Acquire dequeues the next completed buffer and transfers it to the
// application. It returns ErrNotReady when nothing is complete; callers
// retry on the next iteration.
func (p *BufferPool) Acquire() (*Buffer, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.owned != nil {
		return nil, ErrBufferOutstanding
	}
	d, err := p.dev.Dequeue()
	if errors.Is(err, ErrNotReady) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, deviceErr("dequeue", err)
	}
	b := p.Buffer(d.Index)
	if b == nil {
		return nil, deviceErr("dequeue", fmt.Errorf("driver returned unknown buffer %d", d.Index))
	}
	if b.state != BufferQueued {
		return nil, deviceErr("dequeue", fmt.Errorf("driver returned buffer %d twice", d.Index))
	}
	b.state = BufferOwned
	b.bytesUsed = append(b.bytesUsed[:0], d.BytesUsed...)
	b.sequence = d.Sequence
	p.owned = b
	return b, nil
}

// Release hands an acquired buffer back to the driver. A failed requeue
// means capture is out of sync and is reported as a *DeviceError.
func (p *BufferPool) Release(b *Buffer) error {
	if p.closed {
		return ErrPoolClosed
	}
	if b == nil || p.owned != b {
		return ErrBufferNotOwned
	}
	if err := p.dev.Enqueue(b.handle); err != nil {
		return deviceErr(fmt.Sprintf("requeue buffer %d", b.handle), err)
	}
	b.state = BufferQueued
	p.owned = nil
	return nil
}

// Close unmaps every plane of every buffer. It is safe to call twice.
func (p *BufferPool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.owned = nil
	return p.unmapAll()
}

func (p *BufferPool) unmapAll() error {
	var errs []error
	for _, b := range p.buffers {
		for j := range b.planes {
			if b.planes[j].Data == nil {
				continue
			}
			if err := p.dev.Unmap(b.planes[j].Data); err != nil {
				errs = append(errs, fmt.Errorf("unmap buffer %d plane %d: %w", b.handle, j, err))
			}
			b.planes[j].Data = nil
		}
	}
	if err := errors.Join(errs...); err != nil {
		Logger().Warn("hdmiview: unmap failed", "err", err)
		return deviceErr("unmap", err)
	}
	return nil
}
