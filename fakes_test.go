package hdmiview

import (
	"errors"
	"time"
)

var errInjected = errors.New("injected failure")

// fakeDevice is an in-memory capture device. Enqueued buffers become
// ready for Dequeue in FIFO order.
type fakeDevice struct {
	format       FrameFormat
	formatErr    error
	setErr       error
	subscribeErr error
	streamErr    error
	waitErr      error

	planes   int
	planeLen int

	// mapFailAt fails the n-th Map call (1-based); zero never fails.
	mapFailAt int
	// enqueueFailAt fails the n-th Enqueue call (1-based); zero never fails.
	enqueueFailAt int

	events   []Event
	notReady int
	// bytesUsed overrides the payload reported for plane 0.
	bytesUsed int
	// fill writes frame content into a buffer before it is dequeued.
	fill func(index int, planes [][]byte)

	buffers  [][][]byte
	queue    []int
	maps     int
	unmaps   int
	live     map[*byte]bool
	enqueues int
	setCalls int
	sequence uint32

	streaming bool
	streamOns int
}

func newFakeDevice(f FrameFormat, planes int) *fakeDevice {
	n := f.LumaBytes() + f.ChromaBytes()
	if planes > 1 {
		n = max(f.LumaBytes(), f.ChromaBytes())
	}
	return &fakeDevice{format: f, planes: planes, planeLen: n, live: map[*byte]bool{}}
}

func (d *fakeDevice) Format() (FrameFormat, error) {
	if d.formatErr != nil {
		return FrameFormat{}, d.formatErr
	}
	return d.format, nil
}

func (d *fakeDevice) SetFormat(f FrameFormat) (FrameFormat, error) {
	d.setCalls++
	if d.setErr != nil {
		return FrameFormat{}, d.setErr
	}
	d.format = f
	return f, nil
}

func (d *fakeDevice) SubscribeSourceChange() error { return d.subscribeErr }

func (d *fakeDevice) NextEvent() (Event, bool, error) {
	if len(d.events) == 0 {
		return Event{}, false, nil
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true, nil
}

func (d *fakeDevice) RequestBuffers(count int) ([]BufferSpec, error) {
	specs := make([]BufferSpec, count)
	d.buffers = make([][][]byte, count)
	for i := range specs {
		specs[i].Index = i
		for j := 0; j < d.planes; j++ {
			specs[i].Planes = append(specs[i].Planes, PlaneSpec{
				Offset: uint32(i*d.planes+j) * 4096, Length: uint32(d.planeLen),
			})
		}
	}
	return specs, nil
}

func (d *fakeDevice) Map(p PlaneSpec) ([]byte, error) {
	d.maps++
	if d.mapFailAt != 0 && d.maps == d.mapFailAt {
		return nil, errInjected
	}
	b := make([]byte, p.Length)
	d.live[&b[0]] = true
	idx := int(p.Offset / 4096)
	d.buffers[idx/d.planes] = append(d.buffers[idx/d.planes], b)
	return b, nil
}

func (d *fakeDevice) Unmap(b []byte) error {
	if len(b) == 0 || !d.live[&b[0]] {
		return errors.New("unmap of unknown region")
	}
	delete(d.live, &b[0])
	d.unmaps++
	return nil
}

func (d *fakeDevice) Enqueue(index int) error {
	d.enqueues++
	if d.enqueueFailAt != 0 && d.enqueues == d.enqueueFailAt {
		return errInjected
	}
	d.queue = append(d.queue, index)
	return nil
}

func (d *fakeDevice) Dequeue() (Dequeued, error) {
	if d.notReady > 0 {
		d.notReady--
		return Dequeued{}, ErrNotReady
	}
	if len(d.queue) == 0 {
		return Dequeued{}, ErrNotReady
	}
	idx := d.queue[0]
	d.queue = d.queue[1:]
	if d.fill != nil {
		d.fill(idx, d.buffers[idx])
	}
	used := make([]int, len(d.buffers[idx]))
	for i, p := range d.buffers[idx] {
		used[i] = len(p)
	}
	if d.bytesUsed > 0 {
		used[0] = d.bytesUsed
	}
	d.sequence++
	return Dequeued{Index: idx, BytesUsed: used, Sequence: d.sequence}, nil
}

func (d *fakeDevice) StreamOn() error {
	d.streamOns++
	if d.streamErr != nil {
		return d.streamErr
	}
	d.streaming = true
	return nil
}

func (d *fakeDevice) StreamOff() error {
	d.streaming = false
	return nil
}

func (d *fakeDevice) Wait(time.Duration) (Readiness, error) {
	if d.waitErr != nil {
		return Readiness{}, d.waitErr
	}
	return Readiness{Frame: len(d.queue) > 0 && d.notReady == 0, Event: len(d.events) > 0}, nil
}

// fakeRenderer draws nothing and records what it was given.
type fakeRenderer struct {
	MemoryAllocator
	max int

	draws       int
	lastToggles Toggles
	lastLuma    Surface
	lastChroma  Surface
	drawErr     error
	createErr   error

	resized    []Size
	fullscreen int
}

func (r *fakeRenderer) CreateSurface(label string, size Size, channels int) (Surface, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.MemoryAllocator.CreateSurface(label, size, channels)
}

func (r *fakeRenderer) MaxSurfaceSize() int { return r.max }

func (r *fakeRenderer) Draw(luma, chroma Surface, t Toggles) error {
	if r.drawErr != nil {
		return r.drawErr
	}
	r.draws++
	r.lastLuma, r.lastChroma, r.lastToggles = luma, chroma, t
	return nil
}

func (r *fakeRenderer) ResizeDisplay(s Size) error {
	r.resized = append(r.resized, s)
	return nil
}

func (r *fakeRenderer) ToggleFullscreen() error {
	r.fullscreen++
	return nil
}

// countingRetargeter records Reallocate calls.
type countingRetargeter struct {
	calls  int
	luma   Size
	chroma Size
	err    error
}

func (c *countingRetargeter) Reallocate(luma, chroma Size) error {
	if c.err != nil {
		return c.err
	}
	c.calls++
	c.luma, c.chroma = luma, chroma
	return nil
}

// pattern fills b with a position-dependent byte sequence.
func pattern(b []byte, seed byte) {
	for i := range b {
		b[i] = byte(i*7) + seed
	}
}
