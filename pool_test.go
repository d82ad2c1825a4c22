package hdmiview

import (
	"errors"
	"testing"
)

func TestBufferPoolInitialize(t *testing.T) {
	for _, planes := range []int{1, 2} {
		dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), planes)
		p, err := NewBufferPool(dev, 4)
		if err != nil {
			t.Fatalf("planes=%d: NewBufferPool() = %v", planes, err)
		}
		if p.Len() != 4 {
			t.Errorf("Len() = %d, want 4", p.Len())
		}
		if dev.maps != 4*planes {
			t.Errorf("maps = %d, want %d", dev.maps, 4*planes)
		}
		if len(dev.queue) != 4 {
			t.Errorf("queued = %d, want 4", len(dev.queue))
		}
		for i := 0; i < p.Len(); i++ {
			b := p.Buffer(i)
			if b.Handle() != i || b.State() != BufferQueued || len(b.Planes()) != planes {
				t.Errorf("buffer %d = handle %d state %v planes %d", i, b.Handle(), b.State(), len(b.Planes()))
			}
		}
		if err := p.Close(); err != nil {
			t.Fatal(err)
		}
		if dev.unmaps != dev.maps || len(dev.live) != 0 {
			t.Errorf("unmaps = %d, maps = %d, live = %d", dev.unmaps, dev.maps, len(dev.live))
		}
	}
}

func TestBufferPoolInitializeFailureUnmaps(t *testing.T) {
	tests := []struct {
		name      string
		mapFail   int
		queueFail int
	}{
		{"first map", 1, 0},
		{"middle map", 5, 0},
		{"enqueue", 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), 2)
			dev.mapFailAt = tt.mapFail
			dev.enqueueFailAt = tt.queueFail

			p, err := NewBufferPool(dev, 4)
			if p != nil {
				t.Error("NewBufferPool returned a pool on failure")
			}
			var de *DeviceError
			if !errors.As(err, &de) {
				t.Fatalf("NewBufferPool() = %v, want *DeviceError", err)
			}
			if len(dev.live) != 0 {
				t.Errorf("%d mappings leaked", len(dev.live))
			}
		})
	}
}

func TestBufferPoolInvalidCount(t *testing.T) {
	dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), 1)
	if _, err := NewBufferPool(dev, 0); err == nil {
		t.Error("NewBufferPool(0) = nil error")
	}
}

func TestBufferPoolAcquireRelease(t *testing.T) {
	dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), 1)
	p, err := NewBufferPool(dev, 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })

	b, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() = %v", err)
	}
	if b.Handle() != 0 || b.State() != BufferOwned {
		t.Errorf("acquired handle %d state %v, want 0 owned", b.Handle(), b.State())
	}
	if b.BytesUsed(0) != dev.planeLen {
		t.Errorf("BytesUsed(0) = %d, want %d", b.BytesUsed(0), dev.planeLen)
	}

	if _, err := p.Acquire(); !errors.Is(err, ErrBufferOutstanding) {
		t.Errorf("second Acquire() = %v, want ErrBufferOutstanding", err)
	}

	if err := p.Release(b); err != nil {
		t.Fatalf("Release() = %v", err)
	}
	if b.State() != BufferQueued {
		t.Errorf("state after release = %v, want queued", b.State())
	}
	if err := p.Release(b); !errors.Is(err, ErrBufferNotOwned) {
		t.Errorf("double Release() = %v, want ErrBufferNotOwned", err)
	}

	// Handles cycle in driver order and stay stable.
	for want := 1; want < 6; want++ {
		b, err := p.Acquire()
		if err != nil {
			t.Fatal(err)
		}
		if b.Handle() != want%4 {
			t.Errorf("handle = %d, want %d", b.Handle(), want%4)
		}
		if b != p.Buffer(want%4) {
			t.Error("Acquire returned a buffer not owned by the pool")
		}
		if err := p.Release(b); err != nil {
			t.Fatal(err)
		}
	}
	if p.Len() != 4 {
		t.Errorf("Len() = %d after cycling, want 4", p.Len())
	}
}

func TestBufferPoolNotReady(t *testing.T) {
	dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), 1)
	p, err := NewBufferPool(dev, 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	dev.notReady = 3

	for i := 0; i < 3; i++ {
		b, err := p.Acquire()
		if !errors.Is(err, ErrNotReady) || b != nil {
			t.Fatalf("Acquire() = %v, %v; want nil, ErrNotReady", b, err)
		}
		if IsFatal(err) {
			t.Error("ErrNotReady reported as fatal")
		}
	}
	for i := 0; i < p.Len(); i++ {
		if p.Buffer(i).State() != BufferQueued {
			t.Errorf("buffer %d changed state on not-ready", i)
		}
	}
	if _, err := p.Acquire(); err != nil {
		t.Errorf("Acquire() after not-ready = %v", err)
	}
}

func TestBufferPoolReleaseFailureIsFatal(t *testing.T) {
	dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), 1)
	p, err := NewBufferPool(dev, 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })

	b, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	dev.enqueueFailAt = dev.enqueues + 1
	err = p.Release(b)
	var de *DeviceError
	if !errors.As(err, &de) || !IsFatal(err) {
		t.Errorf("Release() = %v, want fatal *DeviceError", err)
	}
}

func TestBufferPoolCloseOnce(t *testing.T) {
	dev := newFakeDevice(NewFrameFormat(64, 32, FourCCNV12), 2)
	p, err := NewBufferPool(dev, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Acquire(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := p.Close(); err != nil {
			t.Fatalf("Close() #%d = %v", i+1, err)
		}
	}
	if dev.unmaps != 8 {
		t.Errorf("unmaps = %d, want 8", dev.unmaps)
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Close = %v, want ErrPoolClosed", err)
	}
}
