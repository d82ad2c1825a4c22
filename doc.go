// Package hdmiview displays a live V4L2 capture stream through the GPU.
//
// # Overview
//
// hdmiview drives a memory-mapped capture device (typically an HDMI
// capture bridge) and renders every frame as two GPU image planes: a
// single-channel luma surface and a two-channel chroma surface. The
// color conversion itself is left to a [Renderer]; this package owns
// the capture-buffer lifecycle and the frame-upload pipeline.
//
// # Quick Start
//
//	dev, err := v4l2.Open("/dev/video0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	p, err := hdmiview.NewPipeline(dev, renderer, hdmiview.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	err = p.Run(ctx)
//
// # Pipeline
//
// Each iteration of [Pipeline.Run] waits for the device, services
// source-change notifications through the [Tracker], acquires a buffer
// from the [BufferPool], maps its planes with [Resolve], copies them to
// GPU surfaces with the [UploadEngine] and hands both surfaces to the
// renderer before requeueing the buffer.
//
// Frame geometry can change at any time. Changes are detected both by
// device notification and by a periodic format query; both paths end
// in [Tracker.ProposeChange], which reallocates the surfaces exactly
// once per real change.
//
// # Pixel Layouts
//
// Recognized wire layouts are semi-planar 4:2:0 (NV12, NV21), semi-planar
// 4:4:4 (NV24, NV42) and packed 3-byte YUV. Semi-planar chroma arrives as
// interleaved two-byte pairs whose order differs between the two variants
// of each family; the order can be corrected on the CPU or by the
// renderer, never both.
//
// # Architecture
//
//   - Public API: Pipeline, Config, Tracker, BufferPool, UploadEngine, Resolve
//   - internal/v4l2: Linux capture device binding (ioctl, mmap, poll)
//   - internal/gpu: wgpu HAL renderer (R8/RG8 surfaces, YUV shader)
//   - internal/soft: CPU renderer for headless use and tests
//   - internal/monitor: periodic pipeline and process statistics
//   - cmd/hdmiview: command line viewer
package hdmiview
