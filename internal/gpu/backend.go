//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan backend
)

// GPU errors.
var (
	// ErrNoGPU is returned when no usable adapter is available.
	ErrNoGPU = errors.New("gpu: no GPU available")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL device and queue handles.
	ErrNoHALProvider = errors.New("gpu: provider does not expose HAL types")

	// ErrClosed is returned when using a closed renderer.
	ErrClosed = errors.New("gpu: renderer closed")

	// ErrForeignSurface is returned when a surface was not created by the
	// renderer it is passed to.
	ErrForeignSurface = errors.New("gpu: surface not created by this renderer")
)

// halDevice is a device and queue pair plus the instance that owns them,
// when the renderer opened them itself.
type halDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	name     string
	format   gputypes.TextureFormat
	external bool

	// limits are the limits the device was opened with.
	limits gputypes.Limits

	// spirv selects ahead-of-time shader compilation.
	spirv bool
}

// release destroys the device and instance unless they are borrowed.
func (d *halDevice) release() {
	if d.external {
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// openVulkan opens the first discrete or integrated adapter, falling back
// to whatever the Vulkan backend enumerates first.
func openVulkan() (*halDevice, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoGPU)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &halDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		name:     selected.Info.Name,
		format:   gputypes.TextureFormatBGRA8Unorm,
		limits:   limits,
		spirv:    true,
	}, nil
}

// fromProvider borrows the HAL device of a gpucontext provider. The
// provider's surface format becomes the render target format.
func fromProvider(provider gpucontext.DeviceProvider) (*halDevice, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	format := provider.SurfaceFormat()
	if format == 0 {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	limits := gputypes.DefaultLimits()
	if lp, ok := provider.(interface{ Limits() gputypes.Limits }); ok {
		limits = lp.Limits()
	}
	return &halDevice{
		device:   device,
		queue:    queue,
		name:     "provider",
		format:   format,
		limits:   limits,
		external: true,
	}, nil
}

// maxTextureEdge returns the 2D texture limit of l, or the WebGPU default
// when l leaves it unset.
func maxTextureEdge(l gputypes.Limits) int {
	if l.MaxTextureDimension2D == 0 {
		return int(gputypes.DefaultLimits().MaxTextureDimension2D)
	}
	return int(l.MaxTextureDimension2D)
}
