//go:build !nogpu

// Package gpu renders captured frames with the gogpu/wgpu HAL.
//
// Luma and chroma planes live in R8Unorm and RG8Unorm textures created
// through the Renderer, which satisfies hdmiview.Renderer. Each Draw
// records one render pass that samples both textures in a fullscreen
// triangle and converts YCbCr to RGB in the fragment shader
// (shaders/yuv.wgsl, compiled to SPIR-V with naga).
//
// # Devices
//
// Open creates a private Vulkan device. NewFromProvider shares the device
// of a gpucontext.DeviceProvider such as a gogpu window, and New accepts
// a raw hal.Device and hal.Queue, which is how tests use the noop backend.
//
// # Targets
//
// By default frames are drawn into an offscreen BGRA8 texture sized to the
// display. Snapshot reads that texture back to an *image.RGBA. SetSurfaceTarget
// redirects drawing to a caller-owned texture view, typically the current
// swapchain image.
//
// Build with -tags nogpu to exclude this package's GPU code.
package gpu
