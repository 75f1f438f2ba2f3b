package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type gpuContextImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
}

// GPUContext owns the WebGPU instance, adapter, device and queue shared by the compute backend
// and the presentation surface. The surface is nil for headless contexts.
type GPUContext interface {
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Surface() *wgpu.Surface

	// SurfaceFormat returns the texture format chosen by the last ConfigureSurface call.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format, or TextureFormatUndefined before configuration
	SurfaceFormat() wgpu.TextureFormat

	// ConfigureSurface is a wrapper for the boilerplate required when (re)configuring the surface,
	// which must happen whenever the window is resized. It is a no-op for headless contexts.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: wraps common.ErrResourceAllocation if the surface reports no usable format
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode used by the next ConfigureSurface call.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release frees the device, adapter, surface and instance.
	Release()
}

var _ GPUContext = &gpuContextImpl{}

// newGPUContext requests an adapter and device. When surfaceDescriptor is nil the context is
// headless and the adapter is not required to present.
func newGPUContext(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (GPUContext, error) {
	// wgpu-native and GLFW both expect calls from the thread that created them.
	runtime.LockOSThread()
	g := &gpuContextImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	if surfaceDescriptor != nil {
		g.surface = g.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := g.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    g.surface,
	})
	if err != nil {
		g.Release()
		return nil, fmt.Errorf("request adapter: %v: %w", err, common.ErrResourceAllocation)
	}
	g.adapter = a

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Path Tracer Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		g.Release()
		return nil, fmt.Errorf("request device: %v: %w", err, common.ErrResourceAllocation)
	}
	g.device = d
	g.queue = d.GetQueue()

	return g, nil
}

func (g *gpuContextImpl) ConfigureSurface(width, height int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.surface == nil {
		return nil
	}
	capabilities := g.surface.GetCapabilities(g.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return fmt.Errorf("surface reports no formats: %w", common.ErrResourceAllocation)
	}
	g.surfaceFormat = capabilities.Formats[0]

	g.surface.Configure(g.adapter, g.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      g.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: g.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (g *gpuContextImpl) SetPresentMode(mode PresentMode) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		g.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		g.presentMode = wgpu.PresentModeImmediate
	}
}

func (g *gpuContextImpl) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.queue != nil {
		g.queue.Release()
		g.queue = nil
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.surface != nil {
		g.surface.Release()
		g.surface = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}

func (g *gpuContextImpl) Instance() *wgpu.Instance {
	return g.instance
}

func (g *gpuContextImpl) Adapter() *wgpu.Adapter {
	return g.adapter
}

func (g *gpuContextImpl) Device() *wgpu.Device {
	return g.device
}

func (g *gpuContextImpl) Queue() *wgpu.Queue {
	return g.queue
}

func (g *gpuContextImpl) Surface() *wgpu.Surface {
	return g.surface
}

func (g *gpuContextImpl) SurfaceFormat() wgpu.TextureFormat {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.surfaceFormat
}
