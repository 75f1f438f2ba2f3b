package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType BackendType
	backend     ComputeBackend
	gpu         GPUContext

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	surfaceWidth         int
	surfaceHeight        int
	maxBounces           uint32
	pool                 worker.DynamicWorkerPool
	logger               common.Logger
}

// Renderer owns the compute backend that produces raw samples and, when a GPU is in use or a
// window surface was supplied, the GPU context shared with presentation.
//
// This is a high-level API: it picks and wires the backend implementation so the rest of the
// engine only sees the ComputeBackend interface.
type Renderer interface {
	// BackendType returns the backend implementation chosen at construction.
	BackendType() BackendType

	// Backend returns the sample producer handed to the accumulation controller.
	//
	// Returns:
	//   - ComputeBackend: the backend
	Backend() ComputeBackend

	// GPU returns the GPU context, or nil for a headless CPU renderer.
	//
	// Returns:
	//   - GPUContext: the shared GPU context, may be nil
	GPU() GPUContext

	// Resize reconfigures the window surface, if any. The compute backend is resized by the
	// controller through Allocate.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	//
	// Returns:
	//   - error: wraps common.ErrResourceAllocation if the surface could not be configured
	Resize(width, height int) error

	// SetPresentMode changes the present mode. It takes effect at the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release frees the backend's pipeline and the GPU context.
	Release()
}

var _ Renderer = &renderer{}

// destroyer is implemented by backends that hold construction-time resources beyond what
// ComputeBackend.Release frees.
type destroyer interface {
	destroy()
}

// NewRenderer creates a Renderer with the requested compute backend.
// A GPU context is created for the WGPU backend, and for any backend when a surface descriptor
// was supplied with WithSurface, so frames can be presented to a window.
//
// Parameters:
//   - backendType: the compute backend to use
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: wraps common.ErrResourceAllocation if the GPU or pipeline could not be created
func NewRenderer(backendType BackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		maxBounces:  DefaultMaxBounces,
		logger:      common.DefaultLogger(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if backendType == BackendTypeWGPU || r.surfaceDescriptor != nil {
		gpu, err := newGPUContext(r.surfaceDescriptor, r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		r.gpu = gpu
		if r.pendingPresentMode != nil {
			r.gpu.SetPresentMode(*r.pendingPresentMode)
		}
		if r.surfaceDescriptor != nil {
			if err := r.gpu.ConfigureSurface(r.surfaceWidth, r.surfaceHeight); err != nil {
				r.gpu.Release()
				return nil, err
			}
		}
	}

	backendOptions := []ComputeBackendBuilderOption{
		WithBackendMaxBounces(r.maxBounces),
		WithBackendWorkerPool(r.pool),
		WithBackendLogger(r.logger),
	}
	switch backendType {
	case BackendTypeCPU:
		r.backend = NewCPUComputeBackend(backendOptions...)
	case BackendTypeWGPU:
		backend, err := NewWGPUComputeBackend(r.gpu, backendOptions...)
		if err != nil {
			r.gpu.Release()
			return nil, err
		}
		r.backend = backend
	default:
		if r.gpu != nil {
			r.gpu.Release()
		}
		return nil, fmt.Errorf("backend %v: %w", backendType, common.ErrInvalidParameter)
	}

	r.logger.Printf("[Renderer] using %s backend", backendType)
	return r, nil
}

func (r *renderer) BackendType() BackendType {
	return r.backendType
}

func (r *renderer) Backend() ComputeBackend {
	return r.backend
}

func (r *renderer) GPU() GPUContext {
	return r.gpu
}

func (r *renderer) Resize(width, height int) error {
	if r.gpu == nil {
		return nil
	}
	return r.gpu.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	r.pendingPresentMode = &mode
	r.mu.Unlock()

	if r.gpu != nil {
		r.gpu.SetPresentMode(mode)
	}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend != nil {
		if d, ok := r.backend.(destroyer); ok {
			d.destroy()
		} else {
			r.backend.Release()
		}
		r.backend = nil
	}
	if r.gpu != nil {
		r.gpu.Release()
		r.gpu = nil
	}
}
