package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// BackendType identifies the compute backend implementation used by the Renderer.
type BackendType int

const (
	// BackendTypeWGPU runs the path tracing kernel as a WebGPU compute shader.
	BackendTypeWGPU BackendType = iota

	// BackendTypeCPU runs a pure-Go stand-in kernel on the worker pool. It needs no GPU.
	BackendTypeCPU
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// ParseBackendType maps a backend name ("wgpu" or "cpu") to its BackendType.
//
// Parameters:
//   - name: the backend name, case-insensitive
//
// Returns:
//   - BackendType: the matching backend type
//   - error: wraps common.ErrInvalidParameter for an unknown name
func ParseBackendType(name string) (BackendType, error) {
	switch strings.ToLower(name) {
	case "wgpu", "gpu":
		return BackendTypeWGPU, nil
	case "cpu":
		return BackendTypeCPU, nil
	default:
		return 0, fmt.Errorf("unknown backend %q: %w", name, common.ErrInvalidParameter)
	}
}

// PresentMode controls how presented frames are delivered to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// WorkgroupSize is the edge length of the square compute workgroup used by the path tracing kernel.
const WorkgroupSize = 8

// WorkgroupCounts returns the dispatch grid covering a resolution with WorkgroupSize x WorkgroupSize groups.
//
// Parameters:
//   - res: the output resolution
//
// Returns:
//   - x, y: workgroup counts, ceil(width/8) and ceil(height/8)
func WorkgroupCounts(res common.Resolution) (x, y uint32) {
	x = (uint32(res.Width) + WorkgroupSize - 1) / WorkgroupSize
	y = (uint32(res.Height) + WorkgroupSize - 1) / WorkgroupSize
	return
}

// DispatchParams is the per-sample state staged for one kernel invocation.
type DispatchParams struct {
	// CameraToWorld transforms camera space into world space.
	CameraToWorld mgl32.Mat4
	// InverseProjection turns clip space positions into camera space directions.
	InverseProjection mgl32.Mat4
	// PixelJitter is the sub-pixel offset in [0,1)^2 applied to every primary ray.
	PixelJitter mgl32.Vec2
	// NoiseSeed in [0,1) varies the kernel's internal random stream between samples.
	NoiseSeed float32
	// Light is the directional light.
	Light light.GPUDirectionalLight
	// SampleIndex is the number of samples already accumulated.
	SampleIndex uint32
}

// ComputeBackend is the black-box sample producer driven by the accumulation controller.
//
// A backend owns its device-side copies of the scene and of the working target. Allocate and
// UploadScene must leave the previous allocation or scene intact when they fail, and Dispatch is
// synchronous: when it returns, the target holds the new sample.
type ComputeBackend interface {
	// Allocate sizes the backend's per-pixel resources for a resolution.
	// Calling it again with the current resolution is a no-op.
	//
	// Parameters:
	//   - res: the output resolution
	//
	// Returns:
	//   - error: wraps common.ErrResourceAllocation on failure
	Allocate(res common.Resolution) error

	// UploadScene replaces the sphere data read by subsequent dispatches.
	// An empty slice is legal and renders only the ground and sky.
	//
	// Parameters:
	//   - spheres: the spheres in placement order
	//
	// Returns:
	//   - error: wraps common.ErrResourceAllocation on failure
	UploadScene(spheres []scene.Sphere) error

	// Dispatch renders one raw sample into target.
	//
	// Parameters:
	//   - params: the per-sample parameters
	//   - target: the working buffer, sized to the allocated resolution
	//
	// Returns:
	//   - error: wraps common.ErrBackendDispatch on failure
	Dispatch(params DispatchParams, target *common.ImageBuffer) error

	// Release frees every resource held by the backend. The backend must be re-allocated before reuse.
	Release()
}
