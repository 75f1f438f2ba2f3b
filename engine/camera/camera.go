package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Field of view limits in degrees.
const (
	MinFov float32 = 1.0
	MaxFov float32 = 179.0
)

type cameraImpl struct {
	mu *sync.Mutex
	common.DirtyFlag

	up mgl32.Vec3

	fov    float32 // degrees
	aspect float32
	near   float32
	far    float32

	cameraToWorld     mgl32.Mat4
	inverseProjection mgl32.Mat4

	controller CameraController
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and computes the camera-to-world and inverse projection
// matrices consumed by the path tracing kernel from an attached CameraController.
//
// Every mutation of the camera or of its controller raises the camera's change flag, which the
// accumulation controller observes to discard stale samples.
type Camera interface {
	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in degrees.
	//
	// Returns:
	//   - float32: field of view in degrees
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Position returns the world-space eye position read from the controller.
	// Returns the origin when no controller is attached.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// CameraToWorld returns the camera space to world space transform.
	//
	// Returns:
	//   - mgl32.Mat4: the camera-to-world matrix
	CameraToWorld() mgl32.Mat4

	// InverseProjection returns the inverse of the perspective projection, used by the kernel
	// to turn normalized device coordinates into camera-space ray directions.
	//
	// Returns:
	//   - mgl32.Mat4: the inverse projection matrix
	InverseProjection() mgl32.Mat4

	// Controller returns the attached CameraController, or nil.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// Update reads position/target from the controller and recomputes matrices.
	// Should be called once per frame before the camera state is sampled.
	Update()

	// SetFov sets the field of view in degrees, clamped to [MinFov, MaxFov].
	//
	// Parameters:
	//   - fov: field of view in degrees
	SetFov(fov float32)

	// AdjustFov adds delta degrees to the field of view, clamped to [MinFov, MaxFov].
	//
	// Parameters:
	//   - delta: change in degrees
	AdjustFov(delta float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)

	// Changed reports whether the camera or its controller changed since the last ClearChanged.
	//
	// Returns:
	//   - bool: true if a change was recorded
	Changed() bool

	// ClearChanged lowers the change flag of the camera and its controller.
	ClearChanged()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings.
// A controller must be attached via SetController or WithController option
// before position data is available.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                &sync.Mutex{},
		up:                mgl32.Vec3{0, 1, 0},
		fov:               60.0,
		aspect:            1.0,
		near:              0.1,
		far:               1000.0,
		cameraToWorld:     mgl32.Ident4(),
		inverseProjection: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return mgl32.Vec3{}
	}
	return c.controller.Position()
}

func (c *cameraImpl) CameraToWorld() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraToWorld
}

func (c *cameraImpl) InverseProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjection
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setFov(fov)
}

func (c *cameraImpl) AdjustFov(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setFov(c.fov + delta)
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect == c.aspect || aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
	c.MarkChanged()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
	c.MarkChanged()
}

func (c *cameraImpl) Changed() bool {
	if c.DirtyFlag.Changed() {
		return true
	}
	ctrl := c.Controller()
	return ctrl != nil && ctrl.Changed()
}

func (c *cameraImpl) ClearChanged() {
	c.DirtyFlag.ClearChanged()
	if ctrl := c.Controller(); ctrl != nil {
		ctrl.ClearChanged()
	}
}

// setFov clamps and stores the field of view. Caller must hold the mutex.
func (c *cameraImpl) setFov(fov float32) {
	fov = mgl32.Clamp(fov, MinFov, MaxFov)
	if fov == c.fov {
		return
	}
	c.fov = fov
	c.updateMatrices()
	c.MarkChanged()
}

// updateMatrices recalculates the camera-to-world and inverse projection matrices.
// Without a controller the camera sits at the origin looking down -Z.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	projection := mgl32.Perspective(common.DegToRad(c.fov), c.aspect, c.near, c.far)
	c.inverseProjection = projection.Inv()

	if c.controller == nil {
		c.cameraToWorld = mgl32.Ident4()
		return
	}
	c.cameraToWorld = common.CameraToWorld(c.controller.Position(), c.controller.Target(), c.up)
}
