// Package accumulator drives progressive accumulation: it decides each frame whether accumulated
// samples are still valid, regenerates the scene when the seed changes, and blends each new sample
// from the compute backend into a running mean.
package accumulator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxSampleCount is the number of samples after which accumulation stops.
const DefaultMaxSampleCount uint32 = 8192

// State is the accumulation state reported by Controller.State.
type State int

const (
	// StateInactive means the controller holds no resources: before OnActivate or after OnDeactivate.
	StateInactive State = iota

	// StateAccumulating means the sample count is below the cap and every Step dispatches a sample.
	StateAccumulating

	// StateIdle means the sample count reached the cap. Steps present the converged image unchanged.
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateAccumulating:
		return "accumulating"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Watcher is a transform-carrying collaborator whose changes invalidate accumulated samples.
// The camera and the directional light both satisfy it.
type Watcher interface {
	// Changed reports whether the watched object changed since the last ClearChanged.
	Changed() bool

	// ClearChanged lowers the change flag after the change has been observed.
	ClearChanged()
}

// FrameInputs is the externally observed state sampled once per tick.
type FrameInputs struct {
	// CameraToWorld is the camera space to world space transform.
	CameraToWorld mgl32.Mat4
	// InverseProjection is the inverse of the camera projection.
	InverseProjection mgl32.Mat4
	// Fov is the vertical field of view in degrees.
	Fov float32
	// Light is the directional light packed for the kernel.
	Light light.GPUDirectionalLight
	// Seed is the scene seed.
	Seed int64
	// Resolution is the output resolution.
	Resolution common.Resolution
}

// Frame is the result of one tick.
type Frame struct {
	// Image is the converged buffer. It is owned by the controller and is only valid until the next
	// Step or OnDeactivate; sinks that retain it must Clone it.
	Image *common.ImageBuffer
	// SampleCount is the number of samples blended into Image.
	SampleCount uint32
	// Seed is the seed of the scene Image was rendered from.
	Seed int64
	// Reset reports whether accumulation restarted during this tick.
	Reset bool
	// Dispatched reports whether a new sample was produced during this tick.
	Dispatched bool
}

// Controller owns the accumulation state machine.
type Controller interface {
	// OnActivate generates the initial scene, allocates the accumulation buffers and uploads the scene
	// to the backend. The controller starts in Accumulating(0). Calling it while active is a no-op.
	//
	// Returns:
	//   - error: wraps common.ErrResourceAllocation; the controller stays inactive and OnActivate may be retried
	OnActivate() error

	// OnDeactivate releases the buffers and the backend's resources. The controller holds nothing afterward.
	OnDeactivate()

	// Step runs one tick: evaluates reset triggers in the order resolution, field of view,
	// watched transforms, seed, then dispatches and blends one sample unless the cap is reached.
	// A reset zeroes the count before the dispatch of the same tick, so a reset frame reports
	// Reset true with SampleCount 1. A failed reset commits nothing, including the backend's size.
	//
	// Parameters:
	//   - inputs: the state sampled for this tick
	//
	// Returns:
	//   - Frame: the converged image and counters, the last good frame on error
	//   - error: wraps common.ErrNotActive, common.ErrInvalidParameter, common.ErrResourceAllocation or common.ErrBackendDispatch
	Step(inputs FrameInputs) (Frame, error)

	// SampleCount returns the number of samples in the converged image.
	SampleCount() uint32

	// MaxSampleCount returns the sample cap.
	MaxSampleCount() uint32

	// Seed returns the seed of the active scene.
	Seed() int64

	// State returns the current accumulation state.
	State() State

	// Scene returns the active scene.
	Scene() scene.Scene

	// Resolution returns the resolution of the allocated buffers.
	Resolution() common.Resolution
}

type controllerImpl struct {
	mu *sync.Mutex

	backend        renderer.ComputeBackend
	logger         common.Logger
	rng            *rand.Rand
	pool           worker.DynamicWorkerPool
	ownsPool       bool
	blendWorkers   int
	params         scene.Params
	maxSampleCount uint32
	watched        []Watcher

	active      bool
	scene       scene.Scene
	seed        int64
	fov         float32
	resolution  common.Resolution
	working     *common.ImageBuffer
	converged   *common.ImageBuffer
	sampleCount uint32
}

var _ Controller = &controllerImpl{}

// NewController creates an inactive controller.
//
// Parameters:
//   - options: functional options; WithBackend is required
//
// Returns:
//   - Controller: the new controller
//   - error: wraps common.ErrInvalidParameter if any option value is rejected
func NewController(options ...ControllerBuilderOption) (Controller, error) {
	c := &controllerImpl{
		mu:             &sync.Mutex{},
		logger:         common.DefaultLogger(),
		params:         scene.Params{Count: scene.DefaultCount, Radius: scene.DefaultRadius, PlacementRadius: scene.DefaultPlacementRadius, Brightness: scene.DefaultBrightness},
		maxSampleCount: DefaultMaxSampleCount,
		fov:            60,
		resolution:     common.Resolution{Width: 1280, Height: 720},
	}
	for _, option := range options {
		option(c)
	}

	if c.backend == nil {
		return nil, fmt.Errorf("accumulator: no compute backend: %w", common.ErrInvalidParameter)
	}
	if c.maxSampleCount < 1 {
		return nil, fmt.Errorf("accumulator: max sample count must be at least 1: %w", common.ErrInvalidParameter)
	}
	if err := c.params.Validate(); err != nil {
		return nil, fmt.Errorf("accumulator: %w", err)
	}
	if err := c.resolution.Validate(); err != nil {
		return nil, fmt.Errorf("accumulator: %w", err)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c, nil
}

func (c *controllerImpl) OnActivate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil
	}

	working, converged, err := c.allocate(c.resolution)
	if err != nil {
		c.backend.Release()
		return err
	}
	sc := scene.GenerateParams(c.seed, c.params)
	if err := c.backend.UploadScene(sc.Spheres); err != nil {
		c.backend.Release()
		return allocationError(fmt.Sprintf("upload scene for seed %d", c.seed), err)
	}

	if c.pool == nil && c.blendWorkers > 1 {
		c.pool = worker.NewDynamicWorkerPool(c.blendWorkers, 256, 1*time.Second)
		c.ownsPool = true
	}
	c.working, c.converged = working, converged
	c.scene = sc
	c.sampleCount = 0
	for _, w := range c.watched {
		w.ClearChanged()
	}
	c.active = true
	c.logger.Printf("[Accumulator] activated: seed %d, %d spheres, %s, max %d samples", c.seed, sc.Len(), c.resolution, c.maxSampleCount)
	return nil
}

func (c *controllerImpl) OnDeactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.backend.Release()
	if c.ownsPool {
		c.pool.Stop()
		c.pool = nil
		c.ownsPool = false
	}
	c.working = nil
	c.converged = nil
	c.sampleCount = 0
	c.active = false
	c.logger.Printf("[Accumulator] deactivated")
}

func (c *controllerImpl) Step(in FrameInputs) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return Frame{}, fmt.Errorf("accumulator: step: %w", common.ErrNotActive)
	}
	if err := in.Resolution.Validate(); err != nil {
		return c.frame(false, false), fmt.Errorf("accumulator: %w", err)
	}

	// Every fallible part of a reset runs before any state is committed.
	reset := false

	var working, converged *common.ImageBuffer
	resized := in.Resolution != c.resolution
	if resized {
		var err error
		if working, converged, err = c.allocate(in.Resolution); err != nil {
			return c.frame(false, false), err
		}
		reset = true
	}

	if in.Fov != c.fov {
		reset = true
	}

	var changed []Watcher
	for _, w := range c.watched {
		if w.Changed() {
			changed = append(changed, w)
			reset = true
		}
	}

	var regenerated *scene.Scene
	if in.Seed != c.seed {
		sc := scene.GenerateParams(in.Seed, c.params)
		if err := c.backend.UploadScene(sc.Spheres); err != nil {
			if resized {
				c.restoreBackend()
			}
			return c.frame(false, false), allocationError(fmt.Sprintf("upload scene for seed %d", in.Seed), err)
		}
		regenerated = &sc
		reset = true
	}

	if resized {
		c.working, c.converged = working, converged
		c.resolution = in.Resolution
	}
	c.fov = in.Fov
	for _, w := range changed {
		w.ClearChanged()
	}
	if regenerated != nil {
		c.scene = *regenerated
		c.seed = in.Seed
	}
	if reset {
		c.sampleCount = 0
		if !resized {
			c.converged.Clear()
		}
	}

	if c.sampleCount >= c.maxSampleCount {
		return c.frame(reset, false), nil
	}

	params := renderer.DispatchParams{
		CameraToWorld:     in.CameraToWorld,
		InverseProjection: in.InverseProjection,
		PixelJitter:       mgl32.Vec2{c.rng.Float32(), c.rng.Float32()},
		NoiseSeed:         c.rng.Float32(),
		Light:             in.Light,
		SampleIndex:       c.sampleCount,
	}
	if err := c.backend.Dispatch(params, c.working); err != nil {
		if !errors.Is(err, common.ErrBackendDispatch) {
			err = fmt.Errorf("%w: %w", common.ErrBackendDispatch, err)
		}
		return c.frame(reset, false), fmt.Errorf("accumulator: sample %d: %w", c.sampleCount+1, err)
	}

	blend(c.pool, c.converged, c.working, c.sampleCount)
	c.sampleCount++

	if c.sampleCount == c.maxSampleCount {
		c.logger.Printf("[Accumulator] converged: seed %d, %d samples", c.seed, c.sampleCount)
	}
	return c.frame(reset, true), nil
}

func (c *controllerImpl) SampleCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleCount
}

func (c *controllerImpl) MaxSampleCount() uint32 {
	return c.maxSampleCount
}

func (c *controllerImpl) Seed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed
}

func (c *controllerImpl) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.active:
		return StateInactive
	case c.sampleCount >= c.maxSampleCount:
		return StateIdle
	default:
		return StateAccumulating
	}
}

func (c *controllerImpl) Scene() scene.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

func (c *controllerImpl) Resolution() common.Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolution
}

// allocate sizes the backend and creates a fresh working/converged pair for res.
// The host buffers are created first so that a failure leaves the backend untouched.
// Caller must hold the mutex.
func (c *controllerImpl) allocate(res common.Resolution) (working, converged *common.ImageBuffer, err error) {
	if working, err = common.NewImageBuffer(res.Width, res.Height); err != nil {
		return nil, nil, allocationError("allocate working buffer at "+res.String(), err)
	}
	if converged, err = common.NewImageBuffer(res.Width, res.Height); err != nil {
		return nil, nil, allocationError("allocate converged buffer at "+res.String(), err)
	}
	if err = c.backend.Allocate(res); err != nil {
		return nil, nil, allocationError("allocate backend at "+res.String(), err)
	}
	return working, converged, nil
}

// restoreBackend sizes the backend back to the committed resolution after a reset failed past
// allocate. Caller must hold the mutex.
func (c *controllerImpl) restoreBackend() {
	if err := c.backend.Allocate(c.resolution); err != nil {
		c.logger.Printf("[Accumulator] restore backend at %s: %v", c.resolution, err)
	}
}

// frame snapshots the current counters. Caller must hold the mutex.
func (c *controllerImpl) frame(reset, dispatched bool) Frame {
	return Frame{
		Image:       c.converged,
		SampleCount: c.sampleCount,
		Seed:        c.seed,
		Reset:       reset,
		Dispatched:  dispatched,
	}
}

// allocationError wraps err so that it matches common.ErrResourceAllocation.
func allocationError(op string, err error) error {
	if errors.Is(err, common.ErrResourceAllocation) {
		return fmt.Errorf("accumulator: %s: %w", op, err)
	}
	return fmt.Errorf("accumulator: %s: %w: %w", op, common.ErrResourceAllocation, err)
}
