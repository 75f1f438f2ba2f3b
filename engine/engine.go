package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/camera"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/input"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/present"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/window"
)

// engine implements the Engine interface.
// Every tick runs on the goroutine that called Run or RunFrames.
type engine struct {
	mu *sync.Mutex

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer

	camera     camera.Camera
	light      light.Light
	input      input.Input
	controller accumulator.Controller

	sinks    []present.Sink
	sink     present.Sink
	snapshot present.PNGSink

	profiler         *profiler.Profiler
	profilingEnabled bool

	logger common.Logger
	pool   worker.DynamicWorkerPool

	seed           int64
	fov            float32
	sceneParams    scene.Params
	maxSampleCount uint32
	resolution     common.Resolution

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	lastFrame accumulator.Frame
	released  bool
}

// Engine drives the progressive renderer: one cooperative tick per window message-loop iteration,
// or a fixed number of headless ticks.
type Engine interface {
	// Window returns the underlying window, or nil when headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Camera returns the camera the engine renders from.
	Camera() camera.Camera

	// Light returns the directional light.
	Light() light.Light

	// Input returns the keyboard state bound to the camera, the light and the seed.
	Input() input.Input

	// Controller returns the accumulation controller.
	Controller() accumulator.Controller

	// LastFrame returns the frame produced by the most recent tick.
	LastFrame() accumulator.Frame

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run activates the controller and ticks once per window message-loop iteration until the window
	// closes or Quit is called. Without a window it ticks until the image converges or Quit is called.
	//
	// Returns:
	//   - error: wraps common.ErrResourceAllocation if the controller could not be activated
	Run() error

	// RunFrames drives n ticks without a window message loop.
	//
	// Parameters:
	//   - n: the number of ticks
	//
	// Returns:
	//   - accumulator.Frame: the frame produced by the last tick
	//   - error: the error of the last tick, if it failed
	RunFrames(n int) (accumulator.Frame, error)

	// Snapshot writes the most recent frame through the snapshot sink.
	//
	// Returns:
	//   - string: the written path
	//   - error: common.ErrInvalidParameter without a snapshot sink or a frame
	Snapshot() (string, error)

	// Quit signals the loop to stop. Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release deactivates the controller and releases every sink. The renderer and the window
	// remain owned by the caller.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A renderer is required. The camera, light, input and controller default to fresh instances
// configured from the seed, scene parameters, sample cap and resolution options. With a window
// the resolution follows the window, key and scroll events feed the input, and a surface sink is
// added when the renderer's GPU context owns a surface.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: wraps common.ErrInvalidParameter on missing collaborators or rejected values
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:          &sync.Mutex{},
		quitChannel: make(chan struct{}),
		logger:      common.DefaultLogger(),
		sceneParams: scene.Params{
			Count:           scene.DefaultCount,
			Radius:          scene.DefaultRadius,
			PlacementRadius: scene.DefaultPlacementRadius,
			Brightness:      scene.DefaultBrightness,
		},
		maxSampleCount: accumulator.DefaultMaxSampleCount,
		fov:            60,
		resolution:     common.Resolution{Width: 1280, Height: 720},
	}

	for _, opt := range options {
		opt(e)
	}

	if e.renderer == nil {
		return nil, fmt.Errorf("engine: no renderer: %w", common.ErrInvalidParameter)
	}
	if e.window != nil {
		e.resolution = common.Resolution{Width: e.window.Width(), Height: e.window.Height()}
	}
	if err := e.resolution.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	if e.camera == nil {
		e.camera = camera.NewCamera(
			camera.WithController(camera.NewCameraController()),
			camera.WithFov(e.fov),
			camera.WithAspect(e.resolution.Aspect()),
		)
	} else {
		e.camera.SetAspect(e.resolution.Aspect())
	}
	if e.light == nil {
		e.light = light.NewLight()
	}
	if e.input == nil {
		e.input = input.NewInput(e.camera, e.light, input.WithSeed(e.seed))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.controller == nil {
		ctrl, err := accumulator.NewController(
			accumulator.WithBackend(e.renderer.Backend()),
			accumulator.WithSeed(e.input.Seed()),
			accumulator.WithSceneParams(e.sceneParams),
			accumulator.WithMaxSampleCount(e.maxSampleCount),
			accumulator.WithFov(e.camera.Fov()),
			accumulator.WithResolution(e.resolution),
			accumulator.WithWatched(e.camera, e.light),
			accumulator.WithLogger(e.logger),
			accumulator.WithWorkerPool(e.pool),
		)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.controller = ctrl
	}

	if e.window != nil {
		if gpu := e.renderer.GPU(); gpu != nil && gpu.Surface() != nil {
			surface, err := present.NewSurfaceSink(gpu)
			if err != nil {
				return nil, fmt.Errorf("engine: %w", err)
			}
			e.sinks = append([]present.Sink{surface}, e.sinks...)
		}
		e.bindWindow()
	}
	e.sink = present.NewMultiSink(e.sinks...)

	return e, nil
}

// bindWindow routes window events into the engine.
func (e *engine) bindWindow() {
	e.window.SetKeyDownCallback(e.input.KeyDown)
	e.window.SetKeyUpCallback(e.input.KeyUp)
	e.window.SetScrollCallback(e.input.Scroll)
	e.window.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			// minimized
			return
		}
		if err := e.renderer.Resize(width, height); err != nil {
			e.logger.Printf("[Engine] resize to %dx%d: %v", width, height, err)
			return
		}
		e.camera.SetAspect(float32(width) / float32(height))
		e.mu.Lock()
		e.resolution = common.Resolution{Width: width, Height: height}
		e.mu.Unlock()
	})
	e.window.SetUpdateCallback(func() {
		_, _ = e.tick()
	})
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Light() light.Light {
	return e.light
}

func (e *engine) Input() input.Input {
	return e.input
}

func (e *engine) Controller() accumulator.Controller {
	return e.controller
}

func (e *engine) LastFrame() accumulator.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFrame
}

func (e *engine) Run() error {
	if err := e.controller.OnActivate(); err != nil {
		return fmt.Errorf("engine: activate: %w", err)
	}

	for !e.quitting() {
		start := time.Now()
		if e.window != nil {
			if !e.window.PollOnce() {
				break
			}
		} else {
			frame, _ := e.tick()
			if !frame.Dispatched && e.controller.State() == accumulator.StateIdle {
				break
			}
		}
		e.limitFrame(start)
	}
	e.logger.Printf("[Engine] stopped at seed %d, %d samples", e.controller.Seed(), e.controller.SampleCount())
	return nil
}

func (e *engine) RunFrames(n int) (accumulator.Frame, error) {
	var (
		frame accumulator.Frame
		err   error
	)
	for i := 0; i < n && !e.quitting(); i++ {
		start := time.Now()
		frame, err = e.tick()
		e.limitFrame(start)
	}
	return frame, err
}

// tick runs one iteration: activate if needed, apply input, step, present, title and profiler.
// Activation failures are retried on the next tick.
func (e *engine) tick() (accumulator.Frame, error) {
	if e.controller.State() == accumulator.StateInactive {
		if err := e.controller.OnActivate(); err != nil {
			e.logger.Printf("[Engine] activate: %v", err)
			return accumulator.Frame{}, err
		}
	}

	actions := e.input.Update()
	e.camera.Update()

	e.mu.Lock()
	res := e.resolution
	e.mu.Unlock()

	frame, err := e.controller.Step(accumulator.FrameInputs{
		CameraToWorld:     e.camera.CameraToWorld(),
		InverseProjection: e.camera.InverseProjection(),
		Fov:               e.camera.Fov(),
		Light:             e.light.GPU(),
		Seed:              e.input.Seed(),
		Resolution:        res,
	})
	if err != nil {
		e.logger.Printf("[Engine] step: %v", err)
	}

	if frame.Image != nil {
		if perr := e.sink.Present(frame); perr != nil {
			e.logger.Printf("[Engine] present: %v", perr)
		}
		if actions.Snapshot && e.snapshot != nil {
			if _, serr := e.snapshot.Capture(frame); serr != nil {
				e.logger.Printf("[Engine] snapshot: %v", serr)
			}
		}
	}

	if e.window != nil {
		e.window.SetTitle(Title(frame.Seed, frame.SampleCount))
	}

	e.mu.Lock()
	profiling := e.profilingEnabled
	e.lastFrame = frame
	e.mu.Unlock()

	if profiling {
		e.profiler.Tick(frame.Dispatched, frame.SampleCount)
	}
	return frame, err
}

// Title formats the window title for a frame.
//
// Parameters:
//   - seed: the scene seed
//   - sampleCount: the accumulated sample count
//
// Returns:
//   - string: the title text
func Title(seed int64, sampleCount uint32) string {
	return fmt.Sprintf("Seed = %d | Samples = %d", seed, sampleCount)
}

func (e *engine) limitFrame(start time.Time) {
	e.mu.Lock()
	limit := e.renderFrameLimit
	e.mu.Unlock()
	if limit <= 0 {
		return
	}
	if remaining := limit - time.Since(start); remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-e.quitChannel:
		}
	}
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

func (e *engine) Snapshot() (string, error) {
	if e.snapshot == nil {
		return "", fmt.Errorf("engine: no snapshot sink: %w", common.ErrInvalidParameter)
	}
	frame := e.LastFrame()
	if frame.Image == nil {
		return "", fmt.Errorf("engine: no frame rendered yet: %w", common.ErrInvalidParameter)
	}
	return e.snapshot.Capture(frame)
}

// Quit signals the loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return
	}
	e.released = true
	e.mu.Unlock()

	e.Quit()
	e.controller.OnDeactivate()
	e.sink.Release()
	if e.snapshot != nil {
		e.snapshot.Release()
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
