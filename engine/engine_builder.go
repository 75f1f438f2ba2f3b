package engine

import (
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

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Values <= 0 leave the loop uncapped.
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithWindow attaches a window. The engine takes its resolution from the window and subscribes to
// its update, resize, key and scroll callbacks.
//
// Parameters:
//   - w: the window to attach
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer whose compute backend produces samples. Required.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithCamera replaces the default orbit camera.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithLight replaces the default directional light.
func WithLight(l light.Light) EngineBuilderOption {
	return func(e *engine) {
		e.light = l
	}
}

// WithInput replaces the default keyboard state. Its seed becomes the initial scene seed.
func WithInput(in input.Input) EngineBuilderOption {
	return func(e *engine) {
		e.input = in
	}
}

// WithController replaces the default accumulation controller.
func WithController(c accumulator.Controller) EngineBuilderOption {
	return func(e *engine) {
		e.controller = c
	}
}

// WithSeed sets the initial scene seed.
//
// Parameters:
//   - seed: the seed
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSeed(seed int64) EngineBuilderOption {
	return func(e *engine) {
		e.seed = seed
	}
}

// WithFov sets the initial vertical field of view in degrees of the default camera.
func WithFov(fov float32) EngineBuilderOption {
	return func(e *engine) {
		e.fov = fov
	}
}

// WithSceneParams sets the scene generation parameters.
//
// Parameters:
//   - params: sphere count, radius range, placement radius and brightness range
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSceneParams(params scene.Params) EngineBuilderOption {
	return func(e *engine) {
		e.sceneParams = params
	}
}

// WithMaxSampleCount sets the number of samples after which accumulation stops.
func WithMaxSampleCount(n uint32) EngineBuilderOption {
	return func(e *engine) {
		e.maxSampleCount = n
	}
}

// WithResolution sets the output resolution used without a window.
//
// Parameters:
//   - res: the resolution
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithResolution(res common.Resolution) EngineBuilderOption {
	return func(e *engine) {
		e.resolution = res
	}
}

// WithSinks adds frame sinks. The engine presents every tick's frame to each sink and releases
// them in Release.
//
// Parameters:
//   - sinks: the sinks to add; nil entries are skipped
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSinks(sinks ...present.Sink) EngineBuilderOption {
	return func(e *engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithSnapshotSink sets the sink written to on a snapshot request (F12 or Snapshot).
func WithSnapshotSink(s present.PNGSink) EngineBuilderOption {
	return func(e *engine) {
		e.snapshot = s
	}
}

// WithLogger sets the logger shared by the engine, its default controller and its default profiler.
func WithLogger(logger common.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkerPool sets the pool the default controller blends samples on. The caller keeps ownership.
func WithWorkerPool(pool worker.DynamicWorkerPool) EngineBuilderOption {
	return func(e *engine) {
		e.pool = pool
	}
}
