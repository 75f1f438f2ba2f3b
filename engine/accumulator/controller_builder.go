package accumulator

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
)

// ControllerBuilderOption is a functional option applied to a controller during construction via NewController.
type ControllerBuilderOption func(*controllerImpl)

// WithBackend sets the compute backend that produces raw samples. Required.
//
// Parameters:
//   - backend: the compute backend
//
// Returns:
//   - ControllerBuilderOption: a function that applies the backend option to a controller
func WithBackend(backend renderer.ComputeBackend) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.backend = backend
	}
}

// WithMaxSampleCount sets the sample cap. Values below 1 are rejected by NewController.
//
// Parameters:
//   - n: the maximum number of samples to accumulate
//
// Returns:
//   - ControllerBuilderOption: a function that applies the cap to a controller
func WithMaxSampleCount(n uint32) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.maxSampleCount = n
	}
}

// WithSceneParams sets the parameters used for every scene generation.
//
// Parameters:
//   - params: the generation parameters, validated by NewController
//
// Returns:
//   - ControllerBuilderOption: a function that applies the parameters to a controller
func WithSceneParams(params scene.Params) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.params = params
	}
}

// WithSeed sets the seed of the scene generated on activation.
//
// Parameters:
//   - seed: the initial seed
//
// Returns:
//   - ControllerBuilderOption: a function that applies the seed to a controller
func WithSeed(seed int64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.seed = seed
	}
}

// WithFov sets the field of view the controller assumes on activation, so that the first Step with
// the same value does not count as a change.
//
// Parameters:
//   - fov: field of view in degrees
//
// Returns:
//   - ControllerBuilderOption: a function that applies the field of view to a controller
func WithFov(fov float32) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.fov = fov
	}
}

// WithResolution sets the buffer resolution allocated on activation.
//
// Parameters:
//   - res: the initial resolution
//
// Returns:
//   - ControllerBuilderOption: a function that applies the resolution to a controller
func WithResolution(res common.Resolution) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.resolution = res
	}
}

// WithWatched registers transform-carrying collaborators whose changes reset accumulation.
//
// Parameters:
//   - watchers: the camera, the directional light, or any other Watcher
//
// Returns:
//   - ControllerBuilderOption: a function that appends the watchers to a controller
func WithWatched(watchers ...Watcher) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.watched = append(c.watched, watchers...)
	}
}

// WithLogger sets the logger. Defaults to log.Default().
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - ControllerBuilderOption: a function that applies the logger to a controller
func WithLogger(logger common.Logger) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.logger = logger
	}
}

// WithRand sets the random stream that jitter offsets and noise seeds are drawn from.
// Scene generation never reads it.
//
// Parameters:
//   - rng: the random stream
//
// Returns:
//   - ControllerBuilderOption: a function that applies the stream to a controller
func WithRand(rng *rand.Rand) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.rng = rng
	}
}

// WithWorkerPool shares an existing pool for the row-parallel blend. The controller does not stop it.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - ControllerBuilderOption: a function that applies the pool to a controller
func WithWorkerPool(pool worker.DynamicWorkerPool) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.pool = pool
	}
}

// WithBlendWorkers makes the controller create and own a pool of n workers for the blend
// when no pool is shared through WithWorkerPool.
//
// Parameters:
//   - n: number of workers; 1 or less blends on the calling goroutine
//
// Returns:
//   - ControllerBuilderOption: a function that applies the worker count to a controller
func WithBlendWorkers(n int) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.blendWorkers = n
	}
}
