package renderer

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
)

// computeBackendOptions holds the settings shared by every ComputeBackend implementation.
type computeBackendOptions struct {
	maxBounces uint32
	pool       worker.DynamicWorkerPool
	logger     common.Logger
}

// ComputeBackendBuilderOption is a functional option for configuring a ComputeBackend.
type ComputeBackendBuilderOption func(*computeBackendOptions)

func newComputeBackendOptions(options ...ComputeBackendBuilderOption) computeBackendOptions {
	o := computeBackendOptions{
		maxBounces: DefaultMaxBounces,
		logger:     common.DefaultLogger(),
	}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// WithBackendMaxBounces sets the number of path segments traced per sample.
// Zero is ignored.
//
// Parameters:
//   - bounces: the path length limit
//
// Returns:
//   - ComputeBackendBuilderOption: a function that applies the bounce limit
func WithBackendMaxBounces(bounces uint32) ComputeBackendBuilderOption {
	return func(o *computeBackendOptions) {
		if bounces > 0 {
			o.maxBounces = bounces
		}
	}
}

// WithBackendWorkerPool sets the worker pool the CPU backend spreads rows across.
// Without one the CPU backend renders on the calling goroutine.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - ComputeBackendBuilderOption: a function that applies the worker pool
func WithBackendWorkerPool(pool worker.DynamicWorkerPool) ComputeBackendBuilderOption {
	return func(o *computeBackendOptions) {
		o.pool = pool
	}
}

// WithBackendLogger sets the logger for allocation and dispatch messages.
func WithBackendLogger(logger common.Logger) ComputeBackendBuilderOption {
	return func(o *computeBackendOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
