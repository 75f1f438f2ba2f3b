package common

import "errors"

// Error taxonomy shared by the scene generator, the accumulation controller and the compute backends.
// Callers match with errors.Is; every producer wraps one of these with fmt.Errorf and %w.
var (
	// ErrInvalidParameter is returned when a configuration value is rejected at construction time.
	// Values are never silently clamped.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrResourceAllocation is returned when a buffer, texture or scene upload could not be allocated.
	// It is fatal for the current activation; the caller may retry.
	ErrResourceAllocation = errors.New("resource allocation failure")

	// ErrBackendDispatch is returned when a compute dispatch fails.
	// It is fatal for the current tick only.
	ErrBackendDispatch = errors.New("backend dispatch failure")

	// ErrNotActive is returned when a per-frame operation is attempted outside of an activation.
	ErrNotActive = errors.New("not active")
)
