package input

// InputBuilderOption is a functional option for configuring an Input.
type InputBuilderOption func(*inputImpl)

// WithSeed sets the initial scene seed.
//
// Parameters:
//   - seed: the initial seed
//
// Returns:
//   - InputBuilderOption: a function that applies the seed
func WithSeed(seed int64) InputBuilderOption {
	return func(in *inputImpl) {
		in.seed = seed
	}
}

// WithFovStep sets the field of view change per W/S step in degrees.
func WithFovStep(deg float32) InputBuilderOption {
	return func(in *inputImpl) {
		in.fovStep = deg
	}
}

// WithLightStep sets the light rotation per tick in radians while J/L/I/K are held.
func WithLightStep(rad float32) InputBuilderOption {
	return func(in *inputImpl) {
		in.lightStep = rad
	}
}

// WithZoomStep sets the zoom delta per tick while Q/E are held.
func WithZoomStep(step float32) InputBuilderOption {
	return func(in *inputImpl) {
		in.zoomStep = step
	}
}
