package scene

import "github.com/Carmen-Shannon/oxy-pathtracer/common"

// ParamsBuilderOption is a functional option for configuring generation Params.
type ParamsBuilderOption func(*Params)

// NewParams builds generation parameters from the defaults and the given options, then validates them.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Params: the configured parameters
//   - error: wraps common.ErrInvalidParameter if validation fails
func NewParams(options ...ParamsBuilderOption) (Params, error) {
	p := Params{
		Count:           DefaultCount,
		Radius:          DefaultRadius,
		PlacementRadius: DefaultPlacementRadius,
		Brightness:      DefaultBrightness,
	}
	for _, opt := range options {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// WithCount sets the candidate draw budget.
//
// Parameters:
//   - count: number of candidates drawn per generation pass
//
// Returns:
//   - ParamsBuilderOption: option function to apply
func WithCount(count uint32) ParamsBuilderOption {
	return func(p *Params) {
		p.Count = count
	}
}

// WithRadius sets the closed interval sphere radii are drawn from.
//
// Parameters:
//   - min: smallest radius
//   - max: largest radius
//
// Returns:
//   - ParamsBuilderOption: option function to apply
func WithRadius(min, max float32) ParamsBuilderOption {
	return func(p *Params) {
		p.Radius = common.Range{Min: min, Max: max}
	}
}

// WithPlacementRadius sets the radius of the placement disk.
//
// Parameters:
//   - radius: disk radius around the origin on the ground plane
//
// Returns:
//   - ParamsBuilderOption: option function to apply
func WithPlacementRadius(radius float32) ParamsBuilderOption {
	return func(p *Params) {
		p.PlacementRadius = radius
	}
}

// WithBrightness sets the interval emissive brightness is drawn from.
//
// Parameters:
//   - min: smallest brightness multiplier
//   - max: largest brightness multiplier
//
// Returns:
//   - ParamsBuilderOption: option function to apply
func WithBrightness(min, max float32) ParamsBuilderOption {
	return func(p *Params) {
		p.Brightness = common.Range{Min: min, Max: max}
	}
}
