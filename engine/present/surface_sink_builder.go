package present

import "github.com/Carmen-Shannon/oxy-pathtracer/common"

// SurfaceSinkBuilderOption is a functional option for configuring a surface sink.
type SurfaceSinkBuilderOption func(*surfaceSink)

// WithSampler overrides the sampler used to stretch the image over the surface.
// Zero fields fall back to linear filtering with repeat addressing.
//
// Parameters:
//   - sampler: the sampler configuration
//
// Returns:
//   - SurfaceSinkBuilderOption: a function that applies the sampler option
func WithSampler(sampler common.SamplerStagingData) SurfaceSinkBuilderOption {
	return func(s *surfaceSink) {
		s.sampler = sampler
	}
}
