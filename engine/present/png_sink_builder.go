package present

import "github.com/Carmen-Shannon/oxy-pathtracer/common"

// PNGSinkBuilderOption is a functional option for configuring a PNG sink.
type PNGSinkBuilderOption func(*pngSink)

// WithOverlay draws the "Seed = N" and "Samples = N" counters into the stored image.
// Snapshots are stored without the overlay by default.
//
// Parameters:
//   - enabled: true to draw the overlay
//
// Returns:
//   - PNGSinkBuilderOption: a function that applies the overlay option
func WithOverlay(enabled bool) PNGSinkBuilderOption {
	return func(s *pngSink) {
		s.overlay = enabled
	}
}

// WithPNGLogger sets the logger used to report saved files.
func WithPNGLogger(logger common.Logger) PNGSinkBuilderOption {
	return func(s *pngSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}
