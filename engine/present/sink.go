// Package present delivers converged frames to their destinations: PNG snapshots on disk and
// the window surface.
package present

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-pathtracer/engine/accumulator"
)

// Sink receives the converged image once per tick.
type Sink interface {
	// Present shows or stores a frame. The frame's image is owned by the controller and must not
	// be retained past the call.
	//
	// Parameters:
	//   - frame: the frame produced by the accumulation controller
	//
	// Returns:
	//   - error: a sink-specific failure; the controller state is unaffected
	Present(frame accumulator.Frame) error

	// Release frees any resources held by the sink.
	Release()
}

type multiSink struct {
	sinks []Sink
}

var _ Sink = &multiSink{}

// NewMultiSink fans each frame out to several sinks. Nil sinks are skipped.
//
// Parameters:
//   - sinks: the destinations, presented in order
//
// Returns:
//   - Sink: the fan-out sink
func NewMultiSink(sinks ...Sink) Sink {
	m := &multiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Present presents to every sink even when an earlier one fails and joins the errors.
func (m *multiSink) Present(frame accumulator.Frame) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Present(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiSink) Release() {
	for _, s := range m.sinks {
		s.Release()
	}
}
