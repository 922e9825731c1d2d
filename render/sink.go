package render

import (
	"errors"

	"pkt.systems/pixterm/framebuffer"
)

// DefaultRefreshMillihertz is used when the sink reports no refresh rate.
const DefaultRefreshMillihertz = 60000

// Sink presents frames on a display surface.
type Sink interface {
	// Present copies the whole framebuffer onto the surface and shows it.
	Present(fb *framebuffer.Buffer) error
	// RefreshMillihertz is the preferred refresh rate, or 0 when unknown.
	RefreshMillihertz() uint32
}

// Tee presents every frame on all sinks. The refresh hint is the first
// non-zero hint.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

type teeSink []Sink

func (t teeSink) Present(fb *framebuffer.Buffer) error {
	var errs []error
	for _, s := range t {
		if err := s.Present(fb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeSink) RefreshMillihertz() uint32 {
	for _, s := range t {
		if mhz := s.RefreshMillihertz(); mhz != 0 {
			return mhz
		}
	}
	return 0
}
