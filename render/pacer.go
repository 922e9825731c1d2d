// Package render paces presentation of the shared framebuffer independently
// of how often the remote session or local input changes it.
package render

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"pkt.systems/pixterm/engine"
	"pkt.systems/pixterm/framebuffer"
	"pkt.systems/pslog"
)

// Pacer presents at most one frame per tick, and only when the dirty flag
// was set since the previous tick.
type Pacer struct {
	Guard  *engine.Guard
	Buffer *framebuffer.Buffer
	Flag   *DirtyFlag
	Sink   Sink
	// RefreshMillihertz overrides the sink's refresh hint when non-zero.
	RefreshMillihertz uint32
	Logger            pslog.Logger

	frames atomic.Uint64
}

// Interval returns the tick period derived from the refresh rate.
func (p *Pacer) Interval() time.Duration {
	mhz := p.RefreshMillihertz
	if mhz == 0 && p.Sink != nil {
		mhz = p.Sink.RefreshMillihertz()
	}
	return IntervalFor(mhz)
}

// IntervalFor converts a refresh rate in millihertz to a frame duration,
// truncated to whole milliseconds. Zero selects 60 Hz.
func IntervalFor(mhz uint32) time.Duration {
	if mhz == 0 {
		mhz = DefaultRefreshMillihertz
	}
	ms := 1000.0 / (float64(mhz) / 1000.0)
	d := time.Duration(ms) * time.Millisecond
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// Frames returns the number of frames presented so far.
func (p *Pacer) Frames() uint64 {
	return p.frames.Load()
}

// Tick presents a frame when the dirty flag was set. It reports whether a
// frame was presented. A clear flag costs no flush and no copy. A failed
// present leaves the frame pending for the next tick.
func (p *Pacer) Tick() (bool, error) {
	if p.Flag == nil || !p.Flag.TestAndClear() {
		return false, nil
	}
	if p.Guard != nil {
		p.Guard.Do(func(e engine.Engine) {
			e.Flush()
		})
	}
	if p.Sink == nil || p.Buffer == nil {
		return false, errors.New("pacer has no sink or framebuffer")
	}
	if err := p.Sink.Present(p.Buffer); err != nil {
		p.Flag.Mark()
		return false, err
	}
	p.frames.Add(1)
	return true, nil
}

// Run ticks until ctx is cancelled. Present failures are logged and pacing
// continues.
func (p *Pacer) Run(ctx context.Context) error {
	log := p.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	interval := p.Interval()
	log.Debug("frame pacer start", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug("frame pacer stop", "frames", p.Frames())
			return nil
		case <-ticker.C:
			if _, err := p.Tick(); err != nil {
				log.Warn("frame present failed", "err", err)
			}
		}
	}
}
