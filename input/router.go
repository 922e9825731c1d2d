// Package input turns local key and scroll input into the bounded queue of
// session-bound events.
package input

import (
	"fmt"

	"pkt.systems/pixterm/internal/queue"
	"pkt.systems/pixterm/schema"
)

// DefaultDepth absorbs input bursts; a full queue means the session loop
// has stalled.
const DefaultDepth = 1024

// ScrollDelta is a wheel movement, either in lines or in pixels. Positive
// values scroll up.
type ScrollDelta struct {
	Lines  float64
	Pixels float64
}

// Router converts local input into AppEvents. Enqueueing never blocks; a
// saturated queue returns an error the caller must treat as fatal.
type Router struct {
	events *queue.Bounded[schema.AppEvent]
}

// NewRouter creates a router with its own queue of the given depth.
func NewRouter(depth int) *Router {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Router{events: queue.NewBounded[schema.AppEvent](depth)}
}

// Queue exposes the event queue consumed by the session.
func (r *Router) Queue() *queue.Bounded[schema.AppEvent] {
	return r.events
}

// Events returns the receive side of the event queue.
func (r *Router) Events() <-chan schema.AppEvent {
	return r.events.C()
}

// Key queues the scancode bytes for a key press or release. Keys without a
// scancode are ignored.
func (r *Router) Key(code KeyCode, pressed bool) error {
	seq, ok := Encode(code, pressed)
	if !ok {
		return nil
	}
	for _, b := range seq {
		if err := r.push(schema.KeyboardEvent(b)); err != nil {
			return err
		}
	}
	return nil
}

// Tap queues a press followed by a release.
func (r *Router) Tap(code KeyCode) error {
	if err := r.Key(code, true); err != nil {
		return err
	}
	return r.Key(code, false)
}

// Scroll queues exactly one scroll unit in the direction of delta. Pixel
// deltas take precedence when both are set; magnitude is ignored.
func (r *Router) Scroll(delta ScrollDelta) error {
	v := delta.Lines
	if delta.Pixels != 0 {
		v = delta.Pixels
	}
	if v == 0 {
		return nil
	}
	lines := -1
	if v > 0 {
		lines = 1
	}
	return r.push(schema.ScrollEvent(lines))
}

// Close stops accepting input; the session loop sees the closed queue as a
// local shutdown request.
func (r *Router) Close() {
	r.events.Close()
}

func (r *Router) push(ev schema.AppEvent) error {
	if err := r.events.TryPush(ev); err != nil {
		return &schema.QueueError{Queue: "input", Err: fmt.Errorf("enqueue %d: %w", ev.Kind, err)}
	}
	return nil
}
