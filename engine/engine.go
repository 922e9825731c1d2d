// Package engine defines the terminal engine contract consumed by the
// session orchestrator and the frame pacer, and the guard that serializes
// access to it.
package engine

import (
	"sync"

	"pkt.systems/pixterm/schema"
)

// Engine interprets remote output, translates local input and renders into
// a DrawTarget. Implementations are not safe for concurrent use; callers go
// through a Guard.
type Engine interface {
	// Process feeds bytes received from the remote session.
	Process(data []byte)
	// HandleKeyboard applies one set-1 scancode byte. Bytes that must reach
	// the remote session are passed synchronously to the output callback.
	HandleKeyboard(scancode byte)
	// HandleMouse applies a mouse input, possibly emitting output bytes.
	HandleMouse(input schema.MouseInput)
	// Flush redraws pending changes into the draw target.
	Flush()
	// Rows returns the grid height in cells.
	Rows() int
	// Columns returns the grid width in cells.
	Columns() int
	// SetOutput registers the callback receiving bytes bound upstream.
	SetOutput(fn func([]byte))
}

// DrawTarget is the pixel surface an engine renders into.
type DrawTarget interface {
	Size() (width, height int)
	DrawPixel(x, y int, c schema.RGB)
}

// Guard is the exclusive-access guard around an Engine.
type Guard struct {
	mu  sync.Mutex
	eng Engine
}

// NewGuard wraps eng.
func NewGuard(eng Engine) *Guard {
	return &Guard{eng: eng}
}

// Do runs fn with exclusive access to the engine. fn must not block on I/O.
func (g *Guard) Do(fn func(Engine)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.eng)
}

// Geometry returns the current grid size.
func (g *Guard) Geometry() schema.Geometry {
	var geo schema.Geometry
	g.Do(func(e Engine) {
		geo = schema.Geometry{Rows: e.Rows(), Columns: e.Columns()}
	})
	return geo
}
