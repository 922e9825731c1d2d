// Package surface presents the framebuffer in the local terminal through
// tcell and feeds local keys and wheel events to the input router.
package surface

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"

	"pkt.systems/pixterm/framebuffer"
	"pkt.systems/pixterm/input"
	"pkt.systems/pixterm/render"
	"pkt.systems/pslog"
)

// halfBlock paints the upper half of a cell with the foreground colour and
// the lower half with the background, so each cell shows two pixels.
const halfBlock = '▀'

// DefaultQuitKey ends the input pump.
const DefaultQuitKey = tcell.KeyCtrlRightSq

// Options configures a Terminal.
type Options struct {
	// RefreshMillihertz is reported to the pacer; terminals expose none.
	RefreshMillihertz uint32
	// QuitKey defaults to Ctrl-].
	QuitKey tcell.Key
	// Scaler defaults to draw.ApproxBiLinear.
	Scaler draw.Scaler
	// OnResize runs after the screen was resized and synced.
	OnResize func()
	Logger   pslog.Logger
}

// Terminal is a presentation sink and input source backed by a tcell
// screen. The caller owns the screen's Init and Fini.
type Terminal struct {
	screen  tcell.Screen
	refresh uint32
	quitKey tcell.Key
	scaler  draw.Scaler
	resize  func()
	log     pslog.Logger

	mu     sync.Mutex
	frame  *image.RGBA
	scaled *image.RGBA
}

var _ render.Sink = (*Terminal)(nil)

// NewTerminal wraps an initialized screen.
func NewTerminal(screen tcell.Screen, opts Options) *Terminal {
	t := &Terminal{
		screen:  screen,
		refresh: opts.RefreshMillihertz,
		quitKey: opts.QuitKey,
		scaler:  opts.Scaler,
		resize:  opts.OnResize,
		log:     opts.Logger,
	}
	if t.quitKey == 0 {
		t.quitKey = DefaultQuitKey
	}
	if t.scaler == nil {
		t.scaler = draw.ApproxBiLinear
	}
	if t.log == nil {
		t.log = pslog.Ctx(context.Background())
	}
	return t
}

// RefreshMillihertz implements render.Sink.
func (t *Terminal) RefreshMillihertz() uint32 {
	return t.refresh
}

// Present copies the framebuffer, scales it to two pixels per cell and
// shows it.
func (t *Terminal) Present(fb *framebuffer.Buffer) error {
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	w, h := fb.Size()
	if t.frame == nil || t.frame.Rect.Dx() != w || t.frame.Rect.Dy() != h {
		t.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	fb.SnapshotInto(t.frame)

	target := image.Rect(0, 0, cols, rows*2)
	if t.scaled == nil || t.scaled.Rect != target {
		t.scaled = image.NewRGBA(target)
	}
	t.scaler.Scale(t.scaled, target, t.frame, t.frame.Rect, draw.Src, nil)

	for y := range rows {
		for x := range cols {
			top := t.scaled.RGBAAt(x, 2*y)
			bottom := t.scaled.RGBAAt(x, 2*y+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			t.screen.SetContent(x, y, halfBlock, nil, style)
		}
	}
	t.screen.Show()
	return nil
}

// ErrQuit is returned by Pump when the quit key was pressed.
var ErrQuit = errors.New("surface: quit requested")

// Pump forwards screen events to router until ctx ends or the quit key is
// pressed. Router errors are returned as they are fatal to the session.
func (t *Terminal) Pump(ctx context.Context, router *input.Router) error {
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	go t.screen.ChannelEvents(events, quit)
	defer close(quit)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := t.handle(ev, router); err != nil {
				return err
			}
		}
	}
}

func (t *Terminal) handle(ev tcell.Event, router *input.Router) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == t.quitKey {
			t.log.Info("local quit key pressed")
			return ErrQuit
		}
		s, ok := translateKey(ev)
		if !ok {
			t.log.Debug("unmapped key ignored", "key", ev.Name())
			return nil
		}
		return s.send(router)
	case *tcell.EventMouse:
		buttons := ev.Buttons()
		switch {
		case buttons&tcell.WheelUp != 0:
			return router.Scroll(input.ScrollDelta{Lines: 1})
		case buttons&tcell.WheelDown != 0:
			return router.Scroll(input.ScrollDelta{Lines: -1})
		}
	case *tcell.EventResize:
		t.screen.Sync()
		if t.resize != nil {
			t.resize()
		}
	}
	return nil
}
