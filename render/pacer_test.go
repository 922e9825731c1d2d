package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/pixterm/engine"
	"pkt.systems/pixterm/framebuffer"
	"pkt.systems/pixterm/schema"
)

type flushEngine struct {
	fb      *framebuffer.Buffer
	flushes int
}

func (e *flushEngine) Process([]byte) {}
func (e *flushEngine) HandleKeyboard(byte) {}
func (e *flushEngine) HandleMouse(schema.MouseInput) {}
func (e *flushEngine) Rows() int { return 24 }
func (e *flushEngine) Columns() int { return 80 }
func (e *flushEngine) SetOutput(func([]byte)) {}

func (e *flushEngine) Flush() {
	e.flushes++
	e.fb.DrawPixel(0, 0, schema.RGB{R: uint8(e.flushes)})
}

type recordingSink struct {
	mu       sync.Mutex
	presents int
	last     []uint32
	mhz      uint32
	err      error
}

func (s *recordingSink) Present(fb *framebuffer.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.presents++
	s.last = make([]uint32, fb.Len())
	fb.CopyTo(s.last)
	return nil
}

func (s *recordingSink) RefreshMillihertz() uint32 { return s.mhz }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

func newTestPacer() (*Pacer, *flushEngine, *recordingSink) {
	fb := framebuffer.New(4, 4)
	eng := &flushEngine{fb: fb}
	sink := &recordingSink{}
	return &Pacer{
		Guard:  engine.NewGuard(eng),
		Buffer: fb,
		Flag:   NewDirtyFlag(false),
		Sink:   sink,
	}, eng, sink
}

func TestTickWithoutPendingDrawIsNoop(t *testing.T) {
	p, eng, sink := newTestPacer()
	for i := 0; i < 5; i++ {
		presented, err := p.Tick()
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if presented {
			t.Fatalf("expected no frame when flag is clear")
		}
	}
	if eng.flushes != 0 {
		t.Fatalf("expected zero flushes, got %d", eng.flushes)
	}
	if sink.count() != 0 {
		t.Fatalf("expected zero copies, got %d", sink.count())
	}
}

func TestTickCoalescesMarks(t *testing.T) {
	p, eng, sink := newTestPacer()
	for i := 0; i < 50; i++ {
		p.Flag.Mark()
	}
	if presented, err := p.Tick(); err != nil || !presented {
		t.Fatalf("expected one frame, presented=%v err=%v", presented, err)
	}
	if presented, _ := p.Tick(); presented {
		t.Fatalf("expected second tick to be a no-op")
	}
	if eng.flushes != 1 || sink.count() != 1 {
		t.Fatalf("expected 1 flush and 1 present, got %d and %d", eng.flushes, sink.count())
	}
	if p.Frames() != 1 {
		t.Fatalf("expected frame counter 1, got %d", p.Frames())
	}
}

func TestTickFlushesBeforeCopy(t *testing.T) {
	p, _, sink := newTestPacer()
	p.Flag.Mark()
	if _, err := p.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sink.last[0] != (schema.RGB{R: 1}).Pack() {
		t.Fatalf("expected flushed pixel in presented frame, got %#x", sink.last[0])
	}
}

func TestMarkBetweenTicksIsNeverLost(t *testing.T) {
	p, _, sink := newTestPacer()
	for round := 1; round <= 10; round++ {
		p.Flag.Mark()
		if presented, _ := p.Tick(); !presented {
			t.Fatalf("round %d: expected the next tick to present", round)
		}
		if presented, _ := p.Tick(); presented {
			t.Fatalf("round %d: expected idle tick", round)
		}
	}
	if sink.count() != 10 {
		t.Fatalf("expected 10 frames, got %d", sink.count())
	}
}

func TestTickReturnsPresentError(t *testing.T) {
	p, _, sink := newTestPacer()
	sink.err = errors.New("surface lost")
	p.Flag.Mark()
	if _, err := p.Tick(); err == nil {
		t.Fatalf("expected present error")
	}
	if !p.Flag.Pending() {
		t.Fatalf("expected failed frame to stay pending")
	}
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	presented, err := p.Tick()
	if err != nil || !presented {
		t.Fatalf("expected retry to present, got %v %v", presented, err)
	}
	if p.Frames() != 1 {
		t.Fatalf("expected frame counter 1, got %d", p.Frames())
	}
}

func TestIntervalFor(t *testing.T) {
	tests := []struct {
		name string
		mhz  uint32
		want time.Duration
	}{
		{name: "default", mhz: 0, want: 16 * time.Millisecond},
		{name: "60hz", mhz: 60000, want: 16 * time.Millisecond},
		{name: "144hz", mhz: 144000, want: 6 * time.Millisecond},
		{name: "30hz", mhz: 30000, want: 33 * time.Millisecond},
		{name: "absurd", mhz: 10_000_000, want: time.Millisecond},
	}
	for _, tc := range tests {
		if got := IntervalFor(tc.mhz); got != tc.want {
			t.Fatalf("%s: IntervalFor(%d) = %v, want %v", tc.name, tc.mhz, got, tc.want)
		}
	}
}

func TestIntervalPrefersOverride(t *testing.T) {
	p, _, sink := newTestPacer()
	sink.mhz = 30000
	if got := p.Interval(); got != 33*time.Millisecond {
		t.Fatalf("expected sink hint, got %v", got)
	}
	p.RefreshMillihertz = 120000
	if got := p.Interval(); got != 8*time.Millisecond {
		t.Fatalf("expected override, got %v", got)
	}
}

func TestRunPresentsPendingFrame(t *testing.T) {
	p, _, sink := newTestPacer()
	p.RefreshMillihertz = 1000000
	p.Flag.Mark()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if sink.count() != 1 {
		t.Fatalf("expected exactly one frame, got %d", sink.count())
	}
}
