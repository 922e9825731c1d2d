package engine

import (
	"sync"
	"testing"

	"pkt.systems/pixterm/schema"
)

type countingEngine struct {
	inside  int
	overlap bool
	calls   int
}

func (e *countingEngine) enter() {
	e.inside++
	if e.inside > 1 {
		e.overlap = true
	}
	e.calls++
}

func (e *countingEngine) leave() { e.inside-- }

func (e *countingEngine) Process([]byte) { e.enter(); e.leave() }
func (e *countingEngine) HandleKeyboard(byte) { e.enter(); e.leave() }
func (e *countingEngine) HandleMouse(schema.MouseInput) { e.enter(); e.leave() }
func (e *countingEngine) Flush() { e.enter(); e.leave() }
func (e *countingEngine) Rows() int { return 24 }
func (e *countingEngine) Columns() int { return 80 }
func (e *countingEngine) SetOutput(func([]byte)) {}

func TestGuardSerializesAccess(t *testing.T) {
	eng := &countingEngine{}
	guard := NewGuard(eng)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				guard.Do(func(e Engine) {
					e.Process(nil)
					e.Flush()
				})
			}
		}()
	}
	wg.Wait()
	if eng.overlap {
		t.Fatalf("expected no overlapping engine calls")
	}
	if eng.calls != 8*100*2 {
		t.Fatalf("expected %d calls, got %d", 8*100*2, eng.calls)
	}
}

func TestGuardGeometry(t *testing.T) {
	guard := NewGuard(&countingEngine{})
	geo := guard.Geometry()
	if geo.Rows != 24 || geo.Columns != 80 {
		t.Fatalf("expected 80x24, got %+v", geo)
	}
}
