package framebuffer

import (
	"sync"
	"testing"

	"pkt.systems/pixterm/schema"
)

func TestDrawPixelPacksColor(t *testing.T) {
	fb := New(4, 3)
	fb.DrawPixel(2, 1, schema.RGB{R: 0x12, G: 0x34, B: 0x56})
	if got := fb.Pixel(2, 1); got != 0x123456 {
		t.Fatalf("expected 0x123456, got %#x", got)
	}
	if got := fb.Pixel(1, 2); got != 0 {
		t.Fatalf("expected untouched pixel to stay black, got %#x", got)
	}
}

func TestDrawPixelIgnoresOutOfBounds(t *testing.T) {
	fb := New(2, 2)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		fb.DrawPixel(p[0], p[1], schema.RGB{R: 0xff})
	}
	dst := make([]uint32, fb.Len())
	fb.CopyTo(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("pixel %d written by out of bounds draw: %#x", i, v)
		}
	}
}

func TestCopyToRowMajor(t *testing.T) {
	fb := New(3, 2)
	fb.DrawPixel(0, 1, schema.RGB{B: 1})
	fb.DrawPixel(2, 0, schema.RGB{B: 2})
	dst := make([]uint32, 6)
	if n := fb.CopyTo(dst); n != 6 {
		t.Fatalf("expected 6 pixels copied, got %d", n)
	}
	if dst[2] != 2 || dst[3] != 1 {
		t.Fatalf("unexpected layout %v", dst)
	}
	short := make([]uint32, 2)
	if n := fb.CopyTo(short); n != 2 {
		t.Fatalf("expected short copy of 2, got %d", n)
	}
}

func TestSnapshotMatchesPixels(t *testing.T) {
	fb := New(2, 2)
	fb.Fill(schema.RGB{R: 10, G: 20, B: 30})
	fb.DrawPixel(1, 1, schema.RGB{R: 200})
	img := fb.Snapshot()
	if c := img.RGBAAt(0, 0); c.R != 10 || c.G != 20 || c.B != 30 || c.A != 0xff {
		t.Fatalf("unexpected fill pixel %+v", c)
	}
	if c := img.RGBAAt(1, 1); c.R != 200 || c.G != 0 {
		t.Fatalf("unexpected drawn pixel %+v", c)
	}
}

func TestConcurrentWritersNeverTearPixels(t *testing.T) {
	fb := New(16, 16)
	a := schema.RGB{R: 0xaa, G: 0xaa, B: 0xaa}
	b := schema.RGB{R: 0x55, G: 0x55, B: 0x55}
	var wg sync.WaitGroup
	for _, c := range []schema.RGB{a, b} {
		wg.Add(1)
		go func(c schema.RGB) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				fb.Fill(c)
			}
		}(c)
	}
	dst := make([]uint32, fb.Len())
	for i := 0; i < 200; i++ {
		fb.CopyTo(dst)
		for _, v := range dst {
			if v != 0 && v != a.Pack() && v != b.Pack() {
				t.Fatalf("torn pixel %#x", v)
			}
		}
	}
	wg.Wait()
}
