// Package framebuffer holds the pixel surface shared between the terminal
// engine and the presentation path.
//
// Every pixel is an independent atomic word. Writers store pixels without a
// lock and readers scan them sequentially, so a scan racing a write may mix
// old and new pixels across the frame but never within one pixel. The next
// frame repaints over any such mix.
package framebuffer

import (
	"image"
	"sync/atomic"

	"pkt.systems/pixterm/schema"
)

// Buffer is a fixed-size grid of packed 0x00RRGGBB pixels.
type Buffer struct {
	width  int
	height int
	pixels []atomic.Uint32
}

// New allocates a width x height buffer cleared to black.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		width:  width,
		height: height,
		pixels: make([]atomic.Uint32, width*height),
	}
}

// Size returns the width and height in pixels.
func (b *Buffer) Size() (int, int) {
	return b.width, b.height
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return len(b.pixels)
}

// DrawPixel stores c at (x, y). Out of bounds writes are ignored.
func (b *Buffer) DrawPixel(x, y int, c schema.RGB) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	b.pixels[y*b.width+x].Store(c.Pack())
}

// Pixel returns the packed value at (x, y), or 0 when out of bounds.
func (b *Buffer) Pixel(x, y int) uint32 {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0
	}
	return b.pixels[y*b.width+x].Load()
}

// Fill stores c into every pixel.
func (b *Buffer) Fill(c schema.RGB) {
	v := c.Pack()
	for i := range b.pixels {
		b.pixels[i].Store(v)
	}
}

// CopyTo loads pixels in row-major order into dst and returns the count copied.
func (b *Buffer) CopyTo(dst []uint32) int {
	n := len(b.pixels)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = b.pixels[i].Load()
	}
	return n
}

// Snapshot copies the buffer into a new opaque RGBA image.
func (b *Buffer) Snapshot() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	b.SnapshotInto(img)
	return img
}

// SnapshotInto copies the buffer into img, which must be at least as large
// as the buffer. Extra area is left untouched.
func (b *Buffer) SnapshotInto(img *image.RGBA) {
	bounds := img.Bounds()
	for y := 0; y < b.height && y < bounds.Dy(); y++ {
		row := y * b.width
		off := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < b.width && x < bounds.Dx(); x++ {
			c := schema.UnpackRGB(b.pixels[row+x].Load())
			img.Pix[off+0] = c.R
			img.Pix[off+1] = c.G
			img.Pix[off+2] = c.B
			img.Pix[off+3] = 0xff
			off += 4
		}
	}
}
