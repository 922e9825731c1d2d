package surface

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"pkt.systems/pixterm/framebuffer"
)

// PNGSink keeps the last presented frame and writes it to Path on demand.
type PNGSink struct {
	Path string

	mu   sync.Mutex
	last *image.RGBA
}

// Present records a copy of the framebuffer.
func (s *PNGSink) Present(fb *framebuffer.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h := fb.Size()
	if s.last == nil || s.last.Rect.Dx() != w || s.last.Rect.Dy() != h {
		s.last = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	fb.SnapshotInto(s.last)
	return nil
}

// RefreshMillihertz reports no preference.
func (s *PNGSink) RefreshMillihertz() uint32 {
	return 0
}

// WriteFile encodes the last presented frame as PNG.
func (s *PNGSink) WriteFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return errors.New("snapshot: no frame presented")
	}
	if s.Path == "" {
		return errors.New("snapshot: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, s.last); err != nil {
		_ = f.Close()
		return fmt.Errorf("snapshot encode: %w", err)
	}
	return f.Close()
}
