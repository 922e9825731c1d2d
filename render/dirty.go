package render

import "sync/atomic"

// DirtyFlag signals that the framebuffer holds content not yet presented.
// It is a single slot: any number of marks between two ticks coalesce into
// one redraw.
type DirtyFlag struct {
	v atomic.Bool
}

// NewDirtyFlag returns a flag with the given initial state.
func NewDirtyFlag(pending bool) *DirtyFlag {
	f := &DirtyFlag{}
	f.v.Store(pending)
	return f
}

// Mark records that a redraw is needed.
func (f *DirtyFlag) Mark() {
	f.v.Store(true)
}

// TestAndClear clears the flag and reports whether it was set.
func (f *DirtyFlag) TestAndClear() bool {
	return f.v.Swap(false)
}

// Pending reports the flag without clearing it.
func (f *DirtyFlag) Pending() bool {
	return f.v.Load()
}
