package schema

import "strconv"

// SessionID identifies one client session in logs.
type SessionID string

// SessionState is a step of the session lifecycle.
type SessionState int

const (
	// StateConnecting is the initial state while the transport handshake runs.
	StateConnecting SessionState = iota
	// StateAuthenticated means credentials were accepted.
	StateAuthenticated
	// StateChannelOpen means the interactive channel, pty and shell are set up.
	StateChannelOpen
	// StateRunning means the multiplexing loop is active.
	StateRunning
	// StateClosing means the session is sending its disconnect.
	StateClosing
	// StateClosed is terminal after a graceful close.
	StateClosed
	// StateFailed is terminal after an unrecoverable error.
	StateFailed
)

var stateNames = [...]string{
	StateConnecting:    "connecting",
	StateAuthenticated: "authenticated",
	StateChannelOpen:   "channel_open",
	StateRunning:       "running",
	StateClosing:       "closing",
	StateClosed:        "closed",
	StateFailed:        "failed",
}

func (s SessionState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether no further transition can leave the state.
func (s SessionState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Geometry is a terminal size in character cells.
type Geometry struct {
	Rows    int
	Columns int
}

// RGB is an 8-bit per channel colour.
type RGB struct {
	R, G, B uint8
}

// Pack returns the colour as 0x00RRGGBB.
func (c RGB) Pack() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// UnpackRGB is the inverse of RGB.Pack.
func UnpackRGB(v uint32) RGB {
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}
