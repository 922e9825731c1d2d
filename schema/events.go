package schema

// AppEventKind tags an AppEvent.
type AppEventKind int

const (
	// AppEventKeyboard carries one set-1 scancode byte.
	AppEventKeyboard AppEventKind = iota + 1
	// AppEventMouse carries a mouse input.
	AppEventMouse
)

// MouseInput is a mouse action forwarded to the terminal engine.
// Scroll is +1 for up and -1 for down.
type MouseInput struct {
	Scroll int
}

// AppEvent is a local input event bound for the session.
type AppEvent struct {
	Kind     AppEventKind
	Scancode byte
	Mouse    MouseInput
}

// KeyboardEvent builds a keyboard AppEvent.
func KeyboardEvent(b byte) AppEvent {
	return AppEvent{Kind: AppEventKeyboard, Scancode: b}
}

// ScrollEvent builds a mouse scroll AppEvent.
func ScrollEvent(lines int) AppEvent {
	return AppEvent{Kind: AppEventMouse, Mouse: MouseInput{Scroll: lines}}
}

// ChannelEventKind tags a ChannelEvent.
type ChannelEventKind int

const (
	// ChannelData carries bytes from the remote process.
	ChannelData ChannelEventKind = iota + 1
	// ChannelExitStatus carries the remote process exit status.
	ChannelExitStatus
)

// ChannelEvent is an inbound event from the remote channel.
type ChannelEvent struct {
	Kind       ChannelEventKind
	Data       []byte
	ExitStatus uint32
}

// DataEvent builds a data ChannelEvent.
func DataEvent(data []byte) ChannelEvent {
	return ChannelEvent{Kind: ChannelData, Data: data}
}

// ExitStatusEvent builds an exit status ChannelEvent.
func ExitStatusEvent(status uint32) ChannelEvent {
	return ChannelEvent{Kind: ChannelExitStatus, ExitStatus: status}
}
