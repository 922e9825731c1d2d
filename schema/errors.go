package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates a connect, handshake, send or receive failure.
	ErrTransport = errors.New("transport error")
	// ErrAuthentication indicates the remote rejected the supplied credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrEngine indicates the terminal engine reported an unexpected state.
	ErrEngine = errors.New("terminal engine error")
	// ErrQueueSaturated indicates an input or outbound queue was full.
	ErrQueueSaturated = errors.New("queue saturated")
	// ErrSessionClosed indicates the session or one of its queues is closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrInvalidState indicates an operation was attempted in the wrong session state.
	ErrInvalidState = errors.New("invalid session state")
)

// TransportError records the transport operation that failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport " + e.Op
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the cause and the ErrTransport sentinel.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// NewTransportError wraps err as a TransportError for op. A nil err stays nil.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *TransportError
	if errors.As(err, &existing) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// QueueError names the queue that saturated or closed.
type QueueError struct {
	Queue string
	Err   error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("%s queue: %v", e.Queue, e.Err)
}

func (e *QueueError) Unwrap() error {
	return e.Err
}
