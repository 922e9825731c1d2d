package session

import (
	"fmt"

	"pkt.systems/pixterm/internal/logx"
	"pkt.systems/pixterm/schema"
)

// transitions lists the forward edges of the lifecycle. Failed is reachable
// from every non-terminal state and is handled separately.
var transitions = map[schema.SessionState][]schema.SessionState{
	schema.StateConnecting:    {schema.StateAuthenticated},
	schema.StateAuthenticated: {schema.StateChannelOpen, schema.StateClosing},
	schema.StateChannelOpen:   {schema.StateRunning, schema.StateClosing},
	schema.StateRunning:       {schema.StateClosing},
	schema.StateClosing:       {schema.StateClosed},
}

func validTransition(from, to schema.SessionState) bool {
	if from.Terminal() {
		return false
	}
	if to == schema.StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// State returns the current lifecycle state.
func (s *Session) State() schema.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(to schema.SessionState) error {
	s.mu.Lock()
	from := s.state
	if !validTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", schema.ErrInvalidState, from, to)
	}
	s.state = to
	s.mu.Unlock()
	logx.WithState(s.log, to).Debug("session state", "from", from.String())
	return nil
}

// fail moves the session to Failed unless it already reached a terminal
// state, and returns err.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	from := s.state
	if !from.Terminal() {
		s.state = schema.StateFailed
	}
	s.mu.Unlock()
	if !from.Terminal() {
		logx.WithState(s.log, schema.StateFailed).Warn("session failed", "from", from.String(), "err", err)
	}
	return err
}
