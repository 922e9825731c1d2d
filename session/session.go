// Package session runs one remote shell session: it authenticates, opens
// the interactive channel sized from the terminal engine, and multiplexes
// local input, remote output and queued outbound bytes until the remote
// process exits or the client shuts down.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"pkt.systems/pixterm/engine"
	"pkt.systems/pixterm/internal/logx"
	"pkt.systems/pixterm/internal/queue"
	"pkt.systems/pixterm/render"
	"pkt.systems/pixterm/schema"
	"pkt.systems/pslog"
)

// DefaultTerm is the terminal type sent with the pty request.
const DefaultTerm = "xterm-256color"

// Params are the startup parameters supplied by the hosting environment.
type Params struct {
	Endpoint string
	Username string
	Password string
}

// Connector establishes an authenticated transport. Rejected credentials
// must be reported with an error matching schema.ErrAuthentication.
type Connector interface {
	Connect(ctx context.Context, params Params) (Transport, error)
}

// Transport is an authenticated connection able to open the interactive
// channel.
type Transport interface {
	OpenSession(ctx context.Context) (Channel, error)
	Disconnect(ctx context.Context, reason string) error
}

// Channel is the interactive remote channel.
type Channel interface {
	RequestPTY(ctx context.Context, term string, cols, rows int) error
	RequestShell(ctx context.Context) error
	Send(ctx context.Context, data []byte) error
	// Events yields remote output and the final exit status. A channel
	// closed without an exit status reports its cause through Err.
	Events() <-chan schema.ChannelEvent
	Err() error
}

// Deps are the collaborators a session drives. The session takes ownership
// of both queues and closes them when it ends, including when Connect
// fails.
type Deps struct {
	Connector Connector
	Guard     *engine.Guard
	Input     *queue.Bounded[schema.AppEvent]
	Outbound  *queue.Bounded[[]byte]
	Flag      *render.DirtyFlag
	// Term defaults to DefaultTerm.
	Term   string
	Logger pslog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Connector == nil:
		return errors.New("session: connector is required")
	case d.Guard == nil:
		return errors.New("session: engine guard is required")
	case d.Input == nil:
		return errors.New("session: input queue is required")
	case d.Outbound == nil:
		return errors.New("session: outbound queue is required")
	case d.Flag == nil:
		return errors.New("session: dirty flag is required")
	}
	return nil
}

func (d Deps) closeQueues() {
	if d.Input != nil {
		d.Input.Close()
	}
	if d.Outbound != nil {
		d.Outbound.Close()
	}
}

// Session is one authenticated remote shell session.
type Session struct {
	id       schema.SessionID
	params   Params
	guard    *engine.Guard
	input    *queue.Bounded[schema.AppEvent]
	outbound *queue.Bounded[[]byte]
	flag     *render.DirtyFlag
	term     string
	log      pslog.Logger

	mu         sync.Mutex
	state      schema.SessionState
	transport  Transport
	exitStatus uint32
	exited     bool
	outputErr  error
	reason     string

	closeOnce sync.Once
}

// Connect authenticates against the endpoint. On failure no channel is
// opened and the queues in deps are closed.
func Connect(ctx context.Context, params Params, deps Deps) (*Session, error) {
	if err := deps.validate(); err != nil {
		deps.closeQueues()
		return nil, err
	}
	id := newSessionID()
	log := deps.Logger
	if log == nil {
		log = logx.SessionFromContext(ctx, id)
	} else {
		log = logx.WithSession(log, id)
	}
	log = logx.WithRemote(log, params.Endpoint, params.Username)
	term := deps.Term
	if term == "" {
		term = DefaultTerm
	}
	s := &Session{
		id:       id,
		params:   params,
		guard:    deps.Guard,
		input:    deps.Input,
		outbound: deps.Outbound,
		flag:     deps.Flag,
		term:     term,
		log:      log,
		state:    schema.StateConnecting,
	}
	log.Debug("session connecting")

	t, err := deps.Connector.Connect(logx.ContextWithSessionLogger(ctx, log, id), params)
	if err != nil {
		if !errors.Is(err, schema.ErrAuthentication) && !errors.Is(err, schema.ErrTransport) {
			err = schema.NewTransportError("connect", err)
		}
		_ = s.fail(err)
		s.releaseQueues()
		return nil, err
	}
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
	if err := s.transition(schema.StateAuthenticated); err != nil {
		_ = t.Disconnect(context.WithoutCancel(ctx), "invalid state")
		s.releaseQueues()
		return nil, s.fail(err)
	}
	s.guard.Do(func(e engine.Engine) {
		e.SetOutput(s.enqueueOutput)
	})
	log.Info("session authenticated")
	return s, nil
}

// ID returns the session id used in logs.
func (s *Session) ID() schema.SessionID {
	return s.id
}

// ExitStatus returns the remote exit status once the remote process ended.
func (s *Session) ExitStatus() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitStatus, s.exited
}

// Run opens the interactive channel and runs the multiplexing loop until
// the remote process exits or local shutdown is requested (ctx cancelled or
// the input queue closed). It always closes the session before returning.
// The returned status is the remote exit status, zero on local shutdown.
func (s *Session) Run(ctx context.Context) (uint32, error) {
	if state := s.State(); state != schema.StateAuthenticated {
		return 0, fmt.Errorf("%w: run in state %s", schema.ErrInvalidState, state)
	}
	ctx = logx.ContextWithSessionLogger(ctx, s.log, s.id)
	defer s.Close(context.WithoutCancel(ctx))

	ch, err := s.open(ctx)
	if err != nil {
		s.setReason("channel setup failed")
		return 0, s.fail(err)
	}
	if err := s.transition(schema.StateRunning); err != nil {
		return 0, s.fail(err)
	}
	status, err := s.loop(ctx, ch)
	if err != nil {
		s.setReason("session failed")
		return 0, s.fail(err)
	}
	return status, nil
}

func (s *Session) open(ctx context.Context) (Channel, error) {
	ch, err := s.transport.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	geo := s.guard.Geometry()
	if err := ch.RequestPTY(ctx, s.term, geo.Columns, geo.Rows); err != nil {
		return nil, err
	}
	if err := ch.RequestShell(ctx); err != nil {
		return nil, err
	}
	if err := s.transition(schema.StateChannelOpen); err != nil {
		return nil, err
	}
	s.log.Info("ssh session opened", "term", s.term, "cols", geo.Columns, "rows", geo.Rows)
	return ch, nil
}

// loop services one ready source per iteration. select picks uniformly at
// random among ready cases, so no source starves.
func (s *Session) loop(ctx context.Context, ch Channel) (uint32, error) {
	inputs := s.input.C()
	outbound := s.outbound.C()
	events := ch.Events()
	for {
		select {
		case <-ctx.Done():
			return s.shutdown("local shutdown")
		case ev, ok := <-inputs:
			if !ok {
				return s.shutdown("input closed")
			}
			if err := s.handleInput(ctx, ch, ev); err != nil {
				return 0, err
			}
		case ev, ok := <-events:
			if !ok {
				err := ch.Err()
				if err == nil {
					err = schema.NewTransportError("receive", io.ErrUnexpectedEOF)
				}
				return 0, err
			}
			if ev.Kind == schema.ChannelExitStatus {
				return s.exit(ev.ExitStatus)
			}
			s.guard.Do(func(e engine.Engine) {
				e.Process(ev.Data)
			})
			s.flag.Mark()
			if err := s.engineOutputErr(); err != nil {
				return 0, err
			}
		case data, ok := <-outbound:
			if !ok {
				return s.shutdown("outbound closed")
			}
			if err := s.send(ctx, ch, data); err != nil {
				return 0, err
			}
		}
	}
}

func (s *Session) handleInput(ctx context.Context, ch Channel, ev schema.AppEvent) error {
	s.guard.Do(func(e engine.Engine) {
		switch ev.Kind {
		case schema.AppEventKeyboard:
			e.HandleKeyboard(ev.Scancode)
		case schema.AppEventMouse:
			e.HandleMouse(ev.Mouse)
		}
	})
	if err := s.engineOutputErr(); err != nil {
		return err
	}
	data, ok := s.outbound.TryPop()
	if !ok {
		s.flag.Mark()
		return nil
	}
	return s.send(ctx, ch, data)
}

func (s *Session) send(ctx context.Context, ch Channel, data []byte) error {
	if err := ch.Send(ctx, data); err != nil {
		if !errors.Is(err, schema.ErrTransport) {
			err = schema.NewTransportError("send", err)
		}
		return err
	}
	return nil
}

func (s *Session) exit(status uint32) (uint32, error) {
	s.mu.Lock()
	s.exitStatus = status
	s.exited = true
	s.mu.Unlock()
	s.log.Info("remote process exited", "exit_status", status)
	return status, s.leave("exit status " + strconv.FormatUint(uint64(status), 10))
}

func (s *Session) shutdown(reason string) (uint32, error) {
	s.log.Info("session shutdown requested", "reason", reason)
	return 0, s.leave(reason)
}

func (s *Session) leave(reason string) error {
	s.setReason(reason)
	return s.transition(schema.StateClosing)
}

func (s *Session) setReason(reason string) {
	s.mu.Lock()
	if s.reason == "" {
		s.reason = reason
	}
	s.mu.Unlock()
}

// enqueueOutput is the engine output callback. It runs under the guard, so
// it only queues; a saturated queue is recorded and ends the loop.
func (s *Session) enqueueOutput(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if err := s.outbound.TryPush(buf); err != nil {
		s.mu.Lock()
		if s.outputErr == nil {
			s.outputErr = &schema.QueueError{Queue: "outbound", Err: err}
		}
		s.mu.Unlock()
	}
}

func (s *Session) engineOutputErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputErr
}

// Close sends the disconnect and releases both queues. Disconnect errors
// are logged only. Close is idempotent and safe after a failure.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		state := s.State()
		if !state.Terminal() && state != schema.StateClosing {
			_ = s.leave("local close")
		}
		s.mu.Lock()
		t := s.transport
		reason := s.reason
		s.mu.Unlock()
		if reason == "" {
			reason = "closed"
		}
		if t != nil {
			if err := t.Disconnect(ctx, reason); err != nil {
				s.log.Warn("ssh disconnect failed", "err", err)
			}
		}
		s.releaseQueues()
		if s.State() == schema.StateClosing {
			_ = s.transition(schema.StateClosed)
		}
		s.log.Info("session closed", "state", s.State().String(), "reason", reason)
	})
}

func (s *Session) releaseQueues() {
	s.input.Close()
	s.outbound.Close()
}

func newSessionID() schema.SessionID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "session-unknown"
	}
	return schema.SessionID(hex.EncodeToString(buf[:]))
}
