package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pkt.systems/pixterm/engine"
	"pkt.systems/pixterm/input"
	"pkt.systems/pixterm/internal/queue"
	"pkt.systems/pixterm/render"
	"pkt.systems/pixterm/schema"
)

// keyEngine maps a few press scancodes to bytes and emits them through the
// output callback. Process records inbound data and optionally replies.
type keyEngine struct {
	rows, cols int
	keys       map[byte][]byte
	reply      []byte
	output     func([]byte)

	processed []byte
	keyboard  int
	mouse     []schema.MouseInput
	flushes   int
}

func newKeyEngine(rows, cols int) *keyEngine {
	e := &keyEngine{rows: rows, cols: cols, keys: map[byte][]byte{}}
	for code, b := range map[input.KeyCode]byte{input.KeyL: 'l', input.KeyS: 's', input.KeyEnter: '\n'} {
		sc, _ := input.Scancode(code)
		e.keys[byte(sc)] = []byte{b}
	}
	return e
}

func (e *keyEngine) Process(data []byte) {
	e.processed = append(e.processed, data...)
	if len(e.reply) > 0 && e.output != nil {
		e.output(e.reply)
	}
}

func (e *keyEngine) HandleKeyboard(scancode byte) {
	e.keyboard++
	if seq, ok := e.keys[scancode]; ok && e.output != nil {
		e.output(seq)
	}
}

func (e *keyEngine) HandleMouse(in schema.MouseInput) { e.mouse = append(e.mouse, in) }
func (e *keyEngine) Flush() { e.flushes++ }
func (e *keyEngine) Rows() int { return e.rows }
func (e *keyEngine) Columns() int { return e.cols }
func (e *keyEngine) SetOutput(fn func([]byte)) { e.output = fn }

var _ engine.Engine = (*keyEngine)(nil)

type fakeChannel struct {
	mu           sync.Mutex
	ops          []string
	sent         []byte
	sendErr      error
	events       chan schema.ChannelEvent
	err          error
	pty          [3]any
	disconnected bool
	afterClose   []string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan schema.ChannelEvent, 16)}
}

func (c *fakeChannel) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
	if c.disconnected {
		c.afterClose = append(c.afterClose, op)
	}
}

func (c *fakeChannel) RequestPTY(_ context.Context, term string, cols, rows int) error {
	c.record("request_pty")
	c.mu.Lock()
	c.pty = [3]any{term, cols, rows}
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) RequestShell(context.Context) error {
	c.record("request_shell")
	return nil
}

func (c *fakeChannel) Send(_ context.Context, data []byte) error {
	c.record("send")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data...)
	return nil
}

func (c *fakeChannel) Events() <-chan schema.ChannelEvent {
	return c.events
}

func (c *fakeChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeChannel) Sent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.sent)
}

func (c *fakeChannel) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ops...)
}

type fakeTransport struct {
	ch      *fakeChannel
	openErr error

	mu      sync.Mutex
	opened  int
	reasons []string
}

func (t *fakeTransport) OpenSession(context.Context) (Channel, error) {
	t.mu.Lock()
	t.opened++
	t.mu.Unlock()
	if t.openErr != nil {
		return nil, t.openErr
	}
	t.ch.record("open_session")
	return t.ch, nil
}

func (t *fakeTransport) Disconnect(_ context.Context, reason string) error {
	t.mu.Lock()
	t.reasons = append(t.reasons, reason)
	t.mu.Unlock()
	t.ch.mu.Lock()
	t.ch.disconnected = true
	t.ch.mu.Unlock()
	return errors.New("disconnect after close is best effort")
}

func (t *fakeTransport) Reasons() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.reasons...)
}

type fakeConnector struct {
	transport *fakeTransport
	err       error
	calls     int
	ctx       context.Context
}

func (c *fakeConnector) Connect(ctx context.Context, _ Params) (Transport, error) {
	c.calls++
	c.ctx = ctx
	if c.err != nil {
		return nil, c.err
	}
	return c.transport, nil
}

type harness struct {
	engine    *keyEngine
	channel   *fakeChannel
	transport *fakeTransport
	connector *fakeConnector
	router    *input.Router
	outbound  *queue.Bounded[[]byte]
	flag      *render.DirtyFlag
	deps      Deps
}

func newHarness(t *testing.T, outboundDepth int) *harness {
	t.Helper()
	h := &harness{
		engine:   newKeyEngine(24, 80),
		channel:  newFakeChannel(),
		router:   input.NewRouter(64),
		outbound: queue.NewBounded[[]byte](outboundDepth),
		flag:     render.NewDirtyFlag(false),
	}
	h.transport = &fakeTransport{ch: h.channel}
	h.connector = &fakeConnector{transport: h.transport}
	h.deps = Deps{
		Connector: h.connector,
		Guard:     engine.NewGuard(h.engine),
		Input:     h.router.Queue(),
		Outbound:  h.outbound,
		Flag:      h.flag,
	}
	return h
}

func (h *harness) connect(t *testing.T) *Session {
	t.Helper()
	sess, err := Connect(context.Background(), Params{Endpoint: "box:22", Username: "alice", Password: "pw"}, h.deps)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return sess
}

type runResult struct {
	status uint32
	err    error
}

func startRun(ctx context.Context, sess *Session) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		status, err := sess.Run(ctx)
		done <- runResult{status: status, err: err}
	}()
	return done
}

func waitResult(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
		return runResult{}
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func tapAll(t *testing.T, r *input.Router, codes ...input.KeyCode) {
	t.Helper()
	for _, code := range codes {
		if err := r.Tap(code); err != nil {
			t.Fatalf("tap %v: %v", code, err)
		}
	}
}

func authError() error {
	return fmt.Errorf("ssh login: %w", schema.ErrAuthentication)
}
