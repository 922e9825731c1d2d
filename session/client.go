package session

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pixterm/engine"
	"pkt.systems/pixterm/framebuffer"
	"pkt.systems/pixterm/input"
	"pkt.systems/pixterm/internal/glyphterm"
	"pkt.systems/pixterm/internal/queue"
	"pkt.systems/pixterm/render"
	"pkt.systems/pixterm/schema"
	"pkt.systems/pslog"
)

const (
	// DefaultWidth and DefaultHeight size the framebuffer in pixels.
	DefaultWidth  = 1024
	DefaultHeight = 768
	// DefaultOutboundDepth bounds bytes queued by the engine for upstream.
	DefaultOutboundDepth = 1024
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Params    Params
	Connector Connector
	Sink      render.Sink
	// Width and Height size the framebuffer in pixels.
	Width  int
	Height int
	// RefreshMillihertz overrides the sink's refresh hint when non-zero.
	RefreshMillihertz uint32
	InputDepth        int
	OutboundDepth     int
	Term              string
	Terminal          glyphterm.Options
	Logger            pslog.Logger
}

// Client wires the framebuffer, the terminal engine, the queues, the input
// router and the frame pacer around one session.
type Client struct {
	opts     ClientOptions
	buffer   *framebuffer.Buffer
	terminal *glyphterm.Terminal
	guard    *engine.Guard
	router   *input.Router
	outbound *queue.Bounded[[]byte]
	flag     *render.DirtyFlag
	pacer    *render.Pacer

	mu      sync.Mutex
	session *Session
}

// NewClient builds a client. Nothing connects until Run.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Connector == nil {
		return nil, errors.New("session: connector is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("session: presentation sink is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.OutboundDepth <= 0 {
		opts.OutboundDepth = DefaultOutboundDepth
	}
	buffer := framebuffer.New(opts.Width, opts.Height)
	termOpts := opts.Terminal
	if termOpts.Logger == nil {
		termOpts.Logger = opts.Logger
	}
	terminal := glyphterm.New(buffer, termOpts)
	guard := engine.NewGuard(terminal)
	flag := render.NewDirtyFlag(true)
	return &Client{
		opts:     opts,
		buffer:   buffer,
		terminal: terminal,
		guard:    guard,
		router:   input.NewRouter(opts.InputDepth),
		outbound: queue.NewBounded[[]byte](opts.OutboundDepth),
		flag:     flag,
		pacer: &render.Pacer{
			Guard:             guard,
			Buffer:            buffer,
			Flag:              flag,
			Sink:              opts.Sink,
			RefreshMillihertz: opts.RefreshMillihertz,
			Logger:            opts.Logger,
		},
	}, nil
}

// Router returns the input router feeding the session.
func (c *Client) Router() *input.Router {
	return c.router
}

// Buffer returns the shared framebuffer.
func (c *Client) Buffer() *framebuffer.Buffer {
	return c.buffer
}

// Guard returns the guard around the terminal engine.
func (c *Client) Guard() *engine.Guard {
	return c.guard
}

// Pacer returns the frame pacer.
func (c *Client) Pacer() *render.Pacer {
	return c.pacer
}

// Session returns the running session, nil before Run authenticated.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Geometry returns the engine grid size.
func (c *Client) Geometry() schema.Geometry {
	return c.guard.Geometry()
}

// Run connects, paces frames while the session runs and returns the remote
// exit status. The last frame is presented before Run returns.
func (c *Client) Run(ctx context.Context) (uint32, error) {
	log := c.opts.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	sess, err := Connect(ctx, c.opts.Params, Deps{
		Connector: c.opts.Connector,
		Guard:     c.guard,
		Input:     c.router.Queue(),
		Outbound:  c.outbound,
		Flag:      c.flag,
		Term:      c.opts.Term,
		Logger:    c.opts.Logger,
	})
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	pacerCtx, stopPacer := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.pacer.Run(pacerCtx)
	}()

	status, runErr := sess.Run(ctx)
	stopPacer()
	wg.Wait()
	if _, err := c.pacer.Tick(); err != nil {
		log.Warn("final frame present failed", "err", err)
	}
	return status, runErr
}
