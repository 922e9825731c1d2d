package transport

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"

	"pkt.systems/pixterm/schema"
	"pkt.systems/pslog"
)

const (
	readChunk   = 32 * 1024
	eventsDepth = 64
)

// Channel is an interactive session channel. Remote output and the final
// exit status arrive on Events, in order.
type Channel struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
	log    pslog.Logger

	events chan schema.ChannelEvent
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newChannel(sess *ssh.Session, log pslog.Logger) (*Channel, error) {
	stdin, err := sess.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		return nil, err
	}
	return &Channel{
		sess:   sess,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    log,
		events: make(chan schema.ChannelEvent, eventsDepth),
		done:   make(chan struct{}),
	}, nil
}

// RequestPTY asks for a pseudo terminal of cols x rows cells.
func (c *Channel) RequestPTY(ctx context.Context, term string, cols, rows int) error {
	if err := ctx.Err(); err != nil {
		return schema.NewTransportError("request pty", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := c.sess.RequestPty(term, rows, cols, modes); err != nil {
		return schema.NewTransportError("request pty", err)
	}
	return nil
}

// RequestShell starts the login shell and begins delivering events.
func (c *Channel) RequestShell(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return schema.NewTransportError("request shell", err)
	}
	if err := c.sess.Shell(); err != nil {
		return schema.NewTransportError("request shell", err)
	}
	c.startOnce.Do(func() {
		go c.pump()
	})
	return nil
}

// Send writes bytes to the remote process.
func (c *Channel) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return schema.NewTransportError("send", err)
	}
	if _, err := c.stdin.Write(data); err != nil {
		return schema.NewTransportError("send", err)
	}
	return nil
}

// Events delivers Data events followed by one ExitStatus event. The channel
// closes after the exit status, or early on a receive error (see Err).
func (c *Channel) Events() <-chan schema.ChannelEvent {
	return c.events
}

// Err returns the receive error that ended the event stream, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the session channel and stops event delivery.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.sess.Close()
		if errors.Is(err, io.EOF) {
			err = nil
		}
	})
	return err
}

func (c *Channel) pump() {
	defer close(c.events)
	var wg sync.WaitGroup
	var outMu sync.Mutex
	for _, r := range []io.Reader{c.stdout, c.stderr} {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			buf := make([]byte, readChunk)
			for {
				n, err := r.Read(buf)
				if n > 0 {
					data := make([]byte, n)
					copy(data, buf[:n])
					outMu.Lock()
					ok := c.deliver(schema.DataEvent(data))
					outMu.Unlock()
					if !ok {
						return
					}
				}
				if err != nil {
					return
				}
			}
		}(r)
	}
	wg.Wait()

	err := c.sess.Wait()
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		c.deliver(schema.ExitStatusEvent(0))
	case errors.As(err, &exitErr):
		c.deliver(schema.ExitStatusEvent(uint32(exitErr.ExitStatus())))
	default:
		c.mu.Lock()
		c.err = schema.NewTransportError("receive", err)
		c.mu.Unlock()
		c.log.Debug("ssh channel ended without exit status", "err", err)
	}
}

func (c *Channel) deliver(ev schema.ChannelEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}
