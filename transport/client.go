// Package transport connects to the remote shell over SSH, either directly
// over TCP or through a WebSocket relay, and exposes the interactive
// channel as a stream of data and exit-status events.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"pkt.systems/pixterm/schema"
	"pkt.systems/pslog"
)

// Config describes one connection.
type Config struct {
	Endpoint    string
	Credentials Credentials
	KnownHosts  string
	DialTimeout time.Duration
	Logger      pslog.Logger
	// Now supplies the clock for TOTP answers; nil uses time.Now.
	Now func() time.Time
}

// Client is an authenticated SSH connection.
type Client struct {
	ssh    *ssh.Client
	log    pslog.Logger
	addr   string
	mu     sync.Mutex
	closed bool
}

// Connect dials the endpoint and authenticates. Rejected credentials return
// an error matching schema.ErrAuthentication, anything else one matching
// schema.ErrTransport.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	if cfg.Credentials.Username == "" {
		return nil, schema.NewTransportError("connect", errors.New("username is required"))
	}
	hostKeys, err := HostKeyCallback(cfg.KnownHosts, log)
	if err != nil {
		return nil, schema.NewTransportError("connect", err)
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	addr := SSHAddress(cfg.Endpoint)
	log = log.With("remote", addr, "user", cfg.Credentials.Username)

	conn, err := Dial(ctx, cfg.Endpoint, timeout)
	if err != nil {
		return nil, schema.NewTransportError("dial", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	_ = conn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            cfg.Credentials.Username,
		Auth:            authMethods(cfg.Credentials, cfg.Now),
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	})
	stopped := stop()
	if err != nil {
		_ = conn.Close()
		if isAuthFailure(err) {
			log.Warn("ssh authentication rejected", "err", err)
			return nil, fmt.Errorf("ssh login: %w: %w", schema.ErrAuthentication, err)
		}
		if !stopped && ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, schema.NewTransportError("handshake", err)
	}
	_ = conn.SetDeadline(time.Time{})
	log.Info("ssh connection authenticated", "server_version", string(sshConn.ServerVersion()))
	return &Client{
		ssh:  ssh.NewClient(sshConn, chans, reqs),
		log:  log,
		addr: addr,
	}, nil
}

// Addr returns the SSH address verified during the handshake.
func (c *Client) Addr() string {
	return c.addr
}

// OpenSession opens one interactive session channel.
func (c *Client) OpenSession(ctx context.Context) (*Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, schema.NewTransportError("open session", err)
	}
	sess, err := c.ssh.NewSession()
	if err != nil {
		return nil, schema.NewTransportError("open session", err)
	}
	ch, err := newChannel(sess, c.log)
	if err != nil {
		_ = sess.Close()
		return nil, schema.NewTransportError("open session", err)
	}
	return ch, nil
}

// Disconnect closes the connection. x/crypto/ssh has no disconnect message
// with a reason code, so the reason is only logged.
func (c *Client) Disconnect(reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.log.Info("ssh disconnect", "reason", reason)
	if err := c.ssh.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return schema.NewTransportError("disconnect", err)
	}
	return nil
}
