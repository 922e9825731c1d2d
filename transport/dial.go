package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/websocket"
)

// DefaultDialTimeout bounds the TCP or WebSocket connect.
const DefaultDialTimeout = 10 * time.Second

const defaultSSHPort = "22"

// IsWebSocket reports whether endpoint is a ws:// or wss:// URL.
func IsWebSocket(endpoint string) bool {
	lower := strings.ToLower(strings.TrimSpace(endpoint))
	return strings.HasPrefix(lower, "ws://") || strings.HasPrefix(lower, "wss://")
}

// Dial connects to endpoint. WebSocket endpoints carry the SSH stream in
// binary frames through a relay; anything else is a TCP host:port.
func Dial(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	if !IsWebSocket(endpoint) {
		return dialer.DialContext(ctx, "tcp", withDefaultPort(endpoint))
	}
	cfg, err := websocket.NewConfig(endpoint, websocketOrigin(endpoint))
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	cfg.Dialer = dialer
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return &relayConn{Conn: conn, remote: targetAddr(SSHAddress(endpoint))}, nil
}

// relayConn reports the relay target as its remote address. A websocket
// conn reports its URL, which known_hosts verification cannot parse.
type relayConn struct {
	net.Conn
	remote net.Addr
}

func (c *relayConn) RemoteAddr() net.Addr {
	return c.remote
}

type targetAddr string

func (a targetAddr) Network() string { return "tcp" }

func (a targetAddr) String() string { return string(a) }

// SSHAddress returns the host:port the SSH handshake should verify. For a
// relay URL this is the target named by its host and port query values.
func SSHAddress(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !IsWebSocket(endpoint) {
		return withDefaultPort(endpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if host := q.Get("host"); host != "" {
		port := q.Get("port")
		if port == "" {
			port = defaultSSHPort
		}
		return net.JoinHostPort(host, port)
	}
	return u.Host
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), defaultSSHPort)
}

func websocketOrigin(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "http://localhost/"
	}
	scheme := "http"
	if strings.EqualFold(u.Scheme, "wss") {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/"
}
