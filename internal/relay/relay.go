// Package relay bridges WebSocket clients to TCP targets so SSH can reach
// hosts from environments that only speak WebSocket.
package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"pkt.systems/pslog"
)

// DefaultAddr is the relay listen address.
const DefaultAddr = "0.0.0.0:19198"

// DefaultDialTimeout bounds the TCP connect to the target.
const DefaultDialTimeout = 10 * time.Second

// Server accepts WebSocket connections carrying ?host=...&port=... and pipes
// binary frames to and from that TCP target.
type Server struct {
	Addr        string
	Listener    net.Listener
	DialTimeout time.Duration
	Logger      pslog.Logger
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.Logger == nil {
		s.Logger = pslog.Ctx(ctx)
	}
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			s.Logger.Info("relay listening", "addr", s.Listener.Addr().String())
			errCh <- server.Serve(s.Listener)
			return
		}
		s.Logger.Info("relay listening", "addr", s.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the WebSocket handler. Origin checks are skipped: the
// relay is addressed by tools, not browsers sharing cookies.
func (s *Server) Handler() http.Handler {
	return websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   s.serve,
	}
}

func (s *Server) serve(ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	log := s.Logger
	if log == nil {
		log = pslog.Ctx(ws.Request().Context())
	}
	defer func() { _ = ws.Close() }()

	q := ws.Request().URL.Query()
	host := q.Get("host")
	port := q.Get("port")
	if host == "" || port == "" {
		log.Warn("relay request rejected", "err", "host and port query parameters are required")
		return
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		log.Warn("relay request rejected", "err", "invalid port", "port", port)
		return
	}
	target := net.JoinHostPort(host, port)
	log = log.With("target", target, "peer", ws.Request().RemoteAddr)

	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ws.Request().Context(), "tcp", target)
	if err != nil {
		log.Warn("relay dial failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()
	log.Info("relay connected")

	up, down := pipe(ws, conn)
	log.Info("relay closed", "bytes_up", up, "bytes_down", down)
}

// pipe copies both ways and closes both sides as soon as either direction
// ends.
func pipe(ws *websocket.Conn, conn net.Conn) (up, down int64) {
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			_ = ws.Close()
			_ = conn.Close()
		})
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer closeBoth()
		up, _ = io.Copy(conn, ws)
	}()
	go func() {
		defer wg.Done()
		defer closeBoth()
		down, _ = io.Copy(ws, conn)
	}()
	wg.Wait()
	return up, down
}
