// Package sshtest runs an in-process SSH server for exercising the client
// against a real handshake, pty negotiation and exit status.
package sshtest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"sync"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
)

// Pty records the pty request seen by the server.
type Pty struct {
	Term string
	Cols int
	Rows int
}

// ShellFunc runs one accepted shell session and returns its exit status.
type ShellFunc func(sess gliderssh.Session) int

// Server accepts password or keyboard-interactive logins for one user.
type Server struct {
	User     string
	Password string
	// TOTPCheck, when set, is asked to validate the keyboard-interactive
	// verification code after a successful password.
	TOTPCheck func(code string) bool
	Shell     ShellFunc
	Logger    pslog.Logger

	mu       sync.Mutex
	ptys     []Pty
	attempts int
	sessions int
	listener net.Listener
	server   *gliderssh.Server
	signer   ssh.Signer
}

// Start listens on 127.0.0.1 with a fresh ed25519 host key and returns the
// address.
func (s *Server) Start(ctx context.Context) (string, error) {
	if s.Logger == nil {
		s.Logger = pslog.Ctx(ctx)
	}
	signer, err := newHostSigner()
	if err != nil {
		return "", err
	}
	s.signer = signer
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	srv := &gliderssh.Server{
		Handler:         s.handleSession,
		PasswordHandler: s.handlePassword,
	}
	if s.TOTPCheck != nil {
		srv.PasswordHandler = nil
		srv.KeyboardInteractiveHandler = s.handleKeyboardInteractive
	}
	srv.AddHostKey(signer)
	s.mu.Lock()
	s.listener = ln
	s.server = srv
	s.mu.Unlock()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, gliderssh.ErrServerClosed) {
			s.Logger.Warn("ssh test server stopped", "err", err)
		}
	}()
	return ln.Addr().String(), nil
}

// Close stops the server.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Close()
}

// HostKey returns the server's public host key.
func (s *Server) HostKey() ssh.PublicKey {
	if s.signer == nil {
		return nil
	}
	return s.signer.PublicKey()
}

// Ptys returns the pty requests received so far.
func (s *Server) Ptys() []Pty {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Pty(nil), s.ptys...)
}

// Sessions returns how many shell sessions were started.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// AuthAttempts returns how many credential checks ran.
func (s *Server) AuthAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Server) checkPassword(user, password string) bool {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	return user == s.User && password == s.Password
}

func (s *Server) handlePassword(ctx gliderssh.Context, password string) bool {
	ok := s.checkPassword(ctx.User(), password)
	if !ok {
		s.Logger.Warn("ssh password rejected", "user", ctx.User())
	}
	return ok
}

func (s *Server) handleKeyboardInteractive(ctx gliderssh.Context, challenger ssh.KeyboardInteractiveChallenge) bool {
	answers, err := challenger(ctx.User(), "", []string{"Password: ", "Verification code: "}, []bool{false, false})
	if err != nil || len(answers) != 2 {
		return false
	}
	if !s.checkPassword(ctx.User(), answers[0]) {
		return false
	}
	return s.TOTPCheck(answers[1])
}

func (s *Server) handleSession(sess gliderssh.Session) {
	pty, _, ok := sess.Pty()
	if !ok {
		_ = sess.Exit(2)
		return
	}
	s.mu.Lock()
	s.ptys = append(s.ptys, Pty{Term: pty.Term, Cols: pty.Window.Width, Rows: pty.Window.Height})
	s.sessions++
	shell := s.Shell
	s.mu.Unlock()
	status := 0
	if shell != nil {
		status = shell(sess)
	}
	_ = sess.Exit(status)
}

func newHostSigner() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(priv)
}
