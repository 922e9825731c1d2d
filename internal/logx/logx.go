// Package logx holds the logger annotation helpers shared by the client
// packages.
package logx

import (
	"context"

	"pkt.systems/pixterm/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	sessionKey contextKey = iota
)

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, sessionID schema.SessionID) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", sessionID)
	}
	return log
}

// SessionFromContext annotates the context logger with the session id,
// unless the context already carries that session marker.
func SessionFromContext(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID == "" {
		return log
	}
	if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
		return log
	}
	return log.With("session", sessionID)
}

// WithRemote annotates the logger with the endpoint and user.
func WithRemote(log pslog.Logger, endpoint, user string) pslog.Logger {
	if endpoint != "" {
		log = log.With("remote", endpoint)
	}
	if user != "" {
		log = log.With("user", user)
	}
	return log
}

// WithState annotates the logger with a session state.
func WithState(log pslog.Logger, state schema.SessionState) pslog.Logger {
	return log.With("state", state.String())
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}
