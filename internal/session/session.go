// Package session resolves and stores the caller's GitHub identity.
package session

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthenticated means no usable session was presented. Callers must not
// attempt a remote call after receiving it.
var ErrUnauthenticated = errors.New("not authenticated")

// Session is the caller's identity for the lifetime of one request.
type Session struct {
	AccessToken string
	Login       string
}

// Present reports whether s carries a token.
func (s Session) Present() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// Require returns ErrUnauthenticated when s has no token.
func Require(s Session) error {
	if !s.Present() {
		return ErrUnauthenticated
	}
	return nil
}

type contextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession, if any.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(contextKey{}).(Session)
	if !ok || !s.Present() {
		return Session{}, false
	}
	return s, true
}
