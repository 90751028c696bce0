package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitjournal/api/internal/auth"
)

// Lookuper finds a stored session by id; *RedisStore satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, sessionID string) (Session, error)
}

// Gate resolves a bearer session token into the caller's Session. It does
// not talk to the identity provider.
type Gate struct {
	secret []byte
	store  Lookuper
}

func NewGate(secret string, store Lookuper) *Gate {
	return &Gate{secret: []byte(secret), store: store}
}

// Resolve returns the session behind bearer. Missing, malformed, expired, or
// revoked tokens all yield ErrUnauthenticated.
func (g *Gate) Resolve(ctx context.Context, bearer string) (Session, error) {
	if strings.TrimSpace(bearer) == "" {
		return Session{}, ErrUnauthenticated
	}
	claims, err := auth.ParseToken(g.secret, bearer)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	sess, err := g.store.Lookup(ctx, claims.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if err != nil {
		return Session{}, err
	}
	if sess.Login != claims.Login {
		return Session{}, fmt.Errorf("%w: session login mismatch", ErrUnauthenticated)
	}
	return sess, nil
}
