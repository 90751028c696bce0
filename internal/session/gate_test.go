package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitjournal/api/internal/auth"
)

func issue(t *testing.T, secret, login, sid string, expires time.Time) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(secret), auth.Claims{Login: login, SessionID: sid, ExpiresAt: expires})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}

func TestGateResolve(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	if err := store.Save(ctx, "sid-1", Session{AccessToken: "gho_x", Login: "octocat"}, time.Until(expires)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	gate := NewGate(testSecret, store)

	got, err := gate.Resolve(ctx, issue(t, testSecret, "octocat", "sid-1", expires))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.AccessToken != "gho_x" || got.Login != "octocat" {
		t.Fatalf("Resolve() = %+v", got)
	}
}

func TestGateResolveRejects(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	if err := store.Save(ctx, "sid-1", Session{AccessToken: "gho_x", Login: "octocat"}, time.Until(expires)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	gate := NewGate(testSecret, store)

	tests := []struct {
		name   string
		bearer string
	}{
		{name: "empty", bearer: ""},
		{name: "garbage", bearer: "not-a-jwt"},
		{name: "wrong secret", bearer: issue(t, "other-secret", "octocat", "sid-1", expires)},
		{name: "unknown session", bearer: issue(t, testSecret, "octocat", "sid-404", expires)},
		{name: "login mismatch", bearer: issue(t, testSecret, "someone", "sid-1", expires)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.Resolve(ctx, tt.bearer)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("Resolve() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestGateResolveRevoked(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	if err := store.Save(ctx, "sid-1", Session{AccessToken: "gho_x", Login: "octocat"}, time.Until(expires)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	token := issue(t, testSecret, "octocat", "sid-1", expires)
	if err := store.Revoke(ctx, "sid-1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if _, err := NewGate(testSecret, store).Resolve(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Resolve() error = %v, want ErrUnauthenticated", err)
	}
}

func TestSessionContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no session on empty context")
	}
	ctx := WithSession(context.Background(), Session{AccessToken: "tok", Login: "a"})
	got, ok := FromContext(ctx)
	if !ok || got.AccessToken != "tok" {
		t.Fatalf("FromContext() = %+v, %v", got, ok)
	}
	if _, ok := FromContext(WithSession(context.Background(), Session{})); ok {
		t.Fatal("empty session must not count as present")
	}
	if err := Require(Session{AccessToken: "  "}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Require() error = %v", err)
	}
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := newSealer("k")
	if err != nil {
		t.Fatalf("newSealer() error = %v", err)
	}
	a, _ := s.seal("token")
	b, _ := s.seal("token")
	if a == b {
		t.Fatal("sealing must use a fresh nonce")
	}
	plain, err := s.open(a)
	if err != nil || plain != "token" {
		t.Fatalf("open() = %q, %v", plain, err)
	}
	if _, err := s.open("!!"); !errors.Is(err, errSealedValue) {
		t.Fatalf("open(garbage) error = %v", err)
	}
}
