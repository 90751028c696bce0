package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

const testSecret = "test-session-secret"

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), testSecret)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", testSecret); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestSaveAndLookupSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	sess := Session{AccessToken: "gho_secret", Login: "octocat"}
	if err := store.Save(ctx, "sid-1", sess, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := s.Get("git_journal_session:sid-1")
	if err != nil {
		t.Fatalf("stored key missing: %v", err)
	}
	if strings.Contains(raw, "gho_secret") {
		t.Fatalf("access token stored in clear text: %s", raw)
	}

	got, err := store.Lookup(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != sess {
		t.Fatalf("Lookup() = %+v, want %+v", got, sess)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	store, _ := setupTestRedis(t)
	err := store.Save(context.Background(), "sid", Session{Login: "octocat"}, time.Hour)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Save() error = %v, want ErrUnauthenticated", err)
	}
}

func TestSaveRejectsNonPositiveTTL(t *testing.T) {
	store, _ := setupTestRedis(t)
	err := store.Save(context.Background(), "sid", Session{AccessToken: "tok"}, -time.Minute)
	if err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sid-exp", Session{AccessToken: "tok", Login: "a"}, time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.FastForward(2 * time.Second)

	if _, err := store.Lookup(ctx, "sid-exp"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrSessionNotFound", err)
	}
}

func TestLookupWithDifferentSecretFails(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	if err := store.Save(ctx, "sid", Session{AccessToken: "tok", Login: "a"}, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other, err := NewRedisStore("redis://"+s.Addr(), "another-secret")
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer other.Close()

	if _, err := other.Lookup(ctx, "sid"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup() error = %v, want seal failure", err)
	}
}

func TestRevokeSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sid", Session{AccessToken: "tok", Login: "a"}, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Revoke(ctx, "sid"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "sid"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup() after revoke error = %v", err)
	}
	if err := store.Revoke(ctx, "never-existed"); err != nil {
		t.Fatalf("Revoke unknown id error = %v", err)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	empty, err := store.LoadPreferences(ctx, "octocat")
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if empty != (Preferences{}) {
		t.Fatalf("LoadPreferences() on empty store = %+v", empty)
	}

	want := Preferences{Owner: "octo", Repo: "journal", DiscussionNumber: 7, Template: "## Done\n\n## Next"}
	if err := store.SavePreferences(ctx, "octocat", want); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	if !s.Exists("git_journal_octocat") {
		t.Fatal("expected preferences under git_journal_octocat")
	}

	got, err := store.LoadPreferences(ctx, "octocat")
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if got != want {
		t.Fatalf("LoadPreferences() = %+v, want %+v", got, want)
	}
}

func TestLoadPreferencesRejectsCorruptNumber(t *testing.T) {
	store, s := setupTestRedis(t)
	s.HSet("git_journal_octocat", "discussionNumber", "seven")

	if _, err := store.LoadPreferences(context.Background(), "octocat"); err == nil {
		t.Fatal("expected error for non-numeric discussion number")
	}
}
