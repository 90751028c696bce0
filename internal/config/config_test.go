package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetenv clears keys for the test and restores them afterwards.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "API_ADDR", "DISCUSSION_CATEGORY_NAME", "GIT_JOURNAL_SESSION_TTL", "LOG_FORMAT")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8787" {
		t.Errorf("Addr = %q, want :8787", cfg.Addr)
	}
	if cfg.CategoryName != "General" {
		t.Errorf("CategoryName = %q, want General", cfg.CategoryName)
	}
	if cfg.SessionTTL != 168*time.Hour {
		t.Errorf("SessionTTL = %s", cfg.SessionTTL)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
}

func TestLoadDotenvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "GITHUB_REPO=octo/journal\nDIGEST_URL=http://digest.test/api/nippou\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("DIGEST_URL", "http://override.test")
	unsetenv(t, "GITHUB_REPO")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHubRepo != "octo/journal" {
		t.Errorf("GitHubRepo = %q", cfg.GitHubRepo)
	}
	if cfg.DigestURL != "http://override.test" {
		t.Errorf("DigestURL = %q, want environment value", cfg.DigestURL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("GIT_JOURNAL_SESSION_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
	t.Setenv("GIT_JOURNAL_SESSION_TTL", "-1h")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestRepository(t *testing.T) {
	owner, repo, err := Config{GitHubRepo: " octo/journal "}.Repository()
	if err != nil || owner != "octo" || repo != "journal" {
		t.Fatalf("Repository() = %q, %q, %v", owner, repo, err)
	}
	for _, bad := range []string{"", "octo", "/journal", "octo/", "a/b/c"} {
		if _, _, err := (Config{GitHubRepo: bad}).Repository(); err == nil {
			t.Errorf("Repository(%q) expected error", bad)
		}
	}
}
