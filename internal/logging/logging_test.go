package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":    LevelDebug,
		" WARN ":   LevelWarn,
		"warning":  LevelWarn,
		"error":    LevelError,
		"info":     LevelInfo,
		"":         LevelInfo,
		"verbose?": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "comment_id", "DC_1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "comment_id=DC_1") {
		t.Fatalf("warn record missing: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes for non-terminal writer: %q", out)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":   FormatJSON,
		" JSON ": FormatJSON,
		"text":   FormatText,
		"":       FormatText,
		"logfmt": FormatText,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJSONLoggerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, FormatJSON)

	logger.Info("session opened", "login", "octocat", "token", "gho_secret")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("record is not JSON: %q: %v", buf.String(), err)
	}
	if record["msg"] != "session opened" || record["login"] != "octocat" {
		t.Fatalf("record = %v", record)
	}
	if record["token"] != "[redacted]" {
		t.Fatalf("token = %v, want redacted", record["token"])
	}
}

func TestTextLoggerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, LevelInfo).Info("login", "access_token", "gho_secret")

	if out := buf.String(); strings.Contains(out, "gho_secret") || !strings.Contains(out, "access_token=") || !strings.Contains(out, "redacted") {
		t.Fatalf("text record = %q", out)
	}
}
