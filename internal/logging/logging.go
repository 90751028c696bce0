// Package logging builds the structured, colorized loggers used by both binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Level is a slog level parsed from configuration.
type Level slog.Level

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// ParseLevel converts a textual log level into a Level. Unknown values map to info.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	return slog.Level(l).String()
}

// Format selects the record encoding.
type Format string

const (
	// FormatText is tint's human-readable output, colored on a terminal.
	FormatText Format = "text"
	// FormatJSON is one JSON object per record, for log collectors.
	FormatJSON Format = "json"
)

// ParseFormat converts LOG_FORMAT into a Format. Unknown values map to text.
func ParseFormat(value string) Format {
	if strings.EqualFold(strings.TrimSpace(value), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// redactedKeys are attribute keys whose values are GitHub or session
// credentials. They are never written out.
var redactedKeys = map[string]bool{
	"token":         true,
	"access_token":  true,
	"accessToken":   true,
	"authorization": true,
	"session_token": true,
}

const redacted = "[redacted]"

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[a.Key] && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, redacted)
	}
	return a
}

// NewLogger returns a tint-backed logger writing to w (stderr when nil).
func NewLogger(w io.Writer, level Level) *slog.Logger {
	return New(w, level, FormatText)
}

// New returns a logger writing records of the given format to w (stderr when
// nil). Credential attributes are redacted in both formats.
func New(w io.Writer, level Level, format Format) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       slog.Level(level),
			ReplaceAttr: redact,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       slog.Level(level),
		NoColor:     !isTerminal(w),
		ReplaceAttr: redact,
	}))
}

// Discard returns a logger that drops every record. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
