package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/clog"
)

// Format values accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ParseLevel converts a string level to slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a slog.Logger writing to w.
//
// The JSON format emits one object per line with the timestamp under "ts"
// rendered in loc, matching the request log lines. The console format is
// meant for local development and expands goerr values.
func New(level, format string, w io.Writer, loc *time.Location) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if loc == nil {
		loc = time.UTC
	}

	if strings.EqualFold(format, FormatConsole) {
		return slog.New(clog.New(
			clog.WithWriter(w),
			clog.WithLevel(ParseLevel(level)),
			clog.WithTimeFmt("15:04:05"),
			clog.WithSource(false),
			clog.WithAttrHook(clog.GoerrHook),
		))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: tsAttr(loc),
	}))
}

func tsAttr(loc *time.Location) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey {
			return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
		}
		return a
	}
}
