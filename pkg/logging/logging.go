// Package logging configures structured logging for the server.
//
// Usage:
//
//	logging.Setup()                          // level and format from env
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level override
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
//	LOG_FORMAT: text (colored, default) or json
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures logging at the level in LOG_LEVEL and the format in
// LOG_FORMAT.
func Setup() {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, levelFromEnv(), os.Getenv("LOG_FORMAT"))))
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, level, "text")))
}

// NewHandler returns a JSON handler for format "json" and a colored tint
// handler otherwise.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
