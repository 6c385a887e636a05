package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/javi11/labelsync/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// ParseLevel converts a textual level into a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Options controls how SetupLogRotation builds the logger.
type Options struct {
	// Level overrides the level from logConfig so it can be changed at runtime.
	Level *DynamicLeveler
	// Redactor masks configured secrets in every record.
	Redactor *Redactor
	// Output replaces os.Stdout; used by tests.
	Output io.Writer
}

// SetupLogRotation configures slog with log rotation using lumberjack
// If logConfig.File is empty, it logs to console only
// If logConfig.File is configured, it logs to both console and file
// Returns the configured logger
func SetupLogRotation(logConfig config.LogConfig, opts Options) *slog.Logger {
	var writer io.Writer = os.Stdout
	if opts.Output != nil {
		writer = opts.Output
	}

	// If log file is configured, set up dual logging (console + file with rotation)
	if logConfig.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSize,    // MB
			MaxBackups: logConfig.MaxBackups, // number of old files
			MaxAge:     logConfig.MaxAge,     // days
			Compress:   logConfig.Compress,   // compress old files
		}
		writer = io.MultiWriter(writer, fileWriter)
	}

	var level slog.Leveler = ParseLevel(logConfig.Level)
	if opts.Level != nil {
		opts.Level.SetLevel(ParseLevel(logConfig.Level))
		level = opts.Level
	}

	var replaceAttr ReplaceAttrFunc
	if opts.Redactor != nil {
		replaceAttr = opts.Redactor.ReplaceAttr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	// Wrap handler to support context data extraction
	wrapped := WrapHandler(handler)
	if opts.Redactor != nil {
		wrapped = wrapped.WithHooks(opts.Redactor)
	}
	return slog.New(wrapped)
}
