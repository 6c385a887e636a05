package slogutil

import (
	"log/slog"
	"sync/atomic"
)

// DynamicLeveler is a slog.Leveler whose level can change while loggers are in use.
type DynamicLeveler struct {
	level atomic.Value
}

// NewDynamicLeveler returns a leveler starting at the given level.
func NewDynamicLeveler(level slog.Level) *DynamicLeveler {
	dl := &DynamicLeveler{}
	dl.SetLevel(level)
	return dl
}

// Level returns the current logging level.
func (dl *DynamicLeveler) Level() slog.Level {
	level, ok := dl.level.Load().(slog.Level)
	if !ok {
		return slog.LevelInfo
	}
	return level
}

// SetLevel updates the logging level.
func (dl *DynamicLeveler) SetLevel(level slog.Level) {
	dl.level.Store(level)
}
