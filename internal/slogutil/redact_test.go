package slogutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/javi11/labelsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactor_Redact(t *testing.T) {
	r := NewRedactor("s3cr3t", "")

	assert.Equal(t, "token=******** and ********", r.Redact("token=s3cr3t and s3cr3t"))
	assert.Equal(t, "nothing here", r.Redact("nothing here"))

	r.SetSecrets(nil)
	assert.Equal(t, "s3cr3t", r.Redact("s3cr3t"))

	var nilRedactor *Redactor
	assert.Equal(t, "s3cr3t", nilRedactor.Redact("s3cr3t"))
}

func TestSetupLogRotation_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	redactor := NewRedactor("plex-token-123", "sonarr-key-456")

	logger := SetupLogRotation(config.LogConfig{Level: "debug"}, Options{
		Redactor: redactor,
		Output:   &buf,
	})

	logger.Info("calling http://plex/identity?X-Plex-Token=plex-token-123",
		"api_key", "sonarr-key-456",
		"err", errors.New("request failed with key sonarr-key-456"),
		"url", fmt.Stringer(stringer("token plex-token-123")),
		slog.Group("plex", slog.String("token", "plex-token-123")),
	)

	out := buf.String()
	assert.NotContains(t, out, "plex-token-123")
	assert.NotContains(t, out, "sonarr-key-456")
	assert.Contains(t, out, redactedValue)
}

func TestRedactor_RunHook(t *testing.T) {
	r := NewRedactor("s3cr3t")

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "token s3cr3t rejected", 0)
	rec.AddAttrs(
		slog.String("url", "http://plex?X-Plex-Token=s3cr3t"),
		slog.Int("attempt", 2),
		slog.Group("sonarr", slog.String("api_key", "s3cr3t")),
	)

	r.Run(context.Background(), &rec)

	assert.Equal(t, "token ******** rejected", rec.Message)
	got := map[string]slog.Value{}
	rec.Attrs(func(a slog.Attr) bool {
		got[a.Key] = a.Value
		return true
	})
	assert.Equal(t, "http://plex?X-Plex-Token=********", got["url"].String())
	assert.Equal(t, int64(2), got["attempt"].Int64())
	require.Len(t, got["sonarr"].Group(), 1)
	assert.Equal(t, "********", got["sonarr"].Group()[0].Value.String())
}

func TestSetupLogRotation_RedactsContextAndBoundAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogRotation(config.LogConfig{Level: "info"}, Options{
		Redactor: NewRedactor("plex-token-123"),
		Output:   &buf,
	})

	ctx := With(context.Background(), "request_url", "/identity?token=plex-token-123")
	logger.With("base", "plex-token-123").InfoContext(ctx, "request")

	assert.NotContains(t, buf.String(), "plex-token-123")
	assert.Contains(t, buf.String(), "request_url=")
}

func TestSetupLogRotation_ContextAttrsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	level := NewDynamicLeveler(slog.LevelInfo)

	logger := SetupLogRotation(config.LogConfig{Level: "warn"}, Options{
		Level:  level,
		Output: &buf,
	})

	ctx := With(context.Background(), "run_id", "abc")
	logger.InfoContext(ctx, "hidden")
	assert.Empty(t, buf.String())

	level.SetLevel(slog.LevelDebug)
	logger.DebugContext(ctx, "visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "run_id=abc")
}

type stringer string

func (s stringer) String() string { return string(s) }
