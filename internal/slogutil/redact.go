package slogutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

const redactedValue = "********"

// Redactor masks secret values in log records. Secrets can be swapped at runtime.
type Redactor struct {
	secrets atomic.Pointer[[]string]
}

// NewRedactor returns a Redactor masking the given secrets.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	r.SetSecrets(secrets)
	return r
}

// SetSecrets replaces the set of values to mask. Empty values are ignored.
func (r *Redactor) SetSecrets(secrets []string) {
	filtered := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			filtered = append(filtered, s)
		}
	}
	r.secrets.Store(&filtered)
}

// Redact replaces every occurrence of a secret in s.
func (r *Redactor) Redact(s string) string {
	if r == nil || s == "" {
		return s
	}

	secrets := r.secrets.Load()
	if secrets == nil {
		return s
	}

	for _, secret := range *secrets {
		if strings.Contains(s, secret) {
			s = strings.ReplaceAll(s, secret, redactedValue)
		}
	}
	return s
}

// Run implements Hook. It masks secrets in the message and in every attribute
// of the record, context attributes included.
func (r *Redactor) Run(_ context.Context, rec *slog.Record) {
	redacted := slog.NewRecord(rec.Time, rec.Level, r.Redact(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(r.redactAttr(a))
		return true
	})
	*rec = redacted
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr for attributes bound with
// Logger.With, which are formatted before hooks see a record.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	return r.redactAttr(a)
}

func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]any, 0, len(group))
		for _, ga := range group {
			out = append(out, r.redactAttr(ga))
		}
		return slog.Group(a.Key, out...)
	case slog.KindLogValuer:
		return r.redactAttr(slog.Attr{Key: a.Key, Value: a.Value.Resolve()})
	case slog.KindString:
		if v := a.Value.String(); v != "" {
			if redacted := r.Redact(v); redacted != v {
				return slog.String(a.Key, redacted)
			}
		}
	case slog.KindAny:
		var text string
		switch v := a.Value.Any().(type) {
		case nil:
			return a
		case error:
			text = v.Error()
		default:
			text = fmt.Sprint(v)
		}
		if redacted := r.Redact(text); redacted != text {
			return slog.String(a.Key, redacted)
		}
	}

	return a
}
