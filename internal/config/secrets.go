package config

import (
	"slices"
	"strings"
)

// RedactedValue replaces secrets in logs and printed configuration.
const RedactedValue = "********"

// Header names containing one of these fragments are treated as credentials.
var secretHeaderFragments = []string{"token", "key", "auth", "secret", "password", "cookie"}

// Secrets returns every configured credential value that must never be logged verbatim.
// Longer values come first so that overlapping secrets are replaced whole.
func (c *Config) Secrets() []string {
	var secrets []string
	add := func(v string) {
		if v != "" && !slices.Contains(secrets, v) {
			secrets = append(secrets, v)
		}
	}

	add(c.Plex.Token)
	add(c.Sonarr.APIKey)

	for _, headers := range []map[string]string{c.Headers, c.Plex.Headers, c.Sonarr.Headers} {
		for name, value := range headers {
			if IsSecretHeader(name) {
				add(value)
			}
		}
	}

	slices.SortFunc(secrets, func(a, b string) int {
		return len(b) - len(a)
	})

	return secrets
}

// IsSecretHeader reports whether a header name looks like it carries a credential.
func IsSecretHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range secretHeaderFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// Redacted returns a deep copy with every credential masked, suitable for printing.
func (c *Config) Redacted() *Config {
	cp := c.DeepCopy()
	if cp.Plex.Token != "" {
		cp.Plex.Token = RedactedValue
	}
	if cp.Sonarr.APIKey != "" {
		cp.Sonarr.APIKey = RedactedValue
	}
	for _, headers := range []map[string]string{cp.Headers, cp.Plex.Headers, cp.Sonarr.Headers} {
		for name := range headers {
			if IsSecretHeader(name) {
				headers[name] = RedactedValue
			}
		}
	}
	return cp
}
