package config

import (
	"strings"
	"time"
)

// Sync config accessor methods with default fallbacks.

// GetSyncInterval returns the autosync interval with a default fallback.
func (c *Config) GetSyncInterval() time.Duration {
	if c.Sync.IntervalMinutes <= 0 {
		return 5 * time.Minute // Default: 5 minutes
	}
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

// GetMaxConcurrency returns how many series may be reconciled at once.
func (c *Config) GetMaxConcurrency() int {
	if c.Sync.MaxConcurrency <= 0 {
		return 5 // Default: 5 concurrent series
	}
	return c.Sync.MaxConcurrency
}

// GetStartupTimeout returns how long to wait for Plex and Sonarr at startup.
func (c *Config) GetStartupTimeout() time.Duration {
	if c.Sync.StartupTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Sync.StartupTimeoutSeconds) * time.Second
}

// IsSyncEnabled reports whether the periodic sync should run.
func (c *Config) IsSyncEnabled() bool {
	if c.Sync.Enabled == nil {
		return true // Default: enabled
	}
	return *c.Sync.Enabled
}

// GetLogLevel returns the configured log level.
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// GetAPIPrefix returns the API route prefix.
func (c *Config) GetAPIPrefix() string {
	prefix := strings.TrimRight(c.API.Prefix, "/")
	if prefix == "" {
		return "/api"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

// PlexHeaders returns the extra headers sent to Plex (global headers first, Plex overrides).
func (c *Config) PlexHeaders() map[string]string {
	return mergeHeaders(c.Headers, c.Plex.Headers)
}

// SonarrHeaders returns the extra headers sent to Sonarr (global headers first, Sonarr overrides).
func (c *Config) SonarrHeaders() map[string]string {
	return mergeHeaders(c.Headers, c.Sonarr.Headers)
}

func mergeHeaders(sets ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
