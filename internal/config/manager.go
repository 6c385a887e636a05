package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Plex    PlexConfig        `yaml:"plex" mapstructure:"plex"`
	Sonarr  SonarrConfig      `yaml:"sonarr" mapstructure:"sonarr"`
	Sync    SyncConfig        `yaml:"sync" mapstructure:"sync"`
	API     APIConfig         `yaml:"api" mapstructure:"api"`
	Log     LogConfig         `yaml:"log" mapstructure:"log"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"` // Sent to both Plex and Sonarr
}

// PlexConfig represents the Plex media server connection
type PlexConfig struct {
	URL     string            `yaml:"url" mapstructure:"url"`
	Token   string            `yaml:"token" mapstructure:"token"`
	Section string            `yaml:"section" mapstructure:"section"` // Library section holding TV series
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// SonarrConfig represents the Sonarr instance connection
type SonarrConfig struct {
	Name    string            `yaml:"name" mapstructure:"name"`
	URL     string            `yaml:"url" mapstructure:"url"`
	APIKey  string            `yaml:"api_key" mapstructure:"api_key"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// SyncConfig represents the reconciliation and autosync configuration
type SyncConfig struct {
	Enabled               *bool  `yaml:"enabled" mapstructure:"enabled"`
	IntervalMinutes       int    `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	Cron                  string `yaml:"cron" mapstructure:"cron"` // Overrides interval_minutes when set
	MaxConcurrency        int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	StartupTimeoutSeconds int    `yaml:"startup_timeout_seconds" mapstructure:"startup_timeout_seconds"`
}

// APIConfig represents REST API configuration
type APIConfig struct {
	Port   int    `yaml:"port" mapstructure:"port"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`               // Log file path (empty = console only)
	Level      string `yaml:"level" mapstructure:"level"`             // Log level (debug, info, warn, error)
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // Max number of old files to keep
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // Compress old log files
}

// envBindings maps config keys to the environment variables the service has always read.
var envBindings = map[string]string{
	"plex.url":                     "PLEX_URL",
	"plex.token":                   "PLEX_TOKEN",
	"plex.section":                 "PLEX_SECTION",
	"sonarr.name":                  "SONARR_NAME",
	"sonarr.url":                   "SONARR_URL",
	"sonarr.api_key":               "SONARR_API_KEY",
	"sync.enabled":                 "SYNC_ENABLED",
	"sync.interval_minutes":        "SYNC_INTERVAL_MINS",
	"sync.cron":                    "SYNC_CRON",
	"sync.max_concurrency":         "SYNC_MAX_CONCURRENCY",
	"sync.startup_timeout_seconds": "SYNC_STARTUP_TIMEOUT_SECS",
	"api.port":                     "API_PORT",
	"log.level":                    "LOG_LEVEL",
	"log.file":                     "LOG_FILE",
}

// Header environment variables hold either a JSON object or "k=v,k2=v2" pairs.
const (
	envHeadersAll    = "HEADERS_ALL"
	envHeadersPlex   = "HEADERS_PLEX"
	envHeadersSonarr = "HEADERS_SONARR"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DeepCopy returns a deep copy of the configuration
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	copyCfg := &Config{}
	if err := copier.CopyWithOption(copyCfg, c, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched types, which cannot happen for identical structs
		panic(fmt.Sprintf("config deep copy: %v", err))
	}

	return copyCfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateURL("plex url", c.Plex.URL); err != nil {
		return err
	}

	if c.Plex.Token == "" {
		return fmt.Errorf("plex token cannot be empty")
	}

	if c.Plex.Section == "" {
		return fmt.Errorf("plex section cannot be empty")
	}

	if err := validateURL("sonarr url", c.Sonarr.URL); err != nil {
		return err
	}

	if c.Sonarr.APIKey == "" {
		return fmt.Errorf("sonarr api_key cannot be empty")
	}

	if c.Sync.Cron != "" {
		if _, err := cron.ParseStandard(c.Sync.Cron); err != nil {
			return fmt.Errorf("sync cron is invalid: %w", err)
		}
	} else if c.Sync.IntervalMinutes <= 0 {
		return fmt.Errorf("sync interval_minutes must be greater than 0")
	}

	if c.Sync.MaxConcurrency <= 0 {
		return fmt.Errorf("sync max_concurrency must be greater than 0")
	}

	if c.Sync.StartupTimeoutSeconds < 0 {
		return fmt.Errorf("sync startup_timeout_seconds must be non-negative")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port must be between 1 and 65535")
	}

	if c.Log.Level != "" && !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be one of: %s", strings.Join(validLogLevels, ", "))
	}

	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log.max_size must be non-negative")
	}

	if c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_age must be non-negative")
	}

	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be non-negative")
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", field, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}

	if u.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range validLogLevels {
		if level == l {
			return true
		}
	}
	return false
}

// ChangeCallback represents a function called when configuration changes
type ChangeCallback func(oldConfig, newConfig *Config)

// ConfigGetter represents a function that returns the current configuration
type ConfigGetter func() *Config

// Manager manages configuration state
type Manager struct {
	current    *Config
	configFile string
	mutex      sync.RWMutex
	callbacks  []ChangeCallback
}

// NewManager creates a new configuration manager
func NewManager(config *Config, configFile string) *Manager {
	return &Manager{
		current:    config,
		configFile: configFile,
	}
}

// GetConfig returns the current configuration (thread-safe)
func (m *Manager) GetConfig() *Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// GetConfigGetter returns a function that provides the current configuration
func (m *Manager) GetConfigGetter() ConfigGetter {
	return m.GetConfig
}

// UpdateConfig swaps the current configuration and notifies listeners
func (m *Manager) UpdateConfig(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	m.mutex.Lock()
	// Take a deep copy of the old config so callbacks get an immutable snapshot
	var oldConfig *Config
	if m.current != nil {
		oldConfig = m.current.DeepCopy()
	}
	m.current = config
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mutex.Unlock()

	// Notify callbacks after releasing the lock
	for _, callback := range callbacks {
		callback(oldConfig, config)
	}
	return nil
}

// OnConfigChange registers a callback to be called when configuration changes
func (m *Manager) OnConfigChange(callback ChangeCallback) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ReloadConfig re-reads the config file and environment and applies the result
func (m *Manager) ReloadConfig() error {
	config, err := LoadConfig(m.configFile)
	if err != nil {
		return err
	}

	return m.UpdateConfig(config)
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	syncEnabled := true

	return &Config{
		Plex: PlexConfig{
			Section: "TV Shows",
			Headers: map[string]string{},
		},
		Sonarr: SonarrConfig{
			Name:    "sonarr",
			Headers: map[string]string{},
		},
		Sync: SyncConfig{
			Enabled:               &syncEnabled,
			IntervalMinutes:       5,
			MaxConcurrency:        5,
			StartupTimeoutSeconds: 60,
		},
		API: APIConfig{
			Port:   8000,
			Prefix: "/api",
		},
		Log: LogConfig{
			File:       "",     // Empty = console only
			Level:      "info", // Default log level
			MaxSize:    100,    // 100MB max size
			MaxAge:     30,     // Keep for 30 days
			MaxBackups: 10,     // Keep 10 old files
			Compress:   true,   // Compress old files
		},
		Headers: map[string]string{},
	}
}

// LoadConfig loads and validates configuration from an optional YAML file and
// the environment.
func LoadConfig(configFile string) (*Config, error) {
	config, err := ReadConfig(configFile)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ReadConfig reads configuration without validating it, for commands that
// only need a few settings.
// Priority: environment variables > config file > defaults
func ReadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	// Read the configuration file (a missing file is fine, env may carry everything)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := applyHeaderEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

func applyHeaderEnv(config *Config) error {
	targets := []struct {
		env  string
		dest *map[string]string
	}{
		{envHeadersAll, &config.Headers},
		{envHeadersPlex, &config.Plex.Headers},
		{envHeadersSonarr, &config.Sonarr.Headers},
	}

	for _, t := range targets {
		raw, ok := os.LookupEnv(t.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}

		headers, err := ParseHeaders(raw)
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", t.env, err)
		}

		if *t.dest == nil {
			*t.dest = map[string]string{}
		}
		for k, val := range headers {
			(*t.dest)[k] = val
		}
	}

	return nil
}

// ParseHeaders parses either a JSON object or comma separated key=value pairs
func ParseHeaders(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	headers := map[string]string{}

	if strings.HasPrefix(raw, "{") {
		if err := yaml.Unmarshal([]byte(raw), &headers); err != nil {
			return nil, fmt.Errorf("invalid header object: %w", err)
		}
		return headers, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header pair %q, expected key=value", pair)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return headers, nil
}

// SaveToFile saves a configuration to a YAML file
func SaveToFile(fs afero.Fs, config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("no config file path provided")
	}

	dir := filepath.Dir(filename)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
