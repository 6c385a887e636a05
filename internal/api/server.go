// Package api exposes the sync triggers and read-only helpers over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/labelsync/internal/autosync"
	"github.com/javi11/labelsync/internal/plex"
	"github.com/javi11/labelsync/internal/reconcile"
)

// Config represents API server configuration
type Config struct {
	Prefix string // API path prefix (default: "/api")
}

// DefaultConfig returns default API configuration
func DefaultConfig() *Config {
	return &Config{
		Prefix: "/api",
	}
}

// SyncEngine runs reconciliation batches.
type SyncEngine interface {
	Run(ctx context.Context, criteria reconcile.SearchCriteria) *reconcile.Result
	Candidates(ctx context.Context, criteria reconcile.SearchCriteria) ([]plex.Show, error)
}

// TagLister lists Sonarr tag labels.
type TagLister interface {
	TagNames(ctx context.Context) ([]string, error)
}

// AutoSync is the periodic sync worker.
type AutoSync interface {
	GetStatus() autosync.Status
	TriggerManualSync(ctx context.Context) error
}

// Redactor masks secrets in error details sent to clients.
type Redactor interface {
	Redact(s string) string
}

type noopRedactor struct{}

func (noopRedactor) Redact(s string) string { return s }

// Server represents the API server
type Server struct {
	config    *Config
	engine    SyncEngine
	tags      TagLister
	autoSync  AutoSync
	redactor  Redactor
	startTime time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRedactor masks secrets in upstream error details.
func WithRedactor(r Redactor) ServerOption {
	return func(s *Server) {
		if r != nil {
			s.redactor = r
		}
	}
}

// NewServer creates a new API server. autoSync may be nil when periodic sync is disabled.
func NewServer(config *Config, engine SyncEngine, tags TagLister, autoSync AutoSync, opts ...ServerOption) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:    config,
		engine:    engine,
		tags:      tags,
		autoSync:  autoSync,
		redactor:  noopRedactor{},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) details(err error) string {
	if err == nil {
		return ""
	}
	return s.redactor.Redact(err.Error())
}

// SetupRoutes registers every route on the fiber app.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.handleRoot)
	app.Get("/live", s.handleLive)

	api := app.Group(s.config.Prefix, RequestContextMiddleware())

	// Triggers
	api.Post("/sync", s.handleSync)
	api.Post("/sonarr/webhook", s.handleSonarrWebhook)

	// Read-only helpers
	api.Get("/plex/series", s.handleListPlexSeries)
	api.Get("/sonarr/tags", s.handleListSonarrTags)
	api.Get("/system/info", s.handleSystemInfo)

	// Autosync
	api.Get("/autosync/status", s.handleGetAutoSyncStatus)
	api.Post("/autosync/trigger", s.handleTriggerAutoSync)
}
