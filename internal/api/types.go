package api

import (
	"time"

	"github.com/javi11/labelsync/internal/reconcile"
)

// SonarrWebhookRequest is the part of a Sonarr webhook payload the sync needs.
type SonarrWebhookRequest struct {
	EventType string `json:"eventType"`
	Series    struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"series"`
}

// PlexSeriesResponse lists the Plex series selected by a search.
type PlexSeriesResponse struct {
	Search reconcile.SearchCriteria `json:"search"`
	Series []PlexSeries             `json:"series"`
}

// PlexSeries is a Plex series as exposed by the API.
type PlexSeries struct {
	Title     string    `json:"title"`
	RatingKey string    `json:"rating_key"`
	AddedAt   time.Time `json:"added_at"`
	Labels    []string  `json:"labels"`
}

// SonarrTagsResponse lists the Sonarr tag labels.
type SonarrTagsResponse struct {
	Tags []string `json:"tags"`
}

// ServerInfo describes the running server.
type ServerInfo struct {
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
	BaseURL   string        `json:"base_url"`
}
