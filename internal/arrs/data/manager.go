package data

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
	"golift.io/starr"
	"golift.io/starr/sonarr"
)

// Manager fetches Sonarr reference data. Concurrent callers asking for the
// same data share one in-flight request; nothing is kept after it returns.
type Manager struct {
	requestGroup singleflight.Group
}

func NewManager() *Manager {
	return &Manager{}
}

// GetSeries retrieves all series from Sonarr
func (m *Manager) GetSeries(ctx context.Context, client *sonarr.Sonarr, instanceName string) ([]*sonarr.Series, error) {
	key := "sonarr_series_" + instanceName
	v, err, shared := m.requestGroup.Do(key, func() (interface{}, error) {
		slog.DebugContext(ctx, "Fetching series list", "instance", instanceName)
		return client.GetAllSeriesContext(ctx)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		slog.DebugContext(ctx, "Shared in-flight series request", "instance", instanceName)
	}

	return v.([]*sonarr.Series), nil
}

// GetTags retrieves all tags from Sonarr
func (m *Manager) GetTags(ctx context.Context, client *sonarr.Sonarr, instanceName string) ([]*starr.Tag, error) {
	key := "sonarr_tags_" + instanceName
	v, err, _ := m.requestGroup.Do(key, func() (interface{}, error) {
		slog.DebugContext(ctx, "Fetching tag list", "instance", instanceName)
		return client.GetTagsContext(ctx)
	})
	if err != nil {
		return nil, err
	}

	return v.([]*starr.Tag), nil
}
