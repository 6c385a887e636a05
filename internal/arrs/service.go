// Package arrs provides access to the Sonarr series and tags that drive label synchronization.
package arrs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/javi11/labelsync/internal/arrs/clients"
	"github.com/javi11/labelsync/internal/arrs/data"
	"github.com/javi11/labelsync/internal/config"
	"golift.io/starr/sonarr"
)

// Service reads series and tag data from the configured Sonarr instance.
type Service struct {
	configGetter config.ConfigGetter
	clients      *clients.Manager
	data         *data.Manager
}

// NewService creates a Sonarr service. httpClient is shared by every
// request and carries timeouts and the configured extra headers.
func NewService(configGetter config.ConfigGetter, httpClient *http.Client) *Service {
	return &Service{
		configGetter: configGetter,
		clients:      clients.NewManager(httpClient),
		data:         data.NewManager(),
	}
}

func (s *Service) client() (*sonarr.Sonarr, string, error) {
	cfg := s.configGetter().Sonarr
	client, err := s.clients.GetOrCreateSonarrClient(cfg.Name, cfg.URL, cfg.APIKey)
	if err != nil {
		return nil, "", err
	}
	return client, cfg.Name, nil
}

// Series returns every series known to Sonarr.
func (s *Service) Series(ctx context.Context) ([]*sonarr.Series, error) {
	client, name, err := s.client()
	if err != nil {
		return nil, err
	}

	series, err := s.data.GetSeries(ctx, client, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list sonarr series: %w", err)
	}
	return series, nil
}

// SeriesByTitle indexes every Sonarr series by its exact title. When two
// series share a title the last one listed wins.
func (s *Service) SeriesByTitle(ctx context.Context) (map[string]*sonarr.Series, error) {
	series, err := s.Series(ctx)
	if err != nil {
		return nil, err
	}

	byTitle := make(map[string]*sonarr.Series, len(series))
	for _, item := range series {
		if item == nil {
			continue
		}
		if prev, dup := byTitle[item.Title]; dup {
			slog.WarnContext(ctx, "Duplicate Sonarr series title, keeping the last",
				"title", item.Title, "series_id", item.ID, "replaced_id", prev.ID)
		}
		byTitle[item.Title] = item
	}
	return byTitle, nil
}

// TagLabels returns the tag id to label lookup table.
func (s *Service) TagLabels(ctx context.Context) (map[int]string, error) {
	client, name, err := s.client()
	if err != nil {
		return nil, err
	}

	tags, err := s.data.GetTags(ctx, client, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list sonarr tags: %w", err)
	}

	lookup := make(map[int]string, len(tags))
	for _, tag := range tags {
		if tag == nil {
			continue
		}
		lookup[tag.ID] = tag.Label
	}
	return lookup, nil
}

// TagNames returns every tag label, sorted.
func (s *Service) TagNames(ctx context.Context) ([]string, error) {
	lookup, err := s.TagLabels(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(lookup))
	for _, label := range lookup {
		names = append(names, label)
	}
	slices.Sort(names)
	return names, nil
}

// ResolveTags maps tag ids to labels. Unknown ids are dropped.
func ResolveTags(ids []int, lookup map[int]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := lookup[id]; ok {
			out = append(out, label)
		}
	}
	return out
}

// TestConnection checks that the configured Sonarr instance answers.
func (s *Service) TestConnection(ctx context.Context) error {
	cfg := s.configGetter().Sonarr
	return s.clients.TestConnection(ctx, cfg.URL, cfg.APIKey)
}
