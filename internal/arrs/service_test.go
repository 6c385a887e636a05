package arrs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/javi11/labelsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSonarr struct {
	seriesCalls atomic.Int32
	failTags    bool
}

func (f *fakeSonarr) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/series", func(w http.ResponseWriter, r *http.Request) {
		f.seriesCalls.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "title": "Foo", "tags": []int{1, 2}},
			{"id": 2, "title": "Bar", "tags": []int{}},
			{"id": 3, "title": "Foo", "tags": []int{3}},
		})
	})
	mux.HandleFunc("/api/v3/tag", func(w http.ResponseWriter, r *http.Request) {
		if f.failTags {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "label": "drama"},
			{"id": 2, "label": "comedy"},
			{"id": 3, "label": "anime"},
		})
	})
	mux.HandleFunc("/api/v3/system/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"appName": "Sonarr", "version": "4.0.0"})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "sonarr-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(url, apiKey string) *Service {
	cfg := config.DefaultConfig()
	cfg.Sonarr.URL = url
	cfg.Sonarr.APIKey = apiKey
	return NewService(func() *config.Config { return cfg }, http.DefaultClient)
}

func TestService_SeriesByTitle(t *testing.T) {
	f := &fakeSonarr{}
	srv := f.server(t)
	s := newTestService(srv.URL, "sonarr-key")

	byTitle, err := s.SeriesByTitle(context.Background())
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, int64(3), byTitle["Foo"].ID, "last series with a title wins")
	assert.Equal(t, []int{3}, byTitle["Foo"].Tags)
	assert.NotContains(t, byTitle, "foo", "titles are matched exactly")
}

func TestService_TagLabelsAndNames(t *testing.T) {
	f := &fakeSonarr{}
	srv := f.server(t)
	s := newTestService(srv.URL, "sonarr-key")

	lookup, err := s.TagLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "drama", 2: "comedy", 3: "anime"}, lookup)

	names, err := s.TagNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"anime", "comedy", "drama"}, names)

	assert.Equal(t, []string{"comedy", "drama"}, ResolveTags([]int{2, 1, 42}, lookup))
}

func TestService_TagFailure(t *testing.T) {
	f := &fakeSonarr{failTags: true}
	srv := f.server(t)
	s := newTestService(srv.URL, "sonarr-key")

	_, err := s.TagLabels(context.Background())
	assert.ErrorContains(t, err, "failed to list sonarr tags")
}

func TestService_TestConnection(t *testing.T) {
	f := &fakeSonarr{}
	srv := f.server(t)

	require.NoError(t, newTestService(srv.URL, "sonarr-key").TestConnection(context.Background()))
	assert.Error(t, newTestService(srv.URL, "wrong").TestConnection(context.Background()))
}

func TestService_ClientRebuiltOnConfigChange(t *testing.T) {
	f := &fakeSonarr{}
	srv := f.server(t)

	cfg := config.DefaultConfig()
	cfg.Sonarr.URL = srv.URL
	cfg.Sonarr.APIKey = "wrong"
	s := NewService(func() *config.Config { return cfg }, http.DefaultClient)

	_, err := s.Series(context.Background())
	require.Error(t, err)

	cfg.Sonarr.APIKey = "sonarr-key"
	series, err := s.Series(context.Background())
	require.NoError(t, err)
	assert.Len(t, series, 3)
}
