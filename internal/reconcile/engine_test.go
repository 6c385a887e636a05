package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golift.io/starr/sonarr"

	lserrors "github.com/javi11/labelsync/internal/errors"
	"github.com/javi11/labelsync/internal/labels"
	"github.com/javi11/labelsync/internal/plex"
)

type fakePlex struct {
	mu         sync.Mutex
	shows      []plex.Show
	labels     map[string][]string
	searchErr  error
	failAdd    map[string]error
	lastFilter plex.Filter
	adds       map[string][]string
	removes    map[string][]string

	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakePlex(shows ...plex.Show) *fakePlex {
	f := &fakePlex{
		labels:  make(map[string][]string),
		failAdd: make(map[string]error),
		adds:    make(map[string][]string),
		removes: make(map[string][]string),
	}
	for _, s := range shows {
		f.shows = append(f.shows, s)
		f.labels[s.RatingKey] = s.Labels
	}
	return f
}

func (f *fakePlex) SearchShows(_ context.Context, filter plex.Filter) ([]plex.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	out := make([]plex.Show, 0, len(f.shows))
	for _, s := range f.shows {
		if filter.Title != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(filter.Title)) {
			continue
		}
		if !filter.AddedSince.IsZero() && s.AddedAt.Before(filter.AddedSince) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakePlex) GetLabels(_ context.Context, ratingKey string) ([]string, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.labels[ratingKey]...), nil
}

// AddLabels replaces the stored list with what the edit would send, like Plex does.
func (f *fakePlex) AddLabels(_ context.Context, ratingKey string, current, added []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failAdd[ratingKey]; err != nil {
		return err
	}
	f.adds[ratingKey] = added
	f.labels[ratingKey] = labels.Merge(current, added)
	return nil
}

func (f *fakePlex) RemoveLabels(_ context.Context, ratingKey string, removed []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes[ratingKey] = removed
	kept := f.labels[ratingKey][:0:0]
	for _, l := range f.labels[ratingKey] {
		drop := false
		for _, r := range removed {
			if strings.EqualFold(l, r) {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, l)
		}
	}
	f.labels[ratingKey] = kept
	return nil
}

type fakeSonarr struct {
	series    map[string]*sonarr.Series
	tags      map[int]string
	seriesErr error
	tagsErr   error
}

func (f *fakeSonarr) SeriesByTitle(context.Context) (map[string]*sonarr.Series, error) {
	return f.series, f.seriesErr
}

func (f *fakeSonarr) TagLabels(context.Context) (map[int]string, error) {
	return f.tags, f.tagsErr
}

var tagLookup = map[int]string{1: "drama", 2: "comedy", 3: "action", 4: "anime"}

func sonarrWith(series map[string][]int) *fakeSonarr {
	f := &fakeSonarr{series: make(map[string]*sonarr.Series), tags: tagLookup}
	i := int64(0)
	for title, tags := range series {
		i++
		f.series[title] = &sonarr.Series{ID: i, Title: title, Tags: tags}
	}
	return f
}

type stubRedactor struct{ secret string }

func (r stubRedactor) Redact(s string) string { return strings.ReplaceAll(s, r.secret, "********") }

func TestEngine_NoCandidates(t *testing.T) {
	e := NewEngine(newFakePlex(), sonarrWith(nil))

	result := e.Run(context.Background(), SearchCriteria{Title: "nothing"})

	assert.False(t, result.Status.Error)
	assert.Equal(t, MessageNoCandidates, result.Status.Message)
	assert.Empty(t, result.Changes)
	assert.NotNil(t, result.Changes)
	assert.Equal(t, "nothing", result.Search.Title)
}

func TestEngine_AllInSync(t *testing.T) {
	p := newFakePlex(
		plex.Show{RatingKey: "1", Title: "Foo", Labels: []string{"Drama", "comedy"}},
		plex.Show{RatingKey: "2", Title: "Bar", Labels: nil},
	)
	s := sonarrWith(map[string][]int{"Foo": {1, 2}, "Bar": {}})

	result := NewEngine(p, s).Run(context.Background(), SearchCriteria{})

	assert.False(t, result.Status.Error)
	assert.Equal(t, MessageNoChanges, result.Status.Message)
	assert.Empty(t, result.Changes)
	assert.Empty(t, p.adds)
	assert.Empty(t, p.removes)
}

func TestEngine_Scenario(t *testing.T) {
	p := newFakePlex(plex.Show{RatingKey: "1", Title: "Foo", Labels: []string{"action", "drama"}})
	s := sonarrWith(map[string][]int{"Foo": {1, 2}})

	result := NewEngine(p, s).Run(context.Background(), SearchCriteria{})

	require.Len(t, result.Changes, 1)
	assert.Equal(t, SeriesChange{Title: "Foo", Added: []string{"comedy"}, Removed: []string{"action"}}, result.Changes[0])
	assert.Empty(t, result.Status.Message)
	assert.False(t, result.Status.Error)

	encoded, err := json.Marshal(result.Changes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"Foo":{"added":["comedy"],"removed":["action"]}}`, string(encoded))
	assert.ElementsMatch(t, []string{"drama", "comedy"}, p.labels["1"], "shared labels are untouched")

	// a second run finds nothing to do
	again := NewEngine(p, s).Run(context.Background(), SearchCriteria{})
	assert.Empty(t, again.Changes)
	assert.Equal(t, MessageNoChanges, again.Status.Message)
}

func TestEngine_SkipsSeriesMissingFromSonarr(t *testing.T) {
	p := newFakePlex(
		plex.Show{RatingKey: "1", Title: "Foo", Labels: []string{"drama"}},
		plex.Show{RatingKey: "2", Title: "Only In Plex", Labels: []string{"stale"}},
		plex.Show{RatingKey: "3", Title: "foo", Labels: []string{"stale"}},
	)
	s := sonarrWith(map[string][]int{"Foo": {1, 4}})

	result := NewEngine(p, s).Run(context.Background(), SearchCriteria{})

	require.Len(t, result.Changes, 1)
	assert.Equal(t, "Foo", result.Changes[0].Title)
	assert.Empty(t, result.Failures)
	assert.NotContains(t, p.removes, "2")
	assert.NotContains(t, p.removes, "3", "join is exact, not case-insensitive")
}

func TestEngine_DaysBoundary(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	bound := now.Add(-31 * 24 * time.Hour)

	p := newFakePlex(
		plex.Show{RatingKey: "1", Title: "On Boundary", AddedAt: bound},
		plex.Show{RatingKey: "2", Title: "Too Old", AddedAt: bound.Add(-time.Second)},
		plex.Show{RatingKey: "3", Title: "Recent", AddedAt: now.Add(-24 * time.Hour)},
	)
	s := sonarrWith(map[string][]int{"On Boundary": {1}, "Too Old": {1}, "Recent": {1}})

	e := NewEngine(p, s, WithClock(func() time.Time { return now }))
	result := e.Run(context.Background(), SearchCriteria{Days: 30})

	assert.Equal(t, bound, p.lastFilter.AddedSince)

	titles := make([]string, 0, len(result.Changes))
	for _, c := range result.Changes {
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"On Boundary", "Recent"}, titles)
}

func TestEngine_DaysZeroMeansNoFilter(t *testing.T) {
	p := newFakePlex()
	e := NewEngine(p, sonarrWith(nil))

	e.Run(context.Background(), SearchCriteria{Days: 0})
	assert.True(t, p.lastFilter.AddedSince.IsZero())
}

func TestEngine_PerSeriesFailureIsIsolated(t *testing.T) {
	p := newFakePlex(
		plex.Show{RatingKey: "1", Title: "A"},
		plex.Show{RatingKey: "2", Title: "B"},
		plex.Show{RatingKey: "3", Title: "C"},
	)
	p.failAdd["2"] = errors.New("plex returned status 500 for token s3cr3t")
	s := sonarrWith(map[string][]int{"A": {1}, "B": {2}, "C": {3}})

	e := NewEngine(p, s, WithRedactor(stubRedactor{secret: "s3cr3t"}))
	result := e.Run(context.Background(), SearchCriteria{})

	assert.False(t, result.Status.Error)
	titles := make([]string, 0, len(result.Changes))
	for _, c := range result.Changes {
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"A", "C"}, titles)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "B", result.Failures[0].Title)
	assert.Equal(t, "add labels", result.Failures[0].Op)
	assert.Contains(t, result.Failures[0].Error, "add labels")
	assert.NotContains(t, result.Failures[0].Error, "s3cr3t")
}

func TestEngine_BatchFatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		plex   func(*fakePlex)
		sonarr func(*fakeSonarr)
		want   string
	}{
		{
			name: "plex search",
			plex: func(f *fakePlex) { f.searchErr = errors.New("connection refused") },
			want: "plex search shows failed: connection refused",
		},
		{
			name:   "sonarr series",
			sonarr: func(f *fakeSonarr) { f.seriesErr = errors.New("401 Unauthorized") },
			want:   "sonarr list series failed: 401 Unauthorized",
		},
		{
			name:   "sonarr tags",
			sonarr: func(f *fakeSonarr) { f.tagsErr = errors.New("timeout") },
			want:   "sonarr list tags failed: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlex(plex.Show{RatingKey: "1", Title: "Foo"})
			s := sonarrWith(map[string][]int{"Foo": {1}})
			if tt.plex != nil {
				tt.plex(p)
			}
			if tt.sonarr != nil {
				tt.sonarr(s)
			}

			result := NewEngine(p, s).Run(context.Background(), SearchCriteria{})

			assert.True(t, result.Status.Error)
			assert.Equal(t, tt.want, result.Status.Message)
			assert.True(t, lserrors.IsFetch(result.Err))
			assert.Empty(t, result.Changes)
			assert.Empty(t, p.adds)
		})
	}
}

func TestEngine_ConcurrencyLimit(t *testing.T) {
	shows := make([]plex.Show, 0, 20)
	series := make(map[string][]int, 20)
	for i := range 20 {
		title := "Show " + string(rune('A'+i))
		shows = append(shows, plex.Show{RatingKey: title, Title: title})
		series[title] = []int{1}
	}
	p := newFakePlex(shows...)
	p.delay = 20 * time.Millisecond

	result := NewEngine(p, sonarrWith(series), WithMaxConcurrency(func() int { return 3 })).
		Run(context.Background(), SearchCriteria{})

	assert.Len(t, result.Changes, 20)
	assert.LessOrEqual(t, p.peak.Load(), int32(3))
	assert.Greater(t, p.peak.Load(), int32(1))
}

func TestEngine_RunRejectsNegativeDays(t *testing.T) {
	p := newFakePlex(plex.Show{RatingKey: "1", Title: "Foo"})
	result := NewEngine(p, sonarrWith(nil)).Run(context.Background(), SearchCriteria{Days: -3})

	assert.True(t, result.Status.Error)
	assert.True(t, lserrors.IsValidation(result.Err))
	assert.Empty(t, result.Changes)
}

func TestEngine_CandidatesRejectsNegativeDays(t *testing.T) {
	_, err := NewEngine(newFakePlex(), sonarrWith(nil)).Candidates(context.Background(), SearchCriteria{Days: -1})
	assert.True(t, lserrors.IsValidation(err))
	assert.EqualError(t, err, "invalid days: -1 - if present, it must be zero or a positive integer")
}

func TestSearchCriteria_AddedSince(t *testing.T) {
	now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, SearchCriteria{}.AddedSince(now).IsZero())
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), SearchCriteria{Days: 1}.AddedSince(now))
	assert.True(t, SearchCriteria{}.IsEmpty())
	assert.False(t, SearchCriteria{Title: "x"}.IsEmpty())
}

func TestSeriesChange_UnmarshalJSON(t *testing.T) {
	var c SeriesChange
	require.NoError(t, json.Unmarshal([]byte(`{"Foo":{"added":["a"],"removed":[]}}`), &c))
	assert.Equal(t, "Foo", c.Title)
	assert.Equal(t, []string{"a"}, c.Added)

	assert.Error(t, json.Unmarshal([]byte(`{"A":{},"B":{}}`), &c))
}
