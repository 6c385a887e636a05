// Package reconcile makes the labels of Plex series match the tags of the
// corresponding Sonarr series.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golift.io/starr/sonarr"

	"github.com/javi11/labelsync/internal/arrs"
	lserrors "github.com/javi11/labelsync/internal/errors"
	"github.com/javi11/labelsync/internal/labels"
	"github.com/javi11/labelsync/internal/plex"
	"github.com/javi11/labelsync/internal/slogutil"
)

// DefaultMaxConcurrency bounds the series reconciled at the same time.
const DefaultMaxConcurrency = 5

// PlexService is the subset of the Plex client the engine needs.
type PlexService interface {
	SearchShows(ctx context.Context, filter plex.Filter) ([]plex.Show, error)
	GetLabels(ctx context.Context, ratingKey string) ([]string, error)
	// AddLabels adds added to a show whose labels are currently current.
	AddLabels(ctx context.Context, ratingKey string, current, added []string) error
	RemoveLabels(ctx context.Context, ratingKey string, removed []string) error
}

// SonarrService is the subset of the Sonarr service the engine needs.
type SonarrService interface {
	SeriesByTitle(ctx context.Context) (map[string]*sonarr.Series, error)
	TagLabels(ctx context.Context) (map[int]string, error)
}

// Redactor masks secrets in text that leaves the process.
type Redactor interface {
	Redact(s string) string
}

type noopRedactor struct{}

func (noopRedactor) Redact(s string) string { return s }

// Engine runs reconciliation batches.
type Engine struct {
	plex           PlexService
	sonarr         SonarrService
	redactor       Redactor
	maxConcurrency func() int
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for recency filters.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMaxConcurrency sets how many series are reconciled at once. The
// function is read at the start of every batch so the limit can follow
// configuration reloads.
func WithMaxConcurrency(limit func() int) Option {
	return func(e *Engine) {
		e.maxConcurrency = limit
	}
}

// WithRedactor masks secrets in error messages copied into results.
func WithRedactor(r Redactor) Option {
	return func(e *Engine) {
		if r != nil {
			e.redactor = r
		}
	}
}

// NewEngine creates a reconciliation engine.
func NewEngine(plexService PlexService, sonarrService SonarrService, opts ...Option) *Engine {
	e := &Engine{
		plex:           plexService,
		sonarr:         sonarrService,
		redactor:       noopRedactor{},
		maxConcurrency: func() int { return DefaultMaxConcurrency },
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Candidates returns the Plex series selected by the criteria.
func (e *Engine) Candidates(ctx context.Context, criteria SearchCriteria) ([]plex.Show, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	shows, err := e.plex.SearchShows(ctx, criteria.Filter(e.now()))
	if err != nil {
		return nil, lserrors.NewFetchError("plex", "search shows", err)
	}
	return shows, nil
}

// Run executes one batch. It never returns an error: batch-level failures
// set Status.Error and per-series failures are listed in Failures.
func (e *Engine) Run(ctx context.Context, criteria SearchCriteria) *Result {
	runID := uuid.NewString()
	ctx = slogutil.With(ctx, "run_id", runID)
	start := time.Now()

	result := newResult(criteria)
	if err := e.run(ctx, criteria, result); err != nil {
		result.Err = err
		result.Status.Error = true
		result.Status.Message = e.redactor.Redact(err.Error())
		slog.ErrorContext(ctx, "Label sync failed", "title", criteria.Title, "days", criteria.Days, "error", err)
		return result
	}

	slog.InfoContext(ctx, "Label sync completed",
		"title", criteria.Title,
		"days", criteria.Days,
		"changed", len(result.Changes),
		"failed", len(result.Failures),
		"duration", time.Since(start))

	return result
}

func (e *Engine) run(ctx context.Context, criteria SearchCriteria, result *Result) error {
	candidates, err := e.Candidates(ctx, criteria)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		result.Status.Message = MessageNoCandidates
		slog.InfoContext(ctx, "No Plex series matched", "title", criteria.Title, "days", criteria.Days)
		return nil
	}

	seriesByTitle, err := e.sonarr.SeriesByTitle(ctx)
	if err != nil {
		return lserrors.NewFetchError("sonarr", "list series", err)
	}

	tagLabels, err := e.sonarr.TagLabels(ctx)
	if err != nil {
		return lserrors.NewFetchError("sonarr", "list tags", err)
	}

	limit := e.maxConcurrency()
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}

	var (
		failuresMu sync.Mutex
		failures   []SeriesFailure
	)

	// Errors do not cancel siblings; each unit reports its own failure.
	p := pool.NewWithResults[*SeriesChange]().
		WithErrors().
		WithContext(ctx).
		WithMaxGoroutines(limit)

	matched := 0
	for _, show := range candidates {
		series, ok := seriesByTitle[show.Title]
		if !ok {
			slog.DebugContext(ctx, "Plex series not in Sonarr, skipping", "title", show.Title)
			continue
		}
		matched++

		desired := arrs.ResolveTags(series.Tags, tagLabels)
		p.Go(func(ctx context.Context) (*SeriesChange, error) {
			change, err := e.reconcileSeries(ctx, show, desired)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to sync series labels", "title", show.Title, "error", err)

				failure := SeriesFailure{Title: show.Title, Error: e.redactor.Redact(err.Error())}
				if se, ok := lserrors.AsSeries(err); ok {
					failure.Op = se.Op
				}

				failuresMu.Lock()
				failures = append(failures, failure)
				failuresMu.Unlock()
				return nil, err
			}
			return change, nil
		})
	}

	// Every error is already listed in failures.
	changes, err := p.Wait()
	if err != nil {
		slog.DebugContext(ctx, "Some series failed to sync", "failed", len(failures), "error", err)
	}

	for _, change := range changes {
		if change != nil && !change.IsEmpty() {
			result.Changes = append(result.Changes, *change)
		}
	}
	result.Failures = failures

	slog.DebugContext(ctx, "Reconciled series", "candidates", len(candidates), "matched", matched)

	if len(result.Changes) == 0 {
		result.Status.Message = MessageNoChanges
	}
	return nil
}

// reconcileSeries fetches the current labels of one series, diffs them against
// the desired labels and applies the difference. Additions are applied before
// removals and empty sets are not sent.
func (e *Engine) reconcileSeries(ctx context.Context, show plex.Show, desired []string) (*SeriesChange, error) {
	current, err := e.plex.GetLabels(ctx, show.RatingKey)
	if err != nil {
		return nil, lserrors.NewSeriesError(show.Title, "fetch labels", err)
	}

	added, removed := labels.Diff(current, desired)
	change := &SeriesChange{Title: show.Title, Added: added, Removed: removed}
	if change.IsEmpty() {
		return nil, nil
	}

	if len(added) > 0 {
		if err := e.plex.AddLabels(ctx, show.RatingKey, current, added); err != nil {
			return nil, lserrors.NewSeriesError(show.Title, "add labels", err)
		}
	}

	if len(removed) > 0 {
		if err := e.plex.RemoveLabels(ctx, show.RatingKey, labels.Originals(current, removed)); err != nil {
			return nil, lserrors.NewSeriesError(show.Title, "remove labels", err)
		}
	}

	slog.InfoContext(ctx, "Updated series labels", "title", show.Title, "added", added, "removed", removed)
	return change, nil
}
