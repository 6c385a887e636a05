package reconcile

import (
	"fmt"
	"time"

	lserrors "github.com/javi11/labelsync/internal/errors"
	"github.com/javi11/labelsync/internal/plex"
)

const day = 24 * time.Hour

// SearchCriteria narrows a batch to a subset of Plex series. Both fields are
// optional and ANDed together.
type SearchCriteria struct {
	// Title is a case-insensitive substring of the series title.
	Title string `json:"title"`
	// Days keeps only series added within the last Days days. Zero disables it.
	Days int `json:"days"`
}

// Validate rejects criteria that cannot be turned into a filter.
func (c SearchCriteria) Validate() error {
	if c.Days < 0 {
		return lserrors.NewValidationError("days",
			fmt.Sprintf("%d - if present, it must be zero or a positive integer", c.Days))
	}
	return nil
}

// AddedSince returns the inclusive lower bound on the added date: now minus
// Days+1 days. The zero time means no bound.
func (c SearchCriteria) AddedSince(now time.Time) time.Time {
	if c.Days <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(c.Days+1) * day)
}

// Filter converts the criteria into a Plex show filter.
func (c SearchCriteria) Filter(now time.Time) plex.Filter {
	return plex.Filter{Title: c.Title, AddedSince: c.AddedSince(now)}
}

// IsEmpty reports whether the criteria select every series.
func (c SearchCriteria) IsEmpty() bool {
	return c.Title == "" && c.Days <= 0
}
