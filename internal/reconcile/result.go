package reconcile

import (
	"encoding/json"
	"fmt"
)

const (
	// MessageNoCandidates is reported when the search matched no Plex series.
	MessageNoCandidates = "No Plex series matched search criteria"
	// MessageNoChanges is reported when every matched series was already in sync.
	MessageNoChanges = "No changes made"
)

// Status is the batch-level outcome.
type Status struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// SeriesChange lists the labels added to and removed from one series.
// It is encoded as {"<title>": {"added": [...], "removed": [...]}}.
type SeriesChange struct {
	Title   string
	Added   []string
	Removed []string
}

type changeSets struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// MarshalJSON implements json.Marshaler.
func (c SeriesChange) MarshalJSON() ([]byte, error) {
	sets := changeSets{Added: c.Added, Removed: c.Removed}
	if sets.Added == nil {
		sets.Added = []string{}
	}
	if sets.Removed == nil {
		sets.Removed = []string{}
	}
	return json.Marshal(map[string]changeSets{c.Title: sets})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *SeriesChange) UnmarshalJSON(data []byte) error {
	var raw map[string]changeSets
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("series change must have exactly one title, got %d", len(raw))
	}
	for title, sets := range raw {
		c.Title = title
		c.Added = sets.Added
		c.Removed = sets.Removed
	}
	return nil
}

// IsEmpty reports whether nothing changed.
func (c SeriesChange) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// SeriesFailure records a series whose reconciliation failed.
type SeriesFailure struct {
	Title string `json:"title"`
	Op    string `json:"op,omitempty"`
	Error string `json:"error"`
}

// Result is the report of one batch.
type Result struct {
	Status   Status          `json:"status"`
	Search   SearchCriteria  `json:"search"`
	Changes  []SeriesChange  `json:"changes"`
	Failures []SeriesFailure `json:"failures,omitempty"`

	// Err is the batch-level error behind Status.Error.
	Err error `json:"-"`
}

func newResult(criteria SearchCriteria) *Result {
	return &Result{
		Search:  criteria,
		Changes: []SeriesChange{},
	}
}
