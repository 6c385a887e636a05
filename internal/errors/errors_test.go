package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection refused")

	fetchErr := fmt.Errorf("batch: %w", NewFetchError("plex", "list series", cause))
	assert.True(t, IsFetch(fetchErr))
	assert.False(t, IsValidation(fetchErr))
	assert.ErrorIs(t, fetchErr, cause)
	assert.Contains(t, fetchErr.Error(), "plex list series failed: connection refused")

	seriesErr := fmt.Errorf("unit: %w", NewSeriesError("Foo", "add labels", cause))
	se, ok := AsSeries(seriesErr)
	require.True(t, ok)
	assert.Equal(t, "Foo", se.Title)
	assert.Equal(t, "add labels", se.Op)
	assert.ErrorIs(t, seriesErr, cause)

	validationErr := NewValidationError("days", "must be zero or a positive integer")
	assert.True(t, IsValidation(validationErr))
	assert.Equal(t, "invalid days: must be zero or a positive integer", validationErr.Error())
}
