package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	lserrors "github.com/javi11/labelsync/internal/errors"
	"github.com/javi11/labelsync/internal/reconcile"
)

// ParseSearchCriteria extracts the optional title and days query parameters.
func ParseSearchCriteria(c *fiber.Ctx) (reconcile.SearchCriteria, error) {
	criteria := reconcile.SearchCriteria{
		Title: strings.TrimSpace(c.Query("title")),
	}

	days, err := ParseDays(c.Query("days"))
	if err != nil {
		return criteria, err
	}
	criteria.Days = days

	return criteria, criteria.Validate()
}

// ParseDays parses the days parameter. An empty value means no recency filter.
func ParseDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, lserrors.NewValidationError("days", fmt.Sprintf("%q - if present, it must be zero or a positive integer", raw))
	}
	return days, nil
}
