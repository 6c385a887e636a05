package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	lserrors "github.com/javi11/labelsync/internal/errors"
	"github.com/javi11/labelsync/internal/reconcile"
)

// handleSync handles POST /api/sync
func (s *Server) handleSync(c *fiber.Ctx) error {
	criteria, err := ParseSearchCriteria(c)
	if err != nil {
		return RespondValidationError(c, ErrMsgValidation, err.Error())
	}

	slog.InfoContext(c.UserContext(), "On-demand sync requested", "title", criteria.Title, "days", criteria.Days)

	result := s.engine.Run(c.UserContext(), criteria)
	return respondResult(c, result)
}

// handleListPlexSeries handles GET /api/plex/series
func (s *Server) handleListPlexSeries(c *fiber.Ctx) error {
	criteria, err := ParseSearchCriteria(c)
	if err != nil {
		return RespondValidationError(c, ErrMsgValidation, err.Error())
	}

	shows, err := s.engine.Candidates(c.UserContext(), criteria)
	if err != nil {
		if lserrors.IsValidation(err) {
			return RespondValidationError(c, ErrMsgValidation, err.Error())
		}
		slog.ErrorContext(c.UserContext(), "Failed to list Plex series", "error", err)
		return RespondBadGateway(c, ErrMsgUpstream, s.details(err))
	}

	resp := PlexSeriesResponse{
		Search: criteria,
		Series: make([]PlexSeries, 0, len(shows)),
	}
	for _, show := range shows {
		resp.Series = append(resp.Series, PlexSeries{
			Title:     show.Title,
			RatingKey: show.RatingKey,
			AddedAt:   show.AddedAt,
			Labels:    show.Labels,
		})
	}

	return RespondSuccess(c, resp)
}

// respondResult sends a batch result. Batch-level failures keep the result
// attached so callers still see the echoed search: Plex or Sonarr failures
// are 502, invalid criteria 400 and anything else 500.
func respondResult(c *fiber.Ctx, result *reconcile.Result) error {
	if !result.Status.Error {
		return RespondSuccess(c, result)
	}

	status, code, message := fiber.StatusInternalServerError, ErrCodeInternalServer, ErrMsgInternal
	switch {
	case lserrors.IsValidation(result.Err):
		status, code, message = fiber.StatusBadRequest, ErrCodeValidation, ErrMsgValidation
	case lserrors.IsFetch(result.Err):
		status, code, message = fiber.StatusBadGateway, ErrCodeUpstream, ErrMsgUpstream
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Data:    result,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: result.Status.Message,
		},
	})
}
