package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/labelsync/internal/reconcile"
)

// webhookEvents are the Sonarr events that start a sync of the event's series.
var webhookEvents = map[string]struct{}{
	"Download":  {},
	"SeriesAdd": {},
	"Rename":    {},
	"Test":      {},
}

// handleSonarrWebhook handles POST /api/sonarr/webhook
func (s *Server) handleSonarrWebhook(c *fiber.Ctx) error {
	var req SonarrWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to parse webhook body", "error", err)
		return RespondBadRequest(c, ErrMsgBadRequest, s.details(err))
	}

	if _, ok := webhookEvents[req.EventType]; !ok {
		slog.WarnContext(c.UserContext(), "Rejected webhook event", "event_type", req.EventType)
		return RespondValidationError(c, "Invalid eventType", "unsupported event type: "+req.EventType)
	}

	title := strings.TrimSpace(req.Series.Title)
	if title == "" {
		return RespondValidationError(c, "Missing series title", "series.title is required")
	}

	slog.InfoContext(c.UserContext(), "Received Sonarr webhook", "event_type", req.EventType, "title", title)

	result := s.engine.Run(c.UserContext(), reconcile.SearchCriteria{Title: title})
	return respondResult(c, result)
}

// handleListSonarrTags handles GET /api/sonarr/tags
func (s *Server) handleListSonarrTags(c *fiber.Ctx) error {
	tags, err := s.tags.TagNames(c.UserContext())
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Failed to list Sonarr tags", "error", err)
		return RespondBadGateway(c, ErrMsgUpstream, s.details(err))
	}

	return RespondSuccess(c, SonarrTagsResponse{Tags: tags})
}
