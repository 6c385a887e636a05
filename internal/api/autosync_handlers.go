package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/labelsync/internal/autosync"
)

// handleGetAutoSyncStatus handles GET /api/autosync/status
func (s *Server) handleGetAutoSyncStatus(c *fiber.Ctx) error {
	if s.autoSync == nil {
		return RespondSuccess(c, autosync.Status{})
	}
	return RespondSuccess(c, s.autoSync.GetStatus())
}

// handleTriggerAutoSync handles POST /api/autosync/trigger
func (s *Server) handleTriggerAutoSync(c *fiber.Ctx) error {
	if s.autoSync == nil {
		return RespondServiceUnavailable(c, "Autosync is disabled", "")
	}

	if err := s.autoSync.TriggerManualSync(c.UserContext()); err != nil {
		slog.WarnContext(c.UserContext(), "Failed to trigger autosync", "error", err)
		if errors.Is(err, autosync.ErrNotRunning) {
			return RespondServiceUnavailable(c, "Autosync is not running", s.details(err))
		}
		return RespondConflict(c, "Sync already pending", s.details(err))
	}

	return RespondAccepted(c, "Sync triggered successfully")
}
