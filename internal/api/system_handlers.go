package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// handleRoot handles GET /
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return RespondMessage(c, fmt.Sprintf("Server up since %s @ %s",
		s.startTime.Format(time.RFC3339), c.BaseURL()))
}

// handleLive handles GET /live
func (s *Server) handleLive(c *fiber.Ctx) error {
	return RespondMessage(c, "alive")
}

// handleSystemInfo handles GET /api/system/info
func (s *Server) handleSystemInfo(c *fiber.Ctx) error {
	return RespondSuccess(c, ServerInfo{
		StartTime: s.startTime,
		Uptime:    time.Since(s.startTime).Round(time.Second),
		BaseURL:   c.BaseURL(),
	})
}
