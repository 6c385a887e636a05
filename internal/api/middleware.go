package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/javi11/labelsync/internal/slogutil"
)

// RequestContextMiddleware tags the request context with a request id and
// logs every API request at debug level.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		ctx := slogutil.With(c.UserContext(), "request_id", requestID)
		c.SetUserContext(ctx)

		err := c.Next()

		slog.DebugContext(ctx, "API request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
			"remote_addr", c.IP(),
		)

		return err
	}
}
