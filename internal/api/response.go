package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Response builder functions for Fiber handlers.
// These provide a unified interface for API responses.

// RespondSuccess sends a successful response with data.
func RespondSuccess(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// RespondAccepted sends a 202 Accepted response with a message only.
func RespondAccepted(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusAccepted).JSON(APIResponse{
		Success: true,
		Message: message,
	})
}

// RespondMessage sends a successful response with a message only.
func RespondMessage(c *fiber.Ctx, message string) error {
	return c.JSON(APIResponse{
		Success: true,
		Message: message,
	})
}

// Error response functions - all use the unified error format.

// RespondError sends an error response with a custom status code.
func RespondError(c *fiber.Ctx, status int, code, message, details string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// RespondBadRequest sends a 400 Bad Request error.
func RespondBadRequest(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusBadRequest, ErrCodeBadRequest, message, details)
}

// RespondValidationError sends a 400 Bad Request error for validation failures.
func RespondValidationError(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusBadRequest, ErrCodeValidation, message, details)
}

// RespondConflict sends a 409 Conflict error.
func RespondConflict(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusConflict, ErrCodeConflict, message, details)
}

// RespondBadGateway sends a 502 Bad Gateway error when Plex or Sonarr failed.
func RespondBadGateway(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusBadGateway, ErrCodeUpstream, message, details)
}

// RespondInternalError sends a 500 Internal Server Error.
func RespondInternalError(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusInternalServerError, ErrCodeInternalServer, message, details)
}

// RespondServiceUnavailable sends a 503 Service Unavailable error.
func RespondServiceUnavailable(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, details)
}

// ErrorHandler is the fiber error handler. Unexpected errors are logged and
// answered with a 500 that carries no internal details.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := ErrCodeBadRequest
		if fe.Code >= fiber.StatusInternalServerError {
			code = ErrCodeInternalServer
		}
		return RespondError(c, fe.Code, code, fe.Message, "")
	}

	slog.ErrorContext(c.UserContext(), "Unhandled request error", "path", c.Path(), "method", c.Method(), "error", err)
	return RespondInternalError(c, ErrMsgInternal, "")
}
