// Package response defines the JSON envelope shared by handlers and
// middleware. Success bodies wrap their payload in data; failure bodies carry
// a safe message, optional per-field details, and a retryAfter hint when the
// client was rate limited.
package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

type successBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorBody struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Errors     []service.FieldError `json:"errors,omitempty"`
	RetryAfter int                  `json:"retryAfter,omitempty"`
}

// OK writes a success envelope with the given status and payload.
func OK(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(successBody{Success: true, Data: data})
}

// Error writes a failure envelope. message must be safe for clients; internal
// detail stays in logs.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorBody{Success: false, Message: message})
}

// ValidationFailed writes a 400 with per-field details so clients can render
// every problem at once.
func ValidationFailed(c *fiber.Ctx, verrs service.ValidationErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody{
		Success: false,
		Message: "validation failed",
		Errors:  verrs,
	})
}

type conflictBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Current any    `json:"current"`
}

// Conflict writes a 409 carrying the current server state so the client can
// rebase its stale edit and resubmit.
func Conflict(c *fiber.Ctx, current any) error {
	return c.Status(fiber.StatusConflict).JSON(conflictBody{
		Success: false,
		Message: "version conflict, rebase on the current state and retry",
		Current: current,
	})
}

// RateLimited writes a 429 carrying the seconds until the client may retry.
func RateLimited(c *fiber.Ctx, retryAfterSeconds int) error {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{
		Success:    false,
		Message:    "too many requests",
		RetryAfter: retryAfterSeconds,
	})
}
