package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/middleware"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/response"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// serviceError translates a service-layer error into the response envelope.
// Unrecognized errors are logged with the request id and surfaced only as a
// generic message.
func serviceError(c *fiber.Ctx, err error) error {
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return response.ValidationFailed(c, verrs)
	case errors.Is(err, service.ErrNotFound):
		return response.Error(c, fiber.StatusNotFound, "portfolio not found")
	case errors.Is(err, service.ErrUsernameTaken):
		return response.Error(c, fiber.StatusConflict, service.ErrUsernameTaken.Error())
	case errors.Is(err, service.ErrEmailTaken):
		return response.Error(c, fiber.StatusConflict, service.ErrEmailTaken.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return response.Error(c, fiber.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrVersionConflict):
		return response.Error(c, fiber.StatusConflict, "portfolio was modified by someone else, refresh and retry")
	case errors.Is(err, service.ErrAssetTooLarge):
		return response.Error(c, fiber.StatusBadRequest, service.ErrAssetTooLarge.Error())
	case errors.Is(err, service.ErrAssetContentType):
		return response.Error(c, fiber.StatusBadRequest, service.ErrAssetContentType.Error())
	case errors.Is(err, service.ErrIDRequired):
		return response.Error(c, fiber.StatusBadRequest, service.ErrIDRequired.Error())
	default:
		log.Printf("request_id=%s unhandled error: %v", requestIDFromCtx(c), err)
		return response.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that keeps every failure
// path inside the standard envelope without leaking internal detail.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch {
		case status == fiber.StatusBadRequest:
			return response.Error(c, status, "bad request")
		case status == fiber.StatusNotFound:
			return response.Error(c, status, "resource not found")
		case status == fiber.StatusMethodNotAllowed:
			return response.Error(c, status, "method not allowed")
		case status < fiber.StatusInternalServerError:
			return response.Error(c, status, err.Error())
		default:
			log.Printf("request_id=%s unhandled error: %v", requestIDFromCtx(c), err)
			return response.Error(c, status, "internal server error")
		}
	}
}
