package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/cache"
)

// errNotCacheable aborts caching for responses that must not be stored; the
// response has already been written by then.
var errNotCacheable = errors.New("response not cacheable")

// CacheResponse serves GET responses from the read-through cache, keyed by
// the full request URL. Only 200 responses are stored; anything else passes
// through untouched. Mutating routes must not sit behind this middleware.
func CacheResponse(rt *cache.ReadThrough, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}

		key := "resp:" + c.OriginalURL()

		// ran distinguishes the request whose handler actually executed from
		// waiters that shared the computation's outcome.
		ran := false

		body, err := rt.GetOrCompute(c.UserContext(), key, ttl, func(_ context.Context) ([]byte, error) {
			ran = true
			if err := c.Next(); err != nil {
				return nil, err
			}
			if c.Response().StatusCode() != fiber.StatusOK {
				return nil, errNotCacheable
			}
			// The response buffer is reused by fasthttp; store a copy.
			out := make([]byte, len(c.Response().Body()))
			copy(out, c.Response().Body())
			return out, nil
		})
		if err != nil {
			if ran {
				if errors.Is(err, errNotCacheable) {
					// Our own non-200 response is already written.
					return nil
				}
				return err
			}
			// The shared computation produced nothing servable. The waiter
			// still owes its caller a real response, so it runs the handler
			// itself.
			return c.Next()
		}
		if ran {
			return nil
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.Status(fiber.StatusOK).Send(body)
	}
}
