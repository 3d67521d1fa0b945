package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/response"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/ratelimit"
)

// RateLimit admits requests through the given limiter, keyed by client IP.
// name separates this instance's keys from other instances sharing a backing
// store. Rejections get a 429 with a retryAfter hint; a limiter backend
// failure admits the request, throttling is never a correctness dependency.
func RateLimit(l ratelimit.Limiter, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := ratelimit.FormatKey(ratelimit.KeyTypeIP, name+":"+c.IP())

		res, err := l.Allow(c.UserContext(), key)
		if err != nil {
			return c.Next()
		}
		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return response.RateLimited(c, retryAfter)
		}
		return c.Next()
	}
}
