package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/auth"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/response"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

// PrincipalLocalKey is where the authenticated *model.User is stored in
// Fiber's context locals.
const PrincipalLocalKey = "principal"

const bearerPrefix = "Bearer "

// credentialFrom extracts the token from the session cookie or the
// Authorization header. The cookie wins when both are present.
func credentialFrom(c *fiber.Ctx, cookieName string) string {
	if v := c.Cookies(cookieName); v != "" {
		return v
	}
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	return ""
}

// RequireAuth rejects requests without a valid credential with a 401 whose
// message distinguishes missing, expired and invalid tokens. On success the
// principal is stored in context locals.
func RequireAuth(v *auth.Verifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := credentialFrom(c, cookieName)
		if credential == "" {
			return response.Error(c, fiber.StatusUnauthorized, "authentication required")
		}

		user, err := v.Verify(c.UserContext(), credential)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return response.Error(c, fiber.StatusUnauthorized, "token has expired")
			default:
				return response.Error(c, fiber.StatusUnauthorized, "invalid token")
			}
		}

		c.Locals(PrincipalLocalKey, user)
		return c.Next()
	}
}

// OptionalAuth attaches the principal when a valid credential is present and
// proceeds anonymously on any verification problem. Used by public routes
// that personalize output for logged-in visitors.
func OptionalAuth(v *auth.Verifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if credential := credentialFrom(c, cookieName); credential != "" {
			if user, err := v.Verify(c.UserContext(), credential); err == nil {
				c.Locals(PrincipalLocalKey, user)
			}
		}
		return c.Next()
	}
}

// PrincipalFromCtx returns the authenticated user stored by RequireAuth or
// OptionalAuth, or nil.
func PrincipalFromCtx(c *fiber.Ctx) *model.User {
	u, _ := c.Locals(PrincipalLocalKey).(*model.User)
	return u
}
