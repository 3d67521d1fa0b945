package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/middleware"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/response"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/ratelimit"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

// AuthHandler serves registration, login and session introspection.
type AuthHandler struct {
	svc         service.AuthService
	delays      *ratelimit.ProgressiveDelay
	cookieName  string
	tokenExpiry time.Duration
}

// NewAuthHandler constructs an AuthHandler. delays slows repeated login
// attempts per client address and may be nil in tests.
func NewAuthHandler(svc service.AuthService, delays *ratelimit.ProgressiveDelay, cookieName string, tokenExpiry time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, delays: delays, cookieName: cookieName, tokenExpiry: tokenExpiry}
}

type authResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokenExpiry),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

// Register creates an account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, fiber.StatusBadRequest, "malformed request body")
	}

	user, token, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return serviceError(c, err)
	}

	h.setSessionCookie(c, token)
	return response.OK(c, fiber.StatusCreated, authResult{User: user, Token: token})
}

// Login verifies credentials. Repeated attempts from one address are slowed
// by a growing artificial delay before they are rejected outright, so a user
// who mistyped a few times is not locked out while guessing stays expensive.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in service.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, fiber.StatusBadRequest, "malformed request body")
	}

	delayKey := ratelimit.FormatKey(ratelimit.KeyTypeIP, "login:"+c.IP())
	if h.delays != nil {
		delay, allowed := h.delays.Check(c.UserContext(), delayKey)
		if !allowed {
			return response.RateLimited(c, 60)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	user, token, err := h.svc.Login(c.UserContext(), in)
	if err != nil {
		return serviceError(c, err)
	}

	if h.delays != nil {
		h.delays.Reset(delayKey)
	}
	h.setSessionCookie(c, token)
	return response.OK(c, fiber.StatusOK, authResult{User: user, Token: token})
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return response.OK(c, fiber.StatusOK, middleware.PrincipalFromCtx(c))
}

// Logout clears the session cookie. The token itself stays valid until its
// expiry claim; there is no server-side session to revoke.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return response.OK(c, fiber.StatusOK, nil)
}
