package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/auth"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/cache"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/middleware"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/ratelimit"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/repository"
)

// Limiters groups the independently configured limiter instances: general
// API traffic, authentication attempts, and expensive operations (uploads).
type Limiters struct {
	General   ratelimit.Limiter
	Auth      ratelimit.Limiter
	Expensive ratelimit.Limiter
}

// Deps carries everything RegisterRoutes wires together.
type Deps struct {
	DB         *sql.DB
	Verifier   *auth.Verifier
	CookieName string
	Portfolios repository.PortfolioRepository
	Limiters   Limiters
	Cache      *cache.ReadThrough
	HealthTTL  time.Duration
	Registry   *prometheus.Registry

	Auth      *AuthHandler
	Portfolio *PortfolioHandler
	Asset     *AssetHandler
	Sync      *SyncHandler
}

// RegisterRoutes attaches all HTTP and websocket routes to the app.
func RegisterRoutes(app *fiber.App, d Deps) {
	requireAuth := middleware.RequireAuth(d.Verifier, d.CookieName)
	optionalAuth := middleware.OptionalAuth(d.Verifier, d.CookieName)
	ownPortfolio := middleware.RequireOwnership(d.Portfolios, middleware.KindPortfolio)

	// Health checks DB connectivity only; the short cache keeps aggressive
	// orchestrator probes off the database.
	app.Get("/health", middleware.CacheResponse(d.Cache, d.HealthTTL), func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	if d.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth", middleware.RateLimit(d.Limiters.Auth, "auth"))
	authGroup.Post("/register", d.Auth.Register)
	authGroup.Post("/login", d.Auth.Login)
	authGroup.Post("/logout", d.Auth.Logout)
	authGroup.Get("/me", requireAuth, d.Auth.Me)

	// The public route is registered before /:id so "public" never matches
	// as a portfolio id.
	api.Get("/portfolio/public/:username", middleware.RateLimit(d.Limiters.General, "general"), optionalAuth, d.Portfolio.Public)

	pf := api.Group("/portfolio", middleware.RateLimit(d.Limiters.General, "general"), requireAuth)
	pf.Get("/", d.Portfolio.List)
	pf.Post("/", d.Portfolio.Create)
	pf.Get("/:id", ownPortfolio, d.Portfolio.Get)
	pf.Put("/:id", ownPortfolio, d.Portfolio.Save)
	pf.Delete("/:id", ownPortfolio, d.Portfolio.Delete)
	pf.Post("/:id/publish", ownPortfolio, d.Portfolio.Publish)
	pf.Post("/:id/unpublish", ownPortfolio, d.Portfolio.Unpublish)

	api.Post("/assets", middleware.RateLimit(d.Limiters.Expensive, "expensive"), requireAuth, d.Asset.Upload)

	app.Get("/ws/portfolio/:id", requireAuth, ownPortfolio, d.Sync.Upgrade, d.Sync.Handle())
}
