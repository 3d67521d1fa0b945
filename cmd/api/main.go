package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/auth"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/broker"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/cache"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/config"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/database"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/database/migration"
	handlers "github.com/aayushimalhotra3/DevDeck-sub002/internal/http/handler"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/middleware"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/otel"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/ratelimit"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/repository/postgres"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Cache and rate-limit stores run on Redis when an address is configured,
	// otherwise on in-process maps. Both sides satisfy the same contracts.
	var (
		cacheStore cache.Store
		newLimiter func(config.WindowConfig) ratelimit.Limiter
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		cacheStore = cache.NewRedisStore(rdb)
		newLimiter = func(w config.WindowConfig) ratelimit.Limiter {
			return ratelimit.NewRedisLimiter(rdb, ratelimit.Config{Window: w.Window, MaxAttempts: w.MaxAttempts})
		}
	} else {
		mem := cache.NewMemoryStore()
		mem.StartCleanup(ctx)
		defer mem.Stop()
		cacheStore = mem
		newLimiter = func(w config.WindowConfig) ratelimit.Limiter {
			return ratelimit.NewMemoryLimiter(ratelimit.Config{Window: w.Window, MaxAttempts: w.MaxAttempts})
		}
	}
	readThrough := cache.NewReadThrough(cacheStore)

	loginDelays := ratelimit.NewProgressiveDelay(ratelimit.ProgressiveConfig{
		Window:     cfg.RateLimit.Auth.Window,
		DelayAfter: cfg.RateLimit.LoginDelayAfter,
		MaxDelay:   cfg.RateLimit.LoginMaxDelay,
		HardCap:    cfg.RateLimit.Auth.MaxAttempts * 3,
	})

	// Repositories, token plumbing, services
	userRepo := postgres.NewUserPostgres(db)
	portfolioRepo := postgres.NewPortfolioPostgres(db)

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenExpiry)
	if err != nil {
		log.Fatalf("failed to initialize token manager: %v", err)
	}
	verifier := auth.NewVerifier(tokens, userRepo, cfg.Auth.VerifyTimeout)

	authSvc := service.NewAuthService(userRepo, tokens)
	portfolioSvc := service.NewPortfolioService(portfolioRepo, userRepo, readThrough, cfg.Cache.PublicTTL)
	assetSvc := service.NewAssetService(objStore)

	hub := broker.New(portfolioSvc, cfg.Sync.SendBuffer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    service.MaxAssetSize + 1<<20,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:         db,
		Verifier:   verifier,
		CookieName: cfg.Auth.CookieName,
		Portfolios: portfolioRepo,
		Limiters: handlers.Limiters{
			General:   newLimiter(cfg.RateLimit.General),
			Auth:      newLimiter(cfg.RateLimit.Auth),
			Expensive: newLimiter(cfg.RateLimit.Expensive),
		},
		Cache:     readThrough,
		HealthTTL: cfg.Cache.HealthTTL,
		Registry:  registry,
		Auth:      handlers.NewAuthHandler(authSvc, loginDelays, cfg.Auth.CookieName, cfg.Auth.TokenExpiry),
		Portfolio: handlers.NewPortfolioHandler(portfolioSvc, hub),
		Asset:     handlers.NewAssetHandler(assetSvc),
		Sync:      handlers.NewSyncHandler(hub, cfg.Sync.AutosaveQuiescence, cfg.Sync.IdleTimeout),
	})

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
