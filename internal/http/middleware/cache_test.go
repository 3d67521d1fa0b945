package middleware

import (
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/cache"
)

func TestCacheResponse(t *testing.T) {
	rt := cache.NewReadThrough(cache.NewMemoryStore())

	var hits int32
	app := fiber.New()
	app.Use(CacheResponse(rt, time.Minute))
	app.Get("/health", func(c *fiber.Ctx) error {
		atomic.AddInt32(&hits, 1)
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/broken", func(c *fiber.Ctx) error {
		atomic.AddInt32(&hits, 1)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down"})
	})
	app.Post("/health", func(c *fiber.Ctx) error {
		atomic.AddInt32(&hits, 1)
		return c.SendStatus(fiber.StatusOK)
	})

	t.Run("second GET is served from cache", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/health", nil))
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, readBody(t, resp), `{"status":"ok"}`)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("non-200 responses are not stored", func(t *testing.T) {
		atomic.StoreInt32(&hits, 0)
		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/broken", nil))
			assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("concurrent cold-key requests on a failing route each get the real response", func(t *testing.T) {
		atomic.StoreInt32(&hits, 0)
		app.Get("/degraded", func(c *fiber.Ctx) error {
			atomic.AddInt32(&hits, 1)
			time.Sleep(50 * time.Millisecond)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		})

		type result struct {
			status int
			body   string
		}
		results := make(chan result, 2)
		for i := 0; i < 2; i++ {
			go func() {
				resp, err := app.Test(httptest.NewRequest("GET", "/degraded", nil), 5000)
				if err != nil {
					results <- result{}
					return
				}
				b, _ := io.ReadAll(resp.Body)
				results <- result{status: resp.StatusCode, body: string(b)}
			}()
		}

		for i := 0; i < 2; i++ {
			got := <-results
			assert.Equal(t, fiber.StatusServiceUnavailable, got.status)
			assert.Equal(t, `{"status":"degraded"}`, got.body)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("non-GET methods bypass the cache", func(t *testing.T) {
		atomic.StoreInt32(&hits, 0)
		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("POST", "/health", nil))
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})
}
