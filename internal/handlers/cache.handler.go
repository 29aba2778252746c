package handlers

import (
	"errors"
	"time"

	"waxworks/internal/app"
	cacheController "waxworks/internal/controllers/cache"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type CacheHandler struct {
	Handler
	cacheController cacheController.CacheControllerInterface
}

func NewCacheHandler(app app.App, router fiber.Router) *CacheHandler {
	log := logger.New("handlers").File("cache_handler")
	return &CacheHandler{
		cacheController: app.Controllers.Cache,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *CacheHandler) Register() {
	cache := h.router.Group("/cache")

	cache.Post("/invalidate", h.middleware.RateLimit(10, time.Minute), h.invalidate)
}

func (h *CacheHandler) invalidate(c *fiber.Ctx) error {
	log := h.log.Function("invalidate")

	var req cacheController.InvalidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": "Invalid request body",
		})
	}
	if req.Pattern == "" || req.Secret == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": "pattern and secret are required",
		})
	}

	resp, err := h.cacheController.Invalidate(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, cacheController.ErrNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"detail": "Cache invalidation webhook not configured",
			})
		case errors.Is(err, cacheController.ErrBadSecret):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid webhook secret",
			})
		default:
			log.Er("cache invalidation failed", err, "pattern", req.Pattern)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"detail": "Cache invalidation failed",
			})
		}
	}

	return c.JSON(resp)
}
