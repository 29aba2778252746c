package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler registers the liveness probe at the server root, outside
// the /api group, so load balancers reach it without auth or versioning.
func HealthHandler(router fiber.Router) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"service":   "api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
