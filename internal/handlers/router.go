package handlers

import (
	"waxworks/internal/app"
	"waxworks/internal/handlers/middleware"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	setupWebSocketRoute(router, app)

	HealthHandler(router)

	api := router.Group("/api")
	NewAuthHandler(*app, api).Register()
	NewExploreHandler(*app, api).Register()
	NewUserHandler(*app, api).Register()
	NewSyncHandler(*app, api).Register()
	NewOAuthHandler(*app, api).Register()
	NewCacheHandler(*app, api).Register()

	return nil
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}
