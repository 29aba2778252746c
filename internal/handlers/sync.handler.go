package handlers

import (
	"time"

	"waxworks/internal/app"
	syncController "waxworks/internal/controllers/sync"
	"waxworks/internal/handlers/middleware"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type SyncHandler struct {
	Handler
	syncController syncController.SyncControllerInterface
}

func NewSyncHandler(app app.App, router fiber.Router) *SyncHandler {
	log := logger.New("handlers").File("sync_handler")
	return &SyncHandler{
		syncController: app.Controllers.Sync,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SyncHandler) Register() {
	h.router.Post("/sync",
		h.middleware.RequireAuth(),
		h.middleware.RateLimit(2, 10*time.Minute),
		h.trigger,
	)
	h.router.Get("/sync/status", h.middleware.RequireAuth(), h.status)
}

func (h *SyncHandler) trigger(c *fiber.Ctx) error {
	log := h.log.Function("trigger")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	resp, err := h.syncController.Trigger(c.UserContext(), user)
	if err != nil {
		return log.Err("sync trigger failed", err, "userID", user.ID)
	}

	if resp.Status == services.TriggerStatusCooldown {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"status":  services.TriggerStatusCooldown,
			"message": "Sync rate limited. Please wait before triggering again.",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(resp)
}

func (h *SyncHandler) status(c *fiber.Ctx) error {
	log := h.log.Function("status")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	resp, err := h.syncController.Status(c.UserContext(), user)
	if err != nil {
		return log.Err("sync status lookup failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}
