package handlers

import (
	"strings"

	"waxworks/internal/app"
	userController "waxworks/internal/controllers/users"
	"waxworks/internal/handlers/middleware"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxStatusIDs = 100

type UserHandler struct {
	Handler
	userController userController.UserControllerInterface
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	log := logger.New("handlers").File("user_handler")
	return &UserHandler{
		userController: app.Controllers.User,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *UserHandler) Register() {
	user := h.router.Group("/user")

	// Status works for anonymous callers too; a valid token just fills in
	// real collection membership instead of all-false.
	user.Get("/status", h.middleware.OptionalAuth(), h.status)

	protected := user.Group("/", h.middleware.RequireAuth())
	protected.Get("/collection", h.collection)
	protected.Get("/collection/stats", h.stats)
	protected.Get("/wantlist", h.wantlist)
	protected.Get("/recommendations", h.recommendations)
}

func (h *UserHandler) collection(c *fiber.Ctx) error {
	log := h.log.Function("collection")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit < 1 || limit > 200 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Limit must be between 1 and 200",
		})
	}

	resp, err := h.userController.Collection(c.UserContext(), user.ID, limit, c.Query("cursor"))
	if err != nil {
		return log.Err("collection lookup failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}

func (h *UserHandler) wantlist(c *fiber.Ctx) error {
	log := h.log.Function("wantlist")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit < 1 || limit > 200 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Limit must be between 1 and 200",
		})
	}

	resp, err := h.userController.Wantlist(c.UserContext(), user.ID, limit, c.Query("cursor"))
	if err != nil {
		return log.Err("wantlist lookup failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}

func (h *UserHandler) recommendations(c *fiber.Ctx) error {
	log := h.log.Function("recommendations")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	limit, err := queryInt(c, "limit", 20)
	if err != nil || limit < 1 || limit > 100 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Limit must be between 1 and 100",
		})
	}

	resp, err := h.userController.Recommendations(c.UserContext(), user.ID, limit)
	if err != nil {
		return log.Err("recommendations lookup failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}

func (h *UserHandler) stats(c *fiber.Ctx) error {
	log := h.log.Function("stats")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	resp, err := h.userController.Stats(c.UserContext(), user.ID)
	if err != nil {
		return log.Err("collection stats lookup failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}

func (h *UserHandler) status(c *fiber.Ctx) error {
	log := h.log.Function("status")

	raw, present := requiredQuery(c, "ids")
	if !present {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Missing required parameter: ids",
		})
	}

	ids := make([]string, 0, 8)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) > maxStatusIDs {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Too many IDs: maximum is 100",
		})
	}

	var userID *uuid.UUID
	if user := middleware.GetUser(c); user != nil {
		userID = &user.ID
	}

	resp, err := h.userController.ReleaseStatus(c.UserContext(), userID, ids)
	if err != nil {
		return log.Err("release status lookup failed", err)
	}

	return c.JSON(resp)
}
