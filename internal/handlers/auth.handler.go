package handlers

import (
	"errors"
	"time"

	"waxworks/internal/app"
	authController "waxworks/internal/controllers/auth"
	"waxworks/internal/handlers/middleware"
	"waxworks/internal/models"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Handler
	authController authController.AuthControllerInterface
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	log := logger.New("handlers").File("auth_handler")
	return &AuthHandler{
		authController: app.Controllers.Auth,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")

	auth.Post("/register", h.middleware.RateLimit(3, time.Minute), h.register)
	auth.Post("/login", h.middleware.RateLimit(5, time.Minute), h.login)

	protected := auth.Group("/", h.middleware.RequireAuth())
	protected.Get("/me", h.me)
	protected.Post("/logout", h.logout)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	log := h.log.Function("register")

	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": "Invalid request body",
		})
	}

	profile, err := h.authController.Register(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, authController.ErrInvalidEmail):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"detail": "Invalid email address",
			})
		case errors.Is(err, authController.ErrWeakPassword):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"detail": "Password must be at least 8 characters",
			})
		case errors.Is(err, authController.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"detail": "Email address already registered",
			})
		default:
			return log.Err("registration failed", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(profile)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": "Invalid request body",
		})
	}

	tokens, err := h.authController.Login(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, authController.ErrBadCredential) {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Incorrect email or password",
			})
		}
		return log.Err("login failed", err)
	}

	return c.JSON(tokens)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	log := h.log.Function("logout")

	if claims := middleware.GetClaims(c); claims != nil {
		if err := h.authController.Logout(c.UserContext(), claims); err != nil {
			return log.Err("logout failed", err)
		}
	}

	return c.JSON(fiber.Map{"logged_out": true})
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	log := h.log.Function("me")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	profile, err := h.authController.Me(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, authController.ErrUserMissing) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"detail": "User not found",
			})
		}
		return log.Err("failed to load profile", err, "userID", user.ID)
	}

	return c.JSON(profile)
}
