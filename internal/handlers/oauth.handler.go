package handlers

import (
	"errors"

	"waxworks/internal/app"
	oauthController "waxworks/internal/controllers/oauth"
	"waxworks/internal/handlers/middleware"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type OAuthHandler struct {
	Handler
	oauthController oauthController.OAuthControllerInterface
}

func NewOAuthHandler(app app.App, router fiber.Router) *OAuthHandler {
	log := logger.New("handlers").File("oauth_handler")
	return &OAuthHandler{
		oauthController: app.Controllers.OAuth,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *OAuthHandler) Register() {
	oauth := h.router.Group("/oauth", h.middleware.RequireAuth())

	oauth.Get("/authorize/discogs", h.authorize)
	oauth.Post("/verify/discogs", h.verify)
	oauth.Get("/status/discogs", h.status)
	oauth.Delete("/revoke/discogs", h.revoke)
}

func (h *OAuthHandler) authorize(c *fiber.Ctx) error {
	log := h.log.Function("authorize")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	resp, err := h.oauthController.Authorize(c.UserContext(), user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConsumerNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"detail": "Discogs app credentials not configured",
			})
		case errors.Is(err, oauthController.ErrUpstream):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"detail": "Failed to initiate Discogs OAuth",
			})
		default:
			return log.Err("oauth authorize failed", err, "userID", user.ID)
		}
	}

	return c.JSON(resp)
}

func (h *OAuthHandler) verify(c *fiber.Ctx) error {
	log := h.log.Function("verify")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	var req oauthController.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": "Invalid request body",
		})
	}

	resp, err := h.oauthController.Verify(c.UserContext(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, oauthController.ErrMissingField):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"detail": "state and oauth_verifier are required",
			})
		case errors.Is(err, services.ErrConsumerNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"detail": "Discogs app credentials not configured",
			})
		case errors.Is(err, oauthController.ErrStateExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "OAuth state not found or expired. Please restart the OAuth flow.",
			})
		case errors.Is(err, oauthController.ErrExchangeFailed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "Invalid verifier code or OAuth flow failed",
			})
		default:
			return log.Err("oauth verify failed", err, "userID", user.ID)
		}
	}

	return c.JSON(resp)
}

func (h *OAuthHandler) status(c *fiber.Ctx) error {
	log := h.log.Function("status")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	resp, err := h.oauthController.Status(c.UserContext(), user)
	if err != nil {
		return log.Err("oauth status lookup failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}

func (h *OAuthHandler) revoke(c *fiber.Ctx) error {
	log := h.log.Function("revoke")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Authentication required",
		})
	}

	resp, err := h.oauthController.Revoke(c.UserContext(), user)
	if err != nil {
		return log.Err("oauth revoke failed", err, "userID", user.ID)
	}

	return c.JSON(resp)
}
