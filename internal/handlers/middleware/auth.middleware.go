package middleware

import (
	"context"
	"strings"

	"waxworks/internal/models"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthContextKey is used to store auth info in context
type AuthContextKey string

const (
	UserKey        AuthContextKey = "user"
	UserKeyFiber   string         = "User"        // Fiber context key (string)
	ClaimsKeyFiber string         = "TokenClaims" // Fiber context key for JWT claims
)

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
// Returns "" for a missing or malformed header.
func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	tokenParts := strings.SplitN(authHeader, " ", 2)
	if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(tokenParts[1])
}

// RequireAuth validates the bearer JWT and loads the account behind it.
// Requests without a usable token get 401; a valid token whose user row is
// gone gets 404.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.NewWithContext(c.UserContext(), "middleware").Function("RequireAuth")

		token := bearerToken(c)
		if token == "" {
			log.Info("missing or malformed authorization header")
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Authentication required",
			})
		}

		claims, err := m.authService.ValidateToken(c.UserContext(), token)
		if err != nil {
			log.Info("token validation failed", "error", err.Error())
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid or expired token",
			})
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			log.Info("token subject is not a user id", "sub", claims.Subject)
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid or expired token",
			})
		}

		user, err := m.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			log.Info("user not found for valid token", "userID", userID, "error", err.Error())
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"detail": "User not found",
			})
		}

		c.Locals(UserKeyFiber, user)
		c.Locals(ClaimsKeyFiber, claims)

		// Add to Go context for services (preserve trace ID from TraceID middleware)
		ctx := context.WithValue(c.UserContext(), UserKey, user)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// OptionalAuth loads the account when a valid bearer token is present and
// proceeds anonymously otherwise. It never rejects a request.
func (m *Middleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := m.authService.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Next()
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return c.Next()
		}

		user, err := m.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			return c.Next()
		}

		c.Locals(UserKeyFiber, user)
		c.Locals(ClaimsKeyFiber, claims)

		ctx := context.WithValue(c.UserContext(), UserKey, user)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// GetUser extracts user from Fiber context
func GetUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(UserKeyFiber).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetClaims extracts the validated JWT claims from Fiber context
func GetClaims(c *fiber.Ctx) *services.TokenClaims {
	claims, ok := c.Locals(ClaimsKeyFiber).(*services.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
