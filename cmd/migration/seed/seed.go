package seed

import (
	"context"
	"time"

	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/models"
	"waxworks/internal/services"
	"waxworks/pkg/logger"
)

type seedUser struct {
	email    string
	password string
}

// Seed loads development fixtures: a known login so the API is usable right
// after a reset. Never runs in production deployments.
func Seed(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	authService, err := services.NewAuthService(config, db)
	if err != nil {
		return log.Err("failed to initialize auth service", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := []seedUser{
		{email: "dev@waxworks.local", password: "development"},
	}

	for _, u := range users {
		email := models.NormalizeEmail(u.email)

		var existing models.User
		if err := db.SQL.WithContext(ctx).First(&existing, "email = ?", email).Error; err == nil {
			log.Info("User already exists", "email", email)
			continue
		}

		hashed, err := authService.HashPassword(u.password)
		if err != nil {
			return log.Err("failed to hash seed password", err, "email", email)
		}

		user := models.User{
			Email:          email,
			HashedPassword: hashed,
			IsActive:       true,
		}
		if err := db.SQL.WithContext(ctx).Create(&user).Error; err != nil {
			return log.Err("failed to create seed user", err, "email", email)
		}
		log.Info("Seeded user", "email", email)
	}

	return nil
}
