package middleware

import (
	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/events"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/pkg/logger"
)

type Middleware struct {
	DB          database.DB
	userRepo    repositories.UserRepository
	authService *services.AuthService
	Config      config.Config
	log         logger.Logger
	eventBus    *events.EventBus
}

func New(
	db database.DB,
	eventBus *events.EventBus,
	config config.Config,
	repos repositories.Repository,
	authService *services.AuthService,
) Middleware {
	log := logger.New("middleware")

	return Middleware{
		DB:          db,
		userRepo:    repos.User,
		authService: authService,
		Config:      config,
		log:         log,
		eventBus:    eventBus,
	}
}
