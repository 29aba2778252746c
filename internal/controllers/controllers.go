package controllers

import (
	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/events"
	"waxworks/internal/repositories"
	"waxworks/internal/services"

	authController "waxworks/internal/controllers/auth"
	cacheController "waxworks/internal/controllers/cache"
	exploreController "waxworks/internal/controllers/explore"
	oauthController "waxworks/internal/controllers/oauth"
	syncController "waxworks/internal/controllers/sync"
	userController "waxworks/internal/controllers/users"
)

type Controllers struct {
	Auth    authController.AuthControllerInterface
	OAuth   oauthController.OAuthControllerInterface
	Explore exploreController.ExploreControllerInterface
	User    userController.UserControllerInterface
	Sync    syncController.SyncControllerInterface
	Cache   cacheController.CacheControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) Controllers {
	return Controllers{
		Auth:    authController.New(services.Auth, repos.User),
		OAuth:   oauthController.New(config, db, services.Discogs, services.Auth, repos.AppConfig, repos.OAuthToken),
		Explore: exploreController.New(repos.Explore, eventBus),
		User:    userController.New(repos.UserGraph, repos.CollectionValue),
		Sync:    syncController.New(services.Sync, repos.SyncHistory),
		Cache:   cacheController.New(config, db, eventBus),
	}
}
