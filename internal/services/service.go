package services

import (
	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/events"
	"waxworks/internal/repositories"
)

type Service struct {
	Auth        *AuthService
	Discogs     *DiscogsService
	Sync        *SyncService
	Transaction *TransactionService
}

func New(
	db database.DB,
	config config.Config,
	repos repositories.Repository,
	eventBus *events.EventBus,
) (Service, error) {
	authService, err := NewAuthService(config, db)
	if err != nil {
		return Service{}, err
	}

	discogsService := NewDiscogsService(config)
	transactionService := NewTransactionService(db)
	syncService := NewSyncService(config, db, repos, discogsService, authService, transactionService, eventBus)

	return Service{
		Auth:        authService,
		Discogs:     discogsService,
		Sync:        syncService,
		Transaction: transactionService,
	}, nil
}
