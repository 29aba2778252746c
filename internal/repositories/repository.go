package repositories

import (
	"waxworks/internal/database"
	"waxworks/internal/graph"
)

type Repository struct {
	User            UserRepository
	OAuthToken      OAuthTokenRepository
	AppConfig       AppConfigRepository
	SyncHistory     SyncHistoryRepository
	UserCollection  UserCollectionRepository
	CollectionValue CollectionValueRepository
	Explore         ExploreRepository
	UserGraph       UserGraphRepository
}

func New(db database.DB, gr *graph.Graph) Repository {
	return Repository{
		User:            NewUserRepository(db),
		OAuthToken:      NewOAuthTokenRepository(db),
		AppConfig:       NewAppConfigRepository(db),
		SyncHistory:     NewSyncHistoryRepository(db),
		UserCollection:  NewUserCollectionRepository(db),
		CollectionValue: NewCollectionValueRepository(db),
		Explore:         NewExploreRepository(gr),
		UserGraph:       NewUserGraphRepository(gr),
	}
}
