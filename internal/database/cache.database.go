package database

import (
	"fmt"

	"waxworks/config"

	"github.com/valkey-io/valkey-go"
)

// Valkey Database Index Organization
// Each database index provides logical separation for different cache categories
const (
	// GENERAL_CACHE_INDEX (DB 0) - General purpose caching
	// Used for miscellaneous cache operations that don't fit into specific categories
	GENERAL_CACHE_INDEX = iota

	// AUTH_CACHE_INDEX (DB 1) - Authentication state
	// Revoked JWT identifiers and pending Discogs OAuth request tokens
	AUTH_CACHE_INDEX

	// SYNC_CACHE_INDEX (DB 2) - Collection sync state
	// Per-user sync cooldown keys
	SYNC_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 3) - Event-driven data
	// Pub/sub channels for sync progress notifications
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	if config.RedisAddress == "" {
		return log.Error("failed to initialize cache database: address is empty")
	}

	host, port := SplitHostPort(config.RedisAddress, "6379")
	address := fmt.Sprintf("%s:%s", host, port)

	var cacheDB Cache

	var err error
	cacheDB.General, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{address},
			SelectDB:    GENERAL_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create general valkey client", err)
	}

	cacheDB.Auth, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{address},
			SelectDB:    AUTH_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create auth valkey client", err)
	}

	cacheDB.Sync, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{address},
			SelectDB:    SYNC_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create sync valkey client", err)
	}

	cacheDB.Events, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{address},
			SelectDB:    EVENTS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create events valkey client", err)
	}

	s.Cache = cacheDB

	return nil
}
