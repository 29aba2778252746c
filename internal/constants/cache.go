package constants

import "time"

const (
	// SyncCooldownPrefix keys the per-user sync throttle in the Sync cache DB.
	SyncCooldownPrefix = "sync:cooldown:"
	// RevokedJTIPrefix keys logged-out token ids in the Auth cache DB.
	RevokedJTIPrefix = "revoked:jti:"
	// OAuthStatePrefix keys pending Discogs request-token secrets in the
	// Auth cache DB during the linking handshake.
	OAuthStatePrefix = "discogs:oauth:state:"

	// OAuthStateTTL bounds how long a Discogs authorize handshake may take.
	OAuthStateTTL = 10 * time.Minute
	// MinRevocationTTL keeps a revoked token id around at least this long
	// even when the token itself is about to expire.
	MinRevocationTTL = time.Minute
)
