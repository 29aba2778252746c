package models

import (
	"github.com/google/uuid"
)

// OAuthToken holds one user's credentials for an external provider. The
// token and secret are encrypted at rest when an encryption key is
// configured; reads fall back to plaintext for rows written before the
// key existed.
type OAuthToken struct {
	BaseUUIDModel
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_oauth_user_provider" json:"user_id"`
	Provider         string    `gorm:"type:text;not null;uniqueIndex:idx_oauth_user_provider" json:"provider"`
	AccessToken      string    `gorm:"type:text;not null" json:"-"`
	AccessSecret     string    `gorm:"type:text;not null" json:"-"`
	ProviderUsername string    `gorm:"type:text"          json:"provider_username"`
	ProviderUserID   string    `gorm:"type:text"          json:"provider_user_id"`
}

const ProviderDiscogs = "discogs"
