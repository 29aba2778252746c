package models

import "time"

// AppConfig is a key/value row for deployment-scoped settings, written
// once at setup time. The Discogs consumer credentials live here
// (encrypted when an encryption key is configured).
type AppConfig struct {
	Key       string    `gorm:"type:text;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null"   json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"       json:"updated_at"`
}

const (
	ConfigDiscogsConsumerKey    = "discogs_consumer_key"
	ConfigDiscogsConsumerSecret = "discogs_consumer_secret"
)
