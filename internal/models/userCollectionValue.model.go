package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserCollectionValue is the marketplace value estimate Discogs reports
// for a user's whole collection, captured once per sync.
type UserCollectionValue struct {
	BaseUUIDModel
	UserID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Minimum  decimal.Decimal `gorm:"type:numeric" json:"minimum"`
	Median   decimal.Decimal `gorm:"type:numeric" json:"median"`
	Maximum  decimal.Decimal `gorm:"type:numeric" json:"maximum"`
	Currency string          `gorm:"type:text;default:'USD'" json:"currency"`
	SyncedAt time.Time       `json:"synced_at"`
}

func (UserCollectionValue) TableName() string {
	return "user_collection_values"
}
