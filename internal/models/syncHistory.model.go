package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncType string

const (
	SyncTypeFull       SyncType = "full"
	SyncTypeCollection SyncType = "collection"
	SyncTypeWantlist   SyncType = "wantlist"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncHistory is the append-only record of sync runs. A row is inserted
// `running` when a sync is accepted and finalized exactly once — whatever
// the outcome — with counts and completion time.
type SyncHistory struct {
	BaseUUIDModel
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"     json:"user_id"`
	SyncType     SyncType   `gorm:"type:text;not null"           json:"sync_type"`
	Status       SyncStatus `gorm:"type:text;not null"           json:"status"`
	ItemsSynced  int        `gorm:"type:int;default:0"           json:"items_synced"`
	PagesFetched int        `gorm:"type:int;default:0"           json:"pages_fetched"`
	ErrorMessage string     `gorm:"type:text"                    json:"error_message,omitempty"`
	StartedAt    time.Time  `gorm:"type:timestamp;default:NOW()" json:"started_at"`
	CompletedAt  *time.Time `gorm:"type:timestamp"               json:"completed_at,omitempty"`
}
