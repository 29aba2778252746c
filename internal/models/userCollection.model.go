package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserCollectionItem is one instance of a release in a user's Discogs
// collection. The same release can appear multiple times with distinct
// instance ids (duplicate copies, different folders).
type UserCollectionItem struct {
	BaseUUIDModel
	UserID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_collection_user_release_instance" json:"user_id"`
	ReleaseID  int64          `gorm:"not null;uniqueIndex:idx_collection_user_release_instance" json:"release_id"`
	InstanceID int64          `gorm:"not null;uniqueIndex:idx_collection_user_release_instance" json:"instance_id"`
	FolderID   int64          `gorm:"default:0" json:"folder_id"`
	Title      string         `gorm:"type:text" json:"title"`
	Artist     string         `gorm:"type:text" json:"artist"`
	Year       int            `json:"year,omitempty"`
	Formats    datatypes.JSON `gorm:"type:jsonb" json:"formats,omitempty"`
	Label      string         `gorm:"type:text" json:"label,omitempty"`
	Rating     int            `gorm:"default:0" json:"rating"`
	DateAdded  *time.Time     `json:"date_added,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (UserCollectionItem) TableName() string {
	return "user_collections"
}

// UserWantlistItem is one release on a user's Discogs wantlist.
type UserWantlistItem struct {
	BaseUUIDModel
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_wantlist_user_release" json:"user_id"`
	ReleaseID int64      `gorm:"not null;uniqueIndex:idx_wantlist_user_release" json:"release_id"`
	Title     string     `gorm:"type:text" json:"title"`
	Artist    string     `gorm:"type:text" json:"artist"`
	Year      int        `json:"year,omitempty"`
	Format    string     `gorm:"type:text" json:"format,omitempty"`
	Rating    int        `gorm:"default:0" json:"rating"`
	Notes     string     `gorm:"type:text" json:"notes,omitempty"`
	DateAdded *time.Time `json:"date_added,omitempty"`
}

func (UserWantlistItem) TableName() string {
	return "user_wantlists"
}
