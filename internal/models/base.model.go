package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseUUIDModel is embedded by every table. Primary keys are uuidv7 so ids
// stay time-ordered for index locality; generation happens in the database.
type BaseUUIDModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuidv7()" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime"                        json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"                        json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index"                                 json:"-"`
}
