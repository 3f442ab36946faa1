package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	FullName     string
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// HistoryModel stores a user's report summaries as one JSON blob, the
// shape the history contract requires: whole-list read, prepend,
// truncate, whole-list write, last writer wins.
type HistoryModel struct {
	Email     string         `gorm:"primaryKey"`
	Items     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"not null"`
}
