package models

import "time"

// Season mirrors the game-data service's season calendar. Rows are maintained
// by the season sync worker; this service never invents seasons of its own.
type Season struct {
	ID      string    `json:"id" gorm:"primaryKey"`
	Name    string    `json:"name"`
	StartAt time.Time `json:"start_at" gorm:"not null"`
	EndAt   time.Time `json:"end_at" gorm:"not null;index"`

	SyncedAt time.Time `json:"synced_at"`
}
