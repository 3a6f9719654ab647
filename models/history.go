package models

import "time"

// RunStart is one entry in a player's run-start history, used for the daily
// rate limit. StartedAt is always stored as a UTC instant; the limit tracker
// converts to league local time when comparing against the reset anchor.
type RunStart struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Player    string    `gorm:"index;not null" json:"player"`
	StartedAt time.Time `gorm:"not null" json:"started_at"`
}
