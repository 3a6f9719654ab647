package models

import "time"

// Pending request kinds — interactive flows awaiting a reply from the player.
const (
	PendingDeckRegistration = "deck_registration"
	PendingReactivation     = "reactivation"
	PendingManualReport     = "manual_report"
)

// PendingRequestTTL is how long an interactive flow may sit unanswered
// before the sweep clears it.
const PendingRequestTTL = 600 * time.Second

// PendingRequest tracks the single outstanding interactive flow for a
// player. Opening a flow of a different kind supersedes the old one.
type PendingRequest struct {
	Player    string    `gorm:"primaryKey" json:"player"`
	Kind      string    `gorm:"not null" json:"kind"`
	StartedAt time.Time `gorm:"not null" json:"started_at"`
}

// Expired reports whether the flow has outlived the pending TTL at now.
func (p *PendingRequest) Expired(now time.Time) bool {
	return now.Sub(p.StartedAt) > PendingRequestTTL
}
