package models

import "time"

// QueueEntry is one waiting player. A player appears at most once in the
// queue and must hold an active run while queued.
type QueueEntry struct {
	Player     string    `json:"player"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
