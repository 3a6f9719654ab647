package models

import "time"

// League-wide limits. A run ends after MatchLimit recorded matches, and a
// player may start at most MaxRunsPerDay runs between daily resets.
const (
	MatchLimit    = 3
	MaxRunsPerDay = 2
)

// Run statuses
const (
	RunStatusActive   = "active"
	RunStatusArchived = "archived"
)

// Match outcomes
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
)

// Result sources (provenance only — never affects scoring)
const (
	SourceQueue        = "queue"
	SourceLocal        = "local"
	SourceAdminForced  = "admin_forced"
	SourceAdminDispute = "admin_dispute"
)

// Sentinel deck values used when a player skips deck registration or the
// submitted deck JSON cannot be parsed.
const (
	PrivateLeader = "Private Leader"
	PrivateBase   = "Private Base"
)

// MatchResult records a single outcome within a run.
type MatchResult struct {
	Opponent   string    `json:"opponent"`
	Outcome    string    `json:"outcome"`
	Source     string    `json:"source"`
	Auto       bool      `json:"auto,omitempty"` // resolved by confirmation timeout
	ReportedAt time.Time `json:"reported_at"`
}

// Run is one player's league session: up to MatchLimit matches against
// distinct opponents. A run is either active (owned exclusively by its
// player) or archived.
type Run struct {
	RunID     string        `gorm:"primaryKey;size:16" json:"run_id"`
	Owner     string        `gorm:"index;not null" json:"owner"`
	OwnerName string        `json:"owner_name"`
	Leader    string        `json:"leader"`
	Base      string        `json:"base"`
	Status    string        `gorm:"index;default:'active'" json:"status"`
	Opponents []string      `gorm:"serializer:json" json:"opponents_played"`
	Matches   []MatchResult `gorm:"serializer:json" json:"match_results"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

func (r *Run) Wins() int {
	n := 0
	for _, m := range r.Matches {
		if m.Outcome == OutcomeWin {
			n++
		}
	}
	return n
}

func (r *Run) Losses() int {
	n := 0
	for _, m := range r.Matches {
		if m.Outcome == OutcomeLoss {
			n++
		}
	}
	return n
}

// HasPlayed reports whether the run already contains a match against opp.
func (r *Run) HasPlayed(opp string) bool {
	for _, o := range r.Opponents {
		if o == opp {
			return true
		}
	}
	return false
}

// Complete reports whether the run has reached the match limit.
func (r *Run) Complete() bool {
	return len(r.Matches) >= MatchLimit
}

// Perfect reports a trophy-worthy record: every slot played and won.
func (r *Run) Perfect() bool {
	return r.Wins() == MatchLimit && r.Losses() == 0
}
