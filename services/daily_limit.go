package services

import (
	"fmt"
	"time"

	"league-run-system/models"
)

// DailyLimitTracker decides whether a player may start another run today.
// "Today" is bounded by a recurring reset anchor: a fixed local time of day
// in the league's reference timezone (3 AM Pacific by default).
type DailyLimitTracker struct {
	store  RunStore
	loc    *time.Location
	hour   int
	minute int
}

func NewDailyLimitTracker(store RunStore, tzName string, hour, minute int) (*DailyLimitTracker, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid reset timezone %q: %w", tzName, err)
	}
	return &DailyLimitTracker{store: store, loc: loc, hour: hour, minute: minute}, nil
}

// Anchor returns the most recent occurrence of the reset time at or before
// now. If now is earlier than today's reset, the anchor is yesterday's.
func (t *DailyLimitTracker) Anchor(now time.Time) time.Time {
	local := now.In(t.loc)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), t.hour, t.minute, 0, 0, t.loc)
	if local.Before(anchor) {
		anchor = anchor.AddDate(0, 0, -1)
	}
	return anchor
}

// CanStartRun counts the player's run starts strictly after the current
// anchor. History timestamps are stored as UTC instants, so the comparison
// is exact across DST transitions.
func (t *DailyLimitTracker) CanStartRun(player string, now time.Time) (bool, error) {
	history, err := t.store.History(player)
	if err != nil {
		return false, err
	}
	anchor := t.Anchor(now)
	count := 0
	for _, started := range history {
		if started.After(anchor) {
			count++
		}
	}
	return count < models.MaxRunsPerDay, nil
}

// RecordRunStart appends now to the player's history. Entries are never
// removed except by an explicit admin history reset.
func (t *DailyLimitTracker) RecordRunStart(player string, now time.Time) error {
	return t.store.AppendHistory(player, now.UTC())
}
