package services

import (
	"testing"
	"time"

	"league-run-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	rendered int
}

func (r *fakeRenderer) Render(title string, headers []string, rows [][]string) ([]byte, string, string, error) {
	r.rendered++
	return []byte(title), "text/plain", "txt", nil
}

func archiveRun(t *testing.T, store *MemoryRunStore, runID, owner, leader string, wins, losses int) {
	t.Helper()
	ended := time.Now()
	run := &models.Run{
		RunID:     runID,
		Owner:     owner,
		OwnerName: owner,
		Leader:    leader,
		Base:      "Command Center",
		Status:    models.RunStatusArchived,
		CreatedAt: ended.Add(-time.Hour),
		EndedAt:   &ended,
	}
	for i := 0; i < wins; i++ {
		run.Matches = append(run.Matches, models.MatchResult{Outcome: models.OutcomeWin})
	}
	for i := 0; i < losses; i++ {
		run.Matches = append(run.Matches, models.MatchResult{Outcome: models.OutcomeLoss})
	}
	require.NoError(t, store.SaveRun(run))
}

func newStandings(store *MemoryRunStore, transport *fakeTransport) (*StandingsService, *fakeRenderer, *fakeArtifacts) {
	renderer := &fakeRenderer{}
	artifacts := newFakeArtifacts()
	return NewStandingsService(store, renderer, artifacts, transport, "board-ch", ""), renderer, artifacts
}

func TestStandingsRanksByWinsThenPercentage(t *testing.T) {
	store := NewMemoryRunStore()
	archiveRun(t, store, "run00001", "alice", "Luke", 3, 0)
	archiveRun(t, store, "run00002", "bob", "Vader", 3, 3) // two runs worth combined below
	archiveRun(t, store, "run00003", "carol", "Han", 1, 2)

	svc, _, _ := newStandings(store, newFakeTransport())
	rows, err := svc.Standings()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// alice and bob both have 3 wins; alice's 100% beats bob's 50%.
	assert.Equal(t, "alice", rows[0][1])
	assert.Equal(t, "bob", rows[1][1])
	assert.Equal(t, "carol", rows[2][1])
	assert.Equal(t, "1", rows[0][0], "rank column")
	assert.Equal(t, "100.0", rows[0][5])
}

func TestMetaGroupsByLeaderAndColor(t *testing.T) {
	store := NewMemoryRunStore()
	archiveRun(t, store, "run00001", "alice", "Luke", 2, 1)
	archiveRun(t, store, "run00002", "bob", "Luke", 1, 2)
	archiveRun(t, store, "run00003", "carol", "Vader", 3, 0)

	svc, _, _ := newStandings(store, newFakeTransport())
	rows, err := svc.Meta()
	require.NoError(t, err)
	require.Len(t, rows, 2, "same leader+color collapses into one row")

	// No base color database loaded: everything groups as Gray.
	assert.Equal(t, "Vader (Gray)", rows[0][1])
	assert.Equal(t, "Luke (Gray)", rows[1][1])
	assert.Equal(t, "3", rows[0][2])
}

func TestMasteryCountsDistinctPositiveLeaders(t *testing.T) {
	store := NewMemoryRunStore()
	archiveRun(t, store, "run00001", "alice", "Luke", 2, 1)
	archiveRun(t, store, "run00002", "alice", "Vader", 3, 0)
	archiveRun(t, store, "run00003", "alice", "Han", 0, 3) // negative, does not count
	archiveRun(t, store, "run00004", "bob", "Luke", 2, 1)

	svc, _, _ := newStandings(store, newFakeTransport())
	rows, err := svc.Mastery()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0][0])
	assert.Equal(t, "2", rows[0][1])
	assert.Equal(t, "1", rows[1][1])
}

func TestPublishDailySkipsWhenUnchanged(t *testing.T) {
	store := NewMemoryRunStore()
	archiveRun(t, store, "run00001", "alice", "Luke", 3, 0)

	transport := newFakeTransport()
	svc, renderer, _ := newStandings(store, transport)

	url, err := svc.PublishDaily()
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Len(t, transport.channelMessages("board-ch"), 1)

	// Nothing changed: the second post is suppressed.
	url, err = svc.PublishDaily()
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Equal(t, 1, renderer.rendered)

	// A new archived run reopens publishing.
	archiveRun(t, store, "run00002", "bob", "Vader", 1, 2)
	url, err = svc.PublishDaily()
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Len(t, transport.channelMessages("board-ch"), 2)
}

func TestPublishDailyNoArchivedRuns(t *testing.T) {
	svc, renderer, _ := newStandings(NewMemoryRunStore(), newFakeTransport())
	url, err := svc.PublishDaily()
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Zero(t, renderer.rendered)
}

func TestPublishRejectsUnknownReport(t *testing.T) {
	store := NewMemoryRunStore()
	archiveRun(t, store, "run00001", "alice", "Luke", 3, 0)
	svc, _, _ := newStandings(store, newFakeTransport())

	for _, report := range []string{"standings", "meta", "performance", "mastery"} {
		url, err := svc.Publish(report)
		require.NoError(t, err, report)
		assert.NotEmpty(t, url)
	}

	_, err := svc.Publish("nonsense")
	assert.ErrorIs(t, err, ErrValidation)
}
