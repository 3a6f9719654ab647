package services

import (
	"testing"
	"time"

	"league-run-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManagerForTest(window time.Duration) (*SessionManager, *fakeRecorder, *fakeTransport) {
	transport := newFakeTransport()
	rec := &fakeRecorder{}
	sm := NewSessionManager(transport, "admin-ch")
	sm.window = window
	sm.SetRecorder(rec)
	return sm, rec, transport
}

func TestConfirmRecordsResultOnce(t *testing.T) {
	sm, rec, transport := newSessionManagerForTest(time.Hour)

	s, err := sm.Report("winner", "loser", models.SourceQueue, "")
	require.NoError(t, err)

	// The loser got the confirm prompt with both choices.
	msg, ok := transport.lastDM("loser")
	require.True(t, ok)
	assert.Equal(t, s.ID, msg.SessionRef)
	assert.Equal(t, []string{ChoiceConfirm, ChoiceDispute}, msg.Choices)

	require.NoError(t, sm.Confirm(s.ID, "loser"))
	results := rec.results()
	require.Len(t, results, 1)
	assert.Equal(t, recordedResult{"winner", "loser", models.SourceQueue, false}, results[0])

	// Session is gone; a second confirm cannot double-record.
	assert.ErrorIs(t, sm.Confirm(s.ID, "loser"), ErrSessionNotFound)
	assert.Len(t, rec.results(), 1)
}

func TestConfirmRejectsWrongActor(t *testing.T) {
	sm, rec, _ := newSessionManagerForTest(time.Hour)
	s, err := sm.Report("winner", "loser", models.SourceQueue, "")
	require.NoError(t, err)

	assert.ErrorIs(t, sm.Confirm(s.ID, "winner"), ErrWrongActor)
	assert.ErrorIs(t, sm.Confirm(s.ID, "stranger"), ErrWrongActor)
	assert.Empty(t, rec.results())
}

func TestReportRejectsSelfMatch(t *testing.T) {
	sm, _, _ := newSessionManagerForTest(time.Hour)
	_, err := sm.Report("p1", "p1", models.SourceLocal, "")
	assert.ErrorIs(t, err, ErrSelfMatch)
}

func TestTimeoutAutoConfirmsReportedWinner(t *testing.T) {
	sm, rec, _ := newSessionManagerForTest(20 * time.Millisecond)

	_, err := sm.Report("winner", "loser", models.SourceQueue, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(rec.results()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, recordedResult{"winner", "loser", models.SourceQueue, true}, rec.results()[0])
}

func TestConfirmBeatsTimeout(t *testing.T) {
	sm, rec, _ := newSessionManagerForTest(30 * time.Millisecond)

	s, err := sm.Report("winner", "loser", models.SourceQueue, "")
	require.NoError(t, err)
	require.NoError(t, sm.Confirm(s.ID, "loser"))

	// Give the timer a chance to fire anyway; it must be a no-op.
	time.Sleep(80 * time.Millisecond)
	results := rec.results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Auto)
}

func TestDisputeEscalatesAndBlocksTimeout(t *testing.T) {
	sm, rec, transport := newSessionManagerForTest(30 * time.Millisecond)

	s, err := sm.Report("winner", "loser", models.SourceQueue, "")
	require.NoError(t, err)
	require.NoError(t, sm.Dispute(s.ID, "loser"))

	// Admin channel got the arbitration prompt naming both players.
	posts := transport.channelMessages("admin-ch")
	require.Len(t, posts, 1)
	assert.Equal(t, s.ID, posts[0].SessionRef)
	assert.Equal(t, []string{"winner", "loser"}, posts[0].Choices)

	// The confirmation timer must not auto-confirm a disputed session.
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.results())

	// Loser cannot act again once disputed.
	assert.ErrorIs(t, sm.Confirm(s.ID, "loser"), ErrSessionResolved)
	assert.ErrorIs(t, sm.Dispute(s.ID, "loser"), ErrSessionResolved)
}

func TestResolveDisputeCanOverturnClaim(t *testing.T) {
	sm, rec, _ := newSessionManagerForTest(time.Hour)

	s, err := sm.Report("claimant", "defender", models.SourceQueue, "")
	require.NoError(t, err)
	require.NoError(t, sm.Dispute(s.ID, "defender"))

	// Admin rules for the disputing player: result lands inverted.
	require.NoError(t, sm.ResolveDispute(s.ID, "defender"))
	results := rec.results()
	require.Len(t, results, 1)
	assert.Equal(t, recordedResult{"defender", "claimant", models.SourceAdminDispute, false}, results[0])
}

func TestResolveDisputeRejectsOutsiderAndUndisputed(t *testing.T) {
	sm, _, _ := newSessionManagerForTest(time.Hour)

	s, err := sm.Report("winner", "loser", models.SourceQueue, "")
	require.NoError(t, err)

	assert.ErrorIs(t, sm.ResolveDispute(s.ID, "winner"), ErrNotDisputed)

	require.NoError(t, sm.Dispute(s.ID, "loser"))
	assert.ErrorIs(t, sm.ResolveDispute(s.ID, "stranger"), ErrValidation)
}

func TestPairingLifecycle(t *testing.T) {
	sm, _, _ := newSessionManagerForTest(time.Hour)

	p := sm.RegisterPairing("p1", "p2")
	assert.Equal(t, "p2", p.Opponent("p1"))
	assert.Equal(t, "p1", p.Opponent("p2"))
	assert.Equal(t, "", p.Opponent("stranger"))

	got, err := sm.Pairing(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// Reporting against the pairing consumes it.
	_, err = sm.Report("p1", "p2", models.SourceQueue, p.ID)
	require.NoError(t, err)
	_, err = sm.Pairing(p.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVoidPairingNotifiesBothPlayers(t *testing.T) {
	sm, _, transport := newSessionManagerForTest(time.Hour)

	p := sm.RegisterPairing("p1", "p2")
	voided, err := sm.VoidPairing(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, voided.ID)
	assert.Equal(t, 1, transport.dmCount("p1"))
	assert.Equal(t, 1, transport.dmCount("p2"))

	_, err = sm.VoidPairing(p.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
