package services

import (
	"fmt"
	"strings"
	"time"

	"league-run-system/logger"
	"league-run-system/models"

	"github.com/google/uuid"
)

// LifecycleConfig carries the channel refs the lifecycle posts to. Empty
// refs disable the corresponding posts.
type LifecycleConfig struct {
	AdminChannel        string
	TrophyChannel       string
	ReactivationChannel string
	LeaderboardChannel  string
}

// RunLifecycle orchestrates run creation, queue play, match recording,
// archival and reactivation. It owns the per-player locks that make every
// read-modify-write on a run a single critical section.
type RunLifecycle struct {
	store     RunStore
	queue     *QueueManager
	limits    *DailyLimitTracker
	sessions  *SessionManager
	transport Transport
	decks     *DeckParser
	locks     *keyedMutex
	cfg       LifecycleConfig
	now       func() time.Time
}

func NewRunLifecycle(
	store RunStore,
	queue *QueueManager,
	limits *DailyLimitTracker,
	transport Transport,
	decks *DeckParser,
	cfg LifecycleConfig,
) *RunLifecycle {
	return &RunLifecycle{
		store:     store,
		queue:     queue,
		limits:    limits,
		transport: transport,
		decks:     decks,
		locks:     newKeyedMutex(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetSessions wires the session manager (constructed second because it
// records results back through the lifecycle).
func (l *RunLifecycle) SetSessions(sm *SessionManager) { l.sessions = sm }

// StartRegistration opens a deck-registration flow for a new run. A player
// with an active run is told to rejoin the queue instead; a player at the
// daily cap is rejected.
func (l *RunLifecycle) StartRegistration(player string) error {
	unlock := l.locks.Lock(player)
	defer unlock()

	now := l.now()
	if _, err := l.store.ActiveRun(player); err == nil {
		return ErrDuplicateActiveRun
	}
	ok, err := l.limits.CanStartRun(player, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDailyLimitReached
	}
	return l.store.SetPendingRequest(player, models.PendingDeckRegistration, now)
}

// CompleteRegistration consumes the pending deck-registration flow and
// creates the run. rawDeck is either a pasted SWUDB JSON export or "skip"
// for private stats. An unparseable paste keeps the flow open so the player
// can retry.
func (l *RunLifecycle) CompleteRegistration(player, playerName, rawDeck string) (*models.Run, error) {
	unlock := l.locks.Lock(player)
	defer unlock()

	now := l.now()
	req, err := l.store.PendingRequest(player)
	if err != nil {
		return nil, err
	}
	if req.Kind != models.PendingDeckRegistration {
		return nil, ErrNoPendingRequest
	}
	if req.Expired(now) {
		if err := l.store.ClearPendingRequest(player); err != nil {
			return nil, err
		}
		return nil, ErrRequestExpired
	}

	var leader, base string
	if strings.EqualFold(strings.TrimSpace(rawDeck), "skip") {
		leader, base = models.PrivateLeader, models.PrivateBase
	} else {
		leader, base = l.decks.Parse(rawDeck)
		if leader == models.PrivateLeader {
			return nil, ErrInvalidDeck
		}
	}

	runID, err := l.newRunID()
	if err != nil {
		return nil, err
	}
	run := &models.Run{
		RunID:     runID,
		Owner:     player,
		OwnerName: playerName,
		Leader:    leader,
		Base:      base,
		Status:    models.RunStatusActive,
		Opponents: []string{},
		Matches:   []models.MatchResult{},
		CreatedAt: now,
	}
	if err := l.store.SaveRun(run); err != nil {
		return nil, err
	}
	if err := l.limits.RecordRunStart(player, now); err != nil {
		return nil, err
	}
	if err := l.store.ClearPendingRequest(player); err != nil {
		return nil, err
	}

	logger.Info("run registered", "player", player, "run_id", runID, "leader", leader, "base", base)
	return run, nil
}

// newRunID draws short ids until one is free across both collections.
func (l *RunLifecycle) newRunID() (string, error) {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		_, err := l.store.FindRun(id)
		if err == nil {
			continue
		}
		if err != ErrRunNotFound {
			return "", err
		}
		return id, nil
	}
}

// EnterQueue adds the player to the matchmaking pool and immediately scans
// for a pair. Joining twice is rejected; joining without an active run is.
func (l *RunLifecycle) EnterQueue(player string) error {
	if _, err := l.store.ActiveRun(player); err != nil {
		return err
	}
	if !l.queue.Enqueue(player, l.now()) {
		return ErrAlreadyQueued
	}
	notifyDM(l.transport, player, Message{
		Title: "📥 Entered Queue",
		Body:  "You have joined the matchmaking pool. Longest wait is matched first — you will be notified here when a match is found.",
	})
	l.tryMatch()
	return nil
}

// LeaveQueue removes the player from the pool.
func (l *RunLifecycle) LeaveQueue(player string) error {
	if !l.queue.Dequeue(player) {
		return ErrNotQueued
	}
	return nil
}

// QueueSnapshot exposes the waiting list for status and admin views.
func (l *RunLifecycle) QueueSnapshot() []models.QueueEntry {
	return l.queue.Snapshot()
}

// tryMatch runs a pairing scan and, on success, registers the pairing and
// notifies both players with each other's deck.
func (l *RunLifecycle) tryMatch() {
	runs, err := l.store.ActiveRuns()
	if err != nil {
		logger.Error("pairing scan: loading active runs failed", "error", err)
		return
	}
	byOwner := make(map[string]*models.Run, len(runs))
	for i := range runs {
		byOwner[runs[i].Owner] = &runs[i]
	}

	p1, p2, found := l.queue.FindPair(func(a, b string) bool {
		run, ok := byOwner[a]
		// A queued player without an active run should not exist; treat it
		// as unpairable and let the sweep clean up.
		if !ok {
			return true
		}
		return run.HasPlayed(b)
	})
	if !found {
		return
	}

	pairing := l.sessions.RegisterPairing(p1, p2)
	logger.Info("match found", "pairing", pairing.ID, "p1", p1, "p2", p2)

	for player, opp := range map[string]string{p1: p2, p2: p1} {
		body := fmt.Sprintf("⚔️ Match found! vs <@%s>", opp)
		if run, ok := byOwner[opp]; ok {
			body = fmt.Sprintf("⚔️ Match found! vs <@%s> [%s] [%s]", opp, run.Leader, run.Base)
		}
		notifyDM(l.transport, player, Message{
			Body:       body,
			SessionRef: pairing.ID,
			Choices:    []string{ChoiceClaimWin, ChoiceNoShow},
		})
	}
}

// ClaimWin handles the "I won" click on a pairing: opens the confirmation
// session against the other player.
func (l *RunLifecycle) ClaimWin(pairingRef, actor string) error {
	pairing, err := l.sessions.Pairing(pairingRef)
	if err != nil {
		return err
	}
	loser := pairing.Opponent(actor)
	if loser == "" {
		return fmt.Errorf("%w: you are not part of this match", ErrValidation)
	}
	_, err = l.sessions.Report(actor, loser, models.SourceQueue, pairingRef)
	return err
}

// ReportNoShow alerts admins that a paired opponent is unresponsive.
func (l *RunLifecycle) ReportNoShow(pairingRef, actor string) error {
	pairing, err := l.sessions.Pairing(pairingRef)
	if err != nil {
		return err
	}
	ghost := pairing.Opponent(actor)
	if ghost == "" {
		return fmt.Errorf("%w: you are not part of this match", ErrValidation)
	}
	notifyChannel(l.transport, l.cfg.AdminChannel, Message{
		Title:      "👻 No-Show Alert",
		Body:       fmt.Sprintf("<@%s> reports that <@%s> is not responding.", actor, ghost),
		SessionRef: pairing.ID,
		Choices:    []string{"void_match"},
	})
	return nil
}

// StartManualReport opens the local-report flow: the player will send the
// opponent's id next.
func (l *RunLifecycle) StartManualReport(player string) error {
	if _, err := l.store.ActiveRun(player); err != nil {
		return err
	}
	return l.store.SetPendingRequest(player, models.PendingManualReport, l.now())
}

// CompleteManualReport validates the named opponent and opens a confirm
// session for a locally played match, with the reporter as claimed winner.
func (l *RunLifecycle) CompleteManualReport(player, opponent string) error {
	now := l.now()
	req, err := l.store.PendingRequest(player)
	if err != nil {
		return err
	}
	if req.Kind != models.PendingManualReport {
		return ErrNoPendingRequest
	}
	if req.Expired(now) {
		if err := l.store.ClearPendingRequest(player); err != nil {
			return err
		}
		return ErrRequestExpired
	}

	if opponent == player {
		return ErrSelfMatch
	}
	run, err := l.store.ActiveRun(player)
	if err != nil {
		return err
	}
	if _, err := l.store.ActiveRun(opponent); err != nil {
		return fmt.Errorf("%w: opponent has no active run", ErrValidation)
	}
	if run.HasPlayed(opponent) {
		return ErrAlreadyPlayed
	}

	if err := l.store.ClearPendingRequest(player); err != nil {
		return err
	}
	_, err = l.sessions.Report(player, opponent, models.SourceLocal, "")
	return err
}

// RecordResult appends the symmetric outcome to both runs and archives
// either run that reaches the match limit, all inside the two players'
// critical section. This is the exactly-once sink for every resolution
// path (confirm, timeout, dispute ruling, admin force).
func (l *RunLifecycle) RecordResult(winner, loser, source string, auto bool) error {
	if winner == loser {
		return ErrSelfMatch
	}

	unlock := l.locks.Lock(winner, loser)
	defer unlock()

	winRun, err := l.store.ActiveRun(winner)
	if err != nil {
		return fmt.Errorf("winner <@%s>: %w", winner, err)
	}
	loseRun, err := l.store.ActiveRun(loser)
	if err != nil {
		return fmt.Errorf("loser <@%s>: %w", loser, err)
	}
	if winRun.HasPlayed(loser) || loseRun.HasPlayed(winner) {
		return ErrAlreadyPlayed
	}

	now := l.now()
	winRun.Opponents = append(winRun.Opponents, loser)
	winRun.Matches = append(winRun.Matches, models.MatchResult{
		Opponent: loser, Outcome: models.OutcomeWin, Source: source, Auto: auto, ReportedAt: now,
	})
	loseRun.Opponents = append(loseRun.Opponents, winner)
	loseRun.Matches = append(loseRun.Matches, models.MatchResult{
		Opponent: winner, Outcome: models.OutcomeLoss, Source: source, Auto: auto, ReportedAt: now,
	})

	var archived []*models.Run
	for _, run := range []*models.Run{winRun, loseRun} {
		if run.Complete() {
			ended := now
			run.Status = models.RunStatusArchived
			run.EndedAt = &ended
			archived = append(archived, run)
		}
	}

	// One atomic write for both sides; archival happens in the same logical
	// operation that appended the final match.
	if err := l.store.SaveRuns(winRun, loseRun); err != nil {
		return err
	}

	logger.Info("result recorded", "winner", winner, "loser", loser, "source", source, "auto", auto)

	confirmMsg := "✅ Result confirmed!"
	timeoutMsg := "⏰ Auto-confirmed (opponent timed out)."
	if auto {
		notifyDM(l.transport, winner, Message{Body: timeoutMsg})
		notifyDM(l.transport, loser, Message{Body: "⏰ Auto-confirmed (you timed out)."})
	} else {
		notifyDM(l.transport, winner, Message{Body: confirmMsg})
		notifyDM(l.transport, loser, Message{Body: confirmMsg})
	}

	for _, run := range archived {
		l.afterArchive(run)
	}
	return nil
}

// afterArchive runs the post-persist side effects of an archival: queue
// removal, completion DM and the trophy post for a perfect record.
func (l *RunLifecycle) afterArchive(run *models.Run) {
	l.queue.Dequeue(run.Owner)
	notifyDM(l.transport, run.Owner, Message{Body: "🏆 Run complete and archived!"})

	if run.Perfect() {
		logger.Info("trophy earned", "player", run.Owner, "run_id", run.RunID, "leader", run.Leader)
		notifyChannel(l.transport, l.cfg.TrophyChannel, Message{
			Title: "🏆 Undefeated Run!",
			Body: fmt.Sprintf("🏆 <@%s> earned a trophy!\nLeader: %s\nBase: %s",
				run.Owner, run.Leader, run.Base),
		})
	}
}

// FinishEarly archives the player's active run regardless of match count.
func (l *RunLifecycle) FinishEarly(player string) (*models.Run, error) {
	unlock := l.locks.Lock(player)
	defer unlock()

	run, err := l.store.ActiveRun(player)
	if err != nil {
		return nil, err
	}
	ended := l.now()
	run.Status = models.RunStatusArchived
	run.EndedAt = &ended
	if err := l.store.SaveRun(run); err != nil {
		return nil, err
	}
	l.queue.Dequeue(player)
	if run.Perfect() {
		l.afterArchive(run)
	}
	logger.Info("run finished early", "player", player, "run_id", run.RunID,
		"record", fmt.Sprintf("%dW-%dL", run.Wins(), run.Losses()))
	return run, nil
}

// Cancel deletes a player's active run without archiving it and removes
// them from the queue. With clearHistory the player's daily-limit history
// is reset so they can start again immediately.
func (l *RunLifecycle) Cancel(player string, clearHistory bool) error {
	unlock := l.locks.Lock(player)
	defer unlock()

	run, err := l.store.ActiveRun(player)
	if err != nil {
		return err
	}
	if err := l.store.DeleteRun(run.RunID); err != nil {
		return err
	}
	if l.queue.Dequeue(player) {
		logger.Info("cancelled run removed from queue", "player", player)
	}
	if clearHistory {
		if err := l.store.ClearHistory(player); err != nil {
			return err
		}
	}
	logger.Info("run cancelled", "player", player, "run_id", run.RunID, "history_cleared", clearHistory)
	return nil
}

// Reactivate moves an archived run back to active. Fails if the owner has
// picked up a different active run in the meantime.
func (l *RunLifecycle) Reactivate(runID string) (*models.Run, error) {
	run, err := l.store.ArchivedRun(runID)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(run.Owner)
	defer unlock()

	if _, err := l.store.ActiveRun(run.Owner); err == nil {
		return nil, ErrOwnerHasActiveRun
	}
	run.Status = models.RunStatusActive
	run.EndedAt = nil
	if err := l.store.SaveRun(run); err != nil {
		return nil, err
	}
	logger.Info("run reactivated", "player", run.Owner, "run_id", runID)
	notifyDM(l.transport, run.Owner, Message{
		Title: "♻️ Run Reactivated",
		Body:  fmt.Sprintf("Your run `%s` is now active again. You can queue for matches!", runID),
	})
	return run, nil
}

// ForceResult records an outcome on admin authority, bypassing the
// confirm/dispute protocol. Same archival side effects as RecordResult.
func (l *RunLifecycle) ForceResult(winner, loser string) error {
	return l.RecordResult(winner, loser, models.SourceAdminForced, false)
}

// Status returns the player's active run.
func (l *RunLifecycle) Status(player string) (*models.Run, error) {
	return l.store.ActiveRun(player)
}

// RequestReactivation opens the flow where the player names an archived
// run id to reopen.
func (l *RunLifecycle) RequestReactivation(player string) error {
	return l.store.SetPendingRequest(player, models.PendingReactivation, l.now())
}

// CompleteReactivationRequest validates the named run and forwards the
// request to the admin channel for approval. An unknown run id keeps the
// flow open for a corrected paste.
func (l *RunLifecycle) CompleteReactivationRequest(player, runID string) error {
	now := l.now()
	req, err := l.store.PendingRequest(player)
	if err != nil {
		return err
	}
	if req.Kind != models.PendingReactivation {
		return ErrNoPendingRequest
	}
	if req.Expired(now) {
		if err := l.store.ClearPendingRequest(player); err != nil {
			return err
		}
		return ErrRequestExpired
	}

	if _, err := l.store.ArchivedRun(runID); err != nil {
		return err
	}
	if err := l.store.ClearPendingRequest(player); err != nil {
		return err
	}

	notifyChannel(l.transport, l.cfg.ReactivationChannel, Message{
		Title:      "📩 Reactivation Request",
		Body:       fmt.Sprintf("<@%s> requests reactivation of run `%s`.", player, runID),
		SessionRef: runID,
		Choices:    []string{"approve", "deny"},
	})
	return nil
}

// ExpirePendingRequests clears interactive flows older than the pending
// TTL and notifies their owners. Called from the housekeeping scheduler.
func (l *RunLifecycle) ExpirePendingRequests() int {
	reqs, err := l.store.PendingRequests()
	if err != nil {
		logger.Error("pending sweep: list failed", "error", err)
		return 0
	}
	now := l.now()
	expired := 0
	for _, req := range reqs {
		if !req.Expired(now) {
			continue
		}
		if err := l.store.ClearPendingRequest(req.Player); err != nil {
			logger.Error("pending sweep: clear failed", "player", req.Player, "error", err)
			continue
		}
		expired++
		notifyDM(l.transport, req.Player, Message{
			Title: "⏰ Timeout",
			Body:  "Your pending request timed out due to inactivity. Just start again if you still need it.",
		})
	}
	return expired
}

// EvictIdleQueue removes players waiting past the idle ceiling and
// notifies them. Called from the housekeeping scheduler.
func (l *RunLifecycle) EvictIdleQueue() int {
	evicted := l.queue.EvictIdle(l.now(), QueueIdleCeiling)
	for _, player := range evicted {
		notifyDM(l.transport, player, Message{
			Body: "⏰ You've been in queue for over an hour and have been removed. Re-enter whenever you're ready!",
		})
	}
	if len(evicted) > 0 {
		logger.Info("idle queue eviction", "count", len(evicted))
	}
	return len(evicted)
}
