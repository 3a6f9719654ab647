package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"league-run-system/logger"
	"league-run-system/models"

	"github.com/google/uuid"
)

// ConfirmWindow is how long the reported loser has to confirm or dispute
// before the claim auto-confirms.
const ConfirmWindow = 60 * time.Second

// Session states
const (
	sessionAwaiting = "awaiting_confirmation"
	sessionDisputed = "disputed"
	sessionResolved = "resolved"
)

// Button choices delivered back by the chat gateway.
const (
	ChoiceConfirm  = "confirm"
	ChoiceDispute  = "dispute"
	ChoiceClaimWin = "claim_win"
	ChoiceNoShow   = "no_show"
)

// ResultRecorder is the callback a resolving session fires exactly once.
type ResultRecorder interface {
	RecordResult(winner, loser, source string, auto bool) error
}

// MatchSession is one outcome claim moving through
// awaiting-confirmation -> confirmed/disputed/timed-out -> resolved.
// The resolved flag is the winner-take-first marker for the race between
// the loser's click and the confirmation timer.
type MatchSession struct {
	ID         string
	Winner     string
	Loser      string
	Source     string
	ReportedAt time.Time

	mu       sync.Mutex
	state    string
	resolved bool
	timer    *time.Timer
}

// Pairing is an unreported queue match: two players who may each claim the
// win or flag a no-show. Pairings carry no timer; they live until reported
// or voided by an admin.
type Pairing struct {
	ID        string
	P1, P2    string
	CreatedAt time.Time
}

// Opponent returns the other player of the pairing, or "" if player is not
// part of it.
func (p *Pairing) Opponent(player string) string {
	switch player {
	case p.P1:
		return p.P2
	case p.P2:
		return p.P1
	}
	return ""
}

// SessionManager registers pending pairings and outcome claims and drives
// the confirm/dispute/timeout protocol.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*MatchSession
	pairings map[string]*Pairing

	recorder     ResultRecorder
	transport    Transport
	adminChannel string
	window       time.Duration
	now          func() time.Time
}

func NewSessionManager(transport Transport, adminChannel string) *SessionManager {
	return &SessionManager{
		sessions:     make(map[string]*MatchSession),
		pairings:     make(map[string]*Pairing),
		transport:    transport,
		adminChannel: adminChannel,
		window:       ConfirmWindow,
		now:          time.Now,
	}
}

// SetRecorder wires the lifecycle callback. Must be called before any
// session is reported.
func (m *SessionManager) SetRecorder(r ResultRecorder) { m.recorder = r }

// RegisterPairing records a fresh queue match and returns its ref for the
// match-found notifications.
func (m *SessionManager) RegisterPairing(p1, p2 string) *Pairing {
	pairing := &Pairing{
		ID:        newRef("pair"),
		P1:        p1,
		P2:        p2,
		CreatedAt: m.now(),
	}
	m.mu.Lock()
	m.pairings[pairing.ID] = pairing
	m.mu.Unlock()
	return pairing
}

func (m *SessionManager) Pairing(ref string) (*Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pairings[ref]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

// VoidPairing drops a pairing (admin no-show resolution) and frees both
// players to re-queue.
func (m *SessionManager) VoidPairing(ref string) (*Pairing, error) {
	m.mu.Lock()
	p, ok := m.pairings[ref]
	if ok {
		delete(m.pairings, ref)
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	for _, player := range []string{p.P1, p.P2} {
		notifyDM(m.transport, player, Message{
			Body: "⚠️ Match cancelled: an admin has voided your current match. You may re-enter the queue.",
		})
	}
	return p, nil
}

// Report opens a session for a claimed outcome: winner says they beat
// loser. The loser gets ConfirmWindow to confirm or dispute before the
// claim auto-confirms. If the claim came from a pairing, the pairing ref is
// consumed.
func (m *SessionManager) Report(winner, loser, source, pairingRef string) (*MatchSession, error) {
	if winner == loser {
		return nil, ErrSelfMatch
	}

	s := &MatchSession{
		ID:         newRef("match"),
		Winner:     winner,
		Loser:      loser,
		Source:     source,
		ReportedAt: m.now(),
		state:      sessionAwaiting,
	}

	m.mu.Lock()
	if pairingRef != "" {
		delete(m.pairings, pairingRef)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.timer = time.AfterFunc(m.window, func() { m.timeout(s.ID) })

	notifyDM(m.transport, loser, Message{
		Title:      "⚠️ Confirm Result",
		Body:       fmt.Sprintf("<@%s> claims the win. Confirm or dispute within %d seconds.", winner, int(m.window.Seconds())),
		SessionRef: s.ID,
		Choices:    []string{ChoiceConfirm, ChoiceDispute},
	})
	return s, nil
}

func (m *SessionManager) session(ref string) (*MatchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ref]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Confirm finalizes the claimed outcome. Only the reported loser may
// confirm, and only while the session is still awaiting confirmation.
func (m *SessionManager) Confirm(ref, actor string) error {
	s, err := m.session(ref)
	if err != nil {
		return err
	}
	if actor != s.Loser {
		return ErrWrongActor
	}

	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return ErrSessionResolved
	}
	s.resolved = true
	s.state = sessionResolved
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	return m.finalize(s, s.Winner, s.Loser, s.Source, false)
}

// Dispute escalates to admin arbitration. The session stays open (resolved
// against further loser action) until an admin picks the actual winner.
func (m *SessionManager) Dispute(ref, actor string) error {
	s, err := m.session(ref)
	if err != nil {
		return err
	}
	if actor != s.Loser {
		return ErrWrongActor
	}

	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return ErrSessionResolved
	}
	s.resolved = true // blocks confirm and the timeout; dispute owns the session now
	s.state = sessionDisputed
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	logger.Info("match disputed", "session", s.ID, "winner_claim", s.Winner, "disputed_by", s.Loser)
	notifyDM(m.transport, s.Winner, Message{
		Body: fmt.Sprintf("🚨 Match disputed: <@%s> has disputed your win claim.", s.Loser),
	})
	notifyChannel(m.transport, m.adminChannel, Message{
		Title:      "🚩 Match Dispute",
		Body:       fmt.Sprintf("<@%s> claimed a win over <@%s>. Select the actual winner.", s.Winner, s.Loser),
		SessionRef: s.ID,
		Choices:    []string{s.Winner, s.Loser},
	})
	return nil
}

// ResolveDispute is the admin arbitration step: winner must be one of the
// two session players.
func (m *SessionManager) ResolveDispute(ref, winner string) error {
	s, err := m.session(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != sessionDisputed {
		s.mu.Unlock()
		if s.state == sessionResolved {
			return ErrSessionResolved
		}
		return ErrNotDisputed
	}
	var loser string
	switch winner {
	case s.Winner:
		loser = s.Loser
	case s.Loser:
		loser = s.Winner
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is not part of this session", ErrValidation, winner)
	}
	s.state = sessionResolved
	s.mu.Unlock()

	notifyDM(m.transport, winner, Message{Body: "✅ A moderator has ruled you the winner of your disputed match."})
	notifyDM(m.transport, loser, Message{Body: "❌ A moderator has ruled you the loser of your disputed match."})

	return m.finalize(s, winner, loser, models.SourceAdminDispute, false)
}

// timeout fires when the confirmation window elapses: the originally
// reported winner is credited. A no-op if the loser acted first.
func (m *SessionManager) timeout(ref string) {
	s, err := m.session(ref)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.state = sessionResolved
	s.mu.Unlock()

	logger.Info("auto-confirm: loser timed out", "session", s.ID, "winner", s.Winner, "loser", s.Loser)
	if err := m.finalize(s, s.Winner, s.Loser, s.Source, true); err != nil {
		logger.Error("auto-confirm failed", "session", s.ID, "error", err)
	}
}

// finalize records the result exactly once and drops the session from the
// registry. Every resolution path funnels through here.
func (m *SessionManager) finalize(s *MatchSession, winner, loser, source string, auto bool) error {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	return m.recorder.RecordResult(winner, loser, source, auto)
}

func newRef(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
