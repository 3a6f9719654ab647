package services

import (
	"fmt"

	"league-run-system/models"
)

// RunRef is one line of a player's run history listing.
type RunRef struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Record string `json:"record"`
}

// AdminService is the operation set behind the admin capability: run
// inspection and hard overrides that bypass the normal protocol while
// keeping the same invariants. Capability checks live in middleware, never
// here.
type AdminService struct {
	store     RunStore
	lifecycle *RunLifecycle
	sessions  *SessionManager
	transport Transport
}

func NewAdminService(store RunStore, lifecycle *RunLifecycle, sessions *SessionManager, transport Transport) *AdminService {
	return &AdminService{store: store, lifecycle: lifecycle, sessions: sessions, transport: transport}
}

// GetRunData fetches a run by id from either collection.
func (a *AdminService) GetRunData(runID string) (*models.Run, error) {
	return a.store.FindRun(runID)
}

// DeleteRun removes a run record entirely, active or archived.
func (a *AdminService) DeleteRun(runID string) error {
	return a.store.DeleteRun(runID)
}

// UserRunHistory lists every run id a player has owned with its status and
// final record.
func (a *AdminService) UserRunHistory(player string) ([]RunRef, error) {
	runs, err := a.store.RunsByOwner(player)
	if err != nil {
		return nil, err
	}
	refs := make([]RunRef, 0, len(runs))
	for _, run := range runs {
		refs = append(refs, RunRef{
			RunID:  run.RunID,
			Status: run.Status,
			Record: fmt.Sprintf("%dW-%dL", run.Wins(), run.Losses()),
		})
	}
	return refs, nil
}

// ForceResult manually logs an outcome, e.g. to settle an argument that
// never went through a session.
func (a *AdminService) ForceResult(winner, loser string) error {
	return a.lifecycle.ForceResult(winner, loser)
}

// CancelRun deletes a player's active run; clearHistory also resets their
// daily-limit history.
func (a *AdminService) CancelRun(player string, clearHistory bool) error {
	return a.lifecycle.Cancel(player, clearHistory)
}

// ReactivateRun restores an archived run to active.
func (a *AdminService) ReactivateRun(runID string) (*models.Run, error) {
	return a.lifecycle.Reactivate(runID)
}

// ApproveReactivation resolves a player's reactivation request and tells
// them the outcome.
func (a *AdminService) ApproveReactivation(runID string) (*models.Run, error) {
	run, err := a.lifecycle.Reactivate(runID)
	if err != nil {
		return nil, err
	}
	notifyDM(a.transport, run.Owner, Message{
		Title: "♻️ Reactivation Approved",
		Body:  fmt.Sprintf("Your run `%s` is now active again!", runID),
	})
	return run, nil
}

// DenyReactivation tells the requesting player their run stays archived.
func (a *AdminService) DenyReactivation(runID string) error {
	run, err := a.store.ArchivedRun(runID)
	if err != nil {
		return err
	}
	notifyDM(a.transport, run.Owner, Message{
		Title: "❌ Reactivation Denied",
		Body:  fmt.Sprintf("Your request to reactivate run `%s` was denied by an admin.", runID),
	})
	return nil
}

// ResolveDispute is the arbitration step for a disputed session.
func (a *AdminService) ResolveDispute(sessionRef, winner string) error {
	return a.sessions.ResolveDispute(sessionRef, winner)
}

// VoidMatch cancels an unreported pairing after a no-show report.
func (a *AdminService) VoidMatch(pairingRef string) error {
	_, err := a.sessions.VoidPairing(pairingRef)
	return err
}

// QueueSnapshot exposes the current queue for inspection.
func (a *AdminService) QueueSnapshot() []models.QueueEntry {
	return a.lifecycle.QueueSnapshot()
}
