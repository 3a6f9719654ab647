package services

import (
	"sort"
	"sync"
	"time"

	"league-run-system/models"
)

// MemoryRunStore is an in-process RunStore. It backs tests and single-node
// deployments that run without Postgres (DATABASE_URL unset).
type MemoryRunStore struct {
	mu       sync.Mutex
	active   map[string]models.Run // owner -> run
	archived map[string]models.Run // run id -> run
	history  map[string][]time.Time
	pending  map[string]models.PendingRequest
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		active:   make(map[string]models.Run),
		archived: make(map[string]models.Run),
		history:  make(map[string][]time.Time),
		pending:  make(map[string]models.PendingRequest),
	}
}

func copyRun(r models.Run) models.Run {
	cp := r
	cp.Opponents = append([]string(nil), r.Opponents...)
	cp.Matches = append([]models.MatchResult(nil), r.Matches...)
	if r.EndedAt != nil {
		t := *r.EndedAt
		cp.EndedAt = &t
	}
	return cp
}

func (s *MemoryRunStore) ActiveRun(player string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.active[player]
	if !ok {
		return nil, ErrNoActiveRun
	}
	cp := copyRun(run)
	return &cp, nil
}

func (s *MemoryRunStore) ActiveRuns() ([]models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Run, 0, len(s.active))
	for _, run := range s.active {
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryRunStore) ArchivedRun(runID string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.archived[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := copyRun(run)
	return &cp, nil
}

func (s *MemoryRunStore) ArchivedRuns() ([]models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Run, 0, len(s.archived))
	for _, run := range s.archived {
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndedAt == nil || out[j].EndedAt == nil {
			return out[i].RunID < out[j].RunID
		}
		return out[i].EndedAt.Before(*out[j].EndedAt)
	})
	return out, nil
}

func (s *MemoryRunStore) FindRun(runID string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.archived[runID]; ok {
		cp := copyRun(run)
		return &cp, nil
	}
	for _, run := range s.active {
		if run.RunID == runID {
			cp := copyRun(run)
			return &cp, nil
		}
	}
	return nil, ErrRunNotFound
}

func (s *MemoryRunStore) RunsByOwner(player string) ([]models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Run
	if run, ok := s.active[player]; ok {
		out = append(out, copyRun(run))
	}
	for _, run := range s.archived {
		if run.Owner == player {
			out = append(out, copyRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// put places a run in the collection matching its status, removing any stale
// copy from the other collection (archival and reactivation move runs).
func (s *MemoryRunStore) put(run models.Run) {
	if run.Status == models.RunStatusArchived {
		if cur, ok := s.active[run.Owner]; ok && cur.RunID == run.RunID {
			delete(s.active, run.Owner)
		}
		s.archived[run.RunID] = run
		return
	}
	delete(s.archived, run.RunID)
	s.active[run.Owner] = run
}

func (s *MemoryRunStore) SaveRun(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(copyRun(*run))
	return nil
}

func (s *MemoryRunStore) SaveRuns(a, b *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(copyRun(*a))
	s.put(copyRun(*b))
	return nil
}

func (s *MemoryRunStore) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archived[runID]; ok {
		delete(s.archived, runID)
		return nil
	}
	for owner, run := range s.active {
		if run.RunID == runID {
			delete(s.active, owner)
			return nil
		}
	}
	return ErrRunNotFound
}

func (s *MemoryRunStore) History(player string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.history[player]...), nil
}

func (s *MemoryRunStore) AppendHistory(player string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[player] = append(s.history[player], at.UTC())
	return nil
}

func (s *MemoryRunStore) ClearHistory(player string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, player)
	return nil
}

func (s *MemoryRunStore) PendingRequest(player string) (*models.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[player]
	if !ok {
		return nil, ErrNoPendingRequest
	}
	cp := req
	return &cp, nil
}

func (s *MemoryRunStore) SetPendingRequest(player, kind string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[player] = models.PendingRequest{Player: player, Kind: kind, StartedAt: at.UTC()}
	return nil
}

func (s *MemoryRunStore) ClearPendingRequest(player string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, player)
	return nil
}

func (s *MemoryRunStore) PendingRequests() ([]models.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PendingRequest, 0, len(s.pending))
	for _, req := range s.pending {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out, nil
}
