package services

import (
	"sort"
	"sync"
	"time"

	"league-run-system/models"
)

// QueueIdleCeiling is how long a player may wait before the housekeeping
// sweep evicts them from the queue.
const QueueIdleCeiling = 60 * time.Minute

// QueueManager holds waiting players in join order and runs the pairing
// scan. All operations take the single queue mutex, so a pairing decision
// and the removal of both paired players are one critical section.
type QueueManager struct {
	mu      sync.Mutex
	waiting map[string]time.Time // player -> enqueued at
}

func NewQueueManager() *QueueManager {
	return &QueueManager{waiting: make(map[string]time.Time)}
}

// Enqueue adds a player. Re-joining while already queued is a no-op, keeping
// the original wait position.
func (q *QueueManager) Enqueue(player string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.waiting[player]; ok {
		return false
	}
	q.waiting[player] = now
	return true
}

// Dequeue removes a player; reports whether they were queued.
func (q *QueueManager) Dequeue(player string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.waiting[player]; !ok {
		return false
	}
	delete(q.waiting, player)
	return true
}

func (q *QueueManager) Contains(player string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.waiting[player]
	return ok
}

func (q *QueueManager) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Snapshot returns the queue in wait order (longest wait first).
func (q *QueueManager) Snapshot() []models.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.orderedLocked()
}

func (q *QueueManager) orderedLocked() []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(q.waiting))
	for player, at := range q.waiting {
		out = append(out, models.QueueEntry{Player: player, EnqueuedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].Player < out[j].Player
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// FindPair scans the wait-ordered queue for the first admissible pair: the
// longest-waiting player i and the earliest later player j that i has not
// already faced this run. Greedy first-admissible, not maximum matching — an
// earlier blocked player never yields their scan position to later pairs.
// Both players are removed before the lock is released, so a concurrent call
// cannot match either of them again. hasPlayed is consulted under the queue
// lock and must not call back into the QueueManager.
func (q *QueueManager) FindPair(hasPlayed func(a, b string) bool) (string, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ordered := q.orderedLocked()
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i].Player, ordered[j].Player
			if hasPlayed(a, b) {
				continue
			}
			delete(q.waiting, a)
			delete(q.waiting, b)
			return a, b, true
		}
	}
	return "", "", false
}

// EvictIdle removes every player whose wait exceeds maxWait and returns
// them for notification. Runs from the housekeeping sweep.
func (q *QueueManager) EvictIdle(now time.Time, maxWait time.Duration) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var evicted []string
	for player, at := range q.waiting {
		if now.Sub(at) > maxWait {
			evicted = append(evicted, player)
			delete(q.waiting, player)
		}
	}
	sort.Strings(evicted)
	return evicted
}
