package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueIsIdempotent(t *testing.T) {
	q := NewQueueManager()
	base := time.Now()

	assert.True(t, q.Enqueue("p1", base))
	assert.False(t, q.Enqueue("p1", base.Add(time.Minute)), "re-join must not reset wait position")
	assert.Equal(t, 1, q.Len())

	snap := q.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, base, snap[0].EnqueuedAt)
}

func TestSnapshotOrdersByWait(t *testing.T) {
	q := NewQueueManager()
	base := time.Now()
	q.Enqueue("late", base.Add(2*time.Minute))
	q.Enqueue("early", base)
	q.Enqueue("mid", base.Add(time.Minute))

	snap := q.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "early", snap[0].Player)
	assert.Equal(t, "mid", snap[1].Player)
	assert.Equal(t, "late", snap[2].Player)
}

func TestFindPairMatchesLongestWaitFirst(t *testing.T) {
	q := NewQueueManager()
	base := time.Now()
	q.Enqueue("a", base)
	q.Enqueue("b", base.Add(time.Second))
	q.Enqueue("c", base.Add(2*time.Second))

	p1, p2, ok := q.FindPair(func(string, string) bool { return false })
	require.True(t, ok)
	assert.Equal(t, "a", p1)
	assert.Equal(t, "b", p2)
	assert.Equal(t, 1, q.Len(), "both paired players removed atomically")
	assert.True(t, q.Contains("c"))
}

func TestFindPairSkipsAlreadyPlayedOpponent(t *testing.T) {
	q := NewQueueManager()
	base := time.Now()
	q.Enqueue("a", base)
	q.Enqueue("b", base.Add(time.Second))
	q.Enqueue("c", base.Add(2*time.Second))

	// a already faced b this run, so the first admissible pair is a+c.
	p1, p2, ok := q.FindPair(func(x, y string) bool { return x == "a" && y == "b" })
	require.True(t, ok)
	assert.Equal(t, "a", p1)
	assert.Equal(t, "c", p2)
	assert.True(t, q.Contains("b"))
}

func TestFindPairGreedyDoesNotBacktrack(t *testing.T) {
	q := NewQueueManager()
	base := time.Now()
	q.Enqueue("a", base)
	q.Enqueue("b", base.Add(time.Second))

	// The only two players have already faced each other: no match, both
	// stay queued.
	_, _, ok := q.FindPair(func(string, string) bool { return true })
	assert.False(t, ok)
	assert.Equal(t, 2, q.Len())
}

func TestDequeue(t *testing.T) {
	q := NewQueueManager()
	q.Enqueue("p1", time.Now())

	assert.True(t, q.Dequeue("p1"))
	assert.False(t, q.Dequeue("p1"))
	assert.False(t, q.Contains("p1"))
}

func TestEvictIdleRemovesOnlyStaleEntries(t *testing.T) {
	q := NewQueueManager()
	now := time.Now()
	q.Enqueue("stale1", now.Add(-90*time.Minute))
	q.Enqueue("stale2", now.Add(-61*time.Minute))
	q.Enqueue("fresh", now.Add(-10*time.Minute))

	evicted := q.EvictIdle(now, QueueIdleCeiling)
	assert.Equal(t, []string{"stale1", "stale2"}, evicted)
	assert.Equal(t, 1, q.Len())
	assert.True(t, q.Contains("fresh"))
}
