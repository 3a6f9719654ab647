package services

import (
	"sync"
	"testing"
	"time"

	"league-run-system/models"
)

// fakeTransport records every delivery. Safe for concurrent use because
// confirmation timers fire on their own goroutines.
type fakeTransport struct {
	mu       sync.Mutex
	dms      map[string][]Message
	channels map[string][]Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		dms:      make(map[string][]Message),
		channels: make(map[string][]Message),
	}
}

func (t *fakeTransport) SendDirectMessage(player string, msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dms[player] = append(t.dms[player], msg)
	return nil
}

func (t *fakeTransport) SendChannelMessage(channel string, msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[channel] = append(t.channels[channel], msg)
	return nil
}

func (t *fakeTransport) dmCount(player string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.dms[player])
}

func (t *fakeTransport) lastDM(player string) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgs := t.dms[player]
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (t *fakeTransport) channelMessages(channel string) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.channels[channel]...)
}

// fakeArtifacts captures uploads and hands back a deterministic URL.
type fakeArtifacts struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{uploads: make(map[string][]byte)}
}

func (a *fakeArtifacts) Upload(key string, data []byte, contentType string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads[key] = append([]byte(nil), data...)
	return "https://cdn.test/" + key, nil
}

// fakeRecorder captures RecordResult calls for session tests that do not
// need the full lifecycle.
type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedResult
	err   error
}

type recordedResult struct {
	Winner, Loser, Source string
	Auto                  bool
}

func (r *fakeRecorder) RecordResult(winner, loser, source string, auto bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedResult{winner, loser, source, auto})
	return r.err
}

func (r *fakeRecorder) results() []recordedResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedResult(nil), r.calls...)
}

// testEnv wires a lifecycle + session manager over the in-memory store, the
// usual shape for scenario tests.
type testEnv struct {
	store     *MemoryRunStore
	queue     *QueueManager
	limits    *DailyLimitTracker
	transport *fakeTransport
	lifecycle *RunLifecycle
	sessions  *SessionManager

	clock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	store := NewMemoryRunStore()
	limits, err := NewDailyLimitTracker(store, "America/Los_Angeles", 3, 0)
	if err != nil {
		t.Fatalf("limit tracker: %v", err)
	}

	env := &testEnv{
		store:     store,
		queue:     NewQueueManager(),
		limits:    limits,
		transport: newFakeTransport(),
		clock:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	env.lifecycle = NewRunLifecycle(store, env.queue, limits, env.transport, NewDeckParser("", ""), LifecycleConfig{
		AdminChannel:        "admin-ch",
		TrophyChannel:       "trophy-ch",
		ReactivationChannel: "react-ch",
		LeaderboardChannel:  "board-ch",
	})
	env.lifecycle.now = func() time.Time { return env.clock }

	env.sessions = NewSessionManager(env.transport, "admin-ch")
	// Long window: timeout behavior has its own tests against a bare
	// session manager.
	env.sessions.window = time.Hour
	env.sessions.SetRecorder(env.lifecycle)
	env.lifecycle.SetSessions(env.sessions)
	return env
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

// startRun drives the two-step registration flow to completion.
func (e *testEnv) startRun(t *testing.T, player string) *models.Run {
	if err := e.lifecycle.StartRegistration(player); err != nil {
		t.Fatalf("start registration for %s: %v", player, err)
	}
	run, err := e.lifecycle.CompleteRegistration(player, player+"-name", "skip")
	if err != nil {
		t.Fatalf("complete registration for %s: %v", player, err)
	}
	return run
}
