package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"league-run-system/logger"
	"league-run-system/models"

	"github.com/gosimple/slug"
)

// Renderer turns a tabular report into an artifact. Rendering internals
// (images, styling) belong to the collaborator; the core only forwards the
// resulting bytes.
type Renderer interface {
	Render(title string, headers []string, rows [][]string) (data []byte, contentType string, ext string, err error)
}

// ArtifactStore persists a rendered artifact and returns a public URL.
type ArtifactStore interface {
	Upload(key string, data []byte, contentType string) (string, error)
}

// Aspect colors for meta grouping: a base's first aspect decides its color,
// aspect-less common bases are Gray.
var aspectColors = map[string]string{
	"Vigilance":  "Blue",
	"Command":    "Green",
	"Aggression": "Red",
	"Cunning":    "Yellow",
}

// StandingsService aggregates archived runs into the league report tables
// and publishes them through the Renderer + ArtifactStore collaborators.
type StandingsService struct {
	store    RunStore
	renderer Renderer
	artifacts ArtifactStore
	transport Transport
	channel   string

	baseColors map[string]string

	mu           sync.Mutex
	lastSnapshot string // hash of the archived set at the last published post
}

func NewStandingsService(store RunStore, renderer Renderer, artifacts ArtifactStore, transport Transport, leaderboardChannel, basePath string) *StandingsService {
	return &StandingsService{
		store:      store,
		renderer:   renderer,
		artifacts:  artifacts,
		transport:  transport,
		channel:    leaderboardChannel,
		baseColors: loadBaseColors(basePath),
	}
}

func loadBaseColors(path string) map[string]string {
	colors := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return colors
	}
	var file struct {
		Data []struct {
			Name    string   `json:"Name"`
			Aspects []string `json:"Aspects"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return colors
	}
	for _, card := range file.Data {
		color := "Gray"
		if len(card.Aspects) > 0 {
			if c, ok := aspectColors[card.Aspects[0]]; ok {
				color = c
			}
		}
		colors[card.Name] = color
	}
	return colors
}

type tally struct {
	name   string
	wins   int
	losses int
	runs   int
	posRuns int
	leaders map[string]bool
}

func winPct(wins, losses int) float64 {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// Standings builds the season table: per player, total wins/losses/runs and
// win percentage, sorted by wins then win percentage.
func (s *StandingsService) Standings() ([][]string, error) {
	archived, err := s.store.ArchivedRuns()
	if err != nil {
		return nil, err
	}
	byPlayer := s.tallies(archived)

	keys := sortedKeys(byPlayer)
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := byPlayer[keys[i]], byPlayer[keys[j]]
		if a.wins != b.wins {
			return a.wins > b.wins
		}
		return winPct(a.wins, a.losses) > winPct(b.wins, b.losses)
	})

	rows := make([][]string, 0, len(keys))
	for rank, key := range keys {
		t := byPlayer[key]
		rows = append(rows, []string{
			fmt.Sprintf("%d", rank+1), t.name,
			fmt.Sprintf("%d", t.wins), fmt.Sprintf("%d", t.losses),
			fmt.Sprintf("%d", t.runs), fmt.Sprintf("%.1f", winPct(t.wins, t.losses)),
		})
	}
	return rows, nil
}

// Meta groups archived runs by leader + base aspect color and ranks by win
// percentage, then games played.
func (s *StandingsService) Meta() ([][]string, error) {
	archived, err := s.store.ArchivedRuns()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*tally)
	for _, run := range archived {
		color, ok := s.baseColors[run.Base]
		if !ok {
			color = "Gray"
		}
		key := fmt.Sprintf("%s (%s)", run.Leader, color)
		t, ok := stats[key]
		if !ok {
			t = &tally{name: key}
			stats[key] = t
		}
		t.wins += run.Wins()
		t.losses += run.Losses()
	}

	keys := sortedKeys(stats)
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := stats[keys[i]], stats[keys[j]]
		ap, bp := winPct(a.wins, a.losses), winPct(b.wins, b.losses)
		if ap != bp {
			return ap > bp
		}
		return a.wins+a.losses > b.wins+b.losses
	})

	rows := make([][]string, 0, len(keys))
	for rank, key := range keys {
		t := stats[key]
		rows = append(rows, []string{
			fmt.Sprintf("%d", rank+1), t.name,
			fmt.Sprintf("%d", t.wins), fmt.Sprintf("%d", t.losses),
			fmt.Sprintf("%.1f", winPct(t.wins, t.losses)),
		})
	}
	return rows, nil
}

// Performance ranks players by win percentage with their count of positive
// (more wins than losses) runs as tiebreaker.
func (s *StandingsService) Performance() ([][]string, error) {
	archived, err := s.store.ArchivedRuns()
	if err != nil {
		return nil, err
	}
	byPlayer := s.tallies(archived)

	keys := sortedKeys(byPlayer)
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := byPlayer[keys[i]], byPlayer[keys[j]]
		ap, bp := winPct(a.wins, a.losses), winPct(b.wins, b.losses)
		if ap != bp {
			return ap > bp
		}
		return a.posRuns > b.posRuns
	})

	rows := make([][]string, 0, len(keys))
	for rank, key := range keys {
		t := byPlayer[key]
		rows = append(rows, []string{
			fmt.Sprintf("%d", rank+1), t.name,
			fmt.Sprintf("%d", t.wins), fmt.Sprintf("%d", t.losses),
			fmt.Sprintf("%d", t.posRuns), fmt.Sprintf("%.1f", winPct(t.wins, t.losses)),
		})
	}
	return rows, nil
}

// Mastery counts the distinct leaders each player has taken to a positive
// record.
func (s *StandingsService) Mastery() ([][]string, error) {
	archived, err := s.store.ArchivedRuns()
	if err != nil {
		return nil, err
	}
	byPlayer := s.tallies(archived)

	keys := sortedKeys(byPlayer)
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := byPlayer[keys[i]], byPlayer[keys[j]]
		if len(a.leaders) != len(b.leaders) {
			return len(a.leaders) > len(b.leaders)
		}
		return winPct(a.wins, a.losses) > winPct(b.wins, b.losses)
	})

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		t := byPlayer[key]
		rows = append(rows, []string{
			t.name, fmt.Sprintf("%d", len(t.leaders)),
			fmt.Sprintf("%dW - %dL", t.wins, t.losses),
			fmt.Sprintf("%.1f", winPct(t.wins, t.losses)),
		})
	}
	return rows, nil
}

func (s *StandingsService) tallies(archived []models.Run) map[string]*tally {
	byPlayer := make(map[string]*tally)
	for _, run := range archived {
		t, ok := byPlayer[run.Owner]
		if !ok {
			name := run.OwnerName
			if name == "" {
				name = run.Owner
			}
			t = &tally{name: name, leaders: make(map[string]bool)}
			byPlayer[run.Owner] = t
		}
		wins, losses := run.Wins(), run.Losses()
		t.wins += wins
		t.losses += losses
		t.runs++
		if wins > losses {
			t.posRuns++
			t.leaders[run.Leader] = true
		}
	}
	return byPlayer
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PublishDaily renders and posts the standings table, but only when the
// archived set changed since the last post. Returns the artifact URL, or ""
// when the post was skipped.
func (s *StandingsService) PublishDaily() (string, error) {
	archived, err := s.store.ArchivedRuns()
	if err != nil {
		return "", err
	}
	if len(archived) == 0 {
		logger.Info("standings skip: no archived runs")
		return "", nil
	}

	snapshot := snapshotHash(archived)
	s.mu.Lock()
	unchanged := snapshot == s.lastSnapshot
	s.mu.Unlock()
	if unchanged {
		logger.Info("standings skip: no changes since last post")
		return "", nil
	}

	url, err := s.publish("Daily League Standings",
		[]string{"Rank", "Player", "Wins", "Losses", "Total Runs", "Win %"},
		s.Standings)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.lastSnapshot = snapshot
	s.mu.Unlock()

	notifyChannel(s.transport, s.channel, Message{
		Title:       "📊 Daily League Standings",
		Body:        "Here are the current rankings for the season!",
		ArtifactURL: url,
	})
	return url, nil
}

// Publish renders any of the report tables on demand (admin-triggered).
func (s *StandingsService) Publish(report string) (string, error) {
	switch report {
	case "standings":
		return s.publish("League Standings",
			[]string{"Rank", "Player", "Wins", "Losses", "Total Runs", "Win %"}, s.Standings)
	case "meta":
		return s.publish("Meta Performance Report",
			[]string{"Rank", "Deck (Leader + Aspect)", "Wins", "Losses", "Win %"}, s.Meta)
	case "performance":
		return s.publish("User Performance Report",
			[]string{"Rank", "Player", "Wins", "Losses", "Positive Runs", "Win %"}, s.Performance)
	case "mastery":
		return s.publish("Player Mastery Report",
			[]string{"Player", "Unique Positive Leaders", "Total Record", "Win %"}, s.Mastery)
	default:
		return "", fmt.Errorf("%w: unknown report %q", ErrValidation, report)
	}
}

func (s *StandingsService) publish(title string, headers []string, build func() ([][]string, error)) (string, error) {
	rows, err := build()
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: no archived runs to report on", ErrNotFound)
	}
	data, contentType, ext, err := s.renderer.Render(title, headers, rows)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("reports/%s-%s.%s", slug.Make(title), time.Now().UTC().Format("20060102-150405"), ext)
	url, err := s.artifacts.Upload(key, data, contentType)
	if err != nil {
		return "", err
	}
	logger.Info("report published", "title", title, "rows", len(rows), "url", url)
	return url, nil
}

func snapshotHash(runs []models.Run) string {
	data, err := json.Marshal(runs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
