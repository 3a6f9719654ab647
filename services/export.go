package services

import (
	"encoding/json"
	"fmt"
	"time"

	"league-run-system/logger"
	"league-run-system/models"

	"github.com/gosimple/slug"
)

// PlayerExport is the full data bundle a player can request about
// themselves.
type PlayerExport struct {
	Player        string       `json:"player"`
	ActiveRun     *models.Run  `json:"active_run,omitempty"`
	CompletedRuns []models.Run `json:"completed_runs"`
	ExportedAt    time.Time    `json:"exported_at"`
}

// Exporter bundles a player's league data as JSON, uploads it and DMs the
// artifact link.
type Exporter struct {
	store     RunStore
	artifacts ArtifactStore
	transport Transport
	now       func() time.Time
}

func NewExporter(store RunStore, artifacts ArtifactStore, transport Transport) *Exporter {
	return &Exporter{store: store, artifacts: artifacts, transport: transport, now: time.Now}
}

// Export builds and publishes the bundle, returning the artifact URL.
func (e *Exporter) Export(player, playerName string) (string, error) {
	runs, err := e.store.RunsByOwner(player)
	if err != nil {
		return "", err
	}

	bundle := PlayerExport{
		Player:        player,
		CompletedRuns: []models.Run{},
		ExportedAt:    e.now().UTC(),
	}
	for i := range runs {
		if runs[i].Status == models.RunStatusActive {
			bundle.ActiveRun = &runs[i]
		} else {
			bundle.CompletedRuns = append(bundle.CompletedRuns, runs[i])
		}
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	name := playerName
	if name == "" {
		name = player
	}
	key := fmt.Sprintf("exports/%s-%s.json", slug.Make(name), bundle.ExportedAt.Format("20060102-150405"))
	url, err := e.artifacts.Upload(key, data, "application/json")
	if err != nil {
		return "", err
	}

	logger.Info("player data exported", "player", player, "runs", len(runs), "url", url)
	notifyDM(e.transport, player, Message{
		Body:        "📁 Here is a copy of all your league data:",
		ArtifactURL: url,
	})
	return url, nil
}
