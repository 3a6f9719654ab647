package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"league-run-system/logger"
	"league-run-system/services"
	"league-run-system/utils"
)

// CardSyncWorker keeps the local card database fresh: on an interval it
// downloads the leader and base catalogs from the card data service, rewrites
// the files on disk and reloads the deck parser. Runs stay registrable on
// the stale catalog if a refresh fails.
type CardSyncWorker struct {
	decks      *services.DeckParser
	baseURL    string
	leaderPath string
	basePath   string
	interval   time.Duration
}

func NewCardSyncWorker(decks *services.DeckParser, baseURL, leaderPath, basePath string) *CardSyncWorker {
	return &CardSyncWorker{
		decks:      decks,
		baseURL:    baseURL,
		leaderPath: leaderPath,
		basePath:   basePath,
		interval:   24 * time.Hour,
	}
}

func (w *CardSyncWorker) Start(ctx context.Context) {
	logger.Info("🔁 starting card sync worker", "base_url", w.baseURL, "interval", w.interval)
	go w.run(ctx)
}

func (w *CardSyncWorker) run(ctx context.Context) {
	if err := w.sync(ctx); err != nil {
		logger.Warn("initial card sync failed, keeping local files", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.sync(ctx); err != nil {
				logger.Error("card sync failed", "error", err)
			}
		case <-ctx.Done():
			logger.Info("⏹️ card sync worker stopped")
			return
		}
	}
}

func (w *CardSyncWorker) sync(ctx context.Context) error {
	if err := w.fetch(ctx, w.baseURL+"/leaders", w.leaderPath); err != nil {
		return fmt.Errorf("leaders: %w", err)
	}
	if err := w.fetch(ctx, w.baseURL+"/bases", w.basePath); err != nil {
		return fmt.Errorf("bases: %w", err)
	}
	w.decks.Reload()
	logger.Info("card database refreshed", "leader_file", w.leaderPath, "base_file", w.basePath)
	return nil
}

// fetch downloads a catalog and replaces the target file atomically, so a
// concurrent deck parse never sees a half-written file.
func (w *CardSyncWorker) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("card service returned %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	// Sanity-check the payload before touching the file on disk.
	var probe struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("malformed catalog payload: %w", err)
	}
	if len(probe.Data) == 0 {
		return fmt.Errorf("catalog payload is empty, refusing to overwrite %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
