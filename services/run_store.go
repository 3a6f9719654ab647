package services

import (
	"errors"
	"fmt"
	"time"

	"league-run-system/models"

	"gorm.io/gorm"
)

// RunStore owns the durable run collections, run-start history and pending
// interactive requests. Implementations must make each call atomic; callers
// (RunLifecycle) serialize multi-call read-modify-write cycles per player via
// the keyed lock.
type RunStore interface {
	// Active runs, keyed by owner.
	ActiveRun(player string) (*models.Run, error)
	ActiveRuns() ([]models.Run, error)

	// Archived runs, keyed by run id.
	ArchivedRun(runID string) (*models.Run, error)
	ArchivedRuns() ([]models.Run, error)

	// FindRun searches both collections.
	FindRun(runID string) (*models.Run, error)
	// RunsByOwner returns every run (active and archived) a player has owned.
	RunsByOwner(player string) ([]models.Run, error)

	// SaveRun upserts a run by its run id. SaveRuns upserts two runs in one
	// atomic write (symmetric match recording).
	SaveRun(run *models.Run) error
	SaveRuns(a, b *models.Run) error
	DeleteRun(runID string) error

	History(player string) ([]time.Time, error)
	AppendHistory(player string, at time.Time) error
	ClearHistory(player string) error

	PendingRequest(player string) (*models.PendingRequest, error)
	SetPendingRequest(player, kind string, at time.Time) error
	ClearPendingRequest(player string) error
	PendingRequests() ([]models.PendingRequest, error)
}

// GormRunStore is the production RunStore backed by Postgres.
type GormRunStore struct {
	DB *gorm.DB
}

func NewGormRunStore(db *gorm.DB) *GormRunStore {
	return &GormRunStore{DB: db}
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

func (s *GormRunStore) ActiveRun(player string) (*models.Run, error) {
	var run models.Run
	err := s.DB.Where("owner = ? AND status = ?", player, models.RunStatusActive).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveRun
	}
	if err != nil {
		return nil, persistErr("load active run", err)
	}
	return &run, nil
}

func (s *GormRunStore) ActiveRuns() ([]models.Run, error) {
	var runs []models.Run
	if err := s.DB.Where("status = ?", models.RunStatusActive).Find(&runs).Error; err != nil {
		return nil, persistErr("list active runs", err)
	}
	return runs, nil
}

func (s *GormRunStore) ArchivedRun(runID string) (*models.Run, error) {
	var run models.Run
	err := s.DB.Where("run_id = ? AND status = ?", runID, models.RunStatusArchived).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, persistErr("load archived run", err)
	}
	return &run, nil
}

func (s *GormRunStore) ArchivedRuns() ([]models.Run, error) {
	var runs []models.Run
	if err := s.DB.Where("status = ?", models.RunStatusArchived).Order("ended_at").Find(&runs).Error; err != nil {
		return nil, persistErr("list archived runs", err)
	}
	return runs, nil
}

func (s *GormRunStore) FindRun(runID string) (*models.Run, error) {
	var run models.Run
	err := s.DB.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, persistErr("find run", err)
	}
	return &run, nil
}

func (s *GormRunStore) RunsByOwner(player string) ([]models.Run, error) {
	var runs []models.Run
	if err := s.DB.Where("owner = ?", player).Order("created_at").Find(&runs).Error; err != nil {
		return nil, persistErr("list runs by owner", err)
	}
	return runs, nil
}

func (s *GormRunStore) SaveRun(run *models.Run) error {
	if err := s.DB.Save(run).Error; err != nil {
		return persistErr("save run", err)
	}
	return nil
}

func (s *GormRunStore) SaveRuns(a, b *models.Run) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		return tx.Save(b).Error
	})
	if err != nil {
		return persistErr("save runs", err)
	}
	return nil
}

func (s *GormRunStore) DeleteRun(runID string) error {
	res := s.DB.Where("run_id = ?", runID).Delete(&models.Run{})
	if res.Error != nil {
		return persistErr("delete run", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *GormRunStore) History(player string) ([]time.Time, error) {
	var starts []models.RunStart
	if err := s.DB.Where("player = ?", player).Order("started_at").Find(&starts).Error; err != nil {
		return nil, persistErr("load history", err)
	}
	out := make([]time.Time, 0, len(starts))
	for _, s := range starts {
		out = append(out, s.StartedAt)
	}
	return out, nil
}

func (s *GormRunStore) AppendHistory(player string, at time.Time) error {
	rec := models.RunStart{Player: player, StartedAt: at.UTC()}
	if err := s.DB.Create(&rec).Error; err != nil {
		return persistErr("append history", err)
	}
	return nil
}

func (s *GormRunStore) ClearHistory(player string) error {
	if err := s.DB.Where("player = ?", player).Delete(&models.RunStart{}).Error; err != nil {
		return persistErr("clear history", err)
	}
	return nil
}

func (s *GormRunStore) PendingRequest(player string) (*models.PendingRequest, error) {
	var req models.PendingRequest
	err := s.DB.Where("player = ?", player).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPendingRequest
	}
	if err != nil {
		return nil, persistErr("load pending request", err)
	}
	return &req, nil
}

func (s *GormRunStore) SetPendingRequest(player, kind string, at time.Time) error {
	req := models.PendingRequest{Player: player, Kind: kind, StartedAt: at.UTC()}
	// Save upserts on the primary key, so a new kind supersedes the old flow.
	if err := s.DB.Save(&req).Error; err != nil {
		return persistErr("set pending request", err)
	}
	return nil
}

func (s *GormRunStore) ClearPendingRequest(player string) error {
	if err := s.DB.Where("player = ?", player).Delete(&models.PendingRequest{}).Error; err != nil {
		return persistErr("clear pending request", err)
	}
	return nil
}

func (s *GormRunStore) PendingRequests() ([]models.PendingRequest, error) {
	var reqs []models.PendingRequest
	if err := s.DB.Find(&reqs).Error; err != nil {
		return nil, persistErr("list pending requests", err)
	}
	return reqs, nil
}
