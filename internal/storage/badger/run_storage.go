package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/verity/pkg/models"
)

// RunStorage persists scenario run records in Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// RunListOptions filters and pages run history queries
type RunListOptions struct {
	Scenario string
	Status   models.RunStatus
	Limit    int
	Offset   int
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun upserts a run record keyed by its ID
func (s *RunStorage) SaveRun(ctx context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by ID
func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	var run models.RunRecord
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns run records newest-first, optionally filtered by scenario
// and status.
func (s *RunStorage) ListRuns(ctx context.Context, opts *RunListOptions) ([]*models.RunRecord, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Scenario != "" {
			query = query.And("Scenario").Eq(opts.Scenario)
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("StartedAt").Reverse()

	var runs []models.RunRecord
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.RunRecord, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// LatestRun returns the most recent run for a scenario, or nil when none
// exists yet.
func (s *RunStorage) LatestRun(ctx context.Context, scenario string) (*models.RunRecord, error) {
	runs, err := s.ListRuns(ctx, &RunListOptions{Scenario: scenario, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// DeleteRun removes a run record
func (s *RunStorage) DeleteRun(ctx context.Context, runID string) error {
	if err := s.db.Store().Delete(runID, &models.RunRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("run not found: %s", runID)
		}
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// CountRuns returns the number of stored runs for a scenario ("" for all)
func (s *RunStorage) CountRuns(ctx context.Context, scenario string) (int, error) {
	query := badgerhold.Where("ID").Ne("")
	if scenario != "" {
		query = query.And("Scenario").Eq(scenario)
	}

	count, err := s.db.Store().Count(&models.RunRecord{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return int(count), nil
}
