package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"partsync/database"
	"partsync/models"
)

// RunRepository stores the run ledger in SQL
type RunRepository struct {
	db *database.DB
}

func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun inserts a run or updates it when it already exists
func (r *RunRepository) SaveRun(ctx context.Context, run models.RunRecord) error {
	query := r.db.Rebind(`
		INSERT INTO batch_runs (id, input_file, output_file, report_file, status,
			total_items, updates_count, unchanged_count, errors_count, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			output_file = excluded.output_file,
			report_file = excluded.report_file,
			status = excluded.status,
			total_items = excluded.total_items,
			updates_count = excluded.updates_count,
			unchanged_count = excluded.unchanged_count,
			errors_count = excluded.errors_count,
			completed_at = excluded.completed_at
	`)

	var completedAt sql.NullTime
	if run.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *run.CompletedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.InputFile, run.OutputFile, run.ReportFile, string(run.Status),
		run.Total, run.Updated, run.Unchanged, run.Errors, run.StartedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first
func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := r.db.Rebind(`
		SELECT id, input_file, output_file, report_file, status,
			total_items, updates_count, unchanged_count, errors_count, started_at, completed_at
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT $1
	`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	runs := []models.RunRecord{}
	for rows.Next() {
		var run models.RunRecord
		var status string
		var completedAt sql.NullTime
		err := rows.Scan(
			&run.ID, &run.InputFile, &run.OutputFile, &run.ReportFile, &status,
			&run.Total, &run.Updated, &run.Unchanged, &run.Errors, &run.StartedAt, &completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = models.TaskStatus(status)
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// MemoryRunStore keeps the run ledger in memory when no database is
// configured. Entries are lost on restart.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs []models.RunRecord
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{}
}

func (m *MemoryRunStore) SaveRun(ctx context.Context, run models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryRunStore) RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := slices.Clone(m.runs)
	slices.SortStableFunc(runs, func(a, b models.RunRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	return runs, nil
}
