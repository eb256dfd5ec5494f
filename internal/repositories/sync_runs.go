package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/shared"
)

// SyncRun records one completed collection retrieval.
type SyncRun struct {
	ID         string
	Store      string
	Tier       string
	ItemCount  int
	FinishedAt time.Time
}

// SyncRunRepository persists [SyncRun] history in the sync_runs table.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts run with a generated ID. A zero FinishedAt is set to now.
func (r *SyncRunRepository) Create(ctx context.Context, run *SyncRun) error {
	if run.Store == "" {
		return fmt.Errorf("%w: store", shared.ErrMissingArgument)
	}

	run.ID = shared.GenerateID()
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync_runs (id, store, tier, item_count, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, run.ID, run.Store, run.Tier, run.ItemCount, run.FinishedAt); err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// Latest returns the most recent run for store.
func (r *SyncRunRepository) Latest(ctx context.Context, store string) (*SyncRun, error) {
	query := `
		SELECT id, store, tier, item_count, finished_at
		FROM sync_runs
		WHERE store = ?
		ORDER BY finished_at DESC
		LIMIT 1
	`

	run := &SyncRun{}
	err := r.db.QueryRowContext(ctx, query, store).Scan(&run.ID, &run.Store, &run.Tier, &run.ItemCount, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no sync runs for %s", shared.ErrNotFound, store)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs for store, newest first.
func (r *SyncRunRepository) List(ctx context.Context, store string, limit int) ([]*SyncRun, error) {
	query := `
		SELECT id, store, tier, item_count, finished_at
		FROM sync_runs
		WHERE store = ?
		ORDER BY finished_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, store, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*SyncRun
	for rows.Next() {
		run := &SyncRun{}
		if err := rows.Scan(&run.ID, &run.Store, &run.Tier, &run.ItemCount, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}
