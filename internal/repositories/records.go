package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/spindle/internal/cache"
)

// RecordStore implements [cache.Storage] on the SQLite records table.
//
// Records are stored as JSON payloads. Saving a record whose key already exists in
// the store replaces its payload and keeps its position.
type RecordStore[T any] struct {
	db  *sql.DB
	key KeyFunc[T]
}

// NewRecordStore creates a [RecordStore]. A nil key function gives every record a generated key.
func NewRecordStore[T any](db *sql.DB, key KeyFunc[T]) *RecordStore[T] {
	return &RecordStore[T]{db: db, key: key}
}

// Save inserts items in a single transaction.
func (r *RecordStore[T]) Save(ctx context.Context, store string, items []T) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (store, record_key, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (store, record_key) DO UPDATE SET payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, store, keyOf(r.key, item), payload); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// Load reads every record of store in insertion order.
func (r *RecordStore[T]) Load(ctx context.Context, store string, progress cache.ProgressFunc) ([]T, error) {
	return loadAll[T](ctx, r, store, progress)
}

func (r *RecordStore[T]) Clear(ctx context.Context, store string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM records WHERE store = ?", store); err != nil {
		return fmt.Errorf("failed to clear store %s: %w", store, err)
	}
	return nil
}

func (r *RecordStore[T]) Count(ctx context.Context, store string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE store = ?", store).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count store %s: %w", store, err)
	}
	return count, nil
}

// Paginated reads count records starting at offset, ordered by index.
func (r *RecordStore[T]) Paginated(ctx context.Context, store, index string, offset, count int) ([]T, error) {
	index, err := normalizeIndex(index)
	if err != nil {
		return nil, err
	}

	order := "seq"
	if index == IndexKey {
		order = "record_key"
	}

	query := `
		SELECT payload
		FROM records
		WHERE store = ?
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, store, count, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, count)
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// scanRow decodes the payload column of a row from [sql.Rows]
func (r *RecordStore[T]) scanRow(rows *sql.Rows) (T, error) {
	var (
		item    T
		payload []byte
	)

	if err := rows.Scan(&payload); err != nil {
		return item, fmt.Errorf("failed to scan record: %w", err)
	}
	if err := json.Unmarshal(payload, &item); err != nil {
		return item, fmt.Errorf("failed to decode record: %w", err)
	}
	return item, nil
}
