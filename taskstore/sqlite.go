package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/docmd/convert"
	"github.com/hazyhaar/docmd/dbopen"
)

// Schema for the task tables. Results and batches are stored as JSON
// payloads with the fields needed for listing lifted into columns.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
	task_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	input_file TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);

CREATE TABLE IF NOT EXISTS batches (
	batch_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	total_files INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_created ON batches(created_at);
`

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite-backed store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("taskstore: %w", err)
	}
	return &SQLite{db: db}, nil
}

// NewSQLite wraps an existing database connection. The caller must have
// applied Schema.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) PutResult(ctx context.Context, res *convert.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("taskstore: marshal result: %w", err)
	}
	_, err = dbopen.Exec(ctx, s.db, `
		INSERT INTO tasks (task_id, status, input_file, created_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET status = excluded.status, payload = excluded.payload`,
		res.TaskID, string(res.Status), res.InputFile, res.CreatedAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("taskstore: put result: %w", err)
	}
	return nil
}

func (s *SQLite) GetResult(ctx context.Context, taskID string) (*convert.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM tasks WHERE task_id = ?`, taskID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("taskstore: get result: %w", err)
	}
	res := &convert.Result{}
	if err := json.Unmarshal([]byte(payload), res); err != nil {
		return nil, fmt.Errorf("taskstore: unmarshal result: %w", err)
	}
	return res, nil
}

func (s *SQLite) ListResults(ctx context.Context, limit int) ([]*convert.Result, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM tasks ORDER BY created_at DESC, task_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("taskstore: list results: %w", err)
	}
	defer rows.Close()

	var out []*convert.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("taskstore: scan result: %w", err)
		}
		res := &convert.Result{}
		if err := json.Unmarshal([]byte(payload), res); err != nil {
			return nil, fmt.Errorf("taskstore: unmarshal result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *SQLite) PutBatch(ctx context.Context, batch *convert.BatchResult) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("taskstore: marshal batch: %w", err)
	}
	_, err = dbopen.Exec(ctx, s.db, `
		INSERT INTO batches (batch_id, status, total_files, created_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET status = excluded.status, payload = excluded.payload`,
		batch.BatchID, string(batch.Status), batch.TotalFiles, batch.CreatedAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("taskstore: put batch: %w", err)
	}
	return nil
}

func (s *SQLite) GetBatch(ctx context.Context, batchID string) (*convert.BatchResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM batches WHERE batch_id = ?`, batchID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("taskstore: get batch: %w", err)
	}
	batch := &convert.BatchResult{}
	if err := json.Unmarshal([]byte(payload), batch); err != nil {
		return nil, fmt.Errorf("taskstore: unmarshal batch: %w", err)
	}
	return batch, nil
}

func (s *SQLite) ListBatches(ctx context.Context, limit int) ([]*convert.BatchResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM batches ORDER BY created_at DESC, batch_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("taskstore: list batches: %w", err)
	}
	defer rows.Close()

	var out []*convert.BatchResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("taskstore: scan batch: %w", err)
		}
		batch := &convert.BatchResult{}
		if err := json.Unmarshal([]byte(payload), batch); err != nil {
			return nil, fmt.Errorf("taskstore: unmarshal batch: %w", err)
		}
		out = append(out, batch)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
