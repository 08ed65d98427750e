// Package taskstore persists conversion results so task and batch status
// can be queried after the fact. Two implementations are provided: an
// in-memory store for ephemeral deployments and tests, and a SQLite store
// for anything that must survive a restart.
package taskstore

import (
	"context"
	"errors"

	"github.com/hazyhaar/docmd/convert"
)

// ErrNotFound is returned when no task or batch matches the given id.
var ErrNotFound = errors.New("taskstore: not found")

// Store persists conversion outcomes. Put is an upsert keyed on the task
// or batch id; List returns newest first.
type Store interface {
	PutResult(ctx context.Context, res *convert.Result) error
	GetResult(ctx context.Context, taskID string) (*convert.Result, error)
	ListResults(ctx context.Context, limit int) ([]*convert.Result, error)

	PutBatch(ctx context.Context, batch *convert.BatchResult) error
	GetBatch(ctx context.Context, batchID string) (*convert.BatchResult, error)
	ListBatches(ctx context.Context, limit int) ([]*convert.BatchResult, error)

	Close() error
}
