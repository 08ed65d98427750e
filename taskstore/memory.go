package taskstore

import (
	"context"
	"sync"

	"github.com/hazyhaar/docmd/convert"
)

// Memory is an in-process Store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	results map[string]*convert.Result
	batches map[string]*convert.BatchResult

	// insertion order, oldest first
	resultOrder []string
	batchOrder  []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		results: make(map[string]*convert.Result),
		batches: make(map[string]*convert.BatchResult),
	}
}

func (m *Memory) PutResult(_ context.Context, res *convert.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[res.TaskID]; !ok {
		m.resultOrder = append(m.resultOrder, res.TaskID)
	}
	m.results[res.TaskID] = res
	return nil
}

func (m *Memory) GetResult(_ context.Context, taskID string) (*convert.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.results[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

func (m *Memory) ListResults(_ context.Context, limit int) ([]*convert.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*convert.Result, 0, len(m.resultOrder))
	for i := len(m.resultOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.results[m.resultOrder[i]])
	}
	return out, nil
}

func (m *Memory) PutBatch(_ context.Context, batch *convert.BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[batch.BatchID]; !ok {
		m.batchOrder = append(m.batchOrder, batch.BatchID)
	}
	m.batches[batch.BatchID] = batch
	return nil
}

func (m *Memory) GetBatch(_ context.Context, batchID string) (*convert.BatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	batch, ok := m.batches[batchID]
	if !ok {
		return nil, ErrNotFound
	}
	return batch, nil
}

func (m *Memory) ListBatches(_ context.Context, limit int) ([]*convert.BatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*convert.BatchResult, 0, len(m.batchOrder))
	for i := len(m.batchOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.batches[m.batchOrder[i]])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
