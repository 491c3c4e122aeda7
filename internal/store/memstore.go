package store

import (
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu        sync.Mutex
	batches   []*Batch
	stageRuns []*StageRun
	nextID    int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) RecordBatch(b *Batch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	cp.ID = m.nextID
	m.nextID++
	if cp.StartedAt == "" {
		cp.StartedAt = nowUTC()
	}
	m.batches = append(m.batches, &cp)
	b.ID = cp.ID
	return cp.ID, nil
}

func (m *MemStore) FinishBatch(id int64, completed, failed int, bytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ID == id {
			b.Completed = completed
			b.Failed = failed
			b.Bytes = bytes
			b.FinishedAt = nowUTC()
			return nil
		}
	}
	return fmt.Errorf("batch %d not found", id)
}

func (m *MemStore) ListBatches(limit int) ([]*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Batch, 0, len(m.batches))
	for i := len(m.batches) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *m.batches[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) RecordStageRun(r *StageRun) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.ID = m.nextID
	m.nextID++
	if cp.CreatedAt == "" {
		cp.CreatedAt = nowUTC()
	}
	m.stageRuns = append(m.stageRuns, &cp)
	r.ID = cp.ID
	return cp.ID, nil
}

func (m *MemStore) ListStageRuns(limit int) ([]*StageRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*StageRun, 0, len(m.stageRuns))
	for i := len(m.stageRuns) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *m.stageRuns[i]
		out = append(out, &cp)
	}
	return out, nil
}
