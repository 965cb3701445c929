// Package memory keeps the upload history in process memory.
// Nothing survives a restart and the log grows without bound.
package memory

import (
	"context"
	"sync"

	"shotbrain/internal/model"
	"shotbrain/internal/repository"
)

// UploadMemory is a mutex-guarded slice of records.
type UploadMemory struct {
	mu      sync.RWMutex
	records []model.UploadRecord
}

// NewUploadMemory returns an empty history.
func NewUploadMemory() *UploadMemory {
	return &UploadMemory{}
}

var _ repository.UploadRepository = (*UploadMemory)(nil)

func (m *UploadMemory) Append(_ context.Context, rec *model.UploadRecord) error {
	m.mu.Lock()
	m.records = append(m.records, *rec)
	m.mu.Unlock()
	return nil
}

func (m *UploadMemory) ListRecent(_ context.Context, n int) (*repository.PageResult[model.UploadRecord], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.records)
	if n > total {
		n = total
	}
	items := make([]model.UploadRecord, 0, max(n, 0))
	for i := total - 1; i >= total-n; i-- {
		items = append(items, m.records[i])
	}
	return &repository.PageResult[model.UploadRecord]{Items: items, Total: total}, nil
}
