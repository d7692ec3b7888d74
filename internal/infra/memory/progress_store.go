package memory

import (
	"context"
	"sync"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore with
// compare-and-swap semantics on the record version.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]domain.ProgressRecord
}

var _ app.ProgressStore = (*ProgressStore)(nil)

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]domain.ProgressRecord)}
}

func (s *ProgressStore) Get(_ context.Context, studentID string) (domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[studentID]
	if !ok {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	return record.Clone(), nil
}

func (s *ProgressStore) Save(_ context.Context, record domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[record.StudentID]
	if !ok {
		if record.Version != 1 {
			return domain.ErrConflict
		}
		s.records[record.StudentID] = record.Clone()
		return nil
	}
	if current.Version != record.Version-1 {
		return domain.ErrConflict
	}
	s.records[record.StudentID] = record.Clone()
	return nil
}
