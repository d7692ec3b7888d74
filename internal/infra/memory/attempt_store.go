package memory

import (
	"context"
	"sync"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// AttemptStore keeps quiz attempts in memory, ordered by insertion.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string][]domain.Attempt
}

var _ app.AttemptStore = (*AttemptStore)(nil)

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string][]domain.Attempt)}
}

func (s *AttemptStore) Insert(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.StudentID] = append(s.attempts[attempt.StudentID], attempt)
	return nil
}

func (s *AttemptStore) ListByStudent(_ context.Context, studentID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Attempt(nil), s.attempts[studentID]...), nil
}

func (s *AttemptStore) HasAttempt(_ context.Context, studentID, quizID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, attempt := range s.attempts[studentID] {
		if attempt.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}
