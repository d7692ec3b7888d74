package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// AttemptStore persists immutable quiz attempts.
type AttemptStore struct {
	pool *pgxpool.Pool
}

var _ app.AttemptStore = (*AttemptStore)(nil)

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Insert(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO attempts (id, student_id, quiz_id, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		attempt.ID, attempt.StudentID, attempt.QuizID, data, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert attempt: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *AttemptStore) ListByStudent(ctx context.Context, studentID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM attempts WHERE student_id=$1 ORDER BY created_at`, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list attempts: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan attempt: %v", domain.ErrStorage, err)
		}
		var attempt domain.Attempt
		if err := json.Unmarshal(raw, &attempt); err != nil {
			return nil, fmt.Errorf("unmarshal attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list attempts: %v", domain.ErrStorage, err)
	}
	return attempts, nil
}

func (s *AttemptStore) HasAttempt(ctx context.Context, studentID, quizID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attempts WHERE student_id=$1 AND quiz_id=$2)`,
		studentID, quizID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check attempt: %v", domain.ErrStorage, err)
	}
	return exists, nil
}
