package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// ProgressStore persists progress records as JSONB rows with a version column
// used for optimistic concurrency.
type ProgressStore struct {
	pool *pgxpool.Pool
}

var _ app.ProgressStore = (*ProgressStore)(nil)

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) Get(ctx context.Context, studentID string) (domain.ProgressRecord, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM progress WHERE student_id=$1`, studentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("%w: load progress: %v", domain.ErrStorage, err)
	}
	var record domain.ProgressRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return record, nil
}

// Save commits a record whose Version must be exactly one ahead of the stored
// row (or 1 for a new student). A zero-row outcome means a concurrent writer
// won; the caller retries the whole apply.
func (s *ProgressStore) Save(ctx context.Context, record domain.ProgressRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	if record.Version == 1 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO progress (student_id, data, version) VALUES ($1, $2, 1) ON CONFLICT (student_id) DO NOTHING`,
			record.StudentID, data)
		if err != nil {
			return fmt.Errorf("%w: insert progress: %v", domain.ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConflict
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE progress SET data=$2, version=$3 WHERE student_id=$1 AND version=$3-1`,
		record.StudentID, data, record.Version)
	if err != nil {
		return fmt.Errorf("%w: update progress: %v", domain.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}
