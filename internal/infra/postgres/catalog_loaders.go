package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lms-progress-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load quiz: %v", domain.ErrStorage, err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// LessonCatalog resolves lesson rows; the ledger only needs existence and a title.
type LessonCatalog struct {
	pool *pgxpool.Pool
}

func NewLessonCatalog(pool *pgxpool.Pool) *LessonCatalog {
	return &LessonCatalog{pool: pool}
}

func (c *LessonCatalog) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT data FROM lessons WHERE id=$1`, lessonID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("%w: load lesson: %v", domain.ErrStorage, err)
	}
	var lesson domain.Lesson
	if err := json.Unmarshal(raw, &lesson); err != nil {
		return domain.Lesson{}, fmt.Errorf("unmarshal lesson: %w", err)
	}
	return lesson, nil
}

// BadgeCatalog lists the badge rule set.
type BadgeCatalog struct {
	pool *pgxpool.Pool
}

func NewBadgeCatalog(pool *pgxpool.Pool) *BadgeCatalog {
	return &BadgeCatalog{pool: pool}
}

func (c *BadgeCatalog) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	rows, err := c.pool.Query(ctx, `SELECT data FROM badges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list badges: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var badges []domain.Badge
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan badge: %v", domain.ErrStorage, err)
		}
		var badge domain.Badge
		if err := json.Unmarshal(raw, &badge); err != nil {
			return nil, fmt.Errorf("unmarshal badge: %w", err)
		}
		badges = append(badges, badge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list badges: %v", domain.ErrStorage, err)
	}
	return badges, nil
}
