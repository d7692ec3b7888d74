package memory

import (
	"context"

	"lms-progress-service/internal/domain"
)

// StaticLessonCatalog serves lessons from an in-memory map (useful for tests/demos).
type StaticLessonCatalog struct {
	lessons map[string]domain.Lesson
}

func NewStaticLessonCatalog(lessons map[string]domain.Lesson) *StaticLessonCatalog {
	return &StaticLessonCatalog{lessons: lessons}
}

func (c *StaticLessonCatalog) GetLesson(_ context.Context, lessonID string) (domain.Lesson, error) {
	if lesson, ok := c.lessons[lessonID]; ok {
		return lesson, nil
	}
	return domain.Lesson{}, domain.ErrLessonNotFound
}

// StaticQuizLoader is a simple loader backed by an in-memory map.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// StaticBadgeCatalog serves the badge rule set from memory.
type StaticBadgeCatalog struct {
	badges []domain.Badge
}

func NewStaticBadgeCatalog(badges []domain.Badge) *StaticBadgeCatalog {
	return &StaticBadgeCatalog{badges: badges}
}

func (c *StaticBadgeCatalog) ListBadges(_ context.Context) ([]domain.Badge, error) {
	return append([]domain.Badge(nil), c.badges...), nil
}
