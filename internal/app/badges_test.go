package app

import (
	"context"
	"testing"

	"lms-progress-service/internal/domain"
)

type staticCatalog []domain.Badge

func (c staticCatalog) ListBadges(_ context.Context) ([]domain.Badge, error) {
	return c, nil
}

func TestEvaluateThresholds(t *testing.T) {
	evaluator := NewRuleEvaluator(staticCatalog{
		{ID: "xp-100", Criteria: domain.BadgeCriteria{Type: "xp", Threshold: 100}},
		{ID: "lessons-2", Criteria: domain.BadgeCriteria{Type: "lessons", Threshold: 2}},
	})

	snapshot := domain.NewProgressRecord("s1")
	snapshot.XP = 120
	snapshot.LessonsCompleted = []string{"l1"}

	earned, err := evaluator.Evaluate(context.Background(), snapshot, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(earned) != 1 || earned[0] != "xp-100" {
		t.Fatalf("expected only xp-100, got %v", earned)
	}
}

func TestEvaluateNeverReoffersBadges(t *testing.T) {
	evaluator := NewRuleEvaluator(staticCatalog{
		{ID: "xp-50", Criteria: domain.BadgeCriteria{Type: "xp", Threshold: 50}},
	})

	snapshot := domain.NewProgressRecord("s1")
	snapshot.XP = 200
	snapshot.Badges = []string{"xp-50"}

	earned, err := evaluator.Evaluate(context.Background(), snapshot, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(earned) != 0 {
		t.Fatalf("already-held badge must not be re-offered, got %v", earned)
	}
}

func TestEvaluateQuizRatio(t *testing.T) {
	evaluator := NewRuleEvaluator(staticCatalog{
		{ID: "ace", Criteria: domain.BadgeCriteria{Type: "quiz_ratio", Ratio: 0.8}},
	})

	snapshot := domain.NewProgressRecord("s1")

	// No event context: rule does not fire.
	earned, err := evaluator.Evaluate(context.Background(), snapshot, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(earned) != 0 {
		t.Fatalf("quiz_ratio must not fire without context, got %v", earned)
	}

	earned, err = evaluator.Evaluate(context.Background(), snapshot, &domain.EventContext{QuizScore: 9, TotalMarks: 10})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(earned) != 1 || earned[0] != "ace" {
		t.Fatalf("expected ace badge at 90%%, got %v", earned)
	}

	earned, _ = evaluator.Evaluate(context.Background(), snapshot, &domain.EventContext{QuizScore: 5, TotalMarks: 10})
	if len(earned) != 0 {
		t.Fatalf("50%% must not earn ace, got %v", earned)
	}
}

func TestEvaluateSkipsMalformedCriteria(t *testing.T) {
	evaluator := NewRuleEvaluator(staticCatalog{
		{ID: "broken", Criteria: domain.BadgeCriteria{Type: "mystery"}},
		{ID: "zero", Criteria: domain.BadgeCriteria{Type: "xp"}},
		{ID: "ok", Criteria: domain.BadgeCriteria{Type: "xp", Threshold: 10}},
	})

	snapshot := domain.NewProgressRecord("s1")
	snapshot.XP = 10

	earned, err := evaluator.Evaluate(context.Background(), snapshot, nil)
	if err != nil {
		t.Fatalf("malformed rules must not fail evaluation: %v", err)
	}
	if len(earned) != 1 || earned[0] != "ok" {
		t.Fatalf("expected only the valid rule to award, got %v", earned)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	evaluator := NewRuleEvaluator(staticCatalog{
		{ID: "xp-10", Criteria: domain.BadgeCriteria{Type: "xp", Threshold: 10}},
		{ID: "lessons-1", Criteria: domain.BadgeCriteria{Type: "lessons", Threshold: 1}},
	})

	snapshot := domain.NewProgressRecord("s1")
	snapshot.XP = 15
	snapshot.LessonsCompleted = []string{"l1"}

	first, err := evaluator.Evaluate(context.Background(), snapshot, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := evaluator.Evaluate(context.Background(), snapshot, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeated evaluation differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated evaluation differs: %v vs %v", first, second)
		}
	}
}
