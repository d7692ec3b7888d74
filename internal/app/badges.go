package app

import (
	"context"
	"fmt"
	"log"

	"lms-progress-service/internal/domain"
)

// BadgeCatalog lists award rules (from cache/backing store).
type BadgeCatalog interface {
	ListBadges(ctx context.Context) ([]domain.Badge, error)
}

// BadgeEvaluator decides which badges a post-mutation snapshot has newly earned.
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, snapshot domain.ProgressRecord, eventCtx *domain.EventContext) ([]string, error)
}

// RuleEvaluator evaluates declarative badge criteria against a snapshot. It is
// side-effect free: persisting awarded badges is the ledger's job, and badges
// already present in the snapshot are never offered again, so redundant calls
// are harmless.
type RuleEvaluator struct {
	catalog BadgeCatalog
}

func NewRuleEvaluator(catalog BadgeCatalog) *RuleEvaluator {
	return &RuleEvaluator{catalog: catalog}
}

func (e *RuleEvaluator) Evaluate(ctx context.Context, snapshot domain.ProgressRecord, eventCtx *domain.EventContext) ([]string, error) {
	badges, err := e.catalog.ListBadges(ctx)
	if err != nil {
		return nil, err
	}

	var earned []string
	for _, badge := range badges {
		if snapshot.HasBadge(badge.ID) {
			continue
		}
		met, err := criteriaMet(badge.Criteria, snapshot, eventCtx)
		if err != nil {
			// A broken rule must not block the commit; skip it.
			log.Printf("badge %s: skipping criteria: %v", badge.ID, err)
			continue
		}
		if met {
			earned = append(earned, badge.ID)
		}
	}
	return earned, nil
}

func criteriaMet(c domain.BadgeCriteria, snapshot domain.ProgressRecord, eventCtx *domain.EventContext) (bool, error) {
	switch c.Type {
	case "xp":
		if c.Threshold <= 0 {
			return false, fmt.Errorf("xp criteria requires a positive threshold")
		}
		return snapshot.XP >= c.Threshold, nil
	case "lessons":
		if c.Threshold <= 0 {
			return false, fmt.Errorf("lessons criteria requires a positive threshold")
		}
		return len(snapshot.LessonsCompleted) >= c.Threshold, nil
	case "quiz_ratio":
		if c.Ratio <= 0 || c.Ratio > 1 {
			return false, fmt.Errorf("quiz_ratio criteria requires a ratio in (0,1]")
		}
		if eventCtx == nil {
			// Not a quiz event; the rule simply does not fire.
			return false, nil
		}
		return eventCtx.QuizRatio() >= c.Ratio, nil
	default:
		return false, fmt.Errorf("unknown criteria type %q", c.Type)
	}
}
