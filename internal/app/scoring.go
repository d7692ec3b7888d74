package app

import (
	"math"

	"lms-progress-service/internal/domain"
)

// ScoreAttempt grades a submitted answer set against a quiz definition.
// Unknown question IDs in the submission are silently ignored, and each
// question is counted once no matter how many answers reference it (the first
// answer wins). Only choice questions are auto-scored; short answers wait for
// external grading and contribute zero toward the score.
func ScoreAttempt(quiz domain.Quiz, answers []domain.Answer) domain.ScoreResult {
	questions := make(map[string]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q
	}

	seen := make(map[string]struct{}, len(answers))
	var result domain.ScoreResult
	for _, ans := range answers {
		q, ok := questions[ans.QuestionID]
		if !ok {
			continue
		}
		if _, dup := seen[ans.QuestionID]; dup {
			continue
		}
		seen[ans.QuestionID] = struct{}{}

		marks := q.Marks
		if marks == 0 {
			marks = 1
		}
		result.TotalMarks += marks

		if q.Type == domain.QuestionChoice && ans.Index == q.CorrectIndex {
			result.Score += marks
		}
	}
	return result
}

// XPForScore converts a score into XP, scaled so a perfect quiz earns maxXP.
func XPForScore(result domain.ScoreResult, maxXP int) int {
	if result.TotalMarks <= 0 || maxXP <= 0 {
		return 0
	}
	return int(math.Round(result.Ratio() * float64(maxXP)))
}
