package domain

import "time"

// ProgressRecord is the authoritative per-student gamification state.
// It is only ever mutated through the ledger's apply path.
type ProgressRecord struct {
	StudentID        string    `json:"studentId"`
	XP               int       `json:"xp"`
	Level            int       `json:"level"`
	LessonsCompleted []string  `json:"lessonsCompleted"`
	Badges           []string  `json:"badges"`
	ProcessedOpIDs   []string  `json:"processedOpIds"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewProgressRecord returns the default record created on a student's first event.
func NewProgressRecord(studentID string) ProgressRecord {
	return ProgressRecord{
		StudentID:        studentID,
		XP:               0,
		Level:            1,
		LessonsCompleted: []string{},
		Badges:           []string{},
		ProcessedOpIDs:   []string{},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (r ProgressRecord) Clone() ProgressRecord {
	out := r
	out.LessonsCompleted = append([]string(nil), r.LessonsCompleted...)
	out.Badges = append([]string(nil), r.Badges...)
	out.ProcessedOpIDs = append([]string(nil), r.ProcessedOpIDs...)
	return out
}

// HasLesson reports whether lessonID is already credited.
func (r ProgressRecord) HasLesson(lessonID string) bool {
	return contains(r.LessonsCompleted, lessonID)
}

// HasBadge reports whether badgeID has already been awarded.
func (r ProgressRecord) HasBadge(badgeID string) bool {
	return contains(r.Badges, badgeID)
}

// HasOpID reports whether opID was already applied.
func (r ProgressRecord) HasOpID(opID string) bool {
	return contains(r.ProcessedOpIDs, opID)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// QuestionType discriminates how a question is scored.
type QuestionType string

const (
	// QuestionChoice is a single-select question scored against CorrectIndex.
	QuestionChoice QuestionType = "choice"
	// QuestionShort is a free-text question; grading happens outside this core.
	QuestionShort QuestionType = "short"
)

// Question belongs to a quiz definition.
type Question struct {
	ID           string       `json:"id"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []string     `json:"options"`
	CorrectIndex int          `json:"correctIndex"`
	Marks        int          `json:"marks"` // defaults to 1 if zero
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Answer is one submitted response, keyed by question ID.
type Answer struct {
	QuestionID string `json:"questionId"`
	Index      int    `json:"index"`
}

// ScoreResult summarizes a scored answer set.
type ScoreResult struct {
	Score      int `json:"score"`
	TotalMarks int `json:"totalMarks"`
}

// Ratio returns score/totalMarks, or 0 when nothing was scorable.
func (s ScoreResult) Ratio() float64 {
	if s.TotalMarks <= 0 {
		return 0
	}
	return float64(s.Score) / float64(s.TotalMarks)
}

// Attempt is the immutable record of one quiz submission.
type Attempt struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	QuizID     string    `json:"quizId"`
	Answers    []Answer  `json:"answers"`
	Score      int       `json:"score"`
	TotalMarks int       `json:"totalMarks"`
	XPEarned   int       `json:"xpEarned"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Lesson is the minimal view of lesson content this core needs.
type Lesson struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BadgeCriteria is a declarative predicate over a progress snapshot.
// Supported types: "xp" (XP >= Threshold), "lessons" (completed count >= Threshold),
// "quiz_ratio" (event quiz ratio >= Ratio).
type BadgeCriteria struct {
	Type      string  `json:"type"`
	Threshold int     `json:"threshold,omitempty"`
	Ratio     float64 `json:"ratio,omitempty"`
}

// Badge is a named achievement with an award rule.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Criteria    BadgeCriteria `json:"criteria"`
}

// EventContext carries quiz-specific signals into badge evaluation.
type EventContext struct {
	QuizScore  int `json:"quizScore"`
	TotalMarks int `json:"totalMarks"`
}

// QuizRatio returns the scored fraction for ratio-based badge rules.
func (c EventContext) QuizRatio() float64 {
	if c.TotalMarks <= 0 {
		return 0
	}
	return float64(c.QuizScore) / float64(c.TotalMarks)
}
