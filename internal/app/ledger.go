package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"lms-progress-service/internal/domain"
)

// ProgressStore persists progress records with version-checked writes.
// Save must reject a record whose Version is not exactly one ahead of the
// stored version (or 1 for a fresh student) with domain.ErrConflict.
type ProgressStore interface {
	Get(ctx context.Context, studentID string) (domain.ProgressRecord, error)
	Save(ctx context.Context, record domain.ProgressRecord) error
}

// LessonCatalog resolves lesson references (from cache/backing store).
type LessonCatalog interface {
	GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error)
}

// QuizCatalog loads quiz definitions (from cache/backing store).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore persists immutable quiz attempts.
type AttemptStore interface {
	Insert(ctx context.Context, attempt domain.Attempt) error
	ListByStudent(ctx context.Context, studentID string) ([]domain.Attempt, error)
	HasAttempt(ctx context.Context, studentID, quizID string) (bool, error)
}

// Projector mirrors {xp, level} into a read-optimized identity record after a
// successful commit. Best-effort only; the ledger remains the source of truth.
type Projector interface {
	SetXPAndLevel(ctx context.Context, studentID string, xp, level int) error
}

// Options tune the ledger's gamification constants and retry behavior.
type Options struct {
	// LessonXP is the default grant for a lesson-complete event with no
	// explicit delta. Applied by callers, not by ApplyEvent itself.
	LessonXP int
	// QuizMaxXP is the XP a perfect quiz earns.
	QuizMaxXP int
	// AllowMultipleAttempts permits repeated attempts per (student, quiz).
	AllowMultipleAttempts bool
	// OpIDRetention caps processed opIds kept per record; 0 keeps all.
	OpIDRetention int
	// ApplyRetries bounds the optimistic-concurrency retry loop.
	ApplyRetries int
}

const (
	defaultLessonXP     = 10
	defaultQuizMaxXP    = 20
	defaultApplyRetries = 3

	projectionTimeout = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.LessonXP <= 0 {
		o.LessonXP = defaultLessonXP
	}
	if o.QuizMaxXP <= 0 {
		o.QuizMaxXP = defaultQuizMaxXP
	}
	if o.ApplyRetries <= 0 {
		o.ApplyRetries = defaultApplyRetries
	}
	if o.OpIDRetention < 0 {
		o.OpIDRetention = 0
	}
	return o
}

// LedgerService is the single authoritative mutation surface for per-student
// progress. Every XP, lesson, and badge change funnels through ApplyEvent.
type LedgerService struct {
	progress  ProgressStore
	lessons   LessonCatalog
	quizzes   QuizCatalog
	attempts  AttemptStore
	badges    BadgeEvaluator
	projector Projector
	opts      Options
	clock     func() time.Time
	newID     func() string
}

func NewLedgerService(progress ProgressStore, lessons LessonCatalog, quizzes QuizCatalog, attempts AttemptStore, badges BadgeEvaluator, projector Projector, opts Options) *LedgerService {
	return &LedgerService{
		progress:  progress,
		lessons:   lessons,
		quizzes:   quizzes,
		attempts:  attempts,
		badges:    badges,
		projector: projector,
		opts:      opts.withDefaults(),
		clock:     time.Now,
		newID:     uuid.NewString,
	}
}

// NewLedgerServiceWithClock is test-only for deterministic timestamps and IDs.
func NewLedgerServiceWithClock(progress ProgressStore, lessons LessonCatalog, quizzes QuizCatalog, attempts AttemptStore, badges BadgeEvaluator, projector Projector, opts Options, now func() time.Time, newID func() string) *LedgerService {
	svc := NewLedgerService(progress, lessons, quizzes, attempts, badges, projector, opts)
	if now != nil {
		svc.clock = now
	}
	if newID != nil {
		svc.newID = newID
	}
	return svc
}

// Options exposes the effective (defaulted) configuration.
func (s *LedgerService) Options() Options {
	return s.opts
}

// ApplyEventInput describes one learning event. OpID is a client-supplied
// idempotency key; deliveries are at-least-once, so retries carry the same one.
type ApplyEventInput struct {
	StudentID string
	OpID      string
	XPDelta   int
	LessonID  string
	Context   *domain.EventContext
}

// ApplyResult reports the post-event record. Applied is false when the opId
// was already processed, which is a successful no-op rather than an error.
type ApplyResult struct {
	Record    domain.ProgressRecord
	Applied   bool
	NewBadges []string
}

// ApplyEvent folds one event into the student's progress record.
// The opId membership check and the mutation it guards commit as one
// version-checked unit; on domain.ErrConflict the whole read-evaluate-write
// cycle is retried up to the configured bound.
func (s *LedgerService) ApplyEvent(ctx context.Context, input ApplyEventInput) (ApplyResult, error) {
	if input.StudentID == "" {
		return ApplyResult{}, domain.ErrValidation
	}
	if input.XPDelta < 0 {
		// There is no XP-removal operation; xp is monotonic.
		return ApplyResult{}, domain.ErrValidation
	}
	if input.XPDelta == 0 && input.LessonID == "" && input.Context == nil {
		return ApplyResult{}, domain.ErrValidation
	}
	if input.LessonID != "" {
		if _, err := s.lessons.GetLesson(ctx, input.LessonID); err != nil {
			return ApplyResult{}, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < s.opts.ApplyRetries; attempt++ {
		if attempt > 0 && errors.Is(lastErr, domain.ErrStorage) {
			sleepBackoff(ctx, attempt)
		}

		record, err := s.progress.Get(ctx, input.StudentID)
		if errors.Is(err, domain.ErrProgressNotFound) {
			record = domain.NewProgressRecord(input.StudentID)
		} else if err != nil {
			lastErr = err
			if errors.Is(err, domain.ErrStorage) {
				continue
			}
			return ApplyResult{}, err
		}

		if input.OpID != "" && record.HasOpID(input.OpID) {
			return ApplyResult{Record: record, Applied: false}, nil
		}

		next := record.Clone()
		if input.LessonID != "" && !next.HasLesson(input.LessonID) {
			next.LessonsCompleted = append(next.LessonsCompleted, input.LessonID)
		}
		next.XP += input.XPDelta
		next.Level = domain.LevelFor(next.XP)
		next.UpdatedAt = s.clock()

		newBadges := s.evaluateBadges(ctx, next, input.Context)
		next.Badges = append(next.Badges, newBadges...)

		if input.OpID != "" {
			next.ProcessedOpIDs = append(next.ProcessedOpIDs, input.OpID)
			next.ProcessedOpIDs = pruneOpIDs(next.ProcessedOpIDs, s.opts.OpIDRetention)
		}
		next.Version = record.Version + 1

		if err := s.progress.Save(ctx, next); err != nil {
			lastErr = err
			if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrStorage) {
				continue
			}
			return ApplyResult{}, err
		}

		s.project(next)
		return ApplyResult{Record: next, Applied: true, NewBadges: newBadges}, nil
	}
	return ApplyResult{}, lastErr
}

// QuizResult bundles the stored attempt with the updated progress.
type QuizResult struct {
	Attempt   domain.Attempt
	Record    domain.ProgressRecord
	NewBadges []string
}

// SubmitQuizAttempt scores a submission, records an immutable attempt, and
// credits the earned XP through ApplyEvent so badge rules see the quiz ratio.
func (s *LedgerService) SubmitQuizAttempt(ctx context.Context, studentID, quizID string, answers []domain.Answer) (QuizResult, error) {
	if studentID == "" || quizID == "" {
		return QuizResult{}, domain.ErrValidation
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizResult{}, err
	}

	if !s.opts.AllowMultipleAttempts {
		exists, err := s.attempts.HasAttempt(ctx, studentID, quizID)
		if err != nil {
			return QuizResult{}, err
		}
		if exists {
			return QuizResult{}, domain.ErrAttemptExists
		}
	}

	score := ScoreAttempt(quiz, answers)
	xpEarned := XPForScore(score, s.opts.QuizMaxXP)

	attempt := domain.Attempt{
		ID:         s.newID(),
		StudentID:  studentID,
		QuizID:     quizID,
		Answers:    append([]domain.Answer(nil), answers...),
		Score:      score.Score,
		TotalMarks: score.TotalMarks,
		XPEarned:   xpEarned,
		CreatedAt:  s.clock(),
	}
	if err := s.attempts.Insert(ctx, attempt); err != nil {
		return QuizResult{}, err
	}

	applied, err := s.ApplyEvent(ctx, ApplyEventInput{
		StudentID: studentID,
		XPDelta:   xpEarned,
		Context:   &domain.EventContext{QuizScore: score.Score, TotalMarks: score.TotalMarks},
	})
	if err != nil {
		return QuizResult{}, err
	}

	return QuizResult{Attempt: attempt, Record: applied.Record, NewBadges: applied.NewBadges}, nil
}

// GetProgress returns the current record, or domain.ErrProgressNotFound for a
// student without any applied events.
func (s *LedgerService) GetProgress(ctx context.Context, studentID string) (domain.ProgressRecord, error) {
	if studentID == "" {
		return domain.ProgressRecord{}, domain.ErrValidation
	}
	return s.progress.Get(ctx, studentID)
}

// ListAttempts returns the student's quiz attempts, newest last.
func (s *LedgerService) ListAttempts(ctx context.Context, studentID string) ([]domain.Attempt, error) {
	if studentID == "" {
		return nil, domain.ErrValidation
	}
	return s.attempts.ListByStudent(ctx, studentID)
}

// evaluateBadges never fails the commit: evaluator errors degrade to "no
// badges awarded this call".
func (s *LedgerService) evaluateBadges(ctx context.Context, snapshot domain.ProgressRecord, eventCtx *domain.EventContext) []string {
	if s.badges == nil {
		return nil
	}
	earned, err := s.badges.Evaluate(ctx, snapshot, eventCtx)
	if err != nil {
		log.Printf("badge evaluation for %s failed: %v", snapshot.StudentID, err)
		return nil
	}
	return earned
}

// project mirrors xp/level after a commit. The write is fire-and-forget: a
// mirror failure never rolls back or fails the ledger operation.
func (s *LedgerService) project(record domain.ProgressRecord) {
	if s.projector == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), projectionTimeout)
		defer cancel()
		if err := s.projector.SetXPAndLevel(ctx, record.StudentID, record.XP, record.Level); err != nil {
			log.Printf("projection write for %s failed: %v", record.StudentID, err)
		}
	}()
}

// pruneOpIDs keeps the newest limit entries. In-flight retries carry recent
// opIds, so dropping the oldest does not weaken the idempotency guarantee.
func pruneOpIDs(opIDs []string, limit int) []string {
	if limit <= 0 || len(opIDs) <= limit {
		return opIDs
	}
	return append([]string(nil), opIDs[len(opIDs)-limit:]...)
}

func sleepBackoff(ctx context.Context, attempt int) {
	delay := time.Duration(attempt) * 50 * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
