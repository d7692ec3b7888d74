package domain

import "errors"

var (
	// ErrValidation is returned for missing or malformed input; no state changes.
	ErrValidation = errors.New("invalid input")
	// ErrLessonNotFound indicates a referenced lesson does not exist.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrProgressNotFound is returned when a student has no progress record yet.
	ErrProgressNotFound = errors.New("progress not found")
	// ErrConflict signals an optimistic-concurrency version mismatch; the
	// whole apply is safe to retry.
	ErrConflict = errors.New("progress record version conflict")
	// ErrAttemptExists is returned when resubmission is disabled and the
	// student already has an attempt for the quiz.
	ErrAttemptExists = errors.New("attempt already exists for quiz")
	// ErrStorage wraps persistence failures; callers may retry since every
	// mutation is idempotent when an opId is supplied.
	ErrStorage = errors.New("storage unavailable")
)
