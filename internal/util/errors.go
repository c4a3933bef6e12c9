package util

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap one of these so callers can branch
// with errors.Is without knowing every concrete error.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

var (
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrCourseNotFound      = fmt.Errorf("course %w", ErrNotFound)
	ErrSectionNotFound     = fmt.Errorf("section %w", ErrNotFound)
	ErrLessonNotFound      = fmt.Errorf("lesson %w", ErrNotFound)
	ErrQuizNotFound        = fmt.Errorf("quiz %w", ErrNotFound)
	ErrAttemptNotFound     = fmt.Errorf("attempt %w", ErrNotFound)
	ErrNotEnrolled         = fmt.Errorf("enrollment %w", ErrNotFound)
	ErrCertificateNotFound = fmt.Errorf("certificate %w", ErrNotFound)

	ErrAttemptLimitReached = fmt.Errorf("attempt limit reached: %w", ErrConflict)
	ErrConcurrentAttempt   = fmt.Errorf("concurrent submission for the same quiz: %w", ErrConflict)

	ErrQuizHasNoQuestions   = fmt.Errorf("quiz has no questions: %w", ErrInvalidState)
	ErrQuestionNotInQuiz    = fmt.Errorf("question does not belong to quiz: %w", ErrInvalidState)
	ErrCourseNotCompleted   = fmt.Errorf("course completion criteria not met: %w", ErrInvalidState)
	ErrEnrollmentCancelled  = fmt.Errorf("enrollment cancelled: %w", ErrInvalidState)
	ErrCertificateCollision = fmt.Errorf("could not allocate a unique certificate code: %w", ErrConflict)

	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError tags msg as a validation failure.
func ValidationError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}
