package service

import (
	"errors"
	"time"

	"github.com/stemsi/exstem-engine/internal/eligibility"
	"github.com/stemsi/exstem-engine/internal/materialize"
)

// Lifecycle errors. Handlers map them to HTTP statuses.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrNotEligible           = errors.New("not eligible")
	ErrAttemptNotActive      = errors.New("attempt is not active")
	ErrInsufficientQuestions = materialize.ErrInsufficientQuestions
	ErrConflictRace          = errors.New("concurrent attempt creation")
	ErrScoring               = errors.New("attempt could not be scored")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidAnswer         = errors.New("invalid answer option")
	ErrInvalidEntryToken     = errors.New("invalid entry token")
	ErrAlreadyRegistered     = errors.New("already registered")
	ErrPaperInUse            = errors.New("question paper has active attempts or recorded answers")
	ErrNoCriteria            = errors.New("question paper has no generation criteria")
)

// EligibilityError carries the reason an exam cannot be started.
type EligibilityError struct {
	Reason     string
	RetryAfter *time.Time
}

func (e *EligibilityError) Error() string { return e.Reason }

// Unwrap lets errors.Is match ErrForbidden for registration problems and
// ErrNotEligible for everything else.
func (e *EligibilityError) Unwrap() error {
	if e.Reason == eligibility.ReasonNotRegistered {
		return ErrForbidden
	}
	return ErrNotEligible
}
