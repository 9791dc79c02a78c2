// Package eligibility decides whether a user may start or resume an exam.
package eligibility

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

// Action is the single next step the caller should take.
type Action string

const (
	ActionStart  Action = "start"
	ActionResume Action = "resume"
	ActionReject Action = "reject"
)

// Rejection reasons, in the order they are checked.
const (
	ReasonNotAvailable      = "exam not currently available"
	ReasonNotRegistered     = "not registered"
	ReasonMaxAttempts       = "maximum attempts reached"
	ReasonRetakeDelayActive = "retake delay active"
)

// Input is the state the gate evaluates. Exam must be non-nil; Registration
// and ActiveAttempt are nil when absent.
type Input struct {
	Exam          *model.Exam
	Registration  *model.ExamRegistration
	AttemptCount  int
	ActiveAttempt *model.ExamAttempt
}

// Decision is the outcome of Evaluate.
type Decision struct {
	CanStart          bool       `json:"can_start"`
	Action            Action     `json:"action"`
	Reason            string     `json:"reason,omitempty"`
	ExistingAttemptID *uuid.UUID `json:"existing_attempt_id,omitempty"`
	RetryAfter        *time.Time `json:"retry_after,omitempty"`
}

// Evaluate applies the eligibility rules at now. The first failing check
// determines the rejection reason. An active attempt is resumed ahead of the
// attempt-limit and retake-delay checks since resuming never consumes a slot.
func Evaluate(in Input, now time.Time) Decision {
	exam := in.Exam
	if exam.Status != model.ExamStatusLive || !exam.WindowContains(now) {
		return reject(ReasonNotAvailable, nil)
	}

	reg := in.Registration
	if reg == nil || reg.Status != model.RegistrationApproved {
		return reject(ReasonNotRegistered, nil)
	}

	if a := in.ActiveAttempt; a != nil && !a.Status.IsTerminal() {
		id := a.ID
		return Decision{CanStart: true, Action: ActionResume, ExistingAttemptID: &id}
	}

	if exam.MaxAttempts > 0 && in.AttemptCount >= exam.MaxAttempts {
		return reject(ReasonMaxAttempts, nil)
	}

	if exam.RetakeDelayMinutes > 0 && reg.LastAttemptAt != nil {
		next := reg.LastAttemptAt.Add(exam.RetakeDelay())
		if now.Before(next) {
			return reject(ReasonRetakeDelayActive, &next)
		}
	}

	return Decision{CanStart: true, Action: ActionStart}
}

func reject(reason string, retryAfter *time.Time) Decision {
	return Decision{Action: ActionReject, Reason: reason, RetryAfter: retryAfter}
}
