package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states.
type AttemptStatus string

const (
	AttemptNotStarted    AttemptStatus = "not_started"
	AttemptInProgress    AttemptStatus = "in_progress"
	AttemptSubmitted     AttemptStatus = "submitted"
	AttemptTimedOut      AttemptStatus = "timed_out"
	AttemptAutoSubmitted AttemptStatus = "auto_submitted"
	AttemptReviewPending AttemptStatus = "review_pending"
	AttemptReviewed      AttemptStatus = "reviewed"
	AttemptDisqualified  AttemptStatus = "disqualified"
)

// IsTerminal reports whether no further answer writes are accepted.
func (s AttemptStatus) IsTerminal() bool {
	return s != AttemptNotStarted && s != AttemptInProgress
}

var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptNotStarted:    {AttemptInProgress, AttemptDisqualified},
	AttemptInProgress:    {AttemptSubmitted, AttemptTimedOut, AttemptAutoSubmitted, AttemptDisqualified},
	AttemptSubmitted:     {AttemptReviewPending},
	AttemptTimedOut:      {AttemptReviewPending},
	AttemptAutoSubmitted: {AttemptReviewPending},
	AttemptReviewPending: {AttemptReviewed},
}

// CanTransition reports whether the attempt state machine allows from -> to.
func CanTransition(from, to AttemptStatus) bool {
	for _, s := range attemptTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ResultStatus is the pass/fail outcome of a scored attempt.
type ResultStatus string

const (
	ResultPass ResultStatus = "pass"
	ResultFail ResultStatus = "fail"
)

// AttemptScore holds the aggregate fields computed when an attempt is finalized.
type AttemptScore struct {
	Correct       int          `json:"correct"`
	Incorrect     int          `json:"incorrect"`
	Skipped       int          `json:"skipped"`
	TotalMarks    float64      `json:"total_marks"`
	ObtainedMarks float64      `json:"obtained_marks"`
	NegativeMarks float64      `json:"negative_marks"`
	FinalScore    float64      `json:"final_score"`
	Percentage    float64      `json:"percentage"`
	Result        ResultStatus `json:"result"`
}

// ExamAttempt is one attempt instance of a user at an exam.
type ExamAttempt struct {
	ID               uuid.UUID     `json:"id"`
	ExamID           uuid.UUID     `json:"exam_id"`
	UserID           int           `json:"user_id"`
	RegistrationID   uuid.UUID     `json:"registration_id"`
	QuestionPaperID  uuid.UUID     `json:"question_paper_id"`
	Status           AttemptStatus `json:"status"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	ScheduledEndAt   *time.Time    `json:"scheduled_end_at,omitempty"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`
	Score            *AttemptScore `json:"score,omitempty"`
	// Rank and Percentile are filled in by the aggregation service.
	Rank       *int      `json:"rank,omitempty"`
	Percentile *float64  `json:"percentile,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsExpired reports whether the attempt's time allowance is over at t.
func (a *ExamAttempt) IsExpired(t time.Time) bool {
	return a.ScheduledEndAt != nil && t.After(*a.ScheduledEndAt)
}

// TransitionRequest is the admin payload for moving an attempt along the state machine.
type TransitionRequest struct {
	Status string `json:"status" binding:"required,oneof=review_pending reviewed disqualified"`
}
