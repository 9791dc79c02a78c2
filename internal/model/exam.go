package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft      ExamStatus = "draft"
	ExamStatusScheduled  ExamStatus = "scheduled"
	ExamStatusLive       ExamStatus = "live"
	ExamStatusInProgress ExamStatus = "in_progress"
	ExamStatusCompleted  ExamStatus = "completed"
	ExamStatusCancelled  ExamStatus = "cancelled"
	ExamStatusArchived   ExamStatus = "archived"
)

// AccessType controls how a user obtains an approved registration.
type AccessType string

const (
	AccessTypeOpen     AccessType = "open"
	AccessTypeToken    AccessType = "token"
	AccessTypeApproval AccessType = "approval"
)

// Exam represents a schedulable assessment. It is authored elsewhere; this
// service only reads it and flips its status on implicit completion.
type Exam struct {
	ID                      uuid.UUID  `json:"id"`
	Title                   string     `json:"title"`
	QuestionPaperID         uuid.UUID  `json:"question_paper_id"`
	ScheduledStart          time.Time  `json:"scheduled_start"`
	ScheduledEnd            time.Time  `json:"scheduled_end"`
	DurationMinutes         int        `json:"duration_minutes"`
	BufferMinutes           int        `json:"buffer_minutes"`
	AccessType              AccessType `json:"access_type"`
	EntryTokenHash          string     `json:"-"`
	MaxAttempts             int        `json:"max_attempts"`
	RetakeDelayMinutes      int        `json:"retake_delay_minutes"`
	Status                  ExamStatus `json:"status"`
	PassingScore            float64    `json:"passing_score"`
	NegativeMarking         bool       `json:"negative_marking"`
	NegativeMarkPerQuestion float64    `json:"negative_mark_per_question"`
	ShowResultImmediately   bool       `json:"show_result_immediately"`
	ShowAnswersAfterExam    bool       `json:"show_answers_after_exam"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Duration is the per-attempt time allowance.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Buffer is the grace period granted to an explicit submit after an attempt's end.
func (e *Exam) Buffer() time.Duration {
	return time.Duration(e.BufferMinutes) * time.Minute
}

// RetakeDelay is the minimum gap between two attempts of the same user.
func (e *Exam) RetakeDelay() time.Duration {
	return time.Duration(e.RetakeDelayMinutes) * time.Minute
}

// WindowContains reports whether t falls inside [ScheduledStart, ScheduledEnd].
func (e *Exam) WindowContains(t time.Time) bool {
	return !t.Before(e.ScheduledStart) && !t.After(e.ScheduledEnd)
}

// HasEnded reports whether the exam window is over at t.
func (e *Exam) HasEnded(t time.Time) bool {
	return t.After(e.ScheduledEnd)
}
