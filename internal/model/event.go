package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultEvent is queued whenever an attempt is finalized with a score.
type ResultEvent struct {
	AttemptID   uuid.UUID     `json:"attempt_id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	UserID      int           `json:"user_id"`
	Status      AttemptStatus `json:"status"`
	FinalScore  float64       `json:"final_score"`
	Percentage  float64       `json:"percentage"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// MonitorEventType enumerates live monitor events.
type MonitorEventType string

const (
	MonitorAttemptStarted      MonitorEventType = "attempt_started"
	MonitorAttemptResumed      MonitorEventType = "attempt_resumed"
	MonitorAnswerSaved         MonitorEventType = "answer_saved"
	MonitorAttemptFinalized    MonitorEventType = "attempt_finalized"
	MonitorAttemptTransitioned MonitorEventType = "attempt_transitioned"
)

// MonitorEvent is broadcast to proctors watching an exam. It never carries
// answer correctness.
type MonitorEvent struct {
	Type      MonitorEventType `json:"type"`
	ExamID    uuid.UUID        `json:"exam_id"`
	AttemptID uuid.UUID        `json:"attempt_id"`
	UserID    int              `json:"user_id"`
	Status    AttemptStatus    `json:"status"`
	At        time.Time        `json:"at"`
}
