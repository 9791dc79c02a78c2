package model

import (
	"time"

	"github.com/google/uuid"
)

// UserAnswer is the recorded answer for one paper item of an attempt. There is
// at most one per (attempt, item); later writes overwrite it. The scoring
// fields stay empty until the attempt is finalized.
type UserAnswer struct {
	ID                  uuid.UUID `json:"id"`
	AttemptID           uuid.UUID `json:"attempt_id"`
	QuestionPaperItemID uuid.UUID `json:"question_paper_item_id"`
	SelectedOption      *string   `json:"selected_option"`
	IsCorrect           *bool     `json:"is_correct,omitempty"`
	MarksObtained       float64   `json:"marks_obtained"`
	NegativeMarks       float64   `json:"negative_marks"`
	TimeSpentSeconds    int       `json:"time_spent_seconds"`
	AnsweredAt          time.Time `json:"answered_at"`
	IsFlagged           bool      `json:"is_flagged"`
}

// Answered reports whether an option was selected.
func (a *UserAnswer) Answered() bool {
	return a.SelectedOption != nil && *a.SelectedOption != ""
}

// RecordAnswerRequest is the payload for saving an answer during an attempt.
type RecordAnswerRequest struct {
	SelectedOption *string `json:"selected_option" binding:"omitempty,answer_option"`
	TimeSpent      int     `json:"time_spent" binding:"min=0,max=86400"`
	Flagged        bool    `json:"flagged"`
}
