package model

import (
	"time"

	"github.com/google/uuid"
)

// PaperMode distinguishes authored papers from generated ones.
type PaperMode string

const (
	PaperModeFixed  PaperMode = "fixed"
	PaperModeRandom PaperMode = "random"
)

// GenerationCriteria drives random paper generation. A filter dimension with
// an empty list imposes no constraint.
type GenerationCriteria struct {
	Subjects         []string `json:"subjects" binding:"omitempty,dive,min=1,max=100"`
	Topics           []string `json:"topics" binding:"omitempty,dive,min=1,max=100"`
	Difficulties     []string `json:"difficulties" binding:"omitempty,dive,oneof=easy medium hard"`
	ExamTypes        []string `json:"exam_types" binding:"omitempty,dive,min=1,max=100"`
	TotalQuestions   int      `json:"total_questions" binding:"required,min=1,max=500"`
	MarksPerQuestion float64  `json:"marks_per_question" binding:"omitempty,gte=0,lte=100"`
}

// Filter extracts the question bank filter part of the criteria.
func (c GenerationCriteria) Filter() QuestionFilter {
	return QuestionFilter{
		Subjects:     c.Subjects,
		Topics:       c.Topics,
		Difficulties: c.Difficulties,
		ExamTypes:    c.ExamTypes,
	}
}

// QuestionPaper is the definition an exam draws its questions from.
type QuestionPaper struct {
	ID               uuid.UUID           `json:"id"`
	Title            string              `json:"title"`
	Mode             PaperMode           `json:"mode"`
	ShuffleQuestions bool                `json:"shuffle_questions"`
	Criteria         *GenerationCriteria `json:"criteria,omitempty"`
	MaterializedAt   *time.Time          `json:"materialized_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// QuestionPaperItem is one question slot of a paper. QuestionNumber is unique within a paper.
type QuestionPaperItem struct {
	ID                  uuid.UUID  `json:"id"`
	QuestionPaperID     uuid.UUID  `json:"question_paper_id"`
	QuestionID          *uuid.UUID `json:"question_id,omitempty"`
	IsCustom            bool       `json:"is_custom"`
	CustomText          string     `json:"custom_text,omitempty"`
	CustomOptions       *Options   `json:"custom_options,omitempty"`
	CustomCorrectAnswer string     `json:"custom_correct_answer,omitempty"`
	Marks               float64    `json:"marks"`
	QuestionNumber      int        `json:"question_number"`
	TimeLimitSeconds    *int       `json:"time_limit_seconds,omitempty"`
	Section             string     `json:"section,omitempty"`
}

// PaperItemView is a paper item as delivered to a candidate: no correct answer.
type PaperItemView struct {
	ItemID           uuid.UUID `json:"item_id"`
	QuestionNumber   int       `json:"question_number"`
	Text             string    `json:"text"`
	Options          Options   `json:"options"`
	Marks            float64   `json:"marks"`
	Section          string    `json:"section,omitempty"`
	TimeLimitSeconds *int      `json:"time_limit_seconds,omitempty"`
}

// GeneratePaperRequest is the admin payload for (re)generating a random paper
// from its stored criteria.
type GeneratePaperRequest struct {
	Seed *int64 `json:"seed"`
}
