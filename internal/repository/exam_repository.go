package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	db DBTX
}

const examColumns = `id, title, question_paper_id, scheduled_start, scheduled_end,
	duration_minutes, buffer_minutes, access_type, entry_token_hash, max_attempts,
	retake_delay_minutes, status, passing_score, negative_marking, negative_mark_per_question,
	show_result_immediately, show_answers_after_exam, created_at, updated_at`

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.db.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.QuestionPaperID, &e.ScheduledStart, &e.ScheduledEnd,
		&e.DurationMinutes, &e.BufferMinutes, &e.AccessType, &e.EntryTokenHash, &e.MaxAttempts,
		&e.RetakeDelayMinutes, &e.Status, &e.PassingScore, &e.NegativeMarking, &e.NegativeMarkPerQuestion,
		&e.ShowResultImmediately, &e.ShowAnswersAfterExam, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO exams (id, title, question_paper_id, scheduled_start, scheduled_end,
		        duration_minutes, buffer_minutes, access_type, entry_token_hash, max_attempts,
		        retake_delay_minutes, status, passing_score, negative_marking, negative_mark_per_question,
		        show_result_immediately, show_answers_after_exam)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.QuestionPaperID, e.ScheduledStart, e.ScheduledEnd,
		e.DurationMinutes, e.BufferMinutes, e.AccessType, e.EntryTokenHash, e.MaxAttempts,
		e.RetakeDelayMinutes, e.Status, e.PassingScore, e.NegativeMarking, e.NegativeMarkPerQuestion,
		e.ShowResultImmediately, e.ShowAnswersAfterExam,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

// UpdateStatus changes the exam status only if it is currently from.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ExamStatus) error {
	return affectedOne(r.db.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from))
}
