package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-engine/internal/model"
)

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	db DBTX
}

const attemptColumns = `id, exam_id, user_id, registration_id, question_paper_id, status,
	started_at, scheduled_end_at, submitted_at, time_spent_seconds,
	correct_count, incorrect_count, skipped_count, total_marks, obtained_marks,
	negative_marks, final_score, percentage, result, rank, percentile, created_at, updated_at`

func scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	var (
		a                                     model.ExamAttempt
		correct, incorrect, skipped           *int
		total, obtained, negative, final, pct *float64
		result                                *string
	)
	err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.RegistrationID, &a.QuestionPaperID, &a.Status,
		&a.StartedAt, &a.ScheduledEndAt, &a.SubmittedAt, &a.TimeSpentSeconds,
		&correct, &incorrect, &skipped, &total, &obtained,
		&negative, &final, &pct, &result, &a.Rank, &a.Percentile, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if final != nil {
		a.Score = &model.AttemptScore{
			Correct:       deref(correct),
			Incorrect:     deref(incorrect),
			Skipped:       deref(skipped),
			TotalMarks:    deref(total),
			ObtainedMarks: deref(obtained),
			NegativeMarks: deref(negative),
			FinalScore:    *final,
			Percentage:    deref(pct),
			Result:        model.ResultStatus(deref(result)),
		}
	}
	return &a, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Create inserts a not_started attempt. The partial unique index on
// (user_id, exam_id) turns a concurrent duplicate into ErrConflict.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = model.AttemptNotStarted
	err := r.db.QueryRow(ctx,
		`INSERT INTO exam_attempts (id, exam_id, user_id, registration_id, question_paper_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		a.ID, a.ExamID, a.UserID, a.RegistrationID, a.QuestionPaperID, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID, lock LockMode) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`+lockClause(lock), id))
	return a, mapErr(err)
}

// FindActive retrieves the non-terminal attempt of a user at an exam.
func (r *AttemptRepository) FindActive(ctx context.Context, userID int, examID uuid.UUID, lock LockMode) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE user_id = $1 AND exam_id = $2 AND status IN ('not_started', 'in_progress')`+lockClause(lock),
		userID, examID))
	return a, mapErr(err)
}

// CountByUserAndExam counts attempts in any status.
func (r *AttemptRepository) CountByUserAndExam(ctx context.Context, userID int, examID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE user_id = $1 AND exam_id = $2`,
		userID, examID).Scan(&n)
	return n, mapErr(err)
}

// CountActiveByPaper counts not_started and in_progress attempts on a paper.
func (r *AttemptRepository) CountActiveByPaper(ctx context.Context, paperID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts
		 WHERE question_paper_id = $1 AND status IN ('not_started', 'in_progress')`,
		paperID).Scan(&n)
	return n, mapErr(err)
}

// Activate moves a not_started attempt to in_progress.
func (r *AttemptRepository) Activate(ctx context.Context, id uuid.UUID, startedAt, scheduledEndAt time.Time) error {
	return affectedOne(r.db.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, started_at = $2, scheduled_end_at = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		model.AttemptInProgress, startedAt, scheduledEndAt, id, model.AttemptNotStarted))
}

// UpdateStatus transitions an attempt only if it is currently from.
func (r *AttemptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AttemptStatus) error {
	return affectedOne(r.db.Exec(ctx,
		`UPDATE exam_attempts SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from))
}

// Finalize writes the terminal status and score of a. The status guard makes
// concurrent finalizations of the same attempt succeed at most once.
func (r *AttemptRepository) Finalize(ctx context.Context, a *model.ExamAttempt, from model.AttemptStatus) error {
	s := a.Score
	if s == nil {
		s = &model.AttemptScore{}
	}
	var result *string
	if a.Score != nil {
		v := string(s.Result)
		result = &v
	}
	var final *float64
	if a.Score != nil {
		final = &s.FinalScore
	}
	return affectedOne(r.db.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, submitted_at = $2, time_spent_seconds = $3,
		     correct_count = $4, incorrect_count = $5, skipped_count = $6,
		     total_marks = $7, obtained_marks = $8, negative_marks = $9,
		     final_score = $10, percentage = $11, result = $12, updated_at = NOW()
		 WHERE id = $13 AND status = $14`,
		a.Status, a.SubmittedAt, a.TimeSpentSeconds,
		s.Correct, s.Incorrect, s.Skipped,
		s.TotalMarks, s.ObtainedMarks, s.NegativeMarks,
		final, s.Percentage, result,
		a.ID, from))
}

// ListOverdue returns in_progress attempts whose scheduled end has passed.
func (r *AttemptRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.ExamAttempt, error) {
	var limitArg *int // LIMIT NULL is no limit
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE status = $1 AND scheduled_end_at < $2
		 ORDER BY scheduled_end_at
		 LIMIT $3`, model.AttemptInProgress, now, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// CountByStatus returns how many attempts of an exam are in each status.
func (r *AttemptRepository) CountByStatus(ctx context.Context, examID uuid.UUID) (map[model.AttemptStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*)
		 FROM exam_attempts
		 WHERE exam_id = $1
		 GROUP BY status`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AttemptStatus]int)
	for rows.Next() {
		var (
			status model.AttemptStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
