package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

// RegistrationRepository handles exam registration data access.
type RegistrationRepository struct {
	db DBTX
}

// GetByUserAndExam retrieves the registration of a user at an exam.
func (r *RegistrationRepository) GetByUserAndExam(ctx context.Context, userID int, examID uuid.UUID, lock LockMode) (*model.ExamRegistration, error) {
	reg := &model.ExamRegistration{}
	err := r.db.QueryRow(ctx,
		`SELECT id, exam_id, user_id, status, attempts_used, last_attempt_at, created_at, updated_at
		 FROM exam_registrations
		 WHERE user_id = $1 AND exam_id = $2`+lockClause(lock), userID, examID,
	).Scan(&reg.ID, &reg.ExamID, &reg.UserID, &reg.Status, &reg.AttemptsUsed, &reg.LastAttemptAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return reg, nil
}

// Create inserts a registration. A second registration for the same
// (user, exam) yields ErrConflict.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.ExamRegistration) error {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO exam_registrations (id, exam_id, user_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		reg.ID, reg.ExamID, reg.UserID, reg.Status,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	return mapErr(err)
}

// UpdateStatus sets the approval status of a registration.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE exam_registrations SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordAttempt bumps the attempt counters of a registration.
func (r *RegistrationRepository) RecordAttempt(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE exam_registrations
		 SET attempts_used = attempts_used + 1, last_attempt_at = $1, updated_at = NOW()
		 WHERE id = $2`, at, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
