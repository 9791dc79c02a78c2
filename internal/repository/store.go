package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	// or a conditional update matched no row in the expected state.
	ErrConflict = errors.New("record conflict")
)

// LockMode selects the row lock taken by a read inside a transaction.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

// ExamRepo reads exam definitions.
type ExamRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	// UpdateStatus moves an exam from one status to another; it returns
	// ErrConflict when the exam is no longer in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ExamStatus) error
}

// RegistrationRepo manages exam registrations.
type RegistrationRepo interface {
	GetByUserAndExam(ctx context.Context, userID int, examID uuid.UUID, lock LockMode) (*model.ExamRegistration, error)
	Create(ctx context.Context, r *model.ExamRegistration) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) error
	// RecordAttempt bumps attempts_used and sets last_attempt_at.
	RecordAttempt(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AttemptRepo manages exam attempts.
type AttemptRepo interface {
	// Create inserts a not_started attempt. It returns ErrConflict when the
	// user already has a non-terminal attempt at the exam.
	Create(ctx context.Context, a *model.ExamAttempt) error
	GetByID(ctx context.Context, id uuid.UUID, lock LockMode) (*model.ExamAttempt, error)
	// FindActive returns the non-terminal attempt of a user at an exam.
	FindActive(ctx context.Context, userID int, examID uuid.UUID, lock LockMode) (*model.ExamAttempt, error)
	CountByUserAndExam(ctx context.Context, userID int, examID uuid.UUID) (int, error)
	// CountActiveByPaper counts not_started and in_progress attempts on a paper.
	CountActiveByPaper(ctx context.Context, paperID uuid.UUID) (int, error)
	// Activate moves a not_started attempt to in_progress.
	Activate(ctx context.Context, id uuid.UUID, startedAt, scheduledEndAt time.Time) error
	// UpdateStatus is a conditional transition; ErrConflict when the attempt is not in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AttemptStatus) error
	// Finalize persists the terminal status, submission time and score of a,
	// conditionally on the attempt still being in status from.
	Finalize(ctx context.Context, a *model.ExamAttempt, from model.AttemptStatus) error
	// ListOverdue returns in_progress attempts whose scheduled end is before
	// now, oldest first. A limit of zero or less returns all of them.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.ExamAttempt, error)
	// CountByStatus returns how many attempts of an exam are in each status.
	CountByStatus(ctx context.Context, examID uuid.UUID) (map[model.AttemptStatus]int, error)
}

// AnswerRepo manages per-item answers of attempts.
type AnswerRepo interface {
	// Upsert inserts or overwrites the answer keyed by (attempt, item).
	Upsert(ctx context.Context, a *model.UserAnswer) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.UserAnswer, error)
	// SaveScores writes the scoring fields of the given answers. Answers
	// without a stored row are inserted.
	SaveScores(ctx context.Context, answers []model.UserAnswer) error
}

// PaperRepo manages question papers and their items.
type PaperRepo interface {
	GetByID(ctx context.Context, id uuid.UUID, lock LockMode) (*model.QuestionPaper, error)
	Create(ctx context.Context, p *model.QuestionPaper) error
	// ListItems returns the items of a paper ordered by question number.
	ListItems(ctx context.Context, paperID uuid.UUID) ([]model.QuestionPaperItem, error)
	GetItem(ctx context.Context, paperID, itemID uuid.UUID) (*model.QuestionPaperItem, error)
	// ReplaceItems deletes every item of the paper, inserts items and stamps
	// materialized_at. Callers run it inside InTx.
	ReplaceItems(ctx context.Context, paperID uuid.UUID, items []model.QuestionPaperItem, at time.Time) error
}

// QuestionRepo reads the question bank.
type QuestionRepo interface {
	FindActive(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error)
	Create(ctx context.Context, q *model.Question) error
}

// Store groups the repositories behind one transactional boundary.
type Store interface {
	Exams() ExamRepo
	Registrations() RegistrationRepo
	Attempts() AttemptRepo
	Answers() AnswerRepo
	Papers() PaperRepo
	Questions() QuestionRepo
	// InTx runs fn with a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}
