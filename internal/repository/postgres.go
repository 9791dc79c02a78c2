package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PgStore is the PostgreSQL implementation of Store.
type PgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	tx   pgx.Tx
}

// NewPgStore creates a Store backed by pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

func (s *PgStore) Exams() ExamRepo                 { return &ExamRepository{db: s.db} }
func (s *PgStore) Registrations() RegistrationRepo { return &RegistrationRepository{db: s.db} }
func (s *PgStore) Attempts() AttemptRepo           { return &AttemptRepository{db: s.db} }
func (s *PgStore) Answers() AnswerRepo             { return &AnswerRepository{db: s.db} }
func (s *PgStore) Papers() PaperRepo               { return &PaperRepository{db: s.db} }
func (s *PgStore) Questions() QuestionRepo         { return &QuestionRepository{db: s.db} }

// InTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (s *PgStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&PgStore{pool: s.pool, db: tx, tx: tx})
	})
}

// mapErr translates driver errors into repository errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation) {
		return ErrConflict
	}
	return err
}

func lockClause(lock LockMode) string {
	switch lock {
	case LockShare:
		return " FOR SHARE"
	case LockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

// affectedOne returns ErrConflict when a conditional update touched no row.
func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
