package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-engine/internal/model"
)

// QuestionRepository reads the shared question bank.
type QuestionRepository struct {
	db DBTX
}

const questionColumns = `id, question_text, options, correct_option, explanation, subject, topic,
	difficulty, exam_type, default_marks, is_active, created_at`

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectOption, &q.Explanation, &q.Subject, &q.Topic,
		&q.Difficulty, &q.ExamType, &q.DefaultMarks, &q.IsActive, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func lowerAll(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strings.ToLower(v)
	}
	return out
}

// FindActive retrieves active questions matching every non-empty filter dimension.
func (r *QuestionRepository) FindActive(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE is_active
		   AND (cardinality($1::text[]) = 0 OR lower(subject) = ANY($1))
		   AND (cardinality($2::text[]) = 0 OR lower(topic) = ANY($2))
		   AND (cardinality($3::text[]) = 0 OR lower(difficulty) = ANY($3))
		   AND (cardinality($4::text[]) = 0 OR lower(exam_type) = ANY($4))
		 ORDER BY id`,
		lowerAll(f.Subjects), lowerAll(f.Topics), lowerAll(f.Difficulties), lowerAll(f.ExamTypes))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetByIDs retrieves questions by id, including inactive ones, keyed by id.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	out := make(map[uuid.UUID]model.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out[q.ID] = *q
	}
	return out, rows.Err()
}

// Create inserts a question bank entry.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO questions (id, question_text, options, correct_option, explanation, subject, topic,
		        difficulty, exam_type, default_marks, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		q.ID, q.Text, q.Options, q.CorrectOption, q.Explanation, q.Subject, q.Topic,
		q.Difficulty, q.ExamType, q.DefaultMarks, q.IsActive,
	).Scan(&q.CreatedAt)
	return mapErr(err)
}
