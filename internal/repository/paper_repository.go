package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-engine/internal/model"
)

// PaperRepository handles question paper data access.
type PaperRepository struct {
	db DBTX
}

// GetByID retrieves a paper definition.
func (r *PaperRepository) GetByID(ctx context.Context, id uuid.UUID, lock LockMode) (*model.QuestionPaper, error) {
	p := &model.QuestionPaper{}
	err := r.db.QueryRow(ctx,
		`SELECT id, title, mode, shuffle_questions, criteria, materialized_at, created_at, updated_at
		 FROM question_papers WHERE id = $1`+lockClause(lock), id,
	).Scan(&p.ID, &p.Title, &p.Mode, &p.ShuffleQuestions, &p.Criteria, &p.MaterializedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// Create inserts a paper definition.
func (r *PaperRepository) Create(ctx context.Context, p *model.QuestionPaper) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO question_papers (id, title, mode, shuffle_questions, criteria, materialized_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Mode, p.ShuffleQuestions, p.Criteria, p.MaterializedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

const itemColumns = `id, question_paper_id, question_id, is_custom, custom_text, custom_options,
	custom_correct_answer, marks, question_number, time_limit_seconds, section`

func scanItem(row pgx.Row) (*model.QuestionPaperItem, error) {
	var it model.QuestionPaperItem
	err := row.Scan(&it.ID, &it.QuestionPaperID, &it.QuestionID, &it.IsCustom, &it.CustomText, &it.CustomOptions,
		&it.CustomCorrectAnswer, &it.Marks, &it.QuestionNumber, &it.TimeLimitSeconds, &it.Section)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListItems retrieves the items of a paper ordered by question number.
func (r *PaperRepository) ListItems(ctx context.Context, paperID uuid.UUID) ([]model.QuestionPaperItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM question_paper_items
		 WHERE question_paper_id = $1
		 ORDER BY question_number`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.QuestionPaperItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// GetItem retrieves one item of a paper.
func (r *PaperRepository) GetItem(ctx context.Context, paperID, itemID uuid.UUID) (*model.QuestionPaperItem, error) {
	it, err := scanItem(r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM question_paper_items
		 WHERE question_paper_id = $1 AND id = $2`, paperID, itemID))
	return it, mapErr(err)
}

// ReplaceItems swaps the item set of a paper. It must run inside a
// transaction so the delete is never observable without the insert.
func (r *PaperRepository) ReplaceItems(ctx context.Context, paperID uuid.UUID, items []model.QuestionPaperItem, at time.Time) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM question_paper_items WHERE question_paper_id = $1`, paperID); err != nil {
		return mapErr(err)
	}

	batch := &pgx.Batch{}
	for i := range items {
		it := &items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.QuestionPaperID = paperID
		batch.Queue(
			`INSERT INTO question_paper_items (`+itemColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			it.ID, it.QuestionPaperID, it.QuestionID, it.IsCustom, it.CustomText, it.CustomOptions,
			it.CustomCorrectAnswer, it.Marks, it.QuestionNumber, it.TimeLimitSeconds, it.Section)
	}
	batch.Queue(`UPDATE question_papers SET materialized_at = $1, updated_at = NOW() WHERE id = $2`, at, paperID)

	br := r.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return mapErr(err)
		}
	}
	return br.Close()
}
