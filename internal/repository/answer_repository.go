package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

// AnswerRepository handles user answer data access.
type AnswerRepository struct {
	db DBTX
}

// Upsert inserts the answer or overwrites the stored one for the same
// (attempt, item). Scoring fields are reset since they are only valid after
// finalization.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.UserAnswer) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_answers (id, attempt_id, question_paper_item_id, selected_option,
		        time_spent_seconds, answered_at, is_flagged)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (attempt_id, question_paper_item_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     answered_at = EXCLUDED.answered_at,
		     is_flagged = EXCLUDED.is_flagged,
		     is_correct = NULL, marks_obtained = 0, negative_marks = 0
		 RETURNING id`,
		a.ID, a.AttemptID, a.QuestionPaperItemID, a.SelectedOption,
		a.TimeSpentSeconds, a.AnsweredAt, a.IsFlagged,
	).Scan(&a.ID)
	return mapErr(err)
}

// ListByAttempt retrieves all answers recorded for an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.UserAnswer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ua.id, ua.attempt_id, ua.question_paper_item_id, ua.selected_option, ua.is_correct,
		        ua.marks_obtained, ua.negative_marks, ua.time_spent_seconds, ua.answered_at, ua.is_flagged
		 FROM user_answers ua
		 JOIN question_paper_items qpi ON qpi.id = ua.question_paper_item_id
		 WHERE ua.attempt_id = $1
		 ORDER BY qpi.question_number`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.UserAnswer
	for rows.Next() {
		var a model.UserAnswer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionPaperItemID, &a.SelectedOption, &a.IsCorrect,
			&a.MarksObtained, &a.NegativeMarks, &a.TimeSpentSeconds, &a.AnsweredAt, &a.IsFlagged); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SaveScores writes scoring results in one statement using UNNEST.
func (r *AnswerRepository) SaveScores(ctx context.Context, answers []model.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	n := len(answers)
	ids := make([]uuid.UUID, n)
	attemptIDs := make([]uuid.UUID, n)
	itemIDs := make([]uuid.UUID, n)
	selected := make([]*string, n)
	correct := make([]*bool, n)
	marks := make([]float64, n)
	negative := make([]float64, n)
	spent := make([]int, n)
	answeredAt := make([]time.Time, n)
	flagged := make([]bool, n)

	for i := range answers {
		a := &answers[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		ids[i] = a.ID
		attemptIDs[i] = a.AttemptID
		itemIDs[i] = a.QuestionPaperItemID
		selected[i] = a.SelectedOption
		correct[i] = a.IsCorrect
		marks[i] = a.MarksObtained
		negative[i] = a.NegativeMarks
		spent[i] = a.TimeSpentSeconds
		answeredAt[i] = a.AnsweredAt
		flagged[i] = a.IsFlagged
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO user_answers (id, attempt_id, question_paper_item_id, selected_option, is_correct,
		       marks_obtained, negative_marks, time_spent_seconds, answered_at, is_flagged)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::uuid[],
			$4::varchar[],
			$5::boolean[],
			$6::float8[],
			$7::float8[],
			$8::int[],
			$9::timestamptz[],
			$10::boolean[]
		)
		ON CONFLICT (attempt_id, question_paper_item_id) DO UPDATE
		SET is_correct = EXCLUDED.is_correct,
		    marks_obtained = EXCLUDED.marks_obtained,
		    negative_marks = EXCLUDED.negative_marks
	`, ids, attemptIDs, itemIDs, selected, correct, marks, negative, spent, answeredAt, flagged)
	return mapErr(err)
}
