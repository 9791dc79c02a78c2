// Package materialize turns generation criteria and a question pool into a
// concrete, ordered set of paper items.
package materialize

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

var ErrInsufficientQuestions = errors.New("not enough matching questions")

// NewRand returns a seeded generator when seed is set and a time-seeded one
// otherwise.
func NewRand(seed *int64) *rand.Rand {
	if seed != nil {
		s := uint64(*seed)
		return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), uint64(time.Now().UnixNano())))
}

// Select draws n questions from pool uniformly at random without replacement
// using a partial Fisher-Yates shuffle. pool is not modified.
func Select(pool []model.Question, n int, rng *rand.Rand) ([]model.Question, error) {
	if n <= 0 {
		return nil, fmt.Errorf("requested %d questions: %w", n, ErrInsufficientQuestions)
	}
	if len(pool) < n {
		return nil, fmt.Errorf("requested %d, found %d: %w", n, len(pool), ErrInsufficientQuestions)
	}
	work := make([]model.Question, len(pool))
	copy(work, pool)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:n], nil
}

// BuildItems numbers the selected questions 1..N in selection order.
func BuildItems(paperID uuid.UUID, selected []model.Question, marksPerQuestion float64) []model.QuestionPaperItem {
	items := make([]model.QuestionPaperItem, len(selected))
	for i := range selected {
		q := selected[i]
		marks := marksPerQuestion
		if marks <= 0 {
			marks = q.DefaultMarks
		}
		qid := q.ID
		items[i] = model.QuestionPaperItem{
			ID:              uuid.New(),
			QuestionPaperID: paperID,
			QuestionID:      &qid,
			Marks:           marks,
			QuestionNumber:  i + 1,
		}
	}
	return items
}

// Generate filters pool by criteria and builds a paper of criteria.TotalQuestions items.
func Generate(paperID uuid.UUID, criteria model.GenerationCriteria, pool []model.Question, rng *rand.Rand) ([]model.QuestionPaperItem, error) {
	filter := criteria.Filter()
	matching := make([]model.Question, 0, len(pool))
	for i := range pool {
		if filter.Matches(&pool[i]) {
			matching = append(matching, pool[i])
		}
	}
	selected, err := Select(matching, criteria.TotalQuestions, rng)
	if err != nil {
		return nil, err
	}
	return BuildItems(paperID, selected, criteria.MarksPerQuestion), nil
}

// AttemptOrder returns a permutation of items that is stable for a given
// attempt, so every read of a shuffled paper presents the same order.
func AttemptOrder[T any](attemptID uuid.UUID, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(attemptID[:8]), binary.BigEndian.Uint64(attemptID[8:])))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
