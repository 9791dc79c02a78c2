// Package scoring computes attempt results from recorded answers. It performs
// no I/O and returns the same output for the same input.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

const (
	// DefaultItemMarks applies to items whose marks are unset.
	DefaultItemMarks = 1.0
	// DefaultNegativeMark applies when negative marking is enabled without a penalty.
	DefaultNegativeMark = 0.25
)

var (
	ErrMissingAnswerKey = errors.New("paper item has no correct answer")
	ErrUnknownQuestion  = errors.New("paper item references an unknown question")
)

// Config holds the marking rules of an exam.
type Config struct {
	AllowNegativeMarking       bool
	NegativeMarkingPerQuestion float64
	PassingScore               float64
}

// ConfigFromExam builds the marking config of exam.
func ConfigFromExam(exam *model.Exam) Config {
	return Config{
		AllowNegativeMarking:       exam.NegativeMarking,
		NegativeMarkingPerQuestion: exam.NegativeMarkPerQuestion,
		PassingScore:               exam.PassingScore,
	}
}

func (c Config) penalty() float64 {
	if !c.AllowNegativeMarking {
		return 0
	}
	if c.NegativeMarkingPerQuestion <= 0 {
		return DefaultNegativeMark
	}
	return c.NegativeMarkingPerQuestion
}

// ItemResult is the per-item outcome persisted onto the matching answer.
type ItemResult struct {
	ItemID        uuid.UUID
	Answered      bool
	IsCorrect     bool
	MarksObtained float64
	NegativeMarks float64
}

// Result is the aggregate outcome of an attempt.
type Result struct {
	Correct       int
	Incorrect     int
	Skipped       int
	TotalMarks    float64
	ObtainedMarks float64
	NegativeMarks float64
	FinalScore    float64
	Percentage    float64
	Passed        bool
	Items         []ItemResult
}

// AttemptScore converts r to the model representation stored on an attempt.
func (r *Result) AttemptScore() *model.AttemptScore {
	status := model.ResultFail
	if r.Passed {
		status = model.ResultPass
	}
	return &model.AttemptScore{
		Correct:       r.Correct,
		Incorrect:     r.Incorrect,
		Skipped:       r.Skipped,
		TotalMarks:    r.TotalMarks,
		ObtainedMarks: r.ObtainedMarks,
		NegativeMarks: r.NegativeMarks,
		FinalScore:    r.FinalScore,
		Percentage:    r.Percentage,
		Result:        status,
	}
}

// Score grades answers against the paper items. bank resolves the correct
// option of non-custom items. Any item without a resolvable correct answer
// fails the whole computation.
func Score(answers []model.UserAnswer, items []model.QuestionPaperItem, bank map[uuid.UUID]model.Question, cfg Config) (*Result, error) {
	keys := make(map[uuid.UUID]string, len(items))
	for i := range items {
		key, err := correctAnswer(&items[i], bank)
		if err != nil {
			return nil, err
		}
		keys[items[i].ID] = key
	}

	byItem := make(map[uuid.UUID]*model.UserAnswer, len(answers))
	for i := range answers {
		byItem[answers[i].QuestionPaperItemID] = &answers[i]
	}

	penalty := cfg.penalty()
	res := &Result{Items: make([]ItemResult, 0, len(items))}
	for i := range items {
		item := &items[i]
		marks := item.Marks
		if marks <= 0 {
			marks = DefaultItemMarks
		}
		res.TotalMarks += marks

		ir := ItemResult{ItemID: item.ID}
		ans, ok := byItem[item.ID]
		switch {
		case !ok || !ans.Answered():
			res.Skipped++
		default:
			ir.Answered = true
			selected, _ := model.NormalizeOption(*ans.SelectedOption)
			if selected == keys[item.ID] {
				ir.IsCorrect = true
				ir.MarksObtained = marks
				res.Correct++
				res.ObtainedMarks += marks
			} else {
				ir.NegativeMarks = penalty
				res.Incorrect++
				res.NegativeMarks += penalty
			}
		}
		res.Items = append(res.Items, ir)
	}

	res.TotalMarks = round2(res.TotalMarks)
	res.ObtainedMarks = round2(res.ObtainedMarks)
	res.NegativeMarks = round2(res.NegativeMarks)
	res.FinalScore = round2(math.Max(0, res.ObtainedMarks-res.NegativeMarks))
	if res.TotalMarks > 0 {
		res.Percentage = math.Round(res.FinalScore * 100 / res.TotalMarks)
	}
	res.Passed = res.FinalScore >= cfg.PassingScore
	return res, nil
}

func correctAnswer(item *model.QuestionPaperItem, bank map[uuid.UUID]model.Question) (string, error) {
	var raw string
	if item.IsCustom {
		raw = item.CustomCorrectAnswer
	} else {
		if item.QuestionID == nil {
			return "", fmt.Errorf("item %d: %w", item.QuestionNumber, ErrUnknownQuestion)
		}
		q, ok := bank[*item.QuestionID]
		if !ok {
			return "", fmt.Errorf("item %d (question %s): %w", item.QuestionNumber, item.QuestionID, ErrUnknownQuestion)
		}
		raw = q.CorrectOption
	}
	key, ok := model.NormalizeOption(raw)
	if !ok || key == "" {
		return "", fmt.Errorf("item %d: %w", item.QuestionNumber, ErrMissingAnswerKey)
	}
	return key, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
