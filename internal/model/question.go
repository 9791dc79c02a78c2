package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option keys of a four-option question.
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

// Options holds the four answer choices of a question.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// NormalizeOption upper-cases and trims an option key. It returns false when
// the key is not one of A-D. An empty key normalizes to "" (skipped).
func NormalizeOption(raw string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	switch key {
	case "", OptionA, OptionB, OptionC, OptionD:
		return key, true
	}
	return "", false
}

// Question is a canonical question bank entry, owned by the question bank.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	Options       Options   `json:"options"`
	CorrectOption string    `json:"correct_option"`
	Explanation   string    `json:"explanation,omitempty"`
	Subject       string    `json:"subject"`
	Topic         string    `json:"topic"`
	Difficulty    string    `json:"difficulty"`
	ExamType      string    `json:"exam_type"`
	DefaultMarks  float64   `json:"default_marks"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionFilter selects active question bank entries. Dimensions combine with
// AND; an empty dimension matches everything.
type QuestionFilter struct {
	Subjects     []string
	Topics       []string
	Difficulties []string
	ExamTypes    []string
}

// Matches reports whether q satisfies every non-empty dimension of f.
func (f QuestionFilter) Matches(q *Question) bool {
	return q.IsActive &&
		matchAny(f.Subjects, q.Subject) &&
		matchAny(f.Topics, q.Topic) &&
		matchAny(f.Difficulties, q.Difficulty) &&
		matchAny(f.ExamTypes, q.ExamType)
}

func matchAny(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, v) {
			return true
		}
	}
	return false
}
