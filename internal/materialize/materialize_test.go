package materialize

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
)

func bank(n int, subject string) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			Text:          fmt.Sprintf("%s question %d", subject, i),
			CorrectOption: "A",
			Subject:       subject,
			Difficulty:    "easy",
			DefaultMarks:  2,
			IsActive:      true,
		}
	}
	return qs
}

func TestSelect_NoReplacement(t *testing.T) {
	pool := bank(30, "physics")
	seed := int64(7)

	got, err := Select(pool, 30, NewRand(&seed))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	seen := make(map[uuid.UUID]bool)
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("question %s selected twice", q.ID)
		}
		seen[q.ID] = true
	}
	if len(seen) != 30 {
		t.Fatalf("selected %d distinct questions, want 30", len(seen))
	}
}

func TestSelect_Insufficient(t *testing.T) {
	_, err := Select(bank(30, "physics"), 50, NewRand(nil))
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("Select() error = %v, want ErrInsufficientQuestions", err)
	}
}

func TestSelect_SeedIsReproducible(t *testing.T) {
	pool := bank(40, "chemistry")
	seed := int64(42)

	a, _ := Select(pool, 10, NewRand(&seed))
	b, _ := Select(pool, 10, NewRand(&seed))
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("position %d differs between runs with the same seed", i)
		}
	}
}

func TestGenerate_FiltersAndNumbers(t *testing.T) {
	pool := append(bank(5, "physics"), bank(5, "biology")...)
	pool[0].IsActive = false
	pool[1].Difficulty = "hard"
	paperID := uuid.New()

	items, err := Generate(paperID, model.GenerationCriteria{
		Subjects:       []string{"Physics"},
		Difficulties:   []string{"easy"},
		TotalQuestions: 3,
	}, pool, NewRand(nil))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	allowed := map[uuid.UUID]bool{pool[2].ID: true, pool[3].ID: true, pool[4].ID: true}
	for i, it := range items {
		if it.QuestionNumber != i+1 {
			t.Fatalf("item %d has number %d", i, it.QuestionNumber)
		}
		if it.QuestionPaperID != paperID {
			t.Fatalf("item %d belongs to paper %s", i, it.QuestionPaperID)
		}
		if !allowed[*it.QuestionID] {
			t.Fatalf("item %d uses a question outside the filter", i)
		}
		if it.Marks != 2 {
			t.Fatalf("item %d marks = %v, want question default 2", i, it.Marks)
		}
	}

	_, err = Generate(paperID, model.GenerationCriteria{Subjects: []string{"physics"}, TotalQuestions: 5}, pool, NewRand(nil))
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("Generate() error = %v, want ErrInsufficientQuestions", err)
	}
}

func TestAttemptOrder_StablePerAttempt(t *testing.T) {
	items := BuildItems(uuid.New(), bank(20, "math"), 1)
	attempt := uuid.New()

	first := AttemptOrder(attempt, items)
	second := AttemptOrder(attempt, items)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("order differs at %d for the same attempt", i)
		}
	}
	for i := range items {
		if items[i].QuestionNumber != i+1 {
			t.Fatal("AttemptOrder modified its input")
		}
	}
}
