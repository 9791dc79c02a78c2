package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository/memstore"
)

const testUser = 101

// recorder captures published results and monitor events.
type recorder struct {
	mu      sync.Mutex
	results []model.ResultEvent
	events  []model.MonitorEvent
}

func (r *recorder) PublishResult(_ context.Context, ev model.ResultEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, ev)
	return nil
}

func (r *recorder) PublishEvent(_ context.Context, ev model.MonitorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memstore.Store
	papers   *PaperService
	attempts *AttemptService
	regs     *RegistrationService
	pub      *recorder

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memstore.New(),
		pub:   &recorder{},
		now:   time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
	log := zerolog.Nop()
	f.papers = NewPaperService(f.store, nil, log)
	f.papers.now = f.clock
	f.attempts = NewAttemptService(f.store, f.papers, f.pub, f.pub, 0.25, log)
	f.attempts.now = f.clock
	f.regs = NewRegistrationService(f.store, log)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// fixedPaper creates an authored paper of n one-mark items whose correct answer is "A".
func (f *fixture) fixedPaper(n int) (*model.QuestionPaper, []model.QuestionPaperItem) {
	f.t.Helper()
	paper := &model.QuestionPaper{Title: "Fixed paper", Mode: model.PaperModeFixed}
	if err := f.store.Papers().Create(f.ctx, paper); err != nil {
		f.t.Fatalf("create paper: %v", err)
	}
	items := make([]model.QuestionPaperItem, n)
	for i := range items {
		items[i] = model.QuestionPaperItem{
			IsCustom:            true,
			CustomText:          "What is the first letter?",
			CustomOptions:       &model.Options{A: "A", B: "B", C: "C", D: "D"},
			CustomCorrectAnswer: "A",
			Marks:               1,
			QuestionNumber:      i + 1,
		}
	}
	if err := f.store.Papers().ReplaceItems(f.ctx, paper.ID, items, f.clock()); err != nil {
		f.t.Fatalf("replace items: %v", err)
	}
	return paper, items
}

// bank inserts n active questions tagged with subject.
func (f *fixture) bank(n int, subject string) []model.Question {
	f.t.Helper()
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Text:          subject + " question",
			Options:       model.Options{A: "1", B: "2", C: "3", D: "4"},
			CorrectOption: "B",
			Subject:       subject,
			Difficulty:    "medium",
			DefaultMarks:  1,
			IsActive:      true,
		}
		if err := f.store.Questions().Create(f.ctx, &qs[i]); err != nil {
			f.t.Fatalf("create question: %v", err)
		}
	}
	return qs
}

// randomPaper creates an unmaterialized random paper drawing total questions of subject.
func (f *fixture) randomPaper(subject string, total int, shuffle bool) *model.QuestionPaper {
	f.t.Helper()
	paper := &model.QuestionPaper{
		Title:            "Random paper",
		Mode:             model.PaperModeRandom,
		ShuffleQuestions: shuffle,
		Criteria:         &model.GenerationCriteria{Subjects: []string{subject}, TotalQuestions: total, MarksPerQuestion: 2},
	}
	if err := f.store.Papers().Create(f.ctx, paper); err != nil {
		f.t.Fatalf("create paper: %v", err)
	}
	return paper
}

// liveExam creates a live exam over paperID open from one hour ago for three
// hours, with a 60 minute duration. mutate may adjust it before insert.
func (f *fixture) liveExam(paperID uuid.UUID, mutate func(e *model.Exam)) *model.Exam {
	f.t.Helper()
	now := f.clock()
	exam := &model.Exam{
		Title:                 "Mock exam",
		QuestionPaperID:       paperID,
		ScheduledStart:        now.Add(-time.Hour),
		ScheduledEnd:          now.Add(3 * time.Hour),
		DurationMinutes:       60,
		AccessType:            model.AccessTypeOpen,
		Status:                model.ExamStatusLive,
		ShowResultImmediately: true,
	}
	if mutate != nil {
		mutate(exam)
	}
	if err := f.store.Exams().Create(f.ctx, exam); err != nil {
		f.t.Fatalf("create exam: %v", err)
	}
	return exam
}

func (f *fixture) register(userID int, examID uuid.UUID) *model.ExamRegistration {
	f.t.Helper()
	reg, err := f.regs.Register(f.ctx, userID, examID, "")
	if err != nil {
		f.t.Fatalf("register: %v", err)
	}
	return reg
}

func (f *fixture) start(userID int, examID uuid.UUID) *StartResult {
	f.t.Helper()
	res, err := f.attempts.Start(f.ctx, userID, examID)
	if err != nil {
		f.t.Fatalf("Start() error = %v", err)
	}
	return res
}

func (f *fixture) answer(userID int, attemptID, itemID uuid.UUID, option string) {
	f.t.Helper()
	if _, err := f.attempts.RecordAnswer(f.ctx, userID, attemptID, itemID, model.RecordAnswerRequest{SelectedOption: &option, TimeSpent: 5}); err != nil {
		f.t.Fatalf("RecordAnswer() error = %v", err)
	}
}
