// Package memstore is an in-memory repository.Store used by tests and by the
// server when STORE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository"
)

type answerKey struct {
	attemptID uuid.UUID
	itemID    uuid.UUID
}

type data struct {
	exams         map[uuid.UUID]model.Exam
	registrations map[uuid.UUID]model.ExamRegistration
	attempts      map[uuid.UUID]model.ExamAttempt
	answers       map[answerKey]model.UserAnswer
	papers        map[uuid.UUID]model.QuestionPaper
	items         map[uuid.UUID][]model.QuestionPaperItem
	questions     []model.Question
}

func newData() *data {
	return &data{
		exams:         make(map[uuid.UUID]model.Exam),
		registrations: make(map[uuid.UUID]model.ExamRegistration),
		attempts:      make(map[uuid.UUID]model.ExamAttempt),
		answers:       make(map[answerKey]model.UserAnswer),
		papers:        make(map[uuid.UUID]model.QuestionPaper),
		items:         make(map[uuid.UUID][]model.QuestionPaperItem),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.exams {
		c.exams[k] = v
	}
	for k, v := range d.registrations {
		c.registrations[k] = v
	}
	for k, v := range d.attempts {
		c.attempts[k] = v
	}
	for k, v := range d.answers {
		c.answers[k] = v
	}
	for k, v := range d.papers {
		c.papers[k] = v
	}
	for k, v := range d.items {
		c.items[k] = append([]model.QuestionPaperItem(nil), v...)
	}
	c.questions = append([]model.Question(nil), d.questions...)
	return c
}

// Store keeps all rows in process memory. A transaction holds the store's
// mutex for its whole duration, so transactions are fully serialized.
type Store struct {
	mu   *sync.Mutex
	d    *data
	inTx bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, d: newData()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx runs fn against a transactional view. Writes made by fn are discarded
// when it returns an error. fn must only use the Store it is given.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.d.clone()
	if err := fn(&Store{mu: s.mu, d: s.d, inTx: true}); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func (s *Store) Exams() repository.ExamRepo                 { return examRepo{s} }
func (s *Store) Registrations() repository.RegistrationRepo { return registrationRepo{s} }
func (s *Store) Attempts() repository.AttemptRepo           { return attemptRepo{s} }
func (s *Store) Answers() repository.AnswerRepo             { return answerRepo{s} }
func (s *Store) Papers() repository.PaperRepo               { return paperRepo{s} }
func (s *Store) Questions() repository.QuestionRepo         { return questionRepo{s} }

// ─── Exams ───────────────────────────────────────────────────────

type examRepo struct{ s *Store }

func (r examRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	defer r.s.lock()()
	e, ok := r.s.d.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r examRepo) Create(_ context.Context, e *model.Exam) error {
	defer r.s.lock()()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if _, ok := r.s.d.exams[e.ID]; ok {
		return repository.ErrConflict
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	r.s.d.exams[e.ID] = *e
	return nil
}

func (r examRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ExamStatus) error {
	defer r.s.lock()()
	e, ok := r.s.d.exams[id]
	if !ok || e.Status != from {
		return repository.ErrConflict
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	r.s.d.exams[id] = e
	return nil
}

// ─── Registrations ───────────────────────────────────────────────

type registrationRepo struct{ s *Store }

func (r registrationRepo) GetByUserAndExam(_ context.Context, userID int, examID uuid.UUID, _ repository.LockMode) (*model.ExamRegistration, error) {
	defer r.s.lock()()
	for _, reg := range r.s.d.registrations {
		if reg.UserID == userID && reg.ExamID == examID {
			return cloneRegistration(reg), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r registrationRepo) Create(_ context.Context, reg *model.ExamRegistration) error {
	defer r.s.lock()()
	for _, existing := range r.s.d.registrations {
		if existing.UserID == reg.UserID && existing.ExamID == reg.ExamID {
			return repository.ErrConflict
		}
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	now := time.Now()
	reg.CreatedAt, reg.UpdatedAt = now, now
	r.s.d.registrations[reg.ID] = *cloneRegistration(*reg)
	return nil
}

func (r registrationRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.RegistrationStatus) error {
	defer r.s.lock()()
	reg, ok := r.s.d.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	reg.Status = status
	reg.UpdatedAt = time.Now()
	r.s.d.registrations[id] = reg
	return nil
}

func (r registrationRepo) RecordAttempt(_ context.Context, id uuid.UUID, at time.Time) error {
	defer r.s.lock()()
	reg, ok := r.s.d.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	reg.AttemptsUsed++
	reg.LastAttemptAt = &at
	reg.UpdatedAt = time.Now()
	r.s.d.registrations[id] = reg
	return nil
}

func cloneRegistration(reg model.ExamRegistration) *model.ExamRegistration {
	if reg.LastAttemptAt != nil {
		t := *reg.LastAttemptAt
		reg.LastAttemptAt = &t
	}
	return &reg
}

// ─── Attempts ────────────────────────────────────────────────────

type attemptRepo struct{ s *Store }

func (r attemptRepo) Create(_ context.Context, a *model.ExamAttempt) error {
	defer r.s.lock()()
	for _, existing := range r.s.d.attempts {
		if existing.UserID == a.UserID && existing.ExamID == a.ExamID && !existing.Status.IsTerminal() {
			return repository.ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = model.AttemptNotStarted
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.d.attempts[a.ID] = *cloneAttempt(*a)
	return nil
}

func (r attemptRepo) GetByID(_ context.Context, id uuid.UUID, _ repository.LockMode) (*model.ExamAttempt, error) {
	defer r.s.lock()()
	a, ok := r.s.d.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (r attemptRepo) FindActive(_ context.Context, userID int, examID uuid.UUID, _ repository.LockMode) (*model.ExamAttempt, error) {
	defer r.s.lock()()
	for _, a := range r.s.d.attempts {
		if a.UserID == userID && a.ExamID == examID && !a.Status.IsTerminal() {
			return cloneAttempt(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r attemptRepo) CountByUserAndExam(_ context.Context, userID int, examID uuid.UUID) (int, error) {
	defer r.s.lock()()
	n := 0
	for _, a := range r.s.d.attempts {
		if a.UserID == userID && a.ExamID == examID {
			n++
		}
	}
	return n, nil
}

func (r attemptRepo) CountActiveByPaper(_ context.Context, paperID uuid.UUID) (int, error) {
	defer r.s.lock()()
	n := 0
	for _, a := range r.s.d.attempts {
		if a.QuestionPaperID == paperID && !a.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (r attemptRepo) Activate(_ context.Context, id uuid.UUID, startedAt, scheduledEndAt time.Time) error {
	defer r.s.lock()()
	a, ok := r.s.d.attempts[id]
	if !ok || a.Status != model.AttemptNotStarted {
		return repository.ErrConflict
	}
	a.Status = model.AttemptInProgress
	a.StartedAt = &startedAt
	a.ScheduledEndAt = &scheduledEndAt
	a.UpdatedAt = time.Now()
	r.s.d.attempts[id] = a
	return nil
}

func (r attemptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AttemptStatus) error {
	defer r.s.lock()()
	a, ok := r.s.d.attempts[id]
	if !ok || a.Status != from {
		return repository.ErrConflict
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.s.d.attempts[id] = a
	return nil
}

func (r attemptRepo) Finalize(_ context.Context, a *model.ExamAttempt, from model.AttemptStatus) error {
	defer r.s.lock()()
	stored, ok := r.s.d.attempts[a.ID]
	if !ok || stored.Status != from {
		return repository.ErrConflict
	}
	next := cloneAttempt(*a)
	stored.Status = next.Status
	stored.SubmittedAt = next.SubmittedAt
	stored.TimeSpentSeconds = next.TimeSpentSeconds
	stored.Score = next.Score
	stored.UpdatedAt = time.Now()
	r.s.d.attempts[a.ID] = stored
	return nil
}

func (r attemptRepo) ListOverdue(_ context.Context, now time.Time, limit int) ([]model.ExamAttempt, error) {
	defer r.s.lock()()
	var out []model.ExamAttempt
	for _, a := range r.s.d.attempts {
		if a.Status == model.AttemptInProgress && a.IsExpired(now) {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledEndAt.Before(*out[j].ScheduledEndAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r attemptRepo) CountByStatus(_ context.Context, examID uuid.UUID) (map[model.AttemptStatus]int, error) {
	defer r.s.lock()()
	counts := make(map[model.AttemptStatus]int)
	for _, a := range r.s.d.attempts {
		if a.ExamID == examID {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func cloneAttempt(a model.ExamAttempt) *model.ExamAttempt {
	a.StartedAt = cloneTime(a.StartedAt)
	a.ScheduledEndAt = cloneTime(a.ScheduledEndAt)
	a.SubmittedAt = cloneTime(a.SubmittedAt)
	if a.Score != nil {
		sc := *a.Score
		a.Score = &sc
	}
	return &a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ─── Answers ─────────────────────────────────────────────────────

type answerRepo struct{ s *Store }

func (r answerRepo) Upsert(_ context.Context, a *model.UserAnswer) error {
	defer r.s.lock()()
	key := answerKey{a.AttemptID, a.QuestionPaperItemID}
	if existing, ok := r.s.d.answers[key]; ok {
		a.ID = existing.ID
	} else if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stored := cloneAnswer(*a)
	stored.IsCorrect = nil
	stored.MarksObtained = 0
	stored.NegativeMarks = 0
	r.s.d.answers[key] = *stored
	return nil
}

func (r answerRepo) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.UserAnswer, error) {
	defer r.s.lock()()
	numbers := make(map[uuid.UUID]int)
	for _, items := range r.s.d.items {
		for _, it := range items {
			numbers[it.ID] = it.QuestionNumber
		}
	}
	var out []model.UserAnswer
	for k, a := range r.s.d.answers {
		if k.attemptID == attemptID {
			out = append(out, *cloneAnswer(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return numbers[out[i].QuestionPaperItemID] < numbers[out[j].QuestionPaperItemID]
	})
	return out, nil
}

func (r answerRepo) SaveScores(_ context.Context, answers []model.UserAnswer) error {
	defer r.s.lock()()
	for i := range answers {
		a := &answers[i]
		key := answerKey{a.AttemptID, a.QuestionPaperItemID}
		stored, ok := r.s.d.answers[key]
		if !ok {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			r.s.d.answers[key] = *cloneAnswer(*a)
			continue
		}
		next := cloneAnswer(*a)
		stored.IsCorrect = next.IsCorrect
		stored.MarksObtained = next.MarksObtained
		stored.NegativeMarks = next.NegativeMarks
		r.s.d.answers[key] = stored
	}
	return nil
}

func cloneAnswer(a model.UserAnswer) *model.UserAnswer {
	if a.SelectedOption != nil {
		v := *a.SelectedOption
		a.SelectedOption = &v
	}
	if a.IsCorrect != nil {
		v := *a.IsCorrect
		a.IsCorrect = &v
	}
	return &a
}

// ─── Papers ──────────────────────────────────────────────────────

type paperRepo struct{ s *Store }

func (r paperRepo) GetByID(_ context.Context, id uuid.UUID, _ repository.LockMode) (*model.QuestionPaper, error) {
	defer r.s.lock()()
	p, ok := r.s.d.papers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.MaterializedAt = cloneTime(p.MaterializedAt)
	return &p, nil
}

func (r paperRepo) Create(_ context.Context, p *model.QuestionPaper) error {
	defer r.s.lock()()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := r.s.d.papers[p.ID]; ok {
		return repository.ErrConflict
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.d.papers[p.ID] = *p
	return nil
}

func (r paperRepo) ListItems(_ context.Context, paperID uuid.UUID) ([]model.QuestionPaperItem, error) {
	defer r.s.lock()()
	items := append([]model.QuestionPaperItem(nil), r.s.d.items[paperID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].QuestionNumber < items[j].QuestionNumber })
	return items, nil
}

func (r paperRepo) GetItem(_ context.Context, paperID, itemID uuid.UUID) (*model.QuestionPaperItem, error) {
	defer r.s.lock()()
	for _, it := range r.s.d.items[paperID] {
		if it.ID == itemID {
			return &it, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r paperRepo) ReplaceItems(_ context.Context, paperID uuid.UUID, items []model.QuestionPaperItem, at time.Time) error {
	defer r.s.lock()()
	p, ok := r.s.d.papers[paperID]
	if !ok {
		return repository.ErrNotFound
	}
	old := make(map[uuid.UUID]bool, len(r.s.d.items[paperID]))
	for _, it := range r.s.d.items[paperID] {
		old[it.ID] = true
	}
	for k := range r.s.d.answers {
		if old[k.itemID] {
			return repository.ErrConflict
		}
	}

	numbers := make(map[int]bool, len(items))
	stored := make([]model.QuestionPaperItem, len(items))
	for i := range items {
		it := &items[i]
		if numbers[it.QuestionNumber] {
			return repository.ErrConflict
		}
		numbers[it.QuestionNumber] = true
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.QuestionPaperID = paperID
		stored[i] = *it
	}
	r.s.d.items[paperID] = stored
	p.MaterializedAt = &at
	p.UpdatedAt = time.Now()
	r.s.d.papers[paperID] = p
	return nil
}

// ─── Questions ───────────────────────────────────────────────────

type questionRepo struct{ s *Store }

func (r questionRepo) FindActive(_ context.Context, f model.QuestionFilter) ([]model.Question, error) {
	defer r.s.lock()()
	var out []model.Question
	for i := range r.s.d.questions {
		if f.Matches(&r.s.d.questions[i]) {
			out = append(out, r.s.d.questions[i])
		}
	}
	return out, nil
}

func (r questionRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	defer r.s.lock()()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]model.Question, len(ids))
	for _, q := range r.s.d.questions {
		if want[q.ID] {
			out[q.ID] = q
		}
	}
	return out, nil
}

func (r questionRepo) Create(_ context.Context, q *model.Question) error {
	defer r.s.lock()()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	for _, existing := range r.s.d.questions {
		if existing.ID == q.ID {
			return repository.ErrConflict
		}
	}
	q.CreatedAt = time.Now()
	r.s.d.questions = append(r.s.d.questions, *q)
	return nil
}
