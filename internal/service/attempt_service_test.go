package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/eligibility"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository"
)

func TestStart_CreatesInProgressAttempt(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(3)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)

	res := f.start(testUser, exam.ID)

	if res.Resumed {
		t.Fatal("first start reported as resume")
	}
	a := res.Attempt
	if a.Status != model.AttemptInProgress {
		t.Fatalf("Status = %q, want in_progress", a.Status)
	}
	if !a.StartedAt.Equal(f.clock()) || !a.ScheduledEndAt.Equal(f.clock().Add(time.Hour)) {
		t.Fatalf("StartedAt=%v ScheduledEndAt=%v", a.StartedAt, a.ScheduledEndAt)
	}

	reg, _ := f.store.Registrations().GetByUserAndExam(f.ctx, testUser, exam.ID, repository.LockNone)
	if reg.AttemptsUsed != 1 || reg.LastAttemptAt == nil || !reg.LastAttemptAt.Equal(f.clock()) {
		t.Fatalf("registration counters = %d / %v", reg.AttemptsUsed, reg.LastAttemptAt)
	}
}

func TestStart_ScheduledEndCappedByExamEnd(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, func(e *model.Exam) { e.ScheduledEnd = f.clock().Add(20 * time.Minute) })
	f.register(testUser, exam.ID)

	res := f.start(testUser, exam.ID)

	if !res.Attempt.ScheduledEndAt.Equal(exam.ScheduledEnd) {
		t.Fatalf("ScheduledEndAt = %v, want exam end %v", res.Attempt.ScheduledEndAt, exam.ScheduledEnd)
	}
}

func TestStart_ConcurrentCallsShareOneAttempt(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(2)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)

	const callers = 12
	results := make([]*StartResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.attempts.Start(f.ctx, testUser, exam.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: Start() error = %v", i, errs[i])
		}
		if !results[i].Resumed {
			created++
		}
		if results[i].Attempt.ID != results[0].Attempt.ID {
			t.Fatalf("caller %d got attempt %s, caller 0 got %s", i, results[i].Attempt.ID, results[0].Attempt.ID)
		}
	}
	if created != 1 {
		t.Fatalf("%d callers created an attempt, want exactly 1", created)
	}
	if n, _ := f.store.Attempts().CountByUserAndExam(f.ctx, testUser, exam.ID); n != 1 {
		t.Fatalf("stored attempts = %d, want 1", n)
	}
}

func TestStart_ResumeReturnsRecordedAnswers(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(3)
	exam := f.liveExam(paper.ID, func(e *model.Exam) { e.MaxAttempts = 1 })
	f.register(testUser, exam.ID)

	first := f.start(testUser, exam.ID)
	f.answer(testUser, first.Attempt.ID, items[1].ID, "c")

	again := f.start(testUser, exam.ID)
	if !again.Resumed || again.Attempt.ID != first.Attempt.ID {
		t.Fatalf("second start = %+v, want resume of %s", again, first.Attempt.ID)
	}
	if len(again.Answers) != 1 || *again.Answers[0].SelectedOption != "C" {
		t.Fatalf("resumed answers = %+v", again.Answers)
	}
}

func TestStart_MaxAttemptsCountsEveryOutcome(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(2)
	exam := f.liveExam(paper.ID, func(e *model.Exam) { e.MaxAttempts = 2 })
	f.register(testUser, exam.ID)

	first := f.start(testUser, exam.ID)
	if _, err := f.attempts.Submit(f.ctx, testUser, first.Attempt.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	second := f.start(testUser, exam.ID)
	if _, err := f.attempts.Transition(f.ctx, second.Attempt.ID, model.AttemptDisqualified); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	_, err := f.attempts.Start(f.ctx, testUser, exam.ID)
	var elig *EligibilityError
	if !errors.As(err, &elig) || elig.Reason != eligibility.ReasonMaxAttempts {
		t.Fatalf("third Start() error = %v, want %q", err, eligibility.ReasonMaxAttempts)
	}
	if !errors.Is(err, ErrNotEligible) {
		t.Fatal("max attempts rejection should match ErrNotEligible")
	}
}

func TestStart_RetakeDelay(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, func(e *model.Exam) { e.RetakeDelayMinutes = 30 })
	f.register(testUser, exam.ID)

	first := f.start(testUser, exam.ID)
	startedAt := *first.Attempt.StartedAt
	if _, err := f.attempts.Submit(f.ctx, testUser, first.Attempt.ID); err != nil {
		t.Fatal(err)
	}

	f.advance(10 * time.Minute)
	_, err := f.attempts.Start(f.ctx, testUser, exam.ID)
	var elig *EligibilityError
	if !errors.As(err, &elig) || elig.Reason != eligibility.ReasonRetakeDelayActive {
		t.Fatalf("Start() error = %v, want retake delay", err)
	}
	if elig.RetryAfter == nil || !elig.RetryAfter.Equal(startedAt.Add(30*time.Minute)) {
		t.Fatalf("RetryAfter = %v, want %v", elig.RetryAfter, startedAt.Add(30*time.Minute))
	}

	f.advance(21 * time.Minute)
	if res := f.start(testUser, exam.ID); res.Resumed {
		t.Fatal("expected a new attempt after the delay")
	}
}

func TestStart_Rejections(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)

	unregistered := f.liveExam(paper.ID, nil)
	_, err := f.attempts.Start(f.ctx, testUser, unregistered.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("unregistered Start() error = %v, want ErrForbidden", err)
	}

	scheduled := f.liveExam(paper.ID, func(e *model.Exam) { e.Status = model.ExamStatusScheduled })
	f.register(testUser, scheduled.ID)
	_, err = f.attempts.Start(f.ctx, testUser, scheduled.ID)
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("scheduled Start() error = %v, want ErrNotEligible", err)
	}

	if _, err := f.attempts.Start(f.ctx, testUser, paper.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown exam Start() error = %v, want ErrNotFound", err)
	}
}

func TestStart_CompletesEndedExam(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)

	f.advance(4 * time.Hour)
	_, err := f.attempts.Start(f.ctx, testUser, exam.ID)
	var elig *EligibilityError
	if !errors.As(err, &elig) || elig.Reason != eligibility.ReasonNotAvailable {
		t.Fatalf("Start() error = %v, want not available", err)
	}

	stored, _ := f.store.Exams().GetByID(f.ctx, exam.ID)
	if stored.Status != model.ExamStatusCompleted {
		t.Fatalf("exam status = %q, want completed", stored.Status)
	}
}

// failingExams makes every exam status update fail the way a broken
// connection would.
type failingExams struct {
	repository.ExamRepo
}

func (failingExams) UpdateStatus(context.Context, uuid.UUID, model.ExamStatus, model.ExamStatus) error {
	return errors.New("connection reset")
}

type failingExamStore struct {
	repository.Store
}

func (s failingExamStore) Exams() repository.ExamRepo { return failingExams{s.Store.Exams()} }

func (s failingExamStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.InTx(ctx, func(tx repository.Store) error {
		return fn(failingExamStore{tx})
	})
}

func TestStart_ExamCompletionFailureAbortsStart(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)

	svc := NewAttemptService(failingExamStore{f.store}, f.papers, f.pub, f.pub, 0.25, zerolog.Nop())
	svc.now = f.clock
	f.advance(4 * time.Hour)

	_, err := svc.Start(f.ctx, testUser, exam.ID)
	var elig *EligibilityError
	if err == nil || errors.As(err, &elig) {
		t.Fatalf("Start() error = %v, want the store failure", err)
	}
	stored, _ := f.store.Exams().GetByID(f.ctx, exam.ID)
	if stored.Status != model.ExamStatusLive {
		t.Fatalf("exam status = %q, want unchanged live", stored.Status)
	}
}

func TestStart_TimesOutExpiredActiveAttempt(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)

	first := f.start(testUser, exam.ID)
	f.advance(61 * time.Minute)

	second := f.start(testUser, exam.ID)
	if second.Resumed || second.Attempt.ID == first.Attempt.ID {
		t.Fatal("expired attempt must not be resumed")
	}
	old, _ := f.store.Attempts().GetByID(f.ctx, first.Attempt.ID, repository.LockNone)
	if old.Status != model.AttemptTimedOut {
		t.Fatalf("old attempt status = %q, want timed_out", old.Status)
	}
}

func TestRecordAnswer_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(2)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt

	f.answer(testUser, a.ID, items[0].ID, "A")
	f.answer(testUser, a.ID, items[0].ID, "D")

	answers, _ := f.store.Answers().ListByAttempt(f.ctx, a.ID)
	if len(answers) != 1 {
		t.Fatalf("stored %d answers, want 1", len(answers))
	}
	if *answers[0].SelectedOption != "D" || answers[0].IsCorrect != nil {
		t.Fatalf("stored answer = %+v, want D with no correctness", answers[0])
	}
}

func TestRecordAnswer_Validation(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(1)
	_, otherItems := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt

	bad := "E"
	if _, err := f.attempts.RecordAnswer(f.ctx, testUser, a.ID, items[0].ID, model.RecordAnswerRequest{SelectedOption: &bad}); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("option E error = %v, want ErrInvalidAnswer", err)
	}
	if _, err := f.attempts.RecordAnswer(f.ctx, testUser, a.ID, otherItems[0].ID, model.RecordAnswerRequest{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign item error = %v, want ErrNotFound", err)
	}
	if _, err := f.attempts.RecordAnswer(f.ctx, testUser+1, a.ID, items[0].ID, model.RecordAnswerRequest{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user error = %v, want ErrNotFound", err)
	}

	empty := ""
	got, err := f.attempts.RecordAnswer(f.ctx, testUser, a.ID, items[0].ID, model.RecordAnswerRequest{SelectedOption: &empty, Flagged: true})
	if err != nil {
		t.Fatalf("clearing answer error = %v", err)
	}
	if got.SelectedOption != nil || !got.IsFlagged {
		t.Fatalf("cleared answer = %+v", got)
	}
}

func TestRecordAnswer_AfterScheduledEndTimesOut(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(2)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt
	f.answer(testUser, a.ID, items[0].ID, "A")

	f.advance(time.Hour + time.Second)
	opt := "A"
	_, err := f.attempts.RecordAnswer(f.ctx, testUser, a.ID, items[1].ID, model.RecordAnswerRequest{SelectedOption: &opt})
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("RecordAnswer() error = %v, want ErrAttemptNotActive", err)
	}

	view, err := f.attempts.Status(f.ctx, testUser, exam.ID, a.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if view.Attempt.Status != model.AttemptTimedOut || view.CanResume {
		t.Fatalf("status view = %q canResume=%v, want timed_out", view.Attempt.Status, view.CanResume)
	}
	if view.Attempt.Score == nil || view.Attempt.Score.ObtainedMarks != 1 {
		t.Fatalf("timed out attempt score = %+v, want the answer recorded before the end", view.Attempt.Score)
	}
	if view.Attempt.TimeSpentSeconds != 3600 {
		t.Fatalf("TimeSpentSeconds = %d, want capped at the duration", view.Attempt.TimeSpentSeconds)
	}
}

func TestSubmit_ScoresAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(10)
	exam := f.liveExam(paper.ID, func(e *model.Exam) {
		e.NegativeMarking = true
		e.NegativeMarkPerQuestion = 0.25
		e.PassingScore = 5
	})
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt
	for i := 0; i < 6; i++ {
		f.answer(testUser, a.ID, items[i].ID, "A")
	}
	for i := 6; i < 9; i++ {
		f.answer(testUser, a.ID, items[i].ID, "B")
	}

	f.advance(20 * time.Minute)
	first, err := f.attempts.Submit(f.ctx, testUser, a.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	got := first.Attempt
	if got.Status != model.AttemptSubmitted || got.TimeSpentSeconds != 1200 {
		t.Fatalf("status=%q timeSpent=%d", got.Status, got.TimeSpentSeconds)
	}
	want := model.AttemptScore{Correct: 6, Incorrect: 3, Skipped: 1, TotalMarks: 10, ObtainedMarks: 6,
		NegativeMarks: 0.75, FinalScore: 5.25, Percentage: 53, Result: model.ResultPass}
	if *got.Score != want {
		t.Fatalf("score = %+v, want %+v", *got.Score, want)
	}
	answersBefore, _ := f.store.Answers().ListByAttempt(f.ctx, a.ID)

	f.advance(time.Minute)
	second, err := f.attempts.Submit(f.ctx, testUser, a.ID)
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if !reflect.DeepEqual(second.Attempt.Score, got.Score) || !second.Attempt.SubmittedAt.Equal(*got.SubmittedAt) {
		t.Fatalf("second submit changed the result: %+v", second.Attempt)
	}
	answersAfter, _ := f.store.Answers().ListByAttempt(f.ctx, a.ID)
	if !reflect.DeepEqual(answersBefore, answersAfter) {
		t.Fatal("answer scoring fields changed on resubmit")
	}
	if len(answersAfter) != 10 {
		t.Fatalf("scored answers = %d, want one per item", len(answersAfter))
	}
	if len(f.pub.results) != 1 {
		t.Fatalf("published %d results, want 1", len(f.pub.results))
	}

	opt := "A"
	if _, err := f.attempts.RecordAnswer(f.ctx, testUser, a.ID, items[9].ID, model.RecordAnswerRequest{SelectedOption: &opt}); !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("answer after submit error = %v, want ErrAttemptNotActive", err)
	}
}

func TestSubmit_ConcurrentCallsPersistOneResult(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(4)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt
	f.answer(testUser, a.ID, items[0].ID, "A")

	var wg sync.WaitGroup
	results := make([]*AttemptResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.attempts.Submit(f.ctx, testUser, a.ID)
			if err != nil {
				t.Errorf("Submit() error = %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r == nil {
			continue
		}
		if !reflect.DeepEqual(r.Attempt.Score, results[0].Attempt.Score) {
			t.Fatalf("caller %d saw a different score", i)
		}
	}
	if len(f.pub.results) != 1 {
		t.Fatalf("published %d results, want 1", len(f.pub.results))
	}
}

func TestSubmit_BufferGrace(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    model.AttemptStatus
	}{
		{name: "inside duration", elapsed: 30 * time.Minute, want: model.AttemptSubmitted},
		{name: "inside buffer", elapsed: 64 * time.Minute, want: model.AttemptSubmitted},
		{name: "after buffer", elapsed: 66 * time.Minute, want: model.AttemptTimedOut},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			paper, _ := f.fixedPaper(1)
			exam := f.liveExam(paper.ID, func(e *model.Exam) { e.BufferMinutes = 5 })
			f.register(testUser, exam.ID)
			a := f.start(testUser, exam.ID).Attempt

			f.advance(tc.elapsed)
			res, err := f.attempts.Submit(f.ctx, testUser, a.ID)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if res.Attempt.Status != tc.want {
				t.Fatalf("Status = %q, want %q", res.Attempt.Status, tc.want)
			}
		})
	}
}

func TestSubmit_ScoringErrorIsNotSilent(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(2)
	items[1].CustomCorrectAnswer = ""
	if err := f.store.Papers().ReplaceItems(f.ctx, paper.ID, items, f.clock()); err != nil {
		t.Fatal(err)
	}
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt

	_, err := f.attempts.Submit(f.ctx, testUser, a.ID)
	if !errors.Is(err, ErrScoring) {
		t.Fatalf("Submit() error = %v, want ErrScoring", err)
	}
	stored, _ := f.store.Attempts().GetByID(f.ctx, a.ID, repository.LockNone)
	if stored.Status != model.AttemptInProgress || stored.Score != nil {
		t.Fatalf("attempt after scoring failure = %q score=%v", stored.Status, stored.Score)
	}
}

func TestExpireOverdue_AutoSubmits(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	f.register(testUser+1, exam.ID)
	late := f.start(testUser, exam.ID).Attempt
	f.advance(30 * time.Minute)
	fresh := f.start(testUser+1, exam.ID).Attempt

	f.advance(31 * time.Minute)
	n, err := f.attempts.ExpireOverdue(f.ctx, 10)
	if err != nil {
		t.Fatalf("ExpireOverdue() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("ExpireOverdue() = %d, want 1", n)
	}
	got, _ := f.store.Attempts().GetByID(f.ctx, late.ID, repository.LockNone)
	if got.Status != model.AttemptAutoSubmitted {
		t.Fatalf("overdue attempt status = %q", got.Status)
	}
	still, _ := f.store.Attempts().GetByID(f.ctx, fresh.ID, repository.LockNone)
	if still.Status != model.AttemptInProgress {
		t.Fatalf("running attempt status = %q", still.Status)
	}
}

func TestResult_Visibility(t *testing.T) {
	f := newFixture(t)
	paper, items := f.fixedPaper(2)
	exam := f.liveExam(paper.ID, func(e *model.Exam) {
		e.ShowResultImmediately = false
		e.ShowAnswersAfterExam = true
	})
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt

	if _, err := f.attempts.Result(f.ctx, testUser, a.ID); !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("Result() on running attempt error = %v", err)
	}

	f.answer(testUser, a.ID, items[0].ID, "A")
	submitted, err := f.attempts.Submit(f.ctx, testUser, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if submitted.ScoreVisible || submitted.Attempt.Score != nil || submitted.Review != nil {
		t.Fatalf("score leaked before exam end: %+v", submitted)
	}

	f.advance(4 * time.Hour)
	res, err := f.attempts.Result(f.ctx, testUser, a.ID)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if !res.ScoreVisible || res.Attempt.Score == nil || res.Attempt.Score.ObtainedMarks != 1 {
		t.Fatalf("result after exam end = %+v", res)
	}
	if len(res.Review) != 2 || res.Review[0].CorrectOption != "A" || res.Review[1].IsCorrect != nil {
		t.Fatalf("review = %+v", res.Review)
	}
}

func TestTransition(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt
	if _, err := f.attempts.Submit(f.ctx, testUser, a.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.attempts.Transition(f.ctx, a.ID, model.AttemptInProgress); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("submitted -> in_progress error = %v", err)
	}
	got, err := f.attempts.Transition(f.ctx, a.ID, model.AttemptReviewPending)
	if err != nil || got.Status != model.AttemptReviewPending {
		t.Fatalf("submitted -> review_pending = %v, %v", got, err)
	}
	if _, err := f.attempts.Transition(f.ctx, a.ID, model.AttemptReviewed); err != nil {
		t.Fatalf("review_pending -> reviewed error = %v", err)
	}
}

func TestPaper_HidesAnswersAndShufflesPerAttempt(t *testing.T) {
	f := newFixture(t)
	f.bank(12, "physics")
	paper := f.randomPaper("physics", 10, true)
	exam := f.liveExam(paper.ID, nil)
	f.register(testUser, exam.ID)
	a := f.start(testUser, exam.ID).Attempt

	first, err := f.attempts.Paper(f.ctx, testUser, a.ID)
	if err != nil {
		t.Fatalf("Paper() error = %v", err)
	}
	second, _ := f.attempts.Paper(f.ctx, testUser, a.ID)
	if len(first.Items) != 10 {
		t.Fatalf("items = %d, want 10", len(first.Items))
	}
	for i := range first.Items {
		if first.Items[i].ItemID != second.Items[i].ItemID {
			t.Fatal("shuffled order changed between reads of the same attempt")
		}
		if first.Items[i].QuestionNumber != i+1 {
			t.Fatalf("presented number %d at position %d", first.Items[i].QuestionNumber, i)
		}
		if first.Items[i].Text == "" {
			t.Fatal("bank question text missing from view")
		}
	}
	if first.RemainingSeconds != 3600 {
		t.Fatalf("RemainingSeconds = %d", first.RemainingSeconds)
	}
}
