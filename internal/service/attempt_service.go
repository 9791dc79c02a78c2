package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/eligibility"
	"github.com/stemsi/exstem-engine/internal/materialize"
	"github.com/stemsi/exstem-engine/internal/metrics"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository"
	"github.com/stemsi/exstem-engine/internal/scoring"
)

// AttemptService drives the attempt lifecycle: start or resume, answer
// recording, submission, timeouts and result delivery.
type AttemptService struct {
	store          repository.Store
	papers         *PaperService
	results        ResultPublisher
	events         EventPublisher
	defaultPenalty float64
	log            zerolog.Logger
	now            func() time.Time
}

// NewAttemptService creates a new AttemptService. results and events may be nil.
func NewAttemptService(
	store repository.Store,
	papers *PaperService,
	results ResultPublisher,
	events EventPublisher,
	defaultPenalty float64,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		store:          store,
		papers:         papers,
		results:        results,
		events:         events,
		defaultPenalty: defaultPenalty,
		log:            log.With().Str("component", "attempt_service").Logger(),
		now:            time.Now,
	}
}

// StartResult is the outcome of a successful start or resume.
type StartResult struct {
	Attempt *model.ExamAttempt `json:"attempt"`
	Answers []model.UserAnswer `json:"answers,omitempty"`
	Resumed bool               `json:"resumed"`
}

// AttemptStatusView is an attempt together with its exam.
type AttemptStatusView struct {
	Attempt   *model.ExamAttempt `json:"attempt"`
	Exam      *model.Exam        `json:"exam"`
	CanResume bool               `json:"can_resume"`
}

// PaperView is the question set presented to a candidate.
type PaperView struct {
	AttemptID        uuid.UUID             `json:"attempt_id"`
	ScheduledEndAt   *time.Time            `json:"scheduled_end_at"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	Items            []model.PaperItemView `json:"items"`
	Answers          []model.UserAnswer    `json:"answers"`
}

// ReviewItem is one graded question shown after the exam when answers are released.
type ReviewItem struct {
	ItemID         uuid.UUID `json:"item_id"`
	QuestionNumber int       `json:"question_number"`
	SelectedOption *string   `json:"selected_option"`
	CorrectOption  string    `json:"correct_option"`
	IsCorrect      *bool     `json:"is_correct"`
	MarksObtained  float64   `json:"marks_obtained"`
	NegativeMarks  float64   `json:"negative_marks"`
	Explanation    string    `json:"explanation,omitempty"`
}

// AttemptResult is a finalized attempt filtered by the exam's visibility rules.
type AttemptResult struct {
	Attempt      *model.ExamAttempt `json:"attempt"`
	ScoreVisible bool               `json:"score_visible"`
	Review       []ReviewItem       `json:"review,omitempty"`
}

// txOutcome collects side effects to run once a transaction has committed.
type txOutcome struct {
	finalized []*model.ExamAttempt
	events    []model.MonitorEvent
}

func (o *txOutcome) reset() { *o = txOutcome{} }

// ─── Start / Resume ─────────────────────────────────────────────

// Start evaluates eligibility and either resumes the user's active attempt or
// creates a new one. Rejections are returned as *EligibilityError.
func (s *AttemptService) Start(ctx context.Context, userID int, examID uuid.UUID) (*StartResult, error) {
	res, err := s.startOnce(ctx, userID, examID)
	if errors.Is(err, ErrConflictRace) {
		// The competing request committed its attempt; this pass resumes it.
		s.log.Debug().Int("user_id", userID).Str("exam_id", examID.String()).Msg("Start lost creation race, resuming")
		res, err = s.startOnce(ctx, userID, examID)
		if errors.Is(err, ErrConflictRace) {
			return nil, err
		}
	}
	return res, err
}

func (s *AttemptService) startOnce(ctx context.Context, userID int, examID uuid.UUID) (*StartResult, error) {
	now := s.now()
	var (
		res       *StartResult
		rejection *EligibilityError
		out       txOutcome
	)

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		out.reset()
		res, rejection = nil, nil

		exam, err := tx.Exams().GetByID(ctx, examID)
		if err != nil {
			return notFound(err)
		}
		if err := s.completeIfEnded(ctx, tx, exam, now); err != nil {
			return err
		}

		reg, err := tx.Registrations().GetByUserAndExam(ctx, userID, examID, repository.LockUpdate)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("load registration: %w", err)
		}

		active, err := tx.Attempts().FindActive(ctx, userID, examID, repository.LockUpdate)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("load active attempt: %w", err)
		}
		if active != nil && active.Status == model.AttemptInProgress && active.IsExpired(now) {
			if err := s.finalize(ctx, tx, exam, active, model.AttemptTimedOut, now); err != nil {
				return err
			}
			out.finalized = append(out.finalized, active)
			active = nil
		}

		count, err := tx.Attempts().CountByUserAndExam(ctx, userID, examID)
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}

		decision := eligibility.Evaluate(eligibility.Input{
			Exam:          exam,
			Registration:  reg,
			AttemptCount:  count,
			ActiveAttempt: active,
		}, now)

		switch decision.Action {
		case eligibility.ActionReject:
			// Returned as a value so implicit completion and lazy timeouts still commit.
			rejection = &EligibilityError{Reason: decision.Reason, RetryAfter: decision.RetryAfter}
			return nil

		case eligibility.ActionResume:
			answers, err := tx.Answers().ListByAttempt(ctx, active.ID)
			if err != nil {
				return fmt.Errorf("list answers: %w", err)
			}
			res = &StartResult{Attempt: active, Answers: answers, Resumed: true}
			out.events = append(out.events, monitorEvent(model.MonitorAttemptResumed, active, now))
			return nil
		}

		if err := s.papers.ensureMaterialized(ctx, tx, exam.QuestionPaperID); err != nil {
			return err
		}

		attempt := &model.ExamAttempt{
			ExamID:          examID,
			UserID:          userID,
			RegistrationID:  reg.ID,
			QuestionPaperID: exam.QuestionPaperID,
		}
		if err := tx.Attempts().Create(ctx, attempt); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrConflictRace
			}
			return fmt.Errorf("create attempt: %w", err)
		}

		end := now.Add(exam.Duration())
		if end.After(exam.ScheduledEnd) {
			end = exam.ScheduledEnd
		}
		if err := tx.Attempts().Activate(ctx, attempt.ID, now, end); err != nil {
			return fmt.Errorf("activate attempt: %w", err)
		}
		attempt.Status = model.AttemptInProgress
		attempt.StartedAt = &now
		attempt.ScheduledEndAt = &end

		if err := tx.Registrations().RecordAttempt(ctx, reg.ID, now); err != nil {
			return fmt.Errorf("record attempt on registration: %w", err)
		}

		res = &StartResult{Attempt: attempt}
		out.events = append(out.events, monitorEvent(model.MonitorAttemptStarted, attempt, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, &out)

	if rejection != nil {
		metrics.AttemptsStarted.WithLabelValues(string(eligibility.ActionReject)).Inc()
		metrics.EligibilityRejections.WithLabelValues(rejection.Reason).Inc()
		return nil, rejection
	}
	if res.Resumed {
		metrics.AttemptsStarted.WithLabelValues(string(eligibility.ActionResume)).Inc()
	} else {
		metrics.AttemptsStarted.WithLabelValues(string(eligibility.ActionStart)).Inc()
		s.log.Info().Int("user_id", userID).Str("exam_id", examID.String()).
			Str("attempt_id", res.Attempt.ID.String()).Msg("Attempt started")
	}
	return res, nil
}

// completeIfEnded flips a live exam to completed once its window has closed.
// Losing the update to a concurrent writer is fine; any other failure has
// poisoned the transaction and is returned.
func (s *AttemptService) completeIfEnded(ctx context.Context, tx repository.Store, exam *model.Exam, now time.Time) error {
	if !exam.HasEnded(now) {
		return nil
	}
	if exam.Status != model.ExamStatusLive && exam.Status != model.ExamStatusInProgress {
		return nil
	}
	err := tx.Exams().UpdateStatus(ctx, exam.ID, exam.Status, model.ExamStatusCompleted)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil
	case err != nil:
		return fmt.Errorf("complete ended exam: %w", err)
	}
	exam.Status = model.ExamStatusCompleted
	return nil
}

// EvaluateStart reports what Start would do without changing anything.
func (s *AttemptService) EvaluateStart(ctx context.Context, userID int, examID uuid.UUID) (eligibility.Decision, error) {
	now := s.now()
	exam, err := s.store.Exams().GetByID(ctx, examID)
	if err != nil {
		return eligibility.Decision{}, notFound(err)
	}
	reg, err := s.store.Registrations().GetByUserAndExam(ctx, userID, examID, repository.LockNone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return eligibility.Decision{}, err
	}
	active, err := s.store.Attempts().FindActive(ctx, userID, examID, repository.LockNone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return eligibility.Decision{}, err
	}
	if active != nil && active.IsExpired(now) {
		active = nil
	}
	count, err := s.store.Attempts().CountByUserAndExam(ctx, userID, examID)
	if err != nil {
		return eligibility.Decision{}, err
	}
	return eligibility.Evaluate(eligibility.Input{
		Exam:          exam,
		Registration:  reg,
		AttemptCount:  count,
		ActiveAttempt: active,
	}, now), nil
}

// ─── Answers ────────────────────────────────────────────────────

var errExpired = errors.New("attempt expired")

// RecordAnswer upserts the answer of one paper item. Correctness is not
// evaluated here. An attempt past its scheduled end is timed out and the
// write rejected.
func (s *AttemptService) RecordAnswer(ctx context.Context, userID int, attemptID, itemID uuid.UUID, req model.RecordAnswerRequest) (*model.UserAnswer, error) {
	var selected *string
	if req.SelectedOption != nil {
		key, ok := model.NormalizeOption(*req.SelectedOption)
		if !ok {
			return nil, ErrInvalidAnswer
		}
		if key != "" {
			selected = &key
		}
	}

	now := s.now()
	var (
		answer  *model.UserAnswer
		attempt *model.ExamAttempt
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		attempt, err = s.ownedAttempt(ctx, tx, userID, attemptID, repository.LockShare)
		if err != nil {
			return err
		}
		if attempt.Status != model.AttemptInProgress {
			return ErrAttemptNotActive
		}
		if attempt.IsExpired(now) {
			return errExpired
		}
		if _, err := tx.Papers().GetItem(ctx, attempt.QuestionPaperID, itemID); err != nil {
			return notFound(err)
		}

		answer = &model.UserAnswer{
			AttemptID:           attemptID,
			QuestionPaperItemID: itemID,
			SelectedOption:      selected,
			TimeSpentSeconds:    req.TimeSpent,
			AnsweredAt:          now,
			IsFlagged:           req.Flagged,
		}
		return tx.Answers().Upsert(ctx, answer)
	})
	if errors.Is(err, errExpired) {
		if _, ferr := s.ForceTimeout(ctx, attemptID, model.AttemptTimedOut); ferr != nil && !errors.Is(ferr, ErrAttemptNotActive) {
			s.log.Error().Err(ferr).Str("attempt_id", attemptID.String()).Msg("Lazy timeout failed")
		}
		return nil, ErrAttemptNotActive
	}
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, monitorEvent(model.MonitorAnswerSaved, attempt, now))
	return answer, nil
}

// ─── Submit / Timeout ───────────────────────────────────────────

// Submit scores and finalizes the attempt. Calling it on an already
// finalized attempt returns the stored result without re-scoring. A submit
// after the scheduled end plus the exam's buffer is recorded as timed_out.
func (s *AttemptService) Submit(ctx context.Context, userID int, attemptID uuid.UUID) (*AttemptResult, error) {
	now := s.now()
	var (
		attempt *model.ExamAttempt
		exam    *model.Exam
		out     txOutcome
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		out.reset()
		var err error
		attempt, err = s.ownedAttempt(ctx, tx, userID, attemptID, repository.LockUpdate)
		if err != nil {
			return err
		}
		exam, err = tx.Exams().GetByID(ctx, attempt.ExamID)
		if err != nil {
			return notFound(err)
		}
		if attempt.Status.IsTerminal() {
			return nil
		}
		if attempt.Status != model.AttemptInProgress {
			return ErrAttemptNotActive
		}

		status := model.AttemptSubmitted
		if attempt.ScheduledEndAt != nil && now.After(attempt.ScheduledEndAt.Add(exam.Buffer())) {
			status = model.AttemptTimedOut
		}
		if err := s.finalize(ctx, tx, exam, attempt, status, now); err != nil {
			return err
		}
		out.finalized = append(out.finalized, attempt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, &out)

	return s.buildResult(ctx, exam, attempt, now)
}

// ForceTimeout finalizes an overdue in_progress attempt with status, which
// must be timed_out or auto_submitted. An attempt that is already terminal is
// returned unchanged.
func (s *AttemptService) ForceTimeout(ctx context.Context, attemptID uuid.UUID, status model.AttemptStatus) (*model.ExamAttempt, error) {
	if status != model.AttemptTimedOut && status != model.AttemptAutoSubmitted {
		return nil, ErrInvalidTransition
	}
	now := s.now()
	var (
		attempt *model.ExamAttempt
		out     txOutcome
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		out.reset()
		var err error
		attempt, err = tx.Attempts().GetByID(ctx, attemptID, repository.LockUpdate)
		if err != nil {
			return notFound(err)
		}
		if attempt.Status.IsTerminal() {
			return nil
		}
		if attempt.Status != model.AttemptInProgress || !attempt.IsExpired(now) {
			return ErrAttemptNotActive
		}
		exam, err := tx.Exams().GetByID(ctx, attempt.ExamID)
		if err != nil {
			return notFound(err)
		}
		if err := s.finalize(ctx, tx, exam, attempt, status, now); err != nil {
			return err
		}
		out.finalized = append(out.finalized, attempt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, &out)
	return attempt, nil
}

// ExpireOverdue auto-submits up to limit overdue attempts and returns how
// many were finalized.
func (s *AttemptService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.store.Attempts().ListOverdue(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue attempts: %w", err)
	}

	done := 0
	for _, a := range overdue {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		got, err := s.ForceTimeout(ctx, a.ID, model.AttemptAutoSubmitted)
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to auto-submit overdue attempt")
			continue
		}
		if got.Status == model.AttemptAutoSubmitted {
			done++
		}
	}
	return done, nil
}

// finalize scores attempt and moves it from in_progress to status within tx.
// It mutates attempt to reflect the persisted state.
func (s *AttemptService) finalize(ctx context.Context, tx repository.Store, exam *model.Exam, attempt *model.ExamAttempt, status model.AttemptStatus, now time.Time) error {
	items, err := tx.Papers().ListItems(ctx, attempt.QuestionPaperID)
	if err != nil {
		return fmt.Errorf("list paper items: %w", err)
	}
	answers, err := tx.Answers().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}
	bank, err := tx.Questions().GetByIDs(ctx, questionIDs(items))
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	cfg := scoring.ConfigFromExam(exam)
	if cfg.AllowNegativeMarking && cfg.NegativeMarkingPerQuestion <= 0 {
		cfg.NegativeMarkingPerQuestion = s.defaultPenalty
	}
	started := time.Now()
	result, err := scoring.Score(answers, items, bank, cfg)
	metrics.ScoringDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Str("exam_id", exam.ID.String()).
			Msg("Scoring failed, attempt left in progress")
		return fmt.Errorf("%w: %v", ErrScoring, err)
	}

	end := now
	if status != model.AttemptSubmitted && attempt.ScheduledEndAt != nil && attempt.ScheduledEndAt.Before(now) {
		end = *attempt.ScheduledEndAt
	}
	spent := 0
	if attempt.StartedAt != nil && end.After(*attempt.StartedAt) {
		spent = int(end.Sub(*attempt.StartedAt).Seconds())
	}

	next := *attempt
	next.Status = status
	next.SubmittedAt = &now
	next.TimeSpentSeconds = spent
	next.Score = result.AttemptScore()
	if err := tx.Attempts().Finalize(ctx, &next, model.AttemptInProgress); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAttemptNotActive
		}
		return fmt.Errorf("finalize attempt: %w", err)
	}

	if err := tx.Answers().SaveScores(ctx, scoredAnswers(attempt.ID, answers, result, now)); err != nil {
		return fmt.Errorf("save answer scores: %w", err)
	}

	*attempt = next
	return nil
}

func scoredAnswers(attemptID uuid.UUID, answers []model.UserAnswer, result *scoring.Result, now time.Time) []model.UserAnswer {
	byItem := make(map[uuid.UUID]model.UserAnswer, len(answers))
	for _, a := range answers {
		byItem[a.QuestionPaperItemID] = a
	}
	out := make([]model.UserAnswer, 0, len(result.Items))
	for _, ir := range result.Items {
		a, ok := byItem[ir.ItemID]
		if !ok {
			a = model.UserAnswer{AttemptID: attemptID, QuestionPaperItemID: ir.ItemID, AnsweredAt: now}
		}
		a.IsCorrect = nil
		if ir.Answered {
			correct := ir.IsCorrect
			a.IsCorrect = &correct
		}
		a.MarksObtained = ir.MarksObtained
		a.NegativeMarks = ir.NegativeMarks
		out = append(out, a)
	}
	return out
}

// ─── Reads ──────────────────────────────────────────────────────

// Status returns the attempt with its exam. Reading an overdue attempt times it out.
func (s *AttemptService) Status(ctx context.Context, userID int, examID, attemptID uuid.UUID) (*AttemptStatusView, error) {
	attempt, err := s.ownedAttempt(ctx, s.store, userID, attemptID, repository.LockNone)
	if err != nil {
		return nil, err
	}
	if attempt.ExamID != examID {
		return nil, ErrNotFound
	}
	attempt, err = s.expireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	exam, err := s.store.Exams().GetByID(ctx, examID)
	if err != nil {
		return nil, notFound(err)
	}

	now := s.now()
	return &AttemptStatusView{
		Attempt:   s.visibleAttempt(exam, attempt, now),
		Exam:      exam,
		CanResume: !attempt.Status.IsTerminal() && !attempt.IsExpired(now),
	}, nil
}

// Active returns the in_progress attempt attemptID of userID, timing it out
// first when overdue.
func (s *AttemptService) Active(ctx context.Context, userID int, attemptID uuid.UUID) (*model.ExamAttempt, error) {
	attempt, err := s.ownedAttempt(ctx, s.store, userID, attemptID, repository.LockNone)
	if err != nil {
		return nil, err
	}
	attempt, err = s.expireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}
	return attempt, nil
}

// Paper returns the question set of an active attempt without correct answers.
func (s *AttemptService) Paper(ctx context.Context, userID int, attemptID uuid.UUID) (*PaperView, error) {
	attempt, err := s.Active(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	paper, err := s.store.Papers().GetByID(ctx, attempt.QuestionPaperID, repository.LockNone)
	if err != nil {
		return nil, notFound(err)
	}
	views, err := s.papers.StudentItems(ctx, paper.ID)
	if err != nil {
		return nil, err
	}
	if paper.ShuffleQuestions {
		views = materialize.AttemptOrder(attempt.ID, views)
		for i := range views {
			views[i].QuestionNumber = i + 1
		}
	}

	answers, err := s.store.Answers().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	remaining := 0
	if attempt.ScheduledEndAt != nil {
		remaining = int(attempt.ScheduledEndAt.Sub(s.now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
	}
	return &PaperView{
		AttemptID:        attempt.ID,
		ScheduledEndAt:   attempt.ScheduledEndAt,
		RemainingSeconds: remaining,
		Items:            views,
		Answers:          answers,
	}, nil
}

// Result returns the finalized result of an attempt, filtered by the exam's
// visibility flags.
func (s *AttemptService) Result(ctx context.Context, userID int, attemptID uuid.UUID) (*AttemptResult, error) {
	attempt, err := s.ownedAttempt(ctx, s.store, userID, attemptID, repository.LockNone)
	if err != nil {
		return nil, err
	}
	attempt, err = s.expireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if !attempt.Status.IsTerminal() {
		return nil, ErrAttemptNotActive
	}
	exam, err := s.store.Exams().GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.buildResult(ctx, exam, attempt, s.now())
}

func (s *AttemptService) buildResult(ctx context.Context, exam *model.Exam, attempt *model.ExamAttempt, now time.Time) (*AttemptResult, error) {
	res := &AttemptResult{
		Attempt:      s.visibleAttempt(exam, attempt, now),
		ScoreVisible: scoreVisible(exam, now),
	}
	if !exam.ShowAnswersAfterExam || !exam.HasEnded(now) || attempt.Score == nil {
		return res, nil
	}

	items, err := s.store.Papers().ListItems(ctx, attempt.QuestionPaperID)
	if err != nil {
		return nil, fmt.Errorf("list paper items: %w", err)
	}
	answers, err := s.store.Answers().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	bank, err := s.store.Questions().GetByIDs(ctx, questionIDs(items))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byItem := make(map[uuid.UUID]model.UserAnswer, len(answers))
	for _, a := range answers {
		byItem[a.QuestionPaperItemID] = a
	}

	for _, it := range items {
		ri := ReviewItem{ItemID: it.ID, QuestionNumber: it.QuestionNumber, CorrectOption: it.CustomCorrectAnswer}
		if !it.IsCustom && it.QuestionID != nil {
			q := bank[*it.QuestionID]
			ri.CorrectOption = q.CorrectOption
			ri.Explanation = q.Explanation
		}
		if a, ok := byItem[it.ID]; ok {
			ri.SelectedOption = a.SelectedOption
			ri.IsCorrect = a.IsCorrect
			ri.MarksObtained = a.MarksObtained
			ri.NegativeMarks = a.NegativeMarks
		}
		res.Review = append(res.Review, ri)
	}
	return res, nil
}

func scoreVisible(exam *model.Exam, now time.Time) bool {
	return exam.ShowResultImmediately || exam.HasEnded(now)
}

// visibleAttempt hides the score while results are withheld.
func (s *AttemptService) visibleAttempt(exam *model.Exam, attempt *model.ExamAttempt, now time.Time) *model.ExamAttempt {
	if scoreVisible(exam, now) || attempt.Score == nil {
		return attempt
	}
	hidden := *attempt
	hidden.Score = nil
	return &hidden
}

// expireIfDue times out an overdue in_progress attempt and returns its latest state.
func (s *AttemptService) expireIfDue(ctx context.Context, attempt *model.ExamAttempt) (*model.ExamAttempt, error) {
	if attempt.Status != model.AttemptInProgress || !attempt.IsExpired(s.now()) {
		return attempt, nil
	}
	updated, err := s.ForceTimeout(ctx, attempt.ID, model.AttemptTimedOut)
	if err != nil && !errors.Is(err, ErrAttemptNotActive) {
		return nil, err
	}
	if updated == nil {
		return attempt, nil
	}
	return updated, nil
}

// ─── Admin ──────────────────────────────────────────────────────

// Transition moves an attempt along the review and disqualification paths.
// Disqualified attempts keep whatever score they had and are never scored afterwards.
func (s *AttemptService) Transition(ctx context.Context, attemptID uuid.UUID, to model.AttemptStatus) (*model.ExamAttempt, error) {
	now := s.now()
	var attempt *model.ExamAttempt
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		attempt, err = tx.Attempts().GetByID(ctx, attemptID, repository.LockUpdate)
		if err != nil {
			return notFound(err)
		}
		if !model.CanTransition(attempt.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, attempt.Status, to)
		}
		if err := tx.Attempts().UpdateStatus(ctx, attemptID, attempt.Status, to); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInvalidTransition
			}
			return err
		}
		attempt.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	if to == model.AttemptDisqualified {
		metrics.AttemptsFinalized.WithLabelValues(string(to)).Inc()
	}
	s.log.Info().Str("attempt_id", attemptID.String()).Str("status", string(to)).Msg("Attempt transitioned")
	s.publishEvent(ctx, monitorEvent(model.MonitorAttemptTransitioned, attempt, now))
	return attempt, nil
}

// ─── Helpers ────────────────────────────────────────────────────

// ownedAttempt loads an attempt and hides attempts of other users as not found.
func (s *AttemptService) ownedAttempt(ctx context.Context, st repository.Store, userID int, attemptID uuid.UUID, lock repository.LockMode) (*model.ExamAttempt, error) {
	attempt, err := st.Attempts().GetByID(ctx, attemptID, lock)
	if err != nil {
		return nil, notFound(err)
	}
	if attempt.UserID != userID {
		return nil, ErrNotFound
	}
	return attempt, nil
}

func (s *AttemptService) afterCommit(ctx context.Context, out *txOutcome) {
	for _, a := range out.finalized {
		metrics.AttemptsFinalized.WithLabelValues(string(a.Status)).Inc()
		s.log.Info().Str("attempt_id", a.ID.String()).Str("status", string(a.Status)).
			Float64("final_score", a.Score.FinalScore).Msg("Attempt finalized")
		if s.results != nil {
			ev := model.ResultEvent{
				AttemptID:   a.ID,
				ExamID:      a.ExamID,
				UserID:      a.UserID,
				Status:      a.Status,
				FinalScore:  a.Score.FinalScore,
				Percentage:  a.Score.Percentage,
				SubmittedAt: *a.SubmittedAt,
			}
			if err := s.results.PublishResult(ctx, ev); err != nil {
				s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to publish result")
			}
		}
		s.publishEvent(ctx, monitorEvent(model.MonitorAttemptFinalized, a, *a.SubmittedAt))
	}
	for _, ev := range out.events {
		s.publishEvent(ctx, ev)
	}
}

func (s *AttemptService) publishEvent(ctx context.Context, ev model.MonitorEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		s.log.Debug().Err(err).Str("type", string(ev.Type)).Msg("Monitor event dropped")
	}
}

func monitorEvent(t model.MonitorEventType, a *model.ExamAttempt, at time.Time) model.MonitorEvent {
	return model.MonitorEvent{
		Type:      t,
		ExamID:    a.ExamID,
		AttemptID: a.ID,
		UserID:    a.UserID,
		Status:    a.Status,
		At:        at,
	}
}

// MonitorSnapshot summarizes the attempts of an exam for live monitors.
type MonitorSnapshot struct {
	Exam   *model.Exam                 `json:"exam"`
	Counts map[model.AttemptStatus]int `json:"counts"`
}

// Snapshot returns the per-status attempt counts of an exam.
func (s *AttemptService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	exam, err := s.store.Exams().GetByID(ctx, examID)
	if err != nil {
		return nil, notFound(err)
	}
	counts, err := s.store.Attempts().CountByStatus(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	return &MonitorSnapshot{Exam: exam, Counts: counts}, nil
}
