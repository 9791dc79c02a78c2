package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/materialize"
	"github.com/stemsi/exstem-engine/internal/metrics"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository"
	"golang.org/x/sync/singleflight"
)

// ErrNotRandomPaper is returned when generation is requested for an authored paper.
var ErrNotRandomPaper = errors.New("question paper is not randomly generated")

// PaperService materializes question papers and serves their items.
type PaperService struct {
	store repository.Store
	cache PaperCache
	group singleflight.Group
	log   zerolog.Logger
	now   func() time.Time
}

// NewPaperService creates a new PaperService. cache may be nil.
func NewPaperService(store repository.Store, cache PaperCache, log zerolog.Logger) *PaperService {
	return &PaperService{
		store: store,
		cache: cache,
		log:   log.With().Str("component", "paper_service").Logger(),
		now:   time.Now,
	}
}

// Materialize regenerates the items of a random paper from its stored
// criteria. The previous item set is replaced atomically; on any failure it
// is left untouched.
func (s *PaperService) Materialize(ctx context.Context, paperID uuid.UUID, seed *int64) ([]model.QuestionPaperItem, error) {
	var items []model.QuestionPaperItem
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		paper, err := tx.Papers().GetByID(ctx, paperID, repository.LockUpdate)
		if err != nil {
			return notFound(err)
		}
		// Items are read-only while any candidate is sitting the paper.
		active, err := tx.Attempts().CountActiveByPaper(ctx, paperID)
		if err != nil {
			return fmt.Errorf("count active attempts: %w", err)
		}
		if active > 0 {
			return ErrPaperInUse
		}
		items, err = s.generate(ctx, tx, paper, materialize.NewRand(seed))
		return err
	})
	if err != nil {
		metrics.Materializations.WithLabelValues(materializeLabel(err)).Inc()
		return nil, err
	}
	metrics.Materializations.WithLabelValues("ok").Inc()

	s.invalidate(ctx, paperID)
	s.log.Info().Str("paper_id", paperID.String()).Int("items", len(items)).Msg("Question paper materialized")
	return items, nil
}

// ensureMaterialized generates a random paper the first time an attempt needs
// it. It runs inside the caller's transaction.
func (s *PaperService) ensureMaterialized(ctx context.Context, tx repository.Store, paperID uuid.UUID) error {
	paper, err := tx.Papers().GetByID(ctx, paperID, repository.LockNone)
	if err != nil {
		return notFound(err)
	}
	if paper.Mode != model.PaperModeRandom {
		return nil
	}
	if paper.MaterializedAt != nil {
		// Holds off a concurrent regeneration until this attempt is committed.
		_, err = tx.Papers().GetByID(ctx, paperID, repository.LockShare)
		return notFound(err)
	}

	// Re-check under the row lock; another start may have won.
	paper, err = tx.Papers().GetByID(ctx, paperID, repository.LockUpdate)
	if err != nil {
		return notFound(err)
	}
	if paper.MaterializedAt != nil {
		return nil
	}
	items, err := s.generate(ctx, tx, paper, materialize.NewRand(nil))
	if err != nil {
		metrics.Materializations.WithLabelValues(materializeLabel(err)).Inc()
		return err
	}
	metrics.Materializations.WithLabelValues("ok").Inc()
	s.log.Info().Str("paper_id", paperID.String()).Int("items", len(items)).Msg("Question paper materialized on first start")
	return nil
}

func (s *PaperService) generate(ctx context.Context, tx repository.Store, paper *model.QuestionPaper, rng *rand.Rand) ([]model.QuestionPaperItem, error) {
	if paper.Mode != model.PaperModeRandom {
		return nil, ErrNotRandomPaper
	}
	if paper.Criteria == nil {
		return nil, ErrNoCriteria
	}

	pool, err := tx.Questions().FindActive(ctx, paper.Criteria.Filter())
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	items, err := materialize.Generate(paper.ID, *paper.Criteria, pool, rng)
	if err != nil {
		return nil, err
	}
	if err := tx.Papers().ReplaceItems(ctx, paper.ID, items, s.now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPaperInUse
		}
		return nil, fmt.Errorf("replace items: %w", err)
	}
	return items, nil
}

// Items returns the full items of a paper, correct answers included.
func (s *PaperService) Items(ctx context.Context, paperID uuid.UUID) ([]model.QuestionPaperItem, error) {
	if _, err := s.store.Papers().GetByID(ctx, paperID, repository.LockNone); err != nil {
		return nil, notFound(err)
	}
	return s.store.Papers().ListItems(ctx, paperID)
}

// StudentItems returns the answer-free views of a paper, through the cache
// when one is configured. Concurrent misses for the same paper share one load.
func (s *PaperService) StudentItems(ctx context.Context, paperID uuid.UUID) ([]model.PaperItemView, error) {
	if s.cache != nil {
		views, ok, err := s.cache.GetItems(ctx, paperID)
		if err != nil {
			s.log.Warn().Err(err).Str("paper_id", paperID.String()).Msg("Paper cache read failed")
		} else if ok {
			return views, nil
		}
	}

	v, err, _ := s.group.Do(paperID.String(), func() (interface{}, error) {
		views, err := s.loadViews(ctx, paperID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetItems(ctx, paperID, views); err != nil {
				s.log.Warn().Err(err).Str("paper_id", paperID.String()).Msg("Paper cache write failed")
			}
		}
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.PaperItemView), nil
}

func (s *PaperService) loadViews(ctx context.Context, paperID uuid.UUID) ([]model.PaperItemView, error) {
	items, err := s.store.Papers().ListItems(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	bank, err := s.store.Questions().GetByIDs(ctx, questionIDs(items))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	views := make([]model.PaperItemView, 0, len(items))
	for _, it := range items {
		v := model.PaperItemView{
			ItemID:           it.ID,
			QuestionNumber:   it.QuestionNumber,
			Marks:            it.Marks,
			Section:          it.Section,
			TimeLimitSeconds: it.TimeLimitSeconds,
		}
		if it.IsCustom {
			v.Text = it.CustomText
			if it.CustomOptions != nil {
				v.Options = *it.CustomOptions
			}
		} else if it.QuestionID != nil {
			q, ok := bank[*it.QuestionID]
			if !ok {
				return nil, fmt.Errorf("item %d references missing question %s", it.QuestionNumber, it.QuestionID)
			}
			v.Text = q.Text
			v.Options = q.Options
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *PaperService) invalidate(ctx context.Context, paperID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, paperID); err != nil {
		s.log.Warn().Err(err).Str("paper_id", paperID.String()).Msg("Paper cache invalidation failed")
	}
}

func questionIDs(items []model.QuestionPaperItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if !it.IsCustom && it.QuestionID != nil {
			ids = append(ids, *it.QuestionID)
		}
	}
	return ids
}

func materializeLabel(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientQuestions):
		return "insufficient_questions"
	case errors.Is(err, ErrPaperInUse):
		return "paper_in_use"
	default:
		return "error"
	}
}

// notFound maps repository.ErrNotFound to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
