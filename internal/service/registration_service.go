package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/eligibility"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationService enrolls users into exams.
type RegistrationService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(store repository.Store, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		store: store,
		log:   log.With().Str("component", "registration_service").Logger(),
	}
}

// HashEntryToken hashes an exam entry token for storage.
func HashEntryToken(token string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	return string(hash), err
}

// Register creates the registration of userID at examID. Open exams approve
// immediately, token exams approve when entryToken matches, and approval
// exams start pending.
func (s *RegistrationService) Register(ctx context.Context, userID int, examID uuid.UUID, entryToken string) (*model.ExamRegistration, error) {
	exam, err := s.store.Exams().GetByID(ctx, examID)
	if err != nil {
		return nil, notFound(err)
	}
	switch exam.Status {
	case model.ExamStatusCompleted, model.ExamStatusCancelled, model.ExamStatusArchived, model.ExamStatusDraft:
		return nil, &EligibilityError{Reason: eligibility.ReasonNotAvailable}
	}

	reg := &model.ExamRegistration{ExamID: examID, UserID: userID}
	switch exam.AccessType {
	case model.AccessTypeToken:
		if entryToken == "" || bcrypt.CompareHashAndPassword([]byte(exam.EntryTokenHash), []byte(entryToken)) != nil {
			return nil, ErrInvalidEntryToken
		}
		reg.Status = model.RegistrationApproved
	case model.AccessTypeApproval:
		reg.Status = model.RegistrationPending
	default:
		reg.Status = model.RegistrationApproved
	}

	if err := s.store.Registrations().Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.log.Info().Int("user_id", userID).Str("exam_id", examID.String()).
		Str("status", string(reg.Status)).Msg("User registered for exam")
	return reg, nil
}

// SetStatus approves or rejects the registration of userID at examID.
func (s *RegistrationService) SetStatus(ctx context.Context, userID int, examID uuid.UUID, status model.RegistrationStatus) (*model.ExamRegistration, error) {
	var reg *model.ExamRegistration
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		reg, err = tx.Registrations().GetByUserAndExam(ctx, userID, examID, repository.LockUpdate)
		if err != nil {
			return notFound(err)
		}
		if err := tx.Registrations().UpdateStatus(ctx, reg.ID, status); err != nil {
			return notFound(err)
		}
		reg.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}
