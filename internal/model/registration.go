package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus enumerates the approval states of an exam registration.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// ExamRegistration links a user to an exam. There is at most one per (user, exam).
type ExamRegistration struct {
	ID            uuid.UUID          `json:"id"`
	ExamID        uuid.UUID          `json:"exam_id"`
	UserID        int                `json:"user_id"`
	Status        RegistrationStatus `json:"status"`
	AttemptsUsed  int                `json:"attempts_used"`
	LastAttemptAt *time.Time         `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// RegisterRequest is the payload for registering to an exam.
type RegisterRequest struct {
	EntryToken string `json:"entry_token" binding:"omitempty,min=4,max=64"`
}

// UpdateRegistrationRequest is the admin payload for approving or rejecting a registration.
type UpdateRegistrationRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}
