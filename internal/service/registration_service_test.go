package service

import (
	"errors"
	"testing"

	"github.com/stemsi/exstem-engine/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_AccessTypes(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)

	hash, err := HashEntryToken("open-sesame", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	open := f.liveExam(paper.ID, nil)
	token := f.liveExam(paper.ID, func(e *model.Exam) {
		e.AccessType = model.AccessTypeToken
		e.EntryTokenHash = hash
	})
	approval := f.liveExam(paper.ID, func(e *model.Exam) { e.AccessType = model.AccessTypeApproval })

	reg, err := f.regs.Register(f.ctx, testUser, open.ID, "")
	if err != nil || reg.Status != model.RegistrationApproved {
		t.Fatalf("open exam = %+v, %v", reg, err)
	}

	if _, err := f.regs.Register(f.ctx, testUser, token.ID, "wrong"); !errors.Is(err, ErrInvalidEntryToken) {
		t.Fatalf("wrong token error = %v", err)
	}
	if _, err := f.regs.Register(f.ctx, testUser, token.ID, ""); !errors.Is(err, ErrInvalidEntryToken) {
		t.Fatalf("missing token error = %v", err)
	}
	reg, err = f.regs.Register(f.ctx, testUser, token.ID, "open-sesame")
	if err != nil || reg.Status != model.RegistrationApproved {
		t.Fatalf("token exam = %+v, %v", reg, err)
	}

	reg, err = f.regs.Register(f.ctx, testUser, approval.ID, "")
	if err != nil || reg.Status != model.RegistrationPending {
		t.Fatalf("approval exam = %+v, %v", reg, err)
	}

	if _, err := f.regs.Register(f.ctx, testUser, open.ID, ""); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate registration error = %v", err)
	}
}

func TestRegister_ClosedExam(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	for _, status := range []model.ExamStatus{model.ExamStatusDraft, model.ExamStatusCompleted, model.ExamStatusCancelled, model.ExamStatusArchived} {
		exam := f.liveExam(paper.ID, func(e *model.Exam) { e.Status = status })
		if _, err := f.regs.Register(f.ctx, testUser, exam.ID, ""); !errors.Is(err, ErrNotEligible) {
			t.Errorf("%s exam error = %v, want ErrNotEligible", status, err)
		}
	}
}

func TestSetStatus_ApprovalUnlocksStart(t *testing.T) {
	f := newFixture(t)
	paper, _ := f.fixedPaper(1)
	exam := f.liveExam(paper.ID, func(e *model.Exam) { e.AccessType = model.AccessTypeApproval })
	f.register(testUser, exam.ID)

	if _, err := f.attempts.Start(f.ctx, testUser, exam.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("pending Start() error = %v, want ErrForbidden", err)
	}

	reg, err := f.regs.SetStatus(f.ctx, testUser, exam.ID, model.RegistrationApproved)
	if err != nil || reg.Status != model.RegistrationApproved {
		t.Fatalf("SetStatus() = %+v, %v", reg, err)
	}
	f.start(testUser, exam.ID)

	if _, err := f.regs.SetStatus(f.ctx, testUser+1, exam.ID, model.RegistrationApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown registration error = %v", err)
	}
}
