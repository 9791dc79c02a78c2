package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/middleware"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
	"github.com/stemsi/exstem-engine/internal/validator"
)

// AttemptHandler handles candidate-facing attempt endpoints.
type AttemptHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// Eligibility godoc
// GET /api/v1/student/exams/:exam_id/eligibility
// Reports whether the candidate can start or resume without changing anything.
func (h *AttemptHandler) Eligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	decision, err := h.attempts.EvaluateStart(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, decision)
}

// Start godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Starts a new attempt or resumes the active one.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	res, err := h.attempts.Start(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, res)
}

// Status godoc
// GET /api/v1/student/exams/:exam_id/attempts/:attempt_id
func (h *AttemptHandler) Status(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.attempts.Status(c.Request.Context(), claims.UserID, examID, attemptID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Paper godoc
// GET /api/v1/student/attempts/:attempt_id/paper
// Returns the questions of an active attempt without correct answers.
func (h *AttemptHandler) Paper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	paper, err := h.attempts.Paper(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// RecordAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers/:item_id
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(c, "item_id")
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, response.WithFields(fields))
		return
	}

	answer, err := h.attempts.RecordAnswer(c.Request.Context(), claims.UserID, attemptID, itemID, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Scores and finalizes the attempt. Repeated calls return the stored result.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	res, err := h.attempts.Submit(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Result godoc
// GET /api/v1/student/attempts/:attempt_id/result
func (h *AttemptHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	res, err := h.attempts.Result(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// parseUUIDParam reads a UUID path parameter, answering 400 when malformed.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
