package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
	"github.com/stemsi/exstem-engine/internal/validator"
)

// AdminHandler handles exam administration endpoints: paper generation and
// attempt review.
type AdminHandler struct {
	papers   *service.PaperService
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(papers *service.PaperService, attempts *service.AttemptService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		papers:   papers,
		attempts: attempts,
		log:      log.With().Str("component", "admin_handler").Logger(),
	}
}

// GeneratePaper godoc
// POST /api/v1/admin/papers/:paper_id/generate
// Regenerates a random paper from its stored criteria.
func (h *AdminHandler) GeneratePaper(c *gin.Context) {
	paperID, ok := parseUUIDParam(c, "paper_id")
	if !ok {
		return
	}

	var req model.GeneratePaperRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, response.WithFields(fields))
		return
	}

	items, err := h.papers.Materialize(c.Request.Context(), paperID, req.Seed)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

// PaperItems godoc
// GET /api/v1/admin/papers/:paper_id/items
// Lists the materialized items including correct answers.
func (h *AdminHandler) PaperItems(c *gin.Context) {
	paperID, ok := parseUUIDParam(c, "paper_id")
	if !ok {
		return
	}

	items, err := h.papers.Items(c.Request.Context(), paperID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	if items == nil {
		items = []model.QuestionPaperItem{}
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

// TransitionAttempt godoc
// PATCH /api/v1/admin/attempts/:attempt_id/status
func (h *AdminHandler) TransitionAttempt(c *gin.Context) {
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.TransitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, response.WithFields(fields))
		return
	}

	attempt, err := h.attempts.Transition(c.Request.Context(), attemptID, model.AttemptStatus(req.Status))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ExpireOverdue godoc
// POST /api/v1/admin/attempts/expire-overdue
// Runs one overdue sweep on demand.
func (h *AdminHandler) ExpireOverdue(c *gin.Context) {
	n, err := h.attempts.ExpireOverdue(c.Request.Context(), 500)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"auto_submitted": n})
}
