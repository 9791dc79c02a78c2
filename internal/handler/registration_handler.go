package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/middleware"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
	"github.com/stemsi/exstem-engine/internal/validator"
)

// RegistrationHandler handles exam registration endpoints.
type RegistrationHandler struct {
	regs *service.RegistrationService
	log  zerolog.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(regs *service.RegistrationService, log zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		regs: regs,
		log:  log.With().Str("component", "registration_handler").Logger(),
	}
}

// Register godoc
// POST /api/v1/student/exams/:exam_id/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.RegisterRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, response.WithFields(fields))
		return
	}

	reg, err := h.regs.Register(c.Request.Context(), claims.UserID, examID, req.EntryToken)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"registration": reg})
}

// SetStatus godoc
// PATCH /api/v1/admin/exams/:exam_id/registrations/:user_id
// Approves or rejects a pending registration.
func (h *RegistrationHandler) SetStatus(c *gin.Context) {
	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || userID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateRegistrationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, response.WithFields(fields))
		return
	}

	reg, err := h.regs.SetStatus(c.Request.Context(), userID, examID, model.RegistrationStatus(req.Status))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"registration": reg})
}
