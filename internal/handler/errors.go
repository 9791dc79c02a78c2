package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
)

// classify maps a service error onto an HTTP status and error code.
func classify(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrInvalidEntryToken):
		return http.StatusForbidden, response.ErrInvalidEntryToken
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.ErrForbidden
	case errors.Is(err, service.ErrNotEligible):
		return http.StatusForbidden, response.ErrNotEligible
	case errors.Is(err, service.ErrAttemptNotActive):
		return http.StatusConflict, response.ErrAttemptNotActive
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, response.ErrInvalidTransition
	case errors.Is(err, service.ErrAlreadyRegistered):
		return http.StatusConflict, response.ErrAlreadyRegistered
	case errors.Is(err, service.ErrPaperInUse):
		return http.StatusConflict, response.ErrPaperInUse
	case errors.Is(err, service.ErrConflictRace):
		return http.StatusConflict, response.ErrConflict
	case errors.Is(err, service.ErrInvalidAnswer):
		return http.StatusBadRequest, response.ErrInvalidAnswer
	case errors.Is(err, service.ErrInsufficientQuestions):
		return http.StatusUnprocessableEntity, response.ErrInsufficientQuestions
	case errors.Is(err, service.ErrNotRandomPaper):
		return http.StatusUnprocessableEntity, response.ErrNotRandomPaper
	case errors.Is(err, service.ErrNoCriteria):
		return http.StatusUnprocessableEntity, response.ErrNoCriteria
	case errors.Is(err, service.ErrScoring):
		return http.StatusInternalServerError, response.ErrScoring
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failFromError writes the failure response for a service error. Internal
// errors are logged and never echoed to the client.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	var elig *service.EligibilityError
	if errors.As(err, &elig) {
		response.Fail(c, status, code, response.WithReason(elig.Reason, elig.RetryAfter))
		return
	}
	response.Fail(c, status, code)
}
