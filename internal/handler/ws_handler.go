package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/middleware"
	"github.com/stemsi/exstem-engine/internal/model"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
	ws "github.com/stemsi/exstem-engine/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams answers of one attempt over a WebSocket.
type WSHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream?token=...
// Accepts answer, submit and ping actions for an in-progress attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	// Reject before upgrading so plain HTTP clients get a proper status
	if _, err := h.attempts.Active(c.Request.Context(), claims.UserID, attemptID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID
	wsLog := h.log.With().
		Int("user_id", userID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")
	stream := ws.NewStream(conn, ws.PingPeriod)
	defer stream.Stop()

	// Service calls share the upgrade request's lifetime, which ends when
	// this handler returns or the server shuts down.
	ctx := c.Request.Context()

	for {
		msg, err := stream.Next()
		if err != nil {
			if ws.IsClientGone(err) {
				wsLog.Debug().Msg("Connection closed")
			} else {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, stream, userID, attemptID, msg)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, stream, wsLog, userID, attemptID) {
				stream.Finish("attempt finalized")
				return
			}
		case ws.ActionPing:
			_ = stream.Send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = stream.Fail(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

// handleAnswer records one answer through the lifecycle manager.
func (h *WSHandler) handleAnswer(ctx context.Context, stream *ws.Stream, userID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	itemID, err := uuid.Parse(msg.ItemID)
	if err != nil {
		_ = stream.Fail(string(response.ErrInvalidID), "invalid item_id format")
		return
	}

	req := model.RecordAnswerRequest{
		SelectedOption: msg.SelectedOption,
		TimeSpent:      msg.TimeSpent,
		Flagged:        msg.Flagged,
	}
	answer, err := h.attempts.RecordAnswer(ctx, userID, attemptID, itemID, req)
	if err != nil {
		h.writeServiceError(stream, err)
		return
	}

	_ = stream.Send(ws.SavedResponse{
		Event:      ws.EventSaved,
		ItemID:     itemID.String(),
		AnsweredAt: answer.AnsweredAt,
	})
}

// handleSubmit finalizes the attempt. It reports whether the stream should close.
func (h *WSHandler) handleSubmit(ctx context.Context, stream *ws.Stream, wsLog zerolog.Logger, userID int, attemptID uuid.UUID) bool {
	res, err := h.attempts.Submit(ctx, userID, attemptID)
	if err != nil {
		h.writeServiceError(stream, err)
		return false
	}

	wsLog.Info().Str("status", string(res.Attempt.Status)).Msg("Attempt submitted over stream")
	_ = stream.Send(ws.SubmittedResponse{Event: ws.EventSubmitted, Result: res})
	return true
}

func (h *WSHandler) writeServiceError(stream *ws.Stream, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Stream action failed")
	}
	_ = stream.Fail(string(code), response.GetMessage(code))
}
