package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/cache"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams attempt lifecycle events of an exam to proctors.
type MonitorHandler struct {
	bus      *cache.MonitorBus
	attempts *service.AttemptService
	log      zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. bus may be nil when Redis
// is not configured; the stream then answers 503.
func NewMonitorHandler(bus *cache.MonitorBus, attempts *service.AttemptService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		bus:      bus,
		attempts: attempts,
		log:      log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:exam_id/monitor
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	if h.bus == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrMonitorUnavailable)
		return
	}

	examID, ok := parseUUIDParam(c, "exam_id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	snapshot, err := h.attempts.Snapshot(reqCtx, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	// 1. SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 2. Initial snapshot
	c.SSEvent("message", gin.H{"type": "snapshot", "data": snapshot})
	c.Writer.Flush()

	// 3. Subscribe to Redis Pub/Sub
	pubsub := h.bus.Subscribe(reqCtx, examID)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refreshes until something happens on the exam
	dirty := false

	h.log.Info().Str("exam_id", examID.String()).Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON; forward as-is
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendRefresh(c, reqCtx, examID)
			dirty = false

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendRefresh re-reads the per-status counts and sends them as a compact event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.attempts.Snapshot(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to refresh monitor counts")
		return
	}

	c.SSEvent("message", gin.H{"type": "refresh", "counts": snapshot.Counts})
	c.Writer.Flush()
}
