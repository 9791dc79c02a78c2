package response

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// ErrorBody never carries answer correctness; handlers only put codes,
// gate reasons and binding messages here.
type ErrorBody struct {
	Code       ErrCode           `json:"code"`
	Message    string            `json:"message"`
	Reason     string            `json:"reason,omitempty"`
	RetryAfter *time.Time        `json:"retry_after,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Metadata includes request tracing and timing.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// FailOption decorates an error body before it is written.
type FailOption func(c *gin.Context, body *ErrorBody)

// WithFields attaches field-level validation messages.
func WithFields(fields map[string]string) FailOption {
	return func(_ *gin.Context, body *ErrorBody) {
		body.Fields = fields
	}
}

// WithReason attaches an eligibility reason. A non-nil retryAfter is echoed
// in the Retry-After header as whole seconds from now.
func WithReason(reason string, retryAfter *time.Time) FailOption {
	return func(c *gin.Context, body *ErrorBody) {
		body.Reason = reason
		if retryAfter == nil {
			return
		}
		body.RetryAfter = retryAfter
		if secs := math.Ceil(time.Until(*retryAfter).Seconds()); secs > 0 {
			c.Header("Retry-After", strconv.Itoa(int(secs)))
		}
	}
}

// ─── Writers ───────────────────────────────────────────────────────

// Success sends a successful JSON response with the given status code and data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success:  true,
		Data:     data,
		Metadata: buildMetadata(c),
	})
}

// Fail sends an error envelope for code.
func Fail(c *gin.Context, statusCode int, code ErrCode, opts ...FailOption) {
	c.JSON(statusCode, failure(c, code, opts))
}

// AbortFail is Fail for middleware: the rest of the chain is skipped.
func AbortFail(c *gin.Context, statusCode int, code ErrCode, opts ...FailOption) {
	c.AbortWithStatusJSON(statusCode, failure(c, code, opts))
}

func failure(c *gin.Context, code ErrCode, opts []FailOption) Response {
	body := &ErrorBody{Code: code, Message: GetMessage(code)}
	for _, opt := range opts {
		opt(c, body)
	}
	return Response{Error: body, Metadata: buildMetadata(c)}
}

func buildMetadata(c *gin.Context) Metadata {
	id := RequestID(c)
	if id == "" {
		// route mounted without RequestIDMiddleware (tests)
		id = uuid.NewString()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
