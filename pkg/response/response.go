// Package response writes the JSON envelopes returned by every endpoint.
package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/devtofunmi/fake-bank/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RetryAfterSeconds is advertised on retryable failures.
	RetryAfterSeconds = 1

	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"

	codeInternal = "SYS_000"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// PagedResponse is the envelope for paginated listings.
type PagedResponse struct {
	Data      any      `json:"data"`
	Meta      PageMeta `json:"meta"`
	RequestID string   `json:"request_id"`
	Timestamp string   `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	Status(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data any) {
	Status(c, http.StatusCreated, data)
}

// Status sends data in the success envelope with the given status code.
func Status(c *gin.Context, code int, data any) {
	id, ts := stamp(c)
	c.JSON(code, SuccessResponse{Data: data, RequestID: id, Timestamp: ts})
}

// Paged sends a 200 response with pagination metadata.
func Paged(c *gin.Context, data any, meta PageMeta) {
	id, ts := stamp(c)
	c.JSON(http.StatusOK, PagedResponse{Data: data, Meta: meta, RequestID: id, Timestamp: ts})
}

// Error maps err to its envelope. An *apperror.AppError anywhere in the chain
// supplies code, status and message; anything else is a 500 that leaks no
// detail. Retryable errors carry Retry-After unless a handler already set it.
func Error(c *gin.Context, err error) {
	id, ts := stamp(c)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: codeInternal,
			Message:   "Internal server error",
			RequestID: id,
			Timestamp: ts,
		})
		return
	}

	if appErr.Retryable && c.Writer.Header().Get("Retry-After") == "" {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		Retryable: appErr.Retryable,
		RequestID: id,
		Timestamp: ts,
	})
}

// stamp returns the request id (minting one when the middleware did not run)
// and the current UTC time.
func stamp(c *gin.Context) (string, string) {
	id := c.GetString(RequestIDKey)
	if id == "" {
		id = uuid.NewString()
	}
	return id, time.Now().UTC().Format(time.RFC3339)
}
