// Package apperror defines the coded errors surfaced to API clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. The prefix names the area: WAL wallet/ledger, SEC request
// signing, AUTH identity, RATE throttling, REQ transport, SYS infrastructure.
const (
	CodeInsufficientFunds  = "WAL_001"
	CodeInvalidAmount      = "WAL_002"
	CodeDuplicateReference = "WAL_003"
	CodeNotFound           = "WAL_004"
	CodeSelfTransfer       = "WAL_006"

	CodeInvalidSignature = "SEC_002"

	CodeInvalidCredentials = "AUTH_001"
	CodeUserExists         = "AUTH_002"
	CodeInvalidToken       = "AUTH_003"

	CodeRateLimited = "RATE_001"

	CodeBodyTooLarge = "REQ_001"

	CodeInternal    = "SYS_001"
	CodeLockTimeout = "SYS_002"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"retryable"`
	Err        error  `json:"-"` // internal cause, never sent to clients
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another *AppError by code, so errors.Is(err, ErrSelfTransfer())
// works through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New creates an AppError without an internal cause.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates an AppError around an internal cause.
func Wrap(code, message string, httpStatus int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func (e *AppError) retryable() *AppError {
	e.Retryable = true
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given AppError code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryable reports whether err, or any error it wraps, is a retryable AppError.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}

// Wallet

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrDuplicateReference() *AppError {
	return New(CodeDuplicateReference, "Reference already used for a different operation", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, entity+" not found", http.StatusNotFound)
}

func ErrAccountNotFound() *AppError {
	return ErrNotFound("Account")
}

func ErrSelfTransfer() *AppError {
	return New(CodeSelfTransfer, "Cannot transfer to the same account", http.StatusBadRequest)
}

// Validation reports a malformed request. It shares the invalid-amount code.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}

// Security and auth

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid signature", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrUserExists() *AppError {
	return New(CodeUserExists, "Email or phone number already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

// Transport

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests).retryable()
}

func ErrBodyTooLarge() *AppError {
	return New(CodeBodyTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

// Infrastructure

// ErrDatabaseError is a retryable storage failure.
func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err).retryable()
}

// ErrLockTimeout covers lock waits past the configured bound as well as
// competing scopes that hold the same reference.
func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Resource busy, retry later", http.StatusServiceUnavailable, err).retryable()
}

// InternalError wraps an unexpected failure. It is not retryable.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
