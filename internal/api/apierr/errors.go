package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mcoot/keyquest/internal/model"
)

// RetryAfter is the client hint sent with rate-limit and outage responses
const RetryAfter = 30 * time.Second

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Success           bool     `json:"success"`
	Error             APIError `json:"error"`
	RetryAfterSeconds int      `json:"retry_after_seconds,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeEmailAlreadyUsed    = "EMAIL_ALREADY_USED"
	CodeUserNotRegistered   = "USER_NOT_REGISTERED"
	CodeRecordNotFound      = "RECORD_NOT_FOUND"
	CodeInvalidKeyField     = "INVALID_KEY_FIELD"
	CodeInvalidKeyStatus    = "INVALID_KEY_STATUS"
	CodeKeyAlreadyCollected = "KEY_ALREADY_COLLECTED"
	CodeRedeemNotEnabled    = "REDEEM_NOT_ENABLED"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeInvalidKey          = "INVALID_KEY"
	CodeInvalidInteraction  = "INVALID_INTERACTION"
	CodeRateLimited         = "RATE_LIMITED"
	CodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	CodeRemoteError         = "REMOTE_ERROR"
	CodeAttackDetected      = "ATTACK_DETECTED"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status     int
	apiError   APIError
	retryAfter time.Duration
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	resp := ErrorResponse{Success: false, Error: he.apiError}
	if he.retryAfter > 0 {
		secs := int(he.retryAfter / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		resp.RetryAfterSeconds = secs
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Identity errors
	case errors.Is(err, model.ErrEmailAlreadyUsed):
		return &httpError{status: http.StatusConflict, apiError: APIError{CodeEmailAlreadyUsed, "This email is already registered with a different last name"}}
	case errors.Is(err, model.ErrUserNotRegistered):
		return &httpError{status: http.StatusForbidden, apiError: APIError{CodeUserNotRegistered, "This email is not registered for the event"}}
	case errors.Is(err, model.ErrRecordNotFound):
		return &httpError{status: http.StatusNotFound, apiError: APIError{CodeRecordNotFound, "Record not found"}}
	case errors.Is(err, model.ErrInvalidKeyField):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidKeyField, "keyField must be one of key1, key2, key3, key4"}}
	case errors.Is(err, model.ErrInvalidKeyStatus):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidKeyStatus, "status must be scanned or not_scanned"}}
	case errors.Is(err, model.ErrKeyAlreadyScanned):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeKeyAlreadyCollected, "Key already collected"}}
	case errors.Is(err, model.ErrRedeemNotEnabled):
		return &httpError{status: http.StatusConflict, apiError: APIError{CodeRedeemNotEnabled, "Collect keys 1 to 3 before redeeming"}}

	// Game session errors
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{status: http.StatusNotFound, apiError: APIError{CodeSessionNotFound, "Session not found"}}
	case errors.Is(err, model.ErrUnknownKey):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidKey, "Invalid key for this session"}}
	case errors.Is(err, model.ErrKeyAlreadyCollected):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeKeyAlreadyCollected, "Key already collected"}}
	case errors.Is(err, model.ErrInvalidInteraction):
		return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidInteraction, "Interaction type is required"}}

	// Remote store errors
	case errors.Is(err, model.ErrRateLimited):
		return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "The record store is busy, please wait and retry"}, RetryAfter}
	case errors.Is(err, model.ErrRemoteUnavailable), errors.Is(err, context.DeadlineExceeded):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeRemoteUnavailable, "The record store is unavailable, please retry later"}, RetryAfter}
	case errors.Is(err, model.ErrRemoteRejected):
		return &httpError{status: http.StatusInternalServerError, apiError: APIError{CodeRemoteError, "The record store rejected the request"}}

	default:
		return &httpError{status: http.StatusInternalServerError, apiError: APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{status: http.StatusBadRequest, apiError: APIError{CodeInvalidRequest, message}}
}

// NewAttackDetectedError is returned on the redirect target of the validation gateway
func NewAttackDetectedError() error {
	return &httpError{status: http.StatusForbidden, apiError: APIError{CodeAttackDetected, "Request rejected"}}
}

// NewNotFoundError creates a route not found error
func NewNotFoundError() error {
	return &httpError{status: http.StatusNotFound, apiError: APIError{CodeNotFound, "Not found"}}
}

// NewMethodNotAllowedError creates a method not allowed error
func NewMethodNotAllowedError() error {
	return &httpError{status: http.StatusMethodNotAllowed, apiError: APIError{CodeMethodNotAllowed, "Method not allowed"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{status: http.StatusInternalServerError, apiError: APIError{CodeInternalError, "Internal server error"}}
}
