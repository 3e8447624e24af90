package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError              ErrorType = "VALIDATION_ERROR"
	NotFoundError                ErrorType = "NOT_FOUND"
	AuthError                    ErrorType = "AUTHENTICATION_ERROR"
	DatabaseError                ErrorType = "DATABASE_ERROR"
	ServerError                  ErrorType = "SERVER_ERROR"
	ForbiddenError               ErrorType = "FORBIDDEN"
	ConflictError                ErrorType = "CONFLICT"
	UnavailableError             ErrorType = "UNAVAILABLE"
	StaleReferenceError          ErrorType = "STALE_REFERENCE"
	VersionConflictError         ErrorType = "VERSION_CONFLICT"
	InvalidStatusTransitionError ErrorType = "INVALID_STATUS_TRANSITION"
	DuplicateInvitationError     ErrorType = "DUPLICATE_INVITATION"
)

// AppError represents a structured application error. Fields is an optional
// field-path → reason map so a client can highlight exactly which part of a
// nested payload was rejected.
type AppError struct {
	Type       ErrorType         `json:"type"`
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"message"`
	Detail     string            `json:"detail,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	HTTPStatus int               `json:"-"`
	Raw        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status code for the error.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ValidationFailedFields builds a validation error with a per-field detail
// map keyed by field path.
func ValidationFailedFields(message string, fields map[string]string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Fields:     fields,
		HTTPStatus: http.StatusBadRequest,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewDatabaseError(err error) *AppError {
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

// Unavailable signals a storage-transport failure that persisted through
// retries. The caller is guaranteed the document was not partially mutated.
func Unavailable(err error, message string) *AppError {
	return &AppError{
		Type:       UnavailableError,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func Forbidden(message string, details string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusForbidden,
	}
}

func PlanNotFound(id string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Plan not found",
		Detail:     fmt.Sprintf("Plan ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

// StaleReference signals that a patch addressed a section or item that no
// longer exists in the stored document. Recoverable by re-fetching.
func StaleReference(what string, index int) *AppError {
	return &AppError{
		Type:       StaleReferenceError,
		Message:    fmt.Sprintf("%s no longer exists", what),
		Detail:     fmt.Sprintf("%s index: %d", what, index),
		HTTPStatus: http.StatusConflict,
	}
}

// VersionConflict signals an optimistic-lock mismatch. Recoverable by
// re-fetch and retry.
func VersionConflict(expected, actual int64) *AppError {
	return &AppError{
		Type:       VersionConflictError,
		Message:    "Plan was modified by another writer",
		Detail:     fmt.Sprintf("expected version %d, found %d", expected, actual),
		HTTPStatus: http.StatusConflict,
	}
}

func InvalidStatusTransition(current, requested string) *AppError {
	return &AppError{
		Type:       InvalidStatusTransitionError,
		Message:    "Invalid status transition",
		Detail:     fmt.Sprintf("Cannot transition from %s to %s", current, requested),
		HTTPStatus: http.StatusBadRequest,
	}
}

// DuplicateInvitation signals that a live (pending or accepted) invitation
// already exists for the (plan, invitee) pair.
func DuplicateInvitation(plannerID, inviteeID string) *AppError {
	return &AppError{
		Type:       DuplicateInvitationError,
		Message:    "Invitation already exists",
		Detail:     fmt.Sprintf("Plan %s already has a live invitation for user %s", plannerID, inviteeID),
		HTTPStatus: http.StatusConflict,
	}
}

func NewConflictError(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

func Unauthorized(code, message string) error {
	return &AppError{
		Type:       AuthError,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError, InvalidStatusTransitionError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case ConflictError, StaleReferenceError, VersionConflictError, DuplicateInvitationError:
		return http.StatusConflict
	case UnavailableError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
