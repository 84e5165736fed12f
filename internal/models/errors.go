package models

import (
	"fmt"
	"net/http"
	"strings"
)

// Error codes shared by every layer. Handlers map them to HTTP statuses.
const (
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeSelfBooking         = "SELF_BOOKING"
	CodeNotAuthorized       = "NOT_AUTHORIZED"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodePersistence         = "PERSISTENCE"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeServiceInUse        = "SERVICE_IN_USE"
	CodeDuplicateReview     = "DUPLICATE_REVIEW"
	CodeConflict            = "CONFLICT"
)

// AppError is the typed failure returned by domain operations.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any *AppError carrying the same code, so callers can write
// errors.Is(err, models.ErrInsufficientCredits).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Status returns the HTTP status for the error code.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeInsufficientCredits:
		return http.StatusPaymentRequired
	case CodeSelfBooking, CodeValidation:
		return http.StatusBadRequest
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeServiceUnavailable, CodeServiceInUse, CodeDuplicateReview, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is checks.
var (
	ErrInsufficientCredits = &AppError{Code: CodeInsufficientCredits}
	ErrSelfBooking         = &AppError{Code: CodeSelfBooking}
	ErrNotAuthorized       = &AppError{Code: CodeNotAuthorized}
	ErrUnauthenticated     = &AppError{Code: CodeUnauthenticated}
	ErrPersistence         = &AppError{Code: CodePersistence}
	ErrNotFound            = &AppError{Code: CodeNotFound}
	ErrValidation          = &AppError{Code: CodeValidation}
	ErrInvalidTransition   = &AppError{Code: CodeInvalidTransition}
	ErrServiceUnavailable  = &AppError{Code: CodeServiceUnavailable}
	ErrServiceInUse        = &AppError{Code: CodeServiceInUse}
	ErrDuplicateReview     = &AppError{Code: CodeDuplicateReview}
	ErrConflict            = &AppError{Code: CodeConflict}
)

func NewInsufficientCreditsError(balance, required int64) *AppError {
	return &AppError{
		Code:    CodeInsufficientCredits,
		Message: fmt.Sprintf("insufficient time credits: have %d, need %d", balance, required),
	}
}

func NewSelfBookingError() *AppError {
	return &AppError{Code: CodeSelfBooking, Message: "you cannot book your own service"}
}

func NewNotAuthorizedError(message string) *AppError {
	return &AppError{Code: CodeNotAuthorized, Message: message}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Code: CodeUnauthenticated, Message: message}
}

func NewPersistenceError(op string, err error) *AppError {
	return &AppError{Code: CodePersistence, Message: op + " failed", Err: err}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found"}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewInvalidTransitionError(from BookingState, event string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("%s is not allowed for a booking in state %s", strings.ReplaceAll(event, "_", " "), from),
	}
}

func NewServiceUnavailableError(message string) *AppError {
	return &AppError{Code: CodeServiceUnavailable, Message: message}
}

func NewServiceInUseError() *AppError {
	return &AppError{Code: CodeServiceInUse, Message: "service has a booking and can no longer be changed"}
}

func NewDuplicateReviewError() *AppError {
	return &AppError{Code: CodeDuplicateReview, Message: "you have already reviewed this service"}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}
