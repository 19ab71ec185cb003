package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ociswap/registry/internal/registry"
)

type ErrorType string

const (
	ErrFeeShareOutOfBounds ErrorType = "FEE_SHARE_OUT_OF_BOUNDS"
	ErrZeroSyncSlots       ErrorType = "ZERO_SYNC_SLOTS"
	ErrZeroSyncPeriod      ErrorType = "ZERO_SYNC_PERIOD"
	ErrSlotsExceedPeriod   ErrorType = "SLOTS_EXCEED_PERIOD"
	ErrUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrInvalidRequest      ErrorType = "INVALID_REQUEST"
	ErrReadOnly            ErrorType = "READ_ONLY"
	ErrInternal            ErrorType = "INTERNAL_ERROR"
	ErrNotFound            ErrorType = "NOT_FOUND"
	ErrBodyTooLarge        ErrorType = "BODY_TOO_LARGE"
	ErrConflict            ErrorType = "CONFLICT"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return FromRegistry(err)
}

// FromRegistry classifies an error returned by the registry core.
func FromRegistry(err error) *AppError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, registry.ErrFeeShareOutOfBounds):
		return New(ErrFeeShareOutOfBounds, err.Error(), err)
	case errors.Is(err, registry.ErrZeroSyncSlots):
		return New(ErrZeroSyncSlots, err.Error(), err)
	case errors.Is(err, registry.ErrZeroSyncPeriod):
		return New(ErrZeroSyncPeriod, err.Error(), err)
	case errors.Is(err, registry.ErrSlotsExceedPeriod):
		return New(ErrSlotsExceedPeriod, err.Error(), err)
	case errors.Is(err, registry.ErrUnauthorized):
		return New(ErrUnauthorized, err.Error(), err)
	case errors.Is(err, registry.ErrInvalidBucket):
		return New(ErrInvalidRequest, err.Error(), err)
	default:
		return New(ErrInternal, err.Error(), err)
	}
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrFeeShareOutOfBounds, ErrZeroSyncSlots, ErrZeroSyncPeriod, ErrSlotsExceedPeriod, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrFeeShareOutOfBounds:
		return "Use a protocol fee share between 0 and 0.25."
	case ErrZeroSyncSlots, ErrZeroSyncPeriod, ErrSlotsExceedPeriod:
		return "Use 0 < sync_slots <= sync_period."
	case ErrUnauthorized:
		return "Sign the request with the owner key (X-Owner-Timestamp, X-Owner-Signature)."
	case ErrReadOnly:
		return "Wait for maintenance to finish."
	case ErrConflict:
		return "Retry once the first request with this X-Idempotency-Key has completed."
	default:
		return ""
	}
}
