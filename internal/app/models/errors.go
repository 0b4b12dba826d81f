package models

import "errors"

// Domain specific errors shared across the dialog engine.
var (
	ErrNotFound         = errors.New("requested item not found")
	ErrMissingInput     = errors.New("input text is empty")
	ErrSessionClosed    = errors.New("session is closed")
	ErrSessionLocked    = errors.New("session is locked")
	ErrNoPendingOrder   = errors.New("no pending order to confirm")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrMixedRestaurants = errors.New("cart mixes items from different restaurants")
	ErrRestaurantClosed = errors.New("restaurant is closed")
	ErrItemNotAvailable = errors.New("menu item is not available")
	ErrQuantityTooHigh  = errors.New("quantity exceeds the allowed maximum")
	ErrMinOrderNotMet   = errors.New("order total below restaurant minimum")
	ErrBadRequest       = errors.New("bad request")
	ErrValidation       = errors.New("validation failed")
)

// ValidationError pairs a machine code with the offending value so the
// orchestrator can pick a surface without string matching.
type ValidationError struct {
	Code   string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ": " + e.Detail
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a coded validation failure.
func NewValidationError(code, detail string, err error) *ValidationError {
	return &ValidationError{Code: code, Detail: detail, Err: err}
}
