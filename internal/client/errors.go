package client

import (
	"errors"
	"fmt"

	"blood-donation/internal/domain"
)

var (
	ErrNetwork          = errors.New("network error")
	ErrOutcomeUnknown   = errors.New("request timed out; it may or may not have been applied")
	ErrMutationInFlight = errors.New("another change to this request is still in flight")
)

// StaleError is returned when the server refused a change because the stored
// request moved on or disappeared. Latest is the request as fetched right
// after the refusal and is nil when it no longer exists or could not be read.
type StaleError struct {
	Err    error
	Latest *domain.DonationRequest
}

func (e *StaleError) Error() string {
	return e.Err.Error()
}

func (e *StaleError) Unwrap() error {
	return e.Err
}

// APIError is the error body the API returns.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

var sentinels = map[string]*domain.Error{}

func init() {
	for _, e := range []*domain.Error{
		domain.ErrValidation,
		domain.ErrNotAuthorized,
		domain.ErrSelfRequest,
		domain.ErrAlreadyInProgress,
		domain.ErrAlreadyDonating,
		domain.ErrExpired,
		domain.ErrInvalidState,
		domain.ErrPreconditionFailed,
		domain.ErrNotFound,
		domain.ErrUserBlocked,
		domain.ErrCannotModifySelf,
	} {
		sentinels[e.Code] = e
	}
}

// toError turns an API error body back into the matching domain sentinel so
// callers can use errors.Is on both sides of the wire.
func toError(status int, body *APIError) error {
	if body == nil || body.Code == "" {
		return fmt.Errorf("unexpected response status %d", status)
	}
	if body.Code == domain.ErrValidation.Code && body.Field != "" {
		return domain.NewValidationError(body.Field, body.Details)
	}
	if e, ok := sentinels[body.Code]; ok {
		return e
	}
	switch body.Code {
	case "UNAUTHORIZED", "FORBIDDEN":
		return domain.ErrNotAuthorized
	}
	return fmt.Errorf("%s: %s (status %d)", body.Code, body.Message, status)
}
