package domain

// Error is a rejection with a stable code. The code doubles as the key into the
// reason catalog and as the wire code returned by the API.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrValidation         = &Error{Code: "VALIDATION_ERROR", Message: "invalid input"}
	ErrNotAuthorized      = &Error{Code: "NOT_AUTHORIZED", Message: "not authorized to perform this action"}
	ErrSelfRequest        = &Error{Code: "SELF_REQUEST", Message: "cannot donate to your own request"}
	ErrAlreadyInProgress  = &Error{Code: "ALREADY_IN_PROGRESS", Message: "request is already in progress"}
	ErrAlreadyDonating    = &Error{Code: "ALREADY_DONATING", Message: "you are already donating to this request"}
	ErrExpired            = &Error{Code: "EXPIRED", Message: "request deadline has passed"}
	ErrInvalidState       = &Error{Code: "INVALID_STATE", Message: "action not allowed in the current status"}
	ErrPreconditionFailed = &Error{Code: "PRECONDITION_FAILED", Message: "request changed since it was loaded"}
	ErrNotFound           = &Error{Code: "NOT_FOUND", Message: "not found"}
	ErrUserBlocked        = &Error{Code: "USER_BLOCKED", Message: "account is blocked"}
	ErrCannotModifySelf   = &Error{Code: "CANNOT_MODIFY_SELF", Message: "cannot change your own account status or role"}
)

// ValidationError carries the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
