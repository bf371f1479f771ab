package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/pkg/i18n"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

var domainStatus = map[string]int{
	domain.ErrValidation.Code:         fiber.StatusUnprocessableEntity,
	domain.ErrNotAuthorized.Code:      fiber.StatusForbidden,
	domain.ErrSelfRequest.Code:        fiber.StatusForbidden,
	domain.ErrUserBlocked.Code:        fiber.StatusForbidden,
	domain.ErrCannotModifySelf.Code:   fiber.StatusForbidden,
	domain.ErrAlreadyInProgress.Code:  fiber.StatusConflict,
	domain.ErrAlreadyDonating.Code:    fiber.StatusConflict,
	domain.ErrExpired.Code:            fiber.StatusConflict,
	domain.ErrInvalidState.Code:       fiber.StatusConflict,
	domain.ErrPreconditionFailed.Code: fiber.StatusPreconditionFailed,
	domain.ErrNotFound.Code:           fiber.StatusNotFound,
}

// StatusFor returns the HTTP status used for a domain error code.
func StatusFor(code string) int {
	if status, ok := domainStatus[code]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as ErrorResponse. Domain rejections keep
// their code and get a message from the reason catalog in the caller's
// language.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		locale := i18n.FromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
		traceID := uuid.New().String()[:8]

		resp := ErrorResponse{TraceID: traceID}
		status := fiber.StatusInternalServerError

		var (
			fe *fiber.Error
			de *domain.Error
			ve *domain.ValidationError
		)
		switch {
		case errors.As(err, &ve):
			status = fiber.StatusUnprocessableEntity
			resp.Code = domain.ErrValidation.Code
			resp.Message = i18n.Translate(locale, resp.Code)
			resp.Field = ve.Field
			resp.Details = ve.Message
		case errors.As(err, &de):
			status = StatusFor(de.Code)
			resp.Code = de.Code
			resp.Message = de.Message
			if i18n.Has(locale, de.Code) {
				resp.Message = i18n.Translate(locale, de.Code)
			}
		case errors.As(err, &fe):
			status = fe.Code
			resp.Code = fiberCode(fe.Code)
			resp.Message = fe.Message
		default:
			resp.Code = "INTERNAL_ERROR"
			resp.Message = i18n.Translate(locale, resp.Code)
			if resp.Message == resp.Code {
				resp.Message = "Internal server error"
			}
			logger.Error("unhandled error",
				zap.String("trace_id", traceID),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(resp)
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "ERROR"
	}
}

func NewError(code int, message string) *fiber.Error {
	return fiber.NewError(code, message)
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

func NotFound(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, message)
}

func Conflict(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusConflict, message)
}
