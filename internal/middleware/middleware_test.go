package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
	"blood-donation/internal/pkg/i18n"
	"blood-donation/internal/service/auth"
)

func TestMain(m *testing.M) {
	if err := i18n.LoadTranslations("../../locales"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type authService struct {
	mock.Mock
}

func (m *authService) ValidateAccessToken(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *authService) ResolveUser(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *authService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func decode(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return domain.NewValidationError("required_date", "deadline must be in the future")
	})
	app.Get("/expired", func(c *fiber.Ctx) error { return domain.ErrExpired })
	app.Get("/stale", func(c *fiber.Ctx) error { return domain.ErrPreconditionFailed })
	app.Get("/fiber", func(c *fiber.Ctx) error { return BadRequest("Invalid request body") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("pq: connection refused") })

	tests := []struct {
		path    string
		lang    string
		status  int
		code    string
		message string
	}{
		{"/validation", "", fiber.StatusUnprocessableEntity, "VALIDATION_ERROR", "Some of the submitted fields are invalid."},
		{"/expired", "", fiber.StatusConflict, "EXPIRED", "This request's deadline has passed."},
		{"/stale", "en-US,en;q=0.9", fiber.StatusPreconditionFailed, "PRECONDITION_FAILED", "The request changed while you were looking at it. Reload and try again."},
		{"/fiber", "", fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body"},
		{"/boom", "", fiber.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.lang != "" {
				req.Header.Set(fiber.HeaderAcceptLanguage, tt.lang)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode(t, resp)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.NotEmpty(t, body.TraceID)
		})
	}

	t.Run("validation carries the field", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/validation", nil))
		require.NoError(t, err)
		body := decode(t, resp)
		assert.Equal(t, "required_date", body.Field)
		assert.Equal(t, "deadline must be in the future", body.Details)
	})

	t.Run("bangla catalog", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/expired", nil)
		req.Header.Set(fiber.HeaderAcceptLanguage, "bn-BD")
		resp, err := app.Test(req)
		require.NoError(t, err)
		body := decode(t, resp)
		assert.Equal(t, "EXPIRED", body.Code)
		assert.Equal(t, i18n.Translate("bn", "EXPIRED"), body.Message)
		assert.NotEqual(t, i18n.Translate("en", "EXPIRED"), body.Message)
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusForbidden, StatusFor("SELF_REQUEST"))
	assert.Equal(t, fiber.StatusNotFound, StatusFor("NOT_FOUND"))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
}

func TestAuthAndRoles(t *testing.T) {
	authSvc := new(authService)
	active := &domain.User{ID: uuid.New(), Role: domain.RoleVolunteer, Status: domain.UserActive}
	blocked := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin, Status: domain.UserBlocked}
	activeClaims := &auth.Claims{Email: "vera@example.com"}
	blockedClaims := &auth.Claims{Email: "root@example.com"}

	authSvc.On("ValidateAccessToken", "good").Return(activeClaims, nil)
	authSvc.On("ValidateAccessToken", "blocked").Return(blockedClaims, nil)
	authSvc.On("ValidateAccessToken", "bad").Return(nil, auth.ErrInvalidToken)
	authSvc.On("ResolveUser", mock.Anything, activeClaims).Return(active, nil)
	authSvc.On("ResolveUser", mock.Anything, blockedClaims).Return(blocked, nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Use(RequestInfo())
	app.Get("/open", OptionalAuth(authSvc), func(c *fiber.Ctx) error {
		return c.SendString(string(GetCurrentUserRole(c)))
	})
	app.Get("/mod", AuthRequired(authSvc), RequireRole(domain.RoleVolunteer), func(c *fiber.Ctx) error {
		return c.SendString(GetRequestMeta(c).IPAddress)
	})
	app.Get("/admin", AuthRequired(authSvc), RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	call := func(path, token string, headers ...string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("guest on optional route", func(t *testing.T) {
		resp := call("/open", "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, fiber.StatusUnauthorized, call("/mod", "").StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, fiber.StatusUnauthorized, call("/mod", "bad").StatusCode)
	})

	t.Run("volunteer reaches moderator route with caller ip", func(t *testing.T) {
		resp := call("/mod", "good", "CF-Connecting-IP", "203.0.113.7")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		buf := make([]byte, 32)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, "203.0.113.7", string(buf[:n]))
	})

	t.Run("volunteer is not admin", func(t *testing.T) {
		assert.Equal(t, fiber.StatusForbidden, call("/admin", "good").StatusCode)
	})

	t.Run("blocked admin", func(t *testing.T) {
		resp := call("/admin", "blocked")
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "USER_BLOCKED", decode(t, resp).Code)
	})
}
