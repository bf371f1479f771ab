package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/service/auth"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(id uuid.UUID, issuer string, ttl time.Duration) auth.Claims {
	return auth.Claims{
		Email: "alice@example.com",
		Name:  "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func TestService_ValidateAccessToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: secret, JWTIssuer: "identity"}
	svc := auth.NewService(new(mocks.UserRepository), cfg, nil)
	id := uuid.New()

	t.Run("valid", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor(id, "identity", time.Hour)))
		require.NoError(t, err)
		got, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor(id, "identity", -time.Minute))},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor(id, "other", time.Hour))},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("nope"), claimsFor(id, "identity", time.Hour))},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(secret), claimsFor(id, "identity", time.Hour))},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}

	t.Run("subject must be a uuid", func(t *testing.T) {
		c := claimsFor(id, "identity", time.Hour)
		c.Subject = "user-1"
		_, err := svc.ValidateAccessToken(sign(t, jwt.SigningMethodHS256, []byte(secret), c))
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestService_ResolveUser(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{JWTSecret: secret}

	t.Run("existing user", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := auth.NewService(userRepo, cfg, nil)
		id := uuid.New()
		existing := &domain.User{ID: id, Role: domain.RoleVolunteer}
		userRepo.On("GetByID", ctx, id).Return(existing, nil).Once()

		c := claimsFor(id, "", time.Hour)
		got, err := svc.ResolveUser(ctx, &c)
		require.NoError(t, err)
		assert.Same(t, existing, got)
		userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("first sight provisions a donor", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := auth.NewService(userRepo, cfg, nil)
		id := uuid.New()
		userRepo.On("GetByID", ctx, id).Return(nil, nil).Once()
		userRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == id && u.Role == domain.RoleDonor && u.Status == domain.UserActive && u.FullName == "alice"
		})).Return(nil).Once()

		c := claimsFor(id, "", time.Hour)
		c.Name = ""
		_, err := svc.ResolveUser(ctx, &c)
		require.NoError(t, err)
		userRepo.AssertExpectations(t)
	})

	t.Run("no email", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := auth.NewService(userRepo, cfg, nil)
		id := uuid.New()
		userRepo.On("GetByID", ctx, id).Return(nil, nil).Once()

		c := claimsFor(id, "", time.Hour)
		c.Email = ""
		_, err := svc.ResolveUser(ctx, &c)
		assert.ErrorIs(t, err, auth.ErrMissingEmail)
	})
}
