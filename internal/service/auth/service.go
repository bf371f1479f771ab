package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingEmail = errors.New("token carries no email claim")
)

type Service interface {
	ValidateAccessToken(token string) (*Claims, error)
	// ResolveUser returns the account behind claims, creating a donor account
	// the first time an identity is seen.
	ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Claims are the fields read from identity-provider tokens. Subject holds the
// user id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type service struct {
	userRepo repository.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
}

func NewService(userRepo repository.UserRepository, cfg *config.Config, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *service) ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	user = &domain.User{
		ID:       id,
		Email:    email,
		FullName: name,
		Role:     domain.RoleDonor,
		Status:   domain.UserActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("provisioned user from identity token",
		zap.String("user_id", id.String()),
		zap.String("email", email),
	)
	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
